package guardian

import (
	"fmt"

	"github.com/xela07ax/mindtussle/internal/infra"
)

// NewFactory выбирает бэкенд по конфигу.
func NewFactory(cfg infra.GuardianConfig) (Factory, error) {
	switch cfg.Backend {
	case "", "gemini":
		return NewGeminiFactory(cfg.APIKey), nil
	case "ollama":
		return NewOllamaFactory(cfg.OllamaHost)
	default:
		return nil, fmt.Errorf("guardian: unknown backend %q", cfg.Backend)
	}
}

func ReliabilityFromConfig(cfg infra.GuardianConfig) ReliabilitySettings {
	return ReliabilitySettings{
		Timeout:       cfg.Timeout,
		CBMaxRequests: uint32(max(cfg.CBMaxRequests, 0)),
		CBInterval:    cfg.CBInterval,
		CBTimeout:     cfg.CBTimeout,
		CBFailures:    uint32(max(cfg.CBFailures, 0)),
		RateLimit:     cfg.RateLimit,
		RateBurst:     cfg.RateBurst,
	}
}
