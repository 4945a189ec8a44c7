package guardian

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// OllamaFactory — локальные модели, ключ не нужен.
type OllamaFactory struct {
	client *api.Client
}

// NewOllamaFactory подключается к host; пустой host — из OLLAMA_HOST.
func NewOllamaFactory(host string) (*OllamaFactory, error) {
	if host == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama: client from env: %w", err)
		}
		return &OllamaFactory{client: c}, nil
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("ollama: parse host: %w", err)
	}
	return &OllamaFactory{client: api.NewClient(u, http.DefaultClient)}, nil
}

func (f *OllamaFactory) RequiresKey() bool { return false }

func (f *OllamaFactory) ForKey(context.Context, string) (Generator, error) {
	return f, nil
}

func (f *OllamaFactory) Generate(ctx context.Context, model string, p Prompt) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:  model,
		Prompt: p.Text,
		Stream: &stream,
		Format: json.RawMessage(`"json"`),
	}
	if len(p.Image) > 0 {
		req.Images = []api.ImageData{p.Image}
	}

	var sb strings.Builder
	err := f.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		sb.WriteString(resp.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama %s: %w", model, err)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
