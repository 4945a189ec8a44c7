package guardian

import (
	"context"
	"time"
)

const probePrompt = "Hello, are you online?"

// ProbeResult — ответ одной модели на пробный запрос.
type ProbeResult struct {
	Model   string
	Reply   string
	Err     error
	Elapsed time.Duration
}

// Probe по очереди опрашивает модели простым промптом, без предохранителя:
// цель — увидеть, какие модели доступны с этим ключом.
func Probe(ctx context.Context, gen Generator, models []string, timeout time.Duration) []ProbeResult {
	results := make([]ProbeResult, 0, len(models))
	for _, model := range models {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		reply, err := gen.Generate(callCtx, model, Prompt{Text: probePrompt})
		cancel()

		if len(reply) > 60 {
			reply = reply[:60]
		}
		results = append(results, ProbeResult{Model: model, Reply: reply, Err: err, Elapsed: time.Since(start)})
		if ctx.Err() != nil {
			break
		}
	}
	return results
}
