package guardian

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// GeminiFactory переиспользует клиент только для ключа из конфига.
// Ключи из запросов приходят от кого угодно, под них клиент создается на один вызов.
type GeminiFactory struct {
	defaultKey string

	mu            sync.Mutex
	defaultClient *genai.Client
}

func NewGeminiFactory(defaultKey string) *GeminiFactory {
	return &GeminiFactory{defaultKey: defaultKey}
}

func (f *GeminiFactory) RequiresKey() bool { return true }

func (f *GeminiFactory) ForKey(ctx context.Context, apiKey string) (Generator, error) {
	if apiKey == "" || apiKey != f.defaultKey {
		c, err := newGeminiClient(ctx, apiKey)
		if err != nil {
			return nil, err
		}
		return &geminiGenerator{client: c}, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.defaultClient == nil {
		c, err := newGeminiClient(ctx, apiKey)
		if err != nil {
			return nil, err
		}
		f.defaultClient = c
	}
	return &geminiGenerator{client: f.defaultClient}, nil
}

func newGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return c, nil
}

type geminiGenerator struct {
	client *genai.Client
}

func (g *geminiGenerator) Generate(ctx context.Context, model string, p Prompt) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(p.Text)}
	if len(p.Image) > 0 {
		parts = append(parts, genai.NewPartFromBytes(p.Image, p.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", model, err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
