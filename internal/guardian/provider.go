package guardian

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// Prompt — один запрос к модели: текст и (опционально) кадр экрана.
type Prompt struct {
	Text     string
	Image    []byte
	MIMEType string
}

// Generator — бэкенд, который отвечает текстом на промпт.
type Generator interface {
	Generate(ctx context.Context, model string, p Prompt) (string, error)
}

// Factory выдает генератор под конкретный API-ключ.
// Ключ приходит из запроса, поэтому клиент создается не при старте, а по требованию.
type Factory interface {
	ForKey(ctx context.Context, apiKey string) (Generator, error)
	// RequiresKey — без ключа бэкенд не работает (gemini), и сервис уходит в демо-режим.
	RequiresKey() bool
}

var ErrEmptyResponse = errors.New("guardian: model returned empty response")

// DecodeDataURL разбирает "data:image/jpeg;base64,<payload>".
// Строка без префикса считается чистым base64 с image/jpeg.
func DecodeDataURL(raw string) ([]byte, string, error) {
	mime := "image/jpeg"
	payload := raw

	if strings.HasPrefix(raw, "data:") {
		header, data, ok := strings.Cut(raw, ",")
		if !ok {
			return nil, "", fmt.Errorf("guardian: malformed data url")
		}
		payload = data
		meta := strings.TrimPrefix(header, "data:")
		if m, _, _ := strings.Cut(meta, ";"); m != "" {
			mime = m
		}
	}

	img, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("guardian: decode image: %w", err)
	}
	return img, mime, nil
}
