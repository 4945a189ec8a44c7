// Package relayclient — HTTP-клиент к Relay для Shield, монитора и CLI.
package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xela07ax/mindtussle/internal/audit"
	"github.com/xela07ax/mindtussle/internal/domain"
	"github.com/xela07ax/mindtussle/internal/infra"
)

// StatusError — Relay ответил не 2xx.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("relay: unexpected status %d: %s", e.Code, e.Body)
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New создает клиента. timeout ограничивает каждый запрос целиком.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) MissionStatus(ctx context.Context) (domain.MissionState, error) {
	var out domain.MissionState
	err := c.do(ctx, http.MethodGet, "/mission-status", nil, &out)
	return out, err
}

func (c *Client) PushMission(ctx context.Context, p domain.MissionPush) error {
	return c.do(ctx, http.MethodPost, "/mission-status", p, nil)
}

func (c *Client) DriftStatus(ctx context.Context) (domain.DriftState, error) {
	var out domain.DriftState
	err := c.do(ctx, http.MethodGet, "/drift-status", nil, &out)
	return out, err
}

func (c *Client) PushDrift(ctx context.Context, p domain.DriftPush) error {
	return c.do(ctx, http.MethodPost, "/drift-status", p, nil)
}

func (c *Client) Guardian(ctx context.Context, req domain.GuardianRequest) (domain.Verdict, error) {
	var out domain.Verdict
	err := c.do(ctx, http.MethodPost, "/guardian", req, &out)
	return out, err
}

func (c *Client) History(ctx context.Context, limit int) ([]audit.VerdictEvent, error) {
	var out []audit.VerdictEvent
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/guardian/history?limit=%d", limit), nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("relay: encode %s: %w", path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("relay: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := infra.TraceID(ctx); id != "" && !strings.HasPrefix(id, "00000000") {
		req.Header.Set(infra.TraceHeader, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("relay: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("relay: decode %s: %w", path, err)
	}
	return nil
}
