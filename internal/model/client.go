// Package model adapts generative backends to the flow executor
package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/kode4food/atelier/internal/schema"
	"github.com/kode4food/atelier/pkg/api"
	"github.com/kode4food/atelier/pkg/log"
)

type (
	// Client is the capability boundary to a generative backend
	Client interface {
		Invoke(
			context.Context, *api.ModelInvocationSpec,
		) (*api.InvocationResult, error)
	}

	// ClientFunc adapts a function to the Client interface
	ClientFunc func(
		context.Context, *api.ModelInvocationSpec,
	) (*api.InvocationResult, error)

	// HTTPClient talks to an OpenAI-compatible HTTP API
	HTTPClient struct {
		httpClient *http.Client
		baseURL    string
		apiKey     string
	}

	// HTTPConfig configures an HTTPClient
	HTTPConfig struct {
		BaseURL string
		APIKey  string
		Timeout time.Duration
	}

	chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	chatRequest struct {
		ResponseFormat map[string]string `json:"response_format"`
		Temperature    *float64          `json:"temperature,omitempty"`
		Model          string            `json:"model"`
		Messages       []chatMessage     `json:"messages"`
	}

	imageRequest struct {
		Model          string `json:"model"`
		Prompt         string `json:"prompt"`
		ResponseFormat string `json:"response_format"`
		N              int    `json:"n"`
	}
)

const (
	chatPath      = "/chat/completions"
	imagesPath    = "/images/generations"
	userAgent     = "Atelier/1.0"
	defaultMIME   = "image/png"
	dataURIFormat = "data:%s;base64,%s"

	chatContentPath  = "choices.0.message.content"
	imageB64Path     = "data.0.b64_json"
	imageURLPath     = "data.0.url"
	imageMIMEPath    = "data.0.mime_type"
	errorMessagePath = "error.message"
)

var (
	ErrHTTPError        = errors.New("model backend returned HTTP error")
	ErrMalformedReply   = errors.New("model backend returned malformed reply")
	ErrUnparseableReply = errors.New("model content is not a JSON object")
	ErrNoPrompt         = errors.New("invocation has no prompt or input")
)

var (
	_ Client = (*HTTPClient)(nil)
	_ Client = ClientFunc(nil)
)

// Invoke calls f
func (f ClientFunc) Invoke(
	ctx context.Context, spec *api.ModelInvocationSpec,
) (*api.InvocationResult, error) {
	return f(ctx, spec)
}

// NewHTTPClient creates a client for the configured backend
func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	return &HTTPClient{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
	}
}

// Invoke performs exactly one backend call for the spec. Media specs use the
// image generation endpoint, all others use schema-guided chat completion
func (c *HTTPClient) Invoke(
	ctx context.Context, spec *api.ModelInvocationSpec,
) (*api.InvocationResult, error) {
	prompt, err := promptText(spec)
	if err != nil {
		return nil, err
	}
	if spec.IsMedia() {
		return c.generateImage(ctx, spec, prompt)
	}
	return c.generateText(ctx, spec, prompt)
}

func (c *HTTPClient) generateText(
	ctx context.Context, spec *api.ModelInvocationSpec, prompt string,
) (*api.InvocationResult, error) {
	req := chatRequest{
		Model: spec.Model,
		Messages: []chatMessage{
			{Role: "system", Content: outputInstructions(spec.Output)},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
	}
	if spec.Config != nil {
		req.Temperature = spec.Config.Temperature
	}

	body, err := c.post(ctx, spec.Model, chatPath, req)
	if err != nil {
		return nil, err
	}

	content := gjson.GetBytes(body, chatContentPath)
	if !content.Exists() {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedReply,
			chatContentPath)
	}
	if content.String() == "" {
		return &api.InvocationResult{}, nil
	}

	out, err := schema.ParseObject([]byte(content.String()))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparseableReply, err)
	}
	return &api.InvocationResult{Output: out}, nil
}

func (c *HTTPClient) generateImage(
	ctx context.Context, spec *api.ModelInvocationSpec, prompt string,
) (*api.InvocationResult, error) {
	body, err := c.post(ctx, spec.Model, imagesPath, imageRequest{
		Model:          spec.Model,
		Prompt:         prompt,
		ResponseFormat: "b64_json",
		N:              1,
	})
	if err != nil {
		return nil, err
	}

	if !gjson.GetBytes(body, "data").IsArray() {
		return nil, fmt.Errorf("%w: missing data", ErrMalformedReply)
	}

	if b64 := gjson.GetBytes(body, imageB64Path).String(); b64 != "" {
		mime := gjson.GetBytes(body, imageMIMEPath).String()
		if mime == "" {
			mime = defaultMIME
		}
		return &api.InvocationResult{
			Media: &api.MediaDescriptor{
				URI:      fmt.Sprintf(dataURIFormat, mime, b64),
				MIMEType: mime,
			},
		}, nil
	}

	if url := gjson.GetBytes(body, imageURLPath).String(); url != "" {
		return &api.InvocationResult{
			Media: &api.MediaDescriptor{URI: url},
		}, nil
	}
	return &api.InvocationResult{}, nil
}

func (c *HTTPClient) post(
	ctx context.Context, model, path string, payload any,
) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data),
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	dur := time.Since(start)
	if err != nil {
		slog.Error("Model request failed",
			log.Model(model),
			slog.Duration("duration", dur),
			log.Error(err))
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(body, errorMessagePath).String()
		slog.Error("Model backend error",
			log.Model(model),
			slog.Int("status_code", resp.StatusCode),
			log.ErrorString(msg))
		if msg != "" {
			return nil, fmt.Errorf("%w: HTTP %d: %s",
				ErrHTTPError, resp.StatusCode, msg)
		}
		return nil, fmt.Errorf("%w: HTTP %d", ErrHTTPError, resp.StatusCode)
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedReply)
	}

	slog.Debug("Model request completed",
		log.Model(model),
		slog.Duration("duration", dur))
	return body, nil
}

func promptText(spec *api.ModelInvocationSpec) (string, error) {
	if spec.Prompt != "" {
		return spec.Prompt, nil
	}
	if len(spec.Input) == 0 {
		return "", ErrNoPrompt
	}
	data, err := json.Marshal(spec.Input)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func outputInstructions(out api.Schema) string {
	var sb strings.Builder
	sb.WriteString("Respond with a single JSON object")
	if len(out) == 0 {
		sb.WriteString(".")
		return sb.String()
	}
	sb.WriteString(" containing exactly these fields:")
	for _, name := range out.SortedNames() {
		fs := out[name]
		_, _ = fmt.Fprintf(&sb, "\n- %s: %s", name, fs.Describe())
		if !fs.IsRequired() {
			sb.WriteString(" (optional)")
		}
	}
	return sb.String()
}
