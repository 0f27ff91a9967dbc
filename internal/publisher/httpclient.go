package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"

	"frameworks/herald/internal/platform"
	"frameworks/herald/pkg/clients"
	"frameworks/herald/pkg/logging"
)

const (
	defaultPostTimeout = 60 * time.Second
	maxErrorBodyBytes  = 4096
)

// apiClient is the HTTP plumbing shared by the platform clients: one
// single-attempt breaker executor per platform.
type apiClient struct {
	platform platform.Platform
	baseURL  string
	client   *http.Client
	executor failsafe.Executor[*http.Response]
}

// ClientConfig configures one platform client.
type ClientConfig struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     logging.Logger
}

func newAPIClient(p platform.Platform, defaultBase string, cfg ClientConfig) apiClient {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBase
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = clients.NewHTTPClient(defaultPostTimeout)
	}
	execCfg := clients.SingleAttemptConfig("publish-" + p.String())
	execCfg.Logger = cfg.Logger
	return apiClient{
		platform: p,
		baseURL:  base,
		client:   httpClient,
		executor: clients.NewHTTPExecutor(execCfg),
	}
}

// do sends one request and decodes a JSON object response. Non-2xx
// responses become *APIError.
func (c apiClient) do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) (map[string]any, http.Header, error) {
	resp, err := clients.Do(ctx, c.executor, c.client, nil, build)
	if err != nil {
		var statusErr *clients.StatusError
		if errors.As(err, &statusErr) {
			return nil, nil, &APIError{Platform: c.platform, StatusCode: statusErr.StatusCode, Message: platformMessage([]byte(statusErr.Body))}
		}
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil, fmt.Errorf("read %s response: %w", c.platform, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if len(body) > maxErrorBodyBytes {
			body = body[:maxErrorBodyBytes]
		}
		return nil, nil, &APIError{Platform: c.platform, StatusCode: resp.StatusCode, Message: platformMessage(body)}
	}

	out := map[string]any{}
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, nil, fmt.Errorf("decode %s response: %w", c.platform, err)
		}
	}
	return out, resp.Header, nil
}

func (c apiClient) postForm(ctx context.Context, path string, form url.Values) (map[string]any, error) {
	encoded := form.Encode()
	out, _, err := c.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(encoded))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return req, nil
	})
	return out, err
}

// postFile uploads a local file as a multipart field next to form.
func (c apiClient) postFile(ctx context.Context, path string, form url.Values, field, filePath string) (map[string]any, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read media %s: %w", filePath, err)
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, values := range form {
		for _, v := range values {
			if err := writer.WriteField(key, v); err != nil {
				return nil, err
			}
		}
	}
	part, err := writer.CreateFormFile(field, filepath.Base(filePath))
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}
	payload := buf.Bytes()
	contentType := writer.FormDataContentType()

	out, _, err := c.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
	return out, err
}

// platformMessage pulls a human message out of a platform error body.
func platformMessage(body []byte) string {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error.Message != "" {
			return payload.Error.Message
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "empty response"
	}
	return msg
}

func isRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func stringField(m map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := m[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return fmt.Sprintf("%.0f", v)
		}
	}
	return ""
}
