// Package kie talks to the kie.ai task API, which fronts several generation
// models behind two envelope styles.
package kie

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mediagen/internal/domain"
	"mediagen/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("kie: api key is required")

const codeOK = 200

// Options configures the kie.ai client.
type Options struct {
	APIKey         string
	BaseURL        string
	CallbackURL    string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the kie.ai task endpoints.
type Client struct {
	apiKey      string
	baseURL     string
	callbackURL string
	httpClient  *http.Client
	logger      *infra.Logger
}

// envelope is shared by every kie.ai response. HTTP 200 may still carry a
// failure code, so code is authoritative.
type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type createData struct {
	TaskID string `json:"taskId"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.kie.ai"
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("kie: invalid base url: %w", err)
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		l := zerolog.New(io.Discard)
		logger = &l
	}
	return &Client{
		apiKey:      strings.TrimSpace(opts.APIKey),
		baseURL:     baseURL,
		callbackURL: strings.TrimSpace(opts.CallbackURL),
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// CreateTask submits a task and returns its provider handle. Any failure here
// means the remote task does not exist.
func (c *Client) CreateTask(ctx context.Context, kind domain.ProviderKind, input domain.TaskInput) (string, error) {
	if !c.HasCredentials() {
		return "", fmt.Errorf("%w: %w", domain.ErrProviderCreate, ErrMissingAPIKey)
	}
	var (
		path string
		body map[string]any
	)
	switch kind {
	case domain.KindSingleTask:
		path, body = singleTaskCreatePath, singleTaskBody(input, c.callbackURL)
	case domain.KindGenericJob:
		path, body = genericJobCreatePath, genericJobBody(input, c.callbackURL)
	default:
		return "", domain.ProviderCreateError(fmt.Sprintf("unknown provider kind %q", kind))
	}

	env, err := c.do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrProviderCreate, err)
	}
	if env.Code != codeOK {
		return "", domain.ProviderCreateError(envelopeMessage(env))
	}
	var data createData
	if err := json.Unmarshal(env.Data, &data); err != nil || strings.TrimSpace(data.TaskID) == "" {
		return "", domain.ProviderCreateError("response carried no task id")
	}
	c.logger.Debug().
		Str("kind", string(kind)).
		Str("provider_model", input.ProviderModel).
		Str("task_id", data.TaskID).
		Msg("kie: task created")
	return data.TaskID, nil
}

// PollOnce fetches the task record once and normalizes it.
func (c *Client) PollOnce(ctx context.Context, kind domain.ProviderKind, taskID string) (domain.TaskStatus, error) {
	if !c.HasCredentials() {
		return domain.TaskStatus{}, ErrMissingAPIKey
	}
	var path string
	switch kind {
	case domain.KindSingleTask:
		path = singleTaskRecordPath
	case domain.KindGenericJob:
		path = genericJobRecordPath
	default:
		return domain.TaskStatus{}, fmt.Errorf("kie: unknown provider kind %q", kind)
	}

	env, err := c.do(ctx, http.MethodGet, path, url.Values{"taskId": {taskID}}, nil)
	if err != nil {
		return domain.TaskStatus{}, err
	}
	if env.Code != codeOK {
		return domain.TaskStatus{}, fmt.Errorf("kie: record %s: %s", taskID, envelopeMessage(env))
	}
	if kind == domain.KindSingleTask {
		return parseSingleTask(env.Data), nil
	}
	return parseGenericJob(env.Data), nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*envelope, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("kie: encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("kie: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kie: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kie: read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode >= 300 {
		if decodeErr == nil && env.Msg != "" {
			return nil, fmt.Errorf("kie: %s (%d)", env.Msg, resp.StatusCode)
		}
		return nil, fmt.Errorf("kie: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("kie: decode response: %w", decodeErr)
	}
	return &env, nil
}

func envelopeMessage(env *envelope) string {
	msg := strings.TrimSpace(env.Msg)
	if msg == "" {
		msg = "provider rejected request"
	}
	return fmt.Sprintf("%s (code %d)", msg, env.Code)
}

var _ domain.Provider = (*Client)(nil)
