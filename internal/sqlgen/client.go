package sqlgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-arth-chatbot/internal/observability"
)

var (
	// ErrUnavailable covers transport failures, timeouts and non-2xx replies.
	ErrUnavailable = errors.New("sql generator unavailable")
	// ErrEmptyResult is returned when the generator replied without SQL.
	ErrEmptyResult = errors.New("sql generator returned no query")
	// ErrBadResponse is returned when the reply body cannot be decoded.
	ErrBadResponse = errors.New("sql generator returned a malformed response")
)

const maxResponseBytes = 1 << 20

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client calls the generator's /generate-sql and /health endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient validates cfg and returns a ready client.
func NewClient(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("sqlgen: base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{baseURL: base, http: &http.Client{Timeout: timeout}}, nil
}

// response accepts both snake_case and camelCase SQL fields.
type response struct {
	Result
	SQLCamel string `json:"sqlQuery"`
}

// Generate sends req and returns the generator's reply with markdown fences
// removed from the SQL.
func (c *Client) Generate(ctx context.Context, req Request) (Result, error) {
	tr := otel.Tracer("sqlgen/Client")
	ctx, span := tr.Start(ctx, "Generate",
		trace.WithAttributes(
			attribute.String("sqlgen.dialect", string(req.Dialect)),
			attribute.StringSlice("sqlgen.tables", req.TableNames),
		),
	)
	defer span.End()

	start := time.Now()
	res, err := c.generate(ctx, req)
	observability.ObserveSQLGen("generate", outcome(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	span.SetAttributes(attribute.Float64("sqlgen.confidence", res.Confidence))
	return res, nil
}

func (c *Client) generate(ctx context.Context, req Request) (Result, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return Result{}, fmt.Errorf("sqlgen: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate-sql", bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("sqlgen: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	res := out.Result
	if res.SQL == "" {
		res.SQL = out.SQLCamel
	}
	res.SQL = StripMarkdown(res.SQL)
	if res.SQL == "" {
		return Result{}, ErrEmptyResult
	}
	return res, nil
}

// Healthy reports whether the generator is up and has a model loaded. Any
// failure reads as unhealthy.
func (c *Client) Healthy(ctx context.Context) bool {
	start := time.Now()
	ok := c.healthy(ctx)
	o := "ok"
	if !ok {
		o = "unavailable"
	}
	observability.ObserveSQLGen("health", o, time.Since(start))
	return ok
}

func (c *Client) healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}
	var body struct {
		LLMAvailable *bool `json:"llm_available"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return false
	}
	// A generator that does not report model status is taken at its word.
	return body.LLMAvailable == nil || *body.LLMAvailable
}

// StripMarkdown removes a surrounding ```sql fence and a trailing semicolon.
func StripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.Contains(s[:nl], " ") {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(strings.TrimPrefix(s, "sql"), "SQL")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, ";"))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrEmptyResult):
		return "empty"
	case errors.Is(err, ErrBadResponse):
		return "bad_response"
	default:
		return "unavailable"
	}
}
