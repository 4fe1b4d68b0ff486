// Package sheets forwards records to the spreadsheet automation endpoint.
package sheets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vestige-studio/payments-bridge/internal/models"
	"github.com/vestige-studio/payments-bridge/internal/records"
)

const (
	FormatForm = "form"
	FormatJSON = "json"

	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 64 << 10
)

// Result is the endpoint's answer to one forward.
type Result struct {
	Status int
	Body   string
}

// ForwardError reports a forward that did not reach the spreadsheet.
type ForwardError struct {
	Status int // 0 when no response was received
	Body   string
	Err    error
}

func (e *ForwardError) Error() string {
	if e.Status == 0 {
		return "forward record: " + e.Err.Error()
	}
	return fmt.Sprintf("forward record: status %d: %v", e.Status, e.Err)
}

func (e *ForwardError) Unwrap() error { return e.Err }

// ErrRejected marks a response the endpoint itself flagged as failed.
var ErrRejected = errors.New("endpoint rejected record")

// Options configures a Client.
type Options struct {
	URL     string
	Format  string
	Timeout time.Duration
}

// Client posts records to a fixed URL. It never retries.
type Client struct {
	url    string
	format string
	http   *http.Client
	logger *zap.Logger
}

// NewClient creates a spreadsheet client.
func NewClient(opts Options, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Format == "" {
		opts.Format = FormatForm
	}
	return &Client{
		url:    opts.URL,
		format: opts.Format,
		http:   &http.Client{Timeout: opts.Timeout},
		logger: logger,
	}
}

// Forward sends rec in a single POST and returns the endpoint's raw answer.
func (c *Client) Forward(ctx context.Context, rec models.Record) (Result, error) {
	if err := records.Validate(rec); err != nil {
		return Result{}, &ForwardError{Err: err}
	}

	body, contentType, err := c.encode(rec)
	if err != nil {
		return Result{}, &ForwardError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return Result{}, &ForwardError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, &ForwardError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Result{}, &ForwardError{Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	res := Result{Status: resp.StatusCode, Body: string(raw)}

	if resp.StatusCode >= http.StatusBadRequest {
		return res, &ForwardError{Status: res.Status, Body: res.Body, Err: fmt.Errorf("%w: %s", ErrRejected, resp.Status)}
	}
	if reason, failed := scriptError(raw); failed {
		return res, &ForwardError{Status: res.Status, Body: res.Body, Err: fmt.Errorf("%w: %s", ErrRejected, reason)}
	}

	c.logger.Debug("record forwarded",
		zap.String("type", rec[models.KeyType]),
		zap.Int("status", res.Status),
	)
	return res, nil
}

func (c *Client) encode(rec models.Record) ([]byte, string, error) {
	switch c.format {
	case FormatJSON:
		b, err := json.Marshal(rec)
		if err != nil {
			return nil, "", fmt.Errorf("marshal record: %w", err)
		}
		return b, "application/json", nil
	case FormatForm:
		form := url.Values{}
		for k, v := range rec {
			form.Set(k, v)
		}
		return []byte(form.Encode()), "application/x-www-form-urlencoded", nil
	default:
		return nil, "", fmt.Errorf("unknown format %q", c.format)
	}
}

// scriptError detects the JSON error bodies Apps Script returns with a 200.
func scriptError(body []byte) (string, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return "", false
	}
	var reply struct {
		Result string `json:"result"`
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(trimmed, &reply); err != nil {
		return "", false
	}
	if strings.EqualFold(reply.Result, "error") || strings.EqualFold(reply.Status, "error") {
		if reply.Error == "" {
			return "error body", true
		}
		return reply.Error, true
	}
	return "", false
}
