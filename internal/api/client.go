// Package api holds the JSON clients for every HTTP backend the bot talks
// to: the ripple platform API (v1), the bancho presence/match API (v2), the
// lets score-PP service, the cheesegull mirror, the osu! v1 API, beatconnect
// and the misirlou tournament API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultUserAgent = "fokabot"

// ErrNotFound marks a well-formed backend reply that named no such entity.
var ErrNotFound = errors.New("api: not found")

// ResponseError is a legal backend reply with a non-200 embedded code.
type ResponseError struct {
	Code    int
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("api: response code %d: %s", e.Code, e.Message)
}

// UserMessage makes the backend's own message visible to the invoking chat
// user through the command runtime.
func (e *ResponseError) UserMessage() string {
	if e.Message == "" {
		return fmt.Sprintf("The server replied with an error (code %d).", e.Code)
	}
	return e.Message
}

// IsCode reports whether err is a ResponseError carrying the given code.
func IsCode(err error, code int) bool {
	var re *ResponseError
	return errors.As(err, &re) && re.Code == code
}

// FatalError is a request that never produced a valid JSON reply: network
// failure, timeout, server-side garbage.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return "api: fatal: " + e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// client is the shared request plumbing. Each backend wraps one with its own
// base path, auth header and status-checking policy.
type client struct {
	base       string
	token      string
	authHeader string
	userAgent  string
	// checkCode enables the ripple envelope convention: every body carries a
	// "code" field and anything but 200 is an error.
	checkCode bool
	http      *http.Client
}

func newClient(base, token, authHeader string, timeout time.Duration) *client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &client{
		base:       strings.TrimRight(base, "/"),
		token:      token,
		authHeader: authHeader,
		userAgent:  defaultUserAgent,
		checkCode:  true,
		http:       &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *client) get(ctx context.Context, handler string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, handler, params, nil, out)
}

func (c *client) post(ctx context.Context, handler string, body, out any) error {
	return c.do(ctx, http.MethodPost, handler, nil, body, out)
}

func (c *client) delete(ctx context.Context, handler string, body, out any) error {
	return c.do(ctx, http.MethodDelete, handler, nil, body, out)
}

func (c *client) do(ctx context.Context, method, handler string, params url.Values, body, out any) error {
	u := c.base + "/" + strings.TrimLeft(handler, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &FatalError{Err: err}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return &FatalError{Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" && c.authHeader != "" {
		req.Header.Set(c.authHeader, c.token)
	}

	slog.Debug("api request", "method", method, "url", u)
	resp, err := c.http.Do(req)
	if err != nil {
		return &FatalError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &FatalError{Err: err}
	}

	if c.checkCode {
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return &FatalError{Err: fmt.Errorf("decoding %s: %w", u, err)}
		}
		if env.Code != 200 {
			return &ResponseError{Code: env.Code, Message: env.Message}
		}
	} else if resp.StatusCode != http.StatusOK {
		return &ResponseError{Code: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &FatalError{Err: fmt.Errorf("decoding %s: %w", u, err)}
		}
	}
	return nil
}
