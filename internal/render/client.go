// Package render talks to the document automation webhook that turns a flat
// payload into a PDF.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aldoetobex/pi-case-backend/pkg/sanitize"
)

// Kind classifies a render failure.
type Kind string

const (
	KindTransport Kind = "transport" // network error or non-2xx
	KindInactive  Kind = "inactive"  // the automation workflow is switched off
	KindDecode    Kind = "decode"    // 2xx but no usable document in the body
)

// Error is returned for every failed render.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Document is a rendered PDF.
type Document struct {
	Data     []byte
	Base64   string
	Filename string // empty when the endpoint did not name the file
	MIME     string
}

// Client posts payloads to the render webhook.
type Client struct {
	url    string
	client *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

func NewClient(url string, timeout time.Duration, opts ...ClientOption) *Client {
	c := &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Render submits body as JSON and normalizes whatever comes back into a
// Document.
func (c *Client) Render(ctx context.Context, body any) (Document, error) {
	if c.url == "" {
		return Document{}, &Error{Kind: KindTransport, Message: "render endpoint is not configured"}
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return Document{}, &Error{Kind: KindTransport, Message: "encode payload", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(raw))
	if err != nil {
		return Document{}, &Error{Kind: KindTransport, Message: "build render request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, application/pdf, */*")

	res, err := c.client.Do(req)
	if err != nil {
		return Document{}, &Error{Kind: KindTransport, Message: "render endpoint unreachable", Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return Document{}, &Error{Kind: KindTransport, Status: res.StatusCode, Message: "read render response", Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return Document{}, statusError(res.StatusCode, data)
	}

	doc, err := normalize(ctx, c.client, res.Header, data)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// statusError builds the error for a non-2xx response. Automation tools
// answer 404 with "... is not registered" when the workflow is inactive.
func statusError(status int, body []byte) *Error {
	var eb struct {
		Message string `json:"message"`
		Code    any    `json:"code"`
	}
	_ = json.Unmarshal(body, &eb)

	msg := strings.TrimSpace(eb.Message)
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	msg = sanitize.Summary(msg, 300)

	if strings.Contains(strings.ToLower(msg), "not registered") {
		return &Error{
			Kind:    KindInactive,
			Status:  status,
			Message: "document workflow is not active; turn it on in the automation tool and retry",
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &Error{
		Kind:    KindTransport,
		Status:  status,
		Message: fmt.Sprintf("render endpoint returned %d: %s", status, msg),
	}
}
