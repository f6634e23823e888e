// Package dispatch sends batch documents to the target endpoint.
package dispatch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"Crackgo/internal/httpclient"
	"Crackgo/internal/logger"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 64 << 20

// TransportError is returned for any failure below the GraphQL layer: connection,
// timeout, DNS, unreadable body or a body that is not JSON. It is always fatal for a run.
type TransportError struct {
	Endpoint   string
	StatusCode int // 0 when no response was received.
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("transport error from %s (status: %d): %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("transport error from %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Response is a parsed JSON response body.
type Response struct {
	StatusCode int
	Body       []byte
}

// Data returns the top-level "data" value. Exists() is false when the key is absent.
func (r *Response) Data() gjson.Result {
	return gjson.GetBytes(r.Body, "data")
}

// Errors returns the top-level "errors" value. Exists() is false when the key is absent.
func (r *Response) Errors() gjson.Result {
	return gjson.GetBytes(r.Body, "errors")
}

// IsObject reports whether the body is a JSON object, as GraphQL responses must be.
func (r *Response) IsObject() bool {
	return gjson.ParseBytes(r.Body).IsObject()
}

// Dispatcher posts batch documents through the shared HTTP client.
type Dispatcher struct {
	client *httpclient.Client
	log    *logger.Logger
}

// New creates a Dispatcher.
func New(client *httpclient.Client, log *logger.Logger) *Dispatcher {
	return &Dispatcher{client: client, log: log}
}

// Send issues a single POST of {"query": document} to endpoint and returns the parsed JSON body.
// There is no retry.
func (d *Dispatcher) Send(ctx context.Context, endpoint, document string) (*Response, error) {
	payload, err := EncodeRequest(document)
	if err != nil {
		return nil, err
	}
	d.log.Trace("Batch document:\n%s", document)

	resp, err := d.client.Post(ctx, endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response body: %w", err)}
	}
	if !gjson.ValidBytes(body) {
		return nil, &TransportError{Endpoint: endpoint, StatusCode: resp.StatusCode, Err: fmt.Errorf("response body is not JSON (%d bytes)", len(body))}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		d.log.Warn("Target answered with HTTP %d; keeping the JSON body.", resp.StatusCode)
	}
	d.log.Trace("Response body (%d bytes): %s", len(body), truncate(body, 2048))

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}

// EncodeRequest builds the GraphQL-over-HTTP request body for document.
func EncodeRequest(document string) ([]byte, error) {
	payload, err := sjson.SetBytes([]byte(`{}`), "query", document)
	if err != nil {
		return nil, fmt.Errorf("encoding request body: %w", err)
	}
	return payload, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
