package webclient

import (
	"context"
	"net/http"
	"time"
)

// WebClient is the minimal contract for fetching pages. The content collector
// and the classifier's header probe depend on this interface so tests can
// count or fake network calls.
type WebClient interface {
	Do(ctx context.Context, req *Request) (*Response, error)

	Close() error
}

type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

type Response struct {
	Request    *Request
	Headers    http.Header
	Body       []byte
	StatusCode int
	FetchedAt  time.Time
}

// Get is a convenience helper for simple GET requests against any WebClient.
func Get(ctx context.Context, wc WebClient, url string) (*Response, error) {
	return wc.Do(ctx, &Request{Method: http.MethodGet, URL: url})
}
