package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultFetchTimeout = 5 * time.Second

// FetchError reports a failed bridge request. StatusCode is zero when the
// request never got a response.
type FetchError struct {
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("bridge returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("bridge request failed: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PublicMessage returns the error string exposed on the API surface.
func (e *FetchError) PublicMessage() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("Bridge HTTP error: %d", e.StatusCode)
	}
	return fmt.Sprintf("Network error: %v", e.Err)
}

// Fetcher pulls one raw status line from the serial bridge over HTTP.
type Fetcher struct {
	url    string
	apiKey string
	client *http.Client
}

// NewFetcher builds a fetcher for the given bridge URL. An empty apiKey
// disables the credential header. A zero timeout falls back to the default.
func NewFetcher(url, apiKey string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Fetcher{
		url:    url,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch performs one bridge request and returns the trimmed response body.
// Non-2xx responses and transport failures come back as *FetchError.
func (f *Fetcher) Fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return "", &FetchError{Err: err}
	}
	if f.apiKey != "" {
		req.Header.Set("X-API-Key", f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", &FetchError{Err: err}
	}
	return strings.TrimSpace(string(body)), nil
}
