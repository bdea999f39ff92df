package rendezvous

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient implements Client against an external rendezvous store
// reachable over plain HTTP: PUT /{key} to publish a value, GET /{key}
// to read one (404 treated as "not yet published"). This is the
// production shape spec.md §1 describes ("out-of-band shared
// key-value rendezvous"); MemClient in memkv.go is the in-process
// stand-in this repository's own tests use instead.
type HTTPClient struct {
	BaseURL    string
	HTTPClient *http.Client
	MaxPoll    time.Duration
}

// NewHTTPClient builds an HTTPClient against baseURL (no trailing
// slash), e.g. "http://rendezvous.internal:8080".
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		MaxPoll:    2 * time.Second,
	}
}

func (c *HTTPClient) url(key Key) string {
	return fmt.Sprintf("%s/%s", c.BaseURL, hex.EncodeToString(key.Bytes()))
}

// Put publishes value under key via an HTTP PUT.
func (c *HTTPClient) Put(ctx context.Context, key Key, value []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.url(key), bytes.NewReader(value))
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("rendezvous: PUT %s: unexpected status %s", key, resp.Status)
	}
	return nil
}

// Poll reads the value under key, retrying with backoff until it
// appears or ctx is done.
func (c *HTTPClient) Poll(ctx context.Context, key Key) ([]byte, error) {
	read := func() ([]byte, bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(key), nil)
		if err != nil {
			return nil, false, err
		}
		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, false, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			io.Copy(io.Discard, resp.Body)
			return nil, false, nil
		}
		if resp.StatusCode/100 != 2 {
			io.Copy(io.Discard, resp.Body)
			return nil, false, fmt.Errorf("rendezvous: GET %s: unexpected status %s", key, resp.Status)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, err
		}
		return body, true, nil
	}
	return BackoffPoll(ctx, read, c.MaxPoll)
}
