// Package netx holds small HTTP helpers shared by the agent's catalog client
// and its media sources.
package netx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrStatus is wrapped by errors returned for non-2xx responses.
var ErrStatus = errors.New("unexpected http status")

// StatusError carries the status code of a failed request.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: %d", ErrStatus, e.Code)
	}
	return fmt.Sprintf("%s: %d; body: %s", ErrStatus, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrStatus }

// maxErrBody caps how much of an error response body is kept.
const maxErrBody = 512

// Get issues a GET and returns the open response body when the status is 2xx.
// The caller closes the body. contentLength is -1 when unknown.
func Get(ctx context.Context, client *http.Client, url string, header http.Header) (body io.ReadCloser, contentLength int64, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("new request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return nil, 0, &StatusError{Code: resp.StatusCode, Body: string(b)}
	}

	return resp.Body, resp.ContentLength, nil
}
