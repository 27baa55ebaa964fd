package dispatch

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DefaultMaxBodyBytes bounds buffered request bodies.
const DefaultMaxBodyBytes int64 = 1 << 20

// bufferBody reads the whole body (at most maxBytes) and puts a fresh reader
// back on r so later stages see it untouched.
func bufferBody(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	_ = r.Body.Close()
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, ErrBodyTooLarge
		}
		return nil, fmt.Errorf("%w: %v", ErrReadBody, err)
	}

	resetBody(r, data)
	return data, nil
}

func resetBody(r *http.Request, data []byte) {
	r.Body = io.NopCloser(bytes.NewReader(data))
	r.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	r.ContentLength = int64(len(data))
}

// ReadableBody is middleware that buffers the request body so every later
// stage can read it, and re-read it through r.GetBody. Bodies larger than
// maxBytes are rejected with 413. A non-positive maxBytes selects
// DefaultMaxBodyBytes.
func ReadableBody(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := bufferBody(w, r, maxBytes); err != nil {
				writeError(w, StatusFor(err), err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
