// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	RetryBaseDelay = time.Millisecond
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// scripted answers the n-th request with statuses[n], repeating the last
// status once the script runs out. It records each request body.
type scripted struct {
	mu         sync.Mutex
	statuses   []int
	retryAfter string
	bodies     []string
}

func (s *scripted) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	s.mu.Lock()
	n := len(s.bodies)
	s.bodies = append(s.bodies, string(data))
	s.mu.Unlock()

	status := s.statuses[min(n, len(s.statuses)-1)]
	if s.retryAfter != "" && status != http.StatusOK {
		w.Header().Set("Retry-After", s.retryAfter)
	}
	w.WriteHeader(status)
}

func (s *scripted) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bodies)
}

func TestDoWithRetry(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []int
		maxRetries int
		wantStatus int
		wantCalls  int
	}{
		{"immediate success", []int{200}, 3, 200, 1},
		{"429 then 503 then success", []int{429, 503, 200}, 3, 200, 3},
		{"exhausted retries return last response", []int{429}, 2, 429, 3},
		{"zero uses default retries", []int{429}, 0, 429, 4},
		{"server error is not retried", []int{500}, 3, 500, 1},
		{"bad request is not retried", []int{400, 200}, 3, 400, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &scripted{statuses: tt.statuses}
			ts := httptest.NewServer(h)
			defer ts.Close()

			req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
			require.NoError(t, err)

			resp, err := DoWithRetry(context.Background(), ts.Client(), req, tt.maxRetries, quiet)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, h.calls())
		})
	}
}

func TestDoWithRetryResendsBody(t *testing.T) {
	h := &scripted{statuses: []int{429, 200}}
	ts := httptest.NewServer(h)
	defer ts.Close()

	payload := `{"model":"m","messages":[]}`
	req, err := http.NewRequest(http.MethodPost, ts.URL, bytes.NewReader([]byte(payload)))
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, 3, quiet)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, []string{payload, payload}, h.bodies)
}

func TestDoWithRetryHonorsRetryAfter(t *testing.T) {
	old := RetryBaseDelay
	RetryBaseDelay = time.Hour
	defer func() { RetryBaseDelay = old }()

	h := &scripted{statuses: []int{503, 200}, retryAfter: "0"}
	ts := httptest.NewServer(h)
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := DoWithRetry(ctx, ts.Client(), req, 1, quiet)
	require.NoError(t, err, "Retry-After: 0 must replace the hour-long backoff")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDoWithRetryContextCancelled(t *testing.T) {
	old := RetryBaseDelay
	RetryBaseDelay = 500 * time.Millisecond
	defer func() { RetryBaseDelay = old }()

	ts := httptest.NewServer(&scripted{statuses: []int{429}})
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	_, err = DoWithRetry(ctx, ts.Client(), req, 3, quiet)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"", 0, false},
		{"3", 3 * time.Second, true},
		{"-1", 0, false},
		{strconv.Itoa(600), time.Minute, true},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := retryAfter(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
