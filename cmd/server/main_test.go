package main

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownCancelsInFlightRequests(t *testing.T) {
	started := make(chan struct{})
	cancelled := make(chan struct{})
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		select {
		case <-r.Context().Done():
			close(cancelled)
			w.WriteHeader(http.StatusServiceUnavailable)
		case <-time.After(30 * time.Second):
			w.WriteHeader(http.StatusOK)
		}
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv, cancelRuns := newServer(ln.Addr().String(), handler)
	go srv.Serve(ln)

	status := make(chan int, 1)
	go func() {
		resp, err := http.Post("http://"+ln.Addr().String()+"/runs", "application/json", nil)
		if err != nil {
			status <- 0
			return
		}
		resp.Body.Close()
		status <- resp.StatusCode
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("request never reached the handler")
	}

	begin := time.Now()
	require.NoError(t, shutdown(srv, cancelRuns, 10*time.Second))
	assert.Less(t, time.Since(begin), 5*time.Second)

	select {
	case <-cancelled:
	default:
		t.Fatal("handler context was not cancelled")
	}
	assert.Equal(t, http.StatusServiceUnavailable, <-status)
}

func TestNewServerBaseContext(t *testing.T) {
	srv, cancel := newServer(":0", http.NotFoundHandler())
	ctx := srv.BaseContext(nil)
	require.NoError(t, ctx.Err())

	cancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
