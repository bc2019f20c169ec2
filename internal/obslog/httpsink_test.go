package obslog

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPSink_SucceedsOnFirstAttempt(t *testing.T) {
	var calls int32
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL, "secret-key")
	err := sink.Send(map[string]any{"event": "ping"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, calls)
	assert.Equal(t, "Bearer secret-key", gotAuth)
}

func TestHTTPSink_RetriesTransientFailureThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL, "")
	err := sink.Send(map[string]any{"event": "retry"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, calls)
}

func TestHTTPSink_NonRetryableStatusFailsFast(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL, "")
	err := sink.Send(map[string]any{"event": "bad"})
	require.Error(t, err)
	assert.EqualValues(t, 1, calls)
}

func TestHTTPSink_ExhaustsRetriesOnPersistentFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	sink := NewHTTPSink(srv.URL, "")
	err := sink.Send(map[string]any{"event": "down"})
	require.Error(t, err)
	assert.EqualValues(t, sinkMaxAttempts, calls)
}
