package httpclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alejandrodnm/polysignal/internal/adapters/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastClient(headers map[string]string) *httpclient.Client {
	return httpclient.New(httpclient.Options{
		Timeout:       2 * time.Second,
		MaxRetries:    2,
		BaseRetryWait: time.Millisecond,
		Headers:       headers,
	})
}

func TestGetJSON_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	err := fastClient(nil).GetJSON(context.Background(), srv.URL, &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetJSON_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("bad key"))
	}))
	defer srv.Close()

	var out map[string]any
	err := fastClient(nil).GetJSON(context.Background(), srv.URL, &out)
	require.Error(t, err)

	var se *httpclient.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.Code)
	assert.Equal(t, "bad key", se.Body)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetJSON_ExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var out map[string]any
	err := fastClient(nil).GetJSON(context.Background(), srv.URL, &out)
	assert.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "1 intento + 2 retries")
}

func TestPostJSON_SendsBodyAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		json.NewEncoder(w).Encode(map[string]string{"echo": in["msg"]})
	}))
	defer srv.Close()

	var out map[string]string
	err := fastClient(map[string]string{"Authorization": "Bearer k"}).
		PostJSON(context.Background(), srv.URL, map[string]string{"msg": "hi"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "hi", out["echo"])
}

func TestGetJSON_TimeoutIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := httpclient.New(httpclient.Options{
		Timeout:       20 * time.Millisecond,
		MaxRetries:    -1,
		BaseRetryWait: time.Millisecond,
	})
	var out map[string]any
	assert.Error(t, c.GetJSON(context.Background(), srv.URL, &out))
}

func TestGetJSON_CallTimeoutCoversRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(30 * time.Millisecond)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := httpclient.New(httpclient.Options{
		Timeout:       time.Second,
		CallTimeout:   50 * time.Millisecond,
		MaxRetries:    10,
		BaseRetryWait: 5 * time.Millisecond,
	})

	start := time.Now()
	var out map[string]any
	err := c.GetJSON(context.Background(), srv.URL, &out)

	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.LessOrEqual(t, calls.Load(), int32(3), "el deadline corta los retries")
}
