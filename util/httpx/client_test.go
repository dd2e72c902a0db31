package httpx

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_RoundTrips(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("X-Token")))
	}))
	defer srv.Close()

	cli := Client(ClientOptions().WithHeader("X-Token", "42"))
	req, err := NewGetRequest(srv.URL)
	require.NoError(t, err)
	err = Do(cli, req, func(resp *http.Response) error {
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "42", BodyString(resp))
		return nil
	})
	assert.NoError(t, err)
}

func TestClient_RetryIf(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cli := Client(ClientOptions().
		WithRetryIf(func(resp *http.Response, err error) bool {
			return err == nil && resp != nil && resp.StatusCode == http.StatusServiceUnavailable
		}).
		WithRetryBackoff(func(attempt int, _ *http.Response) (time.Duration, bool) {
			return time.Millisecond, attempt < 5
		}))
	req, err := NewGetRequest(srv.URL)
	require.NoError(t, err)
	err = Do(cli, req, func(resp *http.Response) error {
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		return nil
	})
	assert.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
}

func TestRoundTripperChain(t *testing.T) {
	var got *http.Request
	rt := RoundTripperChain{
		Do: func(req *http.Request) error {
			req.Header.Set("X-Chained", "yes")
			return nil
		},
		Next: RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			got = req
			return &http.Response{StatusCode: http.StatusNoContent}, nil
		}),
	}

	req, err := NewGetRequest("http://127.0.0.1/areyouok")
	require.NoError(t, err)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.NotNil(t, got)
	assert.Equal(t, "yes", got.Header.Get("X-Chained"))
}
