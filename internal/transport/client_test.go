package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, srv *httptest.Server, token *string, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithRetryBackoff(0)}, opts...)
	c, err := New(srv.URL, TokenFunc(func() string {
		if token == nil {
			return ""
		}
		return *token
	}), opts...)
	require.NoError(t, err)
	return c
}

func TestNewRejectsBadBaseURL(t *testing.T) {
	_, err := New("ftp://example.com", nil)
	assert.Error(t, err)
	_, err = New("://nope", nil)
	assert.Error(t, err)
}

func TestDoAttachesTokenAndDecodes(t *testing.T) {
	var gotAuth, gotRequestID, gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get(HeaderRequestID)
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"w1","name":"Cash"}`))
	}))
	defer srv.Close()

	token := "tok-1"
	c := newTestClient(t, srv, &token)

	var out struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	err := c.Get(context.Background(), "/wallet/acc-1", url.Values{"page": {"2"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", gotAuth)
	assert.NotEmpty(t, gotRequestID)
	assert.Equal(t, "/wallet/acc-1", gotPath)
	assert.Equal(t, "page=2", gotQuery)
	assert.Equal(t, "w1", out.ID)
}

func TestDoWithoutTokenOmitsHeader(t *testing.T) {
	var hadAuth bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hadAuth = r.Header["Authorization"]
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	require.NoError(t, c.Post(context.Background(), "/auth/signin", map[string]string{"username": "a"}, nil))
	assert.False(t, hadAuth)
}

func TestDoReadsTokenPerCall(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	token := ""
	c := newTestClient(t, srv, &token)
	ctx := context.Background()
	require.NoError(t, c.Get(ctx, "/a", nil, nil))
	token = "later"
	require.NoError(t, c.Get(ctx, "/a", nil, nil))
	assert.Equal(t, []string{"", "Bearer later"}, seen)
}

func TestServerErrorMessage(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
	}{
		{"string message", "application/json", `{"message":"Wallet not found"}`, "Wallet not found"},
		{"array message", "application/json", `{"message":["name is required","amount must be positive"]}`, "name is required; amount must be positive"},
		{"error field", "application/json", `{"error":"bad"}`, "bad"},
		{"plain text", "text/plain; charset=utf-8", "nope\n", "nope"},
		{"empty", "application/json", ``, ""},
		{"not json", "application/json", `<html>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := newTestClient(t, srv, nil)
			err := c.Post(context.Background(), "/label/acc", map[string]string{}, nil)
			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, StatusCode(err))
			assert.Equal(t, tt.want, Message(err))
			assert.False(t, IsNetwork(err))
		})
	}
}

func TestReadsRetryOnServerFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]int{"n": 1})
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil, WithReadRetries(2))
	var out map[string]int
	require.NoError(t, c.Get(context.Background(), "/x", nil, &out))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 1, out["n"])
}

func TestReadsGiveUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil, WithReadRetries(1))
	err := c.Get(context.Background(), "/x", nil, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, StatusCode(err))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil, WithReadRetries(3))
	err := c.Get(context.Background(), "/x", nil, nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWritesAreNeverRetried(t *testing.T) {
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(http.StatusInternalServerError)
			}))
			defer srv.Close()

			c := newTestClient(t, srv, nil, WithReadRetries(3))
			err := c.Do(context.Background(), method, "/x", nil, map[string]string{"a": "b"}, nil)
			require.Error(t, err)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c, err := New(base, nil, WithReadRetries(0))
	require.NoError(t, err)
	err = c.Get(context.Background(), "/x", nil, nil)
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
	assert.Equal(t, 0, StatusCode(err))
}

func TestTimeoutIsNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil, WithTimeout(50*time.Millisecond), WithReadRetries(0))
	err := c.Get(context.Background(), "/slow", nil, nil)
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
}

func TestUnauthorizedHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"Unauthorized"}`)
	}))
	defer srv.Close()

	t.Run("fires when a token was sent", func(t *testing.T) {
		var fired int
		token := "expired"
		c := newTestClient(t, srv, &token, WithUnauthorizedHandler(func(_ context.Context, e *Error) {
			fired++
			assert.Equal(t, http.StatusUnauthorized, e.StatusCode)
		}))
		err := c.Get(context.Background(), "/wallet/acc", nil, nil)
		require.Error(t, err)
		assert.True(t, IsUnauthorized(err))
		assert.Equal(t, 1, fired)
	})

	t.Run("silent for anonymous calls", func(t *testing.T) {
		var fired int
		c := newTestClient(t, srv, nil, WithUnauthorizedHandler(func(context.Context, *Error) { fired++ }))
		err := c.Post(context.Background(), "/auth/signin", map[string]string{}, nil)
		require.Error(t, err)
		assert.Equal(t, "Unauthorized", Message(err))
		assert.Equal(t, 0, fired)
	})
}

func TestStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = io.WriteString(w, "%PDF-1.4")
	}))
	defer srv.Close()

	c := newTestClient(t, srv, nil)
	rc, ct, err := c.Stream(context.Background(), "/project/acc/p1/pdf", url.Values{"type": {"invoice"}})
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", ct)
	assert.Equal(t, "%PDF-1.4", string(data))
}

func TestBaseURLWithPathPrefix(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/api/", nil)
	require.NoError(t, err)
	require.NoError(t, c.Get(context.Background(), "/goal/acc", nil, nil))
	assert.Equal(t, "/api/goal/acc", gotPath)
}
