package transport

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
		wantErr bool
	}{
		{name: "https", baseURL: "https://api.example.com/v1", want: "https://api.example.com/v1"},
		{name: "trailing slashes", baseURL: "http://localhost:5001/v1//", want: "http://localhost:5001/v1"},
		{name: "unsupported scheme", baseURL: "ftp://example.com", wantErr: true},
		{name: "relative", baseURL: "/v1", wantErr: true},
		{name: "missing host", baseURL: "https://", wantErr: true},
		{name: "unparsable", baseURL: "http://[::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.baseURL, "key", "agent", nil)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidBaseURL)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.BaseURL())
			assert.NotNil(t, c.httpc)
		})
	}
}

func TestClient_buildURL(t *testing.T) {
	c, err := NewClient("https://api.example.com/v1/", "key", "agent", nil)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/v1/guardrails/input", c.buildURL("/guardrails/input"))
	assert.Equal(t, "https://api.example.com/v1/guardrails", c.buildURL("guardrails"))
}

func TestClient_Do(t *testing.T) {
	var (
		gotMethod string
		gotPath   string
		gotHeader http.Header
		gotBody   map[string]any
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotHeader = r.Header.Clone()
		if r.ContentLength > 0 {
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
		}
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, `{"detail":"short and stout"}`)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/v1", "secret", "test-agent/1.0", srv.Client())
	require.NoError(t, err)

	t.Run("with body", func(t *testing.T) {
		resp, err := c.Do(context.Background(), MethodPost, "/guardrails/input", map[string]string{"input": "hi"})
		require.NoError(t, err)

		assert.Equal(t, http.StatusTeapot, resp.StatusCode)
		assert.False(t, resp.OK())
		assert.JSONEq(t, `{"detail":"short and stout"}`, string(resp.Body))

		assert.Equal(t, http.MethodPost, gotMethod)
		assert.Equal(t, "/v1/guardrails/input", gotPath)
		assert.Equal(t, map[string]any{"input": "hi"}, gotBody)
		assert.Equal(t, "Bearer secret", gotHeader.Get("Authorization"))
		assert.Equal(t, "test-agent/1.0", gotHeader.Get("User-Agent"))
		assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
		assert.Equal(t, "application/json", gotHeader.Get("Accept"))
		assert.Equal(t, resp.RequestID, gotHeader.Get(HeaderRequestID))
		_, err = uuid.Parse(resp.RequestID)
		assert.NoError(t, err)
	})

	t.Run("without body", func(t *testing.T) {
		gotBody = nil
		resp, err := c.Do(context.Background(), MethodGet, "guardrails/health", nil)
		require.NoError(t, err)

		assert.Equal(t, http.MethodGet, gotMethod)
		assert.Equal(t, "/v1/guardrails/health", gotPath)
		assert.Empty(t, gotHeader.Get("Content-Type"))
		assert.Nil(t, gotBody)
		assert.NotEmpty(t, resp.RequestID)
	})

	t.Run("unencodable body", func(t *testing.T) {
		_, err := c.Do(context.Background(), MethodPost, "/guardrails", map[string]any{"bad": make(chan int)})
		assert.ErrorContains(t, err, "failed to encode request body")
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.Do(ctx, MethodGet, "/guardrails/health", nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestClient_Fetch(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path == "/missing.png" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("png-bytes"))
	}))
	defer srv.Close()

	c, err := NewClient("https://api.example.com/v1", "secret", "agent", srv.Client())
	require.NoError(t, err)

	b, err := c.Fetch(context.Background(), srv.URL+"/image.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), b)
	assert.Empty(t, gotAuth)

	_, err = c.Fetch(context.Background(), srv.URL+"/missing.png")
	assert.ErrorContains(t, err, "returned status 404")

	assert.Equal(t, int64(MaxFetchSize), c.maxFetchSize)

	// "png-bytes" is 9 bytes.
	c.maxFetchSize = 9
	b, err = c.Fetch(context.Background(), srv.URL+"/image.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), b)

	c.maxFetchSize = 8
	_, err = c.Fetch(context.Background(), srv.URL+"/image.png")
	assert.ErrorIs(t, err, ErrFetchTooLarge)
}

func TestResponse_OK(t *testing.T) {
	for status, ok := range map[int]bool{
		http.StatusOK:                  true,
		http.StatusNoContent:           true,
		http.StatusMultipleChoices:     false,
		http.StatusUnauthorized:        false,
		http.StatusTooManyRequests:     false,
		http.StatusInternalServerError: false,
		199:                            false,
	} {
		assert.Equal(t, ok, (&Response{StatusCode: status}).OK(), status)
	}
}
