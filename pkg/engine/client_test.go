package engine

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bluelx/janus-console/pkg/apperr"
	"github.com/bluelx/janus-console/pkg/config"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.RemoteConfig{URL: srv.URL, Token: "test-token"}, t.TempDir())
}

func TestInvokeSuccess(t *testing.T) {
	var gotAuth, gotContentType string
	var gotEnvelope Envelope

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotEnvelope))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"code":    CodeSuccess,
			"message": "ok",
			"content": map[string]any{"userId": 1755166221, "userName": "admin007"},
		})
	}))

	resp, err := client.Invoke(context.Background(), MethodUserInfo, nil)
	require.NoError(t, err)
	require.True(t, resp.OK())

	assert.Equal(t, "test-token", gotAuth)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, MethodUserInfo+methodSuffix, gotEnvelope.Method)

	var content struct {
		UserName string `json:"userName"`
	}
	require.NoError(t, resp.DecodeContent(&content))
	assert.Equal(t, "admin007", content.UserName)
}

func TestInvokeRemoteFailurePassesThrough(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"code":    "E0000000001",
			"message": "not logged in",
		})
	}))

	resp, err := client.Invoke(context.Background(), MethodUserInfo, nil)
	require.NoError(t, err, "remote-reported failures are data, not errors")
	assert.False(t, resp.OK())
	assert.Equal(t, "E0000000001", resp.Code)
	assert.Equal(t, "not logged in", resp.Message)
}

func TestInvokeConnectionRefused(t *testing.T) {
	// Point at a server that is already closed.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := New(config.RemoteConfig{URL: url, Token: "tok"}, t.TempDir())

	resp, err := client.Invoke(context.Background(), MethodUserInfo, nil)
	require.NotNil(t, resp)
	assert.Equal(t, CodeRequestFailed, resp.Code)
	assert.Equal(t, "request failed", resp.Message)
	assert.True(t, apperr.IsCode(err, apperr.CodeTransport))
}

func TestInvokeNonJSONResponse(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>upstream unavailable</html>"))
	}))

	resp, err := client.Invoke(context.Background(), MethodUserInfo, nil)
	require.NotNil(t, resp)
	assert.Equal(t, CodeRequestFailed, resp.Code)
	assert.Contains(t, resp.Raw, "upstream unavailable")
	assert.True(t, apperr.IsCode(err, apperr.CodeTransport))
}

func TestInvokeMalformedJSON(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code": `))
	}))

	resp, err := client.Invoke(context.Background(), MethodUserInfo, nil)
	assert.Equal(t, CodeRequestFailed, resp.Code)
	assert.True(t, apperr.IsCode(err, apperr.CodeDecode))
}

func TestInvokeMissingCode(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message": "no code here"}`))
	}))

	resp, err := client.Invoke(context.Background(), MethodUserInfo, nil)
	assert.Equal(t, CodeRequestFailed, resp.Code)
	assert.True(t, apperr.IsCode(err, apperr.CodeDecode))
}

func TestIsJSONContentType(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"application/json", true},
		{"application/json; charset=utf-8", true},
		{"application/problem+json", true},
		{"text/html", false},
		{"text/plain; charset=utf-8", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isJSONContentType(tt.contentType), "content type %q", tt.contentType)
	}
}

func TestPing(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"code": CodeSuccess, "message": "ok"})
	}))
	assert.NoError(t, client.Ping(context.Background()))

	failing := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"code": "E0000000001", "message": "not logged in"})
	}))
	err := failing.Ping(context.Background())
	assert.True(t, apperr.IsCode(err, apperr.CodeRemote))
}
