package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"Crackgo/internal/httpclient"
	"Crackgo/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDispatcher(t *testing.T, timeout time.Duration) *Dispatcher {
	t.Helper()
	client, err := httpclient.NewClient(logger.Nop(), httpclient.ClientOptions{
		Timeout:            timeout,
		InsecureSkipVerify: true,
	})
	require.NoError(t, err)
	return New(client, logger.Nop())
}

func TestDispatcher_Send(t *testing.T) {
	const document = "mutation {\n    alias1: login(user: \"a\\\"b\") { token }\n}"

	var gotQuery, gotMethod, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Query string `json:"query"`
		}
		_ = json.Unmarshal(body, &req)
		gotQuery = req.Query
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"alias1":{"token":"t1"}},"errors":[{"message":"boom"}]}`))
	}))
	defer server.Close()

	resp, err := newDispatcher(t, time.Second).Send(context.Background(), server.URL, document)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, document, gotQuery)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.IsObject())
	assert.Equal(t, "t1", resp.Data().Get("alias1.token").String())
	assert.Equal(t, "boom", resp.Errors().Get("0.message").String())
}

func TestDispatcher_SendToleratesShapes(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantData   bool
		wantErrors bool
	}{
		{name: "Neither key", status: http.StatusOK, body: `{}`, wantData: false, wantErrors: false},
		{name: "Errors only with 400", status: http.StatusBadRequest, body: `{"errors":[{"message":"bad"}]}`, wantData: false, wantErrors: true},
		{name: "Null data", status: http.StatusOK, body: `{"data":null,"errors":[]}`, wantData: true, wantErrors: true},
		{name: "Array body", status: http.StatusOK, body: `[{"data":{}}]`, wantData: false, wantErrors: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			resp, err := newDispatcher(t, time.Second).Send(context.Background(), server.URL, "query {\n}")
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.wantData, resp.Data().Exists())
			assert.Equal(t, tt.wantErrors, resp.Errors().Exists())
		})
	}
}

func TestDispatcher_SendTransportErrors(t *testing.T) {
	t.Run("Non-JSON body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>Forbidden</html>"))
		}))
		defer server.Close()

		_, err := newDispatcher(t, time.Second).Send(context.Background(), server.URL, "query {\n}")
		var te *TransportError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, http.StatusOK, te.StatusCode)
		assert.Contains(t, err.Error(), "not JSON")
	})

	t.Run("Connection refused", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := ln.Addr().String()
		require.NoError(t, ln.Close())

		_, err = newDispatcher(t, time.Second).Send(context.Background(), "http://"+addr+"/graphql", "query {\n}")
		var te *TransportError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, 0, te.StatusCode)
		assert.NotNil(t, errors.Unwrap(err))
	})

	t.Run("Timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{}`))
		}))
		defer server.Close()

		_, err := newDispatcher(t, 20*time.Millisecond).Send(context.Background(), server.URL, "query {\n}")
		var te *TransportError
		assert.True(t, errors.As(err, &te))
	})
}

func TestEncodeRequest(t *testing.T) {
	payload, err := EncodeRequest("query {\n    alias1: a(x: \"q\\\"\")\n}")
	require.NoError(t, err)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, map[string]string{"query": "query {\n    alias1: a(x: \"q\\\"\")\n}"}, decoded)
}
