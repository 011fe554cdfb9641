package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"addresshub/internal/address/service"
	"addresshub/internal/address/store"
	"addresshub/internal/crypto"
	jwttoken "addresshub/internal/jwt_token"
)

func newTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()

	cipher, err := crypto.New(crypto.Config{Password: "test-password", Salt: "test-salt"})
	require.NoError(t, err)

	svc := service.New(store.NewMemory(), cipher, service.WithLogger(slog.Default()))

	jwtService := jwttoken.NewJWTService("test-key", "test-issuer", "test-audience")
	token, err := jwtService.GenerateAccessToken(uuid.New(), time.Hour)
	require.NoError(t, err)

	h := New(svc, slog.Default(), jwttoken.NewJWTServiceAdapter(jwtService))
	router := chi.NewRouter()
	h.Register(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server, token
}

func doRequest(t *testing.T, server *httptest.Server, token, method, path string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, server.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestCreateAndGetAddress(t *testing.T) {
	server, token := newTestServer(t)

	resp := doRequest(t, server, token, http.MethodPost, "/addresses", map[string]any{
		"name":        "home",
		"line":        "42 Wallaby Way",
		"street":      "Wallaby Way",
		"suburb":      "Harbourside",
		"region":      "NSW",
		"postal_code": "2000",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ID   string `json:"id"`
		Line string `json:"line"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.Equal(t, "42 Wallaby Way", created.Line)

	resp = doRequest(t, server, token, http.MethodGet, "/addresses/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		PostalCode string `json:"postal_code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Equal(t, "2000", got.PostalCode)
}

func TestCreateAddressValidation(t *testing.T) {
	server, token := newTestServer(t)

	resp := doRequest(t, server, token, http.MethodPost, "/addresses", map[string]any{
		"name":        "bad",
		"postal_code": "2@00",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "validation_failed", body.Error)
}

func TestRequiresAuth(t *testing.T) {
	server, _ := newTestServer(t)

	resp := doRequest(t, server, "", http.MethodGet, "/addresses", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doRequest(t, server, "garbage-token", http.MethodGet, "/addresses", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestDeleteThenGetReturnsNotFound(t *testing.T) {
	server, token := newTestServer(t)

	resp := doRequest(t, server, token, http.MethodPost, "/addresses", map[string]any{
		"name": "home",
		"line": "1 Short St",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	resp = doRequest(t, server, token, http.MethodDelete, "/addresses/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doRequest(t, server, token, http.MethodGet, "/addresses", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Addresses []any `json:"addresses"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Empty(t, list.Addresses)
}

func TestSetDefaultFlow(t *testing.T) {
	server, token := newTestServer(t)

	resp := doRequest(t, server, token, http.MethodPost, "/addresses", map[string]any{
		"name": "home",
		"line": "1 First St",
	})
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	resp = doRequest(t, server, token, http.MethodGet, "/addresses/default", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doRequest(t, server, token, http.MethodPost, "/addresses/"+created.ID+"/default", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doRequest(t, server, token, http.MethodGet, "/addresses/default", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var def struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&def))
	require.Equal(t, created.ID, def.ID)
}

func TestSyncStatusForUnknownAddress(t *testing.T) {
	server, token := newTestServer(t)

	resp := doRequest(t, server, token, http.MethodGet, "/addresses/"+uuid.NewString()+"/sync", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
