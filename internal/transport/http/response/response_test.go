package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnisphere/auth-service/internal/domain"
	appCtx "github.com/omnisphere/auth-service/internal/pkg/context"
)

func jsonReq(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeErrorBody(t *testing.T, rr *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body), "body=%q", rr.Body.String())
	return body
}

// ---------- DecodeJSON ----------

type decodeDst struct {
	A string `json:"a"`
	B int    `json:"b"`
}

func TestDecodeJSON_SingleObject(t *testing.T) {
	var dst decodeDst
	require.NoError(t, DecodeJSON(jsonReq(t, `{"a":"x","b":1}`), &dst))
	assert.Equal(t, decodeDst{A: "x", B: 1}, dst)
}

func TestDecodeJSON_RejectedBodies(t *testing.T) {
	cases := map[string]string{
		"unknown field":   `{"a":"x","b":1,"c":"oops"}`,
		"truncated":       `{"a":"x",`,
		"multiple values": `{}{}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var dst decodeDst
			err := DecodeJSON(jsonReq(t, body), &dst)
			require.Error(t, err)
			assert.True(t, domain.Is(err, "invalid_json"), "got %v", err)
		})
	}
}

// ---------- WriteError ----------

func TestWriteError_DomainError_MapsStatusAndPayload(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req = req.WithContext(appCtx.WithRequestID(req.Context(), "req-123"))
	rr := httptest.NewRecorder()

	WriteError(rr, req, domain.ErrMissingField("email"))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))

	body := decodeErrorBody(t, rr)
	assert.Equal(t, "missing_field", body.Error.Code)
	assert.NotEmpty(t, body.Error.Message)
	assert.Equal(t, "email", body.Error.Meta["field"])
	assert.Equal(t, "req-123", body.Error.RequestID)
}

func TestWriteError_WrappedDomainError_StillMapped(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	WriteError(rr, req, domain.ErrUpstreamAuth(domain.ProviderGitHub, errors.New("503 from provider")))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestWriteError_NonDomainError_HidesDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	WriteError(rr, req, errors.New("boom: secret dsn"))

	require.Equal(t, http.StatusInternalServerError, rr.Code)

	body := decodeErrorBody(t, rr)
	assert.Equal(t, "internal_error", body.Error.Code)
	assert.Equal(t, "internal error", body.Error.Message)
	assert.Empty(t, body.Error.Meta)
	assert.NotContains(t, rr.Body.String(), "secret dsn")
}

func TestStatusFromKind_Mapping(t *testing.T) {
	cases := []struct {
		kind domain.ErrKind
		want int
	}{
		{domain.KindValidation, http.StatusBadRequest},
		{domain.KindAuth, http.StatusUnauthorized},
		{domain.KindNotFound, http.StatusNotFound},
		{domain.KindConflict, http.StatusConflict},
		{domain.KindUpstream, http.StatusBadGateway},
		{domain.KindInfrastructure, http.StatusServiceUnavailable},
		{domain.KindInternal, http.StatusInternalServerError},
		{"unknown", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFromKind(tc.kind), "kind=%q", tc.kind)
	}
}

// ---------- RequestIDFromContext ----------

func TestRequestIDFromContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	assert.Empty(t, RequestIDFromContext(req))

	req = req.WithContext(appCtx.WithRequestID(req.Context(), "rid-1"))
	assert.Equal(t, "rid-1", RequestIDFromContext(req))
}

// ---------- success helpers ----------

func TestWriteJSON_SetsDefaultContentType(t *testing.T) {
	rr := httptest.NewRecorder()

	WriteJSON(rr, http.StatusOK, map[string]any{"ok": true})

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
}

func TestOK_WrapsDataEnvelope(t *testing.T) {
	rr := httptest.NewRecorder()

	OK(rr, map[string]any{"n": 1})

	require.Equal(t, http.StatusOK, rr.Code)

	var out struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	assert.Equal(t, float64(1), out.Data["n"])
}

func TestCreated_Returns201(t *testing.T) {
	rr := httptest.NewRecorder()
	Created(rr, map[string]any{"id": "x"})
	assert.Equal(t, http.StatusCreated, rr.Code)
}

func TestNoContent_EmptyBody(t *testing.T) {
	rr := httptest.NewRecorder()
	NoContent(rr)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Zero(t, rr.Body.Len())
}
