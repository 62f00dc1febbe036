package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func protected(a *Authenticator, roles ...Role) http.Handler {
	return a.Authenticate(Authorize(roles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := GetUserIDFromContext(r.Context())
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("X-User-ID", strconv.Itoa(id))
		w.WriteHeader(http.StatusNoContent)
	})))
}

func request(t *testing.T, h http.Handler, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAuthenticateAndAuthorize(t *testing.T) {
	a := NewAuthenticator("secret")
	h := protected(a, RoleAdmin, RoleScorer)

	scorer, err := a.IssueToken(7, RoleScorer, time.Hour)
	require.NoError(t, err)
	rec := request(t, h, scorer)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "7", rec.Header().Get("X-User-ID"))

	assert.Equal(t, http.StatusUnauthorized, request(t, h, "").Code)
	assert.Equal(t, http.StatusUnauthorized, request(t, h, "not-a-token").Code)

	other := NewAuthenticator("other-secret")
	forged, err := other.IssueToken(7, RoleAdmin, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, request(t, h, forged).Code)
}

func TestAuthorizeRejectsOtherRoles(t *testing.T) {
	a := NewAuthenticator("secret")
	h := protected(a, RoleAdmin)

	scorer, err := a.IssueToken(7, RoleScorer, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, request(t, h, scorer).Code)

	viewer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 3, "role": "viewer", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, request(t, h, viewer).Code)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	a := NewAuthenticator("secret")
	a.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := a.IssueToken(7, RoleAdmin, time.Hour)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, request(t, protected(NewAuthenticator("secret"), RoleAdmin), expired).Code)
}

func TestRateLimitPerIP(t *testing.T) {
	h := RateLimit(0.001, 2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, call("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, call("10.0.0.1:1002"))
	assert.Equal(t, http.StatusOK, call("10.0.0.2:1000"))
}

func TestAuditLogRecordsUser(t *testing.T) {
	a := NewAuthenticator("secret")
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := a.Authenticate(AuditLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})))

	token, err := a.IssueToken(42, RoleScorer, time.Hour)
	require.NoError(t, err)
	rec := request(t, h, token)
	require.Equal(t, http.StatusCreated, rec.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "command issued", line["msg"])
	assert.Equal(t, float64(42), line["user_id"])
	assert.Equal(t, "scorer", line["role"])
	assert.Equal(t, float64(http.StatusCreated), line["status"])
}
