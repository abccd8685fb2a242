package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-membership/internal/logger"
)

type staticVerifier map[string]Principal

func (v staticVerifier) Verify(ctx context.Context, rawToken string) (Principal, error) {
	p, ok := v[rawToken]
	if !ok {
		return Principal{}, errors.New("unknown token")
	}
	return p, nil
}

func protected(t *testing.T) http.Handler {
	verifier := staticVerifier{
		"member-token": {Subject: "user-1"},
		"admin-token":  {Subject: "user-2", Roles: []string{"membership-admin"}},
	}
	mw := Middleware(verifier, logger.NewNopLogger())
	return mw(RequireRole("membership-admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(UserID(r.Context())))
	})))
}

func call(h http.Handler, authz string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware(t *testing.T) {
	h := protected(t)

	assert.Equal(t, http.StatusUnauthorized, call(h, "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(h, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, call(h, "Bearer nope").Code)
	assert.Equal(t, http.StatusForbidden, call(h, "Bearer member-token").Code)

	rec := call(h, "bearer admin-token")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-2", rec.Body.String())
}

func TestExtractUserIDFromJWT(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-42"})
	signed, err := token.SignedString([]byte("any-key"))
	require.NoError(t, err)

	sub, err := ExtractUserIDFromJWT(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-42", sub)

	_, err = ExtractUserIDFromJWT("")
	assert.Error(t, err)
	_, err = ExtractUserIDFromJWT("not.a.jwt")
	assert.Error(t, err)
}

func TestNewOIDCVerifierRequiresIssuer(t *testing.T) {
	_, err := NewOIDCVerifier(context.Background(), "")
	assert.Error(t, err)
}
