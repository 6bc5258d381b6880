package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPair(t *testing.T, secret string) (*Issuer, *Verifier) {
	t.Helper()
	iss, err := NewIssuer(secret)
	require.NoError(t, err)
	ver, err := NewVerifier(secret)
	require.NoError(t, err)
	return iss, ver
}

func TestIssueVerify(t *testing.T) {
	iss, ver := newPair(t, "s3cret")

	token, err := iss.Issue("alice", time.Hour)
	require.NoError(t, err)

	user, err := ver.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", user)
}

func TestVerify_WrongSecret(t *testing.T) {
	iss, _ := newPair(t, "s3cret")
	_, ver := newPair(t, "other")

	token, err := iss.Issue("alice", time.Hour)
	require.NoError(t, err)

	_, err = ver.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Expired(t *testing.T) {
	iss, ver := newPair(t, "s3cret")
	iss.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := iss.Issue("alice", time.Hour)
	require.NoError(t, err)

	_, err = ver.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	_, ver := newPair(t, "s3cret")

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "mallory",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ver.Verify(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerify_Empty(t *testing.T) {
	_, ver := newPair(t, "s3cret")
	_, err := ver.Verify("")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestNewIssuer_EmptySecret(t *testing.T) {
	_, err := NewIssuer("")
	assert.ErrorIs(t, err, ErrNoSecret)
	_, err = NewVerifier("")
	assert.ErrorIs(t, err, ErrNoSecret)
}

func TestIssue_EmptyUser(t *testing.T) {
	iss, _ := newPair(t, "s3cret")
	_, err := iss.Issue("", time.Hour)
	assert.Error(t, err)
}

func TestUserFromContext(t *testing.T) {
	assert.Equal(t, "", UserFromContext(context.Background()))
	assert.Equal(t, "bob", UserFromContext(WithUser(context.Background(), "bob")))
}

func TestMiddleware(t *testing.T) {
	iss, ver := newPair(t, "s3cret")
	token, err := iss.Issue("alice", time.Hour)
	require.NoError(t, err)

	var seen string
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	optional := Optional(ver)(echo)
	required := Optional(ver)(Required(echo))

	tests := []struct {
		name    string
		handler http.Handler
		header  string
		code    int
		user    string
	}{
		{"optional anonymous", optional, "", http.StatusNoContent, ""},
		{"optional bad token", optional, "Bearer junk", http.StatusNoContent, ""},
		{"optional valid", optional, "Bearer " + token, http.StatusNoContent, "alice"},
		{"required anonymous", required, "", http.StatusUnauthorized, ""},
		{"required wrong scheme", required, "Basic " + token, http.StatusUnauthorized, ""},
		{"required valid", required, "bearer " + token, http.StatusNoContent, "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			tt.handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.user, seen)
			if tt.code == http.StatusUnauthorized {
				assert.Contains(t, rec.Body.String(), "authentication required")
			}
		})
	}
}
