package auth

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/laatu08/Offline-Note-App/internal/errs"
)

func makeJWT(t *testing.T, sub string, key []byte, method jwt.SigningMethod, iat time.Time, ttl time.Duration) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   sub,
		IssuedAt:  jwt.NewNumericDate(iat),
		NotBefore: jwt.NewNumericDate(iat),
		ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
	}
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return s
}

func TestIssue_RoundTrip(t *testing.T) {
	t.Parallel()

	key := []byte("secret")
	id := uuid.Must(uuid.NewV4())
	now := time.Now().UTC()

	tok, exp, err := Issue(key, id, time.Hour, now)
	require.NoError(t, err)
	require.Equal(t, now.Add(time.Hour), exp)

	got, err := NewVerifier(key).UserID(tok)
	require.NoError(t, err)
	require.Equal(t, id, got)

	sub, err := Subject(tok)
	require.NoError(t, err)
	require.Equal(t, id, sub)
}

func TestVerifier_Rejects(t *testing.T) {
	t.Parallel()

	key := []byte("secret")
	v := NewVerifier(key)
	sub := uuid.Must(uuid.NewV4()).String()
	now := time.Now().UTC()

	cases := map[string]string{
		"expired":   makeJWT(t, sub, key, jwt.SigningMethodHS256, now.Add(-2*time.Hour), time.Hour),
		"wrong alg": makeJWT(t, sub, key, jwt.SigningMethodHS384, now, time.Hour),
		"wrong key": makeJWT(t, sub, []byte("other"), jwt.SigningMethodHS256, now, time.Hour),
		"bad sub":   makeJWT(t, "not-a-uuid", key, jwt.SigningMethodHS256, now, time.Hour),
		"nbf":       makeJWT(t, sub, key, jwt.SigningMethodHS256, now.Add(10*time.Minute), time.Hour),
		"garbage":   "this-is-not-a-jwt",
	}
	for name, tok := range cases {
		_, err := v.UserID(tok)
		require.ErrorIs(t, err, errs.ErrUnauthorized, name)
	}
}

func TestVerifier_LeewayAllowsSmallClockSkew(t *testing.T) {
	t.Parallel()

	key := []byte("k")
	sub := uuid.Must(uuid.NewV4())
	tok := makeJWT(t, sub.String(), key, jwt.SigningMethodHS256, time.Now().UTC().Add(5*time.Second), time.Minute)

	got, err := NewVerifier(key).UserID(tok)
	require.NoError(t, err)
	require.Equal(t, sub, got)
}

func TestBearerToken(t *testing.T) {
	t.Parallel()

	got, err := BearerToken("Basic foo", "  bearer   tok.part.sig   ")
	require.NoError(t, err)
	require.Equal(t, "tok.part.sig", got)

	_, err = BearerToken("Basic a", "Digest b")
	require.ErrorIs(t, err, errs.ErrUnauthorized)

	_, err = BearerToken("Bearer   ")
	require.Error(t, err)

	_, err = BearerToken()
	require.Error(t, err)
}

func TestSubject_Garbage(t *testing.T) {
	_, err := Subject("nope")
	require.Error(t, err)
}

func TestWithUserID_And_UserIDFromCtx(t *testing.T) {
	t.Parallel()

	if id, ok := UserIDFromCtx(context.Background()); ok || id != uuid.Nil {
		t.Fatalf("expected no user id in empty ctx")
	}

	want := uuid.Must(uuid.NewV4())
	got, ok := UserIDFromCtx(WithUserID(context.Background(), want))
	require.True(t, ok)
	require.Equal(t, want, got)

	bad := context.WithValue(context.Background(), userIDKey, "not-uuid")
	if id, ok := UserIDFromCtx(bad); ok || id != uuid.Nil {
		t.Fatalf("expected miss on wrong typed value")
	}
}
