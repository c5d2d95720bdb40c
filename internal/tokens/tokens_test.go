package tokens

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec() *Codec {
	return NewCodec(Config{Secret: []byte("test-jwt-secret")})
}

func TestCodec_MintDecode_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := newTestCodec()
	token, exp, err := codec.Mint("alice", 0)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	require.NotNil(t, claims.IssuedAt)
	require.NotNil(t, claims.ExpiresAt)
	assert.WithinDuration(t, exp, claims.ExpiresAt.Time, time.Second)
	assert.WithinDuration(t, time.Now().Add(DefaultTTL), claims.ExpiresAt.Time, time.Second)
}

func TestCodec_MintScoped_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := newTestCodec()
	token, _, err := codec.MintScoped("a@x.com", ScopePasswordReset, 15*time.Minute)
	require.NoError(t, err)

	claims, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", claims.Subject)
	assert.Equal(t, ScopePasswordReset, claims.Scope)

	// Plain access tokens carry no scope at all.
	token, _, err = codec.Mint("alice", 0)
	require.NoError(t, err)
	claims, err = codec.Decode(token)
	require.NoError(t, err)
	assert.Empty(t, claims.Scope)
}

func TestCodec_Decode_NegativeTTLNeverValid(t *testing.T) {
	t.Parallel()

	codec := newTestCodec()
	token, _, err := codec.Mint("alice", -1*time.Minute)
	require.NoError(t, err)

	claims, err := codec.Decode(token)
	assert.Nil(t, claims)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestCodec_Decode_ExpiresWithTime(t *testing.T) {
	t.Parallel()

	codec := newTestCodec()
	token, _, err := codec.Mint("alice", 30*time.Minute)
	require.NoError(t, err)

	_, err = codec.Decode(token)
	require.NoError(t, err)

	codec.now = func() time.Time { return time.Now().Add(31 * time.Minute) }
	_, err = codec.Decode(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestCodec_Decode_Leeway(t *testing.T) {
	t.Parallel()

	codec := NewCodec(Config{Secret: []byte("test-jwt-secret"), Leeway: time.Minute})
	token, _, err := codec.Mint("alice", 30*time.Minute)
	require.NoError(t, err)

	// 30s past expiry is still inside the configured skew allowance.
	codec.now = func() time.Time { return time.Now().Add(30*time.Minute + 30*time.Second) }
	_, err = codec.Decode(token)
	require.NoError(t, err)

	codec.now = func() time.Time { return time.Now().Add(32 * time.Minute) }
	_, err = codec.Decode(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestCodec_Decode_Malformed(t *testing.T) {
	t.Parallel()

	codec := newTestCodec()

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-jwt"},
		{name: "empty", token: ""},
		{name: "truncated", token: "eyJhbGciOiJIUzI1NiJ9"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			claims, err := codec.Decode(tt.token)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, ErrTokenMalformed)
		})
	}
}

func TestCodec_Decode_WrongKey(t *testing.T) {
	t.Parallel()

	codec := newTestCodec()
	other := NewCodec(Config{Secret: []byte("another-secret")})

	token, _, err := other.Mint("alice", 0)
	require.NoError(t, err)

	_, err = codec.Decode(token)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestCodec_Decode_RejectsUnexpectedAlgorithm(t *testing.T) {
	t.Parallel()

	codec := newTestCodec()
	claims := jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}

	// Same key, different algorithm identifier: a known forgery class.
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("test-jwt-secret"))
	require.NoError(t, err)

	decoded, err := codec.Decode(forged)
	assert.Nil(t, decoded)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestCodec_Decode_MissingSubject(t *testing.T) {
	t.Parallel()

	codec := newTestCodec()
	claims := jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-jwt-secret"))
	require.NoError(t, err)

	decoded, err := codec.Decode(token)
	assert.Nil(t, decoded)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestCodec_Decode_MissingExpiry(t *testing.T) {
	t.Parallel()

	codec := newTestCodec()
	claims := jwt.RegisteredClaims{Subject: "alice"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-jwt-secret"))
	require.NoError(t, err)

	decoded, err := codec.Decode(token)
	assert.Nil(t, decoded)
	assert.ErrorIs(t, err, ErrTokenMalformed)
}
