package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
)

const DefaultTTL = 30 * time.Minute

// ScopePasswordReset marks a token usable only for the password-reset
// confirmation flow, never as an access token.
const ScopePasswordReset = "password_reset"

// Claims carries the registered claims plus an optional scope marker.
// Access tokens have no scope; special-purpose tokens carry one, and each
// consumer must require exactly the scope it expects.
type Claims struct {
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// Config carries everything the codec needs; the signing key is set once at
// startup, there is no package-level state.
type Config struct {
	Secret []byte
	TTL    time.Duration
	Leeway time.Duration
}

type Codec struct {
	secret []byte
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
}

func NewCodec(cfg Config) *Codec {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	leeway := cfg.Leeway
	if leeway < 0 {
		leeway = 0
	}
	return &Codec{
		secret: cfg.Secret,
		ttl:    ttl,
		leeway: leeway,
		now:    time.Now,
	}
}

func (c *Codec) TTL() time.Duration { return c.ttl }

// Mint signs a token for subject expiring after ttl. A ttl of zero means the
// configured default.
func (c *Codec) Mint(subject string, ttl time.Duration) (string, time.Time, error) {
	return c.mint(subject, "", ttl)
}

// MintScoped mints a token bound to a single purpose. A scoped token is
// rejected by consumers expecting plain access tokens and vice versa.
func (c *Codec) MintScoped(subject, scope string, ttl time.Duration) (string, time.Time, error) {
	return c.mint(subject, scope, ttl)
}

func (c *Codec) mint(subject, scope string, ttl time.Duration) (string, time.Time, error) {
	if ttl == 0 {
		ttl = c.ttl
	}
	now := c.now().UTC()
	exp := now.Add(ttl)

	claims := Claims{
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Decode verifies signature, signing algorithm and expiry. It never touches
// external state: an invalid token comes back as ErrTokenExpired or
// ErrTokenMalformed, not a panic.
func (c *Codec) Decode(tokenStr string) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return c.secret, nil
	},
		jwt.WithLeeway(c.leeway),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenMalformed
	}
	if !tkn.Valid || claims.Subject == "" {
		return nil, ErrTokenMalformed
	}
	return &claims, nil
}
