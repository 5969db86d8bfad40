// Package auth verifies the bearer identity tokens issued by the account
// service. Token issuance lives outside this core; only verification is
// needed here, for both the REST surface and the realtime handshake.
package auth

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for missing, malformed, expired, or
// wrongly-signed tokens.
var ErrInvalidToken = errors.New("invalid or expired token")

// Identity is the verified subject of a request or realtime connection.
type Identity struct {
	UserID string
	Admin  bool
}

// Verifier validates HS256-signed bearer tokens against a shared secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a Verifier for the given signing secret.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

type claims struct {
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}

// Verify parses and validates the token string, returning the identity it
// carries. Expiry is enforced by the jwt library during parsing.
func (v *Verifier) Verify(token string) (*Identity, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid || c.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &Identity{UserID: c.Subject, Admin: c.Admin}, nil
}

// Issue signs a token for the given identity. Used by the seed tool and
// tests; the production issuer is the external account service.
func (v *Verifier) Issue(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Admin: id.Admin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return signed, nil
}
