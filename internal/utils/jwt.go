package utils // helpers for issuing and verifying bearer tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessToken carries a signed HS256 JWT plus its expiry.  Tokens are
// stateless: verification is signature + expiry only, there is no
// server-side revocation list.  Logout is client-side token discard.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken signs an HS256 JWT embedding the user id and role.
// Claims: sub (user id), role, exp, iat.
func NewAccessToken(secret string, userID uint64, role string, ttlMin int) (AccessToken, error) {
	exp := time.Now().UTC().Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  exp.Unix(),
		"iat":  time.Now().UTC().Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// Claims is the verified identity extracted from a bearer token.
type Claims struct {
	UserID uint64
	Role   string
}

var errInvalidToken = errors.New("invalid token")

// ParseAccessToken verifies signature, algorithm and expiry and returns
// the embedded claims.  Any failure collapses into a single error so
// callers cannot distinguish a bad signature from an expired token.
func ParseAccessToken(secret, raw string) (Claims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return Claims{}, errInvalidToken
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, errInvalidToken
	}
	var c Claims
	switch sub := mc["sub"].(type) {
	case float64:
		c.UserID = uint64(sub)
	default:
		return Claims{}, errInvalidToken
	}
	role, ok := mc["role"].(string)
	if !ok || role == "" {
		return Claims{}, errInvalidToken
	}
	c.Role = role
	return c, nil
}
