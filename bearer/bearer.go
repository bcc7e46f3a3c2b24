package bearer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Scheme is the Authorization scheme used for access tokens.
const Scheme = "Bearer"

var (
	// ErrEmptyToken is returned for a blank token string.
	ErrEmptyToken = errors.New("empty bearer token")
	// ErrMalformedToken is returned when the token is not a decodable JWT.
	ErrMalformedToken = errors.New("malformed bearer token")
)

// Header formats token as an Authorization header value.
func Header(token string) string {
	return Scheme + " " + token
}

// FromHeader extracts the token from an Authorization header value. The
// scheme is matched case-insensitively.
func FromHeader(value string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || !strings.EqualFold(scheme, Scheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

// Claims is the subset of access-token claims the client cares about.
type Claims struct {
	Subject   string
	ID        string
	Type      string
	Fresh     bool
	IssuedAt  time.Time
	NotBefore time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at now, allowing
// leeway. Tokens without exp never expire.
func (c *Claims) Expired(now time.Time, leeway time.Duration) bool {
	if c == nil || c.ExpiresAt.IsZero() {
		return false
	}
	return now.After(c.ExpiresAt.Add(leeway))
}

// Inspect decodes the claims of raw without verifying its signature.
func Inspect(raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyToken
	}

	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, mc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	return claimsFromMap(mc)
}

func claimsFromMap(mc jwt.MapClaims) (*Claims, error) {
	out := &Claims{}

	// Some backends emit numeric subjects.
	switch sub := mc["sub"].(type) {
	case string:
		out.Subject = sub
	case float64:
		out.Subject = strconv.FormatFloat(sub, 'f', -1, 64)
	case nil:
	default:
		return nil, fmt.Errorf("%w: unsupported sub claim", ErrMalformedToken)
	}

	out.ID, _ = mc["jti"].(string)
	out.Type, _ = mc["type"].(string)
	out.Fresh, _ = mc["fresh"].(bool)

	exp, err := mc.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if exp != nil {
		out.ExpiresAt = exp.Time
	}
	iat, err := mc.GetIssuedAt()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if iat != nil {
		out.IssuedAt = iat.Time
	}
	nbf, err := mc.GetNotBefore()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if nbf != nil {
		out.NotBefore = nbf.Time
	}

	return out, nil
}

// Issue signs an HS256 access token for subject valid for ttl.
func Issue(secret []byte, subject string, ttl time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("hs256 requires secret")
	}
	if ttl <= 0 {
		return "", errors.New("invalid TTL configuration")
	}
	claims := jwt.MapClaims{
		"sub":   subject,
		"type":  "access",
		"fresh": false,
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// Verify checks an HS256 token signed with secret and returns its claims.
func Verify(secret []byte, raw string, leeway time.Duration) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmptyToken
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if leeway > 0 {
		options = append(options, jwt.WithLeeway(leeway))
	}

	mc := jwt.MapClaims{}
	token, err := jwt.NewParser(options...).ParseWithClaims(raw, mc, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claimsFromMap(mc)
}
