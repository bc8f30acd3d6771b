package auth

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	// ErrTokenMissing is returned when no bearer token was presented.
	ErrTokenMissing = errors.New("auth: token missing")
	// ErrTokenInvalid is returned when the token fails signature, expiry or claim checks.
	ErrTokenInvalid = errors.New("auth: token invalid")
)

const (
	claimUserID = "userId"
	claimRoleID = "roleId"

	// customerRoleID is used when a token carries no role claim.
	customerRoleID int64 = 1
)

// Verifier checks HS256 bearer tokens issued by the account service.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
	now    func() time.Time
}

// NewVerifier creates a verifier for tokens signed with secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})),
		now:    time.Now,
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrTokenMissing
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrTokenMissing
	}
	return strings.TrimSpace(token), nil
}

// Verify parses and validates tokenStr and returns the caller identity.
func (v *Verifier) Verify(tokenStr string) (Identity, error) {
	if tokenStr == "" {
		return Identity{}, ErrTokenMissing
	}

	claims := jwt.MapClaims{}
	_, err := v.parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	userID, ok := intClaim(claims, claimUserID)
	if !ok {
		return Identity{}, fmt.Errorf("%w: %s claim missing", ErrTokenInvalid, claimUserID)
	}

	roleID, ok := intClaim(claims, claimRoleID)
	if !ok {
		roleID = customerRoleID
	}

	return Identity{UserID: userID, RoleID: roleID}, nil
}

// Issue signs a token for the given identity. ttl <= 0 produces a token without expiry.
func (v *Verifier) Issue(identity Identity, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		claimUserID: identity.UserID,
		claimRoleID: identity.RoleID,
		"iat":       v.now().Unix(),
	}
	if ttl > 0 {
		claims["exp"] = v.now().Add(ttl).Unix()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func intClaim(claims jwt.MapClaims, name string) (int64, bool) {
	switch v := claims[name].(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}
