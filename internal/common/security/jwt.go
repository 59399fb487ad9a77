package security

import (
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

const (
	claimSubject = "sub"
	claimRole    = "role"
	claimName    = "username"
)

var (
	TokenAuth *jwtauth.JWTAuth
	tokenTTL  time.Duration

	ErrMissingSubject = errors.New("token has no subject")
	ErrMissingRole    = errors.New("token has no role")
)

// Identity is the caller a dashboard token was issued to.
type Identity struct {
	UserID   string
	Username string
	Role     string
}

func InitJWT(key []byte, ttl time.Duration) {
	TokenAuth = jwtauth.New("HS256", key, nil)
	tokenTTL = ttl
}

// IssueToken signs a token for id and reports when it expires.
func IssueToken(id Identity) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(tokenTTL)
	claims := jwt.MapClaims{
		claimSubject: id.UserID,
		claimRole:    id.Role,
		claimName:    id.Username,
		"iat":        now.Unix(),
		"exp":        expiresAt.Unix(),
	}
	_, token, err := TokenAuth.Encode(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}

// IdentityFromClaims reads the identity back out of verified token claims.
func IdentityFromClaims(claims map[string]any) (Identity, error) {
	sub, _ := claims[claimSubject].(string)
	if sub == "" {
		return Identity{}, ErrMissingSubject
	}
	role, _ := claims[claimRole].(string)
	if role == "" {
		return Identity{}, ErrMissingRole
	}
	name, _ := claims[claimName].(string)
	return Identity{UserID: sub, Username: name, Role: role}, nil
}
