// internal/admin/admin.go
//
// Admin credentials for the reset action.
//
// Two credentials are accepted, either one is enough:
//   - an HS256 JWT carrying role=admin, sent as "Authorization: Bearer <token>";
//   - a shared key whose bcrypt hash is configured, sent as the "key" parameter.
//
// When neither a JWT secret nor a key hash is configured the guard is disabled
// and reset stays open.

package admin

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// RoleAdmin is the only role that may reset the game.
const RoleAdmin = "admin"

var (
	ErrNoCredentials = errors.New("admin: no credentials")
	ErrBadToken      = errors.New("admin: invalid token")
	ErrNotAdmin      = errors.New("admin: token lacks admin role")
	ErrBadKey        = errors.New("admin: invalid key")
)

// Claims is the JWT body minted by SignToken.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// SignToken mints an admin token for subject valid for ttl.
func SignToken(secret, subject string, ttl time.Duration) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, errors.New("admin: empty jwt secret")
	}
	now := time.Now()
	exp := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	ss, err := token.SignedString([]byte(secret))
	return ss, exp, err
}

// HashKey bcrypt-hashes an admin key for the admin.key_hash setting.
func HashKey(key string) (string, error) {
	if key == "" {
		return "", errors.New("admin: empty key")
	}
	b, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	return string(b), err
}

// Guard checks reset credentials.
type Guard struct {
	secret  []byte
	keyHash []byte
}

func NewGuard(jwtSecret, keyHash string) *Guard {
	g := &Guard{}
	if jwtSecret != "" {
		g.secret = []byte(jwtSecret)
	}
	if keyHash != "" {
		g.keyHash = []byte(keyHash)
	}
	return g
}

// Enabled reports whether any credential is configured.
func (g *Guard) Enabled() bool { return g != nil && (g.secret != nil || g.keyHash != nil) }

// Authorize accepts the token or the key. A disabled guard accepts everything.
// The returned subject identifies the caller when a token was used.
func (g *Guard) Authorize(token, key string) (string, error) {
	if !g.Enabled() {
		return "", nil
	}
	var errs []error
	if token != "" && g.secret != nil {
		sub, err := g.verifyToken(token)
		if err == nil {
			return sub, nil
		}
		errs = append(errs, err)
	}
	if key != "" && g.keyHash != nil {
		if bcrypt.CompareHashAndPassword(g.keyHash, []byte(key)) == nil {
			return "", nil
		}
		errs = append(errs, ErrBadKey)
	}
	if len(errs) == 0 {
		return "", ErrNoCredentials
	}
	return "", errors.Join(errs...)
}

func (g *Guard) verifyToken(raw string) (string, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return g.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: %v", ErrBadToken, err)
	}
	if claims.Role != RoleAdmin {
		return "", ErrNotAdmin
	}
	return claims.Subject, nil
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	if a := r.Header.Get("Authorization"); len(a) > 7 && strings.EqualFold(a[:7], "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return ""
}
