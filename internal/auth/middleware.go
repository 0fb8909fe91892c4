package auth

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/aldoetobex/pi-case-backend/pkg/models"
	"github.com/aldoetobex/pi-case-backend/pkg/utils"
)

// TokenTTL is how long an issued staff token stays valid.
var TokenTTL = 12 * time.Hour

var errNoSecret = errors.New("JWT_SECRET is not set")

/* ============================== JWT Claims ============================== */

// Claims is the staff token payload. Name travels in the token so work log
// entries can be attributed without a user lookup per request.
type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

func secret() ([]byte, error) {
	s := os.Getenv("JWT_SECRET")
	if s == "" {
		return nil, errNoSecret
	}
	return []byte(s), nil
}

// IssueToken signs a staff token valid for TokenTTL.
func IssueToken(userID, role, name string) (string, error) {
	key, err := secret()
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := &Claims{
		Sub:  userID,
		Role: role,
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

func parseToken(raw string) (*Claims, error) {
	key, err := secret()
	if err != nil {
		return nil, err
	}
	claims := &Claims{}
	_, err = jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(claims.Sub); err != nil {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

/* ============================== Middleware ============================== */

// RequireAuth validates the Bearer token and puts userID, role and userName
// into Locals.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			return fiber.ErrUnauthorized
		}
		claims, err := parseToken(strings.TrimSpace(raw))
		if err != nil {
			return fiber.ErrUnauthorized
		}

		c.Locals("userID", claims.Sub)
		c.Locals("role", claims.Role)
		c.Locals("userName", claims.Name)
		return c.Next()
	}
}

// RequireRole lets the request through when the caller holds one of roles.
// It must run after RequireAuth.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role := MustRole(c)
		for _, r := range roles {
			if string(r) == role {
				return c.Next()
			}
		}
		return fiber.ErrForbidden
	}
}

// MustRole reads the caller's role or panics when RequireAuth did not run.
func MustRole(c *fiber.Ctx) string {
	if v, ok := c.Locals("role").(string); ok {
		return v
	}
	panic(errors.New("role not in context"))
}

// Actor is the caller as the work log records them. A request with no
// parseable user is the system actor.
func Actor(c *fiber.Ctx) utils.Actor {
	var a utils.Actor
	if v, ok := c.Locals("userID").(string); ok {
		a.ID, _ = uuid.Parse(v)
	}
	if v, ok := c.Locals("userName").(string); ok {
		a.Name = strings.TrimSpace(v)
	}
	return a
}
