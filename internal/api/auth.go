package api

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/abhisek/lumora/internal/config"
)

// RoleAdmin is the role claim that unlocks catalog management.
const RoleAdmin = "admin"

// Identity is the authenticated caller.
type Identity struct {
	StudentID string
	Role      string
}

const identityKey = "identity"

func identity(c *fiber.Ctx) Identity {
	id, _ := c.Locals(identityKey).(Identity)
	return id
}

// authenticate reads the caller's identity. With a JWT secret configured it
// requires an HS256 bearer token whose subject is the student ID; otherwise
// it trusts the X-User-ID and X-User-Role headers set by a fronting proxy.
func authenticate(cfg config.AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.JWTSecret == "" {
			id := Identity{StudentID: c.Get("X-User-ID"), Role: c.Get("X-User-Role")}
			if id.StudentID == "" {
				return fiber.NewError(fiber.StatusUnauthorized, "missing X-User-ID header")
			}
			c.Locals(identityKey, id)
			return c.Next()
		}

		header := c.Get(fiber.HeaderAuthorization)
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}
		id, err := parseToken(cfg, raw)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired token")
		}
		c.Locals(identityKey, id)
		return c.Next()
	}
}

type claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

func parseToken(cfg config.AuthConfig, raw string) (Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	var cl claims
	_, err := jwt.ParseWithClaims(raw, &cl, func(*jwt.Token) (any, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return Identity{}, err
	}
	if cl.Subject == "" {
		return Identity{}, errors.New("token has no subject")
	}
	return Identity{StudentID: cl.Subject, Role: cl.Role}, nil
}

// IssueToken signs a token for studentID. It is meant for local tooling
// and tests; production tokens come from the identity provider.
func IssueToken(cfg config.AuthConfig, studentID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	cl := claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   studentID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString([]byte(cfg.JWTSecret))
}

func requireAdmin(c *fiber.Ctx) error {
	if identity(c).Role != RoleAdmin {
		return fiber.NewError(fiber.StatusForbidden, "admin role required")
	}
	return c.Next()
}
