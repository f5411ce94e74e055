// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/amirphl/inox-pricing/app/dto"
	"github.com/amirphl/inox-pricing/app/services"
	"github.com/amirphl/inox-pricing/utils"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

const localsAuthFailure = "admin_auth_failure"

// authFailure records why a presented credential was not accepted
type authFailure struct {
	code    string
	message string
}

// AuthMiddleware resolves whether a request comes from a privileged pricing caller.
// Credentials are a shared secret in X-Admin-Token or an admin JWT in the Authorization header.
type AuthMiddleware struct {
	adminToken   []byte
	tokenService services.AdminTokenService
	logger       *zap.Logger
}

// NewAuthMiddleware creates a new authentication middleware. Either credential kind may be
// disabled by passing an empty token or a nil token service.
func NewAuthMiddleware(adminToken string, tokenService services.AdminTokenService, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		adminToken:   []byte(adminToken),
		tokenService: tokenService,
		logger:       logger,
	}
}

// ResolvePrivilege marks the request as privileged when it carries a valid credential.
// Requests without a valid credential continue as public callers.
func (m *AuthMiddleware) ResolvePrivilege() fiber.Handler {
	return func(c fiber.Ctx) error {
		c.Locals(utils.LocalsPrivileged, false)

		if token := c.Get(utils.AdminTokenHeader); token != "" {
			if len(m.adminToken) > 0 && subtle.ConstantTimeCompare([]byte(token), m.adminToken) == 1 {
				c.Locals(utils.LocalsPrivileged, true)
				c.Locals("admin_subject", "shared-token")
				return c.Next()
			}
			m.reject(c, authFailure{code: "ADMIN_TOKEN_INVALID", message: "Invalid admin token"})
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Next()
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			m.reject(c, authFailure{code: "INVALID_AUTHORIZATION_FORMAT", message: "Invalid authorization header format. Expected 'Bearer <token>'"})
			return c.Next()
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" || m.tokenService == nil {
			m.reject(c, authFailure{code: "MISSING_ACCESS_TOKEN", message: "Access token is required"})
			return c.Next()
		}

		claims, err := m.tokenService.ValidateAdminToken(token)
		if err != nil {
			var failure authFailure
			switch {
			case errors.Is(err, services.ErrTokenExpired):
				failure = authFailure{code: "TOKEN_EXPIRED", message: "Access token has expired"}
			case errors.Is(err, services.ErrTokenWrongRole):
				failure = authFailure{code: "TOKEN_ROLE_DENIED", message: "Access token does not grant pricing administration"}
			case errors.Is(err, services.ErrTokenInvalid):
				failure = authFailure{code: "TOKEN_INVALID", message: "Invalid access token"}
			default:
				failure = authFailure{code: "TOKEN_VALIDATION_FAILED", message: "Token validation failed"}
			}
			m.reject(c, failure)
			return c.Next()
		}

		c.Locals(utils.LocalsPrivileged, true)
		c.Locals("admin_subject", claims.Subject)
		c.Locals("token_id", claims.TokenID)
		return c.Next()
	}
}

func (m *AuthMiddleware) reject(c fiber.Ctx, failure authFailure) {
	c.Locals(localsAuthFailure, failure)
	m.logger.Warn("Admin credential rejected",
		zap.String("code", failure.code),
		zap.String("path", c.Path()),
		zap.String("ip", c.IP()))
}

// RequirePrivileged blocks requests that ResolvePrivilege did not mark as privileged
func RequirePrivileged() fiber.Handler {
	return func(c fiber.Ctx) error {
		if IsPrivileged(c) {
			return c.Next()
		}
		if failure, ok := c.Locals(localsAuthFailure).(authFailure); ok {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: failure.message,
				Error:   dto.ErrorDetail{Code: failure.code},
			})
		}
		return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
			Success: false,
			Message: "Admin credential required",
			Error:   dto.ErrorDetail{Code: "ADMIN_CREDENTIAL_REQUIRED"},
		})
	}
}

// IsPrivileged reports whether the request carries a valid admin credential
func IsPrivileged(c fiber.Ctx) bool {
	privileged, _ := c.Locals(utils.LocalsPrivileged).(bool)
	return privileged
}

// GetAdminSubjectFromContext extracts the admin subject from the request context
func GetAdminSubjectFromContext(c fiber.Ctx) (string, bool) {
	subject, ok := c.Locals("admin_subject").(string)
	return subject, ok
}
