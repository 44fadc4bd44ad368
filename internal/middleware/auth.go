// Package middleware hosts authentication, logging, and rate limiting middleware.
package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"hrops/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// contextKey avoids collisions when storing values in request contexts.
type contextKey string

const (
	ctxUserIDKey    contextKey = "user_id"
	ctxCompanyIDKey contextKey = "company_id"
	ctxEmailKey     contextKey = "email"
	ctxRoleKey      contextKey = "role"
)

// JTIChecker reports whether an access token has been revoked.
type JTIChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthMiddleware validates bearer JWTs, rejects revoked tokens, and
// injects the employee identity into the request context.
type AuthMiddleware struct {
	jwtSecret string
	revoked   JTIChecker
}

func NewAuthMiddleware(secret string, revoked JTIChecker) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: secret, revoked: revoked}
}

// Authenticate enforces bearer auth and populates identity on the context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if strings.TrimSpace(authHeader) == "" {
			jsonError(w, http.StatusUnauthorized, "Authorization header required")
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			jsonError(w, http.StatusUnauthorized, "Invalid authorization format")
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(m.jwtSecret), nil
		})
		if err != nil || !token.Valid {
			jsonError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			jsonError(w, http.StatusUnauthorized, "Invalid token claims")
			return
		}

		if exp, ok := claims["exp"].(float64); ok {
			if time.Now().Unix() > int64(exp) {
				jsonError(w, http.StatusUnauthorized, "Token expired")
				return
			}
		}

		if m.revoked != nil {
			if jti, ok := claims["jti"].(string); ok && jti != "" {
				revoked, err := m.revoked.IsRevoked(r.Context(), jti)
				if err != nil {
					jsonError(w, http.StatusInternalServerError, "Internal server error")
					return
				}
				if revoked {
					jsonError(w, http.StatusUnauthorized, "Token revoked")
					return
				}
			}
		}

		userIDStr, ok := claims["user_id"].(string)
		if !ok {
			jsonError(w, http.StatusUnauthorized, "Invalid user ID in token")
			return
		}
		userID, err := uuid.Parse(userIDStr)
		if err != nil {
			jsonError(w, http.StatusUnauthorized, "Invalid user ID format")
			return
		}

		ctx := context.WithValue(r.Context(), ctxUserIDKey, userID)
		if companyIDStr, ok := claims["company_id"].(string); ok {
			if companyID, err := uuid.Parse(companyIDStr); err == nil {
				ctx = context.WithValue(ctx, ctxCompanyIDKey, companyID)
			}
		}
		if email, ok := claims["email"].(string); ok {
			ctx = context.WithValue(ctx, ctxEmailKey, email)
		}
		if role, ok := claims["role"].(string); ok {
			ctx = context.WithValue(ctx, ctxRoleKey, domain.Role(role))
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a subtree to the given roles. Superadmins pass every
// check.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := RoleFromContext(r.Context())
			if !ok {
				jsonError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			if role == domain.RoleSuperadmin {
				next.ServeHTTP(w, r)
				return
			}
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			jsonError(w, http.StatusForbidden, "Insufficient permissions")
		})
	}
}

// UserIDFromContext returns the authenticated employee's UUID.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxUserIDKey).(uuid.UUID)
	return id, ok
}

// CompanyIDFromContext returns the authenticated employee's company.
func CompanyIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxCompanyIDKey).(uuid.UUID)
	return id, ok
}

// EmailFromContext returns the authenticated employee's email.
func EmailFromContext(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(ctxEmailKey).(string)
	return s, ok
}

// RoleFromContext returns the authenticated employee's role.
func RoleFromContext(ctx context.Context) (domain.Role, bool) {
	role, ok := ctx.Value(ctxRoleKey).(domain.Role)
	return role, ok
}
