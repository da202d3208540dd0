package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/exam-engine/internal/config"
	"github.com/SAP-F-2025/exam-engine/internal/models"
	"github.com/SAP-F-2025/exam-engine/internal/repositories"
	"github.com/SAP-F-2025/exam-engine/internal/repositories/casdoor"
)

const (
	ctxUserID   = "user_id"
	ctxUser     = "user"
	ctxUserRole = "user_role"
)

// Authenticator turns a bearer token into the calling user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// tokenParser is the slice of the Casdoor client used to verify tokens.
type tokenParser interface {
	ParseJwtToken(token string) (*casdoorsdk.Claims, error)
}

// CasdoorAuthenticator verifies Casdoor-issued JWTs and resolves the user through the directory.
type CasdoorAuthenticator struct {
	parser   tokenParser
	userRepo repositories.UserRepository
}

func NewCasdoorAuthenticator(cfg config.CasdoorConfig, userRepo repositories.UserRepository) *CasdoorAuthenticator {
	client := casdoorsdk.NewClient(
		cfg.Endpoint,
		cfg.ClientID,
		cfg.ClientSecret,
		cfg.Cert,
		cfg.Organization,
		cfg.Application,
	)
	return &CasdoorAuthenticator{parser: client, userRepo: userRepo}
}

func (a *CasdoorAuthenticator) Authenticate(ctx context.Context, token string) (*models.User, error) {
	claims, err := a.parser.ParseJwtToken(token)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Id == "" {
		return nil, fmt.Errorf("invalid user ID in token")
	}

	if a.userRepo != nil {
		if user, err := a.userRepo.GetByID(ctx, claims.Id); err == nil {
			return user, nil
		}
	}
	return userFromClaims(claims), nil
}

// userFromClaims is used when the directory cannot resolve the token subject.
func userFromClaims(claims *casdoorsdk.Claims) *models.User {
	now := time.Now()
	user := &models.User{
		ID:            claims.Id,
		FullName:      claims.User.DisplayName,
		Email:         claims.User.Email,
		Role:          casdoor.RoleFromCasdoor(&claims.User),
		EmailVerified: claims.User.EmailVerified,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if claims.User.Avatar != "" {
		avatar := claims.User.Avatar
		user.AvatarURL = &avatar
	}
	return user
}

type AuthMiddleware struct {
	authenticator Authenticator
}

func NewAuthMiddleware(authenticator Authenticator) *AuthMiddleware {
	return &AuthMiddleware{authenticator: authenticator}
}

// Authenticate rejects requests without a valid bearer token and stores the caller in the context.
func (m *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "authorization header missing")
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		user, err := m.authenticator.Authenticate(c.Request.Context(), tokenParts[1])
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}

		c.Set(ctxUserID, user.ID)
		c.Set(ctxUser, user)
		c.Set(ctxUserRole, user.Role)
		c.Next()
	}
}

// RequireRole lets admins through regardless of the listed roles.
func (m *AuthMiddleware) RequireRole(requiredRoles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "user role not found in context",
			})
			return
		}

		if p.IsAdmin() {
			c.Next()
			return
		}
		for _, role := range requiredRoles {
			if p.Role == role {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"message": fmt.Sprintf("insufficient permissions, required role: %v", requiredRoles),
		})
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   "unauthorized",
		"message": message,
	})
}

// PrincipalFromContext returns the caller identity set by Authenticate.
func PrincipalFromContext(c *gin.Context) (models.Principal, bool) {
	id := c.GetString(ctxUserID)
	if id == "" {
		return models.Principal{}, false
	}
	v, _ := c.Get(ctxUserRole)
	role, ok := v.(models.UserRole)
	if !ok {
		return models.Principal{}, false
	}
	return models.Principal{ID: id, Role: role}, true
}
