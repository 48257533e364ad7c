package middleware

import (
	"net/http"
	"strings"

	"genealogy-service/internal/access"
	"genealogy-service/internal/model"
	"genealogy-service/pkg/database"
	"genealogy-service/pkg/jwtutil"
	"genealogy-service/pkg/logger"
	"genealogy-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const principalKey = "principal"

// AuthMiddleware validates the JWT token from the Authorization header and
// performs a live account lookup: an otherwise-valid token for a
// deactivated or deleted account is rejected. A failed lookup fails the
// request; the principal is never assumed authenticated on store errors.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		tokenString, ok := bearerToken(c)
		if !ok {
			log.Error("Missing or malformed Authorization header")
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		claims, err := jwtutil.ValidateToken(tokenString)
		if err != nil {
			log.Error("Invalid JWT token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		// Live lookup: the account must still exist and be active
		var user model.User
		result := database.GetDB().Where("id = ? AND is_active = ?", claims.UserID, true).First(&user)
		if result.Error != nil {
			log.Error("Account inactive or lookup failed",
				zap.String("user_id", claims.UserID.String()),
				zap.Error(result.Error))
			prometheus.RecordAuthError("account_inactive")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": jwtutil.ErrAccountInactive.Error()})
		}

		setPrincipal(c, &access.Principal{
			ID:          user.ID,
			Email:       user.Email,
			AccountType: user.AccountType,
		})

		return next(c)
	}
}

// OptionalAuthMiddleware resolves a principal when a valid token for an
// active account is presented and continues anonymously otherwise. Used on
// read routes where public and shared records are visible without a login.
func OptionalAuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString, ok := bearerToken(c)
		if !ok {
			return next(c)
		}

		claims, err := jwtutil.ValidateToken(tokenString)
		if err != nil {
			return next(c)
		}

		var user model.User
		result := database.GetDB().Where("id = ? AND is_active = ?", claims.UserID, true).First(&user)
		if result.Error != nil {
			return next(c)
		}

		setPrincipal(c, &access.Principal{
			ID:          user.ID,
			Email:       user.Email,
			AccountType: user.AccountType,
		})

		return next(c)
	}
}

// PrincipalFromContext returns the authenticated principal, or nil for an
// anonymous caller.
func PrincipalFromContext(c echo.Context) *access.Principal {
	if p, ok := c.Get(principalKey).(*access.Principal); ok {
		return p
	}
	return nil
}

func setPrincipal(c echo.Context, p *access.Principal) {
	c.Set(principalKey, p)
	c.Set("user_id", p.ID)
	c.Set("email", p.Email)
}

func bearerToken(c echo.Context) (string, bool) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", false
	}
	return parts[1], true
}
