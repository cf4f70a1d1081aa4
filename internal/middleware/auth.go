package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"google.golang.org/api/option"
	"gorm.io/gorm"

	"coursepay_echo/internal/models"
)

// InitFirebase initializes the Firebase Admin SDK and returns an auth client
func InitFirebase(credPath string) (*auth.Client, error) {
	opt := option.WithCredentialsFile(credPath)
	app, err := firebase.NewApp(context.Background(), nil, opt)
	if err != nil {
		return nil, err
	}
	return app.Auth(context.Background())
}

// RequireAuth verifies the Bearer ID token, resolves the local user row by
// the token's email claim, and stores it in the request context under
// "user". Identity lives in Firebase; billing only needs the local user id.
func RequireAuth(authClient *auth.Client, db *gorm.DB) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if authClient == nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "Authentication is not configured")
			}

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing bearer token")
			}

			decoded, err := authClient.VerifyIDToken(c.Request().Context(), token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}

			email, _ := decoded.Claims["email"].(string)
			if email == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Token has no email claim")
			}

			var user models.User
			if err := db.Where("email = ?", email).First(&user).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return echo.NewHTTPError(http.StatusForbidden, "No account for this identity")
				}
				return err
			}

			c.Set("user", &user)
			c.Set("userID", user.ID)
			c.Set("userEmail", user.Email)
			return next(c)
		}
	}
}

// RequireAdmin gates admin-only routes; must run after RequireAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := c.Get("user").(*models.User)
			if !ok || user.UserType != models.UserTypeAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "Admin access required")
			}
			return next(c)
		}
	}
}
