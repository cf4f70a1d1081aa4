package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"coursepay_echo/internal/models"
	"coursepay_echo/internal/services"
)

// CustomValidator adapts go-playground/validator to Echo's Validator
// interface so handlers can c.Validate(dto) after binding.
type CustomValidator struct {
	validate *validator.Validate
}

func NewCustomValidator() *CustomValidator {
	return &CustomValidator{validate: validator.New()}
}

func (v *CustomValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// errorBody is the JSON failure shape: a machine code plus a human message.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorCode maps a domain error to its taxonomy code and HTTP status.
func errorCode(err error) (string, int) {
	switch {
	case errors.Is(err, services.ErrInvalidPrice):
		return "InvalidPrice", http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidInstallmentCount):
		return "InvalidInstallmentCount", http.StatusBadRequest
	case errors.Is(err, services.ErrInstallmentTooSmall):
		return "InstallmentTooSmall", http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidDiscountRange):
		return "InvalidDiscountRange", http.StatusBadRequest
	case errors.Is(err, services.ErrIndexOutOfRange):
		return "IndexOutOfRange", http.StatusBadRequest
	case errors.Is(err, services.ErrMalformedWebhook):
		return "MalformedWebhook", http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidSignature):
		return "InvalidSignature", http.StatusUnauthorized
	case errors.Is(err, services.ErrCourseNotFound):
		return "CourseNotFound", http.StatusNotFound
	case errors.Is(err, services.ErrSubscriptionNotFound):
		return "SubscriptionNotFound", http.StatusNotFound
	case errors.Is(err, services.ErrPlanNotFound):
		return "PlanNotFound", http.StatusNotFound
	case errors.Is(err, services.ErrLedgerNotFound):
		return "LedgerNotFound", http.StatusNotFound
	case errors.Is(err, services.ErrOrderNotFound):
		return "OrderNotFound", http.StatusNotFound
	case errors.Is(err, services.ErrAlreadyEnrolled):
		return "AlreadyEnrolled", http.StatusConflict
	case errors.Is(err, services.ErrInstallmentAlreadyPaid):
		return "InstallmentAlreadyPaid", http.StatusConflict
	default:
		return "InternalError", http.StatusInternalServerError
	}
}

// respondError writes the structured failure response for a domain error.
// Internal errors are not echoed to the client.
func respondError(c echo.Context, err error) error {
	code, status := errorCode(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		c.Logger().Error(err)
		message = "Something went wrong. Please try again later."
	}
	return c.JSON(status, errorBody{Code: code, Message: message})
}

// respondData wraps a success payload.
func respondData(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, map[string]interface{}{"data": data})
}

// currentUser returns the authenticated user set by RequireAuth.
func currentUser(c echo.Context) *models.User {
	user, _ := c.Get("user").(*models.User)
	return user
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
