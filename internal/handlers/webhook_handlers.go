package handlers

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"coursepay_echo/internal/services"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw webhook body.
const SignatureHeader = "X-Webhook-Signature"

type WebhookHandler struct {
	reconciler *services.Reconciler
}

func NewWebhookHandler(reconciler *services.Reconciler) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler}
}

// HandlePaymentWebhook receives signed gateway notifications. The gateway
// retries until it sees a 2xx, so every already-applied replay must still be
// acknowledged with success.
func (h *WebhookHandler) HandlePaymentWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unreadable request body")
	}

	result, err := h.reconciler.HandleWebhook(c.Request().Context(),
		body, c.Request().Header.Get(SignatureHeader))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}
