package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"coursepay_echo/internal/services"
)

type PaymentHandler struct {
	payments   *services.PaymentService
	reconciler *services.Reconciler
}

func NewPaymentHandler(payments *services.PaymentService, reconciler *services.Reconciler) *PaymentHandler {
	return &PaymentHandler{payments: payments, reconciler: reconciler}
}

type initiatePaymentRequest struct {
	CourseID         uint `json:"course_id" validate:"required"`
	InstallmentIndex *int `json:"installment_index" validate:"required,min=0"`
	ForceNew         bool `json:"force_new"`
}

// InitiatePayment starts (or resumes) the gateway checkout for one
// installment of the caller's enrollment.
func (h *PaymentHandler) InitiatePayment(c echo.Context) error {
	var req initiatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	callbackURL := getEnv("APP_URL", "http://localhost:8080") + "/payment/finish"

	result, err := h.payments.InitiatePayment(c.Request().Context(), currentUser(c),
		req.CourseID, *req.InstallmentIndex, req.ForceNew, callbackURL)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, result)
}

// ListPaidOrders returns the caller's settled orders, repairing any stale
// installment isPaid flags on the way out.
func (h *PaymentHandler) ListPaidOrders(c echo.Context) error {
	orders, err := h.reconciler.ListPaidOrders(c.Request().Context(), currentUser(c).ID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, orders)
}

// GetOrderStatus polls one order, cross-checking pending ones against the
// gateway.
func (h *PaymentHandler) GetOrderStatus(c echo.Context) error {
	order, err := h.payments.VerifyOrderStatus(c.Request().Context(), c.Param("orderID"))
	if err != nil {
		return respondError(c, err)
	}
	if order.UserID != currentUser(c).ID {
		return echo.NewHTTPError(http.StatusForbidden, "You can only check your own orders")
	}
	return respondData(c, http.StatusOK, map[string]interface{}{
		"order_id": order.OrderID,
		"status":   order.Status,
	})
}
