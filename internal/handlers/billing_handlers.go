package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"coursepay_echo/internal/services"
)

// BillingHandler exposes enrollment, balance, timeline and access checks.
// The UserLedger is consulted first on every read; the legacy bridge only
// answers when no ledger row exists.
type BillingHandler struct {
	plans   *services.PlanService
	ledgers *services.LedgerService
	bridge  *services.LegacyBridge
	access  *services.AccessService
}

func NewBillingHandler(plans *services.PlanService, ledgers *services.LedgerService, bridge *services.LegacyBridge, access *services.AccessService) *BillingHandler {
	return &BillingHandler{plans: plans, ledgers: ledgers, bridge: bridge, access: access}
}

type enrollRequest struct {
	CourseID uint   `json:"course_id" validate:"required"`
	PlanType string `json:"plan_type" validate:"required"`
}

// Enroll creates the caller's installment ledger for a course, freezing the
// current plan template into the ledger snapshot.
func (h *BillingHandler) Enroll(c echo.Context) error {
	var req enrollRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	user := currentUser(c)

	plan, err := h.plans.GetPlan(ctx, req.CourseID, req.PlanType)
	if err != nil {
		return respondError(c, err)
	}

	ledger, err := h.ledgers.Enroll(ctx, user.ID, req.CourseID, plan)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusCreated, ledger)
}

func courseIDParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("courseID"), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "Invalid course ID")
	}
	return uint(id), nil
}

// GetBalance returns the outstanding balance of the caller's enrollment.
func (h *BillingHandler) GetBalance(c echo.Context) error {
	courseID, err := courseIDParam(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	userID := currentUser(c).ID

	balance, err := h.ledgers.OutstandingBalance(ctx, userID, courseID)
	if errors.Is(err, services.ErrLedgerNotFound) {
		balance, err = h.bridge.GetOutstandingBalance(ctx, userID, courseID)
	}
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, balance)
}

// GetTimeline returns the dated installment view of the caller's enrollment.
func (h *BillingHandler) GetTimeline(c echo.Context) error {
	courseID, err := courseIDParam(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	userID := currentUser(c).ID

	timeline, err := h.getTimeline(ctx, userID, courseID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, timeline)
}

func (h *BillingHandler) getTimeline(ctx context.Context, userID, courseID uint) (*services.Timeline, error) {
	timeline, err := h.ledgers.GetTimeline(ctx, userID, courseID)
	if errors.Is(err, services.ErrLedgerNotFound) {
		return h.bridge.GetTimeline(ctx, userID, courseID)
	}
	return timeline, err
}

// CheckAccess computes the caller's course-access decision from payment
// facts and the current time.
func (h *BillingHandler) CheckAccess(c echo.Context) error {
	courseID, err := courseIDParam(c)
	if err != nil {
		return err
	}

	decision, err := h.access.CheckAccess(c.Request().Context(), currentUser(c).ID, courseID)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, decision)
}
