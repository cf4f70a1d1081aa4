package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"coursepay_echo/internal/services"
)

type PlanHandler struct {
	plans     *services.PlanService
	directory services.CourseDirectory
}

func NewPlanHandler(plans *services.PlanService, directory services.CourseDirectory) *PlanHandler {
	return &PlanHandler{plans: plans, directory: directory}
}

type upsertPlanRequest struct {
	CourseID             uint   `json:"course_id" validate:"required"`
	PlanType             string `json:"plan_type" validate:"required"`
	NumberOfInstallments int    `json:"number_of_installments" validate:"required,min=1"`
}

// UpsertPlan creates or replaces the installment plan template for a course
// and plan type. Pricing terms come from the course catalog; the schedule is
// recomputed from them on every upsert.
func (h *PlanHandler) UpsertPlan(c echo.Context) error {
	var req upsertPlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()

	course, err := h.directory.GetCourse(ctx, req.CourseID)
	if err != nil {
		return respondError(c, err)
	}
	validity, err := h.directory.GetSubscriptionValidity(ctx, req.CourseID, req.PlanType)
	if err != nil {
		return respondError(c, err)
	}

	entries, total, err := services.BuildSchedule(services.ScheduleInput{
		Price:                course.Price,
		DiscountPercent:      validity.DiscountPercent,
		TaxPercent:           validity.TaxPercent,
		HandlingFeePercent:   validity.HandlingFeePercent,
		NumberOfInstallments: req.NumberOfInstallments,
		PlanDurationMonths:   validity.DurationMonths,
	}, services.DefaultMinimumInstallment)
	if err != nil {
		return respondError(c, err)
	}

	plan, err := h.plans.UpsertPlan(ctx, req.CourseID, req.PlanType, entries, total, validity.DiscountPercent)
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, plan)
}

// ListPlans returns all plan templates for a course.
func (h *PlanHandler) ListPlans(c echo.Context) error {
	courseID, err := strconv.ParseUint(c.QueryParam("course_id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid course_id")
	}

	plans, err := h.plans.ListPlans(c.Request().Context(), uint(courseID))
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, plans)
}

// GetPlan returns one plan template.
func (h *PlanHandler) GetPlan(c echo.Context) error {
	courseID, err := strconv.ParseUint(c.Param("courseID"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid course ID")
	}

	plan, err := h.plans.GetPlan(c.Request().Context(), uint(courseID), c.Param("planType"))
	if err != nil {
		return respondError(c, err)
	}
	return respondData(c, http.StatusOK, plan)
}
