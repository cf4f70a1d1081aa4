package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"coursepay_echo/internal/models"
)

// PlanService is the authoritative store for installment plan templates.
// One plan per (course, planType); upserts replace the template in place and
// never touch existing enrollments, which hold their own frozen snapshot.
type PlanService struct {
	db    *gorm.DB
	cache *RedisCache
}

func NewPlanService(db *gorm.DB, cache *RedisCache) *PlanService {
	return &PlanService{db: db, cache: cache}
}

func planListCacheKey(courseID uint) string {
	return fmt.Sprintf("plans:course:%d", courseID)
}

// UpsertPlan creates or replaces the plan template for (courseID, planType).
func (s *PlanService) UpsertPlan(ctx context.Context, courseID uint, planType string, entries []models.PlanInstallment, totalAmount, discountPercent float64) (*models.InstallmentPlan, error) {
	var plan models.InstallmentPlan
	err := s.db.WithContext(ctx).
		Where("course_id = ? AND plan_type = ?", courseID, planType).
		First(&plan).Error

	switch {
	case err == nil:
		plan.NumberOfInstallments = len(entries)
		plan.Installments = entries
		plan.TotalAmount = totalAmount
		plan.RemainingAmount = totalAmount
		plan.DiscountPercent = discountPercent
		plan.Status = models.PlanStatusPending
		if err := s.db.WithContext(ctx).Save(&plan).Error; err != nil {
			return nil, err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		plan = models.InstallmentPlan{
			CourseID:             courseID,
			PlanType:             planType,
			NumberOfInstallments: len(entries),
			Installments:         entries,
			TotalAmount:          totalAmount,
			RemainingAmount:      totalAmount,
			DiscountPercent:      discountPercent,
			Status:               models.PlanStatusPending,
		}
		if err := s.db.WithContext(ctx).Create(&plan).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.Delete(ctx, planListCacheKey(courseID))
	}
	return &plan, nil
}

// GetPlan fetches the plan template for (courseID, planType).
func (s *PlanService) GetPlan(ctx context.Context, courseID uint, planType string) (*models.InstallmentPlan, error) {
	var plan models.InstallmentPlan
	err := s.db.WithContext(ctx).
		Where("course_id = ? AND plan_type = ?", courseID, planType).
		First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: course %d type %q", ErrPlanNotFound, courseID, planType)
		}
		return nil, err
	}
	return &plan, nil
}

// ListPlans returns all plan templates for a course, cached briefly since the
// admin rarely edits them.
func (s *PlanService) ListPlans(ctx context.Context, courseID uint) ([]models.InstallmentPlan, error) {
	fetch := func() ([]models.InstallmentPlan, error) {
		var plans []models.InstallmentPlan
		if err := s.db.WithContext(ctx).Where("course_id = ?", courseID).Find(&plans).Error; err != nil {
			return nil, err
		}
		return plans, nil
	}

	if s.cache == nil {
		return fetch()
	}
	return GetOrSet(s.cache, ctx, planListCacheKey(courseID), 5*time.Minute, fetch)
}
