package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"coursepay_echo/internal/models"
)

// CourseDirectory resolves courses and the pricing terms of their plan
// labels. Course content management lives elsewhere; billing only reads.
type CourseDirectory interface {
	GetCourse(ctx context.Context, courseID uint) (*models.Course, error)
	GetSubscriptionValidity(ctx context.Context, courseID uint, planLabel string) (*models.SubscriptionValidity, error)
}

// AccessGranter is the enrollment collaborator notified once the final
// installment clears.
type AccessGranter interface {
	GrantCourseAccess(ctx context.Context, userID, courseID uint) error
}

// DBCourseDirectory reads courses and subscription validities from the local
// database tables the catalog service syncs into.
type DBCourseDirectory struct {
	db *gorm.DB
}

func NewDBCourseDirectory(db *gorm.DB) *DBCourseDirectory {
	return &DBCourseDirectory{db: db}
}

func (d *DBCourseDirectory) GetCourse(ctx context.Context, courseID uint) (*models.Course, error) {
	var course models.Course
	if err := d.db.WithContext(ctx).First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id %d", ErrCourseNotFound, courseID)
		}
		return nil, err
	}
	return &course, nil
}

func (d *DBCourseDirectory) GetSubscriptionValidity(ctx context.Context, courseID uint, planLabel string) (*models.SubscriptionValidity, error) {
	var validity models.SubscriptionValidity
	err := d.db.WithContext(ctx).
		Where("course_id = ? AND plan_label = ?", courseID, planLabel).
		First(&validity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: course %d label %q", ErrSubscriptionNotFound, courseID, planLabel)
		}
		return nil, err
	}
	return &validity, nil
}

// LogAccessGranter is the default sink when no enrollment service is wired:
// it records the grant so operations can replay it.
type LogAccessGranter struct{}

func (LogAccessGranter) GrantCourseAccess(_ context.Context, userID, courseID uint) error {
	log.Printf("course access granted: user=%d course=%d", userID, courseID)
	return nil
}
