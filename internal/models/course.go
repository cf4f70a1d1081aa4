package models

import (
	"time"

	"gorm.io/gorm"
)

// Course is the catalog entry a plan or enrollment hangs off. Content,
// quizzes and live classes live in other services; billing only needs
// the title and list price.
type Course struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Title string  `gorm:"type:varchar(255)" json:"title"`
	Price float64 `gorm:"type:decimal(15,2)" json:"price"`
}

// SubscriptionValidity holds the pricing terms for one course + plan label,
// e.g. ("6 months": 10% discount, 18% tax).
type SubscriptionValidity struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	CourseID           uint    `gorm:"index;uniqueIndex:idx_subscription_validities_course_label" json:"course_id"`
	PlanLabel          string  `gorm:"type:varchar(100);uniqueIndex:idx_subscription_validities_course_label" json:"plan_label"`
	DurationMonths     int     `json:"duration_months"`
	DiscountPercent    float64 `gorm:"type:decimal(5,2)" json:"discount_percent"`
	TaxPercent         float64 `gorm:"type:decimal(5,2)" json:"tax_percent"`
	HandlingFeePercent float64 `gorm:"type:decimal(5,2)" json:"handling_fee_percent"`

	Course Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}
