package models

import (
	"time"

	"gorm.io/gorm"
)

// PlanStatus is the advisory lifecycle of a plan template.
type PlanStatus string

const (
	PlanStatusPending   PlanStatus = "pending"
	PlanStatusCompleted PlanStatus = "completed"
)

// PlanInstallment is one scheduled partial payment inside a plan template.
// DueDateOffset is measured in months from the enrollment anchor date.
// IsPaid is a leftover template flag; once a UserLedger exists it must never
// be read as ground truth.
type PlanInstallment struct {
	Amount        float64 `json:"amount"`
	DueDateOffset int     `json:"due_date_offset"`
	IsPaid        bool    `json:"is_paid"`
}

// InstallmentPlan is the admin-defined template of installments for one
// course + plan type. Enrollments copy it into a frozen snapshot, so editing
// a plan never changes what an already-enrolled user owes.
type InstallmentPlan struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	CourseID             uint              `gorm:"index;uniqueIndex:idx_installment_plans_course_plan_type" json:"course_id"`
	PlanType             string            `gorm:"type:varchar(100);uniqueIndex:idx_installment_plans_course_plan_type" json:"plan_type"`
	NumberOfInstallments int               `json:"number_of_installments"`
	Installments         []PlanInstallment `gorm:"serializer:json;type:jsonb" json:"installments"`
	TotalAmount          float64           `gorm:"type:decimal(15,2)" json:"total_amount"`
	RemainingAmount      float64           `gorm:"type:decimal(15,2)" json:"remaining_amount"` // advisory, template level
	DiscountPercent      float64           `gorm:"type:decimal(5,2)" json:"discount_percent"`
	Status               PlanStatus        `gorm:"type:varchar(20);default:'pending'" json:"status"`

	Course Course `gorm:"foreignKey:CourseID" json:"course,omitempty"`
}
