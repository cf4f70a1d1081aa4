package models

import (
	"time"

	"gorm.io/gorm"
)

// UserType represents the type of user
type UserType string

const (
	UserTypeAdmin   UserType = "Admin"
	UserTypeStudent UserType = "Student"
)

// User represents a user in the system
type User struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name     string   `gorm:"type:varchar(255)" json:"name"`
	Phone    string   `gorm:"type:varchar(50)" json:"phone"`
	Email    string   `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	UserType UserType `gorm:"type:varchar(20);default:'Student'" json:"user_type"`

	// Relationships
	Ledgers       []UserLedger   `gorm:"foreignKey:UserID" json:"ledgers,omitempty"`
	PaymentOrders []PaymentOrder `gorm:"foreignKey:UserID" json:"payment_orders,omitempty"`
}
