package model

import (
	"time"

	"github.com/Astemirdum/equipment-lending/pkg/lifecycle"
)

type Equipment struct {
	ID                   int64     `json:"id" db:"id"`
	Name                 string    `json:"name" db:"name"`
	Category             string    `json:"category" db:"category"`
	ConditionDescription string    `json:"conditionDescription" db:"condition_description"`
	Description          string    `json:"description" db:"description"`
	TotalQuantity        int       `json:"totalQuantity" db:"total_quantity"`
	AvailableQuantity    int       `json:"availableQuantity" db:"available_quantity"`
	CreatedAt            time.Time `json:"createdAt" db:"created_at"`
}

func (e Equipment) Stock() lifecycle.Stock {
	return lifecycle.Stock{Total: e.TotalQuantity, Available: e.AvailableQuantity}
}

type EquipmentInput struct {
	Name                 string `json:"name" validate:"required"`
	Category             string `json:"category"`
	ConditionDescription string `json:"conditionDescription"`
	Description          string `json:"description"`
	TotalQuantity        int    `json:"totalQuantity" validate:"gte=0"`
}

type BorrowRequest struct {
	ID                int64            `json:"id" db:"id"`
	UserID            int64            `json:"userId" db:"user_id"`
	EquipmentID       int64            `json:"equipmentId" db:"equipment_id"`
	Equipment         *Equipment       `json:"equipment,omitempty" db:"-"`
	QuantityRequested int              `json:"quantityRequested" db:"quantity_requested"`
	StartDate         time.Time        `json:"startDate" db:"start_date"`
	EndDate           time.Time        `json:"endDate" db:"end_date"`
	Status            lifecycle.Status `json:"status" db:"status"`
	AdminComment      string           `json:"adminComment" db:"admin_comment"`
	Overdue           bool             `json:"overdue" db:"overdue"`
	CreatedAt         time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time        `json:"updatedAt" db:"updated_at"`
}

type CreateBorrowRequest struct {
	EquipmentID int64     `json:"equipmentId" validate:"required,gt=0"`
	Quantity    int       `json:"quantityRequested" validate:"gte=1"`
	StartDate   time.Time `json:"startDate" validate:"required"`
	EndDate     time.Time `json:"endDate" validate:"required"`
}

type ActionRequest struct {
	Comment string `json:"comment"`
}

// Transition is the locked snapshot a lifecycle step runs against.
type Transition struct {
	Request BorrowRequest
	Stock   lifecycle.Stock
}

type User struct {
	ID           int64          `json:"id" db:"id"`
	Name         string         `json:"name" db:"name"`
	Email        string         `json:"email" db:"email"`
	Role         lifecycle.Role `json:"role" db:"role"`
	PasswordHash string         `json:"-" db:"password_hash"`
	CreatedAt    time.Time      `json:"createdAt" db:"created_at"`
}

type SignUpRequest struct {
	Name     string         `json:"name" validate:"required"`
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"required,min=6"`
	Role     lifecycle.Role `json:"role" validate:"omitempty,oneof=STUDENT STAFF ADMIN"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

type Notification struct {
	ID        int64     `json:"id" db:"id"`
	LoanID    int64     `json:"loanId" db:"loan_id"`
	Message   string    `json:"message" db:"message"`
	Read      bool      `json:"read" db:"is_read"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type OverdueCheckResult struct {
	Flagged int `json:"flagged"`
}
