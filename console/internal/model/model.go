package model

import (
	"time"

	"github.com/Astemirdum/equipment-lending/pkg/lifecycle"
)

type Equipment struct {
	ID                   int64     `json:"id"`
	Name                 string    `json:"name"`
	Category             string    `json:"category"`
	ConditionDescription string    `json:"conditionDescription"`
	Description          string    `json:"description"`
	TotalQuantity        int       `json:"totalQuantity"`
	AvailableQuantity    int       `json:"availableQuantity"`
	CreatedAt            time.Time `json:"createdAt"`
}

type EquipmentInput struct {
	Name                 string `json:"name"`
	Category             string `json:"category"`
	ConditionDescription string `json:"conditionDescription"`
	Description          string `json:"description"`
	TotalQuantity        int    `json:"totalQuantity"`
}

type BorrowRequest struct {
	ID                int64            `json:"id"`
	UserID            int64            `json:"userId"`
	EquipmentID       int64            `json:"equipmentId"`
	Equipment         *Equipment       `json:"equipment,omitempty"`
	QuantityRequested int              `json:"quantityRequested"`
	StartDate         time.Time        `json:"startDate"`
	EndDate           time.Time        `json:"endDate"`
	Status            lifecycle.Status `json:"status"`
	AdminComment      string           `json:"adminComment"`
	Overdue           bool             `json:"overdue"`
	CreatedAt         time.Time        `json:"createdAt"`
	UpdatedAt         time.Time        `json:"updatedAt"`
}

type CreateBorrowRequest struct {
	EquipmentID int64     `json:"equipmentId"`
	Quantity    int       `json:"quantityRequested"`
	StartDate   time.Time `json:"startDate"`
	EndDate     time.Time `json:"endDate"`
}

type ActionRequest struct {
	Comment string `json:"comment,omitempty"`
}

type User struct {
	ID    int64          `json:"id"`
	Name  string         `json:"name"`
	Email string         `json:"email"`
	Role  lifecycle.Role `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignUpRequest struct {
	Name     string         `json:"name"`
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Role     lifecycle.Role `json:"role,omitempty"`
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

type Notification struct {
	ID        int64     `json:"id"`
	LoanID    int64     `json:"loanId"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

type OverdueCheckResult struct {
	Flagged int `json:"flagged"`
}
