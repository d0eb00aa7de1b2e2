package handler

import (
	"context"

	"github.com/Astemirdum/equipment-lending/pkg/auth"
	"github.com/Astemirdum/equipment-lending/portal/internal/model"
	"github.com/Astemirdum/equipment-lending/portal/internal/service"
)

//go:generate go run github.com/golang/mock/mockgen -source=service.go -destination=mocks/mock.go

var (
	_ EquipmentService    = (*service.Service)(nil)
	_ BorrowService       = (*service.Service)(nil)
	_ UserService         = (*service.Service)(nil)
	_ NotificationService = (*service.Service)(nil)
)

type EquipmentService interface {
	ListEquipment(ctx context.Context) ([]model.Equipment, error)
	GetEquipment(ctx context.Context, id int64) (model.Equipment, error)
	CreateEquipment(ctx context.Context, in model.EquipmentInput) (model.Equipment, error)
	UpdateEquipment(ctx context.Context, id int64, in model.EquipmentInput) (model.Equipment, error)
	DeleteEquipment(ctx context.Context, id int64) error
}

type BorrowService interface {
	CreateBorrowRequest(ctx context.Context, actor auth.Profile, req model.CreateBorrowRequest) (model.BorrowRequest, error)
	ListPending(ctx context.Context) ([]model.BorrowRequest, error)
	ListIssued(ctx context.Context) ([]model.BorrowRequest, error)
	ListMine(ctx context.Context, actor auth.Profile) ([]model.BorrowRequest, error)
	Approve(ctx context.Context, actor auth.Profile, id int64, comment string) (model.BorrowRequest, error)
	Reject(ctx context.Context, actor auth.Profile, id int64, comment string) (model.BorrowRequest, error)
	Issue(ctx context.Context, actor auth.Profile, id int64) (model.BorrowRequest, error)
	Return(ctx context.Context, actor auth.Profile, id int64) (model.BorrowRequest, error)
}

type UserService interface {
	SignUp(ctx context.Context, req model.SignUpRequest) (model.TokenResponse, error)
	Login(ctx context.Context, req model.LoginRequest) (model.TokenResponse, error)
	GetUser(ctx context.Context, actor auth.Profile, id int64) (model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
}

type NotificationService interface {
	ListOverdueNotifications(ctx context.Context) ([]model.Notification, error)
	CheckOverdue(ctx context.Context) ([]model.Notification, error)
}
