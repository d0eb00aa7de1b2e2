package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"github.com/Astemirdum/equipment-lending/pkg/auth"
	"github.com/Astemirdum/equipment-lending/pkg/lifecycle"
	md "github.com/Astemirdum/equipment-lending/pkg/middleware"
	"github.com/Astemirdum/equipment-lending/pkg/validate"
	"github.com/Astemirdum/equipment-lending/portal/internal/errs"
	_ "github.com/Astemirdum/equipment-lending/swagger"
)

type Services struct {
	Equipment    EquipmentService
	Borrow       BorrowService
	User         UserService
	Notification NotificationService
}

type Handler struct {
	equipmentSvc    EquipmentService
	borrowSvc       BorrowService
	userSvc         UserService
	notificationSvc NotificationService
	authCfg         auth.Config
	log             *zap.Logger
}

func New(svc Services, authCfg auth.Config, log *zap.Logger) *Handler {
	return &Handler{
		equipmentSvc:    svc.Equipment,
		borrowSvc:       svc.Borrow,
		userSvc:         svc.User,
		notificationSvc: svc.Notification,
		authCfg:         authCfg,
		log:             log,
	}
}

func (h *Handler) NewRouter() *echo.Echo {
	e := echo.New()
	const (
		baseRPS = 10
		apiRPS  = 100
	)
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 4 << 10, // 4 KB
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodOptions, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)
	base.GET("/swagger/*", echoSwagger.WrapHandler)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig(h.log)),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)
	api.POST("/users/signup", h.SignUp, md.OptionalJwtAuthentication(h.authCfg))
	api.POST("/users/login", h.Login)

	var (
		authed    = api.Group("", md.JwtAuthentication(h.authCfg))
		adminOnly = md.RequireRole(lifecycle.RoleAdmin)
		reviewers = md.RequireRole(lifecycle.RoleStaff, lifecycle.RoleAdmin)
		borrowers = md.RequireRole(lifecycle.RoleStudent, lifecycle.RoleStaff)
	)

	authed.GET("/equipment", h.ListEquipment)
	authed.GET("/equipment/:id", h.GetEquipment)
	authed.POST("/equipment", h.CreateEquipment, adminOnly)
	authed.PUT("/equipment/:id", h.UpdateEquipment, adminOnly)
	authed.DELETE("/equipment/:id", h.DeleteEquipment, adminOnly)

	authed.GET("/borrow/pending", h.ListPending, reviewers)
	authed.GET("/borrow/issued", h.ListIssued, reviewers)
	authed.GET("/borrow/my", h.ListMine, borrowers)
	authed.POST("/borrow/request", h.CreateBorrowRequest, borrowers)
	authed.PUT("/borrow/:id/approve", h.Approve, reviewers)
	authed.PUT("/borrow/:id/reject", h.Reject, reviewers)
	authed.PUT("/borrow/:id/issue", h.Issue, reviewers)
	authed.PUT("/borrow/:id/return", h.Return, reviewers)

	authed.GET("/users", h.ListUsers, reviewers)
	authed.GET("/users/:id", h.GetUser)

	authed.GET("/notifications/overdue", h.ListOverdue)
	authed.POST("/notifications/overdue/check", h.CheckOverdue, adminOnly)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id is invalid")
	}
	return id, nil
}

func actor(c echo.Context) (auth.Profile, error) {
	p, err := auth.GetProfile(c.Request().Context())
	if err != nil {
		return auth.Profile{}, echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	return p, nil
}

// httpError maps domain errors onto the status codes clients branch on.
func httpError(err error) *echo.HTTPError {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, errs.ErrInvalidCredentials):
		code = http.StatusUnauthorized
	case errors.Is(err, lifecycle.ErrForbidden), errors.Is(err, errs.ErrForbidden):
		code = http.StatusForbidden
	case errors.Is(err, lifecycle.ErrIllegalTransition),
		errors.Is(err, lifecycle.ErrUnavailable),
		errors.Is(err, lifecycle.ErrInsufficientStock),
		errors.Is(err, lifecycle.ErrActiveRequests),
		errors.Is(err, errs.ErrConflict),
		errors.Is(err, errs.ErrHasHistory),
		errors.Is(err, errs.ErrEmailTaken):
		code = http.StatusConflict
	case errors.Is(err, lifecycle.ErrCommentRequired),
		errors.Is(err, lifecycle.ErrInvalidQuantity),
		errors.Is(err, lifecycle.ErrInvalidDates),
		errors.Is(err, lifecycle.ErrEquipmentRequired),
		errors.Is(err, lifecycle.ErrStockInvariant),
		errors.Is(err, errs.ErrNameRequired):
		code = http.StatusBadRequest
	}
	return echo.NewHTTPError(code, err.Error())
}
