package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	md "github.com/Astemirdum/rental-service/pkg/middleware"
	"github.com/Astemirdum/rental-service/pkg/validate"
	"github.com/Astemirdum/rental-service/rental/internal/errs"
	"github.com/Astemirdum/rental-service/rental/internal/model"
)

type Handler struct {
	rentalSvc RentalService
	statsSvc  StatsService
	notifySvc NotifyService
	log       *zap.Logger
}

func New(rentalSvc RentalService, statsSvc StatsService, notifySvc NotifyService, log *zap.Logger) *Handler {
	return &Handler{
		rentalSvc: rentalSvc,
		statsSvc:  statsSvc,
		notifySvc: notifySvc,
		log:       log,
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
		AllowCredentials: true,
	}))

	base := e.Group("", md.NewRateLimiter(baseRPS))
	base.GET("/manage/health", h.Health)

	e.Validator = validate.NewCustomValidator()
	api := e.Group("/api/v1",
		middleware.RequestLoggerWithConfig(md.RequestLoggerConfig()),
		middleware.RequestID(),
		md.NewRateLimiter(apiRPS),
	)

	api.GET("/books", h.SearchBooks)
	api.POST("/books", h.CreateBook)
	api.POST("/users", h.CreateUser)

	api.POST("/rentals", h.RentBook)
	api.POST("/rentals/return", h.ReturnBook)
	api.GET("/users/:username/rentals", h.GetRentalHistory)

	api.GET("/stats/books", h.GetBookStatistics)
	api.POST("/notifications/overdue", h.NotifyOverdue)

	return e
}

func (h *Handler) Health(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

type rentRequest struct {
	Username  string `json:"username" validate:"required"`
	BookTitle string `json:"bookTitle" validate:"required"`
}

type returnRequest struct {
	BookTitle string `json:"bookTitle" validate:"required"`
}

type createBookRequest struct {
	Title  string `json:"title" validate:"required"`
	Author string `json:"author" validate:"required"`
	ISBN   string `json:"isbn"`
	Genre  string `json:"genre"`
}

type createUserRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

type rentResponse struct {
	Success bool          `json:"success"`
	Rental  *model.Rental `json:"rental,omitempty"`
}

type returnResponse struct {
	Success bool `json:"success"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (h *Handler) SearchBooks(c echo.Context) error {
	ctx := c.Request().Context()

	books, err := h.rentalSvc.Search(ctx, c.QueryParam("title"), c.QueryParam("genre"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, books)
}

func (h *Handler) RentBook(c echo.Context) error {
	var req rentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	rental, err := h.rentalSvc.Rent(c.Request().Context(), req.Username, req.BookTitle)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, rentResponse{Success: true, Rental: &rental})
}

func (h *Handler) ReturnBook(c echo.Context) error {
	var req returnRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	if _, err := h.rentalSvc.Return(c.Request().Context(), req.BookTitle); err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, returnResponse{Success: true})
}

func (h *Handler) GetRentalHistory(c echo.Context) error {
	username := c.Param("username")
	if username == "" {
		return echo.NewHTTPError(http.StatusBadRequest, errors.New("empty username"))
	}

	records, err := h.rentalSvc.HistoryFor(c.Request().Context(), username)
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusOK, records)
}

func (h *Handler) CreateBook(c echo.Context) error {
	var req createBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	book, err := h.rentalSvc.AddBook(c.Request().Context(), model.Book{
		Title:  req.Title,
		Author: req.Author,
		ISBN:   req.ISBN,
		Genre:  req.Genre,
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, book)
}

func (h *Handler) CreateUser(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(req); err != nil {
		return err
	}

	user, err := h.rentalSvc.AddUser(c.Request().Context(), model.User{
		Name:  req.Name,
		Email: req.Email,
	})
	if err != nil {
		return h.respondError(c, err)
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *Handler) GetBookStatistics(c echo.Context) error {
	stat, err := h.statsSvc.Report(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stat)
}

func (h *Handler) NotifyOverdue(c echo.Context) error {
	sent, err := h.notifySvc.NotifyOverdue(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]int{"notices": sent})
}

func (h *Handler) respondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errs.IsNotFound(err):
		status = http.StatusNotFound
	case errs.IsConflict(err), errors.Is(err, errs.ErrDuplicate):
		status = http.StatusConflict
	}
	return c.JSON(status, errorResponse{
		Success: false,
		Code:    string(errs.CodeOf(err)),
		Message: err.Error(),
	})
}
