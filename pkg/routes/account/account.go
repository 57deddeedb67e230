package account

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/thistle/pkg/disposition"
	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

var validate = validator.New()

// Checker labels accounts without persisting them
type Checker interface {
	CheckAccount(ctx context.Context, account *models.Account, opts *matching.CheckOptions) (*matching.AccountCheckResult, error)
}

// Saver persists labeled accounts and re-evaluates their dependents
type Saver interface {
	SaveAccount(ctx context.Context, account *models.Account, opts *matching.CheckOptions) (*disposition.AccountSaveResult, error)
	ReevaluateAccount(ctx context.Context, id string) (*disposition.Cascade, error)
}

// Request is the body of every account check and save
type Request struct {
	models.UpsertAccountRequest
	Options *matching.CheckOptions `json:"options,omitempty"`
}

// Handler serves the account routes
type Handler struct {
	checker Checker
	saver   Saver
}

// NewHandler creates a new account handler
func NewHandler(checker Checker, saver Saver) *Handler {
	return &Handler{
		checker: checker,
		saver:   saver,
	}
}

// Register registers account routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("/check", h.Check)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.POST("/:id/reevaluate", h.Reevaluate)
}

func bind(c echo.Context) (*Request, error) {
	var req Request
	if err := c.Bind(&req); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req.UpsertAccountRequest); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return &req, nil
}

// Check labels an account without saving it. A set id checks the account
// as an edit of that record.
func (h *Handler) Check(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "account_handler.Check")
	defer span.End()

	req, err := bind(c)
	if err != nil {
		return err
	}

	result, err := h.checker.CheckAccount(ctx, req.ToAccount(c.QueryParam("id")), req.Options)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Create labels and saves a new account
func (h *Handler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "account_handler.Create")
	defer span.End()

	req, err := bind(c)
	if err != nil {
		return err
	}

	result, err := h.saver.SaveAccount(ctx, req.ToAccount(""), req.Options)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, result)
}

// Update relabels and saves an existing account
func (h *Handler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "account_handler.Update")
	defer span.End()

	id := c.Param("id")
	req, err := bind(c)
	if err != nil {
		return err
	}

	result, err := h.saver.SaveAccount(ctx, req.ToAccount(id), req.Options)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Reevaluate re-checks the accounts labeled as duplicates of an account
func (h *Handler) Reevaluate(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "account_handler.Reevaluate")
	defer span.End()

	cascade, err := h.saver.ReevaluateAccount(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	status := http.StatusOK
	if cascade.Failed() {
		status = http.StatusMultiStatus
	}
	return c.JSON(status, cascade)
}
