package contact

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

// Checker labels contacts without persisting them
type Checker interface {
	CheckContact(ctx context.Context, contact *models.Contact, opts *matching.CheckOptions) (*matching.ContactCheckResult, error)
}

// Saver persists labeled contacts and re-evaluates their dependents
type Saver interface {
	SaveContact(ctx context.Context, contact *models.Contact, opts *matching.CheckOptions) (*disposition.ContactSaveResult, error)
	ReevaluateContact(ctx context.Context, id string) (*disposition.Cascade, error)
}

// Request is the body of every contact check and save
type Request struct {
	models.UpsertContactRequest
	Options *matching.CheckOptions `json:"options,omitempty"`
}

// Handler serves the contact routes
type Handler struct {
	checker Checker
	saver   Saver
}

// NewHandler creates a new contact handler
func NewHandler(checker Checker, saver Saver) *Handler {
	return &Handler{
		checker: checker,
		saver:   saver,
	}
}

// Register registers contact routes
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
	if err := validate.Struct(req.UpsertContactRequest); err != nil {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return &req, nil
}

// Check labels a contact without saving it. A set id checks the contact
// as an edit of that record.
func (h *Handler) Check(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "contact_handler.Check")
	defer span.End()

	req, err := bind(c)
	if err != nil {
		return err
	}

	result, err := h.checker.CheckContact(ctx, req.ToContact(c.QueryParam("id")), req.Options)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Create labels and saves a new contact
func (h *Handler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "contact_handler.Create")
	defer span.End()

	req, err := bind(c)
	if err != nil {
		return err
	}

	result, err := h.saver.SaveContact(ctx, req.ToContact(""), req.Options)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, result)
}

// Update relabels and saves an existing contact
func (h *Handler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "contact_handler.Update")
	defer span.End()

	id := c.Param("id")
	req, err := bind(c)
	if err != nil {
		return err
	}

	result, err := h.saver.SaveContact(ctx, req.ToContact(id), req.Options)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// Reevaluate re-checks the contacts labeled as duplicates of a contact
func (h *Handler) Reevaluate(c echo.Context) error {
	ctx := c.Request().Context()
	ctx, span := tracing.StartSpan(ctx, "contact_handler.Reevaluate")
	defer span.End()

	cascade, err := h.saver.ReevaluateContact(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	status := http.StatusOK
	if cascade.Failed() {
		status = http.StatusMultiStatus
	}
	return c.JSON(status, cascade)
}
