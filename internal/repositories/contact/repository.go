package contact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

const table = "contacts"

var columns = []string{
	"id", "project_id", "client_id", "account_id",
	"first_name", "last_name", "email", "phone", "company_name",
	"email_key", "email_dedupe_key", "phone_dedupe_key", "company_dedupe_key",
	"email_name_dedupe_key", "email_domain_dedupe_key",
	"label", "duplicate_of", "created_at", "updated_at",
}

// Repository handles contact persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new contact repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// FindByID retrieves a contact by ID, returning nil when it does not exist
func (r *Repository) FindByID(ctx context.Context, id string) (*models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.FindByID")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var contact models.Contact
	if err := database.Conn(ctx, r.db).GetContext(ctx, &contact, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("contact_id", id).Error("Failed to get contact")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get contact")
	}

	return &contact, nil
}

// Create inserts a new contact, assigning an ID when none is set
func (r *Repository) Create(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Create")
	defer span.End()

	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	contact.CreatedAt = time.Now().UTC()
	contact.UpdatedAt = contact.CreatedAt
	if contact.Label == "" {
		contact.Label = models.LabelInclusion
	}

	query, args := buildCreate(contact)
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("contact_id", contact.ID).Error("Failed to create contact")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create contact")
	}

	return contact, nil
}

// Update replaces the business fields, keys and disposition of a contact
func (r *Repository) Update(ctx context.Context, contact *models.Contact) (*models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Update")
	defer span.End()

	contact.UpdatedAt = time.Now().UTC()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("account_id", contact.AccountID),
		ub.Assign("first_name", contact.FirstName),
		ub.Assign("last_name", contact.LastName),
		ub.Assign("email", contact.EmailAddr),
		ub.Assign("phone", contact.Phone),
		ub.Assign("company_name", contact.CompanyName),
	)
	ub.SetMore(keyAssignments(ub, contact)...)
	ub.Where(
		ub.Equal("id", contact.ID),
		ub.Equal("project_id", contact.ProjectID),
	)

	query, args := ub.Build()
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("contact_id", contact.ID).Error("Failed to update contact")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update contact")
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("contact %s not found", contact.ID))
	}

	return contact, nil
}

// UpdateDisposition writes the keys and label of a contact
func (r *Repository) UpdateDisposition(ctx context.Context, contact *models.Contact) error {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.UpdateDisposition")
	defer span.End()

	contact.UpdatedAt = time.Now().UTC()

	query, args := buildUpdateDisposition(contact)
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"contact_id": contact.ID,
			"label":      contact.Label,
		}).Error("Failed to update contact disposition")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update contact disposition")
	}

	return nil
}

// FindDuplicate returns the non-duplicate contact in the project matching the
// highest-priority clause, or nil when none matches.
func (r *Repository) FindDuplicate(ctx context.Context, q matching.DuplicateQuery) (*models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.FindDuplicate")
	defer span.End()

	if len(q.Clauses) == 0 {
		return nil, nil
	}

	query, args := buildFindDuplicate(q)
	var contact models.Contact
	if err := database.Conn(ctx, r.db).GetContext(ctx, &contact, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("project_id", q.ProjectID).Error("Failed to find duplicate contact")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find duplicate contact")
	}

	return &contact, nil
}

// ListByDuplicateOf returns the contacts in the project labeled as duplicates of id
func (r *Repository) ListByDuplicateOf(ctx context.Context, projectID string, id string) ([]models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.ListByDuplicateOf")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("project_id", projectID),
		sb.Equal("duplicate_of", id),
	)
	sb.OrderBy("id")

	query, args := sb.Build()
	var contacts []models.Contact
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &contacts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("contact_id", id).Error("Failed to list dependent contacts")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list dependent contacts")
	}

	return contacts, nil
}

func buildCreate(c *models.Contact) (string, []any) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols(columns...)
	ib.Values(
		c.ID, c.ProjectID, c.ClientID, c.AccountID,
		c.FirstName, c.LastName, c.EmailAddr, c.Phone, c.CompanyName,
		c.Email, c.EmailDedupeKey, c.PhoneDedupeKey, c.CompanyDedupeKey,
		c.EmailNameDedupeKey, c.EmailDomainDedupeKey,
		c.Label, c.DuplicateOf, c.CreatedAt, c.UpdatedAt,
	)
	return ib.Build()
}

func keyAssignments(ub *sqlbuilder.UpdateBuilder, c *models.Contact) []string {
	return []string{
		ub.Assign("email_key", c.Email),
		ub.Assign("email_dedupe_key", c.EmailDedupeKey),
		ub.Assign("phone_dedupe_key", c.PhoneDedupeKey),
		ub.Assign("company_dedupe_key", c.CompanyDedupeKey),
		ub.Assign("email_name_dedupe_key", c.EmailNameDedupeKey),
		ub.Assign("email_domain_dedupe_key", c.EmailDomainDedupeKey),
		ub.Assign("label", c.Label),
		ub.Assign("duplicate_of", c.DuplicateOf),
		ub.Assign("updated_at", c.UpdatedAt),
	}
}

func buildUpdateDisposition(c *models.Contact) (string, []any) {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(keyAssignments(ub, c)...)
	ub.Where(ub.Equal("id", c.ID))
	return ub.Build()
}

func buildFindDuplicate(q matching.DuplicateQuery) (string, []any) {
	matches := make([]database.Match, 0, len(q.Clauses))
	for _, c := range q.Clauses {
		matches = append(matches, database.Match{Column: c.Column, Value: c.Value})
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	where := []string{
		sb.Equal("project_id", q.ProjectID),
		sb.IsNull("duplicate_of"),
		database.AnyOf(sb, matches),
	}
	if q.ExcludeID != "" {
		where = append(where, sb.NotEqual("id", q.ExcludeID))
	}
	sb.Where(where...)
	sb.OrderBy(database.PriorityOrder(sb, matches), "created_at", "id")
	sb.Limit(1)
	return sb.Build()
}
