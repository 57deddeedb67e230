package account

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

const table = "accounts"

var columns = []string{
	"id", "project_id", "client_id", "name", "website", "alias",
	"domain", "scrubbed_name", "alias_name", "tokens",
	"label", "duplicate_of", "created_at", "updated_at",
}

// Repository handles account persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new account repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// FindByID retrieves an account by ID, returning nil when it does not exist
func (r *Repository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	ctx, span := tracing.StartSpan(ctx, "account.Repository.FindByID")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	query, args := buildFindByID(id)
	var account models.Account
	if err := database.Conn(ctx, r.db).GetContext(ctx, &account, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("account_id", id).Error("Failed to get account")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to get account")
	}

	return &account, nil
}

// Create inserts a new account, assigning an ID when none is set
func (r *Repository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	ctx, span := tracing.StartSpan(ctx, "account.Repository.Create")
	defer span.End()

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	account.CreatedAt = time.Now().UTC()
	account.UpdatedAt = account.CreatedAt
	if account.Label == "" {
		account.Label = models.LabelInclusion
	}

	query, args := buildCreate(account)
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("account_id", account.ID).Error("Failed to create account")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to create account")
	}

	return account, nil
}

// Update replaces the business fields, keys and disposition of an account
func (r *Repository) Update(ctx context.Context, account *models.Account) (*models.Account, error) {
	ctx, span := tracing.StartSpan(ctx, "account.Repository.Update")
	defer span.End()

	account.UpdatedAt = time.Now().UTC()

	query, args := buildUpdate(account)
	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("account_id", account.ID).Error("Failed to update account")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to update account")
	}
	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("account %s not found", account.ID))
	}

	return account, nil
}

// UpdateDisposition writes the keys and label of an account
func (r *Repository) UpdateDisposition(ctx context.Context, account *models.Account) error {
	ctx, span := tracing.StartSpan(ctx, "account.Repository.UpdateDisposition")
	defer span.End()

	account.UpdatedAt = time.Now().UTC()

	query, args := buildUpdateDisposition(account)
	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"account_id": account.ID,
			"label":      account.Label,
		}).Error("Failed to update account disposition")
		return httperror.NewHTTPError(http.StatusInternalServerError, "failed to update account disposition")
	}

	return nil
}

// FindDuplicate returns the non-duplicate account in the project matching the
// highest-priority clause, or nil when none matches.
func (r *Repository) FindDuplicate(ctx context.Context, q matching.DuplicateQuery) (*models.Account, error) {
	ctx, span := tracing.StartSpan(ctx, "account.Repository.FindDuplicate")
	defer span.End()

	if len(q.Clauses) == 0 {
		return nil, nil
	}

	query, args := buildFindDuplicate(q)
	var account models.Account
	if err := database.Conn(ctx, r.db).GetContext(ctx, &account, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("project_id", q.ProjectID).Error("Failed to find duplicate account")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find duplicate account")
	}

	return &account, nil
}

// ListByDuplicateOf returns the accounts in the project labeled as duplicates of id
func (r *Repository) ListByDuplicateOf(ctx context.Context, projectID string, id string) ([]models.Account, error) {
	ctx, span := tracing.StartSpan(ctx, "account.Repository.ListByDuplicateOf")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	query, args := buildListByDuplicateOf(projectID, id)
	var accounts []models.Account
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &accounts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("account_id", id).Error("Failed to list dependent accounts")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list dependent accounts")
	}

	return accounts, nil
}

func buildFindByID(id string) (string, []any) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))
	return sb.Build()
}

func buildCreate(a *models.Account) (string, []any) {
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols(columns...)
	ib.Values(
		a.ID, a.ProjectID, a.ClientID, a.Name, a.Website, a.Alias,
		a.Domain, a.ScrubbedName, a.AliasName, a.Tokens,
		a.Label, a.DuplicateOf, a.CreatedAt, a.UpdatedAt,
	)
	return ib.Build()
}

func buildUpdate(a *models.Account) (string, []any) {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("name", a.Name),
		ub.Assign("website", a.Website),
		ub.Assign("alias", a.Alias),
		ub.Assign("domain", a.Domain),
		ub.Assign("scrubbed_name", a.ScrubbedName),
		ub.Assign("alias_name", a.AliasName),
		ub.Assign("tokens", a.Tokens),
		ub.Assign("label", a.Label),
		ub.Assign("duplicate_of", a.DuplicateOf),
		ub.Assign("updated_at", a.UpdatedAt),
	)
	ub.Where(
		ub.Equal("id", a.ID),
		ub.Equal("project_id", a.ProjectID),
	)
	return ub.Build()
}

func buildUpdateDisposition(a *models.Account) (string, []any) {
	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("domain", a.Domain),
		ub.Assign("scrubbed_name", a.ScrubbedName),
		ub.Assign("alias_name", a.AliasName),
		ub.Assign("tokens", a.Tokens),
		ub.Assign("label", a.Label),
		ub.Assign("duplicate_of", a.DuplicateOf),
		ub.Assign("updated_at", a.UpdatedAt),
	)
	ub.Where(ub.Equal("id", a.ID))
	return ub.Build()
}

func buildFindDuplicate(q matching.DuplicateQuery) (string, []any) {
	matches := toMatches(q.Clauses)

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

func buildListByDuplicateOf(projectID string, id string) (string, []any) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.Equal("project_id", projectID),
		sb.Equal("duplicate_of", id),
	)
	sb.OrderBy("id")
	return sb.Build()
}

func toMatches(clauses []matching.KeyClause) []database.Match {
	matches := make([]database.Match, 0, len(clauses))
	for _, c := range clauses {
		matches = append(matches, database.Match{Column: c.Column, Value: c.Value})
	}
	return matches
}
