// Package suppression reads client-level suppression files and the project
// subscriptions that scope them.
package suppression

import (
	"context"
	"database/sql"
	"errors"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/models"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

const (
	accountTable = "suppression_accounts"
	contactTable = "suppression_contacts"
	scopeTable   = "project_suppression_files"
)

var accountColumns = []string{
	"id", "suppression_file_id", "client_id", "name", "website",
	"domain", "scrubbed_name", "alias_name", "tokens", "created_at",
}

var contactColumns = []string{
	"id", "suppression_file_id", "client_id",
	"first_name", "last_name", "email", "phone", "company_name",
	"email_key", "email_dedupe_key", "phone_dedupe_key", "company_dedupe_key",
	"email_name_dedupe_key", "email_domain_dedupe_key", "created_at",
}

// AccountRepository reads account suppression entries
type AccountRepository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewAccountRepository creates a new account suppression repository
func NewAccountRepository(db database.DB, logger ectologger.Logger) *AccountRepository {
	return &AccountRepository{
		db:     db,
		logger: logger,
	}
}

// FindMatch returns the entry in any of the files matching the
// highest-priority clause, or nil when none matches.
func (r *AccountRepository) FindMatch(ctx context.Context, q matching.SuppressionQuery) (*models.SuppressionAccount, error) {
	ctx, span := tracing.StartSpan(ctx, "suppression.AccountRepository.FindMatch")
	defer span.End()

	if len(q.FileIDs) == 0 || len(q.Clauses) == 0 {
		return nil, nil
	}

	query, args := buildFindMatch(accountTable, accountColumns, q)
	var entry models.SuppressionAccount
	if err := database.Conn(ctx, r.db).GetContext(ctx, &entry, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("files", len(q.FileIDs)).Error("Failed to find account suppression entry")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find account suppression entry")
	}

	return &entry, nil
}

// ContactRepository reads contact suppression entries
type ContactRepository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewContactRepository creates a new contact suppression repository
func NewContactRepository(db database.DB, logger ectologger.Logger) *ContactRepository {
	return &ContactRepository{
		db:     db,
		logger: logger,
	}
}

// FindMatch returns the entry in any of the files matching the
// highest-priority clause, or nil when none matches.
func (r *ContactRepository) FindMatch(ctx context.Context, q matching.SuppressionQuery) (*models.SuppressionContact, error) {
	ctx, span := tracing.StartSpan(ctx, "suppression.ContactRepository.FindMatch")
	defer span.End()

	if len(q.FileIDs) == 0 || len(q.Clauses) == 0 {
		return nil, nil
	}

	query, args := buildFindMatch(contactTable, contactColumns, q)
	var entry models.SuppressionContact
	if err := database.Conn(ctx, r.db).GetContext(ctx, &entry, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithField("files", len(q.FileIDs)).Error("Failed to find contact suppression entry")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find contact suppression entry")
	}

	return &entry, nil
}

// FindFuzzy returns every entry with the same email domain key whose email
// name key contains the name fragment, ignoring case.
func (r *ContactRepository) FindFuzzy(ctx context.Context, q matching.FuzzyQuery) ([]models.SuppressionContact, error) {
	ctx, span := tracing.StartSpan(ctx, "suppression.ContactRepository.FindFuzzy")
	defer span.End()

	if len(q.FileIDs) == 0 || q.EmailDomainDedupeKey == "" || q.NameFragment == "" {
		return nil, nil
	}

	query, args := buildFindFuzzy(q)
	var entries []models.SuppressionContact
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &entries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("email_domain", q.EmailDomainDedupeKey).Error("Failed to find partial contact suppression entries")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to find partial contact suppression entries")
	}

	return entries, nil
}

// ScopeRepository resolves which suppression files apply to a project
type ScopeRepository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewScopeRepository creates a new scope repository
func NewScopeRepository(db database.DB, logger ectologger.Logger) *ScopeRepository {
	return &ScopeRepository{
		db:     db,
		logger: logger,
	}
}

// ListFileIDsForProject lists the suppression files the project subscribes to
func (r *ScopeRepository) ListFileIDsForProject(ctx context.Context, projectID string) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "suppression.ScopeRepository.ListFileIDsForProject")
	defer span.End()

	query, args := buildListFileIDs(projectID)
	var ids []string
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &ids, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("project_id", projectID).Error("Failed to list project suppression files")
		return nil, httperror.NewHTTPError(http.StatusInternalServerError, "failed to list project suppression files")
	}

	return ids, nil
}

func buildFindMatch(table string, columns []string, q matching.SuppressionQuery) (string, []any) {
	matches := make([]database.Match, 0, len(q.Clauses))
	for _, c := range q.Clauses {
		matches = append(matches, database.Match{Column: c.Column, Value: c.Value})
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(
		sb.In("suppression_file_id", fileArgs(q.FileIDs)...),
		database.AnyOf(sb, matches),
	)
	sb.OrderBy(database.PriorityOrder(sb, matches), "created_at", "id")
	sb.Limit(1)
	return sb.Build()
}

func buildFindFuzzy(q matching.FuzzyQuery) (string, []any) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(contactColumns...)
	sb.From(contactTable)
	sb.Where(
		sb.In("suppression_file_id", fileArgs(q.FileIDs)...),
		sb.Equal("email_domain_dedupe_key", q.EmailDomainDedupeKey),
		sb.Like("LOWER(email_name_dedupe_key)", "%"+database.EscapeLike(q.NameFragment)+"%"),
	)
	sb.OrderBy("created_at", "id")
	return sb.Build()
}

func buildListFileIDs(projectID string) (string, []any) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("suppression_file_id")
	sb.From(scopeTable)
	sb.Where(sb.Equal("project_id", projectID))
	sb.OrderBy("suppression_file_id")
	return sb.Build()
}

func fileArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
