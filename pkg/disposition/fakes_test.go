package disposition

import (
	"context"
	"database/sql"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/events"
	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/models"
)

// journal records the order in which collaborators were called
type journal struct {
	calls []string
}

func (j *journal) add(call string) {
	j.calls = append(j.calls, call)
}

type fakeMatcher struct {
	j *journal

	lockErr    error
	checkErr   error
	cascadeErr error
	label      models.Disposition
	matchCase  models.MatchCase
	fuzzyCase  models.FuzzyMatchCase
	cascade    *matching.CascadeResult

	cascadeIDs []string
	cancelOn   context.CancelFunc
}

func (m *fakeMatcher) lock() (func(context.Context) error, error) {
	m.j.add("lock")
	if m.lockErr != nil {
		return nil, m.lockErr
	}
	return func(context.Context) error {
		m.j.add("release")
		return nil
	}, nil
}

func (m *fakeMatcher) LockAccount(context.Context, *models.Account) (func(context.Context) error, error) {
	return m.lock()
}

func (m *fakeMatcher) LockContact(context.Context, *models.Contact) (func(context.Context) error, error) {
	return m.lock()
}

func (m *fakeMatcher) CheckAccount(_ context.Context, account *models.Account, _ *matching.CheckOptions) (*matching.AccountCheckResult, error) {
	m.j.add("check")
	if m.cancelOn != nil {
		m.cancelOn()
	}
	if m.checkErr != nil {
		return nil, m.checkErr
	}

	working := *account
	working.Domain = "acme.com"
	working.Disposition = m.label
	result := &matching.AccountCheckResult{Record: &working}
	switch m.label.Label {
	case models.LabelDuplicate:
		result.Duplicate = matching.DuplicateResult[models.Account]{IsDuplicate: true, MatchCase: m.matchCase}
	case models.LabelSuppressed:
		result.Suppression = matching.SuppressionResult[models.SuppressionAccount]{IsSuppressed: true, MatchCase: m.matchCase}
	}
	return result, nil
}

func (m *fakeMatcher) CheckContact(_ context.Context, contact *models.Contact, _ *matching.CheckOptions) (*matching.ContactCheckResult, error) {
	m.j.add("check")
	if m.checkErr != nil {
		return nil, m.checkErr
	}

	working := *contact
	working.Disposition = m.label
	result := &matching.ContactCheckResult{Record: &working}
	if m.label.Label == models.LabelFuzzySuppressed {
		result.Suppression.IsFuzzySuppressed = true
		result.Suppression.FuzzyMatchCase = m.fuzzyCase
	}
	return result, nil
}

func (m *fakeMatcher) reevaluate(id, projectID string) (*matching.CascadeResult, error) {
	m.j.add("cascade")
	m.cascadeIDs = append(m.cascadeIDs, id)
	if m.cascade != nil {
		return m.cascade, m.cascadeErr
	}
	return &matching.CascadeResult{RecordID: id, ProjectID: projectID}, m.cascadeErr
}

func (m *fakeMatcher) ReevaluateAccountDependents(_ context.Context, id string, projectID string) (*matching.CascadeResult, error) {
	return m.reevaluate(id, projectID)
}

func (m *fakeMatcher) ReevaluateContactDependents(_ context.Context, id string, projectID string) (*matching.CascadeResult, error) {
	return m.reevaluate(id, projectID)
}

type fakeAccounts struct {
	j       *journal
	records map[string]models.Account
	saveErr error
}

func (f *fakeAccounts) FindByID(_ context.Context, id string) (*models.Account, error) {
	f.j.add("find")
	a, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (f *fakeAccounts) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	f.j.add("create")
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	a.ID = "new-account"
	f.records[a.ID] = *a
	return a, nil
}

func (f *fakeAccounts) Update(_ context.Context, a *models.Account) (*models.Account, error) {
	f.j.add("update")
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.records[a.ID] = *a
	return a, nil
}

type fakeContacts struct {
	j       *journal
	records map[string]models.Contact
}

func (f *fakeContacts) FindByID(_ context.Context, id string) (*models.Contact, error) {
	f.j.add("find")
	c, ok := f.records[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeContacts) Create(_ context.Context, c *models.Contact) (*models.Contact, error) {
	f.j.add("create")
	c.ID = "new-contact"
	f.records[c.ID] = *c
	return c, nil
}

func (f *fakeContacts) Update(_ context.Context, c *models.Contact) (*models.Contact, error) {
	f.j.add("update")
	f.records[c.ID] = *c
	return c, nil
}

type fakeTx struct {
	j      *journal
	closed bool
}

func (t *fakeTx) ExecContext(context.Context, string, ...any) (sql.Result, error) { return nil, nil }
func (t *fakeTx) GetContext(context.Context, any, string, ...any) error           { return nil }
func (t *fakeTx) SelectContext(context.Context, any, string, ...any) error        { return nil }
func (t *fakeTx) IsOpen() bool                                                    { return !t.closed }

func (t *fakeTx) Commit(context.Context) error {
	t.j.add("commit")
	t.closed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.closed {
		return nil
	}
	t.j.add("rollback")
	t.closed = true
	return nil
}

type fakeTransactor struct {
	j *journal
}

func (f fakeTransactor) GetTx(ctx context.Context, _ *sql.TxOptions) (context.Context, database.Tx, error) {
	f.j.add("begin")
	return ctx, &fakeTx{j: f.j}, nil
}

type fakeEmitter struct {
	labeled   []events.Labeled
	relabeled []*matching.CascadeResult
	err       error
}

func (e *fakeEmitter) EmitRecordLabeled(_ context.Context, l events.Labeled) error {
	e.labeled = append(e.labeled, l)
	return e.err
}

func (e *fakeEmitter) EmitRecordsRelabeled(_ context.Context, result *matching.CascadeResult) error {
	e.relabeled = append(e.relabeled, result)
	return e.err
}

type fixture struct {
	j        *journal
	matcher  *fakeMatcher
	accounts *fakeAccounts
	contacts *fakeContacts
	emitter  *fakeEmitter
	service  *Service
}

func newFixture() *fixture {
	j := &journal{}
	f := &fixture{
		j:        j,
		matcher:  &fakeMatcher{j: j, label: models.Disposition{Label: models.LabelInclusion}},
		accounts: &fakeAccounts{j: j, records: map[string]models.Account{}},
		contacts: &fakeContacts{j: j, records: map[string]models.Contact{}},
		emitter:  &fakeEmitter{},
	}
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	f.service = NewService(f.matcher, f.accounts, f.contacts, fakeTransactor{j: j}, f.emitter, logger)
	return f
}
