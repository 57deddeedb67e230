package matching

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/thistle/pkg/models"
)

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// passthroughKeys returns the keys already set on the record
type passthroughKeys struct{}

func (passthroughKeys) AccountKeys(a *models.Account) models.AccountKeys { return a.AccountKeys }
func (passthroughKeys) ContactKeys(c *models.Contact) models.ContactKeys { return c.ContactKeys }

func columnValue[K any](dims []Dimension[K], keys K, column string) string {
	for _, d := range dims {
		if d.Column == column {
			return d.Value(keys)
		}
	}
	return ""
}

// firstMatch returns the index of the first clause keys satisfies, or -1.
// Clauses arrive in priority order, so a lower index is a better match.
func firstMatch[K any](dims []Dimension[K], keys K, clauses []KeyClause) int {
	for i, c := range clauses {
		if columnValue(dims, keys, c.Column) == c.Value {
			return i
		}
	}
	return -1
}

type fakeRecordStore[T, K, S any] struct {
	mu      sync.Mutex
	spec    kindSpec[T, K, S]
	records []T
	setDisp func(dst *T, src *T)
	dispOf  func(*T) models.Disposition

	findByIDErr      error
	findDuplicateErr error
	listErr          error
	updateErr        map[string]error

	findByIDCalls      int
	findDuplicateCalls int
	listCalls          int
	updateCalls        int
	duplicateQueries   []DuplicateQuery
}

func newFakeAccounts(records ...models.Account) *fakeRecordStore[models.Account, models.AccountKeys, models.SuppressionAccount] {
	return &fakeRecordStore[models.Account, models.AccountKeys, models.SuppressionAccount]{
		spec:    accountSpec(),
		records: records,
		setDisp: func(dst, src *models.Account) {
			dst.AccountKeys = src.AccountKeys
			dst.Disposition = src.Disposition
		},
		dispOf: func(a *models.Account) models.Disposition { return a.Disposition },
	}
}

func newFakeContacts(records ...models.Contact) *fakeRecordStore[models.Contact, models.ContactKeys, models.SuppressionContact] {
	return &fakeRecordStore[models.Contact, models.ContactKeys, models.SuppressionContact]{
		spec:    contactSpec(),
		records: records,
		setDisp: func(dst, src *models.Contact) {
			dst.ContactKeys = src.ContactKeys
			dst.Disposition = src.Disposition
		},
		dispOf: func(c *models.Contact) models.Disposition { return c.Disposition },
	}
}

func (f *fakeRecordStore[T, K, S]) FindByID(_ context.Context, id string) (*T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findByIDCalls++
	if f.findByIDErr != nil {
		return nil, f.findByIDErr
	}
	for i := range f.records {
		if f.spec.idOf(&f.records[i]) == id {
			rec := f.records[i]
			return &rec, nil
		}
	}
	return nil, nil
}

func (f *fakeRecordStore[T, K, S]) FindDuplicate(_ context.Context, q DuplicateQuery) (*T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findDuplicateCalls++
	f.duplicateQueries = append(f.duplicateQueries, q)
	if f.findDuplicateErr != nil {
		return nil, f.findDuplicateErr
	}
	var best *T
	bestRank := -1
	for i := range f.records {
		rec := &f.records[i]
		if f.spec.projectOf(rec) != q.ProjectID || f.spec.idOf(rec) == q.ExcludeID {
			continue
		}
		if f.dispOf(rec).IsDuplicate() {
			continue
		}
		rank := firstMatch(f.spec.dims, f.spec.keysOf(rec), q.Clauses)
		if rank >= 0 && (best == nil || rank < bestRank) {
			best, bestRank = rec, rank
		}
	}
	if best == nil {
		return nil, nil
	}
	found := *best
	return &found, nil
}

func (f *fakeRecordStore[T, K, S]) ListByDuplicateOf(_ context.Context, projectID string, id string) ([]T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []T
	for i := range f.records {
		rec := &f.records[i]
		d := f.dispOf(rec)
		if f.spec.projectOf(rec) == projectID && d.DuplicateOf != nil && *d.DuplicateOf == id {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeRecordStore[T, K, S]) UpdateDisposition(_ context.Context, record *T) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	id := f.spec.idOf(record)
	if err := f.updateErr[id]; err != nil {
		return err
	}
	for i := range f.records {
		if f.spec.idOf(&f.records[i]) == id {
			f.setDisp(&f.records[i], record)
		}
	}
	return nil
}

func (f *fakeRecordStore[T, K, S]) get(id string) T {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.records {
		if f.spec.idOf(&f.records[i]) == id {
			return f.records[i]
		}
	}
	var zero T
	return zero
}

// set replaces the record with the same id
func (f *fakeRecordStore[T, K, S]) set(record T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.records {
		if f.spec.idOf(&f.records[i]) == f.spec.idOf(&record) {
			f.records[i] = record
		}
	}
}

type fakeSuppressionStore[T, K, S any] struct {
	mu      sync.Mutex
	spec    kindSpec[T, K, S]
	entries []S
	fileOf  func(*S) string

	findMatchErr error
	findFuzzyErr error

	findMatchCalls int
	fuzzyFragments []string
}

func newFakeSuppressionAccounts(entries ...models.SuppressionAccount) *fakeSuppressionStore[models.Account, models.AccountKeys, models.SuppressionAccount] {
	return &fakeSuppressionStore[models.Account, models.AccountKeys, models.SuppressionAccount]{
		spec:    accountSpec(),
		entries: entries,
		fileOf:  func(s *models.SuppressionAccount) string { return s.SuppressionFileID },
	}
}

func newFakeSuppressionContacts(entries ...models.SuppressionContact) *fakeSuppressionStore[models.Contact, models.ContactKeys, models.SuppressionContact] {
	return &fakeSuppressionStore[models.Contact, models.ContactKeys, models.SuppressionContact]{
		spec:    contactSpec(),
		entries: entries,
		fileOf:  func(s *models.SuppressionContact) string { return s.SuppressionFileID },
	}
}

func (f *fakeSuppressionStore[T, K, S]) FindMatch(_ context.Context, q SuppressionQuery) (*S, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findMatchCalls++
	if f.findMatchErr != nil {
		return nil, f.findMatchErr
	}
	var best *S
	bestRank := -1
	for i := range f.entries {
		entry := &f.entries[i]
		if !slices.Contains(q.FileIDs, f.fileOf(entry)) {
			continue
		}
		rank := firstMatch(f.spec.dims, f.spec.entryKeysOf(entry), q.Clauses)
		if rank >= 0 && (best == nil || rank < bestRank) {
			best, bestRank = entry, rank
		}
	}
	if best == nil {
		return nil, nil
	}
	found := *best
	return &found, nil
}

type fakeContactSuppressionStore struct {
	*fakeSuppressionStore[models.Contact, models.ContactKeys, models.SuppressionContact]
}

func (f fakeContactSuppressionStore) FindFuzzy(_ context.Context, q FuzzyQuery) ([]models.SuppressionContact, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fuzzyFragments = append(f.fuzzyFragments, q.NameFragment)
	if f.findFuzzyErr != nil {
		return nil, f.findFuzzyErr
	}
	var out []models.SuppressionContact
	for _, entry := range f.entries {
		if !slices.Contains(q.FileIDs, entry.SuppressionFileID) {
			continue
		}
		if entry.EmailDomainDedupeKey == q.EmailDomainDedupeKey &&
			strings.Contains(strings.ToLower(entry.EmailNameDedupeKey), q.NameFragment) {
			out = append(out, entry)
		}
	}
	return out, nil
}

type fakeScopes struct {
	mu      sync.Mutex
	files   map[string][]string
	listErr error
	calls   int
}

func (f *fakeScopes) ListFileIDsForProject(_ context.Context, projectID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.files[projectID], nil
}

type fakeLocker struct {
	mu       sync.Mutex
	locked   [][]string
	released int
	lockErr  error
}

func (f *fakeLocker) Lock(_ context.Context, keys []string) (func(context.Context) error, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.lockErr != nil {
		return nil, f.lockErr
	}
	f.locked = append(f.locked, keys)
	return func(context.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.released++
		return nil
	}, nil
}

type fixture struct {
	accounts            *fakeRecordStore[models.Account, models.AccountKeys, models.SuppressionAccount]
	contacts            *fakeRecordStore[models.Contact, models.ContactKeys, models.SuppressionContact]
	suppressionAccounts *fakeSuppressionStore[models.Account, models.AccountKeys, models.SuppressionAccount]
	suppressionContacts fakeContactSuppressionStore
	scopes              *fakeScopes
	locker              *fakeLocker
	service             *Service
}

const (
	testProject = "project-1"
	testClient  = "client-1"
	testFile    = "file-1"
)

func newFixture(cfg Config) *fixture {
	f := &fixture{
		accounts:            newFakeAccounts(),
		contacts:            newFakeContacts(),
		suppressionAccounts: newFakeSuppressionAccounts(),
		suppressionContacts: fakeContactSuppressionStore{newFakeSuppressionContacts()},
		scopes:              &fakeScopes{files: map[string][]string{testProject: {testFile}}},
		locker:              &fakeLocker{},
	}
	f.service = NewService(testLogger(), passthroughKeys{}, Stores{
		Accounts:            f.accounts,
		Contacts:            f.contacts,
		SuppressionAccounts: f.suppressionAccounts,
		SuppressionContacts: f.suppressionContacts,
		Scopes:              f.scopes,
	}, f.locker, cfg)
	return f
}

func account(id string, keys models.AccountKeys) models.Account {
	return models.Account{ID: id, ProjectID: testProject, ClientID: testClient, AccountKeys: keys}
}

func contact(id string, keys models.ContactKeys) models.Contact {
	return models.Contact{ID: id, ProjectID: testProject, ClientID: testClient, ContactKeys: keys}
}

func ptr(s string) *string {
	return &s
}
