package contact

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/thistle/pkg/disposition"
	"github.com/Ramsey-B/thistle/pkg/matching"
	"github.com/Ramsey-B/thistle/pkg/middleware"
	"github.com/Ramsey-B/thistle/pkg/models"
)

type fakeService struct {
	checked *models.Contact
	saved   *models.Contact
	saveErr error
}

func (f *fakeService) CheckContact(_ context.Context, c *models.Contact, _ *matching.CheckOptions) (*matching.ContactCheckResult, error) {
	f.checked = c
	working := *c
	working.Label = models.LabelFuzzySuppressed
	return &matching.ContactCheckResult{
		Record: &working,
		Suppression: matching.ContactSuppressionResult{
			FuzzyMatchCase: models.FuzzyMatchCaseLastNameEmailDomain,
		},
	}, nil
}

func (f *fakeService) SaveContact(_ context.Context, c *models.Contact, _ *matching.CheckOptions) (*disposition.ContactSaveResult, error) {
	f.saved = c
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	return &disposition.ContactSaveResult{Contact: c, Created: c.ID == ""}, nil
}

func (f *fakeService) ReevaluateContact(_ context.Context, id string) (*disposition.Cascade, error) {
	return &disposition.Cascade{Result: &matching.CascadeResult{Kind: models.KindContact, RecordID: id}}, nil
}

func serve(t *testing.T, svc *fakeService, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
	NewHandler(svc, svc).Register(e.Group("/v1/contacts"))

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestCheck_FuzzySuppressed(t *testing.T) {
	svc := &fakeService{}
	rec := serve(t, svc, http.MethodPost, "/v1/contacts/check",
		`{"project_id":"p1","client_id":"c1","last_name":"Smith","email":"jsmith@acme.com"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Smith", svc.checked.LastName)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "fuzzySuppressed", body["record"].(map[string]any)["label"])
}

func TestCheck_InvalidEmail(t *testing.T) {
	svc := &fakeService{}
	rec := serve(t, svc, http.MethodPost, "/v1/contacts/check", `{"project_id":"p1","client_id":"c1","email":"not-an-email"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.checked)
}

func TestCheck_InvalidAccountReference(t *testing.T) {
	svc := &fakeService{}
	rec := serve(t, svc, http.MethodPost, "/v1/contacts/check", `{"project_id":"p1","client_id":"c1","account_id":"nope"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdate_NotFound(t *testing.T) {
	svc := &fakeService{saveErr: httperror.NewHTTPError(http.StatusNotFound, "contact x not found")}
	rec := serve(t, svc, http.MethodPut, "/v1/contacts/x", `{"project_id":"p1","client_id":"c1","first_name":"Jo"}`)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "x", svc.saved.ID)
}

func TestCreate_LockContention(t *testing.T) {
	svc := &fakeService{saveErr: httperror.NewHTTPError(http.StatusConflict, "record is being saved concurrently")}
	rec := serve(t, svc, http.MethodPost, "/v1/contacts", `{"project_id":"p1","client_id":"c1","first_name":"Jo"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreate_UnexpectedError(t *testing.T) {
	svc := &fakeService{saveErr: errors.New("connection reset")}
	rec := serve(t, svc, http.MethodPost, "/v1/contacts", `{"project_id":"p1","client_id":"c1","first_name":"Jo"}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection reset")
}

func TestReevaluate(t *testing.T) {
	svc := &fakeService{}
	rec := serve(t, svc, http.MethodPost, "/v1/contacts/c9/reevaluate", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"c9"`)
}
