package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/findthatcharity/orgid-cli/internal/config"
	"github.com/findthatcharity/orgid-cli/internal/enrich"
	"github.com/findthatcharity/orgid-cli/internal/model"
	"github.com/findthatcharity/orgid-cli/internal/wizard"
	"github.com/findthatcharity/orgid-cli/pkg/ftc"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type mockClient struct {
	mock.Mock
}

func (m *mockClient) Lookup(ctx context.Context, fp string, props []string) ([]model.Record, error) {
	args := m.Called(ctx, fp, props)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Record), args.Error(1)
}

func (m *mockClient) Autocomplete(ctx context.Context, q, orgtype string) ([]ftc.Suggestion, error) {
	args := m.Called(ctx, q, orgtype)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ftc.Suggestion), args.Error(1)
}

func (m *mockClient) ProposeProperties(ctx context.Context) ([]ftc.Property, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ftc.Property), args.Error(1)
}

func newTestServer(t *testing.T, client *mockClient) (*Server, *wizard.Sessions) {
	t.Helper()
	sessions, err := wizard.NewSessions(8)
	require.NoError(t, err)
	p := enrich.New(config.EnrichConfig{Concurrency: 2, HashLength: 4, OutputSuffix: "-geo"}, client, nil, nil)
	return New(config.ServerConfig{Port: 0, MaxUploadMB: 1}, sessions, p, client, nil), sessions
}

func upload(t *testing.T, h http.Handler, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/sessions", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeView(t *testing.T, rr *httptest.ResponseRecorder) wizard.View {
	t.Helper()
	var v wizard.View
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, &mockClient{})
	rr := do(s.Handler(), http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
}

func TestCreateSession_GuessesColumn(t *testing.T) {
	s, _ := newTestServer(t, &mockClient{})
	rr := upload(t, s.Handler(), "grants.csv", "Name,OrgID\nAcme,AB 123\n")

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	v := decodeView(t, rr)
	assert.NotEmpty(t, v.ID)
	assert.Equal(t, wizard.StageSelectFields, v.Stage)
	assert.Equal(t, "OrgID", v.Column)
	assert.Equal(t, 1, v.Rows)
	assert.Equal(t, wizard.VisibilityCollapsed, v.Visibility[wizard.StageSelectFile])
}

func TestCreateSession_MissingFile(t *testing.T) {
	s, _ := newTestServer(t, &mockClient{})
	rr := do(s.Handler(), http.MethodPost, "/sessions", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateSession_EmptyFile(t *testing.T) {
	s, _ := newTestServer(t, &mockClient{})
	rr := upload(t, s.Handler(), "empty.csv", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "empty")
}

func TestGetSession_NotFound(t *testing.T) {
	s, _ := newTestServer(t, &mockClient{})
	rr := do(s.Handler(), http.MethodGet, "/sessions/nope", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWizardFlow_ColumnAndStage(t *testing.T) {
	s, _ := newTestServer(t, &mockClient{})
	h := s.Handler()

	v := decodeView(t, upload(t, h, "people.csv", "Name,Code\nAcme,AB 123\n"))
	assert.Equal(t, wizard.StageSelectColumn, v.Stage)
	base := "/sessions/" + v.ID

	rr := do(h, http.MethodPut, base+"/stage", `{"stage":"select-fields"}`)
	assert.Equal(t, http.StatusConflict, rr.Code, "no column yet")

	rr = do(h, http.MethodPut, base+"/column", `{"column":"Nope"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(h, http.MethodPut, base+"/column", `{"column":"Code"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, wizard.StageSelectFields, decodeView(t, rr).Stage)

	rr = do(h, http.MethodPut, base+"/stage", `{"stage":"select-file"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, wizard.StageSelectFile, decodeView(t, rr).Stage)

	rr = do(h, http.MethodPut, base+"/stage", `{"stage":"bogus"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(h, http.MethodPut, base+"/stage", `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDownload(t *testing.T) {
	client := &mockClient{}
	client.On("Lookup", mock.Anything, "4679", []string{"lat", "long"}).
		Return([]model.Record{{ID: "AB123", Fields: map[string]string{"lat": "51.5", "long": "-0.14"}}}, nil)

	s, sessions := newTestServer(t, client)
	h := s.Handler()

	v := decodeView(t, upload(t, h, "grants.csv", "Name,OrgID\nAcme,AB 123\n"))
	base := "/sessions/" + v.ID

	rr := do(h, http.MethodPut, base+"/fields", `{"fields":["latlng"]}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, []string{"latlng"}, decodeView(t, rr).Selected)

	rr = do(h, http.MethodPost, base+"/download", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="grants-geo.csv"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "Name,OrgID,lat,long\nAcme,AB 123,51.5,-0.14\n", rr.Body.String())

	// The session is gone once the file has been served.
	assert.Equal(t, 0, sessions.Len())
	client.AssertExpectations(t)
}

func TestDownload_FailedLookupStillServesFile(t *testing.T) {
	client := &mockClient{}
	client.On("Lookup", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("503"))

	s, _ := newTestServer(t, client)
	h := s.Handler()

	v := decodeView(t, upload(t, h, "grants.csv", "Name,OrgID\nAcme,AB 123\n"))
	base := "/sessions/" + v.ID
	do(h, http.MethodPut, base+"/fields", `{"fields":["lat"]}`)

	rr := do(h, http.MethodPost, base+"/download", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Name,OrgID,lat\nAcme,AB 123,\n", rr.Body.String())
}

func TestDownload_NoColumn(t *testing.T) {
	s, _ := newTestServer(t, &mockClient{})
	h := s.Handler()

	v := decodeView(t, upload(t, h, "people.csv", "Name,Code\nAcme,AB 123\n"))
	rr := do(h, http.MethodPost, "/sessions/"+v.ID+"/download", "")
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestProgress(t *testing.T) {
	s, _ := newTestServer(t, &mockClient{})
	h := s.Handler()

	v := decodeView(t, upload(t, h, "grants.csv", "OrgID\nAB 123\n"))
	rr := do(h, http.MethodGet, "/sessions/"+v.ID+"/progress", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"done":0,"total":0,"percent":0}`, rr.Body.String())
}

func TestFields(t *testing.T) {
	client := &mockClient{}
	client.On("ProposeProperties", mock.Anything).
		Return([]ftc.Property{{ID: "latlng", Name: "Lat/long"}}, nil)

	s, _ := newTestServer(t, client)
	rr := do(s.Handler(), http.MethodGet, "/fields", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"properties":[{"id":"latlng","name":"Lat/long"}],"fallback":false}`, rr.Body.String())
}

func TestFields_FallbackDefaults(t *testing.T) {
	client := &mockClient{}
	client.On("ProposeProperties", mock.Anything).Return(nil, errors.New("down"))

	s, _ := newTestServer(t, client)
	rr := do(s.Handler(), http.MethodGet, "/fields", "")

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"properties":[
		{"id":"postalCode","name":"Postcode"},
		{"id":"latestIncome","name":"Latest income"},
		{"id":"name","name":"Name"}
	],"fallback":true}`, rr.Body.String())
}

func TestAutocomplete(t *testing.T) {
	client := &mockClient{}
	client.On("Autocomplete", mock.Anything, "oxf", "all").
		Return([]ftc.Suggestion{{Value: "GB-CHC-202918", Label: "Oxfam <GB>", OrgTypes: []string{"Registered Charity"}}}, nil)

	s, _ := newTestServer(t, client)
	rr := do(s.Handler(), http.MethodGet, "/autocomplete?q=oxf&orgtype=all", "")

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Results []struct {
			Value       string `json:"value"`
			Highlighted string `json:"highlighted"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "GB-CHC-202918", body.Results[0].Value)
	assert.Equal(t, "<b>Oxf</b>am &lt;GB&gt;", body.Results[0].Highlighted)
}

func TestAutocomplete_TrimsQueryAndKeepsEntitiesIntact(t *testing.T) {
	client := &mockClient{}
	client.On("Autocomplete", mock.Anything, "amp", "").
		Return([]ftc.Suggestion{{Value: "GB-CHC-1", Label: "Fish & Chips Amp Trust"}}, nil)

	s, _ := newTestServer(t, client)
	rr := do(s.Handler(), http.MethodGet, "/autocomplete?q=amp%20", "")

	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Results []struct {
			Highlighted string `json:"highlighted"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "Fish &amp; Chips <b>Amp</b> Trust", body.Results[0].Highlighted)
	client.AssertExpectations(t)
}

func TestAutocomplete_UpstreamError(t *testing.T) {
	client := &mockClient{}
	client.On("Autocomplete", mock.Anything, "oxf", "").Return(nil, errors.New("down"))

	s, _ := newTestServer(t, client)
	rr := do(s.Handler(), http.MethodGet, "/autocomplete?q=oxf", "")
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t, &mockClient{})
	req := httptest.NewRequest(http.MethodOptions, "/health", nil)
	req.Header.Set("Origin", "http://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)

	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(wizard.ErrSessionNotFound))
	assert.Equal(t, http.StatusBadRequest, statusFor(enrich.ErrUnknownColumn))
	assert.Equal(t, http.StatusConflict, statusFor(enrich.ErrNoColumn))
	assert.Equal(t, http.StatusConflict, statusFor(wizard.ErrStageBlocked))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("x")))
}
