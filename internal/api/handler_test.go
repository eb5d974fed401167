package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"machine-manual-backend/config"
	"machine-manual-backend/internal/auth"
	"machine-manual-backend/internal/qr"
	"machine-manual-backend/internal/testutil/teststore"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	qr     *qr.Generator
	cfg    *config.Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, nil)
}

func newTestServerWith(t *testing.T, configure func(*config.Config)) *testServer {
	t.Helper()
	logger, _ := test.NewNullLogger()
	cfg := &config.Config{
		Server: config.ServerConfig{
			BaseURL:         "http://wartung.test",
			RateLimitPerSec: 1000,
			RateLimitBurst:  1000,
		},
		Admin:      config.AdminConfig{Username: "admin", Password: "secret"},
		Pagination: config.PaginationConfig{DefaultLimit: 100, MaxLimit: 2, DashboardLimit: 10},
	}
	if configure != nil {
		configure(cfg)
	}
	gen := qr.NewGenerator(t.TempDir(), 64, logger)
	h := NewHandler(teststore.New(t), gen, cfg, logger)
	return &testServer{
		router: NewRouter(h, auth.NewAdmin(cfg.Admin, logger), logger),
		qr:     gen,
		cfg:    cfg,
	}
}

type request struct {
	method string
	path   string
	body   any
	admin  bool
	header map[string]string
}

func (s *testServer) do(t *testing.T, r request) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if r.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(r.body))
	}
	req := httptest.NewRequest(r.method, r.path, &body)
	req.Header.Set("Content-Type", "application/json")
	if r.admin {
		req.SetBasicAuth("admin", "secret")
	}
	for k, v := range r.header {
		if k == "Host" {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (s *testServer) createMachine(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	w := s.do(t, request{method: http.MethodPost, path: "/api/machines", body: body})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[map[string]any](t, w)
}

func idPath(format string, id any) string {
	return strings.Replace(format, ":id", jsonNumber(id), 1)
}

func jsonNumber(v any) string {
	raw, _ := json.Marshal(v)
	return string(raw)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, request{method: http.MethodGet, path: "/healthz"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","database":"up"}`, w.Body.String())
}

func TestMachineIssueFlow(t *testing.T) {
	s := newTestServer(t)
	m := s.createMachine(t, map[string]any{"name": "CNC Fräsmaschine DMU 50", "serial_number": "DMU-50-001", "location": "Halle 2"})
	publicSlug := m["public_slug"].(string)
	assert.Len(t, publicSlug, 8)

	_, err := os.Stat(s.qr.Path(publicSlug))
	require.NoError(t, err, "qr image is written on creation")

	// The path machine id wins over the body.
	w := s.do(t, request{method: http.MethodPost, path: idPath("/api/machines/:id/issues", m["id"]), body: map[string]any{
		"title": "Kühlmittelpumpe undicht", "reported_by": "Schichtleitung", "machine_id": 999,
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	issue := decode[map[string]any](t, w)
	assert.Equal(t, m["id"], issue["machine_id"])
	assert.Equal(t, "open", issue["status"])
	assert.Nil(t, issue["closed_at"])

	w = s.do(t, request{method: http.MethodPost, path: idPath("/api/issues/:id/updates", issue["id"]), body: map[string]any{
		"note": "Dichtung getauscht", "author": "Technik", "status_change": "closed",
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	upd := decode[issueUpdateResponse](t, w)
	require.NotNil(t, upd.Issue)
	assert.Equal(t, "closed", string(upd.Issue.Status))
	assert.NotNil(t, upd.Issue.ClosedAt)

	w = s.do(t, request{method: http.MethodGet, path: idPath("/api/issues/:id", issue["id"])})
	require.Equal(t, http.StatusOK, w.Code)
	detail := decode[map[string]any](t, w)
	assert.Len(t, detail["updates"], 1)

	w = s.do(t, request{method: http.MethodGet, path: "/m/" + publicSlug})
	require.Equal(t, http.StatusOK, w.Code)
	public := decode[map[string]any](t, w)
	assert.Equal(t, "/qr/"+publicSlug+".png", public["qr_url"])
	assert.Empty(t, public["open_issues"])
	assert.Len(t, public["closed_issues"], 1)

	// A deleted image is regenerated on request.
	require.NoError(t, os.Remove(s.qr.Path(publicSlug)))
	w = s.do(t, request{method: http.MethodGet, path: "/qr/" + publicSlug + ".png"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	w = s.do(t, request{method: http.MethodGet, path: idPath("/api/machines/:id/export/issues", m["id"])})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, csvContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "stoerungen_CNC_Fräsmaschine_DMU_50_")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ID;Titel;Beschreibung;Gemeldet von;Gemeldet am;Status;Geschlossen am", lines[0])
	assert.Contains(t, lines[1], ";Kühlmittelpumpe undicht;;Schichtleitung;")
}

func TestQRImageWithoutBaseURL(t *testing.T) {
	s := newTestServerWith(t, func(cfg *config.Config) { cfg.Server.BaseURL = "" })
	forged := map[string]string{"Host": "evil.example", "X-Forwarded-Proto": "https"}

	w := s.do(t, request{method: http.MethodPost, path: "/api/machines", body: map[string]any{"name": "Presse"}, header: forged})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	publicSlug := decode[map[string]any](t, w)["public_slug"].(string)

	_, err := os.Stat(s.qr.Path(publicSlug))
	assert.True(t, os.IsNotExist(err), "no image is stored without server.base_url")

	w = s.do(t, request{method: http.MethodGet, path: "/qr/" + publicSlug + ".png", header: forged})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	// X-Forwarded-Proto is ignored without trusted proxies.
	want, err := s.qr.PNG(qr.URLFor("http://evil.example", publicSlug))
	require.NoError(t, err)
	assert.Equal(t, want, w.Body.Bytes())

	_, err = os.Stat(s.qr.Path(publicSlug))
	assert.True(t, os.IsNotExist(err), "serving the image does not store it")
}

func TestQRImageUsesConfiguredBaseURL(t *testing.T) {
	s := newTestServer(t)
	forged := map[string]string{"Host": "evil.example"}

	w := s.do(t, request{method: http.MethodPost, path: "/api/machines", body: map[string]any{"name": "Presse"}, header: forged})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	publicSlug := decode[map[string]any](t, w)["public_slug"].(string)

	stored, err := os.ReadFile(s.qr.Path(publicSlug))
	require.NoError(t, err)
	want, err := s.qr.PNG(qr.URLFor("http://wartung.test", publicSlug))
	require.NoError(t, err)
	assert.Equal(t, want, stored)
}

func TestMaintenanceRoutes(t *testing.T) {
	s := newTestServer(t)
	m := s.createMachine(t, map[string]any{"name": "Presse"})

	for _, title := range []string{"Ölwechsel", "Filter", "Inspektion"} {
		w := s.do(t, request{method: http.MethodPost, path: idPath("/api/machines/:id/maintenance", m["id"]), body: map[string]any{
			"title": title, "performed_by": "Service GmbH", "performed_at": "2024-05-02T07:30", "next_due_at": "2024-11-02T00:00:00Z",
		}})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	w := s.do(t, request{method: http.MethodGet, path: idPath("/api/machines/:id/maintenance", m["id"])})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 3)

	w = s.do(t, request{method: http.MethodGet, path: idPath("/api/machines/:id/maintenance", m["id"]) + "?limit=1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = s.do(t, request{method: http.MethodGet, path: idPath("/api/machines/:id/export/maintenance", m["id"])})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "ID;Titel;Beschreibung;Durchgeführt von;Durchgeführt am;Nächste Wartung\n"))
	assert.Contains(t, w.Body.String(), "2024-11-02 00:00:00")
}

func TestErrorResponses(t *testing.T) {
	s := newTestServer(t)
	m := s.createMachine(t, map[string]any{"name": "Kran", "serial_number": "K-1"})
	issues := idPath("/api/machines/:id/issues", m["id"])

	testCases := []struct {
		name   string
		req    request
		status int
		code   string
	}{
		{"invalid id", request{method: http.MethodGet, path: "/api/machines/abc"}, http.StatusBadRequest, "BAD_REQUEST"},
		{"missing machine", request{method: http.MethodGet, path: "/api/machines/404"}, http.StatusNotFound, "NOT_FOUND"},
		{"missing name", request{method: http.MethodPost, path: "/api/machines", body: map[string]any{"location": "Halle"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"duplicate serial", request{method: http.MethodPost, path: "/api/machines", body: map[string]any{"name": "Kran 2", "serial_number": "K-1"}}, http.StatusConflict, "CONFLICT"},
		{"malformed body", request{method: http.MethodPost, path: "/api/machines", body: "not an object"}, http.StatusBadRequest, "BAD_REQUEST"},
		{"missing reporter", request{method: http.MethodPost, path: issues, body: map[string]any{"title": "x"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"invalid reported_at", request{method: http.MethodPost, path: issues, body: map[string]any{"title": "x", "reported_by": "y", "reported_at": "gestern"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"invalid status filter", request{method: http.MethodGet, path: issues + "?status=done"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"invalid status", request{method: http.MethodPost, path: "/api/issues/1/status", body: map[string]any{"status": "resolved"}}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing issue", request{method: http.MethodPost, path: "/api/issues/404/close"}, http.StatusNotFound, "NOT_FOUND"},
		{"unknown slug", request{method: http.MethodGet, path: "/m/zzzzzzzz"}, http.StatusNotFound, "NOT_FOUND"},
		{"bad qr file", request{method: http.MethodGet, path: "/qr/passwd"}, http.StatusNotFound, "NOT_FOUND"},
		{"negative skip", request{method: http.MethodGet, path: "/api/machines?skip=-1"}, http.StatusBadRequest, "BAD_REQUEST"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := s.do(t, tc.req)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			body := decode[errorResponse](t, w)
			assert.Equal(t, tc.code, string(body.Code))
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestListMachinesPaginationAndSearch(t *testing.T) {
	s := newTestServer(t)
	for _, name := range []string{"Linie A", "Linie B", "Roboter"} {
		s.createMachine(t, map[string]any{"name": name})
	}

	w := s.do(t, request{method: http.MethodGet, path: "/api/machines?limit=50"})
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[[]map[string]any](t, w)
	require.Len(t, got, s.cfg.Pagination.MaxLimit, "limit is clamped")
	assert.Equal(t, "Roboter", got[0]["name"])
	assert.Equal(t, []any{}, got[0]["open_issues"])

	w = s.do(t, request{method: http.MethodGet, path: "/api/machines?skip=2"})
	require.Equal(t, http.StatusOK, w.Code)
	got = decode[[]map[string]any](t, w)
	require.Len(t, got, 1)
	assert.Equal(t, "Linie A", got[0]["name"])

	w = s.do(t, request{method: http.MethodGet, path: "/api/machines?search=linie"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 2, "search results are not paginated")

	w = s.do(t, request{method: http.MethodGet, path: "/api/dashboard?search=robo"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)
}

func TestUpdateMachine(t *testing.T) {
	s := newTestServer(t)
	m := s.createMachine(t, map[string]any{"name": "Presse", "location": "Halle 1"})

	w := s.do(t, request{method: http.MethodPatch, path: idPath("/api/machines/:id", m["id"]), body: map[string]any{"location": "Halle 3"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[map[string]any](t, w)
	assert.Equal(t, "Presse", got["name"])
	assert.Equal(t, "Halle 3", got["location"])
	assert.Equal(t, m["public_slug"], got["public_slug"])
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	m := s.createMachine(t, map[string]any{"name": "Altanlage"})
	publicSlug := m["public_slug"].(string)

	w := s.do(t, request{method: http.MethodDelete, path: idPath("/api/machines/:id", m["id"])})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(t, request{method: http.MethodGet, path: "/api/employees"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, request{method: http.MethodDelete, path: idPath("/api/machines/:id", m["id"]), admin: true})
	assert.Equal(t, http.StatusNoContent, w.Code)
	_, err := os.Stat(s.qr.Path(publicSlug))
	assert.True(t, os.IsNotExist(err), "qr image is removed with its machine")
	w = s.do(t, request{method: http.MethodGet, path: idPath("/api/machines/:id", m["id"])})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEmployeeRoutes(t *testing.T) {
	s := newTestServer(t)
	m := s.createMachine(t, map[string]any{"name": "Fräse"})

	w := s.do(t, request{method: http.MethodPost, path: "/api/employees", admin: true, body: map[string]any{
		"first_name": "Anna", "last_name": "Schmidt", "email": "anna@example.com", "employee_id": "EMP001", "department": "Instandhaltung",
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	emp := decode[map[string]any](t, w)
	assert.Equal(t, "active", emp["status"])

	w = s.do(t, request{method: http.MethodPost, path: "/api/employees", admin: true, body: map[string]any{
		"first_name": "A", "last_name": "B", "email": "anna@example.com", "employee_id": "EMP002",
	}})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Email already exists", decode[errorResponse](t, w).Error)

	// Reporting by employee id freezes the name.
	w = s.do(t, request{method: http.MethodPost, path: idPath("/api/machines/:id/issues", m["id"]), body: map[string]any{
		"title": "Spindel", "reporter_id": emp["id"],
	}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Anna Schmidt", decode[map[string]any](t, w)["reported_by"])

	w = s.do(t, request{method: http.MethodPost, path: idPath("/api/employees/:id/deactivate", emp["id"]), admin: true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "inactive", decode[map[string]any](t, w)["status"])

	w = s.do(t, request{method: http.MethodGet, path: "/api/employees", admin: true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]map[string]any](t, w))

	w = s.do(t, request{method: http.MethodGet, path: "/api/employees?include_inactive=true", admin: true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = s.do(t, request{method: http.MethodGet, path: "/api/employees?search=instand&include_inactive=1", admin: true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = s.do(t, request{method: http.MethodPost, path: idPath("/api/machines/:id/issues", m["id"]), body: map[string]any{
		"title": "Spindel", "reporter_id": emp["id"],
	}})
	assert.Equal(t, http.StatusBadRequest, w.Code, "inactive employees cannot report")

	w = s.do(t, request{method: http.MethodPost, path: idPath("/api/employees/:id/reactivate", emp["id"]), admin: true})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, request{method: http.MethodPatch, path: idPath("/api/employees/:id", emp["id"]), admin: true, body: map[string]any{"position": "Schichtleitung"}})
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[map[string]any](t, w)
	assert.Equal(t, "Schichtleitung", got["position"])
	assert.Equal(t, "Anna", got["first_name"])

	w = s.do(t, request{method: http.MethodGet, path: idPath("/api/employees/:id", emp["id"]), admin: true})
	assert.Equal(t, http.StatusOK, w.Code)
}
