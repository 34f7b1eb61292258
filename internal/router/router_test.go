package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/roster-backend/internal/config"
	"github.com/stemsi/roster-backend/internal/handler"
	"github.com/stemsi/roster-backend/internal/middleware"
	"github.com/stemsi/roster-backend/internal/model"
	"github.com/stemsi/roster-backend/internal/repository"
	"github.com/stemsi/roster-backend/internal/service"
	"github.com/stemsi/roster-backend/internal/validator"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	} `json:"error"`
}

type testApp struct {
	t      *testing.T
	engine *gin.Engine
	mr     *miniredis.Miniredis
	store  *repository.MemoryStore
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	validator.Setup()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		GinMode:                 gin.TestMode,
		JWTSecret:               "router-test-secret",
		JWTExpiry:               time.Hour,
		BcryptCost:              4,
		CaptchaTTL:              time.Minute,
		AuthRateLimit:           100,
		MaxUploadBytes:          1 << 20,
		ImportMaxRejectExamples: 5,
	}
	log := zerolog.Nop()
	store := repository.NewMemoryStore()

	guard := service.NewGuard()
	audit := service.NewAuditService(store, guard, service.NewRedisAuditBus(rdb, log), log)
	authSvc := service.NewAuthService(cfg, rdb)
	captchaSvc := service.NewCaptchaService(rdb, cfg.CaptchaTTL)
	identitySvc := service.NewIdentityService(store, authSvc, captchaSvc, log)

	_, err := identitySvc.Bootstrap(context.Background(), "admin", "admin-pass", model.RoleAdmin)
	require.NoError(t, err)
	_, err = identitySvc.Bootstrap(context.Background(), "viewer", "viewer-pass", model.RoleGuest)
	require.NoError(t, err)

	handlers := &Handlers{
		Auth:      handler.NewAuthHandler(identitySvc, captchaSvc, cfg, log),
		Major:     handler.NewMajorHandler(service.NewMajorService(store, guard, audit, log), log),
		Student:   handler.NewStudentHandler(service.NewStudentService(store, guard, audit, log), log),
		Dashboard: handler.NewDashboardHandler(service.NewDashboardService(store, guard), log),
		Data: handler.NewDataHandler(
			service.NewImportService(audit, service.ImportOptions{MaxExamples: cfg.ImportMaxRejectExamples}, log),
			service.NewExportService(audit),
			cfg.MaxUploadBytes,
			log,
		),
		Audit: handler.NewAuditHandler(audit, log),
		WS:    handler.NewWSHandler(audit, log, nil),
	}
	limiter := middleware.NewRateLimiter(rdb, "auth", cfg.AuthRateLimit, time.Minute, log)

	return &testApp{
		t:      t,
		engine: SetupRouter(identitySvc, limiter, handlers, cfg, log),
		mr:     mr,
		store:  store,
	}
}

func (a *testApp) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return a.send(req, token)
}

func (a *testApp) send(req *http.Request, token string) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (a *testApp) login(username, password string) string {
	a.t.Helper()
	w, env := a.do(http.MethodPost, "/api/v1/auth/login", "", model.LoginRequest{Username: username, Password: password})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())

	var resp model.LoginResponse
	require.NoError(a.t, json.Unmarshal(env.Data, &resp))
	require.NotEmpty(a.t, resp.Token)
	return resp.Token
}

func (a *testApp) upload(token, filename, content, query string) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("csv_file", filename)
	require.NoError(a.t, err)
	_, err = part.Write([]byte(content))
	require.NoError(a.t, err)
	require.NoError(a.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/data/import"+query, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return a.send(req, token)
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	w, _ := app.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAnonymousReadsAreAllowed(t *testing.T) {
	app := newTestApp(t)

	w, env := app.do(http.MethodGet, "/api/v1/students", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, env.Error)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	w, _ = app.do(http.MethodGet, "/api/v1/majors", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	entries, err := app.store.ListAuditEntries(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMutationsRequireAdmin(t *testing.T) {
	app := newTestApp(t)

	w, env := app.do(http.MethodPost, "/api/v1/majors", "", model.MajorRequest{Name: "CS"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "TOKEN_REQUIRED", env.Error.Code)

	guest := app.login("viewer", "viewer-pass")
	w, env = app.do(http.MethodPost, "/api/v1/majors", guest, model.MajorRequest{Name: "CS"})
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	w, _ = app.do(http.MethodGet, "/api/v1/audit-log", guest, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = app.do(http.MethodGet, "/ws/v1/audit/stream", guest, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestImportChecksRoleBeforeUpload(t *testing.T) {
	app := newTestApp(t)

	w, env := app.upload("", "roster.txt", "1,Alice,CS\n", "?skip_header=maybe")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "TOKEN_REQUIRED", env.Error.Code)

	guest := app.login("viewer", "viewer-pass")
	w, env = app.upload(guest, "roster.txt", "1,Alice,CS\n", "")
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/data/import", strings.NewReader(""))
	w, env = app.send(req, guest)
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)
}

func TestCatalogFlow(t *testing.T) {
	app := newTestApp(t)
	admin := app.login("admin", "admin-pass")

	w, env := app.do(http.MethodPost, "/api/v1/majors", admin, model.MajorRequest{Name: "CS"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	major := decode[struct{ Major model.Major }](t, env.Data).Major

	w, env = app.do(http.MethodPost, "/api/v1/majors", admin, model.MajorRequest{Name: "CS"})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_NAME", env.Error.Code)

	w, _ = app.do(http.MethodPost, "/api/v1/students", admin, model.StudentRequest{ID: 7, Name: "Alice", MajorID: major.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env = app.do(http.MethodPost, "/api/v1/students", admin, model.StudentRequest{ID: 8, Name: "Bob", MajorID: major.ID + 100})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "UNKNOWN_MAJOR", env.Error.Code)

	w, env = app.do(http.MethodGet, "/api/v1/students?q=ali", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	listed := decode[struct{ Students []model.Student }](t, env.Data).Students
	require.Len(t, listed, 1)
	assert.Equal(t, "CS", listed[0].MajorName)

	w, env = app.do(http.MethodDelete, "/api/v1/majors/"+strconv.Itoa(major.ID), admin, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DEPENDENCY_EXISTS", env.Error.Code)

	w, _ = app.do(http.MethodPut, "/api/v1/students/7", admin, model.StudentRequest{ID: 9, Name: "Alice", MajorID: major.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, _ = app.do(http.MethodGet, "/api/v1/students/7", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = app.do(http.MethodGet, "/api/v1/students/abc", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", env.Error.Code)

	w, env = app.do(http.MethodGet, "/api/v1/dashboard", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	dash := decode[struct {
		Labels []string
		Data   []int
	}](t, env.Data)
	assert.Equal(t, []string{"CS"}, dash.Labels)
	assert.Equal(t, []int{1}, dash.Data)

	w, env = app.do(http.MethodGet, "/api/v1/audit-log", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[struct{ Entries []model.AuditEntry }](t, env.Data).Entries
	require.Len(t, entries, 3)
	assert.Equal(t, service.ActionEditStudent, entries[0].Action)
	assert.Equal(t, "admin", entries[0].ActorUsername)
}

func TestValidationErrorsCarryFields(t *testing.T) {
	app := newTestApp(t)
	admin := app.login("admin", "admin-pass")

	w, env := app.do(http.MethodPost, "/api/v1/students", admin, map[string]interface{}{"student_name": "Alice"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "student_id")
}

func TestIDsAboveInt4AreRejected(t *testing.T) {
	app := newTestApp(t)
	admin := app.login("admin", "admin-pass")

	w, _ := app.do(http.MethodPost, "/api/v1/majors", admin, model.MajorRequest{Name: "CS"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := app.do(http.MethodPost, "/api/v1/students", admin, map[string]interface{}{
		"student_id": 3000000000, "student_name": "Big", "major_id": 1,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "student_id")

	w, env = app.do(http.MethodGet, "/api/v1/students/3000000000", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", env.Error.Code)

	w, env = app.do(http.MethodGet, "/api/v1/students?major_id=3000000000", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	entries, err := app.store.ListAuditEntries(context.Background())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestImportAndExport(t *testing.T) {
	app := newTestApp(t)
	admin := app.login("admin", "admin-pass")

	w, _ := app.do(http.MethodPost, "/api/v1/majors", admin, model.MajorRequest{Name: "CS"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := app.upload(admin, "roster.csv", "student_id,student_name,major_name\n1,Alice,CS\n2,Bob,Unknown\n", "?skip_header=true")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[struct{ Report model.ImportReport }](t, env.Data).Report
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 1, report.RejectedCount)
	require.Len(t, report.Rejected, 1)
	assert.Equal(t, "2,Bob,Unknown", report.Rejected[0].Raw)
	assert.Equal(t, model.RejectUnknownMajor, report.Rejected[0].Reason)

	w, env = app.upload(admin, "roster.txt", "1,Alice,CS\n", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "UNSUPPORTED_FILE_TYPE", env.Error.Code)

	w, env = app.upload(admin, "roster.csv", "1,Alice,CS\n", "?skip_header=maybe")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/data/import", strings.NewReader(""))
	w, env = app.send(req, admin)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "FILE_REQUIRED", env.Error.Code)

	w, _ = app.do(http.MethodGet, "/api/v1/data/export", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "students_export.csv")
	assert.Equal(t, "student_id,student_name,major_name,notes\n1,Alice,CS,\n", w.Body.String())

	w, _ = app.do(http.MethodGet, "/api/v1/data/export", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthSession(t *testing.T) {
	app := newTestApp(t)

	w, env := app.do(http.MethodPost, "/api/v1/auth/login", "", model.LoginRequest{Username: "admin", Password: "wrong"})
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)

	token := app.login("admin", "admin-pass")

	w, env = app.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[struct{ Identity model.Identity }](t, env.Data).Identity
	assert.Equal(t, model.RoleAdmin, me.Role)

	w, _ = app.do(http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = app.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	app := newTestApp(t)

	w, _ := app.do(http.MethodPost, "/api/v1/auth/login", "", model.LoginRequest{Username: "admin", Password: "admin-pass"})
	require.Equal(t, http.StatusOK, w.Code)

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			session = c
		}
	}
	require.NotNil(t, session)
	assert.True(t, session.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.AddCookie(session)
	w, _ = app.send(req, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterWithCaptcha(t *testing.T) {
	app := newTestApp(t)

	w, _ := app.do(http.MethodGet, "/api/v1/auth/captcha", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	captchaToken := w.Header().Get("X-Captcha-Token")
	require.NotEmpty(t, captchaToken)

	code, err := app.mr.Get(config.CacheKey.CaptchaKey(captchaToken))
	require.NoError(t, err)

	req := model.RegisterRequest{
		Username:        "newbie",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		CaptchaToken:    captchaToken,
		CaptchaCode:     code,
	}
	w, env := app.do(http.MethodPost, "/api/v1/auth/register", "", req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[struct{ Identity model.Identity }](t, env.Data).Identity
	assert.Equal(t, model.RoleGuest, created.Role)

	// The token was consumed by the first attempt.
	req.Username = "another"
	w, env = app.do(http.MethodPost, "/api/v1/auth/register", "", req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CAPTCHA_INVALID", env.Error.Code)
}
