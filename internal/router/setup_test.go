package router

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"tally/internal/document"
	"tally/internal/handlers"
	"tally/internal/logger"
	"tally/internal/middleware"
	"tally/internal/services"
	"tally/internal/session"
	"tally/internal/testutil"
	"tally/internal/validator"
)

const (
	testOrigin    = "http://localhost:5173"
	testAPIKey    = "metrics-key"
	testJWTSecret = "integration-secret"
)

// testApp holds the full application stack for flow tests.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
	Redis  *miniredis.Miniredis
}

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupApp wires the real services and handlers over an isolated in-memory
// SQLite database and a miniredis revocation store.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tokens := middleware.NewTokenManager(testJWTSecret, time.Hour, session.NewRedisRevocationStore(client))
	reg := prometheus.NewRegistry()
	metrics := middleware.NewMetrics(reg)

	userService := services.NewUserService(db)
	expenseService := services.NewExpenseService(db)
	reportService := services.NewReportService(db, document.NewPDFRenderer())
	auditService := services.NewAuditService(db)

	r := &Router{
		Auth:          handlers.NewAuthHandler(userService, auditService, tokens, false),
		Expenses:      handlers.NewExpenseHandler(expenseService, auditService, 50),
		Reports:       handlers.NewReportHandler(reportService, auditService, metrics, 50),
		Tokens:        tokens,
		Metrics:       metrics,
		Gatherer:      reg,
		MetricsAPIKey: testAPIKey,
		CORSOrigin:    testOrigin,
	}

	return &testApp{DB: db, Router: r.Setup(), Redis: mr}
}

// request sends a JSON request, authenticating with the session cookie when
// one is given.
func (app *testApp) request(method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// bearer sends a request authenticated with an Authorization header.
func (app *testApp) bearer(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := parseJSON(t, rec)
	if body["success"] != false {
		t.Errorf("expected success=false, got %v", body["success"])
	}
	errObj, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error object, got %s", rec.Body.String())
	}
	code, _ := errObj["code"].(string)
	return code
}

func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.TokenCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", middleware.TokenCookieName)
	return nil
}

// registerUser signs up and returns the session cookie, the echoed token and
// the new user id.
func (app *testApp) registerUser(t *testing.T, email string) (*http.Cookie, string, string) {
	t.Helper()
	body := fmt.Sprintf(`{"name":"Jane Doe","email":%q,"password":"password123","organization":"Acme","phone":"555-0100"}`, email)
	rec := app.request(http.MethodPost, "/api/v1/auth/register", body, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register failed: %d %s", rec.Code, rec.Body.String())
	}
	result := parseJSON(t, rec)
	data := result["data"].(map[string]interface{})
	return sessionCookie(t, rec), result["token"].(string), data["id"].(string)
}

// createExpense posts an expense and returns its id.
func (app *testApp) createExpense(t *testing.T, cookie *http.Cookie, name, amount, category, date string) string {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"amount":%s,"description":"desc","category":%q,"vendor":"Vendor","date":%q}`,
		name, amount, category, date)
	rec := app.request(http.MethodPost, "/api/v1/expenses", body, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expense failed: %d %s", rec.Code, rec.Body.String())
	}
	data := parseJSON(t, rec)["data"].(map[string]interface{})
	return data["id"].(string)
}
