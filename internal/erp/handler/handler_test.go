package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/bitfantasy/nimo-erp/internal/erp/service"
	"github.com/bitfantasy/nimo-erp/internal/erp/storage"
	"github.com/bitfantasy/nimo-erp/internal/erp/testutil"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// testEnv 完整路由 + 内存数据库
type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	router *gin.Engine
	token  string
}

func setupERPTest(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cfg := testutil.TestConfig()

	repos := repository.NewRepositories(db)
	svc := service.NewServices(repos, nil, cfg, zap.NewNop())
	svc.Document.SetStorage(storage.NewMemory())

	router := testutil.SetupRouter()
	NewHandlers(svc, cfg).RegisterRoutes(router.Group("/api/v1"), testutil.JWTSecret)

	return &testEnv{t: t, db: db, router: router, token: testutil.DefaultTestToken()}
}

func (e *testEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	return testutil.DoRequest(e.router, method, "/api/v1"+path, body, e.token)
}

// mustDo 断言状态码并返回 data 对象
func (e *testEnv) mustDo(method, path string, body interface{}, status int) map[string]interface{} {
	e.t.Helper()
	w := e.do(method, path, body)
	if w.Code != status {
		e.t.Fatalf("%s %s: expected %d, got %d: %s", method, path, status, w.Code, w.Body.String())
	}
	if status == http.StatusNoContent {
		return nil
	}
	return testutil.ResponseData(e.t, w)
}

func (e *testEnv) expectStatus(method, path string, body interface{}, status int) {
	e.t.Helper()
	w := e.do(method, path, body)
	if w.Code != status {
		e.t.Fatalf("%s %s: expected %d, got %d: %s", method, path, status, w.Code, w.Body.String())
	}
}

func listOf(data map[string]interface{}) []interface{} {
	list, _ := data["items"].([]interface{})
	return list
}

func lineOf(data map[string]interface{}, i int) map[string]interface{} {
	return listOf(data)[i].(map[string]interface{})
}

func num(data map[string]interface{}, key string) float64 {
	v, _ := data[key].(float64)
	return v
}

func str(data map[string]interface{}, key string) string {
	v, _ := data[key].(string)
	return v
}

func idOf(data map[string]interface{}) string {
	return str(data, "id")
}

func assertNum(t *testing.T, data map[string]interface{}, key string, want float64) {
	t.Helper()
	got := num(data, key)
	if fmt.Sprintf("%.2f", got) != fmt.Sprintf("%.2f", want) {
		t.Errorf("%s: expected %.2f, got %.2f", key, want, got)
	}
}

func TestRoutesRequireToken(t *testing.T) {
	env := setupERPTest(t)

	w := testutil.DoRequest(env.router, "GET", "/api/v1/sales/customers", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("Expected 401 without token, got %d", w.Code)
	}
}

func TestListPagination(t *testing.T) {
	env := setupERPTest(t)
	for i := 1; i <= 5; i++ {
		testutil.SeedCustomer(t, env.db, fmt.Sprintf("C%03d", i), fmt.Sprintf("客户%d", i))
	}

	data := env.mustDo("GET", "/sales/customers?page=2&page_size=2", nil, http.StatusOK)
	if len(listOf(data)) != 2 {
		t.Fatalf("Expected 2 items on page 2, got %d", len(listOf(data)))
	}
	assertNum(t, data, "total", 5)
	assertNum(t, data, "page", 2)
	assertNum(t, data, "page_size", 2)
	assertNum(t, data, "total_pages", 3)
	if data["has_next"] != true || data["has_prev"] != true {
		t.Errorf("Expected has_next and has_prev on middle page, got %v/%v", data["has_next"], data["has_prev"])
	}

	last := env.mustDo("GET", "/sales/customers?page=3&page_size=2", nil, http.StatusOK)
	if len(listOf(last)) != 1 || last["has_next"] != false {
		t.Errorf("Expected 1 item and no next page, got %d items has_next=%v", len(listOf(last)), last["has_next"])
	}

	env.expectStatus("GET", "/sales/customers?page=abc", nil, http.StatusBadRequest)
}

func TestListPageSizeIsCapped(t *testing.T) {
	env := setupERPTest(t)
	testutil.SeedCustomer(t, env.db, "C001", "客户")

	data := env.mustDo("GET", "/sales/customers?page_size=1000", nil, http.StatusOK)
	assertNum(t, data, "page_size", 100)
}
