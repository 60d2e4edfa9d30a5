package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/config"
	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const JWTSecret = "nimo-erp-test-secret"

// TestConfig returns a config suitable for tests (no Redis, no MinIO, fast bcrypt)
func TestConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{MaxUploadSize: 8 << 20},
		JWT: config.JWTConfig{
			Secret:             JWTSecret,
			AccessTokenExpire:  time.Hour,
			RefreshTokenExpire: 24 * time.Hour,
			Issuer:             "nimo-erp-test",
		},
		Auth: config.AuthConfig{BcryptCost: bcrypt.MinCost},
		Log:  config.LogConfig{Level: "error", Format: "console"},
	}
}

// SetupTestDB opens an isolated in-memory sqlite database with every ERP table migrated.
// A single connection keeps the shared-cache database alive and serializes writers.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := entity.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		sqlDB.Close()
	})
	return db
}

// SetupRouter creates a gin test router
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup creates an API group with JWT auth middleware for testing
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken creates a valid access token for testing
func GenerateTestToken(userID, name, email string, roles []string) string {
	if roles == nil {
		roles = []string{}
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"uid":   userID,
		"name":  name,
		"email": email,
		"roles": roles,
		"iss":   "nimo-erp-test",
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
		"jti":   fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// DefaultTestToken returns a token for an admin test user
func DefaultTestToken() string {
	return GenerateTestToken("00000000-0000-0000-0000-000000000001", "Test Admin", "admin@test.com", []string{entity.RoleAdmin})
}

// RoleToken returns a token for a user holding a single role
func RoleToken(userID, role string) string {
	return GenerateTestToken(userID, role+" user", role+"@test.com", []string{role})
}

// DoRequest executes an HTTP request against the test router
func DoRequest(r *gin.Engine, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse parses the JSON response body into a handler.Response-like map
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// ResponseData returns the "data" object of a response, failing the test when absent
func ResponseData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	data, ok := ParseResponse(w)["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("response has no data object: %s", w.Body.String())
	}
	return data
}

// SeedTestUser creates an active user whose password is "password123"
func SeedTestUser(t *testing.T, db *gorm.DB, username, role string) *entity.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	user := &entity.User{
		ID:             uuid.New().String(),
		Username:       username,
		Email:          username + "@test.com",
		FullName:       username,
		HashedPassword: string(hash),
		Role:           role,
		IsActive:       true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to seed test user: %v", err)
	}
	return user
}

// SeedCustomer creates an active customer
func SeedCustomer(t *testing.T, db *gorm.DB, code, name string) *entity.Customer {
	t.Helper()
	c := &entity.Customer{
		ID:       uuid.New().String(),
		Code:     code,
		Name:     name,
		IsActive: true,
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("Failed to seed customer: %v", err)
	}
	return c
}

// SeedProduct creates an active product
func SeedProduct(t *testing.T, db *gorm.DB, code, category string, standardCost float64) *entity.Product {
	t.Helper()
	p := &entity.Product{
		ID:            uuid.New().String(),
		Code:          code,
		Name:          "Product " + code,
		Category:      category,
		UOM:           entity.UOMPiece,
		StandardCost:  standardCost,
		IsActive:      true,
		IsPurchasable: true,
		IsSellable:    true,
		IsStockable:   true,
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("Failed to seed product: %v", err)
	}
	return p
}
