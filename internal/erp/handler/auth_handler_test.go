package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/testutil"
)

func login(t *testing.T, env *testEnv, username, password string) map[string]interface{} {
	t.Helper()
	w := testutil.DoRequest(env.router, "POST", "/api/v1/auth/login", map[string]interface{}{
		"username": username, "password": password,
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", username, w.Code, w.Body.String())
	}
	return testutil.ResponseData(t, w)
}

func TestLoginAndMe(t *testing.T) {
	env := setupERPTest(t)
	user := testutil.SeedTestUser(t, env.db, "alice", entity.RoleSales)

	pair := login(t, env, "alice", "password123")
	if str(pair, "access_token") == "" || str(pair, "refresh_token") == "" {
		t.Fatalf("missing tokens: %v", pair)
	}
	if str(pair, "token_type") != "Bearer" {
		t.Errorf("Expected Bearer, got %s", str(pair, "token_type"))
	}
	if _, leaked := pair["user"].(map[string]interface{})["hashed_password"]; leaked {
		t.Error("password hash must not be serialized")
	}

	env.token = str(pair, "access_token")
	me := env.mustDo("GET", "/auth/me", nil, http.StatusOK)
	if idOf(me) != user.ID || str(me, "role") != entity.RoleSales || me["last_login_at"] == nil {
		t.Errorf("unexpected me: %v", me)
	}
}

func TestLoginFailures(t *testing.T) {
	env := setupERPTest(t)
	inactive := testutil.SeedTestUser(t, env.db, "bob", entity.RoleEmployee)
	env.db.Model(&entity.User{}).Where("id = ?", inactive.ID).Update("is_active", false)
	testutil.SeedTestUser(t, env.db, "carol", entity.RoleEmployee)

	cases := []struct {
		name     string
		body     map[string]interface{}
		expected int
	}{
		{"wrong password", map[string]interface{}{"username": "carol", "password": "nope"}, http.StatusUnauthorized},
		{"unknown user", map[string]interface{}{"username": "dave", "password": "password123"}, http.StatusUnauthorized},
		{"inactive user", map[string]interface{}{"username": "bob", "password": "password123"}, http.StatusUnauthorized},
		{"missing password", map[string]interface{}{"username": "carol"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := testutil.DoRequest(env.router, "POST", "/api/v1/auth/login", tc.body, "")
			if w.Code != tc.expected {
				t.Errorf("Expected %d, got %d: %s", tc.expected, w.Code, w.Body.String())
			}
		})
	}
}

func TestRefreshRotation(t *testing.T) {
	env := setupERPTest(t)
	testutil.SeedTestUser(t, env.db, "alice", entity.RoleSales)
	pair := login(t, env, "alice", "password123")
	refresh := str(pair, "refresh_token")

	// 刷新令牌不能当访问令牌用
	w := testutil.DoRequest(env.router, "GET", "/api/v1/auth/me", nil, refresh)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for refresh token as bearer, got %d", w.Code)
	}

	w = testutil.DoRequest(env.router, "POST", "/api/v1/auth/refresh", map[string]interface{}{"refresh_token": refresh}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	rotated := testutil.ResponseData(t, w)
	if str(rotated, "refresh_token") == refresh {
		t.Error("refresh token was not rotated")
	}

	// 旧令牌只能用一次
	w = testutil.DoRequest(env.router, "POST", "/api/v1/auth/refresh", map[string]interface{}{"refresh_token": refresh}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 on reuse, got %d", w.Code)
	}

	// 注销后新令牌失效
	env.token = str(rotated, "access_token")
	env.expectStatus("POST", "/auth/logout", map[string]interface{}{"refresh_token": str(rotated, "refresh_token")}, http.StatusOK)
	w = testutil.DoRequest(env.router, "POST", "/api/v1/auth/refresh", map[string]interface{}{"refresh_token": str(rotated, "refresh_token")}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 after logout, got %d", w.Code)
	}

	w = testutil.DoRequest(env.router, "POST", "/api/v1/auth/refresh", map[string]interface{}{"refresh_token": "garbage"}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for malformed token, got %d", w.Code)
	}
}

func TestUserManagement(t *testing.T) {
	env := setupERPTest(t)

	created := env.mustDo("POST", "/users", map[string]interface{}{
		"username": "erin", "email": "erin@test.com", "password": "longenough", "role": entity.RoleFinance,
	}, http.StatusCreated)
	if str(created, "role") != entity.RoleFinance || created["is_active"] != true {
		t.Fatalf("unexpected user: %v", created)
	}

	env.expectStatus("POST", "/users", map[string]interface{}{
		"username": "erin", "email": "other@test.com", "password": "longenough",
	}, http.StatusConflict)
	env.expectStatus("POST", "/users", map[string]interface{}{
		"username": "frank", "email": "frank@test.com", "password": "longenough", "role": "overlord",
	}, http.StatusBadRequest)
	env.expectStatus("POST", "/users", map[string]interface{}{
		"username": "frank", "email": "frank@test.com", "password": "short",
	}, http.StatusBadRequest)

	// 新用户可以登录
	login(t, env, "erin", "longenough")

	// 非管理员不能创建用户
	env.token = testutil.RoleToken(idOf(created), entity.RoleFinance)
	env.expectStatus("POST", "/users", map[string]interface{}{
		"username": "gina", "email": "gina@test.com", "password": "longenough",
	}, http.StatusForbidden)

	// 本人可改资料但不能改角色
	me := env.mustDo("PUT", "/users/"+idOf(created), map[string]interface{}{"full_name": "Erin Lee"}, http.StatusOK)
	if str(me, "full_name") != "Erin Lee" {
		t.Errorf("Expected name updated, got %s", str(me, "full_name"))
	}
	env.expectStatus("PUT", "/users/"+idOf(created), map[string]interface{}{"role": entity.RoleAdmin}, http.StatusForbidden)

	other := testutil.SeedTestUser(t, env.db, "hank", entity.RoleEmployee)
	env.expectStatus("PUT", "/users/"+other.ID, map[string]interface{}{"full_name": "x"}, http.StatusForbidden)
}

func TestUserCannotDeleteSelf(t *testing.T) {
	env := setupERPTest(t)
	admin := testutil.SeedTestUser(t, env.db, "root", entity.RoleAdmin)
	other := testutil.SeedTestUser(t, env.db, "ivan", entity.RoleEmployee)

	env.token = testutil.RoleToken(other.ID, entity.RoleManager)
	env.expectStatus("DELETE", "/users/"+admin.ID, nil, http.StatusForbidden)

	env.token = testutil.RoleToken(admin.ID, entity.RoleAdmin)
	env.expectStatus("DELETE", "/users/"+admin.ID, nil, http.StatusBadRequest)
	env.mustDo("DELETE", "/users/"+other.ID, nil, http.StatusNoContent)
	env.expectStatus("GET", "/users/"+other.ID, nil, http.StatusNotFound)
}
