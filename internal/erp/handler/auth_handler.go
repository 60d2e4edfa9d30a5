package handler

import (
	"github.com/bitfantasy/nimo-erp/internal/erp/service"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc *service.AuthService
}

func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Login POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if !bind(c, &req) {
		return
	}
	pair, err := h.svc.Login(c.Request.Context(), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, pair)
}

// Refresh POST /auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bind(c, &req) {
		return
	}
	pair, err := h.svc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, pair)
}

// Logout POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if !bind(c, &req) {
		return
	}
	if err := h.svc.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		Fail(c, err)
		return
	}
	Success(c, nil)
}

// Me GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.svc.GetCurrentUser(c.Request.Context(), GetUserID(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, user)
}

type UserHandler struct {
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

func (h *UserHandler) List(c *gin.Context) {
	p, ok := listParams(c)
	if !ok {
		return
	}
	page, err := h.svc.List(c.Request.Context(), p)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, page)
}

func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, user)
}

func (h *UserHandler) Create(c *gin.Context) {
	var req service.CreateUserRequest
	if !bind(c, &req) {
		return
	}
	user, err := h.svc.Create(c.Request.Context(), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, user)
}

func (h *UserHandler) Update(c *gin.Context) {
	var req service.UpdateUserRequest
	if !bind(c, &req) {
		return
	}
	user, err := h.svc.Update(c.Request.Context(), actor(c), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, user)
}

func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), actor(c), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	NoContent(c)
}
