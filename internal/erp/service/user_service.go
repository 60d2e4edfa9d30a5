package service

import (
	"context"
	"strings"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/google/uuid"
)

// UserService 用户管理
type UserService struct {
	base
	bcryptCost int
}

func NewUserService(b base, bcryptCost int) *UserService {
	return &UserService{base: b, bcryptCost: bcryptCost}
}

// Actor 当前请求的用户
type Actor struct {
	ID    string
	Roles []string
}

// HasRole admin 拥有全部角色
func (a Actor) HasRole(roles ...string) bool {
	for _, have := range a.Roles {
		if have == entity.RoleAdmin {
			return true
		}
		for _, want := range roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

type CreateUserRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role"`
	IsActive *bool  `json:"is_active"`
}

type UpdateUserRequest struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	FullName *string `json:"full_name"`
	Password *string `json:"password" binding:"omitempty,min=8,max=72"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

func validRole(role string) bool {
	for _, r := range entity.UserRoles {
		if r == role {
			return true
		}
	}
	return false
}

func (s *UserService) List(ctx context.Context, p repository.ListParams) (*Page[entity.User], error) {
	users, total, err := s.repos.User.FindAll(ctx, p)
	return listPage(users, total, err, p)
}

func (s *UserService) Get(ctx context.Context, id string) (*entity.User, error) {
	user, err := s.repos.User.FindByID(ctx, id)
	return user, translate(err, "用户")
}

func (s *UserService) Create(ctx context.Context, req *CreateUserRequest) (*entity.User, error) {
	role := req.Role
	if role == "" {
		role = entity.RoleEmployee
	}
	if !validRole(role) {
		return nil, validationError("无效的角色: %s", role)
	}
	if err := s.checkUnique(ctx, req.Username, req.Email, ""); err != nil {
		return nil, err
	}
	hash, err := hashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &entity.User{
		ID:             uuid.New().String(),
		Username:       strings.TrimSpace(req.Username),
		Email:          strings.TrimSpace(req.Email),
		FullName:       req.FullName,
		HashedPassword: hash,
		Role:           role,
		IsActive:       boolOr(req.IsActive, true),
	}
	if err := s.repos.User.Create(ctx, user); err != nil {
		return nil, translate(err, "用户")
	}
	return user, nil
}

func (s *UserService) checkUnique(ctx context.Context, username, email, exceptID string) error {
	if username != "" {
		taken, err := s.repos.User.UsernameTaken(ctx, username, exceptID)
		if err != nil {
			return err
		}
		if taken {
			return conflictError("用户名 %s 已存在", username)
		}
	}
	if email != "" {
		taken, err := s.repos.User.EmailTaken(ctx, email, exceptID)
		if err != nil {
			return err
		}
		if taken {
			return conflictError("邮箱 %s 已被使用", email)
		}
	}
	return nil
}

// Update 本人或管理员可修改，角色与启用状态仅管理员可改
func (s *UserService) Update(ctx context.Context, actor Actor, id string, req *UpdateUserRequest) (*entity.User, error) {
	isAdmin := actor.HasRole(entity.RoleAdmin)
	if actor.ID != id && !isAdmin {
		return nil, newError(ErrForbidden, "只能修改自己的信息")
	}
	if !isAdmin && (req.Role != nil || req.IsActive != nil) {
		return nil, newError(ErrForbidden, "只有管理员可以修改角色或启用状态")
	}

	user, err := s.repos.User.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "用户")
	}
	if req.Email != nil && !strings.EqualFold(*req.Email, user.Email) {
		if err := s.checkUnique(ctx, "", *req.Email, id); err != nil {
			return nil, err
		}
	}
	if req.Role != nil && !validRole(*req.Role) {
		return nil, validationError("无效的角色: %s", *req.Role)
	}

	setS(&user.Email, req.Email)
	setS(&user.FullName, req.FullName)
	setS(&user.Role, req.Role)
	setB(&user.IsActive, req.IsActive)
	if req.Password != nil {
		hash, err := hashPassword(*req.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		user.HashedPassword = hash
	}
	if err := s.repos.User.Update(ctx, user); err != nil {
		return nil, translate(err, "用户")
	}
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, actor Actor, id string) error {
	if actor.ID == id {
		return stateError("不能删除当前登录用户")
	}
	if _, err := s.repos.User.FindByID(ctx, id); err != nil {
		return translate(err, "用户")
	}
	return s.repos.User.Delete(ctx, id)
}
