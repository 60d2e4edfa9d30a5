package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/config"
	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService 登录与令牌服务
type AuthService struct {
	base
	sessions RefreshStore
	cfg      *config.Config
}

func NewAuthService(b base, sessions RefreshStore, cfg *config.Config) *AuthService {
	return &AuthService{base: b, sessions: sessions, cfg: cfg}
}

// TokenPair Token对
type TokenPair struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	User         *entity.User `json:"user,omitempty"`
}

// LoginRequest 用户名或邮箱登录
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 校验密码并签发令牌
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*TokenPair, error) {
	user, err := s.repos.User.FindByLogin(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrUnauthorized, "用户名或密码错误")
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(req.Password)) != nil {
		return nil, newError(ErrUnauthorized, "用户名或密码错误")
	}
	if !user.IsActive {
		return nil, newError(ErrUnauthorized, "用户已停用")
	}

	now := time.Now()
	if err := s.repos.User.TouchLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	pair, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, err
	}
	pair.User = user
	return pair, nil
}

// generateTokenPair 生成Token对
func (s *AuthService) generateTokenPair(ctx context.Context, user *entity.User) (*TokenPair, error) {
	now := time.Now()

	// Access Token
	accessClaims := jwt.MapClaims{
		"sub":   user.ID,
		"uid":   user.ID,
		"name":  user.FullName,
		"email": user.Email,
		"roles": []string{user.Role},
		"iss":   s.cfg.JWT.Issuer,
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.JWT.AccessTokenExpire).Unix(),
		"jti":   uuid.New().String(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	// Refresh Token
	refreshJti := uuid.New().String()
	refreshClaims := jwt.MapClaims{
		"sub":  user.ID,
		"type": "refresh",
		"iss":  s.cfg.JWT.Issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.JWT.RefreshTokenExpire).Unix(),
		"jti":  refreshJti,
	}
	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := s.sessions.Save(ctx, refreshJti, user.ID, s.cfg.JWT.RefreshTokenExpire); err != nil {
		s.logger.Error("save refresh session failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil, newError(ErrUnavailable, "令牌存储不可用")
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.cfg.JWT.AccessTokenExpire.Seconds()),
	}, nil
}

// parseRefreshToken 校验签名与类型，返回 jti
func (s *AuthService) parseRefreshToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.JWT.Secret), nil
	})
	if err != nil || !token.Valid {
		return "", newError(ErrUnauthorized, "刷新令牌无效或已过期")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["type"] != "refresh" {
		return "", newError(ErrUnauthorized, "令牌类型错误")
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return "", newError(ErrUnauthorized, "刷新令牌无效")
	}
	return jti, nil
}

// RefreshToken 刷新令牌只能使用一次，成功后轮换
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	jti, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	userID, err := s.sessions.Consume(ctx, jti)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, newError(ErrUnauthorized, "刷新令牌已失效")
	}
	if err != nil {
		s.logger.Error("consume refresh session failed", zap.Error(err))
		return nil, newError(ErrUnavailable, "令牌存储不可用")
	}

	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrUnauthorized, "用户不存在")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, newError(ErrUnauthorized, "用户已停用")
	}
	return s.generateTokenPair(ctx, user)
}

// Logout 吊销刷新令牌
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	jti, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return err
	}
	return s.sessions.Revoke(ctx, jti)
}

// GetCurrentUser 获取当前用户
func (s *AuthService) GetCurrentUser(ctx context.Context, userID string) (*entity.User, error) {
	user, err := s.repos.User.FindByID(ctx, userID)
	return user, translate(err, "用户")
}

// BootstrapAdmin 配置了初始密码且系统没有管理员时创建管理员
func (s *AuthService) BootstrapAdmin(ctx context.Context) error {
	auth := s.cfg.Auth
	if auth.BootstrapAdminPassword == "" {
		return nil
	}
	found, err := s.repos.User.AdminExists(ctx)
	if err != nil || found {
		return err
	}
	hash, err := hashPassword(auth.BootstrapAdminPassword, auth.BcryptCost)
	if err != nil {
		return err
	}
	admin := &entity.User{
		ID:             uuid.New().String(),
		Username:       auth.BootstrapAdminUsername,
		Email:          auth.BootstrapAdminEmail,
		FullName:       "Administrator",
		HashedPassword: hash,
		Role:           entity.RoleAdmin,
		IsActive:       true,
	}
	if err := s.repos.User.Create(ctx, admin); err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	s.logger.Info("bootstrap admin created", zap.String("username", admin.Username))
	return nil
}

func hashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
