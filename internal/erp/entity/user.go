package entity

import "time"

// 用户角色
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleSales      = "sales"
	RoleTechnical  = "technical"
	RolePlanning   = "planning"
	RoleProduction = "production"
	RolePurchasing = "purchasing"
	RoleInventory  = "inventory"
	RoleFinance    = "finance"
	RoleSCM        = "scm"
	RoleCRM        = "crm"
	RoleHR         = "hr"
	RoleEmployee   = "employee"
)

// UserRoles 全部合法角色
var UserRoles = []string{
	RoleAdmin, RoleManager, RoleSales, RoleTechnical, RolePlanning, RoleProduction,
	RolePurchasing, RoleInventory, RoleFinance, RoleSCM, RoleCRM, RoleHR, RoleEmployee,
}

// User 系统用户
type User struct {
	ID             string     `json:"id" gorm:"primaryKey;type:uuid"`
	Username       string     `json:"username" gorm:"size:64;not null;uniqueIndex"`
	Email          string     `json:"email" gorm:"size:128;not null;uniqueIndex"`
	FullName       string     `json:"full_name" gorm:"size:100"`
	HashedPassword string     `json:"-" gorm:"size:255;not null"`
	Role           string     `json:"role" gorm:"size:20;not null;default:employee"`
	IsActive       bool       `json:"is_active" gorm:"not null"`
	LastLoginAt    *time.Time `json:"last_login_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (User) TableName() string {
	return "erp_users"
}

// RefreshSession 未配置Redis时的刷新令牌存储
type RefreshSession struct {
	JTI       string    `json:"jti" gorm:"column:jti;primaryKey;size:64"`
	UserID    string    `json:"user_id" gorm:"type:uuid;not null;index"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (RefreshSession) TableName() string {
	return "erp_refresh_sessions"
}
