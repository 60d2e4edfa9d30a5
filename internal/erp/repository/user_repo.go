package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"gorm.io/gorm"
)

// UserRepository 用户仓库
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindAll 查询用户列表，Status 取 active/inactive
func (r *UserRepository) FindAll(ctx context.Context, p ListParams) ([]entity.User, int64, error) {
	var users []entity.User
	query := r.db.WithContext(ctx).Model(&entity.User{})
	switch p.Status {
	case "active":
		query = query.Where("is_active = ?", true)
	case "inactive":
		query = query.Where("is_active = ?", false)
	}
	query = keyword(query, p.Keyword, "username", "email", "full_name")
	total, err := paginate(query, p, &users, "created_at DESC")
	return users, total, err
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// FindByLogin 按用户名或邮箱查找
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).
		Where("username = ? OR LOWER(email) = LOWER(?)", login, login).
		First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// UsernameTaken 用户名是否已被其他用户使用
func (r *UserRepository) UsernameTaken(ctx context.Context, username, exceptID string) (bool, error) {
	return exists(r.db.WithContext(ctx), &entity.User{}, "username = ? AND id <> ?", username, exceptID)
}

// EmailTaken 邮箱是否已被其他用户使用
func (r *UserRepository) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	return exists(r.db.WithContext(ctx), &entity.User{}, "LOWER(email) = LOWER(?) AND id <> ?", email, exceptID)
}

func (r *UserRepository) AdminExists(ctx context.Context) (bool, error) {
	return exists(r.db.WithContext(ctx), &entity.User{}, "role = ?", entity.RoleAdmin)
}

func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&entity.RefreshSession{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&entity.User{}).Error
	})
}

// TouchLogin 记录最后登录时间
func (r *UserRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&entity.User{}).Where("id = ?", id).Update("last_login_at", at).Error
}

// SaveSession 保存刷新令牌会话
func (r *UserRepository) SaveSession(ctx context.Context, s *entity.RefreshSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// FindSession 查找未过期的刷新令牌会话
func (r *UserRepository) FindSession(ctx context.Context, jti string, now time.Time) (*entity.RefreshSession, error) {
	var s entity.RefreshSession
	err := r.db.WithContext(ctx).Where("jti = ? AND expires_at > ?", jti, now).First(&s).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

// DeleteSession 删除会话，返回是否删除了记录
func (r *UserRepository) DeleteSession(ctx context.Context, jti string) (bool, error) {
	res := r.db.WithContext(ctx).Where("jti = ?", jti).Delete(&entity.RefreshSession{})
	return res.RowsAffected > 0, res.Error
}

// PurgeSessions 清理过期会话
func (r *UserRepository) PurgeSessions(ctx context.Context, now time.Time) error {
	return r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&entity.RefreshSession{}).Error
}
