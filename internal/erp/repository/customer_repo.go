package repository

import (
	"context"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"gorm.io/gorm"
)

// CustomerRepository 客户仓库
type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// FindAll 查询客户列表
func (r *CustomerRepository) FindAll(ctx context.Context, p ListParams) ([]entity.Customer, int64, error) {
	var customers []entity.Customer
	query := r.db.WithContext(ctx).Model(&entity.Customer{})
	switch p.Status {
	case "active":
		query = query.Where("is_active = ?", true)
	case "inactive":
		query = query.Where("is_active = ?", false)
	}
	query = keyword(query, p.Keyword, "code", "name", "email")
	total, err := paginate(query, p, &customers, "code ASC")
	return customers, total, err
}

// FindByID 查找客户（含联系人）
func (r *CustomerRepository) FindByID(ctx context.Context, id string) (*entity.Customer, error) {
	var c entity.Customer
	err := r.db.WithContext(ctx).
		Preload("Contacts", func(db *gorm.DB) *gorm.DB {
			return db.Order("is_primary DESC, created_at ASC")
		}).
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// CodeTaken 客户编码是否已被其他客户使用
func (r *CustomerRepository) CodeTaken(ctx context.Context, code, exceptID string) (bool, error) {
	return exists(r.db.WithContext(ctx), &entity.Customer{}, "code = ? AND id <> ?", code, exceptID)
}

func (r *CustomerRepository) Create(ctx context.Context, c *entity.Customer) error {
	return r.db.WithContext(ctx).Omit("Contacts").Create(c).Error
}

func (r *CustomerRepository) Update(ctx context.Context, c *entity.Customer) error {
	return r.db.WithContext(ctx).Omit("Contacts").Save(c).Error
}

// Delete 删除客户及联系人
func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("customer_id = ?", id).Delete(&entity.CustomerContact{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&entity.Customer{}).Error
}

// IsReferenced 是否存在引用该客户的报价单、订单或发票
func (r *CustomerRepository) IsReferenced(ctx context.Context, id string) (bool, error) {
	db := r.db.WithContext(ctx)
	for _, model := range []interface{}{&entity.Quotation{}, &entity.SalesOrder{}, &entity.SalesInvoice{}} {
		found, err := exists(db, model, "customer_id = ?", id)
		if err != nil || found {
			return found, err
		}
	}
	return false, nil
}

// FindContacts 客户联系人列表
func (r *CustomerRepository) FindContacts(ctx context.Context, customerID string) ([]entity.CustomerContact, error) {
	var contacts []entity.CustomerContact
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("is_primary DESC, created_at ASC").
		Find(&contacts).Error
	return contacts, err
}

func (r *CustomerRepository) FindContactByID(ctx context.Context, id string) (*entity.CustomerContact, error) {
	var c entity.CustomerContact
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (r *CustomerRepository) SaveContact(ctx context.Context, c *entity.CustomerContact) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *CustomerRepository) DeleteContact(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.CustomerContact{}).Error
}

// ClearPrimary 取消客户除 exceptID 以外联系人的主联系人标记
func (r *CustomerRepository) ClearPrimary(ctx context.Context, customerID, exceptID string) error {
	return r.db.WithContext(ctx).Model(&entity.CustomerContact{}).
		Where("customer_id = ? AND id <> ? AND is_primary = ?", customerID, exceptID, true).
		Update("is_primary", false).Error
}
