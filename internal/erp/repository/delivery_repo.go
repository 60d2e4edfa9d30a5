package repository

import (
	"context"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeliveryRepository 发货单仓库
type DeliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

// FindAll 查询发货单列表
func (r *DeliveryRepository) FindAll(ctx context.Context, p ListParams) ([]entity.SalesDelivery, int64, error) {
	var list []entity.SalesDelivery
	query := r.db.WithContext(ctx).Model(&entity.SalesDelivery{})
	query = eq(query, "status", p.Status)
	query = eq(query, "order_id", p.OrderID)
	query = eq(query, "customer_id", p.CustomerID)
	query = dateRange(query, "delivery_date", p)
	query = keyword(query, p.Keyword, "delivery_number", "tracking_number")
	total, err := paginate(query, p, &list, "delivery_date DESC, created_at DESC")
	return list, total, err
}

func (r *DeliveryRepository) FindByID(ctx context.Context, id string, lock bool) (*entity.SalesDelivery, error) {
	var d entity.SalesDelivery
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(lockForUpdate())
	}
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).
		First(&d).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

// FindByOrder 订单下的全部发货单
func (r *DeliveryRepository) FindByOrder(ctx context.Context, orderID string) ([]entity.SalesDelivery, error) {
	var list []entity.SalesDelivery
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Find(&list).Error
	return list, err
}

// OrderItemInActiveDelivery 订单明细是否被未取消的发货单引用
func (r *DeliveryRepository) OrderItemInActiveDelivery(ctx context.Context, orderItemID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&entity.SalesDeliveryItem{}).
		Joins("JOIN erp_sales_deliveries ON erp_sales_deliveries.id = erp_sales_delivery_items.delivery_id").
		Where("erp_sales_delivery_items.order_item_id = ? AND erp_sales_deliveries.status <> ?", orderItemID, entity.DeliveryStatusCancelled).
		Limit(1).
		Count(&n).Error
	return n > 0, err
}

func (r *DeliveryRepository) Create(ctx context.Context, d *entity.SalesDelivery) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DeliveryRepository) Update(ctx context.Context, d *entity.SalesDelivery) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(d).Error
}

func (r *DeliveryRepository) Delete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("delivery_id = ?", id).Delete(&entity.SalesDeliveryItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&entity.SalesDelivery{}).Error
}

// ReturnRepository 退货单仓库
type ReturnRepository struct {
	db *gorm.DB
}

func NewReturnRepository(db *gorm.DB) *ReturnRepository {
	return &ReturnRepository{db: db}
}

func (r *ReturnRepository) FindAll(ctx context.Context, p ListParams) ([]entity.SalesReturn, int64, error) {
	var list []entity.SalesReturn
	query := r.db.WithContext(ctx).Model(&entity.SalesReturn{})
	query = eq(query, "status", p.Status)
	query = eq(query, "order_id", p.OrderID)
	query = eq(query, "customer_id", p.CustomerID)
	query = dateRange(query, "return_date", p)
	query = keyword(query, p.Keyword, "return_number", "reason")
	total, err := paginate(query, p, &list, "return_date DESC, created_at DESC")
	return list, total, err
}

func (r *ReturnRepository) FindByID(ctx context.Context, id string, lock bool) (*entity.SalesReturn, error) {
	var ret entity.SalesReturn
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(lockForUpdate())
	}
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).
		First(&ret).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &ret, nil
}

func (r *ReturnRepository) Create(ctx context.Context, ret *entity.SalesReturn) error {
	return r.db.WithContext(ctx).Create(ret).Error
}

func (r *ReturnRepository) Update(ctx context.Context, ret *entity.SalesReturn) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(ret).Error
}

// ReplaceItems 用新明细替换退货单明细
func (r *ReturnRepository) ReplaceItems(ctx context.Context, returnID string, items []entity.SalesReturnItem) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("return_id = ?", returnID).Delete(&entity.SalesReturnItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return db.Create(&items).Error
}

func (r *ReturnRepository) Delete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("return_id = ?", id).Delete(&entity.SalesReturnItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&entity.SalesReturn{}).Error
}
