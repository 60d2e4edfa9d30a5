package repository

import (
	"context"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PurchaseRepository 供应商与采购订单仓库
type PurchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// ========== 供应商 ==========

func (r *PurchaseRepository) FindSuppliers(ctx context.Context, p ListParams) ([]entity.Supplier, int64, error) {
	var list []entity.Supplier
	query := r.db.WithContext(ctx).Model(&entity.Supplier{})
	switch p.Status {
	case "active":
		query = query.Where("is_active = ?", true)
	case "inactive":
		query = query.Where("is_active = ?", false)
	}
	query = keyword(query, p.Keyword, "code", "name", "contact_person")
	total, err := paginate(query, p, &list, "code ASC")
	return list, total, err
}

func (r *PurchaseRepository) FindSupplier(ctx context.Context, id string) (*entity.Supplier, error) {
	var s entity.Supplier
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, notFound(err)
	}
	return &s, nil
}

func (r *PurchaseRepository) SupplierCodeTaken(ctx context.Context, code, exceptID string) (bool, error) {
	return exists(r.db.WithContext(ctx), &entity.Supplier{}, "code = ? AND id <> ?", code, exceptID)
}

func (r *PurchaseRepository) SaveSupplier(ctx context.Context, s *entity.Supplier) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *PurchaseRepository) DeleteSupplier(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Supplier{}).Error
}

func (r *PurchaseRepository) SupplierHasOrders(ctx context.Context, id string) (bool, error) {
	return exists(r.db.WithContext(ctx), &entity.PurchaseOrder{}, "supplier_id = ?", id)
}

// ========== 采购订单 ==========

func (r *PurchaseRepository) FindOrders(ctx context.Context, p ListParams) ([]entity.PurchaseOrder, int64, error) {
	var list []entity.PurchaseOrder
	query := r.db.WithContext(ctx).Model(&entity.PurchaseOrder{})
	query = eq(query, "status", p.Status)
	query = eq(query, "supplier_id", p.SupplierID)
	query = dateRange(query, "order_date", p)
	query = keyword(query, p.Keyword, "po_number", "notes")
	total, err := paginate(query, p, &list, "order_date DESC, created_at DESC", "Supplier")
	return list, total, err
}

func (r *PurchaseRepository) FindOrder(ctx context.Context, id string, lock bool) (*entity.PurchaseOrder, error) {
	var po entity.PurchaseOrder
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(lockForUpdate())
	}
	err := query.
		Preload("Supplier").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).
		First(&po).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &po, nil
}

func (r *PurchaseRepository) CreateOrder(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Omit("Supplier").Create(po).Error
}

func (r *PurchaseRepository) UpdateOrder(ctx context.Context, po *entity.PurchaseOrder) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(po).Error
}

// ReplaceItems 替换采购订单明细
func (r *PurchaseRepository) ReplaceItems(ctx context.Context, poID string, items []entity.PurchaseOrderItem) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("po_id = ?", poID).Delete(&entity.PurchaseOrderItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return db.Create(&items).Error
}

func (r *PurchaseRepository) UpdateItem(ctx context.Context, item *entity.PurchaseOrderItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *PurchaseRepository) DeleteOrder(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("po_id = ?", id).Delete(&entity.PurchaseOrderItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&entity.PurchaseOrder{}).Error
}

// OnOrderByProduct 已确认未收完的采购数量，按产品汇总
func (r *PurchaseRepository) OnOrderByProduct(ctx context.Context, productIDs []string) (map[string]float64, error) {
	result := make(map[string]float64, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}
	var rows []struct {
		ProductID string
		Qty       float64
	}
	err := r.db.WithContext(ctx).Model(&entity.PurchaseOrderItem{}).
		Select("erp_purchase_order_items.product_id AS product_id, SUM(erp_purchase_order_items.quantity - erp_purchase_order_items.received_quantity) AS qty").
		Joins("JOIN erp_purchase_orders ON erp_purchase_orders.id = erp_purchase_order_items.po_id").
		Where("erp_purchase_orders.status IN ?", []string{entity.POStatusConfirmed, entity.POStatusPartiallyReceived}).
		Where("erp_purchase_order_items.product_id IN ?", productIDs).
		Group("erp_purchase_order_items.product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ProductID] = row.Qty
	}
	return result, nil
}
