package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryRepository 仓库、库存与库存移动仓库
type InventoryRepository struct {
	db *gorm.DB
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// ========== 仓库 ==========

func (r *InventoryRepository) FindWarehouses(ctx context.Context, p ListParams) ([]entity.Warehouse, int64, error) {
	var list []entity.Warehouse
	query := r.db.WithContext(ctx).Model(&entity.Warehouse{})
	switch p.Status {
	case "active":
		query = query.Where("is_active = ?", true)
	case "inactive":
		query = query.Where("is_active = ?", false)
	}
	query = keyword(query, p.Keyword, "code", "name")
	total, err := paginate(query, p, &list, "code ASC")
	return list, total, err
}

func (r *InventoryRepository) FindWarehouse(ctx context.Context, id string) (*entity.Warehouse, error) {
	var wh entity.Warehouse
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&wh).Error; err != nil {
		return nil, notFound(err)
	}
	return &wh, nil
}

func (r *InventoryRepository) WarehouseCodeTaken(ctx context.Context, code, exceptID string) (bool, error) {
	return exists(r.db.WithContext(ctx), &entity.Warehouse{}, "code = ? AND id <> ?", code, exceptID)
}

func (r *InventoryRepository) SaveWarehouse(ctx context.Context, wh *entity.Warehouse) error {
	return r.db.WithContext(ctx).Save(wh).Error
}

func (r *InventoryRepository) DeleteWarehouse(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Warehouse{}).Error
}

// WarehouseInUse 仓库是否有库存或移动记录
func (r *InventoryRepository) WarehouseInUse(ctx context.Context, id string) (bool, error) {
	db := r.db.WithContext(ctx)
	found, err := exists(db, &entity.Inventory{}, "warehouse_id = ? AND quantity <> 0", id)
	if err != nil || found {
		return found, err
	}
	return exists(db, &entity.StockMovement{}, "warehouse_id = ?", id)
}

// ========== 库存 ==========

// FindInventory 查询库存列表
func (r *InventoryRepository) FindInventory(ctx context.Context, p ListParams, warehouseID string) ([]entity.Inventory, int64, error) {
	var list []entity.Inventory
	query := r.db.WithContext(ctx).Model(&entity.Inventory{})
	query = eq(query, "warehouse_id", warehouseID)
	query = eq(query, "product_id", p.ProductID)
	total, err := paginate(query, p, &list, "updated_at DESC", "Warehouse", "Product")
	return list, total, err
}

// LockInventory 锁定仓库+产品的库存行，不存在时先以零数量创建
func (r *InventoryRepository) LockInventory(ctx context.Context, warehouseID, productID string) (*entity.Inventory, error) {
	db := r.db.WithContext(ctx)
	seed := entity.Inventory{ID: uuid.New().String(), WarehouseID: warehouseID, ProductID: productID}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "warehouse_id"}, {Name: "product_id"}},
		DoNothing: true,
	}).Omit(clause.Associations).Create(&seed).Error
	if err != nil {
		return nil, err
	}

	var inv entity.Inventory
	err = db.Clauses(lockForUpdate()).
		Where("warehouse_id = ? AND product_id = ?", warehouseID, productID).
		First(&inv).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &inv, nil
}

// SaveInventory 回写数量
func (r *InventoryRepository) SaveInventory(ctx context.Context, inv *entity.Inventory) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&entity.Inventory{}).Where("id = ?", inv.ID).Updates(map[string]interface{}{
		"quantity":           inv.Quantity,
		"reserved_quantity":  inv.ReservedQuantity,
		"available_quantity": inv.AvailableQuantity,
		"last_moved_at":      now,
		"updated_at":         now,
	}).Error
}

// AvailableByProduct 全部仓库可用数量，按产品汇总
func (r *InventoryRepository) AvailableByProduct(ctx context.Context, productIDs []string) (map[string]float64, error) {
	result := make(map[string]float64, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}
	var rows []struct {
		ProductID string
		Qty       float64
	}
	err := r.db.WithContext(ctx).Model(&entity.Inventory{}).
		Select("product_id, SUM(available_quantity) AS qty").
		Where("product_id IN ?", productIDs).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.ProductID] = row.Qty
	}
	return result, nil
}

// ========== 库存移动 ==========

func (r *InventoryRepository) FindMovements(ctx context.Context, p ListParams, warehouseID, movementType string) ([]entity.StockMovement, int64, error) {
	var list []entity.StockMovement
	query := r.db.WithContext(ctx).Model(&entity.StockMovement{})
	query = eq(query, "warehouse_id", warehouseID)
	query = eq(query, "product_id", p.ProductID)
	query = eq(query, "movement_type", movementType)
	query = dateRange(query, "created_at", p)
	query = keyword(query, p.Keyword, "movement_number", "reference_id")
	total, err := paginate(query, p, &list, "created_at DESC")
	return list, total, err
}

func (r *InventoryRepository) CreateMovement(ctx context.Context, m *entity.StockMovement) error {
	return r.db.WithContext(ctx).Create(m).Error
}
