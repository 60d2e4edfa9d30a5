package repository

import (
	"context"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BOMRepository 物料清单仓库
type BOMRepository struct {
	db *gorm.DB
}

func NewBOMRepository(db *gorm.DB) *BOMRepository {
	return &BOMRepository{db: db}
}

func orderedBOMItems(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, created_at ASC")
}

// FindAll 查询BOM列表
func (r *BOMRepository) FindAll(ctx context.Context, p ListParams) ([]entity.BOM, int64, error) {
	var list []entity.BOM
	query := r.db.WithContext(ctx).Model(&entity.BOM{})
	query = eq(query, "product_id", p.ProductID)
	query = eq(query, "bom_type", p.Status)
	query = keyword(query, p.Keyword, "code", "name")
	total, err := paginate(query, p, &list, "code ASC", "Product")
	return list, total, err
}

// FindByID 查找BOM（含成品与组件）
func (r *BOMRepository) FindByID(ctx context.Context, id string, lock bool) (*entity.BOM, error) {
	var bom entity.BOM
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(lockForUpdate())
	}
	err := query.
		Preload("Product").
		Preload("Items", orderedBOMItems).
		Preload("Items.Component").
		Where("id = ?", id).
		First(&bom).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &bom, nil
}

// FindDefault 产品的默认启用BOM
func (r *BOMRepository) FindDefault(ctx context.Context, productID string) (*entity.BOM, error) {
	var bom entity.BOM
	err := r.db.WithContext(ctx).
		Preload("Product").
		Preload("Items", orderedBOMItems).
		Preload("Items.Component").
		Where("product_id = ? AND is_default = ? AND is_active = ?", productID, true, true).
		First(&bom).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &bom, nil
}

// DefaultItems 产品默认BOM的行，没有默认BOM时返回空
func (r *BOMRepository) DefaultItems(ctx context.Context, productID string) ([]entity.BOMItem, error) {
	var items []entity.BOMItem
	err := r.db.WithContext(ctx).
		Select("erp_bom_items.*").
		Joins("JOIN erp_boms ON erp_boms.id = erp_bom_items.bom_id").
		Where("erp_boms.product_id = ? AND erp_boms.is_default = ? AND erp_boms.is_active = ?", productID, true, true).
		Order("erp_bom_items.position ASC").
		Find(&items).Error
	return items, err
}

func (r *BOMRepository) CodeTaken(ctx context.Context, code, exceptID string) (bool, error) {
	return exists(r.db.WithContext(ctx), &entity.BOM{}, "code = ? AND id <> ?", code, exceptID)
}

// ClearDefault 取消产品其他BOM的默认标记
func (r *BOMRepository) ClearDefault(ctx context.Context, productID, exceptID string) error {
	return r.db.WithContext(ctx).Model(&entity.BOM{}).
		Where("product_id = ? AND id <> ? AND is_default = ?", productID, exceptID, true).
		Update("is_default", false).Error
}

func (r *BOMRepository) Create(ctx context.Context, bom *entity.BOM) error {
	return r.db.WithContext(ctx).Omit("Product").Create(bom).Error
}

func (r *BOMRepository) Update(ctx context.Context, bom *entity.BOM) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(bom).Error
}

func (r *BOMRepository) Delete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("bom_id = ?", id).Delete(&entity.BOMItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&entity.BOM{}).Error
}

func (r *BOMRepository) FindItem(ctx context.Context, bomID, itemID string) (*entity.BOMItem, error) {
	var item entity.BOMItem
	err := r.db.WithContext(ctx).Where("id = ? AND bom_id = ?", itemID, bomID).First(&item).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (r *BOMRepository) NextPosition(ctx context.Context, bomID string) (int, error) {
	var max int
	err := r.db.WithContext(ctx).Model(&entity.BOMItem{}).
		Where("bom_id = ?", bomID).
		Select("COALESCE(MAX(position), 0)").Scan(&max).Error
	return max + 1, err
}

func (r *BOMRepository) CreateItem(ctx context.Context, item *entity.BOMItem) error {
	return r.db.WithContext(ctx).Omit("Component").Create(item).Error
}

func (r *BOMRepository) UpdateItem(ctx context.Context, item *entity.BOMItem) error {
	return r.db.WithContext(ctx).Omit("Component").Save(item).Error
}

func (r *BOMRepository) DeleteItem(ctx context.Context, itemID string) error {
	return r.db.WithContext(ctx).Where("id = ?", itemID).Delete(&entity.BOMItem{}).Error
}
