package repository

import (
	"context"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"gorm.io/gorm"
)

// ProductRepository 产品仓库
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// FindAll 查询产品列表，Status 为类别过滤
func (r *ProductRepository) FindAll(ctx context.Context, p ListParams) ([]entity.Product, int64, error) {
	var list []entity.Product
	query := r.db.WithContext(ctx).Model(&entity.Product{})
	query = eq(query, "category", p.Status)
	query = keyword(query, p.Keyword, "code", "name", "barcode")
	total, err := paginate(query, p, &list, "code ASC")
	return list, total, err
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	var prod entity.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&prod).Error; err != nil {
		return nil, notFound(err)
	}
	return &prod, nil
}

func (r *ProductRepository) FindByCode(ctx context.Context, code string) (*entity.Product, error) {
	var prod entity.Product
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&prod).Error; err != nil {
		return nil, notFound(err)
	}
	return &prod, nil
}

// FindByIDs 批量查找，返回 id → 产品
func (r *ProductRepository) FindByIDs(ctx context.Context, ids []string) (map[string]entity.Product, error) {
	result := make(map[string]entity.Product, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var list []entity.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, p := range list {
		result[p.ID] = p
	}
	return result, nil
}

func (r *ProductRepository) CodeTaken(ctx context.Context, code, exceptID string) (bool, error) {
	return exists(r.db.WithContext(ctx), &entity.Product{}, "code = ? AND id <> ?", code, exceptID)
}

func (r *ProductRepository) Create(ctx context.Context, prod *entity.Product) error {
	return r.db.WithContext(ctx).Create(prod).Error
}

func (r *ProductRepository) Update(ctx context.Context, prod *entity.Product) error {
	return r.db.WithContext(ctx).Save(prod).Error
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Product{}).Error
}

// IsReferencedByBOM 是否作为BOM成品或组件被引用
func (r *ProductRepository) IsReferencedByBOM(ctx context.Context, id string) (bool, error) {
	db := r.db.WithContext(ctx)
	found, err := exists(db, &entity.BOM{}, "product_id = ?", id)
	if err != nil || found {
		return found, err
	}
	return exists(db, &entity.BOMItem{}, "component_id = ?", id)
}
