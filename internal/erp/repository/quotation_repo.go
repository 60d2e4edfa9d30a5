package repository

import (
	"context"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuotationRepository 报价单仓库
type QuotationRepository struct {
	db *gorm.DB
}

func NewQuotationRepository(db *gorm.DB) *QuotationRepository {
	return &QuotationRepository{db: db}
}

// FindAll 查询报价单列表
func (r *QuotationRepository) FindAll(ctx context.Context, p ListParams) ([]entity.Quotation, int64, error) {
	var list []entity.Quotation
	query := r.db.WithContext(ctx).Model(&entity.Quotation{})
	query = eq(query, "status", p.Status)
	query = eq(query, "customer_id", p.CustomerID)
	query = dateRange(query, "quotation_date", p)
	query = keyword(query, p.Keyword, "quotation_number", "subject")
	total, err := paginate(query, p, &list, "quotation_date DESC, created_at DESC", "Customer")
	return list, total, err
}

// FindByID 查找报价单（含明细），lock 为 true 时锁定表头行
func (r *QuotationRepository) FindByID(ctx context.Context, id string, lock bool) (*entity.Quotation, error) {
	var q entity.Quotation
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(lockForUpdate())
	}
	err := query.
		Preload("Customer").
		Preload("Items", orderedLines).
		Where("id = ?", id).
		First(&q).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &q, nil
}

// Create 创建报价单及明细
func (r *QuotationRepository) Create(ctx context.Context, q *entity.Quotation) error {
	return r.db.WithContext(ctx).Omit("Customer").Create(q).Error
}

// Update 更新表头，不触碰明细
func (r *QuotationRepository) Update(ctx context.Context, q *entity.Quotation) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(q).Error
}

// Delete 删除报价单及明细
func (r *QuotationRepository) Delete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("quotation_id = ?", id).Delete(&entity.QuotationItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&entity.Quotation{}).Error
}

func (r *QuotationRepository) FindItems(ctx context.Context, quotationID string) ([]entity.QuotationItem, error) {
	var items []entity.QuotationItem
	err := orderedLines(r.db.WithContext(ctx).Where("quotation_id = ?", quotationID)).Find(&items).Error
	return items, err
}

func (r *QuotationRepository) FindItem(ctx context.Context, quotationID, itemID string) (*entity.QuotationItem, error) {
	var item entity.QuotationItem
	err := r.db.WithContext(ctx).Where("id = ? AND quotation_id = ?", itemID, quotationID).First(&item).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// NextLineNo 下一个行号
func (r *QuotationRepository) NextLineNo(ctx context.Context, quotationID string) (int, error) {
	var max int
	err := r.db.WithContext(ctx).Model(&entity.QuotationItem{}).
		Where("quotation_id = ?", quotationID).
		Select("COALESCE(MAX(line_no), 0)").Scan(&max).Error
	return max + 1, err
}

func (r *QuotationRepository) CreateItem(ctx context.Context, item *entity.QuotationItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *QuotationRepository) UpdateItem(ctx context.Context, item *entity.QuotationItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *QuotationRepository) DeleteItem(ctx context.Context, itemID string) error {
	return r.db.WithContext(ctx).Where("id = ?", itemID).Delete(&entity.QuotationItem{}).Error
}
