package repository

import (
	"context"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"gorm.io/gorm"
)

// WorkOrderRepository 生产工单仓库
type WorkOrderRepository struct {
	db *gorm.DB
}

func NewWorkOrderRepository(db *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

func (r *WorkOrderRepository) FindAll(ctx context.Context, p ListParams) ([]entity.WorkOrder, int64, error) {
	var list []entity.WorkOrder
	query := r.db.WithContext(ctx).Model(&entity.WorkOrder{})
	query = eq(query, "status", p.Status)
	query = eq(query, "product_id", p.ProductID)
	query = eq(query, "order_id", p.OrderID)
	query = dateRange(query, "planned_start", p)
	query = keyword(query, p.Keyword, "work_order_number", "notes")
	total, err := paginate(query, p, &list, "priority DESC, created_at DESC")
	return list, total, err
}

func (r *WorkOrderRepository) FindByID(ctx context.Context, id string, lock bool) (*entity.WorkOrder, error) {
	var wo entity.WorkOrder
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(lockForUpdate())
	}
	if err := query.Where("id = ?", id).First(&wo).Error; err != nil {
		return nil, notFound(err)
	}
	return &wo, nil
}

func (r *WorkOrderRepository) Create(ctx context.Context, wo *entity.WorkOrder) error {
	return r.db.WithContext(ctx).Create(wo).Error
}

func (r *WorkOrderRepository) Update(ctx context.Context, wo *entity.WorkOrder) error {
	return r.db.WithContext(ctx).Save(wo).Error
}

func (r *WorkOrderRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.WorkOrder{}).Error
}
