package repository

import (
	"context"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlanningRepository 生产计划与MRP仓库
type PlanningRepository struct {
	db *gorm.DB
}

func NewPlanningRepository(db *gorm.DB) *PlanningRepository {
	return &PlanningRepository{db: db}
}

// ========== 生产计划 ==========

func (r *PlanningRepository) FindPlans(ctx context.Context, p ListParams) ([]entity.ProductionPlan, int64, error) {
	var list []entity.ProductionPlan
	query := r.db.WithContext(ctx).Model(&entity.ProductionPlan{})
	query = eq(query, "status", p.Status)
	query = dateRange(query, "planned_start_date", p)
	query = keyword(query, p.Keyword, "plan_number", "name")
	total, err := paginate(query, p, &list, "planned_start_date DESC, created_at DESC")
	return list, total, err
}

func (r *PlanningRepository) FindPlan(ctx context.Context, id string, lock bool) (*entity.ProductionPlan, error) {
	var plan entity.ProductionPlan
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(lockForUpdate())
	}
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).
		First(&plan).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &plan, nil
}

func (r *PlanningRepository) CreatePlan(ctx context.Context, plan *entity.ProductionPlan) error {
	return r.db.WithContext(ctx).Create(plan).Error
}

func (r *PlanningRepository) UpdatePlan(ctx context.Context, plan *entity.ProductionPlan) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(plan).Error
}

func (r *PlanningRepository) DeletePlan(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("plan_id = ?", id).Delete(&entity.ProductionPlanItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&entity.ProductionPlan{}).Error
}

func (r *PlanningRepository) FindPlanItem(ctx context.Context, id string) (*entity.ProductionPlanItem, error) {
	var item entity.ProductionPlanItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (r *PlanningRepository) SavePlanItem(ctx context.Context, item *entity.ProductionPlanItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *PlanningRepository) DeletePlanItem(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.ProductionPlanItem{}).Error
}

// ========== MRP ==========

func (r *PlanningRepository) FindMRPs(ctx context.Context, p ListParams) ([]entity.MaterialRequirementPlan, int64, error) {
	var list []entity.MaterialRequirementPlan
	query := r.db.WithContext(ctx).Model(&entity.MaterialRequirementPlan{})
	query = eq(query, "status", p.Status)
	query = dateRange(query, "created_at", p)
	query = keyword(query, p.Keyword, "mrp_number", "name")
	total, err := paginate(query, p, &list, "created_at DESC")
	return list, total, err
}

func (r *PlanningRepository) FindMRP(ctx context.Context, id string, lock bool) (*entity.MaterialRequirementPlan, error) {
	var mrp entity.MaterialRequirementPlan
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(lockForUpdate())
	}
	err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).
		First(&mrp).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &mrp, nil
}

func (r *PlanningRepository) CreateMRP(ctx context.Context, mrp *entity.MaterialRequirementPlan) error {
	return r.db.WithContext(ctx).Create(mrp).Error
}

func (r *PlanningRepository) UpdateMRP(ctx context.Context, mrp *entity.MaterialRequirementPlan) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(mrp).Error
}

func (r *PlanningRepository) DeleteMRP(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("mrp_id = ?", id).Delete(&entity.MRPItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&entity.MaterialRequirementPlan{}).Error
}

func (r *PlanningRepository) FindMRPItem(ctx context.Context, id string) (*entity.MRPItem, error) {
	var item entity.MRPItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (r *PlanningRepository) CreateMRPItem(ctx context.Context, item *entity.MRPItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *PlanningRepository) DeleteMRPItem(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.MRPItem{}).Error
}
