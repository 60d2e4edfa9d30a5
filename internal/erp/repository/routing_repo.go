package repository

import (
	"context"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoutingRepository 工作中心、工序与工艺路线仓库
type RoutingRepository struct {
	db *gorm.DB
}

func NewRoutingRepository(db *gorm.DB) *RoutingRepository {
	return &RoutingRepository{db: db}
}

// ========== 工作中心 ==========

func (r *RoutingRepository) FindWorkCenters(ctx context.Context, p ListParams) ([]entity.WorkCenter, int64, error) {
	var list []entity.WorkCenter
	query := r.db.WithContext(ctx).Model(&entity.WorkCenter{})
	switch p.Status {
	case "active":
		query = query.Where("is_active = ?", true)
	case "inactive":
		query = query.Where("is_active = ?", false)
	}
	query = keyword(query, p.Keyword, "code", "name", "location")
	total, err := paginate(query, p, &list, "code ASC")
	return list, total, err
}

func (r *RoutingRepository) FindWorkCenter(ctx context.Context, id string) (*entity.WorkCenter, error) {
	var wc entity.WorkCenter
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&wc).Error; err != nil {
		return nil, notFound(err)
	}
	return &wc, nil
}

func (r *RoutingRepository) WorkCenterCodeTaken(ctx context.Context, code, exceptID string) (bool, error) {
	return exists(r.db.WithContext(ctx), &entity.WorkCenter{}, "code = ? AND id <> ?", code, exceptID)
}

func (r *RoutingRepository) SaveWorkCenter(ctx context.Context, wc *entity.WorkCenter) error {
	return r.db.WithContext(ctx).Save(wc).Error
}

func (r *RoutingRepository) DeleteWorkCenter(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.WorkCenter{}).Error
}

// WorkCenterInUse 是否有工序使用该工作中心
func (r *RoutingRepository) WorkCenterInUse(ctx context.Context, id string) (bool, error) {
	return exists(r.db.WithContext(ctx), &entity.Operation{}, "work_center_id = ?", id)
}

// ========== 工序 ==========

func (r *RoutingRepository) FindOperations(ctx context.Context, p ListParams, workCenterID string) ([]entity.Operation, int64, error) {
	var list []entity.Operation
	query := r.db.WithContext(ctx).Model(&entity.Operation{})
	query = eq(query, "work_center_id", workCenterID)
	query = keyword(query, p.Keyword, "code", "name")
	total, err := paginate(query, p, &list, "code ASC", "WorkCenter")
	return list, total, err
}

func (r *RoutingRepository) FindOperation(ctx context.Context, id string) (*entity.Operation, error) {
	var op entity.Operation
	if err := r.db.WithContext(ctx).Preload("WorkCenter").Where("id = ?", id).First(&op).Error; err != nil {
		return nil, notFound(err)
	}
	return &op, nil
}

func (r *RoutingRepository) OperationCodeTaken(ctx context.Context, code, exceptID string) (bool, error) {
	return exists(r.db.WithContext(ctx), &entity.Operation{}, "code = ? AND id <> ?", code, exceptID)
}

func (r *RoutingRepository) SaveOperation(ctx context.Context, op *entity.Operation) error {
	return r.db.WithContext(ctx).Omit("WorkCenter").Save(op).Error
}

func (r *RoutingRepository) DeleteOperation(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Operation{}).Error
}

// OperationInUse 是否有工艺路线引用该工序
func (r *RoutingRepository) OperationInUse(ctx context.Context, id string) (bool, error) {
	return exists(r.db.WithContext(ctx), &entity.RouteOperation{}, "operation_id = ?", id)
}

// ========== 工艺路线 ==========

func (r *RoutingRepository) FindRoutes(ctx context.Context, p ListParams) ([]entity.ProductionRoute, int64, error) {
	var list []entity.ProductionRoute
	query := r.db.WithContext(ctx).Model(&entity.ProductionRoute{})
	query = eq(query, "status", p.Status)
	query = eq(query, "product_id", p.ProductID)
	query = keyword(query, p.Keyword, "code", "name")
	total, err := paginate(query, p, &list, "code ASC")
	return list, total, err
}

// FindRoute 查找工艺路线（工序按序号排列）
func (r *RoutingRepository) FindRoute(ctx context.Context, id string, lock bool) (*entity.ProductionRoute, error) {
	var route entity.ProductionRoute
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(lockForUpdate())
	}
	err := query.
		Preload("Operations", func(db *gorm.DB) *gorm.DB { return db.Order("sequence ASC") }).
		Preload("Operations.Operation").
		Where("id = ?", id).
		First(&route).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &route, nil
}

func (r *RoutingRepository) RouteCodeTaken(ctx context.Context, code, exceptID string) (bool, error) {
	return exists(r.db.WithContext(ctx), &entity.ProductionRoute{}, "code = ? AND id <> ?", code, exceptID)
}

// ClearDefaultRoute 取消产品其他路线的默认标记
func (r *RoutingRepository) ClearDefaultRoute(ctx context.Context, productID, exceptID string) error {
	return r.db.WithContext(ctx).Model(&entity.ProductionRoute{}).
		Where("product_id = ? AND id <> ? AND is_default = ?", productID, exceptID, true).
		Update("is_default", false).Error
}

func (r *RoutingRepository) CreateRoute(ctx context.Context, route *entity.ProductionRoute) error {
	return r.db.WithContext(ctx).Create(route).Error
}

func (r *RoutingRepository) UpdateRoute(ctx context.Context, route *entity.ProductionRoute) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(route).Error
}

func (r *RoutingRepository) DeleteRoute(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("route_id = ?", id).Delete(&entity.RouteOperation{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&entity.ProductionRoute{}).Error
}

func (r *RoutingRepository) FindRouteOperation(ctx context.Context, routeID, id string) (*entity.RouteOperation, error) {
	var ro entity.RouteOperation
	if err := r.db.WithContext(ctx).Where("id = ? AND route_id = ?", id, routeID).First(&ro).Error; err != nil {
		return nil, notFound(err)
	}
	return &ro, nil
}

func (r *RoutingRepository) SequenceTaken(ctx context.Context, routeID string, sequence int) (bool, error) {
	return exists(r.db.WithContext(ctx), &entity.RouteOperation{}, "route_id = ? AND sequence = ?", routeID, sequence)
}

func (r *RoutingRepository) CreateRouteOperation(ctx context.Context, ro *entity.RouteOperation) error {
	return r.db.WithContext(ctx).Omit("Operation").Create(ro).Error
}

func (r *RoutingRepository) DeleteRouteOperation(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.RouteOperation{}).Error
}

// SetCycleTime 回写路线周期时间
func (r *RoutingRepository) SetCycleTime(ctx context.Context, routeID string, cycle float64) error {
	return r.db.WithContext(ctx).Model(&entity.ProductionRoute{}).Where("id = ?", routeID).Update("cycle_time", cycle).Error
}

// RoutesUsingOperation 引用该工序的路线ID
func (r *RoutingRepository) RoutesUsingOperation(ctx context.Context, operationID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&entity.RouteOperation{}).
		Where("operation_id = ?", operationID).
		Distinct().Pluck("route_id", &ids).Error
	return ids, err
}
