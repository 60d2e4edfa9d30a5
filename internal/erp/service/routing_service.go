package service

import (
	"context"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/bitfantasy/nimo-erp/internal/erp/workflow"
	"github.com/google/uuid"
)

// RoutingService 工作中心、工序与工艺路线
type RoutingService struct {
	base
}

func NewRoutingService(b base) *RoutingService {
	return &RoutingService{base: b}
}

// ========== 工作中心 ==========

type WorkCenterRequest struct {
	Code        string   `json:"code" binding:"required,max=50"`
	Name        string   `json:"name" binding:"required,max=200"`
	Description string   `json:"description"`
	Capacity    *float64 `json:"capacity" binding:"omitempty,gte=0"`
	Efficiency  *float64 `json:"efficiency" binding:"omitempty,gte=0"`
	Location    string   `json:"location"`
	CostPerHour float64  `json:"cost_per_hour" binding:"gte=0"`
	IsActive    *bool    `json:"is_active"`
}

type WorkCenterPatch struct {
	Code        *string  `json:"code" binding:"omitempty,max=50"`
	Name        *string  `json:"name" binding:"omitempty,max=200"`
	Description *string  `json:"description"`
	Capacity    *float64 `json:"capacity" binding:"omitempty,gte=0"`
	Efficiency  *float64 `json:"efficiency" binding:"omitempty,gte=0"`
	Location    *string  `json:"location"`
	CostPerHour *float64 `json:"cost_per_hour" binding:"omitempty,gte=0"`
	IsActive    *bool    `json:"is_active"`
}

func (s *RoutingService) ListWorkCenters(ctx context.Context, p repository.ListParams) (*Page[entity.WorkCenter], error) {
	list, total, err := s.repos.Routing.FindWorkCenters(ctx, p)
	return listPage(list, total, err, p)
}

func (s *RoutingService) GetWorkCenter(ctx context.Context, id string) (*entity.WorkCenter, error) {
	wc, err := s.repos.Routing.FindWorkCenter(ctx, id)
	return wc, translate(err, "工作中心")
}

func (s *RoutingService) checkWorkCenterCode(ctx context.Context, code, exceptID string) error {
	taken, err := s.repos.Routing.WorkCenterCodeTaken(ctx, code, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return conflictError("工作中心编码 %s 已存在", code)
	}
	return nil
}

func (s *RoutingService) CreateWorkCenter(ctx context.Context, req *WorkCenterRequest) (*entity.WorkCenter, error) {
	if err := s.checkWorkCenterCode(ctx, req.Code, ""); err != nil {
		return nil, err
	}
	wc := &entity.WorkCenter{
		ID:          uuid.New().String(),
		Code:        req.Code,
		Name:        req.Name,
		Description: req.Description,
		Capacity:    1,
		Efficiency:  100,
		Location:    req.Location,
		CostPerHour: req.CostPerHour,
		IsActive:    boolOr(req.IsActive, true),
	}
	setF(&wc.Capacity, req.Capacity)
	setF(&wc.Efficiency, req.Efficiency)
	if err := s.repos.Routing.SaveWorkCenter(ctx, wc); err != nil {
		return nil, translate(err, "工作中心")
	}
	return wc, nil
}

func (s *RoutingService) UpdateWorkCenter(ctx context.Context, id string, req *WorkCenterPatch) (*entity.WorkCenter, error) {
	wc, err := s.repos.Routing.FindWorkCenter(ctx, id)
	if err != nil {
		return nil, translate(err, "工作中心")
	}
	if req.Code != nil && *req.Code != wc.Code {
		if err := s.checkWorkCenterCode(ctx, *req.Code, id); err != nil {
			return nil, err
		}
	}
	setS(&wc.Code, req.Code)
	setS(&wc.Name, req.Name)
	setS(&wc.Description, req.Description)
	setF(&wc.Capacity, req.Capacity)
	setF(&wc.Efficiency, req.Efficiency)
	setS(&wc.Location, req.Location)
	setF(&wc.CostPerHour, req.CostPerHour)
	setB(&wc.IsActive, req.IsActive)
	if err := s.repos.Routing.SaveWorkCenter(ctx, wc); err != nil {
		return nil, translate(err, "工作中心")
	}
	return wc, nil
}

// DeleteWorkCenter 仍有工序使用时不能删除
func (s *RoutingService) DeleteWorkCenter(ctx context.Context, id string) error {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.Routing.FindWorkCenter(ctx, id); err != nil {
			return err
		}
		used, err := r.Routing.WorkCenterInUse(ctx, id)
		if err != nil {
			return err
		}
		if used {
			return stateError("工作中心仍被工序使用，不能删除")
		}
		return r.Routing.DeleteWorkCenter(ctx, id)
	})
	return translate(err, "工作中心")
}

// ========== 工序 ==========

type OperationRequest struct {
	Code                 string  `json:"code" binding:"required,max=50"`
	Name                 string  `json:"name" binding:"required,max=200"`
	Description          string  `json:"description"`
	WorkCenterID         string  `json:"work_center_id" binding:"required"`
	SetupTime            float64 `json:"setup_time" binding:"gte=0"`
	Runtime              float64 `json:"runtime" binding:"gte=0"`
	TeardownTime         float64 `json:"teardown_time" binding:"gte=0"`
	QueueTime            float64 `json:"queue_time" binding:"gte=0"`
	MoveTime             float64 `json:"move_time" binding:"gte=0"`
	QualityCheckRequired bool    `json:"quality_check_required"`
	Instructions         string  `json:"instructions"`
}

type OperationPatch struct {
	Code                 *string  `json:"code" binding:"omitempty,max=50"`
	Name                 *string  `json:"name" binding:"omitempty,max=200"`
	Description          *string  `json:"description"`
	WorkCenterID         *string  `json:"work_center_id"`
	SetupTime            *float64 `json:"setup_time" binding:"omitempty,gte=0"`
	Runtime              *float64 `json:"runtime" binding:"omitempty,gte=0"`
	TeardownTime         *float64 `json:"teardown_time" binding:"omitempty,gte=0"`
	QueueTime            *float64 `json:"queue_time" binding:"omitempty,gte=0"`
	MoveTime             *float64 `json:"move_time" binding:"omitempty,gte=0"`
	QualityCheckRequired *bool    `json:"quality_check_required"`
	Instructions         *string  `json:"instructions"`
}

func (s *RoutingService) ListOperations(ctx context.Context, p repository.ListParams, workCenterID string) (*Page[entity.Operation], error) {
	list, total, err := s.repos.Routing.FindOperations(ctx, p, workCenterID)
	return listPage(list, total, err, p)
}

func (s *RoutingService) GetOperation(ctx context.Context, id string) (*entity.Operation, error) {
	op, err := s.repos.Routing.FindOperation(ctx, id)
	return op, translate(err, "工序")
}

func (s *RoutingService) checkOperationCode(ctx context.Context, code, exceptID string) error {
	taken, err := s.repos.Routing.OperationCodeTaken(ctx, code, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return conflictError("工序编码 %s 已存在", code)
	}
	return nil
}

func (s *RoutingService) CreateOperation(ctx context.Context, req *OperationRequest) (*entity.Operation, error) {
	if _, err := s.repos.Routing.FindWorkCenter(ctx, req.WorkCenterID); err != nil {
		return nil, translate(err, "工作中心")
	}
	if err := s.checkOperationCode(ctx, req.Code, ""); err != nil {
		return nil, err
	}
	op := &entity.Operation{
		ID:                   uuid.New().String(),
		Code:                 req.Code,
		Name:                 req.Name,
		Description:          req.Description,
		WorkCenterID:         req.WorkCenterID,
		SetupTime:            req.SetupTime,
		Runtime:              req.Runtime,
		TeardownTime:         req.TeardownTime,
		QueueTime:            req.QueueTime,
		MoveTime:             req.MoveTime,
		QualityCheckRequired: req.QualityCheckRequired,
		Instructions:         req.Instructions,
	}
	if err := s.repos.Routing.SaveOperation(ctx, op); err != nil {
		return nil, translate(err, "工序")
	}
	return s.GetOperation(ctx, op.ID)
}

func (s *RoutingService) UpdateOperation(ctx context.Context, id string, req *OperationPatch) (*entity.Operation, error) {
	op, err := s.repos.Routing.FindOperation(ctx, id)
	if err != nil {
		return nil, translate(err, "工序")
	}
	if req.Code != nil && *req.Code != op.Code {
		if err := s.checkOperationCode(ctx, *req.Code, id); err != nil {
			return nil, err
		}
	}
	if req.WorkCenterID != nil && *req.WorkCenterID != op.WorkCenterID {
		if _, err := s.repos.Routing.FindWorkCenter(ctx, *req.WorkCenterID); err != nil {
			return nil, translate(err, "工作中心")
		}
		op.WorkCenter = nil
	}
	setS(&op.Code, req.Code)
	setS(&op.Name, req.Name)
	setS(&op.Description, req.Description)
	setS(&op.WorkCenterID, req.WorkCenterID)
	setF(&op.SetupTime, req.SetupTime)
	setF(&op.Runtime, req.Runtime)
	setF(&op.TeardownTime, req.TeardownTime)
	setF(&op.QueueTime, req.QueueTime)
	setF(&op.MoveTime, req.MoveTime)
	setB(&op.QualityCheckRequired, req.QualityCheckRequired)
	setS(&op.Instructions, req.Instructions)
	err = s.inTx(ctx, func(r *repository.Repositories) error {
		if err := r.Routing.SaveOperation(ctx, op); err != nil {
			return err
		}
		return refreshCycleTimes(ctx, r, id)
	})
	if err != nil {
		return nil, translate(err, "工序")
	}
	return s.GetOperation(ctx, id)
}

// DeleteOperation 仍被工艺路线引用时不能删除
func (s *RoutingService) DeleteOperation(ctx context.Context, id string) error {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.Routing.FindOperation(ctx, id); err != nil {
			return err
		}
		used, err := r.Routing.OperationInUse(ctx, id)
		if err != nil {
			return err
		}
		if used {
			return stateError("工序仍被工艺路线引用，不能删除")
		}
		return r.Routing.DeleteOperation(ctx, id)
	})
	return translate(err, "工序")
}

// ========== 工艺路线 ==========

type RouteOperationRequest struct {
	OperationID  string   `json:"operation_id" binding:"required"`
	Sequence     int      `json:"sequence" binding:"gte=0"`
	SetupTime    *float64 `json:"setup_time" binding:"omitempty,gte=0"`
	Runtime      *float64 `json:"runtime" binding:"omitempty,gte=0"`
	TeardownTime *float64 `json:"teardown_time" binding:"omitempty,gte=0"`
	Notes        string   `json:"notes"`
}

type CreateRouteRequest struct {
	ProductID  string                  `json:"product_id" binding:"required"`
	Code       string                  `json:"code" binding:"required,max=50"`
	Name       string                  `json:"name" binding:"required,max=200"`
	Version    string                  `json:"version"`
	Status     string                  `json:"status"`
	IsDefault  bool                    `json:"is_default"`
	BatchSize  float64                 `json:"batch_size" binding:"gte=0"`
	Notes      string                  `json:"notes"`
	Operations []RouteOperationRequest `json:"operations" binding:"dive"`
}

type UpdateRouteRequest struct {
	Code      *string  `json:"code" binding:"omitempty,max=50"`
	Name      *string  `json:"name" binding:"omitempty,max=200"`
	Version   *string  `json:"version"`
	Status    *string  `json:"status"`
	IsDefault *bool    `json:"is_default"`
	BatchSize *float64 `json:"batch_size" binding:"omitempty,gt=0"`
	Notes     *string  `json:"notes"`
}

// stepMinutes 工序在路线中的有效时间：覆盖值优先，排队和搬运时间取标准工序
func stepMinutes(ro entity.RouteOperation) float64 {
	var setup, run, teardown, queue, move float64
	if ro.Operation != nil {
		setup, run, teardown = ro.Operation.SetupTime, ro.Operation.Runtime, ro.Operation.TeardownTime
		queue, move = ro.Operation.QueueTime, ro.Operation.MoveTime
	}
	setF(&setup, ro.SetupTime)
	setF(&run, ro.Runtime)
	setF(&teardown, ro.TeardownTime)
	return setup + run + teardown + queue + move
}

func cycleTime(ops []entity.RouteOperation) float64 {
	var total float64
	for _, ro := range ops {
		total += stepMinutes(ro)
	}
	return workflow.Round2(total)
}

func recomputeCycleTime(ctx context.Context, r *repository.Repositories, routeID string) error {
	route, err := r.Routing.FindRoute(ctx, routeID, false)
	if err != nil {
		return err
	}
	return r.Routing.SetCycleTime(ctx, routeID, cycleTime(route.Operations))
}

// refreshCycleTimes 标准工序时间变化后，重算引用它的路线
func refreshCycleTimes(ctx context.Context, r *repository.Repositories, operationID string) error {
	ids, err := r.Routing.RoutesUsingOperation(ctx, operationID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := recomputeCycleTime(ctx, r, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *RoutingService) ListRoutes(ctx context.Context, p repository.ListParams) (*Page[entity.ProductionRoute], error) {
	list, total, err := s.repos.Routing.FindRoutes(ctx, p)
	return listPage(list, total, err, p)
}

func (s *RoutingService) GetRoute(ctx context.Context, id string) (*entity.ProductionRoute, error) {
	route, err := s.repos.Routing.FindRoute(ctx, id, false)
	return route, translate(err, "工艺路线")
}

func checkRouteCode(ctx context.Context, r *repository.Repositories, code, exceptID string) error {
	taken, err := r.Routing.RouteCodeTaken(ctx, code, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return conflictError("工艺路线编码 %s 已存在", code)
	}
	return nil
}

func newRouteOperation(ctx context.Context, r *repository.Repositories, routeID string, in RouteOperationRequest) (*entity.RouteOperation, error) {
	if _, err := r.Routing.FindOperation(ctx, in.OperationID); err != nil {
		return nil, translate(err, "工序")
	}
	return &entity.RouteOperation{
		ID:           uuid.New().String(),
		RouteID:      routeID,
		OperationID:  in.OperationID,
		Sequence:     in.Sequence,
		SetupTime:    in.SetupTime,
		Runtime:      in.Runtime,
		TeardownTime: in.TeardownTime,
		Notes:        in.Notes,
	}, nil
}

func (s *RoutingService) CreateRoute(ctx context.Context, userID string, req *CreateRouteRequest) (*entity.ProductionRoute, error) {
	status := entity.RouteStatusDraft
	if req.Status != "" {
		if err := workflow.Validate(workflow.KindRoute, req.Status); err != nil {
			return nil, translate(err, "工艺路线")
		}
		status = req.Status
	}
	var routeID string
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.Product.FindByID(ctx, req.ProductID); err != nil {
			return translate(err, "产品")
		}
		if err := checkRouteCode(ctx, r, req.Code, ""); err != nil {
			return err
		}
		route := &entity.ProductionRoute{
			ID:        uuid.New().String(),
			ProductID: req.ProductID,
			Code:      req.Code,
			Name:      req.Name,
			Version:   req.Version,
			Status:    status,
			IsDefault: req.IsDefault,
			BatchSize: req.BatchSize,
			Notes:     req.Notes,
			CreatedBy: userID,
		}
		if route.Version == "" {
			route.Version = "1.0"
		}
		if route.BatchSize == 0 {
			route.BatchSize = 1
		}
		if route.IsDefault {
			if err := r.Routing.ClearDefaultRoute(ctx, route.ProductID, route.ID); err != nil {
				return err
			}
		}
		if err := r.Routing.CreateRoute(ctx, route); err != nil {
			return err
		}
		seen := make(map[int]bool)
		for i, in := range req.Operations {
			if in.Sequence == 0 {
				in.Sequence = (i + 1) * 10
			}
			if seen[in.Sequence] {
				return conflictError("工序序号 %d 重复", in.Sequence)
			}
			seen[in.Sequence] = true
			ro, err := newRouteOperation(ctx, r, route.ID, in)
			if err != nil {
				return err
			}
			if err := r.Routing.CreateRouteOperation(ctx, ro); err != nil {
				return err
			}
		}
		routeID = route.ID
		return recomputeCycleTime(ctx, r, route.ID)
	})
	if err != nil {
		return nil, translate(err, "工艺路线")
	}
	return s.GetRoute(ctx, routeID)
}

func (s *RoutingService) UpdateRoute(ctx context.Context, id string, req *UpdateRouteRequest) (*entity.ProductionRoute, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		route, err := r.Routing.FindRoute(ctx, id, true)
		if err != nil {
			return err
		}
		if req.Status != nil {
			if err := workflow.Transition(workflow.KindRoute, route.Status, *req.Status); err != nil {
				return err
			}
		}
		if req.Code != nil && *req.Code != route.Code {
			if err := checkRouteCode(ctx, r, *req.Code, id); err != nil {
				return err
			}
		}
		setS(&route.Code, req.Code)
		setS(&route.Name, req.Name)
		setS(&route.Version, req.Version)
		setS(&route.Status, req.Status)
		setB(&route.IsDefault, req.IsDefault)
		setF(&route.BatchSize, req.BatchSize)
		setS(&route.Notes, req.Notes)
		if route.IsDefault {
			if err := r.Routing.ClearDefaultRoute(ctx, route.ProductID, route.ID); err != nil {
				return err
			}
		}
		return r.Routing.UpdateRoute(ctx, route)
	})
	if err != nil {
		return nil, translate(err, "工艺路线")
	}
	return s.GetRoute(ctx, id)
}

func (s *RoutingService) DeleteRoute(ctx context.Context, id string) error {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.Routing.FindRoute(ctx, id, true); err != nil {
			return err
		}
		return r.Routing.DeleteRoute(ctx, id)
	})
	return translate(err, "工艺路线")
}

// AddOperation 序号在路线内唯一，为 0 时接在最后
func (s *RoutingService) AddOperation(ctx context.Context, routeID string, req *RouteOperationRequest) (*entity.ProductionRoute, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		route, err := r.Routing.FindRoute(ctx, routeID, true)
		if err != nil {
			return err
		}
		in := *req
		if in.Sequence == 0 {
			in.Sequence = 10
			if n := len(route.Operations); n > 0 {
				in.Sequence = route.Operations[n-1].Sequence + 10
			}
		}
		taken, err := r.Routing.SequenceTaken(ctx, routeID, in.Sequence)
		if err != nil {
			return err
		}
		if taken {
			return conflictError("工序序号 %d 已存在", in.Sequence)
		}
		ro, err := newRouteOperation(ctx, r, routeID, in)
		if err != nil {
			return err
		}
		if err := r.Routing.CreateRouteOperation(ctx, ro); err != nil {
			return err
		}
		return recomputeCycleTime(ctx, r, routeID)
	})
	if err != nil {
		return nil, translate(err, "工艺路线")
	}
	return s.GetRoute(ctx, routeID)
}

func (s *RoutingService) RemoveOperation(ctx context.Context, routeID, id string) (*entity.ProductionRoute, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.Routing.FindRoute(ctx, routeID, true); err != nil {
			return err
		}
		if _, err := r.Routing.FindRouteOperation(ctx, routeID, id); err != nil {
			return translate(err, "路线工序")
		}
		if err := r.Routing.DeleteRouteOperation(ctx, id); err != nil {
			return err
		}
		return recomputeCycleTime(ctx, r, routeID)
	})
	if err != nil {
		return nil, translate(err, "工艺路线")
	}
	return s.GetRoute(ctx, routeID)
}
