package service

import (
	"context"
	"sort"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/bitfantasy/nimo-erp/internal/erp/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PlanningService 生产计划与物料需求计划
type PlanningService struct {
	base
}

func NewPlanningService(b base) *PlanningService {
	return &PlanningService{base: b}
}

type PlanItemRequest struct {
	ProductID        string  `json:"product_id" binding:"required"`
	OrderID          *string `json:"order_id"`
	OrderItemID      *string `json:"order_item_id"`
	Quantity         float64 `json:"quantity" binding:"gt=0"`
	PlannedStartDate *Date   `json:"planned_start_date"`
	PlannedEndDate   *Date   `json:"planned_end_date"`
	Notes            string  `json:"notes"`
}

type PlanItemPatch struct {
	Quantity         *float64 `json:"quantity" binding:"omitempty,gt=0"`
	PlannedStartDate *Date    `json:"planned_start_date"`
	PlannedEndDate   *Date    `json:"planned_end_date"`
	Status           *string  `json:"status"`
	Notes            *string  `json:"notes"`
}

type CreatePlanRequest struct {
	Name             string            `json:"name" binding:"required,max=200"`
	Description      string            `json:"description"`
	PlannedStartDate *Date             `json:"planned_start_date"`
	PlannedEndDate   *Date             `json:"planned_end_date"`
	Items            []PlanItemRequest `json:"items" binding:"dive"`
}

type UpdatePlanRequest struct {
	Name             *string `json:"name" binding:"omitempty,max=200"`
	Description      *string `json:"description"`
	Status           *string `json:"status"`
	PlannedStartDate *Date   `json:"planned_start_date"`
	PlannedEndDate   *Date   `json:"planned_end_date"`
}

type MRPItemRequest struct {
	MaterialID        string  `json:"material_id" binding:"required"`
	RequiredDate      *Date   `json:"required_date"`
	RequiredQuantity  float64 `json:"required_quantity" binding:"gte=0"`
	AvailableQuantity float64 `json:"available_quantity" binding:"gte=0"`
	OnOrderQuantity   float64 `json:"on_order_quantity" binding:"gte=0"`
	NetRequirement    float64 `json:"net_requirement" binding:"gte=0"`
	Notes             string  `json:"notes"`
}

type CreateMRPRequest struct {
	Name             string           `json:"name" binding:"required,max=200"`
	Description      string           `json:"description"`
	PlanningHorizon  int              `json:"planning_horizon" binding:"gte=0"`
	ProductionPlanID *string          `json:"production_plan_id"`
	Items            []MRPItemRequest `json:"items" binding:"dive"`
}

type UpdateMRPRequest struct {
	Name            *string `json:"name" binding:"omitempty,max=200"`
	Description     *string `json:"description"`
	Status          *string `json:"status"`
	PlanningHorizon *int    `json:"planning_horizon" binding:"omitempty,gte=0"`
}

// ========== 生产计划 ==========

func (s *PlanningService) ListPlans(ctx context.Context, p repository.ListParams) (*Page[entity.ProductionPlan], error) {
	list, total, err := s.repos.Planning.FindPlans(ctx, p)
	return listPage(list, total, err, p)
}

func (s *PlanningService) GetPlan(ctx context.Context, id string) (*entity.ProductionPlan, error) {
	plan, err := s.repos.Planning.FindPlan(ctx, id, false)
	return plan, translate(err, "生产计划")
}

func newPlanItem(ctx context.Context, r *repository.Repositories, planID string, in PlanItemRequest) (*entity.ProductionPlanItem, error) {
	if _, err := r.Product.FindByID(ctx, in.ProductID); err != nil {
		return nil, translate(err, "产品")
	}
	orderID, orderItemID := normRef(in.OrderID), normRef(in.OrderItemID)
	if orderItemID != nil && orderID == nil {
		return nil, validationError("指定订单明细时必须指定订单")
	}
	if orderID != nil {
		if _, err := r.SalesOrder.FindByID(ctx, *orderID, false); err != nil {
			return nil, translate(err, "销售订单")
		}
		if orderItemID != nil {
			if _, err := r.SalesOrder.FindItem(ctx, *orderID, *orderItemID); err != nil {
				return nil, translate(err, "订单明细")
			}
		}
	}
	return &entity.ProductionPlanItem{
		ID:               uuid.New().String(),
		PlanID:           planID,
		ProductID:        in.ProductID,
		OrderID:          orderID,
		OrderItemID:      orderItemID,
		Quantity:         in.Quantity,
		PlannedStartDate: in.PlannedStartDate.Ptr(),
		PlannedEndDate:   in.PlannedEndDate.Ptr(),
		Status:           entity.PlanStatusDraft,
		Notes:            in.Notes,
	}, nil
}

func (s *PlanningService) CreatePlan(ctx context.Context, userID string, req *CreatePlanRequest) (*entity.ProductionPlan, error) {
	var planID string
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		number, err := nextNumber(ctx, r, planNumbers, time.Now())
		if err != nil {
			return err
		}
		plan := &entity.ProductionPlan{
			ID:               uuid.New().String(),
			PlanNumber:       number,
			Name:             req.Name,
			Description:      req.Description,
			Status:           entity.PlanStatusDraft,
			PlannedStartDate: req.PlannedStartDate.Ptr(),
			PlannedEndDate:   req.PlannedEndDate.Ptr(),
			CreatedBy:        userID,
		}
		for _, in := range req.Items {
			item, err := newPlanItem(ctx, r, plan.ID, in)
			if err != nil {
				return err
			}
			plan.Items = append(plan.Items, *item)
		}
		if err := r.Planning.CreatePlan(ctx, plan); err != nil {
			return err
		}
		planID = plan.ID
		return nil
	})
	if err != nil {
		return nil, translate(err, "生产计划")
	}
	return s.GetPlan(ctx, planID)
}

func (s *PlanningService) UpdatePlan(ctx context.Context, id string, req *UpdatePlanRequest) (*entity.ProductionPlan, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		plan, err := r.Planning.FindPlan(ctx, id, true)
		if err != nil {
			return err
		}
		if req.Status != nil {
			if err := workflow.Validate(workflow.KindPlan, *req.Status); err != nil {
				return err
			}
		}
		if err := workflow.EnsureMutable(workflow.KindPlan, plan.Status); err != nil {
			return err
		}
		if req.Status != nil {
			if err := workflow.Transition(workflow.KindPlan, plan.Status, *req.Status); err != nil {
				return err
			}
		}
		setS(&plan.Name, req.Name)
		setS(&plan.Description, req.Description)
		setS(&plan.Status, req.Status)
		setDate(&plan.PlannedStartDate, req.PlannedStartDate)
		setDate(&plan.PlannedEndDate, req.PlannedEndDate)
		return r.Planning.UpdatePlan(ctx, plan)
	})
	if err != nil {
		return nil, translate(err, "生产计划")
	}
	return s.GetPlan(ctx, id)
}

// DeletePlan 执行中的计划不能删除
func (s *PlanningService) DeletePlan(ctx context.Context, id string) error {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		plan, err := r.Planning.FindPlan(ctx, id, true)
		if err != nil {
			return err
		}
		if plan.Status == entity.PlanStatusInProgress {
			return stateError("计划执行中，不能删除")
		}
		return r.Planning.DeletePlan(ctx, id)
	})
	return translate(err, "生产计划")
}

func (s *PlanningService) AddPlanItem(ctx context.Context, planID string, req *PlanItemRequest) (*entity.ProductionPlan, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		plan, err := r.Planning.FindPlan(ctx, planID, true)
		if err != nil {
			return err
		}
		if err := workflow.EnsureMutable(workflow.KindPlan, plan.Status); err != nil {
			return err
		}
		item, err := newPlanItem(ctx, r, planID, *req)
		if err != nil {
			return err
		}
		return r.Planning.SavePlanItem(ctx, item)
	})
	if err != nil {
		return nil, translate(err, "生产计划")
	}
	return s.GetPlan(ctx, planID)
}

func (s *PlanningService) UpdatePlanItem(ctx context.Context, itemID string, req *PlanItemPatch) (*entity.ProductionPlanItem, error) {
	var item *entity.ProductionPlanItem
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		var err error
		item, err = r.Planning.FindPlanItem(ctx, itemID)
		if err != nil {
			return translate(err, "计划明细")
		}
		plan, err := r.Planning.FindPlan(ctx, item.PlanID, true)
		if err != nil {
			return err
		}
		if err := workflow.EnsureMutable(workflow.KindPlan, plan.Status); err != nil {
			return err
		}
		if req.Status != nil {
			if err := workflow.Transition(workflow.KindPlan, item.Status, *req.Status); err != nil {
				return err
			}
		}
		setF(&item.Quantity, req.Quantity)
		setDate(&item.PlannedStartDate, req.PlannedStartDate)
		setDate(&item.PlannedEndDate, req.PlannedEndDate)
		setS(&item.Status, req.Status)
		setS(&item.Notes, req.Notes)
		return r.Planning.SavePlanItem(ctx, item)
	})
	if err != nil {
		return nil, translate(err, "生产计划")
	}
	return item, nil
}

func (s *PlanningService) DeletePlanItem(ctx context.Context, itemID string) error {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		item, err := r.Planning.FindPlanItem(ctx, itemID)
		if err != nil {
			return translate(err, "计划明细")
		}
		plan, err := r.Planning.FindPlan(ctx, item.PlanID, true)
		if err != nil {
			return err
		}
		if err := workflow.EnsureMutable(workflow.KindPlan, plan.Status); err != nil {
			return err
		}
		return r.Planning.DeletePlanItem(ctx, itemID)
	})
	return translate(err, "生产计划")
}

// ========== MRP ==========

func (s *PlanningService) ListMRPs(ctx context.Context, p repository.ListParams) (*Page[entity.MaterialRequirementPlan], error) {
	list, total, err := s.repos.Planning.FindMRPs(ctx, p)
	return listPage(list, total, err, p)
}

func (s *PlanningService) GetMRP(ctx context.Context, id string) (*entity.MaterialRequirementPlan, error) {
	mrp, err := s.repos.Planning.FindMRP(ctx, id, false)
	return mrp, translate(err, "物料需求计划")
}

func newMRPItem(mrpID string, in MRPItemRequest) entity.MRPItem {
	return entity.MRPItem{
		ID:                uuid.New().String(),
		MRPID:             mrpID,
		MaterialID:        in.MaterialID,
		RequiredDate:      in.RequiredDate.Ptr(),
		RequiredQuantity:  in.RequiredQuantity,
		AvailableQuantity: in.AvailableQuantity,
		OnOrderQuantity:   in.OnOrderQuantity,
		NetRequirement:    in.NetRequirement,
		Notes:             in.Notes,
	}
}

func (s *PlanningService) CreateMRP(ctx context.Context, userID string, req *CreateMRPRequest) (*entity.MaterialRequirementPlan, error) {
	planID := normRef(req.ProductionPlanID)
	var mrpID string
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		if planID != nil {
			if _, err := r.Planning.FindPlan(ctx, *planID, false); err != nil {
				return translate(err, "生产计划")
			}
		}
		number, err := nextNumber(ctx, r, mrpNumbers, time.Now())
		if err != nil {
			return err
		}
		mrp := &entity.MaterialRequirementPlan{
			ID:               uuid.New().String(),
			MRPNumber:        number,
			Name:             req.Name,
			Description:      req.Description,
			Status:           entity.PlanStatusDraft,
			PlanningHorizon:  req.PlanningHorizon,
			ProductionPlanID: planID,
			CreatedBy:        userID,
		}
		if mrp.PlanningHorizon == 0 {
			mrp.PlanningHorizon = 30
		}
		for _, in := range req.Items {
			if _, err := r.Product.FindByID(ctx, in.MaterialID); err != nil {
				return translate(err, "物料")
			}
			mrp.Items = append(mrp.Items, newMRPItem(mrp.ID, in))
		}
		if err := r.Planning.CreateMRP(ctx, mrp); err != nil {
			return err
		}
		mrpID = mrp.ID
		return nil
	})
	if err != nil {
		return nil, translate(err, "物料需求计划")
	}
	return s.GetMRP(ctx, mrpID)
}

func (s *PlanningService) UpdateMRP(ctx context.Context, id string, req *UpdateMRPRequest) (*entity.MaterialRequirementPlan, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		mrp, err := r.Planning.FindMRP(ctx, id, true)
		if err != nil {
			return err
		}
		if req.Status != nil {
			if err := workflow.Validate(workflow.KindMRP, *req.Status); err != nil {
				return err
			}
		}
		if err := workflow.EnsureMutable(workflow.KindMRP, mrp.Status); err != nil {
			return err
		}
		if req.Status != nil {
			if err := workflow.Transition(workflow.KindMRP, mrp.Status, *req.Status); err != nil {
				return err
			}
		}
		setS(&mrp.Name, req.Name)
		setS(&mrp.Description, req.Description)
		setS(&mrp.Status, req.Status)
		setI(&mrp.PlanningHorizon, req.PlanningHorizon)
		return r.Planning.UpdateMRP(ctx, mrp)
	})
	if err != nil {
		return nil, translate(err, "物料需求计划")
	}
	return s.GetMRP(ctx, id)
}

func (s *PlanningService) DeleteMRP(ctx context.Context, id string) error {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.Planning.FindMRP(ctx, id, true); err != nil {
			return err
		}
		return r.Planning.DeleteMRP(ctx, id)
	})
	return translate(err, "物料需求计划")
}

func (s *PlanningService) AddMRPItem(ctx context.Context, mrpID string, req *MRPItemRequest) (*entity.MaterialRequirementPlan, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		mrp, err := r.Planning.FindMRP(ctx, mrpID, true)
		if err != nil {
			return err
		}
		if err := workflow.EnsureMutable(workflow.KindMRP, mrp.Status); err != nil {
			return err
		}
		if _, err := r.Product.FindByID(ctx, req.MaterialID); err != nil {
			return translate(err, "物料")
		}
		item := newMRPItem(mrpID, *req)
		return r.Planning.CreateMRPItem(ctx, &item)
	})
	if err != nil {
		return nil, translate(err, "物料需求计划")
	}
	return s.GetMRP(ctx, mrpID)
}

func (s *PlanningService) DeleteMRPItem(ctx context.Context, itemID string) error {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		item, err := r.Planning.FindMRPItem(ctx, itemID)
		if err != nil {
			return translate(err, "MRP明细")
		}
		mrp, err := r.Planning.FindMRP(ctx, item.MRPID, true)
		if err != nil {
			return err
		}
		if err := workflow.EnsureMutable(workflow.KindMRP, mrp.Status); err != nil {
			return err
		}
		return r.Planning.DeleteMRPItem(ctx, itemID)
	})
	return translate(err, "物料需求计划")
}

// RunMRP 运行MRP：状态直接置为已确认，不做计算
func (s *PlanningService) RunMRP(ctx context.Context, id string) (*entity.MaterialRequirementPlan, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		mrp, err := r.Planning.FindMRP(ctx, id, true)
		if err != nil {
			return err
		}
		mrp.Status = entity.PlanStatusConfirmed
		return r.Planning.UpdateMRP(ctx, mrp)
	})
	if err != nil {
		return nil, translate(err, "物料需求计划")
	}
	return s.GetMRP(ctx, id)
}

// DeriveMRP 按生产计划展开BOM生成草稿MRP，净需求扣除可用库存和采购在途
func (s *PlanningService) DeriveMRP(ctx context.Context, userID, planID string) (*entity.MaterialRequirementPlan, error) {
	var mrpID string
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		plan, err := r.Planning.FindPlan(ctx, planID, false)
		if err != nil {
			return translate(err, "生产计划")
		}
		if plan.Status == entity.PlanStatusCancelled {
			return stateError("计划已取消，不能生成MRP")
		}

		source := defaultComponents(ctx, r)
		required := make(map[string]float64)
		needBy := make(map[string]*time.Time)
		for _, it := range plan.Items {
			if it.Status == entity.PlanStatusCancelled {
				continue
			}
			reqs, err := workflow.Explode(it.ProductID, it.Quantity, source)
			if err != nil {
				return err
			}
			start := it.PlannedStartDate
			if start == nil {
				start = plan.PlannedStartDate
			}
			for id, qty := range reqs {
				required[id] += qty
				if start != nil && (needBy[id] == nil || start.Before(*needBy[id])) {
					needBy[id] = start
				}
			}
		}

		ids := make([]string, 0, len(required))
		for id := range required {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		available, err := r.Inventory.AvailableByProduct(ctx, ids)
		if err != nil {
			return err
		}
		onOrder, err := r.Purchase.OnOrderByProduct(ctx, ids)
		if err != nil {
			return err
		}

		number, err := nextNumber(ctx, r, mrpNumbers, time.Now())
		if err != nil {
			return err
		}
		mrp := &entity.MaterialRequirementPlan{
			ID:               uuid.New().String(),
			MRPNumber:        number,
			Name:             plan.Name + " MRP",
			Description:      "由生产计划 " + plan.PlanNumber + " 生成",
			Status:           entity.PlanStatusDraft,
			PlanningHorizon:  30,
			ProductionPlanID: &plan.ID,
			CreatedBy:        userID,
		}
		if plan.PlannedStartDate != nil && plan.PlannedEndDate != nil {
			if days := int(plan.PlannedEndDate.Sub(*plan.PlannedStartDate).Hours() / 24); days > 0 {
				mrp.PlanningHorizon = days
			}
		}
		for _, id := range ids {
			mrp.Items = append(mrp.Items, entity.MRPItem{
				ID:                uuid.New().String(),
				MRPID:             mrp.ID,
				MaterialID:        id,
				RequiredDate:      needBy[id],
				RequiredQuantity:  required[id],
				AvailableQuantity: available[id],
				OnOrderQuantity:   onOrder[id],
				NetRequirement:    workflow.NetRequirement(required[id], available[id], onOrder[id]),
			})
		}
		if err := r.Planning.CreateMRP(ctx, mrp); err != nil {
			return err
		}
		mrpID = mrp.ID
		s.logger.Info("mrp derived from plan", zap.String("plan", plan.PlanNumber), zap.String("mrp", number), zap.Int("materials", len(ids)))
		return nil
	})
	if err != nil {
		return nil, translate(err, "物料需求计划")
	}
	return s.GetMRP(ctx, mrpID)
}
