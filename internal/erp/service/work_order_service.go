package service

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/bitfantasy/nimo-erp/internal/erp/workflow"
	"github.com/google/uuid"
)

// WorkOrderService 生产工单
type WorkOrderService struct {
	base
}

func NewWorkOrderService(b base) *WorkOrderService {
	return &WorkOrderService{base: b}
}

type CreateWorkOrderRequest struct {
	ProductID    string  `json:"product_id" binding:"required"`
	RouteID      *string `json:"route_id"`
	BOMID        *string `json:"bom_id"`
	OrderID      *string `json:"order_id"`
	Quantity     float64 `json:"quantity" binding:"gt=0"`
	Priority     int     `json:"priority" binding:"gte=0,lte=2"`
	PlannedStart *Date   `json:"planned_start"`
	PlannedEnd   *Date   `json:"planned_end"`
	Notes        string  `json:"notes"`
}

type UpdateWorkOrderRequest struct {
	Status       *string  `json:"status"`
	RouteID      *string  `json:"route_id"`
	BOMID        *string  `json:"bom_id"`
	Quantity     *float64 `json:"quantity" binding:"omitempty,gt=0"`
	Priority     *int     `json:"priority" binding:"omitempty,gte=0,lte=2"`
	PlannedStart *Date    `json:"planned_start"`
	PlannedEnd   *Date    `json:"planned_end"`
	Notes        *string  `json:"notes"`
}

type ReportRequest struct {
	Quantity float64 `json:"quantity" binding:"gt=0"`
	Notes    string  `json:"notes"`
}

func (s *WorkOrderService) List(ctx context.Context, p repository.ListParams) (*Page[entity.WorkOrder], error) {
	list, total, err := s.repos.WorkOrder.FindAll(ctx, p)
	return listPage(list, total, err, p)
}

func (s *WorkOrderService) Get(ctx context.Context, id string) (*entity.WorkOrder, error) {
	wo, err := s.repos.WorkOrder.FindByID(ctx, id, false)
	return wo, translate(err, "工单")
}

// checkWorkOrderRefs 工艺路线和BOM必须属于工单产品
func checkWorkOrderRefs(ctx context.Context, r *repository.Repositories, productID string, routeID, bomID, orderID *string) error {
	if routeID != nil {
		route, err := r.Routing.FindRoute(ctx, *routeID, false)
		if err != nil {
			return translate(err, "工艺路线")
		}
		if route.ProductID != productID {
			return validationError("工艺路线不属于该产品")
		}
	}
	if bomID != nil {
		bom, err := r.BOM.FindByID(ctx, *bomID, false)
		if err != nil {
			return translate(err, "BOM")
		}
		if bom.ProductID != productID {
			return validationError("BOM不属于该产品")
		}
	}
	if orderID != nil {
		if _, err := r.SalesOrder.FindByID(ctx, *orderID, false); err != nil {
			return translate(err, "销售订单")
		}
	}
	return nil
}

// Create 未指定BOM时使用产品的默认BOM
func (s *WorkOrderService) Create(ctx context.Context, userID string, req *CreateWorkOrderRequest) (*entity.WorkOrder, error) {
	routeID, bomID, orderID := normRef(req.RouteID), normRef(req.BOMID), normRef(req.OrderID)
	var woID string
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.Product.FindByID(ctx, req.ProductID); err != nil {
			return translate(err, "产品")
		}
		if err := checkWorkOrderRefs(ctx, r, req.ProductID, routeID, bomID, orderID); err != nil {
			return err
		}
		if bomID == nil {
			if bom, err := r.BOM.FindDefault(ctx, req.ProductID); err == nil {
				bomID = &bom.ID
			}
		}
		number, err := nextNumber(ctx, r, workOrderNumbers, time.Now())
		if err != nil {
			return err
		}
		wo := &entity.WorkOrder{
			ID:              uuid.New().String(),
			WorkOrderNumber: number,
			ProductID:       req.ProductID,
			RouteID:         routeID,
			BOMID:           bomID,
			OrderID:         orderID,
			Quantity:        req.Quantity,
			Status:          entity.WOStatusPlanned,
			Priority:        req.Priority,
			PlannedStart:    req.PlannedStart.Ptr(),
			PlannedEnd:      req.PlannedEnd.Ptr(),
			Notes:           req.Notes,
			CreatedBy:       userID,
		}
		if err := r.WorkOrder.Create(ctx, wo); err != nil {
			return err
		}
		woID = wo.ID
		return nil
	})
	if err != nil {
		return nil, translate(err, "工单")
	}
	return s.Get(ctx, woID)
}

func applyWorkOrderStatus(wo *entity.WorkOrder, status string) {
	now := time.Now()
	switch status {
	case entity.WOStatusInProgress:
		if wo.ActualStart == nil {
			wo.ActualStart = &now
		}
	case entity.WOStatusCompleted:
		if wo.ActualStart == nil {
			wo.ActualStart = &now
		}
		wo.ActualEnd = &now
	}
	wo.Status = status
}

func (s *WorkOrderService) Update(ctx context.Context, id string, req *UpdateWorkOrderRequest) (*entity.WorkOrder, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		wo, err := r.WorkOrder.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if req.Status != nil {
			if err := workflow.Validate(workflow.KindWorkOrder, *req.Status); err != nil {
				return err
			}
		}
		if err := workflow.EnsureMutable(workflow.KindWorkOrder, wo.Status); err != nil {
			return err
		}
		if req.Status != nil {
			if err := workflow.Transition(workflow.KindWorkOrder, wo.Status, *req.Status); err != nil {
				return err
			}
		}
		if req.Quantity != nil && *req.Quantity < wo.CompletedQuantity {
			return validationError("数量不能小于已完工数量 %.4g", wo.CompletedQuantity)
		}
		setRef(&wo.RouteID, req.RouteID)
		setRef(&wo.BOMID, req.BOMID)
		if err := checkWorkOrderRefs(ctx, r, wo.ProductID, wo.RouteID, wo.BOMID, nil); err != nil {
			return err
		}
		setF(&wo.Quantity, req.Quantity)
		setI(&wo.Priority, req.Priority)
		setDate(&wo.PlannedStart, req.PlannedStart)
		setDate(&wo.PlannedEnd, req.PlannedEnd)
		setS(&wo.Notes, req.Notes)
		if req.Status != nil && *req.Status != wo.Status {
			applyWorkOrderStatus(wo, *req.Status)
		}
		return r.WorkOrder.Update(ctx, wo)
	})
	if err != nil {
		return nil, translate(err, "工单")
	}
	return s.Get(ctx, id)
}

// Delete 只有计划中或已取消的工单可以删除
func (s *WorkOrderService) Delete(ctx context.Context, id string) error {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		wo, err := r.WorkOrder.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if wo.Status != entity.WOStatusPlanned && wo.Status != entity.WOStatusCancelled {
			return stateError("工单状态为 %s，不能删除", wo.Status)
		}
		return r.WorkOrder.Delete(ctx, id)
	})
	return translate(err, "工单")
}

// Report 报工：累计完工数量，达到工单数量时自动完工
func (s *WorkOrderService) Report(ctx context.Context, id string, req *ReportRequest) (*entity.WorkOrder, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		wo, err := r.WorkOrder.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if wo.Status != entity.WOStatusReleased && wo.Status != entity.WOStatusInProgress {
			return stateError("工单状态为 %s，不能报工", wo.Status)
		}
		if wo.CompletedQuantity+req.Quantity > wo.Quantity {
			return validationError("报工数量超过剩余数量 %.4g", wo.Quantity-wo.CompletedQuantity)
		}
		if wo.Status == entity.WOStatusReleased {
			applyWorkOrderStatus(wo, entity.WOStatusInProgress)
		}
		wo.CompletedQuantity += req.Quantity
		if wo.CompletedQuantity >= wo.Quantity {
			applyWorkOrderStatus(wo, entity.WOStatusCompleted)
		}
		if req.Notes != "" {
			if wo.Notes != "" {
				wo.Notes += "\n"
			}
			wo.Notes += req.Notes
		}
		return r.WorkOrder.Update(ctx, wo)
	})
	if err != nil {
		return nil, translate(err, "工单")
	}
	return s.Get(ctx, id)
}
