package service

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/bitfantasy/nimo-erp/internal/erp/workflow"
	"github.com/google/uuid"
)

// ReturnService 销售退货
type ReturnService struct {
	base
}

func NewReturnService(b base) *ReturnService {
	return &ReturnService{base: b}
}

type ReturnItemRequest struct {
	OrderItemID string   `json:"order_item_id" binding:"required"`
	Quantity    float64  `json:"quantity" binding:"gt=0"`
	UnitPrice   *float64 `json:"unit_price" binding:"omitempty,gte=0"`
	Reason      string   `json:"reason"`
	Notes       string   `json:"notes"`
}

type CreateReturnRequest struct {
	OrderID    string              `json:"order_id" binding:"required"`
	DeliveryID *string             `json:"delivery_id"`
	ReturnDate *Date               `json:"return_date"`
	Reason     string              `json:"reason"`
	Notes      string              `json:"notes"`
	Items      []ReturnItemRequest `json:"items" binding:"required,min=1,dive"`
}

type UpdateReturnRequest struct {
	Status     *string             `json:"status"`
	ReturnDate *Date               `json:"return_date"`
	Reason     *string             `json:"reason"`
	Notes      *string             `json:"notes"`
	Items      []ReturnItemRequest `json:"items" binding:"omitempty,dive"`
}

func (s *ReturnService) List(ctx context.Context, p repository.ListParams) (*Page[entity.SalesReturn], error) {
	list, total, err := s.repos.Return.FindAll(ctx, p)
	return listPage(list, total, err, p)
}

func (s *ReturnService) Get(ctx context.Context, id string) (*entity.SalesReturn, error) {
	ret, err := s.repos.Return.FindByID(ctx, id, false)
	return ret, translate(err, "退货单")
}

// buildReturnItems 退货数量不得超过订单明细的已发货数量
func buildReturnItems(o *entity.SalesOrder, returnID string, reqs []ReturnItemRequest) ([]entity.SalesReturnItem, float64, error) {
	lines := orderItemsByID(o.Items)
	requested := make(map[string]float64)
	items := make([]entity.SalesReturnItem, 0, len(reqs))
	var total float64
	for _, in := range reqs {
		line, ok := lines[in.OrderItemID]
		if !ok {
			return nil, 0, validationError("订单明细 %s 不属于该订单", in.OrderItemID)
		}
		requested[in.OrderItemID] += in.Quantity
		if requested[in.OrderItemID] > line.DeliveredQuantity {
			return nil, 0, validationError("退货数量超过已发货数量 %.4g", line.DeliveredQuantity)
		}
		price := line.UnitPrice
		setF(&price, in.UnitPrice)
		item := entity.SalesReturnItem{
			ID:          uuid.New().String(),
			ReturnID:    returnID,
			OrderItemID: line.ID,
			ProductID:   line.ProductID,
			Description: line.Description,
			Quantity:    in.Quantity,
			Unit:        line.Unit,
			UnitPrice:   price,
			TotalPrice:  workflow.Round2(in.Quantity * price),
			Reason:      in.Reason,
			Notes:       in.Notes,
		}
		total += item.TotalPrice
		items = append(items, item)
	}
	return items, workflow.Round2(total), nil
}

func (s *ReturnService) Create(ctx context.Context, userID string, req *CreateReturnRequest) (*entity.SalesReturn, error) {
	req.DeliveryID = normRef(req.DeliveryID)
	var returnID string
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		o, err := r.SalesOrder.FindByID(ctx, req.OrderID, false)
		if err != nil {
			return translate(err, "销售订单")
		}
		if req.DeliveryID != nil {
			d, err := r.Delivery.FindByID(ctx, *req.DeliveryID, false)
			if err != nil {
				return translate(err, "发货单")
			}
			if d.OrderID != o.ID {
				return validationError("发货单不属于该订单")
			}
		}
		number, err := nextNumber(ctx, r, returnNumbers, time.Now())
		if err != nil {
			return err
		}
		ret := &entity.SalesReturn{
			ID:           uuid.New().String(),
			ReturnNumber: number,
			OrderID:      o.ID,
			DeliveryID:   req.DeliveryID,
			CustomerID:   o.CustomerID,
			Status:       entity.ReturnStatusPending,
			ReturnDate:   req.ReturnDate.Ptr(),
			Reason:       req.Reason,
			Notes:        req.Notes,
			CreatedBy:    userID,
		}
		if ret.ReturnDate == nil {
			ret.ReturnDate = today()
		}
		ret.Items, ret.TotalAmount, err = buildReturnItems(o, ret.ID, req.Items)
		if err != nil {
			return err
		}
		if err := r.Return.Create(ctx, ret); err != nil {
			return err
		}
		returnID = ret.ID
		return nil
	})
	if err != nil {
		return nil, translate(err, "退货单")
	}
	return s.Get(ctx, returnID)
}

// Update 修改退货单；明细只能在待审核状态下整体替换
func (s *ReturnService) Update(ctx context.Context, id string, req *UpdateReturnRequest) (*entity.SalesReturn, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		ret, err := r.Return.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if req.Status != nil {
			if err := workflow.Validate(workflow.KindReturn, *req.Status); err != nil {
				return err
			}
		}
		if err := workflow.EnsureMutable(workflow.KindReturn, ret.Status); err != nil {
			return err
		}
		if req.Items != nil {
			if ret.Status != entity.ReturnStatusPending {
				return stateError("只有待审核的退货单可以修改明细，当前状态为 %s", ret.Status)
			}
			o, err := r.SalesOrder.FindByID(ctx, ret.OrderID, false)
			if err != nil {
				return translate(err, "销售订单")
			}
			items, total, err := buildReturnItems(o, ret.ID, req.Items)
			if err != nil {
				return err
			}
			if err := r.Return.ReplaceItems(ctx, ret.ID, items); err != nil {
				return err
			}
			ret.TotalAmount = total
		}
		if req.Status != nil {
			if err := workflow.Transition(workflow.KindReturn, ret.Status, *req.Status); err != nil {
				return err
			}
			ret.Status = *req.Status
		}
		setDate(&ret.ReturnDate, req.ReturnDate)
		setS(&ret.Reason, req.Reason)
		setS(&ret.Notes, req.Notes)
		return r.Return.Update(ctx, ret)
	})
	if err != nil {
		return nil, translate(err, "退货单")
	}
	return s.Get(ctx, id)
}

// Delete 仅待审核的退货单可以删除
func (s *ReturnService) Delete(ctx context.Context, id string) error {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		ret, err := r.Return.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if ret.Status != entity.ReturnStatusPending {
			return stateError("只有待审核的退货单可以删除，当前状态为 %s", ret.Status)
		}
		return r.Return.Delete(ctx, id)
	})
	return translate(err, "退货单")
}
