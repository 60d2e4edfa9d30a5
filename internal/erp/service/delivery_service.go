package service

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/bitfantasy/nimo-erp/internal/erp/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DeliveryService 销售发货
type DeliveryService struct {
	base
}

func NewDeliveryService(b base) *DeliveryService {
	return &DeliveryService{base: b}
}

// 可以开具发货单的订单状态
var shippableOrderStatus = map[string]bool{
	entity.SOStatusConfirmed:        true,
	entity.SOStatusInProduction:     true,
	entity.SOStatusReadyForShipment: true,
	entity.SOStatusPartiallyShipped: true,
}

type DeliveryItemRequest struct {
	OrderItemID string  `json:"order_item_id" binding:"required"`
	Quantity    float64 `json:"quantity" binding:"gt=0"`
	Notes       string  `json:"notes"`
}

type CreateDeliveryRequest struct {
	OrderID         string                `json:"order_id" binding:"required"`
	DeliveryDate    *Date                 `json:"delivery_date"`
	ShippingAddress string                `json:"shipping_address"`
	TrackingNumber  string                `json:"tracking_number"`
	Carrier         string                `json:"carrier"`
	PackagingNotes  string                `json:"packaging_notes"`
	Notes           string                `json:"notes"`
	Items           []DeliveryItemRequest `json:"items" binding:"required,min=1,dive"`
}

type UpdateDeliveryRequest struct {
	Status          *string `json:"status"`
	DeliveryDate    *Date   `json:"delivery_date"`
	ShippingAddress *string `json:"shipping_address"`
	TrackingNumber  *string `json:"tracking_number"`
	Carrier         *string `json:"carrier"`
	PackagingNotes  *string `json:"packaging_notes"`
	Notes           *string `json:"notes"`
}

func (p *UpdateDeliveryRequest) apply(d *entity.SalesDelivery) {
	setDate(&d.DeliveryDate, p.DeliveryDate)
	setS(&d.ShippingAddress, p.ShippingAddress)
	setS(&d.TrackingNumber, p.TrackingNumber)
	setS(&d.Carrier, p.Carrier)
	setS(&d.PackagingNotes, p.PackagingNotes)
	setS(&d.Notes, p.Notes)
}

func (s *DeliveryService) List(ctx context.Context, p repository.ListParams) (*Page[entity.SalesDelivery], error) {
	list, total, err := s.repos.Delivery.FindAll(ctx, p)
	return listPage(list, total, err, p)
}

func (s *DeliveryService) Get(ctx context.Context, id string) (*entity.SalesDelivery, error) {
	d, err := s.repos.Delivery.FindByID(ctx, id, false)
	return d, translate(err, "发货单")
}

// Create 按订单明细开具发货单，数量不得超过待发数量
func (s *DeliveryService) Create(ctx context.Context, userID string, req *CreateDeliveryRequest) (*entity.SalesDelivery, error) {
	var deliveryID string
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		o, err := r.SalesOrder.FindByID(ctx, req.OrderID, true)
		if err != nil {
			return translate(err, "销售订单")
		}
		if !shippableOrderStatus[o.Status] {
			return stateError("订单状态为 %s，不能发货", o.Status)
		}
		lines := orderItemsByID(o.Items)

		number, err := nextNumber(ctx, r, deliveryNumbers, time.Now())
		if err != nil {
			return err
		}
		d := &entity.SalesDelivery{
			ID:              uuid.New().String(),
			DeliveryNumber:  number,
			OrderID:         o.ID,
			CustomerID:      o.CustomerID,
			Status:          entity.DeliveryStatusPending,
			DeliveryDate:    req.DeliveryDate.Ptr(),
			ShippingAddress: req.ShippingAddress,
			TrackingNumber:  req.TrackingNumber,
			Carrier:         req.Carrier,
			PackagingNotes:  req.PackagingNotes,
			Notes:           req.Notes,
			CreatedBy:       userID,
		}
		if d.ShippingAddress == "" {
			d.ShippingAddress = o.ShippingAddress
		}
		if d.DeliveryDate == nil {
			d.DeliveryDate = today()
		}
		requested := make(map[string]float64)
		for _, in := range req.Items {
			line, ok := lines[in.OrderItemID]
			if !ok {
				return validationError("订单明细 %s 不属于该订单", in.OrderItemID)
			}
			requested[in.OrderItemID] += in.Quantity
			if requested[in.OrderItemID] > line.PendingQuantity {
				return validationError("发货数量超过待发数量 %.4g", line.PendingQuantity)
			}
			d.Items = append(d.Items, entity.SalesDeliveryItem{
				ID:          uuid.New().String(),
				DeliveryID:  d.ID,
				OrderItemID: line.ID,
				ProductID:   line.ProductID,
				Description: line.Description,
				Quantity:    in.Quantity,
				Notes:       in.Notes,
			})
		}
		if err := r.Delivery.Create(ctx, d); err != nil {
			return err
		}
		deliveryID = d.ID
		return nil
	})
	if err != nil {
		return nil, translate(err, "发货单")
	}
	return s.Get(ctx, deliveryID)
}

// Update 修改发货信息；状态变更走与发货、签收、取消相同的流程
func (s *DeliveryService) Update(ctx context.Context, id string, req *UpdateDeliveryRequest) (*entity.SalesDelivery, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		d, err := r.Delivery.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if req.Status != nil {
			if err := workflow.Validate(workflow.KindDelivery, *req.Status); err != nil {
				return err
			}
		}
		if err := workflow.EnsureMutable(workflow.KindDelivery, d.Status); err != nil {
			return err
		}
		req.apply(d)
		if req.Status != nil && *req.Status != d.Status {
			return s.changeStatus(ctx, r, d, *req.Status)
		}
		return r.Delivery.Update(ctx, d)
	})
	if err != nil {
		return nil, translate(err, "发货单")
	}
	return s.Get(ctx, id)
}

// Delete 仅待处理的发货单可以删除
func (s *DeliveryService) Delete(ctx context.Context, id string) error {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		d, err := r.Delivery.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if d.Status != entity.DeliveryStatusPending {
			return stateError("只有待处理的发货单可以删除，当前状态为 %s", d.Status)
		}
		return r.Delivery.Delete(ctx, id)
	})
	return translate(err, "发货单")
}

func (s *DeliveryService) Ship(ctx context.Context, id string) (*entity.SalesDelivery, error) {
	return s.move(ctx, id, entity.DeliveryStatusShipped)
}

func (s *DeliveryService) Confirm(ctx context.Context, id string) (*entity.SalesDelivery, error) {
	return s.move(ctx, id, entity.DeliveryStatusDelivered)
}

func (s *DeliveryService) Cancel(ctx context.Context, id string) (*entity.SalesDelivery, error) {
	return s.move(ctx, id, entity.DeliveryStatusCancelled)
}

func (s *DeliveryService) move(ctx context.Context, id, target string) (*entity.SalesDelivery, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		d, err := r.Delivery.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		return s.changeStatus(ctx, r, d, target)
	})
	if err != nil {
		return nil, translate(err, "发货单")
	}
	return s.Get(ctx, id)
}

// changeStatus 校验状态变更并同步订单。调用方已锁定发货单。
func (s *DeliveryService) changeStatus(ctx context.Context, r *repository.Repositories, d *entity.SalesDelivery, target string) error {
	if err := workflow.Transition(workflow.KindDelivery, d.Status, target); err != nil {
		return err
	}
	if d.Status == target {
		return r.Delivery.Update(ctx, d)
	}
	now := time.Now()
	switch target {
	case entity.DeliveryStatusShipped:
		if err := shipOrderLines(ctx, r, d); err != nil {
			return err
		}
		d.ShippedAt = &now
	case entity.DeliveryStatusDelivered:
		d.DeliveredAt = &now
	}
	d.Status = target
	if err := r.Delivery.Update(ctx, d); err != nil {
		return err
	}
	switch target {
	case entity.DeliveryStatusShipped:
		s.logger.Info("delivery shipped", zap.String("delivery", d.DeliveryNumber), zap.String("order_id", d.OrderID))
	case entity.DeliveryStatusDelivered:
		return markOrderDelivered(ctx, r, d.OrderID)
	}
	return nil
}

// shipOrderLines 把发货数量计入订单明细，并推进订单到部分发货或已发货
func shipOrderLines(ctx context.Context, r *repository.Repositories, d *entity.SalesDelivery) error {
	o, err := r.SalesOrder.FindByID(ctx, d.OrderID, true)
	if err != nil {
		return translate(err, "销售订单")
	}
	lines := orderItemsByID(o.Items)
	for _, di := range d.Items {
		line, ok := lines[di.OrderItemID]
		if !ok {
			return notFoundError("订单明细")
		}
		if di.Quantity > line.PendingQuantity {
			return stateError("发货数量 %.4g 超过待发数量 %.4g", di.Quantity, line.PendingQuantity)
		}
		line.DeliveredQuantity += di.Quantity
		line.PendingQuantity = workflow.PendingQuantity(line.Quantity, line.DeliveredQuantity)
		if err := r.SalesOrder.UpdateItem(ctx, line); err != nil {
			return err
		}
	}

	next := entity.SOStatusShipped
	for _, line := range lines {
		if line.PendingQuantity > 0 {
			next = entity.SOStatusPartiallyShipped
			break
		}
	}
	if err := workflow.Transition(workflow.KindOrder, o.Status, next); err != nil {
		return err
	}
	return r.SalesOrder.UpdateStatus(ctx, o.ID, next)
}

// markOrderDelivered 已发货订单的有效发货单全部签收后，订单变为已签收
func markOrderDelivered(ctx context.Context, r *repository.Repositories, orderID string) error {
	o, err := r.SalesOrder.FindByID(ctx, orderID, true)
	if err != nil {
		return translate(err, "销售订单")
	}
	if o.Status != entity.SOStatusShipped {
		return nil
	}
	deliveries, err := r.Delivery.FindByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	for _, d := range deliveries {
		switch d.Status {
		case entity.DeliveryStatusDelivered, entity.DeliveryStatusReturned, entity.DeliveryStatusCancelled:
		default:
			return nil
		}
	}
	return r.SalesOrder.UpdateStatus(ctx, orderID, entity.SOStatusDelivered)
}

func orderItemsByID(items []entity.SalesOrderItem) map[string]*entity.SalesOrderItem {
	m := make(map[string]*entity.SalesOrderItem, len(items))
	for i := range items {
		m[items[i].ID] = &items[i]
	}
	return m
}

