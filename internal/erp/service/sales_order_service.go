package service

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/bitfantasy/nimo-erp/internal/erp/workflow"
	"github.com/google/uuid"
)

// SalesOrderService 销售订单
type SalesOrderService struct {
	base
}

func NewSalesOrderService(b base) *SalesOrderService {
	return &SalesOrderService{base: b}
}

type OrderItemRequest struct {
	ItemRequest
	ExpectedDeliveryDate *Date `json:"expected_delivery_date"`
}

type OrderItemPatch struct {
	ItemPatch
	ExpectedDeliveryDate *Date `json:"expected_delivery_date"`
}

type CreateOrderRequest struct {
	CustomerID           string             `json:"customer_id" binding:"required"`
	ContactID            *string            `json:"contact_id"`
	Status               string             `json:"status"`
	OrderDate            *Date              `json:"order_date"`
	ExpectedDeliveryDate *Date              `json:"expected_delivery_date"`
	DiscountAmount       float64            `json:"discount_amount" binding:"gte=0"`
	ShippingAmount       float64            `json:"shipping_amount" binding:"gte=0"`
	Currency             string             `json:"currency"`
	PaymentTerms         string             `json:"payment_terms"`
	DeliveryTerms        string             `json:"delivery_terms"`
	ShippingAddress      string             `json:"shipping_address"`
	BillingAddress       string             `json:"billing_address"`
	Notes                string             `json:"notes"`
	TermsAndConditions   string             `json:"terms_and_conditions"`
	Items                []OrderItemRequest `json:"items" binding:"dive"`
}

type UpdateOrderRequest struct {
	ContactID            *string  `json:"contact_id"`
	Status               *string  `json:"status"`
	OrderDate            *Date    `json:"order_date"`
	ExpectedDeliveryDate *Date    `json:"expected_delivery_date"`
	DiscountAmount       *float64 `json:"discount_amount" binding:"omitempty,gte=0"`
	ShippingAmount       *float64 `json:"shipping_amount" binding:"omitempty,gte=0"`
	Currency             *string  `json:"currency"`
	PaymentTerms         *string  `json:"payment_terms"`
	DeliveryTerms        *string  `json:"delivery_terms"`
	ShippingAddress      *string  `json:"shipping_address"`
	BillingAddress       *string  `json:"billing_address"`
	Notes                *string  `json:"notes"`
	TermsAndConditions   *string  `json:"terms_and_conditions"`
}

func (p *UpdateOrderRequest) apply(o *entity.SalesOrder) {
	setRef(&o.ContactID, p.ContactID)
	setDate(&o.OrderDate, p.OrderDate)
	setDate(&o.ExpectedDeliveryDate, p.ExpectedDeliveryDate)
	setF(&o.DiscountAmount, p.DiscountAmount)
	setF(&o.ShippingAmount, p.ShippingAmount)
	setS(&o.Currency, p.Currency)
	setS(&o.PaymentTerms, p.PaymentTerms)
	setS(&o.DeliveryTerms, p.DeliveryTerms)
	setS(&o.ShippingAddress, p.ShippingAddress)
	setS(&o.BillingAddress, p.BillingAddress)
	setS(&o.Notes, p.Notes)
	setS(&o.TermsAndConditions, p.TermsAndConditions)
}

func (s *SalesOrderService) List(ctx context.Context, p repository.ListParams) (*Page[entity.SalesOrder], error) {
	list, total, err := s.repos.SalesOrder.FindAll(ctx, p)
	return listPage(list, total, err, p)
}

func (s *SalesOrderService) Get(ctx context.Context, id string) (*entity.SalesOrder, error) {
	o, err := s.repos.SalesOrder.FindByID(ctx, id, false)
	return o, translate(err, "销售订单")
}

func newOrderItem(orderID string, lineNo int, in OrderItemRequest) entity.SalesOrderItem {
	l := in.line()
	return entity.SalesOrderItem{
		ID:                   uuid.New().String(),
		OrderID:              orderID,
		LineNo:               lineNo,
		ProductID:            in.ProductID,
		Description:          in.Description,
		Quantity:             l.Quantity,
		Unit:                 in.Unit,
		UnitPrice:            l.UnitPrice,
		TaxRate:              l.TaxRate,
		DiscountPercent:      l.DiscountPercent,
		TotalPrice:           workflow.LineTotal(l),
		PendingQuantity:      l.Quantity,
		ExpectedDeliveryDate: in.ExpectedDeliveryDate.Ptr(),
		Notes:                in.Notes,
	}
}

func orderLine(it entity.SalesOrderItem) workflow.Line {
	return workflow.Line{Quantity: it.Quantity, UnitPrice: it.UnitPrice, TaxRate: it.TaxRate, DiscountPercent: it.DiscountPercent}
}

func applyOrderSummary(o *entity.SalesOrder, sum workflow.Summary) {
	o.TotalAmount = sum.TotalAmount
	o.TaxAmount = sum.TaxAmount
	o.DiscountAmount = sum.DiscountAmount
	o.ShippingAmount = sum.ShippingAmount
	o.GrandTotal = sum.GrandTotal
}

func recomputeOrder(ctx context.Context, r *repository.Repositories, o *entity.SalesOrder) error {
	items, err := r.SalesOrder.FindItems(ctx, o.ID)
	if err != nil {
		return err
	}
	lines := make([]workflow.Line, len(items))
	for i, it := range items {
		lines[i] = orderLine(it)
	}
	applyOrderSummary(o, workflow.Summarize(lines, o.DiscountAmount, o.ShippingAmount))
	o.Items = items
	return r.SalesOrder.Update(ctx, o)
}

func (s *SalesOrderService) Create(ctx context.Context, userID string, req *CreateOrderRequest) (*entity.SalesOrder, error) {
	status := entity.SOStatusDraft
	if req.Status != "" {
		if err := workflow.Validate(workflow.KindOrder, req.Status); err != nil {
			return nil, translate(err, "销售订单")
		}
		status = req.Status
	}
	req.ContactID = normRef(req.ContactID)
	if err := checkCustomer(ctx, s.repos, req.CustomerID, req.ContactID); err != nil {
		return nil, err
	}

	var orderID string
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		number, err := nextNumber(ctx, r, orderNumbers, time.Now())
		if err != nil {
			return err
		}
		o := &entity.SalesOrder{
			ID:                   uuid.New().String(),
			OrderNumber:          number,
			CustomerID:           req.CustomerID,
			ContactID:            req.ContactID,
			Status:               status,
			OrderDate:            req.OrderDate.Ptr(),
			ExpectedDeliveryDate: req.ExpectedDeliveryDate.Ptr(),
			DiscountAmount:       req.DiscountAmount,
			ShippingAmount:       req.ShippingAmount,
			Currency:             currencyOr(req.Currency),
			PaymentTerms:         req.PaymentTerms,
			DeliveryTerms:        req.DeliveryTerms,
			ShippingAddress:      req.ShippingAddress,
			BillingAddress:       req.BillingAddress,
			Notes:                req.Notes,
			TermsAndConditions:   req.TermsAndConditions,
			CreatedBy:            userID,
		}
		if o.OrderDate == nil {
			o.OrderDate = today()
		}
		lines := make([]workflow.Line, 0, len(req.Items))
		for i := range req.Items {
			in := req.Items[i]
			in.ProductID = normRef(in.ProductID)
			if err := productDefaults(ctx, r, in.ProductID, &in.Description, &in.Unit); err != nil {
				return err
			}
			item := newOrderItem(o.ID, i+1, in)
			lines = append(lines, orderLine(item))
			o.Items = append(o.Items, item)
		}
		applyOrderSummary(o, workflow.Summarize(lines, o.DiscountAmount, o.ShippingAmount))
		if err := r.SalesOrder.Create(ctx, o); err != nil {
			return err
		}
		orderID = o.ID
		return nil
	})
	if err != nil {
		return nil, translate(err, "销售订单")
	}
	return s.Get(ctx, orderID)
}

// Update 部分更新；completed/cancelled 订单不可修改，状态变更按状态机校验
func (s *SalesOrderService) Update(ctx context.Context, id string, req *UpdateOrderRequest) (*entity.SalesOrder, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		o, err := r.SalesOrder.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if req.Status != nil {
			if err := workflow.Validate(workflow.KindOrder, *req.Status); err != nil {
				return err
			}
		}
		if err := workflow.EnsureMutable(workflow.KindOrder, o.Status); err != nil {
			return err
		}
		if req.Status != nil {
			if err := workflow.Transition(workflow.KindOrder, o.Status, *req.Status); err != nil {
				return err
			}
		}
		if req.ContactID != nil && *req.ContactID != "" {
			if err := checkCustomer(ctx, r, o.CustomerID, req.ContactID); err != nil {
				return err
			}
		}
		req.apply(o)
		setS(&o.Status, req.Status)
		return recomputeOrder(ctx, r, o)
	})
	if err != nil {
		return nil, translate(err, "销售订单")
	}
	return s.Get(ctx, id)
}

// Delete 仅草稿且未被发货单/发票引用的订单可以删除
func (s *SalesOrderService) Delete(ctx context.Context, id string) error {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		o, err := r.SalesOrder.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if o.Status != entity.SOStatusDraft {
			return stateError("只有草稿订单可以删除，当前状态为 %s", o.Status)
		}
		referenced, err := r.SalesOrder.HasDocuments(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return stateError("订单已有发货单或发票，不能删除")
		}
		return r.SalesOrder.Delete(ctx, id)
	})
	return translate(err, "销售订单")
}

func (s *SalesOrderService) AddItem(ctx context.Context, id string, req *OrderItemRequest) (*entity.SalesOrder, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		o, err := r.SalesOrder.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if err := workflow.EnsureMutable(workflow.KindOrder, o.Status); err != nil {
			return err
		}
		in := *req
		in.ProductID = normRef(in.ProductID)
		if err := productDefaults(ctx, r, in.ProductID, &in.Description, &in.Unit); err != nil {
			return err
		}
		lineNo, err := r.SalesOrder.NextLineNo(ctx, id)
		if err != nil {
			return err
		}
		item := newOrderItem(id, lineNo, in)
		if err := r.SalesOrder.CreateItem(ctx, &item); err != nil {
			return err
		}
		return recomputeOrder(ctx, r, o)
	})
	if err != nil {
		return nil, translate(err, "销售订单")
	}
	return s.Get(ctx, id)
}

// UpdateItem 数量不能低于已发货数量，待发数量随之重算
func (s *SalesOrderService) UpdateItem(ctx context.Context, id, itemID string, req *OrderItemPatch) (*entity.SalesOrder, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		o, err := r.SalesOrder.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if err := workflow.EnsureMutable(workflow.KindOrder, o.Status); err != nil {
			return err
		}
		item, err := r.SalesOrder.FindItem(ctx, id, itemID)
		if err != nil {
			return translate(err, "订单明细")
		}
		if req.Quantity != nil && *req.Quantity < item.DeliveredQuantity {
			return validationError("数量不能小于已发货数量 %.4g", item.DeliveredQuantity)
		}
		if req.ProductID != nil {
			setRef(&item.ProductID, req.ProductID)
			if err := productDefaults(ctx, r, item.ProductID, &item.Description, &item.Unit); err != nil {
				return err
			}
		}
		setS(&item.Description, req.Description)
		setS(&item.Unit, req.Unit)
		setS(&item.Notes, req.Notes)
		setDate(&item.ExpectedDeliveryDate, req.ExpectedDeliveryDate)
		l := orderLine(*item)
		req.apply(&l)
		item.Quantity, item.UnitPrice, item.TaxRate, item.DiscountPercent = l.Quantity, l.UnitPrice, l.TaxRate, l.DiscountPercent
		item.TotalPrice = workflow.LineTotal(l)
		item.PendingQuantity = workflow.PendingQuantity(item.Quantity, item.DeliveredQuantity)
		if err := r.SalesOrder.UpdateItem(ctx, item); err != nil {
			return err
		}
		return recomputeOrder(ctx, r, o)
	})
	if err != nil {
		return nil, translate(err, "销售订单")
	}
	return s.Get(ctx, id)
}

// DeleteItem 已发货、仍在发货单或发票中引用的明细不能删除
func (s *SalesOrderService) DeleteItem(ctx context.Context, id, itemID string) (*entity.SalesOrder, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		o, err := r.SalesOrder.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if err := workflow.EnsureMutable(workflow.KindOrder, o.Status); err != nil {
			return err
		}
		item, err := r.SalesOrder.FindItem(ctx, id, itemID)
		if err != nil {
			return translate(err, "订单明细")
		}
		if item.DeliveredQuantity > 0 {
			return stateError("明细已发货 %.4g，不能删除", item.DeliveredQuantity)
		}
		inDelivery, err := r.Delivery.OrderItemInActiveDelivery(ctx, itemID)
		if err != nil {
			return err
		}
		if inDelivery {
			return stateError("明细已有未取消的发货单，不能删除")
		}
		invoiced, err := r.Invoice.InvoicedByOrderItem(ctx, id, "")
		if err != nil {
			return err
		}
		if invoiced[itemID] > 0 {
			return stateError("明细已开票 %.4g，不能删除", invoiced[itemID])
		}
		if err := r.SalesOrder.DeleteItem(ctx, itemID); err != nil {
			return err
		}
		return recomputeOrder(ctx, r, o)
	})
	if err != nil {
		return nil, translate(err, "销售订单")
	}
	return s.Get(ctx, id)
}
