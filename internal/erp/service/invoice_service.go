package service

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/bitfantasy/nimo-erp/internal/erp/workflow"
	"github.com/google/uuid"
)

// InvoiceService 销售发票与收款
type InvoiceService struct {
	base
}

func NewInvoiceService(b base) *InvoiceService {
	return &InvoiceService{base: b}
}

type InvoiceItemRequest struct {
	ItemRequest
	OrderItemID *string `json:"order_item_id"`
}

type CreateInvoiceRequest struct {
	OrderID        *string              `json:"order_id"`
	CustomerID     string               `json:"customer_id"`
	InvoiceDate    *Date                `json:"invoice_date"`
	DueDate        *Date                `json:"due_date"`
	DiscountAmount *float64             `json:"discount_amount" binding:"omitempty,gte=0"`
	ShippingAmount *float64             `json:"shipping_amount" binding:"omitempty,gte=0"`
	Currency       string               `json:"currency"`
	PaymentTerms   string               `json:"payment_terms"`
	Notes          string               `json:"notes"`
	Items          []InvoiceItemRequest `json:"items" binding:"dive"`
}

type UpdateInvoiceRequest struct {
	Status         *string  `json:"status"`
	InvoiceDate    *Date    `json:"invoice_date"`
	DueDate        *Date    `json:"due_date"`
	DiscountAmount *float64 `json:"discount_amount" binding:"omitempty,gte=0"`
	ShippingAmount *float64 `json:"shipping_amount" binding:"omitempty,gte=0"`
	Currency       *string  `json:"currency"`
	PaymentTerms   *string  `json:"payment_terms"`
	Notes          *string  `json:"notes"`
}

func (p *UpdateInvoiceRequest) apply(inv *entity.SalesInvoice) {
	setDate(&inv.InvoiceDate, p.InvoiceDate)
	setDate(&inv.DueDate, p.DueDate)
	setF(&inv.DiscountAmount, p.DiscountAmount)
	setF(&inv.ShippingAmount, p.ShippingAmount)
	setS(&inv.Currency, p.Currency)
	setS(&inv.PaymentTerms, p.PaymentTerms)
	setS(&inv.Notes, p.Notes)
}

type PaymentRequest struct {
	Amount          float64 `json:"amount" binding:"gt=0"`
	PaymentDate     *Date   `json:"payment_date"`
	PaymentMethod   string  `json:"payment_method" binding:"required,oneof=cash bank_transfer credit_card check online_payment"`
	ReferenceNumber string  `json:"reference_number"`
	Notes           string  `json:"notes"`
}

func (s *InvoiceService) List(ctx context.Context, p repository.ListParams) (*Page[entity.SalesInvoice], error) {
	list, total, err := s.repos.Invoice.FindAll(ctx, p)
	return listPage(list, total, err, p)
}

func (s *InvoiceService) Get(ctx context.Context, id string) (*entity.SalesInvoice, error) {
	inv, err := s.repos.Invoice.FindByID(ctx, id, false)
	return inv, translate(err, "发票")
}

func newInvoiceItem(invoiceID string, lineNo int, in InvoiceItemRequest) entity.SalesInvoiceItem {
	l := in.line()
	return entity.SalesInvoiceItem{
		ID:              uuid.New().String(),
		InvoiceID:       invoiceID,
		LineNo:          lineNo,
		OrderItemID:     normRef(in.OrderItemID),
		ProductID:       in.ProductID,
		Description:     in.Description,
		Quantity:        l.Quantity,
		Unit:            in.Unit,
		UnitPrice:       l.UnitPrice,
		TaxRate:         l.TaxRate,
		DiscountPercent: l.DiscountPercent,
		TotalPrice:      workflow.LineTotal(l),
		Notes:           in.Notes,
	}
}

func invoiceLine(it entity.SalesInvoiceItem) workflow.Line {
	return workflow.Line{Quantity: it.Quantity, UnitPrice: it.UnitPrice, TaxRate: it.TaxRate, DiscountPercent: it.DiscountPercent}
}

func applyInvoiceSummary(inv *entity.SalesInvoice, sum workflow.Summary) {
	inv.TotalAmount = sum.TotalAmount
	inv.TaxAmount = sum.TaxAmount
	inv.DiscountAmount = sum.DiscountAmount
	inv.ShippingAmount = sum.ShippingAmount
	inv.GrandTotal = sum.GrandTotal
	inv.AmountDue = workflow.Round2(inv.GrandTotal - inv.AmountPaid)
}

func recomputeInvoice(ctx context.Context, r *repository.Repositories, inv *entity.SalesInvoice) error {
	items, err := r.Invoice.FindItems(ctx, inv.ID)
	if err != nil {
		return err
	}
	lines := make([]workflow.Line, len(items))
	for i, it := range items {
		lines[i] = invoiceLine(it)
	}
	applyInvoiceSummary(inv, workflow.Summarize(lines, inv.DiscountAmount, inv.ShippingAmount))
	return r.Invoice.Update(ctx, inv)
}

// Create 开具发票；关联订单且未提供明细时按订单明细开票
func (s *InvoiceService) Create(ctx context.Context, userID string, req *CreateInvoiceRequest) (*entity.SalesInvoice, error) {
	req.OrderID = normRef(req.OrderID)
	var order *entity.SalesOrder
	customerID := req.CustomerID
	if req.OrderID != nil {
		o, err := s.repos.SalesOrder.FindByID(ctx, *req.OrderID, false)
		if err != nil {
			return nil, translate(err, "销售订单")
		}
		if o.Status == entity.SOStatusDraft || o.Status == entity.SOStatusCancelled {
			return nil, stateError("订单状态为 %s，不能开票", o.Status)
		}
		if customerID != "" && customerID != o.CustomerID {
			return nil, validationError("发票客户与订单客户不一致")
		}
		customerID = o.CustomerID
		order = o
	}
	if customerID == "" {
		return nil, validationError("customer_id 或 order_id 必须提供其一")
	}
	if err := checkCustomer(ctx, s.repos, customerID, nil); err != nil {
		return nil, err
	}

	currency := req.Currency
	if order != nil && currency == "" {
		currency = order.Currency
	}
	if order == nil && referencesOrderItems(req.Items) {
		return nil, validationError("未关联订单的发票不能引用订单明细")
	}

	var invoiceID string
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		number, err := nextNumber(ctx, r, invoiceNumbers, time.Now())
		if err != nil {
			return err
		}
		inv := &entity.SalesInvoice{
			ID:            uuid.New().String(),
			InvoiceNumber: number,
			OrderID:       req.OrderID,
			CustomerID:    customerID,
			Status:        entity.InvoiceStatusDraft,
			InvoiceDate:   req.InvoiceDate.Ptr(),
			DueDate:       req.DueDate.Ptr(),
			Currency:      currencyOr(currency),
			PaymentTerms:  req.PaymentTerms,
			Notes:         req.Notes,
			CreatedBy:     userID,
		}
		if inv.InvoiceDate == nil {
			inv.InvoiceDate = today()
		}
		if inv.PaymentTerms == "" && order != nil {
			inv.PaymentTerms = order.PaymentTerms
		}
		items := req.Items
		if order != nil {
			invoiced, err := r.Invoice.InvoicedByOrderItem(ctx, order.ID, "")
			if err != nil {
				return err
			}
			if len(items) == 0 {
				items = uninvoicedLines(order, invoiced)
				if len(items) == 0 {
					return stateError("订单 %s 已全部开票", order.OrderNumber)
				}
				// 订单折扣与运费只计入首张发票
				if len(invoiced) == 0 {
					inv.DiscountAmount, inv.ShippingAmount = order.DiscountAmount, order.ShippingAmount
				}
			} else if err := checkInvoiceable(order, invoiced, items); err != nil {
				return err
			}
		}
		if req.DiscountAmount != nil {
			inv.DiscountAmount = *req.DiscountAmount
		}
		if req.ShippingAmount != nil {
			inv.ShippingAmount = *req.ShippingAmount
		}
		lines := make([]workflow.Line, 0, len(items))
		for i := range items {
			in := items[i]
			in.ProductID = normRef(in.ProductID)
			if err := productDefaults(ctx, r, in.ProductID, &in.Description, &in.Unit); err != nil {
				return err
			}
			item := newInvoiceItem(inv.ID, i+1, in)
			lines = append(lines, invoiceLine(item))
			inv.Items = append(inv.Items, item)
		}
		applyInvoiceSummary(inv, workflow.Summarize(lines, inv.DiscountAmount, inv.ShippingAmount))
		if err := r.Invoice.Create(ctx, inv); err != nil {
			return err
		}
		invoiceID = inv.ID
		return nil
	})
	if err != nil {
		return nil, translate(err, "发票")
	}
	return s.Get(ctx, invoiceID)
}

// uninvoicedLines 按订单明细的未开票数量生成发票行
func uninvoicedLines(order *entity.SalesOrder, invoiced map[string]float64) []InvoiceItemRequest {
	var items []InvoiceItemRequest
	for _, it := range order.Items {
		remaining := it.Quantity - invoiced[it.ID]
		if remaining <= 0 {
			continue
		}
		orderItemID := it.ID
		items = append(items, InvoiceItemRequest{
			ItemRequest: ItemRequest{
				ProductID:   it.ProductID,
				Description: it.Description,
				Unit:        it.Unit,
				Notes:       it.Notes,
				LineInput:   LineInput{Quantity: remaining, UnitPrice: it.UnitPrice, TaxRate: it.TaxRate, DiscountPercent: it.DiscountPercent},
			},
			OrderItemID: &orderItemID,
		})
	}
	return items
}

// checkInvoiceable 引用订单明细的发票行累计数量不得超过订单数量；invoiced 会被累加
func checkInvoiceable(order *entity.SalesOrder, invoiced map[string]float64, items []InvoiceItemRequest) error {
	lines := make(map[string]entity.SalesOrderItem, len(order.Items))
	for _, it := range order.Items {
		lines[it.ID] = it
	}
	for _, in := range items {
		ref := normRef(in.OrderItemID)
		if ref == nil {
			continue
		}
		line, ok := lines[*ref]
		if !ok {
			return validationError("订单明细 %s 不属于订单 %s", *ref, order.OrderNumber)
		}
		invoiced[*ref] += in.Quantity
		if invoiced[*ref] > line.Quantity {
			return validationError("%s 累计开票数量 %.4g 超过订单数量 %.4g", line.Description, invoiced[*ref], line.Quantity)
		}
	}
	return nil
}

func referencesOrderItems(items []InvoiceItemRequest) bool {
	for _, in := range items {
		if normRef(in.OrderItemID) != nil {
			return true
		}
	}
	return false
}

// checkInvoiceItem 校验草稿发票上新增或修改的订单明细引用
func checkInvoiceItem(ctx context.Context, r *repository.Repositories, inv *entity.SalesInvoice, excludeItemID string, in InvoiceItemRequest) error {
	if normRef(in.OrderItemID) == nil {
		return nil
	}
	if inv.OrderID == nil {
		return validationError("未关联订单的发票不能引用订单明细")
	}
	order, err := r.SalesOrder.FindByID(ctx, *inv.OrderID, false)
	if err != nil {
		return translate(err, "销售订单")
	}
	invoiced, err := r.Invoice.InvoicedByOrderItem(ctx, order.ID, excludeItemID)
	if err != nil {
		return err
	}
	return checkInvoiceable(order, invoiced, []InvoiceItemRequest{in})
}

func (s *InvoiceService) Update(ctx context.Context, id string, req *UpdateInvoiceRequest) (*entity.SalesInvoice, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		inv, err := r.Invoice.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if req.Status != nil {
			if err := workflow.Validate(workflow.KindInvoice, *req.Status); err != nil {
				return err
			}
		}
		if err := workflow.EnsureMutable(workflow.KindInvoice, inv.Status); err != nil {
			return err
		}
		if req.Status != nil {
			if err := s.checkStatusChange(ctx, r, inv, *req.Status); err != nil {
				return err
			}
			inv.Status = *req.Status
		}
		if (req.DiscountAmount != nil || req.ShippingAmount != nil) && inv.Status != entity.InvoiceStatusDraft {
			return stateError("只有草稿发票可以修改金额，当前状态为 %s", inv.Status)
		}
		req.apply(inv)
		return recomputeInvoice(ctx, r, inv)
	})
	if err != nil {
		return nil, translate(err, "发票")
	}
	return s.Get(ctx, id)
}

func (s *InvoiceService) checkStatusChange(ctx context.Context, r *repository.Repositories, inv *entity.SalesInvoice, target string) error {
	if err := workflow.Transition(workflow.KindInvoice, inv.Status, target); err != nil {
		return err
	}
	if target == inv.Status {
		return nil
	}
	// 收款相关状态只能由收款登记与作废推导
	switch target {
	case entity.InvoiceStatusPartiallyPaid, entity.InvoiceStatusPaid:
		return stateError("发票状态 %s 由收款记录决定，不能手工设置", target)
	case entity.InvoiceStatusSent:
		if inv.AmountPaid > 0 {
			return stateError("发票已收款 %.2f，不能改回 %s", inv.AmountPaid, target)
		}
		return nil
	case entity.InvoiceStatusCancelled:
	default:
		return nil
	}
	paid, err := r.Invoice.HasConfirmedPayments(ctx, inv.ID)
	if err != nil {
		return err
	}
	if paid {
		return stateError("发票已有收款，不能取消")
	}
	return nil
}

// Delete 仅草稿发票可以删除
func (s *InvoiceService) Delete(ctx context.Context, id string) error {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		inv, err := r.Invoice.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if inv.Status != entity.InvoiceStatusDraft {
			return stateError("只有草稿发票可以删除，当前状态为 %s", inv.Status)
		}
		return r.Invoice.Delete(ctx, id)
	})
	return translate(err, "发票")
}

func (s *InvoiceService) Send(ctx context.Context, id string) (*entity.SalesInvoice, error) {
	return s.move(ctx, id, entity.InvoiceStatusSent)
}

func (s *InvoiceService) Cancel(ctx context.Context, id string) (*entity.SalesInvoice, error) {
	return s.move(ctx, id, entity.InvoiceStatusCancelled)
}

func (s *InvoiceService) move(ctx context.Context, id, target string) (*entity.SalesInvoice, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		inv, err := r.Invoice.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if err := s.checkStatusChange(ctx, r, inv, target); err != nil {
			return err
		}
		inv.Status = target
		return r.Invoice.Update(ctx, inv)
	})
	if err != nil {
		return nil, translate(err, "发票")
	}
	return s.Get(ctx, id)
}

// draftInvoice 锁定发票并确认明细可修改
func draftInvoice(ctx context.Context, r *repository.Repositories, id string) (*entity.SalesInvoice, error) {
	inv, err := r.Invoice.FindByID(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if inv.Status != entity.InvoiceStatusDraft {
		return nil, stateError("只有草稿发票可以修改明细，当前状态为 %s", inv.Status)
	}
	return inv, nil
}

func (s *InvoiceService) AddItem(ctx context.Context, id string, req *InvoiceItemRequest) (*entity.SalesInvoice, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		inv, err := draftInvoice(ctx, r, id)
		if err != nil {
			return err
		}
		in := *req
		in.ProductID = normRef(in.ProductID)
		if err := checkInvoiceItem(ctx, r, inv, "", in); err != nil {
			return err
		}
		if err := productDefaults(ctx, r, in.ProductID, &in.Description, &in.Unit); err != nil {
			return err
		}
		lineNo, err := r.Invoice.NextLineNo(ctx, id)
		if err != nil {
			return err
		}
		item := newInvoiceItem(id, lineNo, in)
		if err := r.Invoice.CreateItem(ctx, &item); err != nil {
			return err
		}
		return recomputeInvoice(ctx, r, inv)
	})
	if err != nil {
		return nil, translate(err, "发票")
	}
	return s.Get(ctx, id)
}

func (s *InvoiceService) UpdateItem(ctx context.Context, id, itemID string, req *ItemPatch) (*entity.SalesInvoice, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		inv, err := draftInvoice(ctx, r, id)
		if err != nil {
			return err
		}
		item, err := r.Invoice.FindItem(ctx, id, itemID)
		if err != nil {
			return translate(err, "发票明细")
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
		l := invoiceLine(*item)
		req.apply(&l)
		item.Quantity, item.UnitPrice, item.TaxRate, item.DiscountPercent = l.Quantity, l.UnitPrice, l.TaxRate, l.DiscountPercent
		item.TotalPrice = workflow.LineTotal(l)
		ref := InvoiceItemRequest{ItemRequest: ItemRequest{LineInput: LineInput{Quantity: item.Quantity}}, OrderItemID: item.OrderItemID}
		if err := checkInvoiceItem(ctx, r, inv, item.ID, ref); err != nil {
			return err
		}
		if err := r.Invoice.UpdateItem(ctx, item); err != nil {
			return err
		}
		return recomputeInvoice(ctx, r, inv)
	})
	if err != nil {
		return nil, translate(err, "发票")
	}
	return s.Get(ctx, id)
}

func (s *InvoiceService) DeleteItem(ctx context.Context, id, itemID string) (*entity.SalesInvoice, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		inv, err := draftInvoice(ctx, r, id)
		if err != nil {
			return err
		}
		if _, err := r.Invoice.FindItem(ctx, id, itemID); err != nil {
			return translate(err, "发票明细")
		}
		if err := r.Invoice.DeleteItem(ctx, itemID); err != nil {
			return err
		}
		return recomputeInvoice(ctx, r, inv)
	})
	if err != nil {
		return nil, translate(err, "发票")
	}
	return s.Get(ctx, id)
}

// 可以登记收款的发票状态
var payableInvoiceStatus = map[string]bool{
	entity.InvoiceStatusSent:          true,
	entity.InvoiceStatusPartiallyPaid: true,
	entity.InvoiceStatusOverdue:       true,
}

// AddPayment 登记收款，金额不得超过应收余额
func (s *InvoiceService) AddPayment(ctx context.Context, userID, invoiceID string, req *PaymentRequest) (*entity.SalesPayment, error) {
	var paymentID string
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		inv, err := r.Invoice.FindByID(ctx, invoiceID, true)
		if err != nil {
			return err
		}
		if !payableInvoiceStatus[inv.Status] {
			return stateError("发票状态为 %s，不能登记收款", inv.Status)
		}
		amount := workflow.Round2(req.Amount)
		if amount <= 0 || amount > inv.AmountDue {
			return validationError("收款金额必须大于0且不超过应收余额 %.2f", inv.AmountDue)
		}

		number, err := nextNumber(ctx, r, paymentNumbers, time.Now())
		if err != nil {
			return err
		}
		pay := &entity.SalesPayment{
			ID:              uuid.New().String(),
			PaymentNumber:   number,
			InvoiceID:       inv.ID,
			CustomerID:      inv.CustomerID,
			Status:          entity.PaymentStatusConfirmed,
			PaymentDate:     req.PaymentDate.Ptr(),
			Amount:          amount,
			PaymentMethod:   req.PaymentMethod,
			ReferenceNumber: req.ReferenceNumber,
			Notes:           req.Notes,
			CreatedBy:       userID,
		}
		if pay.PaymentDate == nil {
			pay.PaymentDate = today()
		}
		if err := r.Invoice.CreatePayment(ctx, pay); err != nil {
			return err
		}

		inv.AmountPaid = workflow.Round2(inv.AmountPaid + amount)
		inv.AmountDue = workflow.Round2(inv.GrandTotal - inv.AmountPaid)
		next := entity.InvoiceStatusPartiallyPaid
		if inv.AmountDue <= 0 {
			next = entity.InvoiceStatusPaid
		}
		if err := workflow.Transition(workflow.KindInvoice, inv.Status, next); err != nil {
			return err
		}
		inv.Status = next
		if err := r.Invoice.Update(ctx, inv); err != nil {
			return err
		}
		paymentID = pay.ID
		return nil
	})
	if err != nil {
		return nil, translate(err, "发票")
	}
	return s.GetPayment(ctx, paymentID)
}

// VoidPayment 作废收款并冲回发票已收金额
func (s *InvoiceService) VoidPayment(ctx context.Context, id string) (*entity.SalesPayment, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		pay, err := r.Invoice.FindPayment(ctx, id, true)
		if err != nil {
			return translate(err, "收款记录")
		}
		if err := workflow.Transition(workflow.KindPayment, pay.Status, entity.PaymentStatusVoided); err != nil {
			return err
		}
		if pay.Status == entity.PaymentStatusVoided {
			return stateError("收款记录已作废")
		}
		inv, err := r.Invoice.FindByID(ctx, pay.InvoiceID, true)
		if err != nil {
			return translate(err, "发票")
		}
		pay.Status = entity.PaymentStatusVoided
		if err := r.Invoice.UpdatePayment(ctx, pay); err != nil {
			return err
		}

		inv.AmountPaid = workflow.Round2(inv.AmountPaid - pay.Amount)
		if inv.AmountPaid < 0 {
			inv.AmountPaid = 0
		}
		inv.AmountDue = workflow.Round2(inv.GrandTotal - inv.AmountPaid)
		next := inv.Status
		switch {
		case inv.AmountPaid > 0:
			next = entity.InvoiceStatusPartiallyPaid
		case inv.Status != entity.InvoiceStatusOverdue:
			next = entity.InvoiceStatusSent
		}
		if err := workflow.Transition(workflow.KindInvoice, inv.Status, next); err != nil {
			return err
		}
		inv.Status = next
		return r.Invoice.Update(ctx, inv)
	})
	if err != nil {
		return nil, translate(err, "收款记录")
	}
	return s.GetPayment(ctx, id)
}

func (s *InvoiceService) ListPayments(ctx context.Context, p repository.ListParams, invoiceID string) (*Page[entity.SalesPayment], error) {
	list, total, err := s.repos.Invoice.FindPayments(ctx, p, invoiceID)
	return listPage(list, total, err, p)
}

func (s *InvoiceService) GetPayment(ctx context.Context, id string) (*entity.SalesPayment, error) {
	pay, err := s.repos.Invoice.FindPayment(ctx, id, false)
	return pay, translate(err, "收款记录")
}
