package service

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/bitfantasy/nimo-erp/internal/erp/workflow"
	"github.com/google/uuid"
)

// QuotationService 销售报价与转订单
type QuotationService struct {
	base
}

func NewQuotationService(b base) *QuotationService {
	return &QuotationService{base: b}
}

// ItemRequest 报价单/订单/发票明细
type ItemRequest struct {
	ProductID   *string `json:"product_id"`
	Description string  `json:"description"`
	Unit        string  `json:"unit"`
	Notes       string  `json:"notes"`
	LineInput
}

// ItemPatch 明细部分更新
type ItemPatch struct {
	ProductID   *string `json:"product_id"`
	Description *string `json:"description"`
	Unit        *string `json:"unit"`
	Notes       *string `json:"notes"`
	LinePatch
}

type CreateQuotationRequest struct {
	CustomerID         string        `json:"customer_id" binding:"required"`
	ContactID          *string       `json:"contact_id"`
	Status             string        `json:"status"`
	Subject            string        `json:"subject"`
	QuotationDate      *Date         `json:"quotation_date"`
	ValidUntil         *Date         `json:"valid_until"`
	DiscountAmount     float64       `json:"discount_amount" binding:"gte=0"`
	Currency           string        `json:"currency"`
	PaymentTerms       string        `json:"payment_terms"`
	DeliveryTerms      string        `json:"delivery_terms"`
	Notes              string        `json:"notes"`
	TermsAndConditions string        `json:"terms_and_conditions"`
	Items              []ItemRequest `json:"items" binding:"dive"`
}

type UpdateQuotationRequest struct {
	CustomerID         *string  `json:"customer_id"`
	ContactID          *string  `json:"contact_id"`
	Status             *string  `json:"status"`
	Subject            *string  `json:"subject"`
	QuotationDate      *Date    `json:"quotation_date"`
	ValidUntil         *Date    `json:"valid_until"`
	DiscountAmount     *float64 `json:"discount_amount" binding:"omitempty,gte=0"`
	Currency           *string  `json:"currency"`
	PaymentTerms       *string  `json:"payment_terms"`
	DeliveryTerms      *string  `json:"delivery_terms"`
	Notes              *string  `json:"notes"`
	TermsAndConditions *string  `json:"terms_and_conditions"`
}

func (p *UpdateQuotationRequest) apply(q *entity.Quotation) {
	setS(&q.CustomerID, p.CustomerID)
	setRef(&q.ContactID, p.ContactID)
	setS(&q.Subject, p.Subject)
	setDate(&q.QuotationDate, p.QuotationDate)
	setDate(&q.ValidUntil, p.ValidUntil)
	setF(&q.DiscountAmount, p.DiscountAmount)
	setS(&q.Currency, p.Currency)
	setS(&q.PaymentTerms, p.PaymentTerms)
	setS(&q.DeliveryTerms, p.DeliveryTerms)
	setS(&q.Notes, p.Notes)
	setS(&q.TermsAndConditions, p.TermsAndConditions)
}

func (s *QuotationService) List(ctx context.Context, p repository.ListParams) (*Page[entity.Quotation], error) {
	list, total, err := s.repos.Quotation.FindAll(ctx, p)
	return listPage(list, total, err, p)
}

func (s *QuotationService) Get(ctx context.Context, id string) (*entity.Quotation, error) {
	q, err := s.repos.Quotation.FindByID(ctx, id, false)
	return q, translate(err, "报价单")
}

// Create 创建报价单，编号、明细与金额在同一事务内生成
func (s *QuotationService) Create(ctx context.Context, userID string, req *CreateQuotationRequest) (*entity.Quotation, error) {
	status := entity.QuotationStatusDraft
	if req.Status != "" {
		if err := workflow.Validate(workflow.KindQuotation, req.Status); err != nil {
			return nil, translate(err, "报价单")
		}
		if req.Status == entity.QuotationStatusConverted {
			return nil, validationError("报价单只能通过转订单变为 converted")
		}
		status = req.Status
	}
	req.ContactID = normRef(req.ContactID)
	if err := checkCustomer(ctx, s.repos, req.CustomerID, req.ContactID); err != nil {
		return nil, err
	}

	var quotation *entity.Quotation
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		number, err := nextNumber(ctx, r, quotationNumbers, time.Now())
		if err != nil {
			return err
		}
		q := &entity.Quotation{
			ID:                 uuid.New().String(),
			QuotationNumber:    number,
			CustomerID:         req.CustomerID,
			ContactID:          req.ContactID,
			Status:             status,
			Subject:            req.Subject,
			QuotationDate:      req.QuotationDate.Ptr(),
			ValidUntil:         req.ValidUntil.Ptr(),
			DiscountAmount:     req.DiscountAmount,
			Currency:           currencyOr(req.Currency),
			PaymentTerms:       req.PaymentTerms,
			DeliveryTerms:      req.DeliveryTerms,
			Notes:              req.Notes,
			TermsAndConditions: req.TermsAndConditions,
			CreatedBy:          userID,
		}
		if q.QuotationDate == nil {
			q.QuotationDate = today()
		}
		lines := make([]workflow.Line, 0, len(req.Items))
		for i := range req.Items {
			in := req.Items[i]
			in.ProductID = normRef(in.ProductID)
			if err := productDefaults(ctx, r, in.ProductID, &in.Description, &in.Unit); err != nil {
				return err
			}
			l := in.line()
			lines = append(lines, l)
			q.Items = append(q.Items, entity.QuotationItem{
				ID:              uuid.New().String(),
				LineNo:          i + 1,
				ProductID:       in.ProductID,
				Description:     in.Description,
				Quantity:        l.Quantity,
				Unit:            in.Unit,
				UnitPrice:       l.UnitPrice,
				TaxRate:         l.TaxRate,
				DiscountPercent: l.DiscountPercent,
				TotalPrice:      workflow.LineTotal(l),
				Notes:           in.Notes,
			})
		}
		applyQuotationSummary(q, workflow.Summarize(lines, q.DiscountAmount, 0))
		if err := r.Quotation.Create(ctx, q); err != nil {
			return err
		}
		quotation = q
		return nil
	})
	if err != nil {
		return nil, translate(err, "报价单")
	}
	return s.Get(ctx, quotation.ID)
}

func applyQuotationSummary(q *entity.Quotation, sum workflow.Summary) {
	q.TotalAmount = sum.TotalAmount
	q.TaxAmount = sum.TaxAmount
	q.DiscountAmount = sum.DiscountAmount
	q.GrandTotal = sum.GrandTotal
}

// recompute 由全部明细重算表头金额并保存
func recomputeQuotation(ctx context.Context, r *repository.Repositories, q *entity.Quotation) error {
	items, err := r.Quotation.FindItems(ctx, q.ID)
	if err != nil {
		return err
	}
	lines := make([]workflow.Line, len(items))
	for i, it := range items {
		lines[i] = workflow.Line{Quantity: it.Quantity, UnitPrice: it.UnitPrice, TaxRate: it.TaxRate, DiscountPercent: it.DiscountPercent}
	}
	applyQuotationSummary(q, workflow.Summarize(lines, q.DiscountAmount, 0))
	q.Items = items
	return r.Quotation.Update(ctx, q)
}

// Update 部分更新，状态变更按状态机校验；converted 只能由转订单设置
func (s *QuotationService) Update(ctx context.Context, id string, req *UpdateQuotationRequest) (*entity.Quotation, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		q, err := r.Quotation.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if err := workflow.EnsureMutable(workflow.KindQuotation, q.Status); err != nil {
			return err
		}
		if req.Status != nil {
			if err := workflow.Validate(workflow.KindQuotation, *req.Status); err != nil {
				return err
			}
			if *req.Status == entity.QuotationStatusConverted {
				return validationError("报价单只能通过转订单变为 converted")
			}
			if err := workflow.Transition(workflow.KindQuotation, q.Status, *req.Status); err != nil {
				return err
			}
		}
		if req.CustomerID != nil || req.ContactID != nil {
			customerID, contactID := q.CustomerID, q.ContactID
			setS(&customerID, req.CustomerID)
			setRef(&contactID, req.ContactID)
			if err := checkCustomer(ctx, r, customerID, contactID); err != nil {
				return err
			}
		}
		req.apply(q)
		setS(&q.Status, req.Status)
		return recomputeQuotation(ctx, r, q)
	})
	if err != nil {
		return nil, translate(err, "报价单")
	}
	return s.Get(ctx, id)
}

// Delete 已转订单的报价单不能删除
func (s *QuotationService) Delete(ctx context.Context, id string) error {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		q, err := r.Quotation.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if q.Status == entity.QuotationStatusConverted {
			return stateError("报价单已转为订单，不能删除")
		}
		return r.Quotation.Delete(ctx, id)
	})
	return translate(err, "报价单")
}

func (s *QuotationService) AddItem(ctx context.Context, id string, req *ItemRequest) (*entity.Quotation, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		q, err := r.Quotation.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if err := workflow.EnsureMutable(workflow.KindQuotation, q.Status); err != nil {
			return err
		}
		in := *req
		in.ProductID = normRef(in.ProductID)
		if err := productDefaults(ctx, r, in.ProductID, &in.Description, &in.Unit); err != nil {
			return err
		}
		lineNo, err := r.Quotation.NextLineNo(ctx, id)
		if err != nil {
			return err
		}
		l := in.line()
		item := &entity.QuotationItem{
			ID:              uuid.New().String(),
			QuotationID:     id,
			LineNo:          lineNo,
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
		if err := r.Quotation.CreateItem(ctx, item); err != nil {
			return err
		}
		return recomputeQuotation(ctx, r, q)
	})
	if err != nil {
		return nil, translate(err, "报价单")
	}
	return s.Get(ctx, id)
}

func (s *QuotationService) UpdateItem(ctx context.Context, id, itemID string, req *ItemPatch) (*entity.Quotation, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		q, err := r.Quotation.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if err := workflow.EnsureMutable(workflow.KindQuotation, q.Status); err != nil {
			return err
		}
		item, err := r.Quotation.FindItem(ctx, id, itemID)
		if err != nil {
			return translate(err, "报价单明细")
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
		l := workflow.Line{Quantity: item.Quantity, UnitPrice: item.UnitPrice, TaxRate: item.TaxRate, DiscountPercent: item.DiscountPercent}
		req.apply(&l)
		item.Quantity, item.UnitPrice, item.TaxRate, item.DiscountPercent = l.Quantity, l.UnitPrice, l.TaxRate, l.DiscountPercent
		item.TotalPrice = workflow.LineTotal(l)
		if err := r.Quotation.UpdateItem(ctx, item); err != nil {
			return err
		}
		return recomputeQuotation(ctx, r, q)
	})
	if err != nil {
		return nil, translate(err, "报价单")
	}
	return s.Get(ctx, id)
}

func (s *QuotationService) DeleteItem(ctx context.Context, id, itemID string) (*entity.Quotation, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		q, err := r.Quotation.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if err := workflow.EnsureMutable(workflow.KindQuotation, q.Status); err != nil {
			return err
		}
		if _, err := r.Quotation.FindItem(ctx, id, itemID); err != nil {
			return translate(err, "报价单明细")
		}
		if err := r.Quotation.DeleteItem(ctx, itemID); err != nil {
			return err
		}
		return recomputeQuotation(ctx, r, q)
	})
	if err != nil {
		return nil, translate(err, "报价单")
	}
	return s.Get(ctx, id)
}

// Convert 报价单转销售订单：复制明细、生成订单编号、报价单置为 converted，全部在一个事务内
func (s *QuotationService) Convert(ctx context.Context, userID, id string) (*entity.SalesOrder, error) {
	var orderID string
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		q, err := r.Quotation.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if q.Status != entity.QuotationStatusApproved && q.Status != entity.QuotationStatusSent {
			return stateError("只有已发送或已批准的报价单可以转为订单，当前状态为 %s", q.Status)
		}
		if err := workflow.Transition(workflow.KindQuotation, q.Status, entity.QuotationStatusConverted); err != nil {
			return err
		}

		number, err := nextNumber(ctx, r, orderNumbers, time.Now())
		if err != nil {
			return err
		}
		quotationID := q.ID
		order := &entity.SalesOrder{
			ID:                 uuid.New().String(),
			OrderNumber:        number,
			CustomerID:         q.CustomerID,
			ContactID:          q.ContactID,
			QuotationID:        &quotationID,
			Status:             entity.SOStatusDraft,
			OrderDate:          today(),
			TotalAmount:        q.TotalAmount,
			TaxAmount:          q.TaxAmount,
			DiscountAmount:     q.DiscountAmount,
			GrandTotal:         q.GrandTotal,
			Currency:           q.Currency,
			PaymentTerms:       q.PaymentTerms,
			DeliveryTerms:      q.DeliveryTerms,
			Notes:              q.Notes,
			TermsAndConditions: q.TermsAndConditions,
			CreatedBy:          userID,
		}
		for i, it := range q.Items {
			quotationItemID := it.ID
			order.Items = append(order.Items, entity.SalesOrderItem{
				ID:                uuid.New().String(),
				LineNo:            i + 1,
				ProductID:         it.ProductID,
				QuotationItemID:   &quotationItemID,
				Description:       it.Description,
				Quantity:          it.Quantity,
				Unit:              it.Unit,
				UnitPrice:         it.UnitPrice,
				TaxRate:           it.TaxRate,
				DiscountPercent:   it.DiscountPercent,
				TotalPrice:        it.TotalPrice,
				DeliveredQuantity: 0,
				PendingQuantity:   it.Quantity,
				Notes:             it.Notes,
			})
		}
		if err := r.SalesOrder.Create(ctx, order); err != nil {
			return err
		}

		q.Status = entity.QuotationStatusConverted
		if err := r.Quotation.Update(ctx, q); err != nil {
			return err
		}
		orderID = order.ID
		return nil
	})
	if err != nil {
		return nil, translate(err, "报价单")
	}
	order, err := s.repos.SalesOrder.FindByID(ctx, orderID, false)
	return order, translate(err, "销售订单")
}

// checkCustomer 客户必须存在，联系人（若有）必须属于该客户
func checkCustomer(ctx context.Context, r *repository.Repositories, customerID string, contactID *string) error {
	if _, err := r.Customer.FindByID(ctx, customerID); err != nil {
		return translate(err, "客户")
	}
	if contactID == nil || *contactID == "" {
		return nil
	}
	contact, err := r.Customer.FindContactByID(ctx, *contactID)
	if err != nil {
		return translate(err, "联系人")
	}
	if contact.CustomerID != customerID {
		return validationError("联系人不属于该客户")
	}
	return nil
}

// productDefaults 引用产品时校验存在，并补全描述与单位
func productDefaults(ctx context.Context, r *repository.Repositories, productID *string, description, unit *string) error {
	if productID == nil || *productID == "" {
		return nil
	}
	prod, err := r.Product.FindByID(ctx, *productID)
	if err != nil {
		return translate(err, "产品")
	}
	if *description == "" {
		*description = prod.Name
	}
	if *unit == "" {
		*unit = prod.UOM
	}
	return nil
}

func currencyOr(c string) string {
	if c == "" {
		return "CNY"
	}
	return c
}
