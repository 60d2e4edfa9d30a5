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

// PurchaseService 供应商与采购订单，收货时调用库存服务入库
type PurchaseService struct {
	base
	inventory *InventoryService
}

func NewPurchaseService(b base, inventory *InventoryService) *PurchaseService {
	return &PurchaseService{base: b, inventory: inventory}
}

type SupplierRequest struct {
	Code          string `json:"code" binding:"required,max=50"`
	Name          string `json:"name" binding:"required,max=200"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email" binding:"omitempty,email"`
	Address       string `json:"address"`
	TaxID         string `json:"tax_id"`
	PaymentTerms  string `json:"payment_terms"`
	Notes         string `json:"notes"`
	IsActive      *bool  `json:"is_active"`
}

type SupplierPatch struct {
	Code          *string `json:"code" binding:"omitempty,min=1,max=50"`
	Name          *string `json:"name" binding:"omitempty,min=1,max=200"`
	ContactPerson *string `json:"contact_person"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email" binding:"omitempty,email"`
	Address       *string `json:"address"`
	TaxID         *string `json:"tax_id"`
	PaymentTerms  *string `json:"payment_terms"`
	Notes         *string `json:"notes"`
	IsActive      *bool   `json:"is_active"`
}

type POItemRequest struct {
	ProductID string  `json:"product_id" binding:"required"`
	Quantity  float64 `json:"quantity" binding:"gt=0"`
	UnitPrice float64 `json:"unit_price" binding:"gte=0"`
	TaxRate   float64 `json:"tax_rate" binding:"gte=0,lte=100"`
	Notes     string  `json:"notes"`
}

type CreatePORequest struct {
	SupplierID   string          `json:"supplier_id" binding:"required"`
	OrderDate    *Date           `json:"order_date"`
	ExpectedDate *Date           `json:"expected_date"`
	Currency     string          `json:"currency"`
	Notes        string          `json:"notes"`
	Items        []POItemRequest `json:"items" binding:"required,min=1,dive"`
}

type UpdatePORequest struct {
	Status       *string         `json:"status"`
	OrderDate    *Date           `json:"order_date"`
	ExpectedDate *Date           `json:"expected_date"`
	Notes        *string         `json:"notes"`
	Items        []POItemRequest `json:"items" binding:"omitempty,dive"`
}

type ReceiveLine struct {
	ItemID   string  `json:"item_id" binding:"required"`
	Quantity float64 `json:"quantity" binding:"gt=0"`
}

type ReceiveRequest struct {
	WarehouseID string        `json:"warehouse_id" binding:"required"`
	Items       []ReceiveLine `json:"items" binding:"required,min=1,dive"`
	Notes       string        `json:"notes"`
}

// ========== 供应商 ==========

func (s *PurchaseService) ListSuppliers(ctx context.Context, p repository.ListParams) (*Page[entity.Supplier], error) {
	list, total, err := s.repos.Purchase.FindSuppliers(ctx, p)
	return listPage(list, total, err, p)
}

func (s *PurchaseService) GetSupplier(ctx context.Context, id string) (*entity.Supplier, error) {
	sup, err := s.repos.Purchase.FindSupplier(ctx, id)
	return sup, translate(err, "供应商")
}

func (s *PurchaseService) checkSupplierCode(ctx context.Context, r *repository.Repositories, code, exceptID string) error {
	taken, err := r.Purchase.SupplierCodeTaken(ctx, code, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return conflictError("供应商编码 %s 已存在", code)
	}
	return nil
}

func (s *PurchaseService) CreateSupplier(ctx context.Context, req *SupplierRequest) (*entity.Supplier, error) {
	sup := &entity.Supplier{
		ID:            uuid.New().String(),
		Code:          req.Code,
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Phone:         req.Phone,
		Email:         req.Email,
		Address:       req.Address,
		TaxID:         req.TaxID,
		PaymentTerms:  req.PaymentTerms,
		Notes:         req.Notes,
		IsActive:      boolOr(req.IsActive, true),
	}
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		if err := s.checkSupplierCode(ctx, r, sup.Code, ""); err != nil {
			return err
		}
		return r.Purchase.SaveSupplier(ctx, sup)
	})
	if err != nil {
		return nil, translate(err, "供应商")
	}
	return sup, nil
}

func (s *PurchaseService) UpdateSupplier(ctx context.Context, id string, req *SupplierPatch) (*entity.Supplier, error) {
	var sup *entity.Supplier
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		var err error
		if sup, err = r.Purchase.FindSupplier(ctx, id); err != nil {
			return err
		}
		if req.Code != nil && *req.Code != sup.Code {
			if err := s.checkSupplierCode(ctx, r, *req.Code, id); err != nil {
				return err
			}
		}
		setS(&sup.Code, req.Code)
		setS(&sup.Name, req.Name)
		setS(&sup.ContactPerson, req.ContactPerson)
		setS(&sup.Phone, req.Phone)
		setS(&sup.Email, req.Email)
		setS(&sup.Address, req.Address)
		setS(&sup.TaxID, req.TaxID)
		setS(&sup.PaymentTerms, req.PaymentTerms)
		setS(&sup.Notes, req.Notes)
		setB(&sup.IsActive, req.IsActive)
		return r.Purchase.SaveSupplier(ctx, sup)
	})
	if err != nil {
		return nil, translate(err, "供应商")
	}
	return sup, nil
}

func (s *PurchaseService) DeleteSupplier(ctx context.Context, id string) error {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.Purchase.FindSupplier(ctx, id); err != nil {
			return err
		}
		has, err := r.Purchase.SupplierHasOrders(ctx, id)
		if err != nil {
			return err
		}
		if has {
			return stateError("供应商存在采购订单，不能删除")
		}
		return r.Purchase.DeleteSupplier(ctx, id)
	})
	return translate(err, "供应商")
}

// ========== 采购订单 ==========

func (s *PurchaseService) ListOrders(ctx context.Context, p repository.ListParams) (*Page[entity.PurchaseOrder], error) {
	list, total, err := s.repos.Purchase.FindOrders(ctx, p)
	return listPage(list, total, err, p)
}

func (s *PurchaseService) GetOrder(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	po, err := s.repos.Purchase.FindOrder(ctx, id, false)
	return po, translate(err, "采购订单")
}

func buildPOItems(ctx context.Context, r *repository.Repositories, poID string, reqs []POItemRequest) ([]entity.PurchaseOrderItem, error) {
	items := make([]entity.PurchaseOrderItem, 0, len(reqs))
	for _, in := range reqs {
		if _, err := r.Product.FindByID(ctx, in.ProductID); err != nil {
			return nil, translate(err, "产品")
		}
		items = append(items, entity.PurchaseOrderItem{
			ID:         uuid.New().String(),
			POID:       poID,
			ProductID:  in.ProductID,
			Quantity:   in.Quantity,
			UnitPrice:  in.UnitPrice,
			TaxRate:    in.TaxRate,
			TotalPrice: workflow.LineTotal(workflow.Line{Quantity: in.Quantity, UnitPrice: in.UnitPrice}),
			Notes:      in.Notes,
		})
	}
	return items, nil
}

// applyPOSummary 采购订单不计折扣和运费
func applyPOSummary(po *entity.PurchaseOrder, items []entity.PurchaseOrderItem) {
	lines := make([]workflow.Line, len(items))
	for i, it := range items {
		lines[i] = workflow.Line{Quantity: it.Quantity, UnitPrice: it.UnitPrice, TaxRate: it.TaxRate}
	}
	sum := workflow.Summarize(lines, 0, 0)
	po.TotalAmount = sum.TotalAmount
	po.TaxAmount = sum.TaxAmount
	po.GrandTotal = sum.GrandTotal
}

func (s *PurchaseService) CreateOrder(ctx context.Context, userID string, req *CreatePORequest) (*entity.PurchaseOrder, error) {
	var poID string
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.Purchase.FindSupplier(ctx, req.SupplierID); err != nil {
			return translate(err, "供应商")
		}
		number, err := nextNumber(ctx, r, poNumbers, time.Now())
		if err != nil {
			return err
		}
		po := &entity.PurchaseOrder{
			ID:           uuid.New().String(),
			PONumber:     number,
			SupplierID:   req.SupplierID,
			Status:       entity.POStatusDraft,
			OrderDate:    req.OrderDate.Ptr(),
			ExpectedDate: req.ExpectedDate.Ptr(),
			Currency:     currencyOr(req.Currency),
			Notes:        req.Notes,
			CreatedBy:    userID,
		}
		if po.OrderDate == nil {
			po.OrderDate = today()
		}
		if po.Items, err = buildPOItems(ctx, r, po.ID, req.Items); err != nil {
			return err
		}
		applyPOSummary(po, po.Items)
		if err := r.Purchase.CreateOrder(ctx, po); err != nil {
			return err
		}
		poID = po.ID
		return nil
	})
	if err != nil {
		return nil, translate(err, "采购订单")
	}
	return s.GetOrder(ctx, poID)
}

// UpdateOrder 明细只能在草稿状态替换
func (s *PurchaseService) UpdateOrder(ctx context.Context, id string, req *UpdatePORequest) (*entity.PurchaseOrder, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		po, err := r.Purchase.FindOrder(ctx, id, true)
		if err != nil {
			return err
		}
		if req.Status != nil {
			if err := workflow.Validate(workflow.KindPurchaseOrder, *req.Status); err != nil {
				return err
			}
		}
		if err := workflow.EnsureMutable(workflow.KindPurchaseOrder, po.Status); err != nil {
			return err
		}
		if req.Items != nil {
			if po.Status != entity.POStatusDraft {
				return stateError("只有草稿状态的采购订单可以修改明细")
			}
			items, err := buildPOItems(ctx, r, po.ID, req.Items)
			if err != nil {
				return err
			}
			if err := r.Purchase.ReplaceItems(ctx, po.ID, items); err != nil {
				return err
			}
			applyPOSummary(po, items)
		}
		if req.Status != nil {
			if *req.Status == entity.POStatusCancelled && hasReceipts(po.Items) {
				return stateError("采购订单已收货，不能取消")
			}
			if err := workflow.Transition(workflow.KindPurchaseOrder, po.Status, *req.Status); err != nil {
				return err
			}
		}
		setS(&po.Status, req.Status)
		setDate(&po.OrderDate, req.OrderDate)
		setDate(&po.ExpectedDate, req.ExpectedDate)
		setS(&po.Notes, req.Notes)
		return r.Purchase.UpdateOrder(ctx, po)
	})
	if err != nil {
		return nil, translate(err, "采购订单")
	}
	return s.GetOrder(ctx, id)
}

func hasReceipts(items []entity.PurchaseOrderItem) bool {
	for _, it := range items {
		if it.ReceivedQuantity > 0 {
			return true
		}
	}
	return false
}

func (s *PurchaseService) DeleteOrder(ctx context.Context, id string) error {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		po, err := r.Purchase.FindOrder(ctx, id, true)
		if err != nil {
			return err
		}
		if po.Status != entity.POStatusDraft && po.Status != entity.POStatusCancelled {
			return stateError("只有草稿或已取消的采购订单可以删除")
		}
		return r.Purchase.DeleteOrder(ctx, id)
	})
	return translate(err, "采购订单")
}

// Receive 收货：累加已收数量，按行入库，全部收齐后订单变为已收货
func (s *PurchaseService) Receive(ctx context.Context, userID, id string, req *ReceiveRequest) (*entity.PurchaseOrder, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		po, err := r.Purchase.FindOrder(ctx, id, true)
		if err != nil {
			return err
		}
		if po.Status != entity.POStatusConfirmed && po.Status != entity.POStatusPartiallyReceived {
			return stateError("只有已确认或部分收货的采购订单可以收货")
		}

		byID := make(map[string]*entity.PurchaseOrderItem, len(po.Items))
		for i := range po.Items {
			byID[po.Items[i].ID] = &po.Items[i]
		}
		for _, line := range req.Items {
			item, ok := byID[line.ItemID]
			if !ok {
				return notFoundError("采购明细")
			}
			if item.ReceivedQuantity+line.Quantity > item.Quantity {
				return validationError("收货数量超出未收数量 %g", item.Quantity-item.ReceivedQuantity)
			}
			item.ReceivedQuantity += line.Quantity
			if err := r.Purchase.UpdateItem(ctx, item); err != nil {
				return err
			}
			_, err := s.inventory.post(ctx, r, userID, MovementRequest{
				MovementType:  entity.MovementTypeIn,
				WarehouseID:   req.WarehouseID,
				ProductID:     item.ProductID,
				Quantity:      line.Quantity,
				ReferenceType: "PO",
				ReferenceID:   po.PONumber,
				Notes:         req.Notes,
			})
			if err != nil {
				return err
			}
		}

		target := entity.POStatusReceived
		for _, it := range po.Items {
			if it.ReceivedQuantity < it.Quantity {
				target = entity.POStatusPartiallyReceived
				break
			}
		}
		if err := workflow.Transition(workflow.KindPurchaseOrder, po.Status, target); err != nil {
			return err
		}
		po.Status = target
		if err := r.Purchase.UpdateOrder(ctx, po); err != nil {
			return err
		}
		s.logger.Info("purchase order received", zap.String("po", po.PONumber), zap.String("status", target))
		return nil
	})
	if err != nil {
		return nil, translate(err, "采购订单")
	}
	return s.GetOrder(ctx, id)
}
