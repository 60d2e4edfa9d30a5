package service

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InventoryService 仓库、库存与库存移动
type InventoryService struct {
	base
}

func NewInventoryService(b base) *InventoryService {
	return &InventoryService{base: b}
}

type WarehouseRequest struct {
	Code     string `json:"code" binding:"required,max=50"`
	Name     string `json:"name" binding:"required,max=200"`
	Address  string `json:"address" binding:"max=500"`
	Manager  string `json:"manager" binding:"max=100"`
	IsActive *bool  `json:"is_active"`
}

type WarehousePatch struct {
	Code     *string `json:"code" binding:"omitempty,max=50"`
	Name     *string `json:"name" binding:"omitempty,max=200"`
	Address  *string `json:"address" binding:"omitempty,max=500"`
	Manager  *string `json:"manager" binding:"omitempty,max=100"`
	IsActive *bool   `json:"is_active"`
}

// MovementRequest 库存移动；adjust 时 Quantity 为调整后的库存
type MovementRequest struct {
	MovementType  string  `json:"movement_type" binding:"required,oneof=in out adjust"`
	WarehouseID   string  `json:"warehouse_id" binding:"required"`
	ProductID     string  `json:"product_id" binding:"required"`
	Quantity      float64 `json:"quantity" binding:"gte=0"`
	ReferenceType string  `json:"reference_type" binding:"max=50"`
	ReferenceID   string  `json:"reference_id" binding:"max=64"`
	Notes         string  `json:"notes"`
}

// ========== 仓库 ==========

func (s *InventoryService) ListWarehouses(ctx context.Context, p repository.ListParams) (*Page[entity.Warehouse], error) {
	list, total, err := s.repos.Inventory.FindWarehouses(ctx, p)
	return listPage(list, total, err, p)
}

func (s *InventoryService) GetWarehouse(ctx context.Context, id string) (*entity.Warehouse, error) {
	wh, err := s.repos.Inventory.FindWarehouse(ctx, id)
	return wh, translate(err, "仓库")
}

func (s *InventoryService) CreateWarehouse(ctx context.Context, req *WarehouseRequest) (*entity.Warehouse, error) {
	wh := &entity.Warehouse{
		ID:       uuid.New().String(),
		Code:     req.Code,
		Name:     req.Name,
		Address:  req.Address,
		Manager:  req.Manager,
		IsActive: boolOr(req.IsActive, true),
	}
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		taken, err := r.Inventory.WarehouseCodeTaken(ctx, wh.Code, "")
		if err != nil {
			return err
		}
		if taken {
			return conflictError("仓库编码 %s 已存在", wh.Code)
		}
		return r.Inventory.SaveWarehouse(ctx, wh)
	})
	if err != nil {
		return nil, translate(err, "仓库")
	}
	return wh, nil
}

func (s *InventoryService) UpdateWarehouse(ctx context.Context, id string, req *WarehousePatch) (*entity.Warehouse, error) {
	var wh *entity.Warehouse
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		var err error
		if wh, err = r.Inventory.FindWarehouse(ctx, id); err != nil {
			return err
		}
		if req.Code != nil && *req.Code != wh.Code {
			taken, err := r.Inventory.WarehouseCodeTaken(ctx, *req.Code, id)
			if err != nil {
				return err
			}
			if taken {
				return conflictError("仓库编码 %s 已存在", *req.Code)
			}
		}
		setS(&wh.Code, req.Code)
		setS(&wh.Name, req.Name)
		setS(&wh.Address, req.Address)
		setS(&wh.Manager, req.Manager)
		setB(&wh.IsActive, req.IsActive)
		return r.Inventory.SaveWarehouse(ctx, wh)
	})
	if err != nil {
		return nil, translate(err, "仓库")
	}
	return wh, nil
}

// DeleteWarehouse 有库存或移动记录的仓库不能删除
func (s *InventoryService) DeleteWarehouse(ctx context.Context, id string) error {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.Inventory.FindWarehouse(ctx, id); err != nil {
			return err
		}
		inUse, err := r.Inventory.WarehouseInUse(ctx, id)
		if err != nil {
			return err
		}
		if inUse {
			return stateError("仓库存在库存或移动记录，不能删除")
		}
		return r.Inventory.DeleteWarehouse(ctx, id)
	})
	return translate(err, "仓库")
}

// ========== 库存 ==========

func (s *InventoryService) ListInventory(ctx context.Context, p repository.ListParams, warehouseID string) (*Page[entity.Inventory], error) {
	list, total, err := s.repos.Inventory.FindInventory(ctx, p, warehouseID)
	return listPage(list, total, err, p)
}

func (s *InventoryService) ListMovements(ctx context.Context, p repository.ListParams, warehouseID, movementType string) (*Page[entity.StockMovement], error) {
	list, total, err := s.repos.Inventory.FindMovements(ctx, p, warehouseID, movementType)
	return listPage(list, total, err, p)
}

func (s *InventoryService) CreateMovement(ctx context.Context, userID string, req *MovementRequest) (*entity.StockMovement, error) {
	var m *entity.StockMovement
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		var err error
		m, err = s.post(ctx, r, userID, *req)
		return err
	})
	if err != nil {
		return nil, translate(err, "库存移动")
	}
	s.logger.Info("stock movement posted",
		zap.String("number", m.MovementNumber),
		zap.String("type", m.MovementType),
		zap.Float64("balance", m.BalanceAfter))
	return m, nil
}

// post 在调用方事务内记一笔库存移动并回写库存行
func (s *InventoryService) post(ctx context.Context, r *repository.Repositories, userID string, req MovementRequest) (*entity.StockMovement, error) {
	if _, err := r.Inventory.FindWarehouse(ctx, req.WarehouseID); err != nil {
		return nil, translate(err, "仓库")
	}
	if _, err := r.Product.FindByID(ctx, req.ProductID); err != nil {
		return nil, translate(err, "产品")
	}
	if req.MovementType != entity.MovementTypeAdjust && req.Quantity <= 0 {
		return nil, validationError("数量必须大于0")
	}

	inv, err := r.Inventory.LockInventory(ctx, req.WarehouseID, req.ProductID)
	if err != nil {
		return nil, err
	}
	switch req.MovementType {
	case entity.MovementTypeIn:
		inv.Quantity += req.Quantity
	case entity.MovementTypeOut:
		if req.Quantity > inv.AvailableQuantity {
			return nil, stateError("可用库存不足：可用 %g，出库 %g", inv.AvailableQuantity, req.Quantity)
		}
		inv.Quantity -= req.Quantity
	case entity.MovementTypeAdjust:
		if req.Quantity < inv.ReservedQuantity {
			return nil, stateError("调整后库存不能低于预留数量 %g", inv.ReservedQuantity)
		}
		inv.Quantity = req.Quantity
	default:
		return nil, validationError("未知的移动类型: %s", req.MovementType)
	}
	inv.AvailableQuantity = inv.Quantity - inv.ReservedQuantity
	if err := r.Inventory.SaveInventory(ctx, inv); err != nil {
		return nil, err
	}

	number, err := nextNumber(ctx, r, movementNumbers, time.Now())
	if err != nil {
		return nil, err
	}
	m := &entity.StockMovement{
		ID:             uuid.New().String(),
		MovementNumber: number,
		MovementType:   req.MovementType,
		WarehouseID:    req.WarehouseID,
		ProductID:      req.ProductID,
		Quantity:       req.Quantity,
		BalanceAfter:   inv.Quantity,
		ReferenceType:  req.ReferenceType,
		ReferenceID:    req.ReferenceID,
		Notes:          req.Notes,
		CreatedBy:      userID,
	}
	if m.ReferenceType == "" {
		m.ReferenceType = "MANUAL"
	}
	if err := r.Inventory.CreateMovement(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

