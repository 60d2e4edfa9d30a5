package service

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-erp/internal/config"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/bitfantasy/nimo-erp/internal/erp/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services ERP 服务集合
type Services struct {
	Auth       *AuthService
	User       *UserService
	Customer   *CustomerService
	Quotation  *QuotationService
	SalesOrder *SalesOrderService
	Delivery   *DeliveryService
	Invoice    *InvoiceService
	Return     *ReturnService
	Product    *ProductService
	BOM        *BOMService
	Routing    *RoutingService
	Document   *DocumentService
	WorkOrder  *WorkOrderService
	Planning   *PlanningService
	Purchase   *PurchaseService
	Inventory  *InventoryService
	Dashboard  *DashboardService
}

func NewServices(repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *Services {
	b := base{repos: repos, db: repos.DB(), logger: logger}

	// 初始化MinIO客户端
	var objects storage.ObjectStorage
	if cfg.MinIO.Endpoint != "" {
		client, err := storage.NewMinIO(cfg.MinIO)
		if err != nil {
			logger.Warn("MinIO init failed, document upload disabled", zap.Error(err))
		} else {
			objects = client
		}
	}

	// 刷新令牌存储：优先Redis
	var sessions RefreshStore
	if rdb != nil {
		sessions = NewRedisRefreshStore(rdb)
	} else {
		sessions = NewDBRefreshStore(repos.User)
	}

	inventory := NewInventoryService(b)
	return &Services{
		Auth:       NewAuthService(b, sessions, cfg),
		User:       NewUserService(b, cfg.Auth.BcryptCost),
		Customer:   NewCustomerService(b),
		Quotation:  NewQuotationService(b),
		SalesOrder: NewSalesOrderService(b),
		Delivery:   NewDeliveryService(b),
		Invoice:    NewInvoiceService(b),
		Return:     NewReturnService(b),
		Product:    NewProductService(b),
		BOM:        NewBOMService(b),
		Routing:    NewRoutingService(b),
		Document:   NewDocumentService(b, objects),
		WorkOrder:  NewWorkOrderService(b),
		Planning:   NewPlanningService(b),
		Purchase:   NewPurchaseService(b, inventory),
		Inventory:  inventory,
		Dashboard:  NewDashboardService(b),
	}
}

// base 各服务共享的依赖
type base struct {
	repos  *repository.Repositories
	db     *gorm.DB
	logger *zap.Logger
}

const maxTxAttempts = 3

// inTx 在事务内执行 fn，唯一键冲突（通常是并发生成了相同编号）时整体重试。
// fn 可能被调用多次，需要在内部构造待写入的记录。
func (b base) inTx(ctx context.Context, fn func(r *repository.Repositories) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(b.repos.WithTx(tx))
		})
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		b.logger.Warn("duplicate key in transaction, retrying", zap.Int("attempt", attempt), zap.Error(err))
	}
	return err
}
