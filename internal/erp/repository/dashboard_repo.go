package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"gorm.io/gorm"
)

// DashboardRepository 首页统计的聚合查询，时间区间为 [from, to)
type DashboardRepository struct {
	db *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// LowStockRow 低于再订货点的产品
type LowStockRow struct {
	ProductID    string  `json:"product_id"`
	Code         string  `json:"code"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	ReorderLevel float64 `json:"reorder_level"`
	OnHand       float64 `json:"on_hand"`
}

// SalesPoint 按日期汇总的订单金额
type SalesPoint struct {
	Day    time.Time
	Amount float64
}

func (r *DashboardRepository) count(ctx context.Context, model interface{}, where string, args ...interface{}) (int64, error) {
	var n int64
	query := r.db.WithContext(ctx).Model(model)
	if where != "" {
		query = query.Where(where, args...)
	}
	err := query.Count(&n).Error
	return n, err
}

func (r *DashboardRepository) sum(ctx context.Context, model interface{}, column, where string, args ...interface{}) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).Model(model).
		Select("COALESCE(SUM("+column+"), 0)").
		Where(where, args...).
		Scan(&total).Error
	return total, err
}

// CountOrders 区间内下单的销售订单数
func (r *DashboardRepository) CountOrders(ctx context.Context, from, to time.Time) (int64, error) {
	return r.count(ctx, &entity.SalesOrder{}, "order_date >= ? AND order_date < ?", from, to)
}

// OrderRevenue 区间内未取消订单的含税总额
func (r *DashboardRepository) OrderRevenue(ctx context.Context, from, to time.Time) (float64, error) {
	return r.sum(ctx, &entity.SalesOrder{}, "grand_total",
		"order_date >= ? AND order_date < ? AND status <> ?", from, to, entity.SOStatusCancelled)
}

func (r *DashboardRepository) CountQuotations(ctx context.Context, from, to time.Time) (int64, error) {
	return r.count(ctx, &entity.Quotation{}, "quotation_date >= ? AND quotation_date < ?", from, to)
}

func (r *DashboardRepository) CountNewCustomers(ctx context.Context, from, to time.Time) (int64, error) {
	return r.count(ctx, &entity.Customer{}, "created_at >= ? AND created_at < ?", from, to)
}

// PendingReceivables 区间内开具、已发送未收款发票的应收余额
func (r *DashboardRepository) PendingReceivables(ctx context.Context, from, to time.Time) (float64, error) {
	return r.sum(ctx, &entity.SalesInvoice{}, "amount_due",
		"status = ? AND invoice_date >= ? AND invoice_date < ?", entity.InvoiceStatusSent, from, to)
}

func (r *DashboardRepository) CountProducts(ctx context.Context) (int64, error) {
	return r.count(ctx, &entity.Product{}, "")
}

func (r *DashboardRepository) CountCustomers(ctx context.Context) (int64, error) {
	return r.count(ctx, &entity.Customer{}, "")
}

// ProductsByCategory 各类别产品数
func (r *DashboardRepository) ProductsByCategory(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Category string
		N        int64
	}
	err := r.db.WithContext(ctx).Model(&entity.Product{}).
		Select("category, COUNT(*) AS n").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	result := make(map[string]int64, len(rows))
	for _, row := range rows {
		result[row.Category] = row.N
	}
	return result, nil
}

// LowStock 设置了再订货点且全部仓库库存合计低于该值的产品
func (r *DashboardRepository) LowStock(ctx context.Context, limit int) ([]LowStockRow, error) {
	var rows []LowStockRow
	err := r.db.WithContext(ctx).Model(&entity.Product{}).
		Select("erp_products.id AS product_id, erp_products.code, erp_products.name, erp_products.category, "+
			"erp_products.reorder_level, COALESCE(SUM(erp_inventory.quantity), 0) AS on_hand").
		Joins("LEFT JOIN erp_inventory ON erp_inventory.product_id = erp_products.id").
		Where("erp_products.is_active = ? AND erp_products.reorder_level > 0", true).
		Group("erp_products.id, erp_products.code, erp_products.name, erp_products.category, erp_products.reorder_level").
		Having("COALESCE(SUM(erp_inventory.quantity), 0) < erp_products.reorder_level").
		Order("erp_products.code").
		Limit(limit).
		Scan(&rows).Error
	return rows, err
}

// OrderAmounts 区间内未取消订单的下单日期与金额，由调用方分桶
func (r *DashboardRepository) OrderAmounts(ctx context.Context, from, to time.Time) ([]SalesPoint, error) {
	var rows []struct {
		OrderDate  time.Time
		GrandTotal float64
	}
	err := r.db.WithContext(ctx).Model(&entity.SalesOrder{}).
		Select("order_date, grand_total").
		Where("order_date >= ? AND order_date < ? AND status <> ?", from, to, entity.SOStatusCancelled).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	points := make([]SalesPoint, len(rows))
	for i, row := range rows {
		points[i] = SalesPoint{Day: row.OrderDate, Amount: row.GrandTotal}
	}
	return points, nil
}
