package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/bitfantasy/nimo-erp/internal/erp/workflow"
)

// 统计周期
const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

const lowStockLimit = 20

// DashboardService 首页统计
type DashboardService struct {
	base
	now func() time.Time
}

func NewDashboardService(b base) *DashboardService {
	return &DashboardService{base: b, now: time.Now}
}

type DashboardOverview struct {
	SalesOrders    int64   `json:"sales_orders"`
	SalesAmount    float64 `json:"sales_amount"`
	ProductsCount  int64   `json:"products_count"`
	CustomersCount int64   `json:"customers_count"`
}

type DashboardStats struct {
	Period          string    `json:"period"`
	From            time.Time `json:"from"`
	NewOrders       int64     `json:"new_orders"`
	Revenue         float64   `json:"revenue"`
	NewQuotations   int64     `json:"new_quotations"`
	NewCustomers    int64     `json:"new_customers"`
	PendingPayments float64   `json:"pending_payments"`
}

type SalesChart struct {
	Period string    `json:"period"`
	Labels []string  `json:"labels"`
	Data   []float64 `json:"data"`
}

type InventoryStatus struct {
	ProductsByCategory map[string]int64         `json:"products_by_category"`
	LowStockProducts   []repository.LowStockRow `json:"low_stock_products"`
}

// periodRange 返回周期起点与次日零点；周从周一开始
func periodRange(period string, now time.Time) (time.Time, time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := today.AddDate(0, 0, 1)
	switch period {
	case PeriodDay:
		return today, end, nil
	case PeriodWeek:
		offset := (int(today.Weekday()) + 6) % 7
		return today.AddDate(0, 0, -offset), end, nil
	case PeriodMonth:
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location()), end, nil
	case PeriodYear:
		return time.Date(today.Year(), 1, 1, 0, 0, 0, 0, today.Location()), end, nil
	}
	return time.Time{}, time.Time{}, validationError("period 必须是 day、week、month 或 year，当前为 %q", period)
}

// Overview 本月订单与全量计数
func (s *DashboardService) Overview(ctx context.Context) (*DashboardOverview, error) {
	from, to, _ := periodRange(PeriodMonth, s.now())
	d := s.repos.Dashboard
	var out DashboardOverview
	var err error
	if out.SalesOrders, err = d.CountOrders(ctx, from, to); err != nil {
		return nil, err
	}
	if out.SalesAmount, err = d.OrderRevenue(ctx, from, to); err != nil {
		return nil, err
	}
	if out.ProductsCount, err = d.CountProducts(ctx); err != nil {
		return nil, err
	}
	if out.CustomersCount, err = d.CountCustomers(ctx); err != nil {
		return nil, err
	}
	out.SalesAmount = workflow.Round2(out.SalesAmount)
	return &out, nil
}

// Stats 周期内新增单据与应收
func (s *DashboardService) Stats(ctx context.Context, period string) (*DashboardStats, error) {
	if period == "" {
		period = PeriodMonth
	}
	from, to, err := periodRange(period, s.now())
	if err != nil {
		return nil, err
	}
	d := s.repos.Dashboard
	out := DashboardStats{Period: period, From: from}
	if out.NewOrders, err = d.CountOrders(ctx, from, to); err != nil {
		return nil, err
	}
	if out.Revenue, err = d.OrderRevenue(ctx, from, to); err != nil {
		return nil, err
	}
	if out.NewQuotations, err = d.CountQuotations(ctx, from, to); err != nil {
		return nil, err
	}
	if out.NewCustomers, err = d.CountNewCustomers(ctx, from, to); err != nil {
		return nil, err
	}
	if out.PendingPayments, err = d.PendingReceivables(ctx, from, to); err != nil {
		return nil, err
	}
	out.Revenue = workflow.Round2(out.Revenue)
	out.PendingPayments = workflow.Round2(out.PendingPayments)
	return &out, nil
}

// SalesChart 周期内订单金额分桶：周按天，月按日，年按月；订单日期不含时刻，day 周期只有一个桶
func (s *DashboardService) SalesChart(ctx context.Context, period string) (*SalesChart, error) {
	if period == "" {
		period = PeriodMonth
	}
	now := s.now()
	from, to, err := periodRange(period, now)
	if err != nil {
		return nil, err
	}
	var labels []string
	switch period {
	case PeriodDay:
		labels = []string{from.Format("2006-01-02")}
	case PeriodWeek:
		labels = []string{"周一", "周二", "周三", "周四", "周五", "周六", "周日"}
	case PeriodMonth:
		days := from.AddDate(0, 1, -1).Day()
		for i := 1; i <= days; i++ {
			labels = append(labels, strconv.Itoa(i))
		}
	case PeriodYear:
		for i := 1; i <= 12; i++ {
			labels = append(labels, fmt.Sprintf("%d月", i))
		}
	}
	points, err := s.repos.Dashboard.OrderAmounts(ctx, from, to)
	if err != nil {
		return nil, err
	}
	data := make([]float64, len(labels))
	for _, p := range points {
		day := p.Day.In(now.Location())
		var i int
		switch period {
		case PeriodWeek:
			i = (int(day.Weekday()) + 6) % 7
		case PeriodMonth:
			i = day.Day() - 1
		case PeriodYear:
			i = int(day.Month()) - 1
		}
		if i >= 0 && i < len(data) {
			data[i] += p.Amount
		}
	}
	for i := range data {
		data[i] = workflow.Round2(data[i])
	}
	return &SalesChart{Period: period, Labels: labels, Data: data}, nil
}

// InventoryStatus 各类别产品数与低库存产品
func (s *DashboardService) InventoryStatus(ctx context.Context) (*InventoryStatus, error) {
	counts, err := s.repos.Dashboard.ProductsByCategory(ctx)
	if err != nil {
		return nil, err
	}
	byCategory := make(map[string]int64, len(entity.ProductCategories))
	for _, c := range entity.ProductCategories {
		byCategory[c] = counts[c]
	}
	low, err := s.repos.Dashboard.LowStock(ctx, lowStockLimit)
	if err != nil {
		return nil, err
	}
	if low == nil {
		low = []repository.LowStockRow{}
	}
	return &InventoryStatus{ProductsByCategory: byCategory, LowStockProducts: low}, nil
}
