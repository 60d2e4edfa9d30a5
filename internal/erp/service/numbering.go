package service

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/bitfantasy/nimo-erp/internal/erp/workflow"
)

// numberSource 编号前缀及其所在表列，用于首次使用时初始化计数器
type numberSource struct {
	prefix string
	table  string
	column string
}

var (
	quotationNumbers = numberSource{workflow.PrefixQuotation, "erp_quotations", "quotation_number"}
	orderNumbers     = numberSource{workflow.PrefixOrder, "erp_sales_orders", "order_number"}
	invoiceNumbers   = numberSource{workflow.PrefixInvoice, "erp_sales_invoices", "invoice_number"}
	paymentNumbers   = numberSource{workflow.PrefixPayment, "erp_sales_payments", "payment_number"}
	deliveryNumbers  = numberSource{workflow.PrefixDelivery, "erp_sales_deliveries", "delivery_number"}
	returnNumbers    = numberSource{workflow.PrefixReturn, "erp_sales_returns", "return_number"}
	planNumbers      = numberSource{workflow.PrefixPlan, "erp_production_plans", "plan_number"}
	mrpNumbers       = numberSource{workflow.PrefixMRP, "erp_material_requirement_plans", "mrp_number"}
	workOrderNumbers = numberSource{workflow.PrefixWorkOrder, "erp_work_orders", "work_order_number"}
	poNumbers        = numberSource{workflow.PrefixPurchaseOrder, "erp_purchase_orders", "po_number"}
	movementNumbers  = numberSource{workflow.PrefixStockMovement, "erp_stock_movements", "movement_number"}
)

// nextNumber 在当前事务内生成下一个单据编号
func nextNumber(ctx context.Context, r *repository.Repositories, src numberSource, now time.Time) (string, error) {
	day := workflow.DayKey(now)
	seq, err := r.Sequence.Next(ctx, src.prefix, day, func() (int, error) {
		numbers, err := r.Sequence.NumbersWithPrefix(ctx, src.table, src.column, workflow.DayPrefix(src.prefix, day))
		if err != nil {
			return 0, err
		}
		last := 0
		for _, n := range numbers {
			if seq, ok := workflow.ParseSequence(n, src.prefix, day); ok && seq > last {
				last = seq
			}
		}
		return last, nil
	})
	if err != nil {
		return "", err
	}
	return workflow.FormatNumber(src.prefix, day, seq), nil
}
