package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/xuri/excelize/v2"
)

// sheetWriter 逐行写入一个工作表
type sheetWriter struct {
	f     *excelize.File
	sheet string
	row   int
}

// newSheet 写入加粗表头并设置列宽
func newSheet(f *excelize.File, sheet string, headers []string, widths []float64) (*sheetWriter, error) {
	if idx, _ := f.GetSheetIndex(sheet); idx < 0 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	boldStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, err
	}
	w := &sheetWriter{f: f, sheet: sheet, row: 1}
	if err := w.append(toCells(headers)...); err != nil {
		return nil, err
	}
	last, _ := excelize.ColumnNumberToName(len(headers))
	if err := f.SetCellStyle(sheet, "A1", last+"1", boldStyle); err != nil {
		return nil, err
	}
	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return nil, err
		}
	}
	return w, nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}

func (w *sheetWriter) append(values ...interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, w.row)
	if err != nil {
		return err
	}
	if err := w.f.SetSheetRow(w.sheet, cell, &values); err != nil {
		return err
	}
	w.row++
	return nil
}

// summary 追加加粗汇总行
func (w *sheetWriter) summary(values ...interface{}) error {
	row := w.row
	if err := w.append(values...); err != nil {
		return err
	}
	style, err := w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, _ := excelize.ColumnNumberToName(len(values))
	return w.f.SetCellStyle(w.sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", last, row), style)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

var orderExportHeaders = []string{
	"订单编号", "客户编码", "客户名称", "状态", "订单日期", "交货日期",
	"金额", "税额", "折扣", "运费", "合计", "币种",
}

var orderItemExportHeaders = []string{
	"订单编号", "行号", "描述", "数量", "单位", "单价", "税率%", "折扣%", "金额", "已发货", "待发货",
}

// Export 按列表条件导出销售订单为xlsx，第一个工作表为订单，第二个为明细
func (s *SalesOrderService) Export(ctx context.Context, p repository.ListParams) (*excelize.File, string, error) {
	orders, err := s.repos.SalesOrder.FindForExport(ctx, p)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	f.SetSheetName("Sheet1", "订单")
	head, err := newSheet(f, "订单", orderExportHeaders, []float64{20, 12, 24, 16, 12, 12, 12, 10, 10, 10, 12, 8})
	if err != nil {
		f.Close()
		return nil, "", err
	}
	lines, err := newSheet(f, "明细", orderItemExportHeaders, []float64{20, 6, 30, 10, 8, 10, 8, 8, 12, 10, 10})
	if err != nil {
		f.Close()
		return nil, "", err
	}

	var grand float64
	for _, o := range orders {
		code, name := "", ""
		if o.Customer != nil {
			code, name = o.Customer.Code, o.Customer.Name
		}
		if err := head.append(o.OrderNumber, code, name, o.Status, formatDate(o.OrderDate), formatDate(o.ExpectedDeliveryDate),
			o.TotalAmount, o.TaxAmount, o.DiscountAmount, o.ShippingAmount, o.GrandTotal, o.Currency); err != nil {
			f.Close()
			return nil, "", err
		}
		grand += o.GrandTotal
		for _, it := range o.Items {
			if err := lines.append(o.OrderNumber, it.LineNo, it.Description, it.Quantity, it.Unit, it.UnitPrice,
				it.TaxRate, it.DiscountPercent, it.TotalPrice, it.DeliveredQuantity, it.PendingQuantity); err != nil {
				f.Close()
				return nil, "", err
			}
		}
	}
	if err := head.summary("汇总", "", fmt.Sprintf("订单数: %d", len(orders)), "", "", "", "", "", "", "", grand); err != nil {
		f.Close()
		return nil, "", err
	}

	filename := fmt.Sprintf("SalesOrders_%s.xlsx", time.Now().Format("20060102150405"))
	return f, filename, nil
}
