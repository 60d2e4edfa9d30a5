package workflow

import "math"

// Line 参与金额汇总的明细行
type Line struct {
	Quantity        float64
	UnitPrice       float64
	TaxRate         float64 // 百分比
	DiscountPercent float64 // 百分比
}

// Summary 单据头金额
type Summary struct {
	TotalAmount    float64
	TaxAmount      float64
	DiscountAmount float64
	ShippingAmount float64
	GrandTotal     float64
}

// Round2 保留两位小数
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// LineTotal 行金额 = 数量 × 单价 × (1 - 折扣率)
func LineTotal(l Line) float64 {
	return Round2(l.Quantity * l.UnitPrice * (1 - l.DiscountPercent/100))
}

// LineTax 行税额，基于已舍入的行金额
func LineTax(l Line) float64 {
	return LineTotal(l) * l.TaxRate / 100
}

// Summarize 由全部明细重新计算单据头金额
func Summarize(lines []Line, discount, shipping float64) Summary {
	var total, tax float64
	for _, l := range lines {
		total += LineTotal(l)
		tax += LineTax(l)
	}
	s := Summary{
		TotalAmount:    Round2(total),
		TaxAmount:      Round2(tax),
		DiscountAmount: Round2(discount),
		ShippingAmount: Round2(shipping),
	}
	s.GrandTotal = Round2(s.TotalAmount + s.TaxAmount - s.DiscountAmount + s.ShippingAmount)
	return s
}

// PendingQuantity 待发数量 = max(0, 数量 - 已发数量)
func PendingQuantity(quantity, delivered float64) float64 {
	if p := quantity - delivered; p > 0 {
		return p
	}
	return 0
}
