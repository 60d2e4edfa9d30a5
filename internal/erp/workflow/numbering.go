package workflow

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// 单据编号前缀
const (
	PrefixQuotation     = "QT"
	PrefixOrder         = "SO"
	PrefixInvoice       = "INV"
	PrefixPayment       = "PAY"
	PrefixDelivery      = "DN"
	PrefixReturn        = "RT"
	PrefixPlan          = "PP"
	PrefixMRP           = "MRP"
	PrefixWorkOrder     = "WO"
	PrefixPurchaseOrder = "PO"
	PrefixStockMovement = "SM"
)

const dayLayout = "20060102"

// DayKey 编号中的日期段
func DayKey(t time.Time) string {
	return t.Format(dayLayout)
}

// DayPrefix 某天编号的公共前缀，如 SO-20240115-
func DayPrefix(prefix, day string) string {
	return prefix + "-" + day + "-"
}

// FormatNumber 生成 PREFIX-YYYYMMDD-NNN
func FormatNumber(prefix, day string, seq int) string {
	return fmt.Sprintf("%s%03d", DayPrefix(prefix, day), seq)
}

// ParseSequence 解析编号的序号段，前缀或日期不匹配时返回 false
func ParseSequence(number, prefix, day string) (int, bool) {
	head := DayPrefix(prefix, day)
	if !strings.HasPrefix(number, head) {
		return 0, false
	}
	seq, err := strconv.Atoi(strings.TrimPrefix(number, head))
	if err != nil || seq < 0 {
		return 0, false
	}
	return seq, true
}
