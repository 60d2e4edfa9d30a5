package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/bitfantasy/nimo-erp/internal/erp/workflow"
)

// Date 请求中的日期，接受 2006-01-02 或 RFC3339
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("无法解析日期 %q", s)
}

// Ptr 转换为实体字段使用的指针，零值返回 nil
func (d *Date) Ptr() *time.Time {
	if d == nil || d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// Page 分页结果
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

// NewPage 组装分页结果
func NewPage[T any](items []T, total int64, p repository.ListParams) *Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if p.PageSize > 0 {
		pages = int((total + int64(p.PageSize) - 1) / int64(p.PageSize))
	}
	return &Page[T]{
		Items:      items,
		Total:      total,
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalPages: pages,
		HasNext:    p.Page < pages,
		HasPrev:    p.Page > 1,
	}
}

func listPage[T any](items []T, total int64, err error, p repository.ListParams) (*Page[T], error) {
	if err != nil {
		return nil, err
	}
	return NewPage(items, total, p), nil
}

// LineInput 明细行的金额字段
type LineInput struct {
	Quantity        float64 `json:"quantity" binding:"gt=0"`
	UnitPrice       float64 `json:"unit_price" binding:"gte=0"`
	TaxRate         float64 `json:"tax_rate" binding:"gte=0,lte=100"`
	DiscountPercent float64 `json:"discount_percent" binding:"gte=0,lte=100"`
}

func (l LineInput) line() workflow.Line {
	return workflow.Line{Quantity: l.Quantity, UnitPrice: l.UnitPrice, TaxRate: l.TaxRate, DiscountPercent: l.DiscountPercent}
}

// LinePatch 明细行金额字段的部分更新
type LinePatch struct {
	Quantity        *float64 `json:"quantity" binding:"omitempty,gt=0"`
	UnitPrice       *float64 `json:"unit_price" binding:"omitempty,gte=0"`
	TaxRate         *float64 `json:"tax_rate" binding:"omitempty,gte=0,lte=100"`
	DiscountPercent *float64 `json:"discount_percent" binding:"omitempty,gte=0,lte=100"`
}

func (p LinePatch) apply(l *workflow.Line) {
	setF(&l.Quantity, p.Quantity)
	setF(&l.UnitPrice, p.UnitPrice)
	setF(&l.TaxRate, p.TaxRate)
	setF(&l.DiscountPercent, p.DiscountPercent)
}

func setS(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setF(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setB(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setI(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDate(dst **time.Time, v *Date) {
	if v != nil {
		*dst = v.Ptr()
	}
}

// setRef 可选引用字段，空字符串表示清空
func setRef(dst **string, v *string) {
	if v == nil {
		return
	}
	if *v == "" {
		*dst = nil
		return
	}
	s := *v
	*dst = &s
}

func ref(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func today() *time.Time {
	now := time.Now()
	t := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return &t
}

// normRef 空字符串引用视为未设置
func normRef(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
