// Package workflow 单据工作流规则：状态机、编号格式、金额汇总与BOM展开。
// 该包不依赖数据库，业务服务在写库之前调用。
package workflow

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
)

// Kind 单据类型
type Kind string

const (
	KindQuotation     Kind = "quotation"
	KindOrder         Kind = "order"
	KindInvoice       Kind = "invoice"
	KindDelivery      Kind = "delivery"
	KindPlan          Kind = "plan"
	KindMRP           Kind = "mrp"
	KindReturn        Kind = "return"
	KindPayment       Kind = "payment"
	KindRoute         Kind = "route"
	KindWorkOrder     Kind = "work_order"
	KindPurchaseOrder Kind = "purchase_order"
)

var (
	// ErrUnknownStatus 状态值不在枚举内
	ErrUnknownStatus = errors.New("未知状态")
	// ErrIllegalTransition 当前状态不允许变更为目标状态
	ErrIllegalTransition = errors.New("非法状态变更")
	// ErrTerminal 终态单据不允许任何修改
	ErrTerminal = errors.New("单据已处于终态")
)

var planEdges = map[string][]string{
	entity.PlanStatusDraft:      {entity.PlanStatusConfirmed, entity.PlanStatusCancelled},
	entity.PlanStatusConfirmed:  {entity.PlanStatusInProgress, entity.PlanStatusDraft, entity.PlanStatusCancelled},
	entity.PlanStatusInProgress: {entity.PlanStatusCompleted, entity.PlanStatusCancelled},
	entity.PlanStatusCompleted:  {},
	entity.PlanStatusCancelled:  {},
}

// transitions 单据类型 → 当前状态 → 允许的下一状态。没有出边的状态为终态。
var transitions = map[Kind]map[string][]string{
	KindQuotation: {
		entity.QuotationStatusDraft:     {entity.QuotationStatusSent, entity.QuotationStatusRejected, entity.QuotationStatusExpired},
		entity.QuotationStatusSent:      {entity.QuotationStatusApproved, entity.QuotationStatusRejected, entity.QuotationStatusExpired, entity.QuotationStatusDraft, entity.QuotationStatusConverted},
		entity.QuotationStatusApproved:  {entity.QuotationStatusConverted, entity.QuotationStatusExpired, entity.QuotationStatusRejected},
		entity.QuotationStatusRejected:  {entity.QuotationStatusDraft},
		entity.QuotationStatusExpired:   {entity.QuotationStatusDraft},
		entity.QuotationStatusConverted: {},
	},
	KindOrder: {
		entity.SOStatusDraft:            {entity.SOStatusConfirmed, entity.SOStatusCancelled},
		entity.SOStatusConfirmed:        {entity.SOStatusInProduction, entity.SOStatusReadyForShipment, entity.SOStatusPartiallyShipped, entity.SOStatusShipped, entity.SOStatusCancelled},
		entity.SOStatusInProduction:     {entity.SOStatusReadyForShipment, entity.SOStatusPartiallyShipped, entity.SOStatusShipped, entity.SOStatusCancelled},
		entity.SOStatusReadyForShipment: {entity.SOStatusPartiallyShipped, entity.SOStatusShipped, entity.SOStatusCancelled},
		entity.SOStatusPartiallyShipped: {entity.SOStatusShipped, entity.SOStatusDelivered},
		entity.SOStatusShipped:          {entity.SOStatusDelivered},
		entity.SOStatusDelivered:        {entity.SOStatusCompleted},
		entity.SOStatusCompleted:        {},
		entity.SOStatusCancelled:        {},
	},
	KindInvoice: {
		entity.InvoiceStatusDraft:         {entity.InvoiceStatusSent, entity.InvoiceStatusCancelled},
		entity.InvoiceStatusSent:          {entity.InvoiceStatusPartiallyPaid, entity.InvoiceStatusPaid, entity.InvoiceStatusOverdue, entity.InvoiceStatusCancelled},
		entity.InvoiceStatusPartiallyPaid: {entity.InvoiceStatusPaid, entity.InvoiceStatusOverdue, entity.InvoiceStatusSent},
		entity.InvoiceStatusOverdue:       {entity.InvoiceStatusPartiallyPaid, entity.InvoiceStatusPaid, entity.InvoiceStatusCancelled},
		entity.InvoiceStatusPaid:          {entity.InvoiceStatusPartiallyPaid, entity.InvoiceStatusSent},
		entity.InvoiceStatusCancelled:     {},
	},
	KindDelivery: {
		entity.DeliveryStatusPending:    {entity.DeliveryStatusProcessing, entity.DeliveryStatusShipped, entity.DeliveryStatusCancelled},
		entity.DeliveryStatusProcessing: {entity.DeliveryStatusShipped, entity.DeliveryStatusCancelled},
		entity.DeliveryStatusShipped:    {entity.DeliveryStatusDelivered, entity.DeliveryStatusReturned},
		entity.DeliveryStatusDelivered:  {entity.DeliveryStatusReturned},
		entity.DeliveryStatusReturned:   {},
		entity.DeliveryStatusCancelled:  {},
	},
	KindPlan: planEdges,
	KindMRP:  planEdges,
	KindReturn: {
		entity.ReturnStatusPending:   {entity.ReturnStatusApproved, entity.ReturnStatusRejected},
		entity.ReturnStatusApproved:  {entity.ReturnStatusCompleted},
		entity.ReturnStatusRejected:  {},
		entity.ReturnStatusCompleted: {},
	},
	KindPayment: {
		entity.PaymentStatusConfirmed: {entity.PaymentStatusVoided},
		entity.PaymentStatusVoided:    {},
	},
	KindRoute: {
		entity.RouteStatusDraft:    {entity.RouteStatusActive},
		entity.RouteStatusActive:   {entity.RouteStatusInactive},
		entity.RouteStatusInactive: {entity.RouteStatusActive},
	},
	KindWorkOrder: {
		entity.WOStatusPlanned:    {entity.WOStatusReleased, entity.WOStatusCancelled},
		entity.WOStatusReleased:   {entity.WOStatusInProgress, entity.WOStatusCancelled},
		entity.WOStatusInProgress: {entity.WOStatusCompleted},
		entity.WOStatusCompleted:  {},
		entity.WOStatusCancelled:  {},
	},
	KindPurchaseOrder: {
		entity.POStatusDraft:             {entity.POStatusConfirmed, entity.POStatusCancelled},
		entity.POStatusConfirmed:         {entity.POStatusPartiallyReceived, entity.POStatusReceived, entity.POStatusCancelled},
		entity.POStatusPartiallyReceived: {entity.POStatusReceived},
		entity.POStatusReceived:          {},
		entity.POStatusCancelled:         {},
	},
}

// States 返回单据类型的全部状态（字典序）
func States(kind Kind) []string {
	edges := transitions[kind]
	states := make([]string, 0, len(edges))
	for s := range edges {
		states = append(states, s)
	}
	sort.Strings(states)
	return states
}

// Validate 校验状态值属于该单据类型的枚举
func Validate(kind Kind, status string) error {
	if _, ok := transitions[kind][status]; !ok {
		return fmt.Errorf("%w: %s 不支持状态 %q", ErrUnknownStatus, kind, status)
	}
	return nil
}

// IsTerminal 终态判断
func IsTerminal(kind Kind, status string) bool {
	next, ok := transitions[kind][status]
	return ok && len(next) == 0
}

// CanTransition 是否允许 from → to
func CanTransition(kind Kind, from, to string) bool {
	for _, s := range transitions[kind][from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition 校验状态变更。目标与当前相同视为无变化。
func Transition(kind Kind, from, to string) error {
	if err := Validate(kind, to); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	if IsTerminal(kind, from) {
		return fmt.Errorf("%w: 当前状态为 %s，不允许变更为 %s", ErrTerminal, from, to)
	}
	if !CanTransition(kind, from, to) {
		return fmt.Errorf("%w: 当前状态为 %s，不允许变更为 %s", ErrIllegalTransition, from, to)
	}
	return nil
}

// EnsureMutable 终态单据禁止修改字段或明细
func EnsureMutable(kind Kind, status string) error {
	if IsTerminal(kind, status) {
		return fmt.Errorf("%w: 当前状态为 %s，不允许修改", ErrTerminal, status)
	}
	return nil
}
