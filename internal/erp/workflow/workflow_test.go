package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		from    string
		to      string
		wantErr error
	}{
		{"quotation draft to sent", KindQuotation, entity.QuotationStatusDraft, entity.QuotationStatusSent, nil},
		{"quotation approved to converted", KindQuotation, entity.QuotationStatusApproved, entity.QuotationStatusConverted, nil},
		{"quotation converted is frozen", KindQuotation, entity.QuotationStatusConverted, entity.QuotationStatusDraft, ErrTerminal},
		{"quotation draft cannot convert", KindQuotation, entity.QuotationStatusDraft, entity.QuotationStatusConverted, ErrIllegalTransition},
		{"order unknown status", KindOrder, entity.SOStatusDraft, "bogus", ErrUnknownStatus},
		{"order draft to confirmed", KindOrder, entity.SOStatusDraft, entity.SOStatusConfirmed, nil},
		{"order draft cannot ship", KindOrder, entity.SOStatusDraft, entity.SOStatusShipped, ErrIllegalTransition},
		{"order completed is frozen", KindOrder, entity.SOStatusCompleted, entity.SOStatusDelivered, ErrTerminal},
		{"order same status is no-op", KindOrder, entity.SOStatusPartiallyShipped, entity.SOStatusPartiallyShipped, nil},
		{"invoice paid can be reopened", KindInvoice, entity.InvoiceStatusPaid, entity.InvoiceStatusPartiallyPaid, nil},
		{"invoice cancelled is frozen", KindInvoice, entity.InvoiceStatusCancelled, entity.InvoiceStatusSent, ErrTerminal},
		{"delivery shipped to delivered", KindDelivery, entity.DeliveryStatusShipped, entity.DeliveryStatusDelivered, nil},
		{"delivery delivered cannot cancel", KindDelivery, entity.DeliveryStatusDelivered, entity.DeliveryStatusCancelled, ErrIllegalTransition},
		{"mrp shares plan edges", KindMRP, entity.PlanStatusDraft, entity.PlanStatusConfirmed, nil},
		{"route reactivation", KindRoute, entity.RouteStatusInactive, entity.RouteStatusActive, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Transition(tt.kind, tt.from, tt.to)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

func TestTerminalStatesHaveNoEdges(t *testing.T) {
	assert.True(t, IsTerminal(KindQuotation, entity.QuotationStatusConverted))
	assert.True(t, IsTerminal(KindOrder, entity.SOStatusCancelled))
	assert.False(t, IsTerminal(KindOrder, entity.SOStatusShipped))
	assert.False(t, IsTerminal(KindRoute, entity.RouteStatusInactive))
	assert.False(t, IsTerminal(KindOrder, "bogus"))

	assert.Error(t, EnsureMutable(KindOrder, entity.SOStatusCompleted))
	assert.NoError(t, EnsureMutable(KindOrder, entity.SOStatusShipped))
}

func TestEveryTargetIsAKnownState(t *testing.T) {
	for kind, edges := range transitions {
		for from, targets := range edges {
			for _, to := range targets {
				_, ok := edges[to]
				assert.True(t, ok, "%s: %s -> %s targets an unknown state", kind, from, to)
			}
		}
	}
}

func TestStates(t *testing.T) {
	assert.Equal(t, []string{"approved", "converted", "draft", "expired", "rejected", "sent"}, States(KindQuotation))
	assert.Len(t, States(KindOrder), 9)
}

func TestSummarize(t *testing.T) {
	lines := []Line{
		{Quantity: 2, UnitPrice: 10, TaxRate: 10},
		{Quantity: 1, UnitPrice: 5},
	}
	s := Summarize(lines, 0, 0)
	assert.Equal(t, 25.0, s.TotalAmount)
	assert.Equal(t, 2.0, s.TaxAmount)
	assert.Equal(t, 27.0, s.GrandTotal)

	s = Summarize(lines, 3, 4.5)
	assert.Equal(t, 28.5, s.GrandTotal)
	assert.Equal(t, s.TotalAmount+s.TaxAmount-s.DiscountAmount+s.ShippingAmount, s.GrandTotal)
}

func TestLineTotalWithDiscount(t *testing.T) {
	l := Line{Quantity: 3, UnitPrice: 19.99, TaxRate: 13, DiscountPercent: 10}
	assert.Equal(t, 53.97, LineTotal(l))
	assert.InDelta(t, 7.0161, LineTax(l), 1e-9)

	assert.Equal(t, Summary{}, Summarize(nil, 0, 0))
}

func TestPendingQuantity(t *testing.T) {
	assert.Equal(t, 4.0, PendingQuantity(10, 6))
	assert.Equal(t, 0.0, PendingQuantity(5, 6))
	assert.Equal(t, 0.0, PendingQuantity(5, 5))
}

func TestNumbering(t *testing.T) {
	day := DayKey(time.Date(2024, 1, 15, 23, 59, 0, 0, time.UTC))
	require.Equal(t, "20240115", day)

	assert.Equal(t, "SO-20240115-001", FormatNumber(PrefixOrder, day, 1))
	assert.Equal(t, "SO-20240115-1234", FormatNumber(PrefixOrder, day, 1234))

	seq, ok := ParseSequence("SO-20240115-042", PrefixOrder, day)
	assert.True(t, ok)
	assert.Equal(t, 42, seq)

	_, ok = ParseSequence("SO-20240116-042", PrefixOrder, day)
	assert.False(t, ok)
	_, ok = ParseSequence("QT-20240115-042", PrefixOrder, day)
	assert.False(t, ok)
	_, ok = ParseSequence("SO-20240115-ABC", PrefixOrder, day)
	assert.False(t, ok)
}

func TestExplode(t *testing.T) {
	boms := map[string][]Component{
		"bike":  {{ProductID: "wheel", Quantity: 2}, {ProductID: "frame", Quantity: 1, ScrapRate: 10}},
		"wheel": {{ProductID: "spoke", Quantity: 32}, {ProductID: "rim", Quantity: 1}},
		"frame": {{ProductID: "tube", Quantity: 3}},
	}
	source := func(id string) ([]Component, error) { return boms[id], nil }

	reqs, err := Explode("bike", 5, source)
	require.NoError(t, err)
	assert.Equal(t, 10.0, reqs["wheel"])
	assert.Equal(t, 320.0, reqs["spoke"])
	assert.Equal(t, 10.0, reqs["rim"])
	assert.InDelta(t, 5.5, reqs["frame"], 1e-9)
	assert.InDelta(t, 16.5, reqs["tube"], 1e-9)
	assert.NotContains(t, reqs, "bike")
}

func TestExplodeDetectsCycle(t *testing.T) {
	boms := map[string][]Component{
		"a": {{ProductID: "b", Quantity: 1}},
		"b": {{ProductID: "a", Quantity: 1}},
	}
	_, err := Explode("a", 1, func(id string) ([]Component, error) { return boms[id], nil })
	assert.ErrorIs(t, err, ErrBOMCycle)
}

func TestExplodeSharedComponent(t *testing.T) {
	boms := map[string][]Component{
		"top":   {{ProductID: "left", Quantity: 1}, {ProductID: "right", Quantity: 2}},
		"left":  {{ProductID: "bolt", Quantity: 4}},
		"right": {{ProductID: "bolt", Quantity: 1}},
	}
	reqs, err := Explode("top", 1, func(id string) ([]Component, error) { return boms[id], nil })
	require.NoError(t, err)
	assert.Equal(t, 6.0, reqs["bolt"])
}

func TestNetRequirement(t *testing.T) {
	assert.Equal(t, 30.0, NetRequirement(100, 50, 20))
	assert.Equal(t, 0.0, NetRequirement(10, 50, 0))
}
