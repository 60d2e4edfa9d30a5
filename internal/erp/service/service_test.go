package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/bitfantasy/nimo-erp/internal/erp/testutil"
	"github.com/bitfantasy/nimo-erp/internal/erp/workflow"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestBase(t *testing.T) base {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return base{repos: repos, db: db, logger: zap.NewNop()}
}

func seedPlan(t *testing.T, db *gorm.DB, number string) *entity.ProductionPlan {
	t.Helper()
	plan := &entity.ProductionPlan{ID: uuid.New().String(), PlanNumber: number, Name: number, Status: entity.PlanStatusDraft}
	require.NoError(t, db.Create(plan).Error)
	return plan
}

func TestNextNumberSeedsFromExistingRows(t *testing.T) {
	b := newTestBase(t)
	ctx := context.Background()
	now := time.Now()
	day := workflow.DayKey(now)

	seedPlan(t, b.db, workflow.FormatNumber(workflow.PrefixPlan, day, 7))
	// 其他日期的编号不影响当天序号
	seedPlan(t, b.db, workflow.FormatNumber(workflow.PrefixPlan, workflow.DayKey(now.AddDate(0, 0, -1)), 42))

	next := func() string {
		var number string
		require.NoError(t, b.inTx(ctx, func(r *repository.Repositories) error {
			var err error
			number, err = nextNumber(ctx, r, planNumbers, now)
			return err
		}))
		return number
	}

	assert.Equal(t, workflow.FormatNumber(workflow.PrefixPlan, day, 8), next())

	// 删除后编号不复用
	require.NoError(t, b.db.Where("plan_number = ?", workflow.FormatNumber(workflow.PrefixPlan, day, 7)).Delete(&entity.ProductionPlan{}).Error)
	assert.Equal(t, workflow.FormatNumber(workflow.PrefixPlan, day, 9), next())

	// 前缀之间互不影响
	var mrp string
	require.NoError(t, b.inTx(ctx, func(r *repository.Repositories) error {
		var err error
		mrp, err = nextNumber(ctx, r, mrpNumbers, now)
		return err
	}))
	assert.Equal(t, workflow.FormatNumber(workflow.PrefixMRP, day, 1), mrp)
}

func TestInTxRetriesDuplicateKey(t *testing.T) {
	b := newTestBase(t)
	ctx := context.Background()

	calls := 0
	err := b.inTx(ctx, func(r *repository.Repositories) error {
		calls++
		if calls < maxTxAttempts {
			return fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, maxTxAttempts, calls)

	calls = 0
	err = b.inTx(ctx, func(r *repository.Repositories) error {
		calls++
		return gorm.ErrDuplicatedKey
	})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	assert.Equal(t, maxTxAttempts, calls)

	calls = 0
	boom := errors.New("boom")
	err = b.inTx(ctx, func(r *repository.Repositories) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestInTxRollsBack(t *testing.T) {
	b := newTestBase(t)
	ctx := context.Background()

	err := b.inTx(ctx, func(r *repository.Repositories) error {
		if err := r.DB().Create(&entity.ProductionPlan{ID: uuid.New().String(), PlanNumber: "PP-X", Name: "x", Status: entity.PlanStatusDraft}).Error; err != nil {
			return err
		}
		return stateError("中止")
	})
	assert.ErrorIs(t, err, ErrInvalidState)

	var count int64
	require.NoError(t, b.db.Model(&entity.ProductionPlan{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestTranslate(t *testing.T) {
	cases := []struct {
		name string
		in   error
		kind error
	}{
		{"not found", repository.ErrNotFound, ErrNotFound},
		{"record not found", gorm.ErrRecordNotFound, ErrNotFound},
		{"duplicate", gorm.ErrDuplicatedKey, ErrConflict},
		{"unknown status", fmt.Errorf("%w: bogus", workflow.ErrUnknownStatus), ErrValidation},
		{"bom cycle", workflow.ErrBOMCycle, ErrValidation},
		{"illegal transition", workflow.ErrIllegalTransition, ErrInvalidState},
		{"terminal", workflow.ErrTerminal, ErrInvalidState},
		{"already classified", conflictError("x"), ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := translate(tc.in, "单据")
			assert.ErrorIs(t, got, tc.kind)
		})
	}

	assert.NoError(t, translate(nil, "单据"))
	plain := errors.New("db down")
	assert.Same(t, plain, translate(plain, "单据"))
}

func TestPeriodRange(t *testing.T) {
	// 2026-10-14 是周三
	now := time.Date(2026, 10, 14, 15, 30, 0, 0, time.UTC)
	tomorrow := time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		period string
		from   time.Time
	}{
		{PeriodDay, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)},
		{PeriodWeek, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)},
		{PeriodMonth, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)},
		{PeriodYear, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.period, func(t *testing.T) {
			from, to, err := periodRange(tc.period, now)
			require.NoError(t, err)
			assert.Equal(t, tc.from, from)
			assert.Equal(t, tomorrow, to)
		})
	}

	// 周日属于以周一开始的当周
	from, _, err := periodRange(PeriodWeek, time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), from)

	_, _, err = periodRange("quarter", now)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestInvoiceStatusFollowsPayments(t *testing.T) {
	svc := NewInvoiceService(newTestBase(t))
	ctx := context.Background()
	r := svc.repos

	inv := &entity.SalesInvoice{ID: uuid.New().String(), Status: entity.InvoiceStatusSent}
	for _, target := range []string{entity.InvoiceStatusPaid, entity.InvoiceStatusPartiallyPaid} {
		assert.ErrorIs(t, svc.checkStatusChange(ctx, r, inv, target), ErrInvalidState, target)
	}
	assert.NoError(t, svc.checkStatusChange(ctx, r, inv, entity.InvoiceStatusOverdue))
	assert.NoError(t, svc.checkStatusChange(ctx, r, inv, entity.InvoiceStatusSent))

	inv.Status, inv.AmountPaid = entity.InvoiceStatusPaid, 27
	assert.ErrorIs(t, svc.checkStatusChange(ctx, r, inv, entity.InvoiceStatusSent), ErrInvalidState)
	assert.NoError(t, svc.checkStatusChange(ctx, r, inv, entity.InvoiceStatusPaid))
}
