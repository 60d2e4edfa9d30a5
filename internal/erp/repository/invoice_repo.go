package repository

import (
	"context"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InvoiceRepository 发票与收款仓库
type InvoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

// FindAll 查询发票列表
func (r *InvoiceRepository) FindAll(ctx context.Context, p ListParams) ([]entity.SalesInvoice, int64, error) {
	var list []entity.SalesInvoice
	query := r.db.WithContext(ctx).Model(&entity.SalesInvoice{})
	query = eq(query, "status", p.Status)
	query = eq(query, "customer_id", p.CustomerID)
	query = eq(query, "order_id", p.OrderID)
	query = dateRange(query, "invoice_date", p)
	query = keyword(query, p.Keyword, "invoice_number", "notes")
	total, err := paginate(query, p, &list, "invoice_date DESC, created_at DESC", "Customer")
	return list, total, err
}

// FindByID 查找发票（含明细与收款）
func (r *InvoiceRepository) FindByID(ctx context.Context, id string, lock bool) (*entity.SalesInvoice, error) {
	var inv entity.SalesInvoice
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(lockForUpdate())
	}
	err := query.
		Preload("Customer").
		Preload("Items", orderedLines).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).
		First(&inv).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &inv, nil
}

func (r *InvoiceRepository) Create(ctx context.Context, inv *entity.SalesInvoice) error {
	return r.db.WithContext(ctx).Omit("Customer", "Payments").Create(inv).Error
}

func (r *InvoiceRepository) Update(ctx context.Context, inv *entity.SalesInvoice) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(inv).Error
}

func (r *InvoiceRepository) Delete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("invoice_id = ?", id).Delete(&entity.SalesInvoiceItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&entity.SalesInvoice{}).Error
}

func (r *InvoiceRepository) FindItems(ctx context.Context, invoiceID string) ([]entity.SalesInvoiceItem, error) {
	var items []entity.SalesInvoiceItem
	err := orderedLines(r.db.WithContext(ctx).Where("invoice_id = ?", invoiceID)).Find(&items).Error
	return items, err
}

func (r *InvoiceRepository) FindItem(ctx context.Context, invoiceID, itemID string) (*entity.SalesInvoiceItem, error) {
	var item entity.SalesInvoiceItem
	err := r.db.WithContext(ctx).Where("id = ? AND invoice_id = ?", itemID, invoiceID).First(&item).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (r *InvoiceRepository) NextLineNo(ctx context.Context, invoiceID string) (int, error) {
	var max int
	err := r.db.WithContext(ctx).Model(&entity.SalesInvoiceItem{}).
		Where("invoice_id = ?", invoiceID).
		Select("COALESCE(MAX(line_no), 0)").Scan(&max).Error
	return max + 1, err
}

func (r *InvoiceRepository) CreateItem(ctx context.Context, item *entity.SalesInvoiceItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *InvoiceRepository) UpdateItem(ctx context.Context, item *entity.SalesInvoiceItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *InvoiceRepository) DeleteItem(ctx context.Context, itemID string) error {
	return r.db.WithContext(ctx).Where("id = ?", itemID).Delete(&entity.SalesInvoiceItem{}).Error
}

// FindPayments 查询收款列表
func (r *InvoiceRepository) FindPayments(ctx context.Context, p ListParams, invoiceID string) ([]entity.SalesPayment, int64, error) {
	var list []entity.SalesPayment
	query := r.db.WithContext(ctx).Model(&entity.SalesPayment{})
	query = eq(query, "status", p.Status)
	query = eq(query, "customer_id", p.CustomerID)
	query = eq(query, "invoice_id", invoiceID)
	query = dateRange(query, "payment_date", p)
	query = keyword(query, p.Keyword, "payment_number", "reference_number")
	total, err := paginate(query, p, &list, "payment_date DESC, created_at DESC")
	return list, total, err
}

func (r *InvoiceRepository) FindPayment(ctx context.Context, id string, lock bool) (*entity.SalesPayment, error) {
	var pay entity.SalesPayment
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(lockForUpdate())
	}
	if err := query.Where("id = ?", id).First(&pay).Error; err != nil {
		return nil, notFound(err)
	}
	return &pay, nil
}

// HasConfirmedPayments 发票是否有未作废的收款
func (r *InvoiceRepository) HasConfirmedPayments(ctx context.Context, invoiceID string) (bool, error) {
	return exists(r.db.WithContext(ctx), &entity.SalesPayment{}, "invoice_id = ? AND status = ?", invoiceID, entity.PaymentStatusConfirmed)
}

// InvoicedByOrderItem 订单各明细在未取消发票中的已开票数量，excludeItemID 非空时排除该发票明细
func (r *InvoiceRepository) InvoicedByOrderItem(ctx context.Context, orderID, excludeItemID string) (map[string]float64, error) {
	var rows []struct {
		OrderItemID string
		Qty         float64
	}
	query := r.db.WithContext(ctx).Model(&entity.SalesInvoiceItem{}).
		Select("erp_sales_invoice_items.order_item_id AS order_item_id, SUM(erp_sales_invoice_items.quantity) AS qty").
		Joins("JOIN erp_sales_invoices ON erp_sales_invoices.id = erp_sales_invoice_items.invoice_id").
		Where("erp_sales_invoices.order_id = ? AND erp_sales_invoices.status <> ?", orderID, entity.InvoiceStatusCancelled).
		Where("erp_sales_invoice_items.order_item_id IS NOT NULL")
	if excludeItemID != "" {
		query = query.Where("erp_sales_invoice_items.id <> ?", excludeItemID)
	}
	if err := query.Group("erp_sales_invoice_items.order_item_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	result := make(map[string]float64, len(rows))
	for _, row := range rows {
		result[row.OrderItemID] = row.Qty
	}
	return result, nil
}

func (r *InvoiceRepository) CreatePayment(ctx context.Context, pay *entity.SalesPayment) error {
	return r.db.WithContext(ctx).Create(pay).Error
}

func (r *InvoiceRepository) UpdatePayment(ctx context.Context, pay *entity.SalesPayment) error {
	return r.db.WithContext(ctx).Save(pay).Error
}
