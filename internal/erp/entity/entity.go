package entity

import "gorm.io/gorm"

// AutoMigrate 自动迁移所有ERP表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// 基础数据
		&User{},
		&RefreshSession{},
		&DocumentSequence{},
		&Warehouse{},
		&Supplier{},
		&Customer{},
		&CustomerContact{},

		// 技术
		&Product{},
		&BOM{},
		&BOMItem{},
		&WorkCenter{},
		&Operation{},
		&ProductionRoute{},
		&RouteOperation{},
		&TechnicalDocument{},

		// 销售
		&Quotation{},
		&QuotationItem{},
		&SalesOrder{},
		&SalesOrderItem{},
		&SalesDelivery{},
		&SalesDeliveryItem{},
		&SalesInvoice{},
		&SalesInvoiceItem{},
		&SalesPayment{},
		&SalesReturn{},
		&SalesReturnItem{},

		// 采购
		&PurchaseOrder{},
		&PurchaseOrderItem{},

		// 库存
		&Inventory{},
		&StockMovement{},

		// 生产与计划
		&WorkOrder{},
		&ProductionPlan{},
		&ProductionPlanItem{},
		&MaterialRequirementPlan{},
		&MRPItem{},
	)
}
