package handler

import (
	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册 /api/v1 下的全部ERP路由。登录和刷新令牌无需认证。
func (h *Handlers) RegisterRoutes(v1 *gin.RouterGroup, jwtSecret string) {
	// 认证 (无需登录)
	auth := v1.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
	}

	authorized := v1.Group("")
	authorized.Use(middleware.JWTAuth(jwtSecret))
	{
		authorized.POST("/auth/logout", h.Auth.Logout)
		authorized.GET("/auth/me", h.Auth.Me)

		// 用户
		users := authorized.Group("/users")
		{
			users.GET("", h.User.List)
			users.POST("", middleware.RequireRole(entity.RoleAdmin), h.User.Create)
			users.GET("/:id", h.User.Get)
			users.PUT("/:id", h.User.Update)
			users.DELETE("/:id", middleware.RequireRole(entity.RoleAdmin), h.User.Delete)
		}

		// 销售
		sales := authorized.Group("/sales")
		{
			sales.GET("/customers", h.Customer.List)
			sales.POST("/customers", h.Customer.Create)
			sales.GET("/customers/:id", h.Customer.Get)
			sales.PUT("/customers/:id", h.Customer.Update)
			sales.DELETE("/customers/:id", middleware.RequireRole(entity.RoleManager), h.Customer.Delete)
			sales.GET("/customers/:id/contacts", h.Customer.ListContacts)
			sales.POST("/customers/:id/contacts", h.Customer.AddContact)
			sales.PUT("/contacts/:id", h.Customer.UpdateContact)
			sales.DELETE("/contacts/:id", h.Customer.DeleteContact)

			sales.GET("/quotations", h.Quotation.List)
			sales.POST("/quotations", h.Quotation.Create)
			sales.GET("/quotations/:id", h.Quotation.Get)
			sales.PUT("/quotations/:id", h.Quotation.Update)
			sales.DELETE("/quotations/:id", h.Quotation.Delete)
			sales.POST("/quotations/:id/items", h.Quotation.AddItem)
			sales.PUT("/quotations/:id/items/:item_id", h.Quotation.UpdateItem)
			sales.DELETE("/quotations/:id/items/:item_id", h.Quotation.DeleteItem)
			sales.POST("/quotations/:id/convert", h.Quotation.Convert)

			sales.GET("/orders", h.SalesOrder.List)
			sales.POST("/orders", h.SalesOrder.Create)
			sales.GET("/orders/export", h.SalesOrder.Export)
			sales.GET("/orders/:id", h.SalesOrder.Get)
			sales.PUT("/orders/:id", h.SalesOrder.Update)
			sales.DELETE("/orders/:id", h.SalesOrder.Delete)
			sales.POST("/orders/:id/items", h.SalesOrder.AddItem)
			sales.PUT("/orders/:id/items/:item_id", h.SalesOrder.UpdateItem)
			sales.DELETE("/orders/:id/items/:item_id", h.SalesOrder.DeleteItem)

			sales.GET("/deliveries", h.Delivery.List)
			sales.POST("/deliveries", h.Delivery.Create)
			sales.GET("/deliveries/:id", h.Delivery.Get)
			sales.PUT("/deliveries/:id", h.Delivery.Update)
			sales.DELETE("/deliveries/:id", h.Delivery.Delete)
			sales.POST("/deliveries/:id/ship", h.Delivery.Ship)
			sales.POST("/deliveries/:id/confirm", h.Delivery.Confirm)
			sales.POST("/deliveries/:id/cancel", h.Delivery.Cancel)

			sales.GET("/invoices", h.Invoice.List)
			sales.POST("/invoices", h.Invoice.Create)
			sales.GET("/invoices/:id", h.Invoice.Get)
			sales.PUT("/invoices/:id", h.Invoice.Update)
			sales.DELETE("/invoices/:id", h.Invoice.Delete)
			sales.POST("/invoices/:id/items", h.Invoice.AddItem)
			sales.PUT("/invoices/:id/items/:item_id", h.Invoice.UpdateItem)
			sales.DELETE("/invoices/:id/items/:item_id", h.Invoice.DeleteItem)
			sales.POST("/invoices/:id/send", h.Invoice.Send)
			sales.POST("/invoices/:id/cancel", h.Invoice.Cancel)
			sales.POST("/invoices/:id/payments", h.Invoice.AddPayment)

			sales.GET("/payments", h.Invoice.ListPayments)
			sales.GET("/payments/:id", h.Invoice.GetPayment)
			sales.POST("/payments/:id/void", h.Invoice.VoidPayment)

			sales.GET("/returns", h.Return.List)
			sales.POST("/returns", h.Return.Create)
			sales.GET("/returns/:id", h.Return.Get)
			sales.PUT("/returns/:id", h.Return.Update)
			sales.DELETE("/returns/:id", h.Return.Delete)
		}

		// 技术
		technical := authorized.Group("/technical")
		{
			technical.GET("/products", h.Product.List)
			technical.POST("/products", h.Product.Create)
			technical.POST("/products/import", h.Product.Import)
			technical.GET("/products/:id", h.Product.Get)
			technical.PUT("/products/:id", h.Product.Update)
			technical.DELETE("/products/:id", middleware.RequireRole(entity.RoleManager, entity.RoleTechnical), h.Product.Delete)

			technical.GET("/boms", h.BOM.List)
			technical.POST("/boms", h.BOM.Create)
			technical.GET("/boms/product/:product_id", h.BOM.GetDefault)
			technical.GET("/boms/:id", h.BOM.Get)
			technical.PUT("/boms/:id", h.BOM.Update)
			technical.DELETE("/boms/:id", h.BOM.Delete)
			technical.POST("/boms/:id/items", h.BOM.AddItem)
			technical.PUT("/boms/:id/items/:item_id", h.BOM.UpdateItem)
			technical.DELETE("/boms/:id/items/:item_id", h.BOM.DeleteItem)
			technical.GET("/boms/:id/cost", h.BOM.Cost)
			technical.POST("/boms/:id/copy", h.BOM.Copy)
			technical.GET("/boms/:id/export", h.BOM.Export)
			technical.GET("/boms/:id/requirements", h.BOM.Requirements)

			technical.GET("/work-centers", h.Routing.ListWorkCenters)
			technical.POST("/work-centers", h.Routing.CreateWorkCenter)
			technical.GET("/work-centers/:id", h.Routing.GetWorkCenter)
			technical.PUT("/work-centers/:id", h.Routing.UpdateWorkCenter)
			technical.DELETE("/work-centers/:id", h.Routing.DeleteWorkCenter)

			technical.GET("/operations", h.Routing.ListOperations)
			technical.POST("/operations", h.Routing.CreateOperation)
			technical.GET("/operations/:id", h.Routing.GetOperation)
			technical.PUT("/operations/:id", h.Routing.UpdateOperation)
			technical.DELETE("/operations/:id", h.Routing.DeleteOperation)

			technical.GET("/routes", h.Routing.ListRoutes)
			technical.POST("/routes", h.Routing.CreateRoute)
			technical.GET("/routes/:id", h.Routing.GetRoute)
			technical.PUT("/routes/:id", h.Routing.UpdateRoute)
			technical.DELETE("/routes/:id", h.Routing.DeleteRoute)
			technical.POST("/routes/:id/operations", h.Routing.AddOperation)
			technical.DELETE("/routes/:id/operations/:op_id", h.Routing.RemoveOperation)

			technical.GET("/documents", h.Document.List)
			technical.POST("/documents", h.Document.Upload)
			technical.GET("/documents/:id", h.Document.Get)
			technical.GET("/documents/:id/download", h.Document.Download)
			technical.DELETE("/documents/:id", h.Document.Delete)
		}

		// 生产
		production := authorized.Group("/production")
		{
			production.GET("/work-orders", h.WorkOrder.List)
			production.POST("/work-orders", h.WorkOrder.Create)
			production.GET("/work-orders/:id", h.WorkOrder.Get)
			production.PUT("/work-orders/:id", h.WorkOrder.Update)
			production.DELETE("/work-orders/:id", h.WorkOrder.Delete)
			production.POST("/work-orders/:id/report", h.WorkOrder.Report)
		}

		// 计划
		planning := authorized.Group("/planning")
		{
			planning.GET("/production-plans", h.Planning.ListPlans)
			planning.POST("/production-plans", h.Planning.CreatePlan)
			planning.GET("/production-plans/:id", h.Planning.GetPlan)
			planning.PUT("/production-plans/:id", h.Planning.UpdatePlan)
			planning.DELETE("/production-plans/:id", h.Planning.DeletePlan)
			planning.POST("/production-plans/:id/items", h.Planning.AddPlanItem)
			planning.POST("/production-plans/:id/mrp", h.Planning.DeriveMRP)
			planning.PUT("/production-plan-items/:item_id", h.Planning.UpdatePlanItem)
			planning.DELETE("/production-plan-items/:item_id", h.Planning.DeletePlanItem)

			planning.GET("/mrp", h.Planning.ListMRPs)
			planning.POST("/mrp", h.Planning.CreateMRP)
			planning.GET("/mrp/:id", h.Planning.GetMRP)
			planning.PUT("/mrp/:id", h.Planning.UpdateMRP)
			planning.DELETE("/mrp/:id", h.Planning.DeleteMRP)
			planning.POST("/mrp/:id/items", h.Planning.AddMRPItem)
			planning.POST("/mrp/:id/run", h.Planning.RunMRP)
			planning.DELETE("/mrp-items/:item_id", h.Planning.DeleteMRPItem)
		}

		// 采购
		procurement := authorized.Group("/procurement")
		{
			procurement.GET("/suppliers", h.Purchase.ListSuppliers)
			procurement.POST("/suppliers", h.Purchase.CreateSupplier)
			procurement.GET("/suppliers/:id", h.Purchase.GetSupplier)
			procurement.PUT("/suppliers/:id", h.Purchase.UpdateSupplier)
			procurement.DELETE("/suppliers/:id", h.Purchase.DeleteSupplier)

			procurement.GET("/purchase-orders", h.Purchase.ListOrders)
			procurement.POST("/purchase-orders", h.Purchase.CreateOrder)
			procurement.GET("/purchase-orders/:id", h.Purchase.GetOrder)
			procurement.PUT("/purchase-orders/:id", h.Purchase.UpdateOrder)
			procurement.DELETE("/purchase-orders/:id", h.Purchase.DeleteOrder)
			procurement.POST("/purchase-orders/:id/receive", h.Purchase.Receive)
		}

		// 仓库
		warehouse := authorized.Group("/warehouse")
		{
			warehouse.GET("/warehouses", h.Inventory.ListWarehouses)
			warehouse.POST("/warehouses", h.Inventory.CreateWarehouse)
			warehouse.GET("/warehouses/:id", h.Inventory.GetWarehouse)
			warehouse.PUT("/warehouses/:id", h.Inventory.UpdateWarehouse)
			warehouse.DELETE("/warehouses/:id", h.Inventory.DeleteWarehouse)
			warehouse.GET("/inventory", h.Inventory.ListInventory)
			warehouse.GET("/stock-movements", h.Inventory.ListMovements)
			warehouse.POST("/stock-movements", h.Inventory.CreateMovement)
		}

		// 首页统计
		dashboard := authorized.Group("/dashboard")
		{
			dashboard.GET("", h.Dashboard.Overview)
			dashboard.GET("/stats", h.Dashboard.Stats)
			dashboard.GET("/sales-chart", h.Dashboard.SalesChart)
			dashboard.GET("/inventory-status", h.Dashboard.InventoryStatus)
		}
	}
}
