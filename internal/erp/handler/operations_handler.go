package handler

import (
	"github.com/bitfantasy/nimo-erp/internal/erp/service"
	"github.com/gin-gonic/gin"
)

// ============================================================
// Work Order Handler
// ============================================================

type WorkOrderHandler struct {
	svc *service.WorkOrderService
}

func NewWorkOrderHandler(svc *service.WorkOrderService) *WorkOrderHandler {
	return &WorkOrderHandler{svc: svc}
}

func (h *WorkOrderHandler) List(c *gin.Context) {
	p, ok := listParams(c)
	if !ok {
		return
	}
	page, err := h.svc.List(c.Request.Context(), p)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, page)
}

func (h *WorkOrderHandler) Get(c *gin.Context) {
	wo, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, wo)
}

func (h *WorkOrderHandler) Create(c *gin.Context) {
	var req service.CreateWorkOrderRequest
	if !bind(c, &req) {
		return
	}
	wo, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, wo)
}

func (h *WorkOrderHandler) Update(c *gin.Context) {
	var req service.UpdateWorkOrderRequest
	if !bind(c, &req) {
		return
	}
	wo, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, wo)
}

func (h *WorkOrderHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	NoContent(c)
}

// Report POST /production/work-orders/:id/report 报工
func (h *WorkOrderHandler) Report(c *gin.Context) {
	var req service.ReportRequest
	if !bind(c, &req) {
		return
	}
	wo, err := h.svc.Report(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, wo)
}

// ============================================================
// Planning Handler
// ============================================================

type PlanningHandler struct {
	svc *service.PlanningService
}

func NewPlanningHandler(svc *service.PlanningService) *PlanningHandler {
	return &PlanningHandler{svc: svc}
}

func (h *PlanningHandler) ListPlans(c *gin.Context) {
	p, ok := listParams(c)
	if !ok {
		return
	}
	page, err := h.svc.ListPlans(c.Request.Context(), p)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, page)
}

func (h *PlanningHandler) GetPlan(c *gin.Context) {
	plan, err := h.svc.GetPlan(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, plan)
}

func (h *PlanningHandler) CreatePlan(c *gin.Context) {
	var req service.CreatePlanRequest
	if !bind(c, &req) {
		return
	}
	plan, err := h.svc.CreatePlan(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, plan)
}

func (h *PlanningHandler) UpdatePlan(c *gin.Context) {
	var req service.UpdatePlanRequest
	if !bind(c, &req) {
		return
	}
	plan, err := h.svc.UpdatePlan(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, plan)
}

func (h *PlanningHandler) DeletePlan(c *gin.Context) {
	if err := h.svc.DeletePlan(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	NoContent(c)
}

func (h *PlanningHandler) AddPlanItem(c *gin.Context) {
	var req service.PlanItemRequest
	if !bind(c, &req) {
		return
	}
	plan, err := h.svc.AddPlanItem(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, plan)
}

func (h *PlanningHandler) UpdatePlanItem(c *gin.Context) {
	var req service.PlanItemPatch
	if !bind(c, &req) {
		return
	}
	item, err := h.svc.UpdatePlanItem(c.Request.Context(), c.Param("item_id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, item)
}

func (h *PlanningHandler) DeletePlanItem(c *gin.Context) {
	if err := h.svc.DeletePlanItem(c.Request.Context(), c.Param("item_id")); err != nil {
		Fail(c, err)
		return
	}
	NoContent(c)
}

// DeriveMRP POST /planning/production-plans/:id/mrp 按BOM展开生成MRP草稿
func (h *PlanningHandler) DeriveMRP(c *gin.Context) {
	mrp, err := h.svc.DeriveMRP(c.Request.Context(), GetUserID(c), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, mrp)
}

func (h *PlanningHandler) ListMRPs(c *gin.Context) {
	p, ok := listParams(c)
	if !ok {
		return
	}
	page, err := h.svc.ListMRPs(c.Request.Context(), p)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, page)
}

func (h *PlanningHandler) GetMRP(c *gin.Context) {
	mrp, err := h.svc.GetMRP(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, mrp)
}

func (h *PlanningHandler) CreateMRP(c *gin.Context) {
	var req service.CreateMRPRequest
	if !bind(c, &req) {
		return
	}
	mrp, err := h.svc.CreateMRP(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, mrp)
}

func (h *PlanningHandler) UpdateMRP(c *gin.Context) {
	var req service.UpdateMRPRequest
	if !bind(c, &req) {
		return
	}
	mrp, err := h.svc.UpdateMRP(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, mrp)
}

func (h *PlanningHandler) DeleteMRP(c *gin.Context) {
	if err := h.svc.DeleteMRP(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	NoContent(c)
}

func (h *PlanningHandler) AddMRPItem(c *gin.Context) {
	var req service.MRPItemRequest
	if !bind(c, &req) {
		return
	}
	mrp, err := h.svc.AddMRPItem(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, mrp)
}

func (h *PlanningHandler) DeleteMRPItem(c *gin.Context) {
	if err := h.svc.DeleteMRPItem(c.Request.Context(), c.Param("item_id")); err != nil {
		Fail(c, err)
		return
	}
	NoContent(c)
}

func (h *PlanningHandler) RunMRP(c *gin.Context) {
	mrp, err := h.svc.RunMRP(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, mrp)
}

// ============================================================
// Purchase Handler
// ============================================================

type PurchaseHandler struct {
	svc *service.PurchaseService
}

func NewPurchaseHandler(svc *service.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{svc: svc}
}

func (h *PurchaseHandler) ListSuppliers(c *gin.Context) {
	p, ok := listParams(c)
	if !ok {
		return
	}
	page, err := h.svc.ListSuppliers(c.Request.Context(), p)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, page)
}

func (h *PurchaseHandler) GetSupplier(c *gin.Context) {
	sup, err := h.svc.GetSupplier(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, sup)
}

func (h *PurchaseHandler) CreateSupplier(c *gin.Context) {
	var req service.SupplierRequest
	if !bind(c, &req) {
		return
	}
	sup, err := h.svc.CreateSupplier(c.Request.Context(), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, sup)
}

func (h *PurchaseHandler) UpdateSupplier(c *gin.Context) {
	var req service.SupplierPatch
	if !bind(c, &req) {
		return
	}
	sup, err := h.svc.UpdateSupplier(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, sup)
}

func (h *PurchaseHandler) DeleteSupplier(c *gin.Context) {
	if err := h.svc.DeleteSupplier(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	NoContent(c)
}

func (h *PurchaseHandler) ListOrders(c *gin.Context) {
	p, ok := listParams(c)
	if !ok {
		return
	}
	page, err := h.svc.ListOrders(c.Request.Context(), p)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, page)
}

func (h *PurchaseHandler) GetOrder(c *gin.Context) {
	po, err := h.svc.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, po)
}

func (h *PurchaseHandler) CreateOrder(c *gin.Context) {
	var req service.CreatePORequest
	if !bind(c, &req) {
		return
	}
	po, err := h.svc.CreateOrder(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, po)
}

func (h *PurchaseHandler) UpdateOrder(c *gin.Context) {
	var req service.UpdatePORequest
	if !bind(c, &req) {
		return
	}
	po, err := h.svc.UpdateOrder(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, po)
}

func (h *PurchaseHandler) DeleteOrder(c *gin.Context) {
	if err := h.svc.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	NoContent(c)
}

// Receive POST /procurement/purchase-orders/:id/receive
func (h *PurchaseHandler) Receive(c *gin.Context) {
	var req service.ReceiveRequest
	if !bind(c, &req) {
		return
	}
	po, err := h.svc.Receive(c.Request.Context(), GetUserID(c), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, po)
}

// ============================================================
// Inventory Handler
// ============================================================

type InventoryHandler struct {
	svc *service.InventoryService
}

func NewInventoryHandler(svc *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

func (h *InventoryHandler) ListWarehouses(c *gin.Context) {
	p, ok := listParams(c)
	if !ok {
		return
	}
	page, err := h.svc.ListWarehouses(c.Request.Context(), p)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, page)
}

func (h *InventoryHandler) GetWarehouse(c *gin.Context) {
	wh, err := h.svc.GetWarehouse(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, wh)
}

func (h *InventoryHandler) CreateWarehouse(c *gin.Context) {
	var req service.WarehouseRequest
	if !bind(c, &req) {
		return
	}
	wh, err := h.svc.CreateWarehouse(c.Request.Context(), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, wh)
}

func (h *InventoryHandler) UpdateWarehouse(c *gin.Context) {
	var req service.WarehousePatch
	if !bind(c, &req) {
		return
	}
	wh, err := h.svc.UpdateWarehouse(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, wh)
}

func (h *InventoryHandler) DeleteWarehouse(c *gin.Context) {
	if err := h.svc.DeleteWarehouse(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	NoContent(c)
}

// ListInventory GET /warehouse/inventory?warehouse_id=&product_id=
func (h *InventoryHandler) ListInventory(c *gin.Context) {
	p, ok := listParams(c)
	if !ok {
		return
	}
	page, err := h.svc.ListInventory(c.Request.Context(), p, c.Query("warehouse_id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, page)
}

func (h *InventoryHandler) ListMovements(c *gin.Context) {
	p, ok := listParams(c)
	if !ok {
		return
	}
	page, err := h.svc.ListMovements(c.Request.Context(), p, c.Query("warehouse_id"), c.Query("movement_type"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, page)
}

func (h *InventoryHandler) CreateMovement(c *gin.Context) {
	var req service.MovementRequest
	if !bind(c, &req) {
		return
	}
	m, err := h.svc.CreateMovement(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, m)
}

// ============================================================
// Dashboard Handler
// ============================================================

type DashboardHandler struct {
	svc *service.DashboardService
}

func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

func (h *DashboardHandler) Overview(c *gin.Context) {
	out, err := h.svc.Overview(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, out)
}

// Stats period 取 day/week/month/year，默认 month
func (h *DashboardHandler) Stats(c *gin.Context) {
	out, err := h.svc.Stats(c.Request.Context(), c.Query("period"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, out)
}

func (h *DashboardHandler) SalesChart(c *gin.Context) {
	out, err := h.svc.SalesChart(c.Request.Context(), c.Query("period"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, out)
}

func (h *DashboardHandler) InventoryStatus(c *gin.Context) {
	out, err := h.svc.InventoryStatus(c.Request.Context())
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, out)
}
