package handler

import (
	"github.com/bitfantasy/nimo-erp/internal/erp/service"
	"github.com/gin-gonic/gin"
)

// ============================================================
// Customer Handler
// ============================================================

type CustomerHandler struct {
	svc *service.CustomerService
}

func NewCustomerHandler(svc *service.CustomerService) *CustomerHandler {
	return &CustomerHandler{svc: svc}
}

func (h *CustomerHandler) List(c *gin.Context) {
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

func (h *CustomerHandler) Get(c *gin.Context) {
	customer, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, customer)
}

func (h *CustomerHandler) Create(c *gin.Context) {
	var req service.CustomerRequest
	if !bind(c, &req) {
		return
	}
	customer, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, customer)
}

func (h *CustomerHandler) Update(c *gin.Context) {
	var req service.CustomerPatch
	if !bind(c, &req) {
		return
	}
	customer, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, customer)
}

// Delete 级联删除联系人
func (h *CustomerHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	NoContent(c)
}

func (h *CustomerHandler) ListContacts(c *gin.Context) {
	contacts, err := h.svc.ListContacts(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"items": contacts})
}

func (h *CustomerHandler) AddContact(c *gin.Context) {
	var req service.ContactRequest
	if !bind(c, &req) {
		return
	}
	contact, err := h.svc.AddContact(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, contact)
}

func (h *CustomerHandler) UpdateContact(c *gin.Context) {
	var req service.ContactPatch
	if !bind(c, &req) {
		return
	}
	contact, err := h.svc.UpdateContact(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, contact)
}

func (h *CustomerHandler) DeleteContact(c *gin.Context) {
	if err := h.svc.DeleteContact(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	NoContent(c)
}

// ============================================================
// Quotation Handler
// ============================================================

type QuotationHandler struct {
	svc *service.QuotationService
}

func NewQuotationHandler(svc *service.QuotationService) *QuotationHandler {
	return &QuotationHandler{svc: svc}
}

func (h *QuotationHandler) List(c *gin.Context) {
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

func (h *QuotationHandler) Get(c *gin.Context) {
	q, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, q)
}

func (h *QuotationHandler) Create(c *gin.Context) {
	var req service.CreateQuotationRequest
	if !bind(c, &req) {
		return
	}
	q, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, q)
}

func (h *QuotationHandler) Update(c *gin.Context) {
	var req service.UpdateQuotationRequest
	if !bind(c, &req) {
		return
	}
	q, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, q)
}

func (h *QuotationHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	NoContent(c)
}

func (h *QuotationHandler) AddItem(c *gin.Context) {
	var req service.ItemRequest
	if !bind(c, &req) {
		return
	}
	q, err := h.svc.AddItem(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, q)
}

func (h *QuotationHandler) UpdateItem(c *gin.Context) {
	var req service.ItemPatch
	if !bind(c, &req) {
		return
	}
	q, err := h.svc.UpdateItem(c.Request.Context(), c.Param("id"), c.Param("item_id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, q)
}

func (h *QuotationHandler) DeleteItem(c *gin.Context) {
	q, err := h.svc.DeleteItem(c.Request.Context(), c.Param("id"), c.Param("item_id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, q)
}

// Convert POST /sales/quotations/:id/convert
func (h *QuotationHandler) Convert(c *gin.Context) {
	order, err := h.svc.Convert(c.Request.Context(), GetUserID(c), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, order)
}

// ============================================================
// Sales Order Handler
// ============================================================

type SalesOrderHandler struct {
	svc *service.SalesOrderService
}

func NewSalesOrderHandler(svc *service.SalesOrderService) *SalesOrderHandler {
	return &SalesOrderHandler{svc: svc}
}

func (h *SalesOrderHandler) List(c *gin.Context) {
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

// Export GET /sales/orders/export，过滤条件同列表，不分页
func (h *SalesOrderHandler) Export(c *gin.Context) {
	p, ok := listParams(c)
	if !ok {
		return
	}
	f, filename, err := h.svc.Export(c.Request.Context(), p)
	if err != nil {
		Fail(c, err)
		return
	}
	sendExcel(c, f, filename)
}

func (h *SalesOrderHandler) Get(c *gin.Context) {
	o, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, o)
}

func (h *SalesOrderHandler) Create(c *gin.Context) {
	var req service.CreateOrderRequest
	if !bind(c, &req) {
		return
	}
	o, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, o)
}

func (h *SalesOrderHandler) Update(c *gin.Context) {
	var req service.UpdateOrderRequest
	if !bind(c, &req) {
		return
	}
	o, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, o)
}

func (h *SalesOrderHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	NoContent(c)
}

func (h *SalesOrderHandler) AddItem(c *gin.Context) {
	var req service.OrderItemRequest
	if !bind(c, &req) {
		return
	}
	o, err := h.svc.AddItem(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, o)
}

func (h *SalesOrderHandler) UpdateItem(c *gin.Context) {
	var req service.OrderItemPatch
	if !bind(c, &req) {
		return
	}
	o, err := h.svc.UpdateItem(c.Request.Context(), c.Param("id"), c.Param("item_id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, o)
}

func (h *SalesOrderHandler) DeleteItem(c *gin.Context) {
	o, err := h.svc.DeleteItem(c.Request.Context(), c.Param("id"), c.Param("item_id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, o)
}
