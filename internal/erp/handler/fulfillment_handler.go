package handler

import (
	"context"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/service"
	"github.com/gin-gonic/gin"
)

// ============================================================
// Delivery Handler
// ============================================================

type DeliveryHandler struct {
	svc *service.DeliveryService
}

func NewDeliveryHandler(svc *service.DeliveryService) *DeliveryHandler {
	return &DeliveryHandler{svc: svc}
}

func (h *DeliveryHandler) List(c *gin.Context) {
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

func (h *DeliveryHandler) Get(c *gin.Context) {
	d, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, d)
}

func (h *DeliveryHandler) Create(c *gin.Context) {
	var req service.CreateDeliveryRequest
	if !bind(c, &req) {
		return
	}
	d, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, d)
}

func (h *DeliveryHandler) Update(c *gin.Context) {
	var req service.UpdateDeliveryRequest
	if !bind(c, &req) {
		return
	}
	d, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, d)
}

func (h *DeliveryHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	NoContent(c)
}

func (h *DeliveryHandler) Ship(c *gin.Context)    { h.act(c, h.svc.Ship) }
func (h *DeliveryHandler) Confirm(c *gin.Context) { h.act(c, h.svc.Confirm) }
func (h *DeliveryHandler) Cancel(c *gin.Context)  { h.act(c, h.svc.Cancel) }

func (h *DeliveryHandler) act(c *gin.Context, fn func(context.Context, string) (*entity.SalesDelivery, error)) {
	d, err := fn(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, d)
}

// ============================================================
// Invoice Handler
// ============================================================

type InvoiceHandler struct {
	svc *service.InvoiceService
}

func NewInvoiceHandler(svc *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{svc: svc}
}

func (h *InvoiceHandler) List(c *gin.Context) {
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

func (h *InvoiceHandler) Get(c *gin.Context) {
	inv, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, inv)
}

// Create 指定订单且未给明细时按订单明细开票
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req service.CreateInvoiceRequest
	if !bind(c, &req) {
		return
	}
	inv, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, inv)
}

func (h *InvoiceHandler) Update(c *gin.Context) {
	var req service.UpdateInvoiceRequest
	if !bind(c, &req) {
		return
	}
	inv, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, inv)
}

func (h *InvoiceHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	NoContent(c)
}

func (h *InvoiceHandler) Send(c *gin.Context)   { h.act(c, h.svc.Send) }
func (h *InvoiceHandler) Cancel(c *gin.Context) { h.act(c, h.svc.Cancel) }

func (h *InvoiceHandler) act(c *gin.Context, fn func(context.Context, string) (*entity.SalesInvoice, error)) {
	inv, err := fn(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, inv)
}

func (h *InvoiceHandler) AddItem(c *gin.Context) {
	var req service.InvoiceItemRequest
	if !bind(c, &req) {
		return
	}
	inv, err := h.svc.AddItem(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, inv)
}

func (h *InvoiceHandler) UpdateItem(c *gin.Context) {
	var req service.ItemPatch
	if !bind(c, &req) {
		return
	}
	inv, err := h.svc.UpdateItem(c.Request.Context(), c.Param("id"), c.Param("item_id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, inv)
}

func (h *InvoiceHandler) DeleteItem(c *gin.Context) {
	inv, err := h.svc.DeleteItem(c.Request.Context(), c.Param("id"), c.Param("item_id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, inv)
}

// AddPayment POST /sales/invoices/:id/payments
func (h *InvoiceHandler) AddPayment(c *gin.Context) {
	var req service.PaymentRequest
	if !bind(c, &req) {
		return
	}
	pay, err := h.svc.AddPayment(c.Request.Context(), GetUserID(c), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, pay)
}

// ListPayments GET /sales/payments?invoice_id=
func (h *InvoiceHandler) ListPayments(c *gin.Context) {
	p, ok := listParams(c)
	if !ok {
		return
	}
	page, err := h.svc.ListPayments(c.Request.Context(), p, c.Query("invoice_id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, page)
}

func (h *InvoiceHandler) GetPayment(c *gin.Context) {
	pay, err := h.svc.GetPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, pay)
}

func (h *InvoiceHandler) VoidPayment(c *gin.Context) {
	pay, err := h.svc.VoidPayment(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, pay)
}

// ============================================================
// Return Handler
// ============================================================

type ReturnHandler struct {
	svc *service.ReturnService
}

func NewReturnHandler(svc *service.ReturnService) *ReturnHandler {
	return &ReturnHandler{svc: svc}
}

func (h *ReturnHandler) List(c *gin.Context) {
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

func (h *ReturnHandler) Get(c *gin.Context) {
	ret, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, ret)
}

func (h *ReturnHandler) Create(c *gin.Context) {
	var req service.CreateReturnRequest
	if !bind(c, &req) {
		return
	}
	ret, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, ret)
}

func (h *ReturnHandler) Update(c *gin.Context) {
	var req service.UpdateReturnRequest
	if !bind(c, &req) {
		return
	}
	ret, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, ret)
}

func (h *ReturnHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	NoContent(c)
}
