package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bitfantasy/nimo-erp/internal/erp/service"
	"github.com/gin-gonic/gin"
)

// ============================================================
// Product Handler
// ============================================================

type ProductHandler struct {
	svc *service.ProductService
}

func NewProductHandler(svc *service.ProductService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

func (h *ProductHandler) List(c *gin.Context) {
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

func (h *ProductHandler) Get(c *gin.Context) {
	prod, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, prod)
}

func (h *ProductHandler) Create(c *gin.Context) {
	var req service.ProductRequest
	if !bind(c, &req) {
		return
	}
	prod, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, prod)
}

func (h *ProductHandler) Update(c *gin.Context) {
	var req service.ProductPatch
	if !bind(c, &req) {
		return
	}
	prod, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, prod)
}

func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	NoContent(c)
}

// Import POST /technical/products/import，multipart 字段 file，支持 csv/xlsx
func (h *ProductHandler) Import(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		BadRequest(c, "请上传CSV或Excel文件")
		return
	}
	defer file.Close()

	result, err := h.svc.Import(c.Request.Context(), GetUserID(c), header.Filename, file)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, result)
}

// ============================================================
// BOM Handler
// ============================================================

type BOMHandler struct {
	svc *service.BOMService
}

func NewBOMHandler(svc *service.BOMService) *BOMHandler {
	return &BOMHandler{svc: svc}
}

func (h *BOMHandler) List(c *gin.Context) {
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

func (h *BOMHandler) Get(c *gin.Context) {
	bom, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, bom)
}

// GetDefault GET /technical/boms/product/:product_id
func (h *BOMHandler) GetDefault(c *gin.Context) {
	bom, err := h.svc.GetDefault(c.Request.Context(), c.Param("product_id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, bom)
}

func (h *BOMHandler) Create(c *gin.Context) {
	var req service.CreateBOMRequest
	if !bind(c, &req) {
		return
	}
	bom, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, bom)
}

func (h *BOMHandler) Update(c *gin.Context) {
	var req service.UpdateBOMRequest
	if !bind(c, &req) {
		return
	}
	bom, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, bom)
}

func (h *BOMHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	NoContent(c)
}

func (h *BOMHandler) AddItem(c *gin.Context) {
	var req service.BOMItemRequest
	if !bind(c, &req) {
		return
	}
	bom, err := h.svc.AddItem(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, bom)
}

func (h *BOMHandler) UpdateItem(c *gin.Context) {
	var req service.BOMItemPatch
	if !bind(c, &req) {
		return
	}
	bom, err := h.svc.UpdateItem(c.Request.Context(), c.Param("id"), c.Param("item_id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, bom)
}

func (h *BOMHandler) DeleteItem(c *gin.Context) {
	bom, err := h.svc.DeleteItem(c.Request.Context(), c.Param("id"), c.Param("item_id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, bom)
}

func (h *BOMHandler) Copy(c *gin.Context) {
	var req service.CopyBOMRequest
	if !bind(c, &req) {
		return
	}
	bom, err := h.svc.Copy(c.Request.Context(), GetUserID(c), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, bom)
}

// Cost GET /technical/boms/:id/cost
func (h *BOMHandler) Cost(c *gin.Context) {
	cost, err := h.svc.Cost(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, cost)
}

// Requirements GET /technical/boms/:id/requirements?quantity=
func (h *BOMHandler) Requirements(c *gin.Context) {
	quantity := 1.0
	if v := c.Query("quantity"); v != "" {
		q, err := strconv.ParseFloat(v, 64)
		if err != nil {
			BadRequest(c, "quantity 必须是数字")
			return
		}
		quantity = q
	}
	reqs, err := h.svc.Requirements(c.Request.Context(), c.Param("id"), quantity)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, gin.H{"quantity": quantity, "items": reqs})
}

func (h *BOMHandler) Export(c *gin.Context) {
	f, filename, err := h.svc.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	sendExcel(c, f, filename)
}

// ============================================================
// Routing Handler：工作中心、标准工序、工艺路线
// ============================================================

type RoutingHandler struct {
	svc *service.RoutingService
}

func NewRoutingHandler(svc *service.RoutingService) *RoutingHandler {
	return &RoutingHandler{svc: svc}
}

func (h *RoutingHandler) ListWorkCenters(c *gin.Context) {
	p, ok := listParams(c)
	if !ok {
		return
	}
	page, err := h.svc.ListWorkCenters(c.Request.Context(), p)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, page)
}

func (h *RoutingHandler) GetWorkCenter(c *gin.Context) {
	wc, err := h.svc.GetWorkCenter(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, wc)
}

func (h *RoutingHandler) CreateWorkCenter(c *gin.Context) {
	var req service.WorkCenterRequest
	if !bind(c, &req) {
		return
	}
	wc, err := h.svc.CreateWorkCenter(c.Request.Context(), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, wc)
}

func (h *RoutingHandler) UpdateWorkCenter(c *gin.Context) {
	var req service.WorkCenterPatch
	if !bind(c, &req) {
		return
	}
	wc, err := h.svc.UpdateWorkCenter(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, wc)
}

func (h *RoutingHandler) DeleteWorkCenter(c *gin.Context) {
	if err := h.svc.DeleteWorkCenter(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	NoContent(c)
}

func (h *RoutingHandler) ListOperations(c *gin.Context) {
	p, ok := listParams(c)
	if !ok {
		return
	}
	page, err := h.svc.ListOperations(c.Request.Context(), p, c.Query("work_center_id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, page)
}

func (h *RoutingHandler) GetOperation(c *gin.Context) {
	op, err := h.svc.GetOperation(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, op)
}

func (h *RoutingHandler) CreateOperation(c *gin.Context) {
	var req service.OperationRequest
	if !bind(c, &req) {
		return
	}
	op, err := h.svc.CreateOperation(c.Request.Context(), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, op)
}

func (h *RoutingHandler) UpdateOperation(c *gin.Context) {
	var req service.OperationPatch
	if !bind(c, &req) {
		return
	}
	op, err := h.svc.UpdateOperation(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, op)
}

func (h *RoutingHandler) DeleteOperation(c *gin.Context) {
	if err := h.svc.DeleteOperation(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	NoContent(c)
}

func (h *RoutingHandler) ListRoutes(c *gin.Context) {
	p, ok := listParams(c)
	if !ok {
		return
	}
	page, err := h.svc.ListRoutes(c.Request.Context(), p)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, page)
}

func (h *RoutingHandler) GetRoute(c *gin.Context) {
	route, err := h.svc.GetRoute(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, route)
}

func (h *RoutingHandler) CreateRoute(c *gin.Context) {
	var req service.CreateRouteRequest
	if !bind(c, &req) {
		return
	}
	route, err := h.svc.CreateRoute(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, route)
}

func (h *RoutingHandler) UpdateRoute(c *gin.Context) {
	var req service.UpdateRouteRequest
	if !bind(c, &req) {
		return
	}
	route, err := h.svc.UpdateRoute(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, route)
}

func (h *RoutingHandler) DeleteRoute(c *gin.Context) {
	if err := h.svc.DeleteRoute(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	NoContent(c)
}

func (h *RoutingHandler) AddOperation(c *gin.Context) {
	var req service.RouteOperationRequest
	if !bind(c, &req) {
		return
	}
	route, err := h.svc.AddOperation(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, route)
}

func (h *RoutingHandler) RemoveOperation(c *gin.Context) {
	route, err := h.svc.RemoveOperation(c.Request.Context(), c.Param("id"), c.Param("op_id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, route)
}

// ============================================================
// Document Handler
// ============================================================

type DocumentHandler struct {
	svc           *service.DocumentService
	maxUploadSize int64
}

func NewDocumentHandler(svc *service.DocumentService, maxUploadSize int64) *DocumentHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = 32 << 20
	}
	return &DocumentHandler{svc: svc, maxUploadSize: maxUploadSize}
}

func (h *DocumentHandler) List(c *gin.Context) {
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

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, doc)
}

// Upload POST /technical/documents，multipart 字段 file 及 title/doc_type/product_id/version/description
func (h *DocumentHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		BadRequest(c, "请上传文件")
		return
	}
	defer file.Close()

	in := service.UploadInput{
		Title:       c.PostForm("title"),
		DocType:     c.PostForm("doc_type"),
		ProductID:   c.PostForm("product_id"),
		Version:     c.PostForm("version"),
		Description: c.PostForm("description"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	}
	doc, err := h.svc.Upload(c.Request.Context(), GetUserID(c), in, file)
	if err != nil {
		Fail(c, err)
		return
	}
	Created(c, doc)
}

// Download GET /technical/documents/:id/download
func (h *DocumentHandler) Download(c *gin.Context) {
	doc, rc, err := h.svc.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	defer rc.Close()

	disposition := fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(doc.FileName))
	c.DataFromReader(http.StatusOK, doc.FileSize, doc.ContentType, rc, map[string]string{
		"Content-Disposition": disposition,
	})
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		Fail(c, err)
		return
	}
	NoContent(c)
}
