package handler

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/config"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/bitfantasy/nimo-erp/internal/erp/service"
	"github.com/bitfantasy/nimo-erp/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// Handlers 处理器集合
type Handlers struct {
	Auth       *AuthHandler
	User       *UserHandler
	Customer   *CustomerHandler
	Quotation  *QuotationHandler
	SalesOrder *SalesOrderHandler
	Delivery   *DeliveryHandler
	Invoice    *InvoiceHandler
	Return     *ReturnHandler
	Product    *ProductHandler
	BOM        *BOMHandler
	Routing    *RoutingHandler
	Document   *DocumentHandler
	WorkOrder  *WorkOrderHandler
	Planning   *PlanningHandler
	Purchase   *PurchaseHandler
	Inventory  *InventoryHandler
	Dashboard  *DashboardHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services, cfg *config.Config) *Handlers {
	return &Handlers{
		Auth:       NewAuthHandler(svc.Auth),
		User:       NewUserHandler(svc.User),
		Customer:   NewCustomerHandler(svc.Customer),
		Quotation:  NewQuotationHandler(svc.Quotation),
		SalesOrder: NewSalesOrderHandler(svc.SalesOrder),
		Delivery:   NewDeliveryHandler(svc.Delivery),
		Invoice:    NewInvoiceHandler(svc.Invoice),
		Return:     NewReturnHandler(svc.Return),
		Product:    NewProductHandler(svc.Product),
		BOM:        NewBOMHandler(svc.BOM),
		Routing:    NewRoutingHandler(svc.Routing),
		Document:   NewDocumentHandler(svc.Document, cfg.Server.MaxUploadSize),
		WorkOrder:  NewWorkOrderHandler(svc.WorkOrder),
		Planning:   NewPlanningHandler(svc.Planning),
		Purchase:   NewPurchaseHandler(svc.Purchase),
		Inventory:  NewInventoryHandler(svc.Inventory),
		Dashboard:  NewDashboardHandler(svc.Dashboard),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// NoContent 删除成功，无响应体
func NoContent(c *gin.Context) {
	c.Status(204)
}

// Error 错误响应，HTTP状态码取业务码前三位
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.AbortWithStatusJSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Forbidden 禁止访问响应
func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// Fail 按业务错误类别返回，未分类的错误记入请求日志
func Fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		Error(c, 40400, err.Error())
	case errors.Is(err, service.ErrConflict):
		Error(c, 40900, err.Error())
	case errors.Is(err, service.ErrInvalidState):
		Error(c, 40010, err.Error())
	case errors.Is(err, service.ErrValidation):
		Error(c, 40000, err.Error())
	case errors.Is(err, service.ErrForbidden):
		Error(c, 40300, err.Error())
	case errors.Is(err, service.ErrUnauthorized):
		Error(c, 40100, err.Error())
	case errors.Is(err, service.ErrUnavailable):
		Error(c, 50300, err.Error())
	default:
		c.Error(err)
		InternalError(c, "服务器内部错误")
	}
}

// bind 绑定JSON请求体，失败时已写出响应
func bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return false
	}
	return true
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	return middleware.GetUserID(c)
}

func actor(c *gin.Context) service.Actor {
	return service.Actor{ID: middleware.GetUserID(c), Roles: middleware.GetRoles(c)}
}

// listParams 解析分页和过滤参数
func listParams(c *gin.Context) (repository.ListParams, bool) {
	p := repository.ListParams{
		Status:     c.Query("status"),
		CustomerID: c.Query("customer_id"),
		OrderID:    c.Query("order_id"),
		ProductID:  c.Query("product_id"),
		SupplierID: c.Query("supplier_id"),
		Keyword:    strings.TrimSpace(c.Query("keyword")),
	}
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			BadRequest(c, "page 必须是整数")
			return p, false
		}
		p.Page = n
	}
	if v := c.Query("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			BadRequest(c, "page_size 必须是整数")
			return p, false
		}
		p.PageSize = n
	}
	var ok bool
	if p.DateFrom, ok = queryDate(c, "date_from", false); !ok {
		return p, false
	}
	if p.DateTo, ok = queryDate(c, "date_to", true); !ok {
		return p, false
	}
	p.Normalize()
	return p, true
}

// queryDate date_to 取当天结束时刻
func queryDate(c *gin.Context, key string, endOfDay bool) (*time.Time, bool) {
	v := c.Query(key)
	if v == "" {
		return nil, true
	}
	t, err := time.ParseInLocation("2006-01-02", v, time.Local)
	if err != nil {
		BadRequest(c, key+" 格式应为 YYYY-MM-DD")
		return nil, false
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, true
}

// sendExcel 写出xlsx附件
func sendExcel(c *gin.Context, f *excelize.File, filename string) {
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		c.Error(err)
	}
}
