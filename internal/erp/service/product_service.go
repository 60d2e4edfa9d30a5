package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// ProductService 产品主数据
type ProductService struct {
	base
}

func NewProductService(b base) *ProductService {
	return &ProductService{base: b}
}

type ProductRequest struct {
	Code          string  `json:"code" binding:"required,max=50"`
	Name          string  `json:"name" binding:"required,max=200"`
	Description   string  `json:"description"`
	Category      string  `json:"category" binding:"omitempty,oneof=raw_material component semi_finished finished service"`
	UOM           string  `json:"uom" binding:"omitempty,oneof=piece kg meter liter hour set package"`
	Specification string  `json:"specification"`
	StandardCost  float64 `json:"standard_cost" binding:"gte=0"`
	CurrentCost   float64 `json:"current_cost" binding:"gte=0"`
	SellingPrice  float64 `json:"selling_price" binding:"gte=0"`
	MinimumPrice  float64 `json:"minimum_price" binding:"gte=0"`
	TaxRate       float64 `json:"tax_rate" binding:"gte=0,lte=100"`
	Barcode       string  `json:"barcode"`
	MinStockLevel float64 `json:"min_stock_level" binding:"gte=0"`
	MaxStockLevel float64 `json:"max_stock_level" binding:"gte=0"`
	ReorderLevel  float64 `json:"reorder_level" binding:"gte=0"`
	LeadTimeDays  int     `json:"lead_time_days" binding:"gte=0"`
	IsActive      *bool   `json:"is_active"`
	IsPurchasable *bool   `json:"is_purchasable"`
	IsSellable    *bool   `json:"is_sellable"`
	IsStockable   *bool   `json:"is_stockable"`
}

type ProductPatch struct {
	Code          *string  `json:"code" binding:"omitempty,max=50"`
	Name          *string  `json:"name" binding:"omitempty,max=200"`
	Description   *string  `json:"description"`
	Category      *string  `json:"category" binding:"omitempty,oneof=raw_material component semi_finished finished service"`
	UOM           *string  `json:"uom" binding:"omitempty,oneof=piece kg meter liter hour set package"`
	Specification *string  `json:"specification"`
	StandardCost  *float64 `json:"standard_cost" binding:"omitempty,gte=0"`
	CurrentCost   *float64 `json:"current_cost" binding:"omitempty,gte=0"`
	SellingPrice  *float64 `json:"selling_price" binding:"omitempty,gte=0"`
	MinimumPrice  *float64 `json:"minimum_price" binding:"omitempty,gte=0"`
	TaxRate       *float64 `json:"tax_rate" binding:"omitempty,gte=0,lte=100"`
	Barcode       *string  `json:"barcode"`
	MinStockLevel *float64 `json:"min_stock_level" binding:"omitempty,gte=0"`
	MaxStockLevel *float64 `json:"max_stock_level" binding:"omitempty,gte=0"`
	ReorderLevel  *float64 `json:"reorder_level" binding:"omitempty,gte=0"`
	LeadTimeDays  *int     `json:"lead_time_days" binding:"omitempty,gte=0"`
	IsActive      *bool    `json:"is_active"`
	IsPurchasable *bool    `json:"is_purchasable"`
	IsSellable    *bool    `json:"is_sellable"`
	IsStockable   *bool    `json:"is_stockable"`
}

func (p *ProductPatch) apply(prod *entity.Product) {
	setS(&prod.Code, p.Code)
	setS(&prod.Name, p.Name)
	setS(&prod.Description, p.Description)
	setS(&prod.Category, p.Category)
	setS(&prod.UOM, p.UOM)
	setS(&prod.Specification, p.Specification)
	setF(&prod.StandardCost, p.StandardCost)
	setF(&prod.CurrentCost, p.CurrentCost)
	setF(&prod.SellingPrice, p.SellingPrice)
	setF(&prod.MinimumPrice, p.MinimumPrice)
	setF(&prod.TaxRate, p.TaxRate)
	setS(&prod.Barcode, p.Barcode)
	setF(&prod.MinStockLevel, p.MinStockLevel)
	setF(&prod.MaxStockLevel, p.MaxStockLevel)
	setF(&prod.ReorderLevel, p.ReorderLevel)
	setI(&prod.LeadTimeDays, p.LeadTimeDays)
	setB(&prod.IsActive, p.IsActive)
	setB(&prod.IsPurchasable, p.IsPurchasable)
	setB(&prod.IsSellable, p.IsSellable)
	setB(&prod.IsStockable, p.IsStockable)
}

func (s *ProductService) List(ctx context.Context, p repository.ListParams) (*Page[entity.Product], error) {
	list, total, err := s.repos.Product.FindAll(ctx, p)
	return listPage(list, total, err, p)
}

func (s *ProductService) Get(ctx context.Context, id string) (*entity.Product, error) {
	prod, err := s.repos.Product.FindByID(ctx, id)
	return prod, translate(err, "产品")
}

func newProduct(userID string, req *ProductRequest) *entity.Product {
	prod := &entity.Product{
		ID:            uuid.New().String(),
		Code:          strings.TrimSpace(req.Code),
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		UOM:           req.UOM,
		Specification: req.Specification,
		StandardCost:  req.StandardCost,
		CurrentCost:   req.CurrentCost,
		SellingPrice:  req.SellingPrice,
		MinimumPrice:  req.MinimumPrice,
		TaxRate:       req.TaxRate,
		Barcode:       req.Barcode,
		MinStockLevel: req.MinStockLevel,
		MaxStockLevel: req.MaxStockLevel,
		ReorderLevel:  req.ReorderLevel,
		LeadTimeDays:  req.LeadTimeDays,
		IsActive:      boolOr(req.IsActive, true),
		IsPurchasable: boolOr(req.IsPurchasable, true),
		IsSellable:    boolOr(req.IsSellable, true),
		IsStockable:   boolOr(req.IsStockable, true),
		CreatedBy:     userID,
	}
	if prod.Category == "" {
		prod.Category = entity.CategoryRawMaterial
	}
	if prod.UOM == "" {
		prod.UOM = entity.UOMPiece
	}
	return prod
}

func (s *ProductService) Create(ctx context.Context, userID string, req *ProductRequest) (*entity.Product, error) {
	taken, err := s.repos.Product.CodeTaken(ctx, strings.TrimSpace(req.Code), "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, conflictError("产品编码 %s 已存在", req.Code)
	}
	prod := newProduct(userID, req)
	if err := s.repos.Product.Create(ctx, prod); err != nil {
		return nil, translate(err, "产品")
	}
	return prod, nil
}

func (s *ProductService) Update(ctx context.Context, id string, req *ProductPatch) (*entity.Product, error) {
	prod, err := s.repos.Product.FindByID(ctx, id)
	if err != nil {
		return nil, translate(err, "产品")
	}
	if req.Code != nil && *req.Code != prod.Code {
		taken, err := s.repos.Product.CodeTaken(ctx, *req.Code, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, conflictError("产品编码 %s 已存在", *req.Code)
		}
	}
	req.apply(prod)
	if err := s.repos.Product.Update(ctx, prod); err != nil {
		return nil, translate(err, "产品")
	}
	return prod, nil
}

// Delete 被BOM引用的产品不能删除
func (s *ProductService) Delete(ctx context.Context, id string) error {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.Product.FindByID(ctx, id); err != nil {
			return err
		}
		used, err := r.Product.IsReferencedByBOM(ctx, id)
		if err != nil {
			return err
		}
		if used {
			return stateError("产品已被BOM引用，不能删除")
		}
		return r.Product.Delete(ctx, id)
	})
	return translate(err, "产品")
}

// ImportResult 导入结果
type ImportResult struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// Import 从 csv（UTF-8 或 GBK）或 xlsx 导入产品，按编码新增或更新。首行为表头。
func (s *ProductService) Import(ctx context.Context, userID, filename string, reader io.Reader) (*ImportResult, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		rows, err = readExcelRows(reader)
	case ".csv":
		rows, err = readCSVRows(reader)
	default:
		return nil, validationError("仅支持 .csv 或 .xlsx 文件")
	}
	if err != nil {
		return nil, validationError("文件解析失败: %v", err)
	}

	result := &ImportResult{Errors: []string{}}
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		req, err := parseProductRow(row)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行: %v", i+1, err))
			continue
		}
		created, err := s.upsert(ctx, userID, req)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("第%d行: %v", i+1, err))
			continue
		}
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}
	return result, nil
}

func (s *ProductService) upsert(ctx context.Context, userID string, req *ProductRequest) (bool, error) {
	existing, err := s.repos.Product.FindByCode(ctx, req.Code)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return true, translate(s.repos.Product.Create(ctx, newProduct(userID, req)), "产品")
	case err != nil:
		return false, err
	}
	existing.Name = req.Name
	existing.Specification = req.Specification
	existing.StandardCost = req.StandardCost
	existing.SellingPrice = req.SellingPrice
	existing.TaxRate = req.TaxRate
	if req.Category != "" {
		existing.Category = req.Category
	}
	if req.UOM != "" {
		existing.UOM = req.UOM
	}
	if req.Barcode != "" {
		existing.Barcode = req.Barcode
	}
	if req.Description != "" {
		existing.Description = req.Description
	}
	return false, s.repos.Product.Update(ctx, existing)
}

// parseProductRow 列顺序：编码、名称、类别、单位、规格、标准成本、销售价、税率、条码、描述
func parseProductRow(row []string) (*ProductRequest, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}
	num := func(i int, name string) (float64, error) {
		v := cell(i)
		if v == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return 0, fmt.Errorf("%s无效: %q", name, v)
		}
		return f, nil
	}

	req := &ProductRequest{
		Code:          cell(0),
		Name:          cell(1),
		Category:      cell(2),
		UOM:           cell(3),
		Specification: cell(4),
		Barcode:       cell(8),
		Description:   cell(9),
	}
	if req.Name == "" {
		return nil, fmt.Errorf("名称不能为空")
	}
	if req.Category != "" && !contains(entity.ProductCategories, req.Category) {
		return nil, fmt.Errorf("类别无效: %q", req.Category)
	}
	if req.UOM != "" && !contains(entity.UnitsOfMeasure, req.UOM) {
		return nil, fmt.Errorf("单位无效: %q", req.UOM)
	}
	var err error
	if req.StandardCost, err = num(5, "标准成本"); err != nil {
		return nil, err
	}
	if req.SellingPrice, err = num(6, "销售价"); err != nil {
		return nil, err
	}
	if req.TaxRate, err = num(7, "税率"); err != nil {
		return nil, err
	}
	if req.TaxRate > 100 {
		return nil, fmt.Errorf("税率超出范围: %.2f", req.TaxRate)
	}
	return req, nil
}

func readExcelRows(reader io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.GetRows(f.GetSheetName(0))
}

// readCSVRows 非 UTF-8 内容按 GBK 解码
func readCSVRows(reader io.Reader) ([][]string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	var src io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		src = transform.NewReader(src, simplifiedchinese.GBK.NewDecoder())
	}
	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	return r.ReadAll()
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
