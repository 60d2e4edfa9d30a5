package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/repository"
	"github.com/bitfantasy/nimo-erp/internal/erp/workflow"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// BOMService 物料清单
type BOMService struct {
	base
}

func NewBOMService(b base) *BOMService {
	return &BOMService{base: b}
}

type BOMItemRequest struct {
	ComponentID string  `json:"component_id" binding:"required"`
	Position    int     `json:"position" binding:"gte=0"`
	Quantity    float64 `json:"quantity" binding:"gt=0"`
	Unit        string  `json:"unit"`
	ScrapRate   float64 `json:"scrap_rate" binding:"gte=0,lte=100"`
	IsCritical  bool    `json:"is_critical"`
	Notes       string  `json:"notes"`
}

type BOMItemPatch struct {
	ComponentID *string  `json:"component_id"`
	Position    *int     `json:"position" binding:"omitempty,gte=0"`
	Quantity    *float64 `json:"quantity" binding:"omitempty,gt=0"`
	Unit        *string  `json:"unit"`
	ScrapRate   *float64 `json:"scrap_rate" binding:"omitempty,gte=0,lte=100"`
	IsCritical  *bool    `json:"is_critical"`
	Notes       *string  `json:"notes"`
}

type CreateBOMRequest struct {
	ProductID     string           `json:"product_id" binding:"required"`
	Code          string           `json:"code" binding:"required,max=50"`
	Name          string           `json:"name" binding:"required,max=200"`
	Version       string           `json:"version"`
	BOMType       string           `json:"bom_type" binding:"omitempty,oneof=manufacturing engineering sales template"`
	IsDefault     bool             `json:"is_default"`
	IsActive      *bool            `json:"is_active"`
	EffectiveFrom *Date            `json:"effective_from"`
	EffectiveTo   *Date            `json:"effective_to"`
	Notes         string           `json:"notes"`
	Items         []BOMItemRequest `json:"items" binding:"dive"`
}

type UpdateBOMRequest struct {
	Code          *string `json:"code" binding:"omitempty,max=50"`
	Name          *string `json:"name" binding:"omitempty,max=200"`
	Version       *string `json:"version"`
	BOMType       *string `json:"bom_type" binding:"omitempty,oneof=manufacturing engineering sales template"`
	IsDefault     *bool   `json:"is_default"`
	IsActive      *bool   `json:"is_active"`
	EffectiveFrom *Date   `json:"effective_from"`
	EffectiveTo   *Date   `json:"effective_to"`
	Notes         *string `json:"notes"`
}

type CopyBOMRequest struct {
	Code      string  `json:"code" binding:"required,max=50"`
	Name      string  `json:"name"`
	Version   string  `json:"version"`
	ProductID *string `json:"product_id"`
}

func (s *BOMService) List(ctx context.Context, p repository.ListParams) (*Page[entity.BOM], error) {
	list, total, err := s.repos.BOM.FindAll(ctx, p)
	return listPage(list, total, err, p)
}

func (s *BOMService) Get(ctx context.Context, id string) (*entity.BOM, error) {
	bom, err := s.repos.BOM.FindByID(ctx, id, false)
	return bom, translate(err, "BOM")
}

// GetDefault 产品的默认BOM
func (s *BOMService) GetDefault(ctx context.Context, productID string) (*entity.BOM, error) {
	bom, err := s.repos.BOM.FindDefault(ctx, productID)
	return bom, translate(err, "默认BOM")
}

func (s *BOMService) checkCode(ctx context.Context, r *repository.Repositories, code, exceptID string) error {
	taken, err := r.BOM.CodeTaken(ctx, code, exceptID)
	if err != nil {
		return err
	}
	if taken {
		return conflictError("BOM编码 %s 已存在", code)
	}
	return nil
}

// checkComponent 组件必须存在，不能是成品本身，也不能在下级BOM中反向引用成品
func checkComponent(ctx context.Context, r *repository.Repositories, productID, componentID string) error {
	if componentID == productID {
		return validationError("组件不能是BOM成品本身")
	}
	if _, err := r.Product.FindByID(ctx, componentID); err != nil {
		return translate(err, "组件")
	}
	reqs, err := workflow.Explode(componentID, 1, defaultComponents(ctx, r))
	if err != nil {
		return translate(err, "BOM")
	}
	if _, ok := reqs[productID]; ok {
		return validationError("%v: 组件的下级BOM引用了成品", workflow.ErrBOMCycle)
	}
	return nil
}

// defaultComponents 以产品默认BOM作为展开来源
func defaultComponents(ctx context.Context, r *repository.Repositories) workflow.ComponentSource {
	return func(productID string) ([]workflow.Component, error) {
		items, err := r.BOM.DefaultItems(ctx, productID)
		if err != nil {
			return nil, err
		}
		return toComponents(items), nil
	}
}

func toComponents(items []entity.BOMItem) []workflow.Component {
	out := make([]workflow.Component, len(items))
	for i, it := range items {
		out[i] = workflow.Component{ProductID: it.ComponentID, Quantity: it.Quantity, ScrapRate: it.ScrapRate}
	}
	return out
}

func newBOMItem(bomID string, position int, in BOMItemRequest) entity.BOMItem {
	if in.Position > 0 {
		position = in.Position
	}
	return entity.BOMItem{
		ID:          uuid.New().String(),
		BOMID:       bomID,
		ComponentID: in.ComponentID,
		Position:    position,
		Quantity:    in.Quantity,
		Unit:        in.Unit,
		ScrapRate:   in.ScrapRate,
		IsCritical:  in.IsCritical,
		Notes:       in.Notes,
	}
}

func (s *BOMService) Create(ctx context.Context, userID string, req *CreateBOMRequest) (*entity.BOM, error) {
	var bomID string
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.Product.FindByID(ctx, req.ProductID); err != nil {
			return translate(err, "产品")
		}
		if err := s.checkCode(ctx, r, req.Code, ""); err != nil {
			return err
		}
		bom := &entity.BOM{
			ID:            uuid.New().String(),
			ProductID:     req.ProductID,
			Code:          req.Code,
			Name:          req.Name,
			Version:       req.Version,
			BOMType:       req.BOMType,
			IsDefault:     req.IsDefault,
			IsActive:      boolOr(req.IsActive, true),
			EffectiveFrom: req.EffectiveFrom.Ptr(),
			EffectiveTo:   req.EffectiveTo.Ptr(),
			Notes:         req.Notes,
			CreatedBy:     userID,
		}
		if bom.Version == "" {
			bom.Version = "1.0"
		}
		if bom.BOMType == "" {
			bom.BOMType = entity.BOMTypeManufacturing
		}
		for i, in := range req.Items {
			if err := checkComponent(ctx, r, bom.ProductID, in.ComponentID); err != nil {
				return err
			}
			bom.Items = append(bom.Items, newBOMItem(bom.ID, i+1, in))
		}
		if bom.IsDefault {
			if err := r.BOM.ClearDefault(ctx, bom.ProductID, bom.ID); err != nil {
				return err
			}
		}
		if err := r.BOM.Create(ctx, bom); err != nil {
			return err
		}
		bomID = bom.ID
		return nil
	})
	if err != nil {
		return nil, translate(err, "BOM")
	}
	return s.Get(ctx, bomID)
}

func (s *BOMService) Update(ctx context.Context, id string, req *UpdateBOMRequest) (*entity.BOM, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		bom, err := r.BOM.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if req.Code != nil && *req.Code != bom.Code {
			if err := s.checkCode(ctx, r, *req.Code, id); err != nil {
				return err
			}
		}
		setS(&bom.Code, req.Code)
		setS(&bom.Name, req.Name)
		setS(&bom.Version, req.Version)
		setS(&bom.BOMType, req.BOMType)
		setB(&bom.IsDefault, req.IsDefault)
		setB(&bom.IsActive, req.IsActive)
		setDate(&bom.EffectiveFrom, req.EffectiveFrom)
		setDate(&bom.EffectiveTo, req.EffectiveTo)
		setS(&bom.Notes, req.Notes)
		if bom.IsDefault {
			if err := r.BOM.ClearDefault(ctx, bom.ProductID, bom.ID); err != nil {
				return err
			}
		}
		return r.BOM.Update(ctx, bom)
	})
	if err != nil {
		return nil, translate(err, "BOM")
	}
	return s.Get(ctx, id)
}

func (s *BOMService) Delete(ctx context.Context, id string) error {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.BOM.FindByID(ctx, id, true); err != nil {
			return err
		}
		return r.BOM.Delete(ctx, id)
	})
	return translate(err, "BOM")
}

func (s *BOMService) AddItem(ctx context.Context, id string, req *BOMItemRequest) (*entity.BOM, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		bom, err := r.BOM.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		if err := checkComponent(ctx, r, bom.ProductID, req.ComponentID); err != nil {
			return err
		}
		pos, err := r.BOM.NextPosition(ctx, id)
		if err != nil {
			return err
		}
		item := newBOMItem(id, pos, *req)
		return r.BOM.CreateItem(ctx, &item)
	})
	if err != nil {
		return nil, translate(err, "BOM")
	}
	return s.Get(ctx, id)
}

func (s *BOMService) UpdateItem(ctx context.Context, id, itemID string, req *BOMItemPatch) (*entity.BOM, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		bom, err := r.BOM.FindByID(ctx, id, true)
		if err != nil {
			return err
		}
		item, err := r.BOM.FindItem(ctx, id, itemID)
		if err != nil {
			return translate(err, "BOM行项")
		}
		if req.ComponentID != nil && *req.ComponentID != item.ComponentID {
			if err := checkComponent(ctx, r, bom.ProductID, *req.ComponentID); err != nil {
				return err
			}
			item.ComponentID = *req.ComponentID
		}
		setI(&item.Position, req.Position)
		setF(&item.Quantity, req.Quantity)
		setS(&item.Unit, req.Unit)
		setF(&item.ScrapRate, req.ScrapRate)
		setB(&item.IsCritical, req.IsCritical)
		setS(&item.Notes, req.Notes)
		return r.BOM.UpdateItem(ctx, item)
	})
	if err != nil {
		return nil, translate(err, "BOM")
	}
	return s.Get(ctx, id)
}

func (s *BOMService) DeleteItem(ctx context.Context, id, itemID string) (*entity.BOM, error) {
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.BOM.FindByID(ctx, id, true); err != nil {
			return err
		}
		if _, err := r.BOM.FindItem(ctx, id, itemID); err != nil {
			return translate(err, "BOM行项")
		}
		return r.BOM.DeleteItem(ctx, itemID)
	})
	if err != nil {
		return nil, translate(err, "BOM")
	}
	return s.Get(ctx, id)
}

// Copy 复制BOM及其行项，新BOM不是默认BOM
func (s *BOMService) Copy(ctx context.Context, userID, id string, req *CopyBOMRequest) (*entity.BOM, error) {
	var newID string
	err := s.inTx(ctx, func(r *repository.Repositories) error {
		src, err := r.BOM.FindByID(ctx, id, false)
		if err != nil {
			return err
		}
		if err := s.checkCode(ctx, r, req.Code, ""); err != nil {
			return err
		}
		productID := src.ProductID
		if req.ProductID != nil && *req.ProductID != "" && *req.ProductID != productID {
			if _, err := r.Product.FindByID(ctx, *req.ProductID); err != nil {
				return translate(err, "产品")
			}
			productID = *req.ProductID
		}
		bom := &entity.BOM{
			ID:            uuid.New().String(),
			ProductID:     productID,
			Code:          req.Code,
			Name:          req.Name,
			Version:       req.Version,
			BOMType:       src.BOMType,
			IsActive:      src.IsActive,
			EffectiveFrom: src.EffectiveFrom,
			EffectiveTo:   src.EffectiveTo,
			Notes:         src.Notes,
			CreatedBy:     userID,
		}
		if bom.Name == "" {
			bom.Name = src.Name
		}
		if bom.Version == "" {
			bom.Version = src.Version
		}
		for _, it := range src.Items {
			if productID != src.ProductID {
				if err := checkComponent(ctx, r, productID, it.ComponentID); err != nil {
					return err
				}
			}
			bom.Items = append(bom.Items, entity.BOMItem{
				ID:          uuid.New().String(),
				BOMID:       bom.ID,
				ComponentID: it.ComponentID,
				Position:    it.Position,
				Quantity:    it.Quantity,
				Unit:        it.Unit,
				ScrapRate:   it.ScrapRate,
				IsCritical:  it.IsCritical,
				Notes:       it.Notes,
			})
		}
		if err := r.BOM.Create(ctx, bom); err != nil {
			return err
		}
		newID = bom.ID
		return nil
	})
	if err != nil {
		return nil, translate(err, "BOM")
	}
	return s.Get(ctx, newID)
}

// CostLine BOM成本明细
type CostLine struct {
	ComponentID   string  `json:"component_id"`
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	Quantity      float64 `json:"quantity"`
	GrossQuantity float64 `json:"gross_quantity"`
	UnitCost      float64 `json:"unit_cost"`
	LineCost      float64 `json:"line_cost"`
}

// BOMCost 单层BOM成本，按组件标准成本计算
type BOMCost struct {
	BOMID     string     `json:"bom_id"`
	ProductID string     `json:"product_id"`
	Lines     []CostLine `json:"lines"`
	TotalCost float64    `json:"total_cost"`
}

func calculateCost(bom *entity.BOM) *BOMCost {
	cost := &BOMCost{BOMID: bom.ID, ProductID: bom.ProductID, Lines: []CostLine{}}
	var total float64
	for _, it := range bom.Items {
		line := CostLine{
			ComponentID:   it.ComponentID,
			Quantity:      it.Quantity,
			GrossQuantity: workflow.GrossQuantity(workflow.Component{Quantity: it.Quantity, ScrapRate: it.ScrapRate}),
		}
		if it.Component != nil {
			line.Code, line.Name = it.Component.Code, it.Component.Name
			line.UnitCost = it.Component.StandardCost
		}
		line.LineCost = workflow.Round2(line.GrossQuantity * line.UnitCost)
		total += line.GrossQuantity * line.UnitCost
		cost.Lines = append(cost.Lines, line)
	}
	cost.TotalCost = workflow.Round2(total)
	return cost
}

func (s *BOMService) Cost(ctx context.Context, id string) (*BOMCost, error) {
	bom, err := s.repos.BOM.FindByID(ctx, id, false)
	if err != nil {
		return nil, translate(err, "BOM")
	}
	return calculateCost(bom), nil
}

// Requirement 展开后的物料需求
type Requirement struct {
	ProductID string  `json:"product_id"`
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	UOM       string  `json:"uom"`
	Quantity  float64 `json:"quantity"`
}

// Requirements 按该BOM展开第一层，下级按各组件的默认BOM继续展开
func (s *BOMService) Requirements(ctx context.Context, id string, quantity float64) ([]Requirement, error) {
	if quantity <= 0 {
		return nil, validationError("quantity 必须大于0")
	}
	bom, err := s.repos.BOM.FindByID(ctx, id, false)
	if err != nil {
		return nil, translate(err, "BOM")
	}
	next := defaultComponents(ctx, s.repos)
	source := func(productID string) ([]workflow.Component, error) {
		if productID == bom.ProductID {
			return toComponents(bom.Items), nil
		}
		return next(productID)
	}
	reqs, err := workflow.Explode(bom.ProductID, quantity, source)
	if err != nil {
		return nil, translate(err, "BOM")
	}
	return s.describe(ctx, reqs)
}

func (s *BOMService) describe(ctx context.Context, reqs map[string]float64) ([]Requirement, error) {
	ids := make([]string, 0, len(reqs))
	for id := range reqs {
		ids = append(ids, id)
	}
	products, err := s.repos.Product.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Requirement, 0, len(reqs))
	for id, qty := range reqs {
		p := products[id]
		out = append(out, Requirement{ProductID: id, Code: p.Code, Name: p.Name, UOM: p.UOM, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Code != out[j].Code {
			return out[i].Code < out[j].Code
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out, nil
}

var bomExportHeaders = []string{"序号", "组件编码", "组件名称", "规格", "数量", "单位", "损耗率%", "关键件", "单价", "金额", "备注"}

// Export 导出BOM为xlsx
func (s *BOMService) Export(ctx context.Context, id string) (*excelize.File, string, error) {
	bom, err := s.repos.BOM.FindByID(ctx, id, false)
	if err != nil {
		return nil, "", translate(err, "BOM")
	}
	cost := calculateCost(bom)

	f := excelize.NewFile()
	sheet := "BOM"
	f.SetSheetName("Sheet1", sheet)
	w, err := newSheet(f, sheet, bomExportHeaders, []float64{6, 16, 24, 24, 10, 8, 10, 8, 10, 12, 24})
	if err != nil {
		f.Close()
		return nil, "", err
	}
	for i, it := range bom.Items {
		code, name, spec, unit := "", "", "", it.Unit
		if it.Component != nil {
			code, name, spec = it.Component.Code, it.Component.Name, it.Component.Specification
			if unit == "" {
				unit = it.Component.UOM
			}
		}
		critical := "否"
		if it.IsCritical {
			critical = "是"
		}
		line := cost.Lines[i]
		if err := w.append(it.Position, code, name, spec, it.Quantity, unit, it.ScrapRate, critical, line.UnitCost, line.LineCost, it.Notes); err != nil {
			f.Close()
			return nil, "", err
		}
	}
	if err := w.summary("合计", "", fmt.Sprintf("共 %d 项", len(bom.Items)), "", "", "", "", "", "", cost.TotalCost, ""); err != nil {
		f.Close()
		return nil, "", err
	}

	productCode := bom.Code
	if bom.Product != nil {
		productCode = bom.Product.Code
	}
	filename := fmt.Sprintf("%s_BOM_v%s_%s.xlsx", productCode, bom.Version, time.Now().Format("20060102"))
	return f, filename, nil
}
