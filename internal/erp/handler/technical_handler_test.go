package handler

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/testutil"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// upload 发送 multipart 请求，fields 为附加表单字段
func (e *testEnv) upload(path, filename string, content []byte, fields map[string]string) *httptest.ResponseRecorder {
	e.t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		e.t.Fatalf("create form file: %v", err)
	}
	part.Write(content)
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	writer.Close()

	req, _ := http.NewRequest("POST", "/api/v1"+path, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+e.token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func bomBody(productID, code string, isDefault bool, lines ...interface{}) map[string]interface{} {
	items := []map[string]interface{}{}
	for i := 0; i+2 < len(lines); i += 3 {
		items = append(items, map[string]interface{}{"component_id": lines[i], "quantity": lines[i+1], "scrap_rate": lines[i+2]})
	}
	return map[string]interface{}{"product_id": productID, "code": code, "name": code, "is_default": isDefault, "items": items}
}

func TestProductCRUD(t *testing.T) {
	env := setupERPTest(t)

	p := env.mustDo("POST", "/technical/products", map[string]interface{}{
		"code": "RM-001", "name": "钢板", "category": "raw_material", "uom": "kg", "standard_cost": 12.5,
	}, http.StatusCreated)
	if str(p, "uom") != entity.UOMKg || p["is_active"] != true {
		t.Fatalf("unexpected product: %v", p)
	}

	env.expectStatus("POST", "/technical/products", map[string]interface{}{"code": "RM-001", "name": "重复"}, http.StatusConflict)
	env.expectStatus("POST", "/technical/products", map[string]interface{}{"code": "RM-002", "name": "x", "uom": "furlong"}, http.StatusBadRequest)

	p = env.mustDo("PUT", "/technical/products/"+idOf(p), map[string]interface{}{"standard_cost": 13}, http.StatusOK)
	assertNum(t, p, "standard_cost", 13)
	if str(p, "name") != "钢板" {
		t.Errorf("partial update lost name: %v", p)
	}

	list := env.mustDo("GET", "/technical/products?keyword=钢", nil, http.StatusOK)
	assertNum(t, list, "total", 1)
}

func TestProductDeleteRules(t *testing.T) {
	env := setupERPTest(t)
	fg := testutil.SeedProduct(t, env.db, "FG-001", entity.CategoryFinished, 0)
	rm := testutil.SeedProduct(t, env.db, "RM-001", entity.CategoryRawMaterial, 5)
	spare := testutil.SeedProduct(t, env.db, "RM-002", entity.CategoryRawMaterial, 1)
	env.mustDo("POST", "/technical/boms", bomBody(fg.ID, "BOM-FG", true, rm.ID, 1, 0), http.StatusCreated)

	env.token = testutil.RoleToken("00000000-0000-0000-0000-000000000002", entity.RoleSales)
	env.expectStatus("DELETE", "/technical/products/"+spare.ID, nil, http.StatusForbidden)

	env.token = testutil.RoleToken("00000000-0000-0000-0000-000000000003", entity.RoleTechnical)
	env.expectStatus("DELETE", "/technical/products/"+rm.ID, nil, http.StatusBadRequest)
	env.mustDo("DELETE", "/technical/products/"+spare.ID, nil, http.StatusNoContent)
}

func TestProductImportCSV(t *testing.T) {
	env := setupERPTest(t)
	testutil.SeedProduct(t, env.db, "RM-001", entity.CategoryRawMaterial, 1)

	csv := "code,name,category,uom,spec,standard_cost,selling_price,tax_rate,barcode,description\n" +
		"RM-001,钢板,raw_material,kg,,9.5,,13,,\n" +
		"RM-002,螺丝,component,piece,M6,0.2,0.5,13,,\n" +
		"RM-003,坏行,raw_material,bucket,,1,,,,\n"
	w := env.upload("/technical/products/import", "products.csv", []byte(csv), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	result := testutil.ResponseData(t, w)
	assertNum(t, result, "created", 1)
	assertNum(t, result, "updated", 1)
	assertNum(t, result, "failed", 1)

	var updated entity.Product
	env.db.Where("code = ?", "RM-001").First(&updated)
	if updated.StandardCost != 9.5 || updated.Name != "钢板" {
		t.Errorf("existing product not updated: %+v", updated)
	}
}

func TestProductImportGBK(t *testing.T) {
	env := setupERPTest(t)

	utf8CSV := "编码,名称\nRM-100,铜线\n"
	gbk, err := simplifiedchinese.GBK.NewEncoder().Bytes([]byte(utf8CSV))
	if err != nil {
		t.Fatalf("encode gbk: %v", err)
	}
	w := env.upload("/technical/products/import", "legacy.csv", gbk, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var p entity.Product
	if err := env.db.Where("code = ?", "RM-100").First(&p).Error; err != nil {
		t.Fatalf("product not imported: %v", err)
	}
	if p.Name != "铜线" {
		t.Errorf("Expected GBK name decoded, got %q", p.Name)
	}

	w = env.upload("/technical/products/import", "products.txt", []byte("x"), nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unsupported extension, got %d", w.Code)
	}
}

func TestBOMCost(t *testing.T) {
	env := setupERPTest(t)
	fg := testutil.SeedProduct(t, env.db, "FG-001", entity.CategoryFinished, 0)
	a := testutil.SeedProduct(t, env.db, "RM-A", entity.CategoryRawMaterial, 5)
	b := testutil.SeedProduct(t, env.db, "RM-B", entity.CategoryRawMaterial, 3)

	bom := env.mustDo("POST", "/technical/boms", bomBody(fg.ID, "BOM-FG", true, a.ID, 2, 10, b.ID, 1, 0), http.StatusCreated)
	if len(listOf(bom)) != 2 || str(bom, "version") != "1.0" {
		t.Fatalf("unexpected bom: %v", bom)
	}

	cost := env.mustDo("GET", "/technical/boms/"+idOf(bom)+"/cost", nil, http.StatusOK)
	// 2 × 1.1 × 5 + 1 × 3
	assertNum(t, cost, "total_cost", 14)

	def := env.mustDo("GET", "/technical/boms/product/"+fg.ID, nil, http.StatusOK)
	if idOf(def) != idOf(bom) {
		t.Errorf("Expected default bom %s, got %s", idOf(bom), idOf(def))
	}

	// 组件不能是成品本身
	env.expectStatus("POST", "/technical/boms/"+idOf(bom)+"/items", map[string]interface{}{"component_id": fg.ID, "quantity": 1}, http.StatusBadRequest)
	env.expectStatus("POST", "/technical/boms", bomBody(fg.ID, "BOM-FG", false, a.ID, 1, 0), http.StatusConflict)
}

func TestBOMCycleRejected(t *testing.T) {
	env := setupERPTest(t)
	fg := testutil.SeedProduct(t, env.db, "FG-001", entity.CategoryFinished, 0)
	sub := testutil.SeedProduct(t, env.db, "SF-001", entity.CategorySemiFinished, 0)

	env.mustDo("POST", "/technical/boms", bomBody(fg.ID, "BOM-FG", true, sub.ID, 1, 0), http.StatusCreated)
	// SF-001 的BOM引用 FG-001 会形成环
	env.expectStatus("POST", "/technical/boms", bomBody(sub.ID, "BOM-SF", true, fg.ID, 1, 0), http.StatusBadRequest)

	var count int64
	env.db.Model(&entity.BOM{}).Where("product_id = ?", sub.ID).Count(&count)
	if count != 0 {
		t.Errorf("Expected cyclic bom rolled back, found %d", count)
	}
}

func TestBOMRequirements(t *testing.T) {
	env := setupERPTest(t)
	fg := testutil.SeedProduct(t, env.db, "FG-001", entity.CategoryFinished, 0)
	sub := testutil.SeedProduct(t, env.db, "SF-001", entity.CategorySemiFinished, 0)
	raw := testutil.SeedProduct(t, env.db, "RM-001", entity.CategoryRawMaterial, 1)

	env.mustDo("POST", "/technical/boms", bomBody(sub.ID, "BOM-SF", true, raw.ID, 3, 0), http.StatusCreated)
	bom := env.mustDo("POST", "/technical/boms", bomBody(fg.ID, "BOM-FG", true, sub.ID, 2, 0, raw.ID, 1, 0), http.StatusCreated)

	data := env.mustDo("GET", "/technical/boms/"+idOf(bom)+"/requirements?quantity=5", nil, http.StatusOK)
	got := map[string]float64{}
	for i := range listOf(data) {
		line := lineOf(data, i)
		got[str(line, "code")] = num(line, "quantity")
	}
	// SF: 5 × 2；RM: 5 × 2 × 3 + 5 × 1
	if got["SF-001"] != 10 || got["RM-001"] != 35 || len(got) != 2 {
		t.Errorf("unexpected requirements: %v", got)
	}

	env.expectStatus("GET", "/technical/boms/"+idOf(bom)+"/requirements?quantity=0", nil, http.StatusBadRequest)
}

func TestBOMCopy(t *testing.T) {
	env := setupERPTest(t)
	fg := testutil.SeedProduct(t, env.db, "FG-001", entity.CategoryFinished, 0)
	rm := testutil.SeedProduct(t, env.db, "RM-001", entity.CategoryRawMaterial, 2)
	bom := env.mustDo("POST", "/technical/boms", bomBody(fg.ID, "BOM-FG", true, rm.ID, 4, 0), http.StatusCreated)

	copied := env.mustDo("POST", "/technical/boms/"+idOf(bom)+"/copy", map[string]interface{}{"code": "BOM-FG-V2", "version": "2.0"}, http.StatusCreated)
	if idOf(copied) == idOf(bom) || str(copied, "version") != "2.0" || len(listOf(copied)) != 1 {
		t.Fatalf("unexpected copy: %v", copied)
	}
	if copied["is_default"] != false {
		t.Errorf("copied bom must not take over default")
	}
}

func TestDocumentLifecycle(t *testing.T) {
	env := setupERPTest(t)
	p := testutil.SeedProduct(t, env.db, "FG-001", entity.CategoryFinished, 0)

	w := env.upload("/technical/documents", "drawing.pdf", []byte("%PDF-1.4 drawing"), map[string]string{
		"title": "总装图", "doc_type": "drawing", "product_id": p.ID,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	doc := testutil.ResponseData(t, w)
	if str(doc, "title") != "总装图" || num(doc, "file_size") != float64(len("%PDF-1.4 drawing")) {
		t.Errorf("unexpected document: %v", doc)
	}

	dl := env.do("GET", "/technical/documents/"+idOf(doc)+"/download", nil)
	if dl.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", dl.Code)
	}
	content, _ := io.ReadAll(dl.Body)
	if string(content) != "%PDF-1.4 drawing" {
		t.Errorf("downloaded content mismatch: %q", content)
	}
	if !strings.Contains(dl.Header().Get("Content-Disposition"), "drawing.pdf") {
		t.Errorf("unexpected disposition %q", dl.Header().Get("Content-Disposition"))
	}

	env.mustDo("DELETE", "/technical/documents/"+idOf(doc), nil, http.StatusNoContent)
	env.expectStatus("GET", "/technical/documents/"+idOf(doc)+"/download", nil, http.StatusNotFound)

	// 产品不存在
	w = env.upload("/technical/documents", "x.pdf", []byte("x"), map[string]string{"product_id": "00000000-0000-0000-0000-00000000ffff"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown product, got %d", w.Code)
	}
}
