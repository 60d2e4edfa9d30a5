package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/testutil"
)

func createWarehouse(t *testing.T, env *testEnv, code string) string {
	t.Helper()
	wh := env.mustDo("POST", "/warehouse/warehouses", map[string]interface{}{"code": code, "name": "仓库" + code}, http.StatusCreated)
	return idOf(wh)
}

func stockIn(t *testing.T, env *testEnv, warehouseID, productID string, qty float64) map[string]interface{} {
	t.Helper()
	return env.mustDo("POST", "/warehouse/stock-movements", map[string]interface{}{
		"movement_type": "in", "warehouse_id": warehouseID, "product_id": productID, "quantity": qty,
	}, http.StatusCreated)
}

func TestWorkOrderReport(t *testing.T) {
	env := setupERPTest(t)
	fg := testutil.SeedProduct(t, env.db, "FG-001", entity.CategoryFinished, 0)

	wo := env.mustDo("POST", "/production/work-orders", map[string]interface{}{
		"product_id": fg.ID, "quantity": 10, "priority": 1, "planned_start": "2026-01-05",
	}, http.StatusCreated)
	if str(wo, "status") != entity.WOStatusPlanned {
		t.Fatalf("Expected planned, got %s", str(wo, "status"))
	}
	path := "/production/work-orders/" + idOf(wo)

	// 计划中的工单不能报工
	env.expectStatus("POST", path+"/report", map[string]interface{}{"quantity": 1}, http.StatusBadRequest)
	env.expectStatus("PUT", path, map[string]interface{}{"status": entity.WOStatusCompleted}, http.StatusBadRequest)

	env.mustDo("PUT", path, map[string]interface{}{"status": entity.WOStatusReleased}, http.StatusOK)
	got := env.mustDo("POST", path+"/report", map[string]interface{}{"quantity": 4, "notes": "首批"}, http.StatusOK)
	if str(got, "status") != entity.WOStatusInProgress || got["actual_start"] == nil {
		t.Fatalf("Expected in_progress with start time, got %v", got)
	}
	assertNum(t, got, "completed_quantity", 4)

	env.expectStatus("POST", path+"/report", map[string]interface{}{"quantity": 7}, http.StatusBadRequest)
	env.expectStatus("PUT", path, map[string]interface{}{"quantity": 3}, http.StatusBadRequest)

	got = env.mustDo("POST", path+"/report", map[string]interface{}{"quantity": 6}, http.StatusOK)
	if str(got, "status") != entity.WOStatusCompleted || got["actual_end"] == nil {
		t.Errorf("Expected completed with end time, got %v", got)
	}

	// 已完工的工单不能修改或删除
	env.expectStatus("PUT", path, map[string]interface{}{"notes": "x"}, http.StatusBadRequest)
	env.expectStatus("DELETE", path, nil, http.StatusBadRequest)
}

func TestWorkOrderUsesDefaultBOM(t *testing.T) {
	env := setupERPTest(t)
	fg := testutil.SeedProduct(t, env.db, "FG-001", entity.CategoryFinished, 0)
	rm := testutil.SeedProduct(t, env.db, "RM-001", entity.CategoryRawMaterial, 2)
	other := testutil.SeedProduct(t, env.db, "FG-002", entity.CategoryFinished, 0)

	bom := env.mustDo("POST", "/technical/boms", bomBody(fg.ID, "BOM-FG1", true, rm.ID, 2, 0), http.StatusCreated)
	foreign := env.mustDo("POST", "/technical/boms", bomBody(other.ID, "BOM-FG2", true, rm.ID, 1, 0), http.StatusCreated)

	wo := env.mustDo("POST", "/production/work-orders", map[string]interface{}{"product_id": fg.ID, "quantity": 5}, http.StatusCreated)
	if str(wo, "bom_id") != idOf(bom) {
		t.Errorf("Expected default BOM %s, got %v", idOf(bom), wo["bom_id"])
	}

	env.expectStatus("POST", "/production/work-orders", map[string]interface{}{
		"product_id": fg.ID, "quantity": 5, "bom_id": idOf(foreign),
	}, http.StatusBadRequest)
	env.expectStatus("POST", "/production/work-orders", map[string]interface{}{"product_id": fg.ID, "quantity": 0}, http.StatusBadRequest)

	// 计划中的工单可以删除
	env.mustDo("DELETE", "/production/work-orders/"+idOf(wo), nil, http.StatusNoContent)
	env.expectStatus("GET", "/production/work-orders/"+idOf(wo), nil, http.StatusNotFound)
}

func TestStockMovements(t *testing.T) {
	env := setupERPTest(t)
	wh := createWarehouse(t, env, "WH01")
	rm := testutil.SeedProduct(t, env.db, "RM-001", entity.CategoryRawMaterial, 2)

	env.expectStatus("POST", "/warehouse/warehouses", map[string]interface{}{"code": "WH01", "name": "重复"}, http.StatusConflict)

	in := stockIn(t, env, wh, rm.ID, 10)
	assertNum(t, in, "balance_after", 10)
	if str(in, "reference_type") != "MANUAL" {
		t.Errorf("Expected MANUAL reference, got %s", str(in, "reference_type"))
	}

	out := env.mustDo("POST", "/warehouse/stock-movements", map[string]interface{}{
		"movement_type": "out", "warehouse_id": wh, "product_id": rm.ID, "quantity": 4,
	}, http.StatusCreated)
	assertNum(t, out, "balance_after", 6)

	// 可用库存不足
	env.expectStatus("POST", "/warehouse/stock-movements", map[string]interface{}{
		"movement_type": "out", "warehouse_id": wh, "product_id": rm.ID, "quantity": 7,
	}, http.StatusBadRequest)
	env.expectStatus("POST", "/warehouse/stock-movements", map[string]interface{}{
		"movement_type": "transfer", "warehouse_id": wh, "product_id": rm.ID, "quantity": 1,
	}, http.StatusBadRequest)
	env.expectStatus("POST", "/warehouse/stock-movements", map[string]interface{}{
		"movement_type": "in", "warehouse_id": wh, "product_id": rm.ID, "quantity": 0,
	}, http.StatusBadRequest)

	adj := env.mustDo("POST", "/warehouse/stock-movements", map[string]interface{}{
		"movement_type": "adjust", "warehouse_id": wh, "product_id": rm.ID, "quantity": 3,
	}, http.StatusCreated)
	assertNum(t, adj, "balance_after", 3)

	inv := env.mustDo("GET", "/warehouse/inventory?warehouse_id="+wh, nil, http.StatusOK)
	if len(listOf(inv)) != 1 {
		t.Fatalf("Expected one inventory row, got %d", len(listOf(inv)))
	}
	assertNum(t, lineOf(inv, 0), "quantity", 3)
	assertNum(t, lineOf(inv, 0), "available_quantity", 3)

	moves := env.mustDo("GET", "/warehouse/stock-movements?movement_type=out", nil, http.StatusOK)
	assertNum(t, moves, "total", 1)

	// 有移动记录的仓库不能删除
	env.expectStatus("DELETE", "/warehouse/warehouses/"+wh, nil, http.StatusBadRequest)
	empty := createWarehouse(t, env, "WH02")
	env.mustDo("DELETE", "/warehouse/warehouses/"+empty, nil, http.StatusNoContent)
}

func TestPurchaseReceive(t *testing.T) {
	env := setupERPTest(t)
	wh := createWarehouse(t, env, "WH01")
	rm := testutil.SeedProduct(t, env.db, "RM-001", entity.CategoryRawMaterial, 2)
	sup := env.mustDo("POST", "/procurement/suppliers", map[string]interface{}{"code": "SUP01", "name": "宝钢"}, http.StatusCreated)

	env.expectStatus("POST", "/procurement/purchase-orders", map[string]interface{}{"supplier_id": idOf(sup)}, http.StatusBadRequest)
	po := env.mustDo("POST", "/procurement/purchase-orders", map[string]interface{}{
		"supplier_id": idOf(sup),
		"items":       []map[string]interface{}{{"product_id": rm.ID, "quantity": 10, "unit_price": 3, "tax_rate": 13}},
	}, http.StatusCreated)
	assertNum(t, po, "total_amount", 30)
	assertNum(t, po, "tax_amount", 3.9)
	assertNum(t, po, "grand_total", 33.9)
	path := "/procurement/purchase-orders/" + idOf(po)
	line := idOf(lineOf(po, 0))

	receive := func(qty float64) map[string]interface{} {
		return map[string]interface{}{"warehouse_id": wh, "items": []map[string]interface{}{{"item_id": line, "quantity": qty}}}
	}

	// 草稿不能收货
	env.expectStatus("POST", path+"/receive", receive(1), http.StatusBadRequest)
	env.mustDo("PUT", path, map[string]interface{}{"status": entity.POStatusConfirmed}, http.StatusOK)

	got := env.mustDo("POST", path+"/receive", receive(4), http.StatusOK)
	if str(got, "status") != entity.POStatusPartiallyReceived {
		t.Fatalf("Expected partially_received, got %s", str(got, "status"))
	}
	assertNum(t, lineOf(got, 0), "received_quantity", 4)

	env.expectStatus("POST", path+"/receive", receive(7), http.StatusBadRequest)
	// 已收货不能取消
	env.expectStatus("PUT", path, map[string]interface{}{"status": entity.POStatusCancelled}, http.StatusBadRequest)

	got = env.mustDo("POST", path+"/receive", receive(6), http.StatusOK)
	if str(got, "status") != entity.POStatusReceived {
		t.Errorf("Expected received, got %s", str(got, "status"))
	}

	inv := env.mustDo("GET", "/warehouse/inventory?warehouse_id="+wh, nil, http.StatusOK)
	assertNum(t, lineOf(inv, 0), "quantity", 10)
	moves := env.mustDo("GET", "/warehouse/stock-movements?movement_type=in", nil, http.StatusOK)
	assertNum(t, moves, "total", 2)
	if str(lineOf(moves, 0), "reference_id") != str(po, "po_number") {
		t.Errorf("Expected movement to reference %s, got %s", str(po, "po_number"), str(lineOf(moves, 0), "reference_id"))
	}

	// 有采购订单的供应商不能删除
	env.expectStatus("DELETE", "/procurement/suppliers/"+idOf(sup), nil, http.StatusBadRequest)
	env.expectStatus("DELETE", path, nil, http.StatusBadRequest)
}

func TestDeriveMRP(t *testing.T) {
	env := setupERPTest(t)
	wh := createWarehouse(t, env, "WH01")
	fg := testutil.SeedProduct(t, env.db, "FG-001", entity.CategoryFinished, 0)
	rm := testutil.SeedProduct(t, env.db, "RM-001", entity.CategoryRawMaterial, 2)
	env.mustDo("POST", "/technical/boms", bomBody(fg.ID, "BOM-FG1", true, rm.ID, 2, 0), http.StatusCreated)

	stockIn(t, env, wh, rm.ID, 5)
	sup := env.mustDo("POST", "/procurement/suppliers", map[string]interface{}{"code": "SUP01", "name": "宝钢"}, http.StatusCreated)
	po := env.mustDo("POST", "/procurement/purchase-orders", map[string]interface{}{
		"supplier_id": idOf(sup),
		"items":       []map[string]interface{}{{"product_id": rm.ID, "quantity": 3, "unit_price": 2}},
	}, http.StatusCreated)
	env.mustDo("PUT", "/procurement/purchase-orders/"+idOf(po), map[string]interface{}{"status": entity.POStatusConfirmed}, http.StatusOK)

	plan := env.mustDo("POST", "/planning/production-plans", map[string]interface{}{
		"name":               "一月计划",
		"planned_start_date": "2026-01-01",
		"planned_end_date":   "2026-01-15",
		"items":              []map[string]interface{}{{"product_id": fg.ID, "quantity": 10}},
	}, http.StatusCreated)

	mrp := env.mustDo("POST", "/planning/production-plans/"+idOf(plan)+"/mrp", nil, http.StatusCreated)
	if str(mrp, "status") != entity.PlanStatusDraft || str(mrp, "production_plan_id") != idOf(plan) {
		t.Fatalf("unexpected mrp: %v", mrp)
	}
	assertNum(t, mrp, "planning_horizon", 14)
	if len(listOf(mrp)) != 1 {
		t.Fatalf("Expected one material, got %d", len(listOf(mrp)))
	}
	row := lineOf(mrp, 0)
	if str(row, "material_id") != rm.ID {
		t.Errorf("Expected material %s, got %s", rm.ID, str(row, "material_id"))
	}
	assertNum(t, row, "required_quantity", 20)
	assertNum(t, row, "available_quantity", 5)
	assertNum(t, row, "on_order_quantity", 3)
	assertNum(t, row, "net_requirement", 12)

	run := env.mustDo("POST", "/planning/mrp/"+idOf(mrp)+"/run", nil, http.StatusOK)
	if str(run, "status") != entity.PlanStatusConfirmed {
		t.Errorf("Expected confirmed after run, got %s", str(run, "status"))
	}
}

func TestMRPManualItems(t *testing.T) {
	env := setupERPTest(t)
	rm := testutil.SeedProduct(t, env.db, "RM-001", entity.CategoryRawMaterial, 2)

	mrp := env.mustDo("POST", "/planning/mrp", map[string]interface{}{
		"name":  "手工MRP",
		"items": []map[string]interface{}{{"material_id": rm.ID, "required_quantity": 8, "net_requirement": 8}},
	}, http.StatusCreated)
	assertNum(t, mrp, "planning_horizon", 30)
	if len(listOf(mrp)) != 1 {
		t.Fatalf("Expected one item, got %d", len(listOf(mrp)))
	}

	env.expectStatus("POST", "/planning/mrp", map[string]interface{}{
		"name": "缺物料", "items": []map[string]interface{}{{"material_id": "missing"}},
	}, http.StatusNotFound)

	env.mustDo("DELETE", "/planning/mrp-items/"+idOf(lineOf(mrp, 0)), nil, http.StatusNoContent)
	got := env.mustDo("GET", "/planning/mrp/"+idOf(mrp), nil, http.StatusOK)
	if len(listOf(got)) != 0 {
		t.Errorf("Expected item removed, got %d", len(listOf(got)))
	}
}

func TestRouteCycleTime(t *testing.T) {
	env := setupERPTest(t)
	fg := testutil.SeedProduct(t, env.db, "FG-001", entity.CategoryFinished, 0)

	wc := env.mustDo("POST", "/technical/work-centers", map[string]interface{}{"code": "WC01", "name": "装配线"}, http.StatusCreated)
	op := env.mustDo("POST", "/technical/operations", map[string]interface{}{
		"code": "OP10", "name": "装配", "work_center_id": idOf(wc),
		"setup_time": 10, "runtime": 5, "queue_time": 2, "move_time": 1,
	}, http.StatusCreated)

	route := env.mustDo("POST", "/technical/routes", map[string]interface{}{
		"product_id": fg.ID, "code": "RT-FG1", "name": "总装",
		"operations": []map[string]interface{}{{"operation_id": idOf(op), "runtime": 8}},
	}, http.StatusCreated)
	assertNum(t, route, "cycle_time", 21)
	path := "/technical/routes/" + idOf(route)

	got := env.mustDo("POST", path+"/operations", map[string]interface{}{"operation_id": idOf(op)}, http.StatusCreated)
	assertNum(t, got, "cycle_time", 39)
	ops, _ := got["operations"].([]interface{})
	if len(ops) != 2 || ops[1].(map[string]interface{})["sequence"] != float64(20) {
		t.Fatalf("Expected second step at sequence 20, got %v", got["operations"])
	}
	env.expectStatus("POST", path+"/operations", map[string]interface{}{"operation_id": idOf(op), "sequence": 10}, http.StatusConflict)

	first := idOf(ops[0].(map[string]interface{}))
	got = env.mustDo("DELETE", path+"/operations/"+first, nil, http.StatusOK)
	assertNum(t, got, "cycle_time", 18)

	// 被工序引用的工作中心不能删除
	env.expectStatus("DELETE", "/technical/work-centers/"+idOf(wc), nil, http.StatusBadRequest)
}

func TestDashboardStats(t *testing.T) {
	env := setupERPTest(t)
	o := confirmedOrder(t, env)
	// 已取消的订单计入新订单数，不计入收入
	other := env.mustDo("POST", "/sales/orders", quotationBody(str(o, "customer_id")), http.StatusCreated)
	env.mustDo("PUT", "/sales/orders/"+idOf(other), map[string]interface{}{"status": "cancelled"}, http.StatusOK)
	env.mustDo("POST", "/sales/quotations", quotationBody(str(o, "customer_id")), http.StatusCreated)

	inv := env.mustDo("POST", "/sales/invoices", map[string]interface{}{"order_id": idOf(o)}, http.StatusCreated)
	env.mustDo("POST", "/sales/invoices/"+idOf(inv)+"/send", nil, http.StatusOK)
	// 草稿发票不计入应收
	c2 := testutil.SeedCustomer(t, env.db, "CUST002", "华南电器")
	env.mustDo("POST", "/sales/invoices", map[string]interface{}{
		"customer_id": c2.ID,
		"items":       []map[string]interface{}{{"description": "服务费", "quantity": 1, "unit_price": 50}},
	}, http.StatusCreated)

	for _, period := range []string{"", "day", "week", "month", "year"} {
		stats := env.mustDo("GET", "/dashboard/stats?period="+period, nil, http.StatusOK)
		if period != "" && str(stats, "period") != period {
			t.Errorf("Expected period %s, got %s", period, str(stats, "period"))
		}
		assertNum(t, stats, "new_orders", 2)
		assertNum(t, stats, "revenue", 27)
		assertNum(t, stats, "new_quotations", 1)
		assertNum(t, stats, "new_customers", 2)
		assertNum(t, stats, "pending_payments", 27)
	}
	env.expectStatus("GET", "/dashboard/stats?period=decade", nil, http.StatusBadRequest)

	overview := env.mustDo("GET", "/dashboard", nil, http.StatusOK)
	assertNum(t, overview, "sales_orders", 2)
	assertNum(t, overview, "sales_amount", 27)
	assertNum(t, overview, "customers_count", 2)
	assertNum(t, overview, "products_count", 0)

	// 收款后不再是已发送状态
	env.mustDo("POST", "/sales/invoices/"+idOf(inv)+"/payments", map[string]interface{}{"amount": 7, "payment_method": "cash"}, http.StatusCreated)
	stats := env.mustDo("GET", "/dashboard/stats?period=month", nil, http.StatusOK)
	assertNum(t, stats, "pending_payments", 0)
}

func TestDashboardSalesChart(t *testing.T) {
	env := setupERPTest(t)
	confirmedOrder(t, env)
	now := time.Now()

	chart := env.mustDo("GET", "/dashboard/sales-chart?period=month", nil, http.StatusOK)
	labels, _ := chart["labels"].([]interface{})
	data, _ := chart["data"].([]interface{})
	days := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()
	if len(labels) != days || len(data) != days {
		t.Fatalf("Expected %d buckets, got %d labels and %d values", days, len(labels), len(data))
	}
	if v, _ := data[now.Day()-1].(float64); v != 27 {
		t.Errorf("Expected 27 on day %d, got %v", now.Day(), data[now.Day()-1])
	}

	year := env.mustDo("GET", "/dashboard/sales-chart?period=year", nil, http.StatusOK)
	data, _ = year["data"].([]interface{})
	if len(data) != 12 {
		t.Fatalf("Expected 12 months, got %d", len(data))
	}
	if v, _ := data[int(now.Month())-1].(float64); v != 27 {
		t.Errorf("Expected 27 in month %d, got %v", now.Month(), data[int(now.Month())-1])
	}
	env.expectStatus("GET", "/dashboard/sales-chart?period=hour", nil, http.StatusBadRequest)
}

func TestDashboardInventoryStatus(t *testing.T) {
	env := setupERPTest(t)
	steel := testutil.SeedProduct(t, env.db, "RM-001", entity.CategoryRawMaterial, 1)
	bolt := testutil.SeedProduct(t, env.db, "CMP-001", entity.CategoryComponent, 1)
	testutil.SeedProduct(t, env.db, "CMP-002", entity.CategoryComponent, 1)
	testutil.SeedProduct(t, env.db, "FG-001", entity.CategoryFinished, 10)
	env.db.Model(&entity.Product{}).Where("id IN ?", []string{steel.ID, bolt.ID}).Update("reorder_level", 5)

	wh := createWarehouse(t, env, "WH01")
	stockIn(t, env, wh, steel.ID, 2)
	stockIn(t, env, wh, bolt.ID, 8)

	status := env.mustDo("GET", "/dashboard/inventory-status", nil, http.StatusOK)
	byCategory, _ := status["products_by_category"].(map[string]interface{})
	want := map[string]float64{
		entity.CategoryRawMaterial:  1,
		entity.CategoryComponent:    2,
		entity.CategorySemiFinished: 0,
		entity.CategoryFinished:     1,
		entity.CategoryService:      0,
	}
	for category, n := range want {
		if got, _ := byCategory[category].(float64); got != n {
			t.Errorf("Expected %v %s products, got %v", n, category, byCategory[category])
		}
	}

	low, _ := status["low_stock_products"].([]interface{})
	if len(low) != 1 {
		t.Fatalf("Expected 1 low stock product, got %d", len(low))
	}
	row := low[0].(map[string]interface{})
	if str(row, "code") != "RM-001" {
		t.Errorf("Expected RM-001 low on stock, got %s", str(row, "code"))
	}
	assertNum(t, row, "on_hand", 2)
	assertNum(t, row, "reorder_level", 5)
}
