package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/testutil"
	"github.com/bitfantasy/nimo-erp/internal/erp/workflow"
)

func quotationBody(customerID string) map[string]interface{} {
	return map[string]interface{}{
		"customer_id": customerID,
		"subject":     "年度备件报价",
		"items": []map[string]interface{}{
			{"description": "电机", "quantity": 10, "unit_price": 2, "tax_rate": 10},
			{"description": "皮带", "quantity": 5, "unit_price": 1, "tax_rate": 0},
		},
	}
}

func TestCustomerCRUD(t *testing.T) {
	env := setupERPTest(t)

	created := env.mustDo("POST", "/sales/customers", map[string]interface{}{
		"code": "CUST001", "name": "华东机械", "email": "buyer@east.com", "customer_type": "enterprise",
	}, http.StatusCreated)
	if str(created, "code") != "CUST001" || created["is_active"] != true {
		t.Fatalf("unexpected customer: %v", created)
	}

	// 编码重复
	env.expectStatus("POST", "/sales/customers", map[string]interface{}{"code": "CUST001", "name": "重复"}, http.StatusConflict)
	// 缺少必填字段
	env.expectStatus("POST", "/sales/customers", map[string]interface{}{"code": "CUST002"}, http.StatusBadRequest)

	updated := env.mustDo("PUT", "/sales/customers/"+idOf(created), map[string]interface{}{"city": "上海"}, http.StatusOK)
	if str(updated, "city") != "上海" || str(updated, "name") != "华东机械" {
		t.Errorf("partial update lost fields: %v", updated)
	}

	contact := env.mustDo("POST", "/sales/customers/"+idOf(created)+"/contacts", map[string]interface{}{
		"name": "张三", "is_primary": true,
	}, http.StatusCreated)
	contacts := env.mustDo("GET", "/sales/customers/"+idOf(created)+"/contacts", nil, http.StatusOK)
	if len(listOf(contacts)) != 1 {
		t.Fatalf("Expected 1 contact, got %d", len(listOf(contacts)))
	}
	env.mustDo("DELETE", "/sales/contacts/"+idOf(contact), nil, http.StatusNoContent)

	env.mustDo("DELETE", "/sales/customers/"+idOf(created), nil, http.StatusNoContent)
	env.expectStatus("GET", "/sales/customers/"+idOf(created), nil, http.StatusNotFound)
}

func TestCustomerDeleteRequiresManager(t *testing.T) {
	env := setupERPTest(t)
	c := testutil.SeedCustomer(t, env.db, "CUST001", "华东机械")

	env.token = testutil.RoleToken("00000000-0000-0000-0000-000000000002", entity.RoleSales)
	env.expectStatus("DELETE", "/sales/customers/"+c.ID, nil, http.StatusForbidden)

	env.token = testutil.RoleToken("00000000-0000-0000-0000-000000000003", entity.RoleManager)
	env.mustDo("DELETE", "/sales/customers/"+c.ID, nil, http.StatusNoContent)
}

func TestCustomerDeleteBlockedByDocuments(t *testing.T) {
	env := setupERPTest(t)
	c := testutil.SeedCustomer(t, env.db, "CUST001", "华东机械")
	env.mustDo("POST", "/sales/quotations", quotationBody(c.ID), http.StatusCreated)

	env.expectStatus("DELETE", "/sales/customers/"+c.ID, nil, http.StatusBadRequest)
}

func TestQuotationTotals(t *testing.T) {
	env := setupERPTest(t)
	c := testutil.SeedCustomer(t, env.db, "CUST001", "华东机械")

	q := env.mustDo("POST", "/sales/quotations", quotationBody(c.ID), http.StatusCreated)
	if str(q, "status") != entity.QuotationStatusDraft {
		t.Errorf("Expected draft, got %s", str(q, "status"))
	}
	if len(listOf(q)) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(listOf(q)))
	}
	assertNum(t, q, "total_amount", 25)
	assertNum(t, q, "tax_amount", 2)
	assertNum(t, q, "grand_total", 27)
	assertNum(t, lineOf(q, 0), "total_price", 20)

	// 新增明细后重新汇总
	q = env.mustDo("POST", "/sales/quotations/"+idOf(q)+"/items", map[string]interface{}{
		"description": "轴承", "quantity": 4, "unit_price": 2.5, "tax_rate": 10, "discount_percent": 50,
	}, http.StatusCreated)
	assertNum(t, q, "total_amount", 30)
	assertNum(t, q, "tax_amount", 2.5)
	assertNum(t, q, "grand_total", 32.5)

	// 修改数量
	first := lineOf(q, 0)
	q = env.mustDo("PUT", "/sales/quotations/"+idOf(q)+"/items/"+idOf(first), map[string]interface{}{"quantity": 20}, http.StatusOK)
	assertNum(t, q, "total_amount", 50)
	assertNum(t, q, "tax_amount", 4.5)
	assertNum(t, q, "grand_total", 54.5)

	// 删除明细
	q = env.mustDo("DELETE", "/sales/quotations/"+idOf(q)+"/items/"+idOf(first), nil, http.StatusOK)
	assertNum(t, q, "total_amount", 10)
	assertNum(t, q, "tax_amount", 0.5)
	assertNum(t, q, "grand_total", 10.5)
}

func TestQuotationNumbersAreSequential(t *testing.T) {
	env := setupERPTest(t)
	c := testutil.SeedCustomer(t, env.db, "CUST001", "华东机械")
	day := workflow.DayKey(time.Now())

	want := []string{
		workflow.FormatNumber(workflow.PrefixQuotation, day, 1),
		workflow.FormatNumber(workflow.PrefixQuotation, day, 2),
		workflow.FormatNumber(workflow.PrefixQuotation, day, 3),
	}
	for _, number := range want {
		q := env.mustDo("POST", "/sales/quotations", quotationBody(c.ID), http.StatusCreated)
		if str(q, "quotation_number") != number {
			t.Errorf("Expected %s, got %s", number, str(q, "quotation_number"))
		}
	}

	// 删除后编号不回收
	list := env.mustDo("GET", "/sales/quotations", nil, http.StatusOK)
	env.mustDo("DELETE", "/sales/quotations/"+idOf(list["items"].([]interface{})[0].(map[string]interface{})), nil, http.StatusNoContent)
	q := env.mustDo("POST", "/sales/quotations", quotationBody(c.ID), http.StatusCreated)
	if got, next := str(q, "quotation_number"), workflow.FormatNumber(workflow.PrefixQuotation, day, 4); got != next {
		t.Errorf("Expected %s, got %s", next, got)
	}
}

func TestQuotationStatusValidation(t *testing.T) {
	env := setupERPTest(t)
	c := testutil.SeedCustomer(t, env.db, "CUST001", "华东机械")
	q := env.mustDo("POST", "/sales/quotations", quotationBody(c.ID), http.StatusCreated)

	env.expectStatus("PUT", "/sales/quotations/"+idOf(q), map[string]interface{}{"status": "shipped"}, http.StatusBadRequest)
	// 不能直接改为已转换
	env.expectStatus("PUT", "/sales/quotations/"+idOf(q), map[string]interface{}{"status": "converted"}, http.StatusBadRequest)
	// draft 不能转订单
	env.expectStatus("POST", "/sales/quotations/"+idOf(q)+"/convert", nil, http.StatusBadRequest)

	got := env.mustDo("GET", "/sales/quotations/"+idOf(q), nil, http.StatusOK)
	if str(got, "status") != entity.QuotationStatusDraft {
		t.Errorf("status changed by rejected updates: %s", str(got, "status"))
	}
}

func TestQuotationConvert(t *testing.T) {
	env := setupERPTest(t)
	c := testutil.SeedCustomer(t, env.db, "CUST001", "华东机械")
	q := env.mustDo("POST", "/sales/quotations", quotationBody(c.ID), http.StatusCreated)

	sent := env.mustDo("PUT", "/sales/quotations/"+idOf(q), map[string]interface{}{"status": "sent"}, http.StatusOK)
	if str(sent, "status") != entity.QuotationStatusSent {
		t.Fatalf("Expected sent, got %s", str(sent, "status"))
	}

	order := env.mustDo("POST", "/sales/quotations/"+idOf(q)+"/convert", nil, http.StatusCreated)
	if str(order, "status") != entity.SOStatusDraft {
		t.Errorf("Expected draft order, got %s", str(order, "status"))
	}
	if str(order, "quotation_id") != idOf(q) || str(order, "customer_id") != c.ID {
		t.Errorf("order not linked to quotation/customer: %v", order)
	}
	if len(listOf(order)) != 2 {
		t.Fatalf("Expected 2 order items, got %d", len(listOf(order)))
	}
	for i := range listOf(order) {
		line := lineOf(order, i)
		if num(line, "pending_quantity") != num(line, "quantity") || num(line, "delivered_quantity") != 0 {
			t.Errorf("line %d: pending=%v delivered=%v quantity=%v", i, line["pending_quantity"], line["delivered_quantity"], line["quantity"])
		}
	}
	assertNum(t, order, "grand_total", 27)

	converted := env.mustDo("GET", "/sales/quotations/"+idOf(q), nil, http.StatusOK)
	if str(converted, "status") != entity.QuotationStatusConverted {
		t.Errorf("Expected converted, got %s", str(converted, "status"))
	}

	// 重复转换、修改与删除都被拒绝
	env.expectStatus("POST", "/sales/quotations/"+idOf(q)+"/convert", nil, http.StatusBadRequest)
	env.expectStatus("PUT", "/sales/quotations/"+idOf(q), map[string]interface{}{"notes": "x"}, http.StatusBadRequest)
	env.expectStatus("DELETE", "/sales/quotations/"+idOf(q), nil, http.StatusBadRequest)

	var count int64
	env.db.Model(&entity.SalesOrder{}).Where("quotation_id = ?", idOf(q)).Count(&count)
	if count != 1 {
		t.Errorf("Expected exactly 1 order from quotation, got %d", count)
	}
}

func TestSalesOrderStatus(t *testing.T) {
	env := setupERPTest(t)
	c := testutil.SeedCustomer(t, env.db, "CUST001", "华东机械")
	o := env.mustDo("POST", "/sales/orders", quotationBody(c.ID), http.StatusCreated)

	env.expectStatus("PUT", "/sales/orders/"+idOf(o), map[string]interface{}{"status": "bogus"}, http.StatusBadRequest)
	got := env.mustDo("GET", "/sales/orders/"+idOf(o), nil, http.StatusOK)
	if str(got, "status") != entity.SOStatusDraft {
		t.Fatalf("status changed by invalid update: %s", str(got, "status"))
	}

	// draft 不能直接发货
	env.expectStatus("PUT", "/sales/orders/"+idOf(o), map[string]interface{}{"status": "shipped"}, http.StatusBadRequest)

	confirmed := env.mustDo("PUT", "/sales/orders/"+idOf(o), map[string]interface{}{"status": "confirmed", "shipping_amount": 3}, http.StatusOK)
	if str(confirmed, "status") != entity.SOStatusConfirmed {
		t.Errorf("Expected confirmed, got %s", str(confirmed, "status"))
	}
	assertNum(t, confirmed, "grand_total", 30)

	// 非草稿不能删除
	env.expectStatus("DELETE", "/sales/orders/"+idOf(o), nil, http.StatusBadRequest)

	cancelled := env.mustDo("PUT", "/sales/orders/"+idOf(o), map[string]interface{}{"status": "cancelled"}, http.StatusOK)
	if str(cancelled, "status") != entity.SOStatusCancelled {
		t.Errorf("Expected cancelled, got %s", str(cancelled, "status"))
	}
	// 终态
	env.expectStatus("PUT", "/sales/orders/"+idOf(o), map[string]interface{}{"notes": "late"}, http.StatusBadRequest)
}

func TestSalesOrderDeleteDraft(t *testing.T) {
	env := setupERPTest(t)
	c := testutil.SeedCustomer(t, env.db, "CUST001", "华东机械")
	o := env.mustDo("POST", "/sales/orders", quotationBody(c.ID), http.StatusCreated)

	env.mustDo("DELETE", "/sales/orders/"+idOf(o), nil, http.StatusNoContent)
	env.expectStatus("GET", "/sales/orders/"+idOf(o), nil, http.StatusNotFound)

	var count int64
	env.db.Model(&entity.SalesOrderItem{}).Where("order_id = ?", idOf(o)).Count(&count)
	if count != 0 {
		t.Errorf("Expected order items removed, got %d", count)
	}
}

func TestSalesOrderItemDeleteBlockedWhenDelivered(t *testing.T) {
	env := setupERPTest(t)
	c := testutil.SeedCustomer(t, env.db, "CUST001", "华东机械")
	o := env.mustDo("POST", "/sales/orders", quotationBody(c.ID), http.StatusCreated)
	line := lineOf(o, 0)

	env.db.Model(&entity.SalesOrderItem{}).Where("id = ?", idOf(line)).
		Updates(map[string]interface{}{"delivered_quantity": 1, "pending_quantity": 9})

	env.expectStatus("DELETE", "/sales/orders/"+idOf(o)+"/items/"+idOf(line), nil, http.StatusBadRequest)

	// 未发货的明细可以删除，合计随之更新
	o = env.mustDo("DELETE", "/sales/orders/"+idOf(o)+"/items/"+idOf(lineOf(o, 1)), nil, http.StatusOK)
	if len(listOf(o)) != 1 {
		t.Fatalf("Expected 1 remaining item, got %d", len(listOf(o)))
	}
	assertNum(t, o, "total_amount", 20)
	assertNum(t, o, "grand_total", 22)
}

func TestSalesOrderItemEditAfterPartialShipment(t *testing.T) {
	env := setupERPTest(t)
	o := confirmedOrder(t, env)
	motor := idOf(lineOf(o, 0))
	d := env.mustDo("POST", "/sales/deliveries", deliveryBody(idOf(o), motor, 4), http.StatusCreated)
	env.mustDo("POST", "/sales/deliveries/"+idOf(d)+"/ship", nil, http.StatusOK)

	itemPath := "/sales/orders/" + idOf(o) + "/items/" + motor
	// 数量低于已发货数量
	env.expectStatus("PUT", itemPath, map[string]interface{}{"quantity": 3}, http.StatusBadRequest)

	got := env.mustDo("PUT", itemPath, map[string]interface{}{"quantity": 12}, http.StatusOK)
	assertNum(t, lineOf(got, 0), "quantity", 12)
	assertNum(t, lineOf(got, 0), "delivered_quantity", 4)
	assertNum(t, lineOf(got, 0), "pending_quantity", 8)
	assertNum(t, got, "total_amount", 29)
	assertNum(t, got, "tax_amount", 2.4)
	assertNum(t, got, "grand_total", 31.4)

	got = env.mustDo("POST", "/sales/orders/"+idOf(o)+"/items", map[string]interface{}{
		"description": "轴承", "quantity": 10, "unit_price": 1, "tax_rate": 10,
	}, http.StatusCreated)
	if len(listOf(got)) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(listOf(got)))
	}
	added := lineOf(got, 2)
	if str(added, "description") != "轴承" {
		t.Errorf("Expected new line last, got %v", added["description"])
	}
	assertNum(t, added, "pending_quantity", 10)
	assertNum(t, got, "total_amount", 39)
	assertNum(t, got, "tax_amount", 3.4)
	assertNum(t, got, "grand_total", 42.4)
}

func TestSalesOrderItemDeleteBlockedByOpenDocuments(t *testing.T) {
	env := setupERPTest(t)
	o := confirmedOrder(t, env)
	motor, belt := idOf(lineOf(o, 0)), idOf(lineOf(o, 1))

	d := env.mustDo("POST", "/sales/deliveries", deliveryBody(idOf(o), belt, 2), http.StatusCreated)
	env.expectStatus("DELETE", "/sales/orders/"+idOf(o)+"/items/"+belt, nil, http.StatusBadRequest)

	// 发货单取消后可以删除
	env.mustDo("POST", "/sales/deliveries/"+idOf(d)+"/cancel", nil, http.StatusOK)
	got := env.mustDo("DELETE", "/sales/orders/"+idOf(o)+"/items/"+belt, nil, http.StatusOK)
	if len(listOf(got)) != 1 {
		t.Fatalf("Expected 1 remaining item, got %d", len(listOf(got)))
	}

	// 已开票的明细不能删除
	env.mustDo("POST", "/sales/invoices", map[string]interface{}{"order_id": idOf(o)}, http.StatusCreated)
	env.expectStatus("DELETE", "/sales/orders/"+idOf(o)+"/items/"+motor, nil, http.StatusBadRequest)
}

func TestSalesOrderList(t *testing.T) {
	env := setupERPTest(t)
	a := testutil.SeedCustomer(t, env.db, "CUST001", "华东机械")
	b := testutil.SeedCustomer(t, env.db, "CUST002", "华南电子")
	env.mustDo("POST", "/sales/orders", quotationBody(a.ID), http.StatusCreated)
	env.mustDo("POST", "/sales/orders", quotationBody(a.ID), http.StatusCreated)
	env.mustDo("POST", "/sales/orders", quotationBody(b.ID), http.StatusCreated)

	all := env.mustDo("GET", "/sales/orders", nil, http.StatusOK)
	assertNum(t, all, "total", 3)

	filtered := env.mustDo("GET", "/sales/orders?customer_id="+b.ID, nil, http.StatusOK)
	assertNum(t, filtered, "total", 1)

	env.expectStatus("GET", "/sales/orders?date_from=2024-13-01", nil, http.StatusBadRequest)
}

func TestSalesOrderExport(t *testing.T) {
	env := setupERPTest(t)
	c := testutil.SeedCustomer(t, env.db, "CUST001", "华东机械")
	env.mustDo("POST", "/sales/orders", quotationBody(c.ID), http.StatusCreated)

	w := env.do("GET", "/sales/orders/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("unexpected content type %q", ct)
	}
	if w.Body.Len() == 0 {
		t.Error("Expected xlsx body")
	}
}
