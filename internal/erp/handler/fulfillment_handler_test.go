package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/nimo-erp/internal/erp/entity"
	"github.com/bitfantasy/nimo-erp/internal/erp/testutil"
)

// confirmedOrder 两行明细 (10 × 2, 税率10%) + (5 × 1)，已确认
func confirmedOrder(t *testing.T, env *testEnv) map[string]interface{} {
	t.Helper()
	c := testutil.SeedCustomer(t, env.db, "CUST001", "华东机械")
	o := env.mustDo("POST", "/sales/orders", quotationBody(c.ID), http.StatusCreated)
	return env.mustDo("PUT", "/sales/orders/"+idOf(o), map[string]interface{}{"status": "confirmed"}, http.StatusOK)
}

func deliveryBody(orderID string, lines ...interface{}) map[string]interface{} {
	var items []map[string]interface{}
	for i := 0; i+1 < len(lines); i += 2 {
		items = append(items, map[string]interface{}{"order_item_id": lines[i], "quantity": lines[i+1]})
	}
	return map[string]interface{}{"order_id": orderID, "carrier": "顺丰", "items": items}
}

func TestDeliveryRequiresConfirmedOrder(t *testing.T) {
	env := setupERPTest(t)
	c := testutil.SeedCustomer(t, env.db, "CUST001", "华东机械")
	o := env.mustDo("POST", "/sales/orders", quotationBody(c.ID), http.StatusCreated)

	env.expectStatus("POST", "/sales/deliveries", deliveryBody(idOf(o), idOf(lineOf(o, 0)), 1), http.StatusBadRequest)
	// 缺少明细
	env.expectStatus("POST", "/sales/deliveries", map[string]interface{}{"order_id": idOf(o)}, http.StatusBadRequest)
}

func TestDeliveryShipAndConfirm(t *testing.T) {
	env := setupERPTest(t)
	o := confirmedOrder(t, env)
	motor, belt := idOf(lineOf(o, 0)), idOf(lineOf(o, 1))

	// 超过待发数量
	env.expectStatus("POST", "/sales/deliveries", deliveryBody(idOf(o), motor, 11), http.StatusBadRequest)

	first := env.mustDo("POST", "/sales/deliveries", deliveryBody(idOf(o), motor, 4), http.StatusCreated)
	if str(first, "status") != entity.DeliveryStatusPending {
		t.Fatalf("Expected pending delivery, got %s", str(first, "status"))
	}
	shipped := env.mustDo("POST", "/sales/deliveries/"+idOf(first)+"/ship", nil, http.StatusOK)
	if str(shipped, "status") != entity.DeliveryStatusShipped || shipped["shipped_at"] == nil {
		t.Fatalf("Expected shipped with timestamp, got %v", shipped)
	}

	order := env.mustDo("GET", "/sales/orders/"+idOf(o), nil, http.StatusOK)
	if str(order, "status") != entity.SOStatusPartiallyShipped {
		t.Errorf("Expected partially_shipped, got %s", str(order, "status"))
	}
	assertNum(t, lineOf(order, 0), "delivered_quantity", 4)
	assertNum(t, lineOf(order, 0), "pending_quantity", 6)

	// 已发货的发货单不能删除
	env.expectStatus("DELETE", "/sales/deliveries/"+idOf(first), nil, http.StatusBadRequest)
	env.expectStatus("POST", "/sales/deliveries", deliveryBody(idOf(o), motor, 7), http.StatusBadRequest)

	second := env.mustDo("POST", "/sales/deliveries", deliveryBody(idOf(o), motor, 6, belt, 5), http.StatusCreated)
	env.mustDo("POST", "/sales/deliveries/"+idOf(second)+"/ship", nil, http.StatusOK)

	order = env.mustDo("GET", "/sales/orders/"+idOf(o), nil, http.StatusOK)
	if str(order, "status") != entity.SOStatusShipped {
		t.Errorf("Expected shipped, got %s", str(order, "status"))
	}
	for i := range listOf(order) {
		assertNum(t, lineOf(order, i), "pending_quantity", 0)
	}

	// 全部发货单签收后订单变为已交付
	env.mustDo("POST", "/sales/deliveries/"+idOf(first)+"/confirm", nil, http.StatusOK)
	order = env.mustDo("GET", "/sales/orders/"+idOf(o), nil, http.StatusOK)
	if str(order, "status") != entity.SOStatusShipped {
		t.Errorf("Expected shipped while a delivery is in transit, got %s", str(order, "status"))
	}
	env.mustDo("POST", "/sales/deliveries/"+idOf(second)+"/confirm", nil, http.StatusOK)
	order = env.mustDo("GET", "/sales/orders/"+idOf(o), nil, http.StatusOK)
	if str(order, "status") != entity.SOStatusDelivered {
		t.Errorf("Expected delivered, got %s", str(order, "status"))
	}
}

func TestDeliveryCancel(t *testing.T) {
	env := setupERPTest(t)
	o := confirmedOrder(t, env)

	d := env.mustDo("POST", "/sales/deliveries", deliveryBody(idOf(o), idOf(lineOf(o, 0)), 10), http.StatusCreated)
	cancelled := env.mustDo("POST", "/sales/deliveries/"+idOf(d)+"/cancel", nil, http.StatusOK)
	if str(cancelled, "status") != entity.DeliveryStatusCancelled {
		t.Fatalf("Expected cancelled, got %s", str(cancelled, "status"))
	}
	env.expectStatus("POST", "/sales/deliveries/"+idOf(d)+"/ship", nil, http.StatusBadRequest)

	order := env.mustDo("GET", "/sales/orders/"+idOf(o), nil, http.StatusOK)
	if str(order, "status") != entity.SOStatusConfirmed {
		t.Errorf("Expected order still confirmed, got %s", str(order, "status"))
	}
	assertNum(t, lineOf(order, 0), "pending_quantity", 10)
}

func TestInvoiceFromOrder(t *testing.T) {
	env := setupERPTest(t)
	o := confirmedOrder(t, env)

	inv := env.mustDo("POST", "/sales/invoices", map[string]interface{}{"order_id": idOf(o)}, http.StatusCreated)
	if str(inv, "status") != entity.InvoiceStatusDraft || str(inv, "customer_id") != str(o, "customer_id") {
		t.Fatalf("unexpected invoice: %v", inv)
	}
	if len(listOf(inv)) != 2 {
		t.Fatalf("Expected items copied from order, got %d", len(listOf(inv)))
	}
	assertNum(t, inv, "grand_total", 27)
	assertNum(t, inv, "amount_due", 27)
	assertNum(t, inv, "amount_paid", 0)
}

func TestInvoiceRequiresCustomerOrOrder(t *testing.T) {
	env := setupERPTest(t)
	env.expectStatus("POST", "/sales/invoices", map[string]interface{}{"notes": "空"}, http.StatusBadRequest)

	c := testutil.SeedCustomer(t, env.db, "CUST001", "华东机械")
	o := env.mustDo("POST", "/sales/orders", quotationBody(c.ID), http.StatusCreated)
	// 草稿订单不能开票
	env.expectStatus("POST", "/sales/invoices", map[string]interface{}{"order_id": idOf(o)}, http.StatusBadRequest)
}

func TestInvoicePayments(t *testing.T) {
	env := setupERPTest(t)
	o := confirmedOrder(t, env)
	inv := env.mustDo("POST", "/sales/invoices", map[string]interface{}{"order_id": idOf(o)}, http.StatusCreated)
	path := "/sales/invoices/" + idOf(inv)

	// 草稿发票不能收款
	env.expectStatus("POST", path+"/payments", map[string]interface{}{"amount": 10, "payment_method": "cash"}, http.StatusBadRequest)

	env.mustDo("POST", path+"/send", nil, http.StatusOK)
	env.expectStatus("POST", path+"/payments", map[string]interface{}{"amount": 10, "payment_method": "barter"}, http.StatusBadRequest)
	env.expectStatus("POST", path+"/payments", map[string]interface{}{"amount": 30, "payment_method": "cash"}, http.StatusBadRequest)

	first := env.mustDo("POST", path+"/payments", map[string]interface{}{"amount": 10, "payment_method": "bank_transfer"}, http.StatusCreated)
	if str(first, "status") != entity.PaymentStatusConfirmed {
		t.Errorf("Expected confirmed payment, got %s", str(first, "status"))
	}
	got := env.mustDo("GET", path, nil, http.StatusOK)
	if str(got, "status") != entity.InvoiceStatusPartiallyPaid {
		t.Errorf("Expected partially_paid, got %s", str(got, "status"))
	}
	assertNum(t, got, "amount_paid", 10)
	assertNum(t, got, "amount_due", 17)

	env.mustDo("POST", path+"/payments", map[string]interface{}{"amount": 17, "payment_method": "cash"}, http.StatusCreated)
	got = env.mustDo("GET", path, nil, http.StatusOK)
	if str(got, "status") != entity.InvoiceStatusPaid {
		t.Errorf("Expected paid, got %s", str(got, "status"))
	}
	assertNum(t, got, "amount_due", 0)

	// 有收款的发票不能取消
	env.expectStatus("POST", path+"/cancel", nil, http.StatusBadRequest)

	voided := env.mustDo("POST", "/sales/payments/"+idOf(first)+"/void", nil, http.StatusOK)
	if str(voided, "status") != entity.PaymentStatusVoided {
		t.Errorf("Expected voided, got %s", str(voided, "status"))
	}
	got = env.mustDo("GET", path, nil, http.StatusOK)
	if str(got, "status") != entity.InvoiceStatusPartiallyPaid {
		t.Errorf("Expected partially_paid after void, got %s", str(got, "status"))
	}
	assertNum(t, got, "amount_paid", 17)
	assertNum(t, got, "amount_due", 10)

	env.expectStatus("POST", "/sales/payments/"+idOf(first)+"/void", nil, http.StatusBadRequest)

	payments := env.mustDo("GET", "/sales/payments?status=confirmed", nil, http.StatusOK)
	assertNum(t, payments, "total", 1)
}

func TestInvoicePaymentStatusFollowsPayments(t *testing.T) {
	env := setupERPTest(t)
	o := confirmedOrder(t, env)
	inv := env.mustDo("POST", "/sales/invoices", map[string]interface{}{"order_id": idOf(o)}, http.StatusCreated)
	path := "/sales/invoices/" + idOf(inv)
	env.mustDo("POST", path+"/send", nil, http.StatusOK)

	// 没有收款时不能手工标记为已付
	env.expectStatus("PUT", path, map[string]interface{}{"status": "paid"}, http.StatusBadRequest)
	env.expectStatus("PUT", path, map[string]interface{}{"status": "partially_paid"}, http.StatusBadRequest)
	got := env.mustDo("GET", path, nil, http.StatusOK)
	if str(got, "status") != entity.InvoiceStatusSent {
		t.Fatalf("Expected sent, got %s", str(got, "status"))
	}
	assertNum(t, got, "amount_paid", 0)
	assertNum(t, got, "amount_due", 27)

	env.mustDo("POST", path+"/payments", map[string]interface{}{"amount": 10, "payment_method": "cash"}, http.StatusCreated)
	// 已有收款不能改回已发送
	env.expectStatus("PUT", path, map[string]interface{}{"status": "sent"}, http.StatusBadRequest)
	got = env.mustDo("GET", path, nil, http.StatusOK)
	if str(got, "status") != entity.InvoiceStatusPartiallyPaid {
		t.Fatalf("Expected partially_paid, got %s", str(got, "status"))
	}

	// 保持原状态的更新仍然允许
	got = env.mustDo("PUT", path, map[string]interface{}{"status": "partially_paid", "notes": "催款"}, http.StatusOK)
	if str(got, "notes") != "催款" {
		t.Errorf("Expected notes updated, got %v", got["notes"])
	}
	// 逾期可以手工标记
	got = env.mustDo("PUT", path, map[string]interface{}{"status": "overdue"}, http.StatusOK)
	if str(got, "status") != entity.InvoiceStatusOverdue {
		t.Errorf("Expected overdue, got %s", str(got, "status"))
	}
}

func TestInvoiceCappedAtUninvoicedQuantity(t *testing.T) {
	env := setupERPTest(t)
	o := confirmedOrder(t, env)
	motor := idOf(lineOf(o, 0))

	partial := env.mustDo("POST", "/sales/invoices", map[string]interface{}{
		"order_id": idOf(o),
		"items": []map[string]interface{}{
			{"order_item_id": motor, "description": "电机", "quantity": 4, "unit_price": 2, "tax_rate": 10},
		},
	}, http.StatusCreated)
	assertNum(t, partial, "grand_total", 8.8)

	// 超过未开票数量
	env.expectStatus("POST", "/sales/invoices", map[string]interface{}{
		"order_id": idOf(o),
		"items": []map[string]interface{}{
			{"order_item_id": motor, "description": "电机", "quantity": 7, "unit_price": 2, "tax_rate": 10},
		},
	}, http.StatusBadRequest)

	// 按订单开票只带出剩余数量
	rest := env.mustDo("POST", "/sales/invoices", map[string]interface{}{"order_id": idOf(o)}, http.StatusCreated)
	if len(listOf(rest)) != 2 {
		t.Fatalf("Expected 2 remaining lines, got %d", len(listOf(rest)))
	}
	assertNum(t, lineOf(rest, 0), "quantity", 6)
	assertNum(t, lineOf(rest, 1), "quantity", 5)
	assertNum(t, rest, "grand_total", 18.2)

	// 已全部开票
	env.expectStatus("POST", "/sales/invoices", map[string]interface{}{"order_id": idOf(o)}, http.StatusBadRequest)

	// 取消的发票释放数量
	env.mustDo("POST", "/sales/invoices/"+idOf(partial)+"/cancel", nil, http.StatusOK)
	again := env.mustDo("POST", "/sales/invoices", map[string]interface{}{"order_id": idOf(o)}, http.StatusCreated)
	if len(listOf(again)) != 1 {
		t.Fatalf("Expected 1 released line, got %d", len(listOf(again)))
	}
	assertNum(t, lineOf(again, 0), "quantity", 4)

	// 草稿发票追加明细同样受限
	env.expectStatus("POST", "/sales/invoices/"+idOf(again)+"/items", map[string]interface{}{
		"order_item_id": motor, "description": "电机", "quantity": 1, "unit_price": 2,
	}, http.StatusBadRequest)
}

func TestReturnBoundedByDelivered(t *testing.T) {
	env := setupERPTest(t)
	o := confirmedOrder(t, env)
	motor, belt := idOf(lineOf(o, 0)), idOf(lineOf(o, 1))

	d := env.mustDo("POST", "/sales/deliveries", deliveryBody(idOf(o), motor, 4), http.StatusCreated)
	env.mustDo("POST", "/sales/deliveries/"+idOf(d)+"/ship", nil, http.StatusOK)

	returnBody := func(itemID string, qty float64) map[string]interface{} {
		return map[string]interface{}{
			"order_id": idOf(o), "delivery_id": idOf(d), "reason": "破损",
			"items": []map[string]interface{}{{"order_item_id": itemID, "quantity": qty}},
		}
	}

	// 超过已发货数量，未发货的明细不能退
	env.expectStatus("POST", "/sales/returns", returnBody(motor, 5), http.StatusBadRequest)
	env.expectStatus("POST", "/sales/returns", returnBody(belt, 1), http.StatusBadRequest)

	ret := env.mustDo("POST", "/sales/returns", returnBody(motor, 3), http.StatusCreated)
	if str(ret, "status") != entity.ReturnStatusPending || str(ret, "customer_id") != str(o, "customer_id") {
		t.Fatalf("unexpected return: %v", ret)
	}
	assertNum(t, ret, "total_amount", 6)
	path := "/sales/returns/" + idOf(ret)

	env.expectStatus("PUT", path, map[string]interface{}{"status": entity.ReturnStatusCompleted}, http.StatusBadRequest)
	approved := env.mustDo("PUT", path, map[string]interface{}{"status": entity.ReturnStatusApproved}, http.StatusOK)
	if str(approved, "status") != entity.ReturnStatusApproved {
		t.Errorf("Expected approved, got %s", str(approved, "status"))
	}

	// 只有待审核的退货单可以删除
	env.expectStatus("DELETE", path, nil, http.StatusBadRequest)
}
