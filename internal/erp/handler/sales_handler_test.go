package handler_test

import (
	"net/http"
	"testing"

	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/entity"
	"github.com/CoderMariusz/MonoPilot-sub019/internal/erp/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSalesOrderLifecycleOverHTTP(t *testing.T) {
	mem := testutil.NewMemStore()
	router, _ := testutil.NewRouter(mem)
	token := testutil.MakeToken(testUser, testOrg, "manager")

	// 入库一个批次
	w := doRequest(t, router, http.MethodPost, "/api/v1/erp/license-plates", token, map[string]interface{}{
		"product_id": "prod-1",
		"quantity":   50,
		"qa_status":  "passed",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 创建订单
	w = doRequest(t, router, http.MethodPost, "/api/v1/erp/sales-orders", token, map[string]interface{}{
		"customer_id": "cust-1",
		"lines": []map[string]interface{}{
			{"product_id": "prod-1", "quantity": 30},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeEnvelope(t, w)
	so := resp["data"].(map[string]interface{})
	soID := so["id"].(string)
	assert.Equal(t, entity.SOStatusPending, so["status"])

	// 确认
	w = doRequest(t, router, http.MethodPost, "/api/v1/erp/sales-orders/"+soID+"/confirm", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 分配
	w = doRequest(t, router, http.MethodPost, "/api/v1/erp/sales-orders/"+soID+"/allocate", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// 读取订单：行已分配
	w = doRequest(t, router, http.MethodGet, "/api/v1/erp/sales-orders/"+soID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeEnvelope(t, w)
	so = resp["data"].(map[string]interface{})
	assert.Equal(t, entity.SOStatusAllocated, so["status"])
	lines := so["lines"].([]interface{})
	require.Len(t, lines, 1)
	assert.Equal(t, float64(30), lines[0].(map[string]interface{})["quantity_allocated"])

	// 列表
	w = doRequest(t, router, http.MethodGet, "/api/v1/erp/sales-orders?status=allocated", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decodeEnvelope(t, w)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["total"])
}

func TestCreateSOValidation(t *testing.T) {
	router, _ := testutil.NewRouter(testutil.NewMemStore())
	token := testutil.MakeToken(testUser, testOrg, "manager")

	// 缺少行
	w := doRequest(t, router, http.MethodPost, "/api/v1/erp/sales-orders", token, map[string]interface{}{
		"customer_id": "cust-1",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 数量非正
	w = doRequest(t, router, http.MethodPost, "/api/v1/erp/sales-orders", token, map[string]interface{}{
		"lines": []map[string]interface{}{{"product_id": "prod-1", "quantity": 0}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetLicensePlateEndpoint(t *testing.T) {
	mem := testutil.NewMemStore()
	seedAllocatable(mem)
	router, _ := testutil.NewRouter(mem)
	token := testutil.MakeToken(testUser, testOrg, "warehouse")

	w := doRequest(t, router, http.MethodGet, "/api/v1/erp/license-plates/lot-1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decodeEnvelope(t, w)
	lp := resp["data"].(map[string]interface{})
	assert.Equal(t, "LP-1", lp["lp_number"])

	w = doRequest(t, router, http.MethodGet, "/api/v1/erp/license-plates/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
