package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-sim-go/engine"
	"trading-sim-go/hub"
	"trading-sim-go/infrastructure/logger"
	"trading-sim-go/infrastructure/monitor"
	"trading-sim-go/order"
	"trading-sim-go/scheduler"
)

// newTestServer 组装真实组件；autoMin/autoMax 控制自动成交延迟。
func newTestServer(t *testing.T, autoMin, autoMax time.Duration) (*httptest.Server, *hub.Hub) {
	t.Helper()

	log := logger.NewNop()
	mon := monitor.New(monitor.DefaultConfig())
	h := hub.New(16, log, mon)

	sched, err := scheduler.New(autoMin, autoMax, log)
	require.NoError(t, err)

	eng, err := engine.New(engine.Components{
		Store:    order.NewStore(),
		Notifier: h,
		Trigger:  sched,
		Logger:   log,
		Monitor:  mon,
	})
	require.NoError(t, err)
	sched.Bind(eng.AutoExecute)

	// 测试不模拟延迟
	s := NewServer(Config{WriteTimeout: time.Second}, eng, h, log, mon)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, h
}

func placeOrder(t *testing.T, ts *httptest.Server, symbol string, quantity float64) order.Order {
	t.Helper()
	body, _ := json.Marshal(map[string]interface{}{"symbol": symbol, "quantity": quantity})
	resp, err := http.Post(ts.URL+"/orders", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var o order.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&o))
	return o
}

func doRequest(t *testing.T, method, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, time.Hour, time.Hour)

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status string    `json:"status"`
		Date   time.Time `json:"date"`
	}
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "ok", health.Status)
	assert.False(t, health.Date.IsZero())
}

func TestPlaceOrder(t *testing.T) {
	ts, _ := newTestServer(t, time.Hour, time.Hour)

	o := placeOrder(t, ts, "AAAA", 10)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "AAAA", o.Symbol)
	assert.Equal(t, 10.0, o.Quantity)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Nil(t, o.ExecutedAt)
}

func TestPlaceOrderValidation(t *testing.T) {
	ts, _ := newTestServer(t, time.Hour, time.Hour)

	tests := []struct {
		name string
		body string
	}{
		{"missing symbol", `{"quantity": 10}`},
		{"zero quantity", `{"symbol": "AAAA", "quantity": 0}`},
		{"negative quantity", `{"symbol": "AAAA", "quantity": -5}`},
		{"not json", `quantity=10`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/orders", "application/json", bytes.NewReader([]byte(tc.body)))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestGetOrderNotFound(t *testing.T) {
	ts, _ := newTestServer(t, time.Hour, time.Hour)

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/orders/does-not-exist")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var apiErr struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Code)
	assert.Equal(t, "Order not found", apiErr.Message)
}

// TestCancelFlow 提交→撤单→查询→再执行返回 400。
func TestCancelFlow(t *testing.T) {
	ts, _ := newTestServer(t, time.Hour, time.Hour)

	o := placeOrder(t, ts, "AAAA", 10)
	require.Equal(t, order.StatusPending, o.Status)

	resp, body := doRequest(t, http.MethodDelete, ts.URL+"/orders/"+o.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cancelled order.Order
	require.NoError(t, json.Unmarshal(body, &cancelled))
	assert.Equal(t, order.StatusCancelled, cancelled.Status)

	resp, body = doRequest(t, http.MethodGet, ts.URL+"/orders/"+o.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got order.Order
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, order.StatusCancelled, got.Status)

	resp, body = doRequest(t, http.MethodPost, ts.URL+"/orders/"+o.ID+"/execute")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "CANCELLED")
	assert.Contains(t, string(body), "Only PENDING orders")
}

// TestExecuteFlow 手动执行路径与重复执行。
func TestExecuteFlow(t *testing.T) {
	ts, _ := newTestServer(t, time.Hour, time.Hour)

	o := placeOrder(t, ts, "BBBB", 5)

	resp, body := doRequest(t, http.MethodPost, ts.URL+"/orders/"+o.ID+"/execute")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var executed order.Order
	require.NoError(t, json.Unmarshal(body, &executed))
	assert.Equal(t, order.StatusExecuted, executed.Status)
	require.NotNil(t, executed.ExecutedAt)
	assert.False(t, executed.ExecutedAt.Before(executed.CreatedAt))

	// 重复执行与撤单都必须 400
	resp, _ = doRequest(t, http.MethodPost, ts.URL+"/orders/"+o.ID+"/execute")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, body = doRequest(t, http.MethodDelete, ts.URL+"/orders/"+o.ID)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "EXECUTED")
}

// TestAutoExecuteFlow 等过自动成交延迟后订单变为 EXECUTED。
func TestAutoExecuteFlow(t *testing.T) {
	ts, _ := newTestServer(t, 10*time.Millisecond, 30*time.Millisecond)

	o := placeOrder(t, ts, "BBBB", 5)

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, body := doRequest(t, http.MethodGet, ts.URL+"/orders/"+o.ID)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var got order.Order
		require.NoError(t, json.Unmarshal(body, &got))
		if got.Status == order.StatusExecuted {
			require.NotNil(t, got.ExecutedAt)
			assert.False(t, got.ExecutedAt.Before(got.CreatedAt))
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("order not auto-executed, still %s", got.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestListOrders(t *testing.T) {
	ts, _ := newTestServer(t, time.Hour, time.Hour)

	a := placeOrder(t, ts, "AAAA", 1)
	b := placeOrder(t, ts, "BBBB", 2)

	resp, body := doRequest(t, http.MethodGet, ts.URL+"/orders")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got []order.Order
	require.NoError(t, json.Unmarshal(body, &got))
	require.Len(t, got, 2)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, b.ID, got[1].ID)
}

func TestNotFoundVariants(t *testing.T) {
	ts, _ := newTestServer(t, time.Hour, time.Hour)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/orders/missing/execute"},
		{http.MethodDelete, "/orders/missing"},
	} {
		resp, _ := doRequest(t, tc.method, ts.URL+tc.path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, fmt.Sprintf("%s %s", tc.method, tc.path))
	}
}
