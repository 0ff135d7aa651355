package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dmehra2102/restaurant-pos/internal/access"
	auditapp "github.com/dmehra2102/restaurant-pos/internal/audit/application"
	auditdomain "github.com/dmehra2102/restaurant-pos/internal/audit/domain"
	menudomain "github.com/dmehra2102/restaurant-pos/internal/menu/domain"
	menumemory "github.com/dmehra2102/restaurant-pos/internal/menu/infrastructure/memory"
	"github.com/dmehra2102/restaurant-pos/internal/order/application"
	"github.com/dmehra2102/restaurant-pos/internal/order/infrastructure/memory"
	paymentapp "github.com/dmehra2102/restaurant-pos/internal/payment/application"
	paymentmemory "github.com/dmehra2102/restaurant-pos/internal/payment/infrastructure/memory"
)

type sinkLog struct{ sink *auditapp.MemorySink }

func (s sinkLog) Latest(_ context.Context, limit int) ([]auditdomain.Fact, error) {
	facts := s.sink.Facts()
	if len(facts) > limit {
		facts = facts[len(facts)-limit:]
	}
	return facts, nil
}

type memIdem struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memIdem) RequestKey(scope string, parts ...string) string {
	k := scope
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

func (m *memIdem) Seen(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return true, nil
	}
	m.keys[key] = true
	return false, nil
}

func (m *memIdem) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, key)
	return nil
}

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink := &auditapp.MemorySink{}
	catalog := menumemory.NewCatalog(
		menudomain.Item{ID: "m-siu-mai", SKU: "DS-02", Name: "Siu Mai", Price: decimal.RequireFromString("10.00"), Category: menudomain.CategoryDimSum, IsAvailable: true},
		menudomain.Item{ID: "m-tea", SKU: "DR-01", Name: "Jasmine Tea", Price: decimal.RequireFromString("5.00"), Category: menudomain.CategoryDrinks, IsAvailable: true},
	)
	ledger := application.NewLedger(log, memory.NewStore(), catalog, memory.NewSequence(1000), sink, decimal.RequireFromString("0.0825"))
	payments := paymentapp.NewService(log, paymentmemory.NewRepository(), ledger, paymentapp.TerminalAuthorizer{}, sink)
	gate := access.NewGate(log, access.NewStaticDirectory(
		access.User{ID: "u-manager", Role: access.RoleManager, IsActive: true},
		access.User{ID: "u-server", Role: access.RoleServer, IsActive: true},
		access.User{ID: "u-host", Role: access.RoleHost, IsActive: true},
	))
	h := NewHandler(log, ledger, payments, catalog, sinkLog{sink}, gate, &memIdem{keys: map[string]bool{}})

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, actor string, body any, headers ...string) (int, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, srv.URL+path, rdr)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if actor != "" {
		req.Header.Set(ActorHeader, actor)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var out map[string]any
	_ = json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func TestOrderFlow(t *testing.T) {
	srv := newServer(t)

	code, o := call(t, srv, http.MethodPost, "/orders", "u-server", map[string]any{"type": "dine-in", "table_id": "T12"})
	if code != http.StatusCreated {
		t.Fatalf("create: %d %v", code, o)
	}
	id := o["id"].(string)
	if o["order_number"].(float64) != 1001 {
		t.Fatalf("order number = %v", o["order_number"])
	}

	code, _ = call(t, srv, http.MethodPost, "/orders/"+id+"/items", "u-server", map[string]any{"menu_item_id": "m-siu-mai", "quantity": 2})
	if code != http.StatusCreated {
		t.Fatalf("add siu mai: %d", code)
	}
	code, item := call(t, srv, http.MethodPost, "/orders/"+id+"/items", "u-server", map[string]any{"menu_item_id": "m-tea", "quantity": 1})
	if code != http.StatusCreated {
		t.Fatalf("add tea: %d", code)
	}

	code, o = call(t, srv, http.MethodGet, "/orders/"+id, "u-host", nil)
	if code != http.StatusOK {
		t.Fatalf("get: %d", code)
	}
	display := o["display"].(map[string]any)
	if display["subtotal"] != "25.00" || display["tax"] != "2.06" || display["total"] != "27.06" {
		t.Fatalf("display = %v", display)
	}

	code, sent := call(t, srv, http.MethodPost, "/orders/"+id+"/send", "u-server", nil)
	if code != http.StatusOK || sent["sent"].(float64) != 2 {
		t.Fatalf("send: %d %v", code, sent)
	}
	code, _ = call(t, srv, http.MethodPatch, "/orders/"+id+"/items/"+item["id"].(string), "u-server", map[string]any{"delta": 1})
	if code != http.StatusConflict {
		t.Fatalf("edit sent item: %d", code)
	}

	code, _ = call(t, srv, http.MethodPost, "/orders/"+id+"/void", "u-server", map[string]any{"reason": "mistake"})
	if code != http.StatusForbidden {
		t.Fatalf("server void: %d", code)
	}
	code, o = call(t, srv, http.MethodPost, "/orders/"+id+"/void", "u-manager", map[string]any{"reason": "mistake"})
	if code != http.StatusOK || o["status"] != "voided" {
		t.Fatalf("manager void: %d %v", code, o)
	}

	code, _ = call(t, srv, http.MethodPost, "/orders/"+id+"/items", "u-server", map[string]any{"menu_item_id": "m-tea", "quantity": 1})
	if code != http.StatusConflict {
		t.Fatalf("add to voided: %d", code)
	}
}

func TestItemDefaultsAndCombinedEdit(t *testing.T) {
	srv := newServer(t)

	_, o := call(t, srv, http.MethodPost, "/orders", "u-server", map[string]any{"type": "takeout"})
	id := o["id"].(string)

	code, item := call(t, srv, http.MethodPost, "/orders/"+id+"/items", "u-server", map[string]any{"menu_item_id": "m-tea"})
	if code != http.StatusCreated || item["quantity"].(float64) != 1 {
		t.Fatalf("add without quantity: %d %v", code, item)
	}
	code, _ = call(t, srv, http.MethodPost, "/orders/"+id+"/items", "u-server", map[string]any{"menu_item_id": "m-tea", "quantity": 0})
	if code != http.StatusBadRequest {
		t.Fatalf("explicit zero quantity: %d", code)
	}

	itemPath := "/orders/" + id + "/items/" + item["id"].(string)
	code, o = call(t, srv, http.MethodPatch, itemPath, "u-server", map[string]any{"delta": 2, "notes": "less sugar"})
	if code != http.StatusOK {
		t.Fatalf("combined edit: %d %v", code, o)
	}
	edited := o["items"].([]any)[0].(map[string]any)
	if edited["quantity"].(float64) != 3 || edited["notes"] != "less sugar" || o["version"].(float64) != 3 {
		t.Fatalf("after combined edit: %v", o)
	}

	code, _ = call(t, srv, http.MethodPatch, itemPath, "u-server", map[string]any{})
	if code != http.StatusBadRequest {
		t.Fatalf("empty edit: %d", code)
	}

	call(t, srv, http.MethodPost, "/orders/"+id+"/send", "u-server", nil)
	code, _ = call(t, srv, http.MethodPatch, itemPath, "u-server", map[string]any{"delta": 1, "notes": "hot"})
	if code != http.StatusConflict {
		t.Fatalf("edit after send: %d", code)
	}
	_, o = call(t, srv, http.MethodGet, "/orders/"+id, "u-server", nil)
	kept := o["items"].([]any)[0].(map[string]any)
	if kept["quantity"].(float64) != 3 || kept["notes"] != "less sugar" {
		t.Fatalf("rejected edit changed the item: %v", kept)
	}
}

func TestErrorMapping(t *testing.T) {
	srv := newServer(t)

	cases := []struct {
		name   string
		method string
		path   string
		actor  string
		body   any
		want   int
	}{
		{"missing actor", http.MethodGet, "/orders", "", nil, http.StatusUnauthorized},
		{"unknown actor", http.MethodGet, "/orders", "u-nobody", nil, http.StatusForbidden},
		{"host cannot write", http.MethodPost, "/orders", "u-host", map[string]any{"type": "takeout"}, http.StatusForbidden},
		{"bad type", http.MethodPost, "/orders", "u-server", map[string]any{"type": "drive-thru"}, http.StatusBadRequest},
		{"dine-in needs table", http.MethodPost, "/orders", "u-server", map[string]any{"type": "dine-in"}, http.StatusBadRequest},
		{"unknown order", http.MethodGet, "/orders/nope", "u-server", nil, http.StatusNotFound},
		{"item on unknown order", http.MethodPost, "/orders/nope/items", "u-server", map[string]any{"menu_item_id": "m-tea", "quantity": 1}, http.StatusNotFound},
		{"bad limit", http.MethodGet, "/orders?limit=x", "u-server", nil, http.StatusBadRequest},
		{"server cannot read audit", http.MethodGet, "/audit", "u-server", nil, http.StatusForbidden},
	}
	for _, tc := range cases {
		if code, body := call(t, srv, tc.method, tc.path, tc.actor, tc.body); code != tc.want {
			t.Fatalf("%s: got %d (%v), want %d", tc.name, code, body, tc.want)
		}
	}
}

func TestPaymentIdempotency(t *testing.T) {
	srv := newServer(t)

	_, o := call(t, srv, http.MethodPost, "/orders", "u-manager", map[string]any{"type": "takeout"})
	id := o["id"].(string)
	call(t, srv, http.MethodPost, "/orders/"+id+"/items", "u-manager", map[string]any{"menu_item_id": "m-tea", "quantity": 2})

	code, _ := call(t, srv, http.MethodPost, "/orders/"+id+"/payments", "u-server", map[string]any{"method": "cash", "amount": "10.83"})
	if code != http.StatusForbidden {
		t.Fatalf("server payment: %d", code)
	}

	pay := map[string]any{"method": "cash", "amount": "10.83", "cash_tendered": "20"}
	code, p := call(t, srv, http.MethodPost, "/orders/"+id+"/payments", "u-manager", pay, IdempotencyHeader, "till-1-0001")
	if code != http.StatusCreated || p["status"] != "approved" || p["change_due"] != "9.17" {
		t.Fatalf("pay: %d %v", code, p)
	}
	code, _ = call(t, srv, http.MethodPost, "/orders/"+id+"/payments", "u-manager", pay, IdempotencyHeader, "till-1-0001")
	if code != http.StatusConflict {
		t.Fatalf("replayed payment: %d", code)
	}

	code, r := call(t, srv, http.MethodPost, "/payments/"+p["id"].(string)+"/refund", "u-manager", map[string]any{"reason": "overcharged"})
	if code != http.StatusOK || r["status"] != "refunded" {
		t.Fatalf("refund: %d %v", code, r)
	}

	code, audit := callList(t, srv, "/audit?limit=2", "u-manager")
	if code != http.StatusOK || len(audit) != 2 || audit[1]["action"] != string(auditdomain.ActionPaymentRefund) {
		t.Fatalf("audit: %d %v", code, audit)
	}
}

func callList(t *testing.T, srv *httptest.Server, path, actor string) (int, []map[string]any) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	req.Header.Set(ActorHeader, actor)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	var out []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.StatusCode, out
}
