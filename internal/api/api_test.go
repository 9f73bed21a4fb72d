package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"botwatch/internal/botconfig"
	"botwatch/internal/core/domain"
	"botwatch/internal/health"
	"botwatch/internal/infra/storage/memory"
	"botwatch/internal/ingest"
	"botwatch/internal/ledger"
	"botwatch/internal/notify"
	"botwatch/internal/registry"
)

const (
	parentAddr = "So11111111111111111111111111111111111111112"
	childAddr  = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

type apiRig struct {
	server        *Server
	registry      *registry.Service
	ledger        *ledger.Service
	notifications *notify.Service
	hub           *notify.Hub
}

func newAPIRig(t *testing.T, authToken string) *apiRig {
	t.Helper()
	store := memory.NewMemoryStorage()

	hub := notify.NewHub(8)
	t.Cleanup(func() { hub.Close() })

	notifications := notify.NewService(memory.NewNotificationRepo(store), hub)
	reg := registry.NewService(memory.NewWalletRepo(store), registry.NewFilter(), notifications)
	led := ledger.NewService(memory.NewTxRepo(store), nil, notifications, nil)
	configs := botconfig.NewService(memory.NewConfigRepo(store), memory.NewWalletRepo(store))
	pipeline := ingest.NewPipeline(ingest.Config{}, reg, led, configs, notifications, nil)
	monitor := health.NewMonitor(health.Deps{
		Wallets:       memory.NewWalletRepo(store),
		Txs:           memory.NewTxRepo(store),
		Notifications: memory.NewNotificationRepo(store),
		QueueDepth:    pipeline.QueueDepth,
	}, 15*time.Second)

	server := NewServer(Config{Port: 0, AuthToken: authToken}, Deps{
		Registry:      reg,
		Ledger:        led,
		Configs:       configs,
		Notifications: notifications,
		Hub:           hub,
		Pipeline:      pipeline,
		Monitor:       monitor,
		Projects:      memory.NewProjectRepo(store),
	})

	return &apiRig{
		server:        server,
		registry:      reg,
		ledger:        led,
		notifications: notifications,
		hub:           hub,
	}
}

func (rig *apiRig) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	rig.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestWalletEndpoints(t *testing.T) {
	rig := newAPIRig(t, "")

	rec := rig.do(t, http.MethodPost, "/api/v1/wallets", payload{"address": parentAddr, "label": "treasury", "level": 0})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	wallet := decode[domain.Wallet](t, rec)
	if wallet.Address != parentAddr || !wallet.IsActive {
		t.Errorf("Unexpected wallet %+v", wallet)
	}

	// Duplicate registration conflicts
	rec = rig.do(t, http.MethodPost, "/api/v1/wallets", payload{"address": parentAddr})
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate, got %d", rec.Code)
	}

	// Malformed address is a client error
	rec = rig.do(t, http.MethodPost, "/api/v1/wallets", payload{"address": "not-base58!"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid address, got %d", rec.Code)
	}

	rec = rig.do(t, http.MethodGet, "/api/v1/wallets", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if wallets := decode[[]domain.Wallet](t, rec); len(wallets) != 1 {
		t.Errorf("Expected 1 wallet, got %d", len(wallets))
	}

	rec = rig.do(t, http.MethodGet, "/api/v1/wallets/"+childAddr, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown wallet, got %d", rec.Code)
	}

	rec = rig.do(t, http.MethodPatch, "/api/v1/wallets/"+parentAddr+"/active", payload{"active": false})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rec = rig.do(t, http.MethodGet, "/api/v1/wallets/"+parentAddr, nil)
	if w := decode[domain.Wallet](t, rec); w.IsActive {
		t.Error("Expected wallet deactivated")
	}

	rec = rig.do(t, http.MethodGet, "/api/v1/wallets/"+parentAddr+"/qr?size=128", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for QR, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Expected image/png, got %s", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("Expected PNG bytes")
	}
}

func TestTransactionEndpoints(t *testing.T) {
	rig := newAPIRig(t, "")

	body := payload{
		"tx_id":        "sig-api-1",
		"from_wallet":  parentAddr,
		"to_wallet":    childAddr,
		"token_symbol": "SOL",
		"amount":       "3.5",
		"type":         "transfer",
	}
	rec := rig.do(t, http.MethodPost, "/api/v1/transactions", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	tx := decode[domain.Transaction](t, rec)
	if tx.Status != domain.TxStatusPending {
		t.Errorf("Expected pending, got %s", tx.Status)
	}

	// Both endpoints were auto-registered
	if _, err := rig.registry.Get(context.Background(), childAddr); err != nil {
		t.Errorf("Expected auto-registered wallet: %v", err)
	}

	rec = rig.do(t, http.MethodPost, "/api/v1/transactions", body)
	if rec.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate tx, got %d", rec.Code)
	}

	rec = rig.do(t, http.MethodGet, "/api/v1/transactions?status=pending", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if txs := decode[[]domain.Transaction](t, rec); len(txs) != 1 {
		t.Errorf("Expected 1 pending tx, got %d", len(txs))
	}

	rec = rig.do(t, http.MethodGet, "/api/v1/transactions/sig-missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}

	// pending -> completed
	rec = rig.do(t, http.MethodPatch, "/api/v1/transactions/sig-api-1/status", payload{"status": "completed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// completed -> pending is rejected
	rec = rig.do(t, http.MethodPatch, "/api/v1/transactions/sig-api-1/status", payload{"status": "pending"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid transition, got %d", rec.Code)
	}

	// Retry only applies to failed transactions
	rec = rig.do(t, http.MethodPost, "/api/v1/transactions/sig-api-1/retry", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 retrying a completed tx, got %d", rec.Code)
	}

	body["tx_id"] = "sig-api-2"
	rig.do(t, http.MethodPost, "/api/v1/transactions", body)
	rig.do(t, http.MethodPatch, "/api/v1/transactions/sig-api-2/status", payload{"status": "failed", "fail_reason": "slippage"})
	rec = rig.do(t, http.MethodPost, "/api/v1/transactions/sig-api-2/retry", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 for retry, got %d: %s", rec.Code, rec.Body.String())
	}
	if tx := decode[domain.Transaction](t, rec); tx.RetryCount != 1 {
		t.Errorf("Expected retry count 1, got %d", tx.RetryCount)
	}
}

func TestBotConfigEndpoints(t *testing.T) {
	rig := newAPIRig(t, "")
	ctx := context.Background()

	cfgBody := payload{"min_amount": "1", "max_amount": "100", "enabled": true}

	// Unknown wallet
	rec := rig.do(t, http.MethodPut, "/api/v1/bot/config/"+parentAddr, cfgBody)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unregistered parent, got %d", rec.Code)
	}

	if _, err := rig.registry.Register(ctx, parentAddr, "treasury", 0); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if _, err := rig.registry.Register(ctx, childAddr, "child", 1); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	// Child wallets cannot carry a configuration
	rec = rig.do(t, http.MethodPut, "/api/v1/bot/config/"+childAddr, cfgBody)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for child wallet, got %d", rec.Code)
	}

	rec = rig.do(t, http.MethodPut, "/api/v1/bot/config/"+parentAddr, cfgBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = rig.do(t, http.MethodGet, "/api/v1/bot/config/"+parentAddr, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	cfg := decode[domain.BotConfiguration](t, rec)
	if !cfg.Enabled || cfg.MaxAmount.String() != "100" {
		t.Errorf("Unexpected config %+v", cfg)
	}

	// Replace drops fields absent from the body
	rec = rig.do(t, http.MethodPut, "/api/v1/bot/config/"+parentAddr, payload{"min_amount": "5", "enabled": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	rec = rig.do(t, http.MethodGet, "/api/v1/bot/config/"+parentAddr, nil)
	cfg = decode[domain.BotConfiguration](t, rec)
	if !cfg.MaxAmount.IsZero() {
		t.Errorf("Expected max amount reset on replace, got %s", cfg.MaxAmount)
	}

	rec = rig.do(t, http.MethodGet, "/api/v1/bot/config/"+childAddr, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for absent config, got %d", rec.Code)
	}
}

func TestNotificationEndpoints(t *testing.T) {
	rig := newAPIRig(t, "")
	ctx := context.Background()

	for _, title := range []string{"first", "second"} {
		err := rig.notifications.Append(ctx, &domain.Notification{
			Type:    domain.NotifyInfo,
			Title:   title,
			Message: "m",
		})
		if err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	rec := rig.do(t, http.MethodGet, "/api/v1/notifications", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	items := decode[[]domain.Notification](t, rec)
	if len(items) != 2 {
		t.Fatalf("Expected 2 notifications, got %d", len(items))
	}

	// Newest first
	if items[0].Title != "second" {
		t.Errorf("Expected newest first, got %s", items[0].Title)
	}

	rec = rig.do(t, http.MethodPatch, "/api/v1/notifications/"+items[0].ID+"/read", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	rec = rig.do(t, http.MethodGet, "/api/v1/notifications?unread=true", nil)
	if unread := decode[[]domain.Notification](t, rec); len(unread) != 1 || unread[0].Title != "first" {
		t.Errorf("Expected only first unread, got %+v", unread)
	}

	rec = rig.do(t, http.MethodPost, "/api/v1/notifications/read-all", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	rec = rig.do(t, http.MethodGet, "/api/v1/notifications?unread=true", nil)
	if unread := decode[[]domain.Notification](t, rec); len(unread) != 0 {
		t.Errorf("Expected none unread after read-all, got %d", len(unread))
	}

	rec = rig.do(t, http.MethodPatch, "/api/v1/notifications/nope/read", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
}

func TestProjectEndpoints(t *testing.T) {
	rig := newAPIRig(t, "")

	rec := rig.do(t, http.MethodPost, "/api/v1/projects", payload{"name": "mainnet bot", "parent_wallet_address": parentAddr})
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	project := decode[domain.Project](t, rec)
	if project.ID == "" || project.Status != domain.ProjectStatusActive {
		t.Errorf("Unexpected project %+v", project)
	}

	// A created project is retrievable by its id
	rec = rig.do(t, http.MethodGet, "/api/v1/projects/"+project.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got := decode[domain.Project](t, rec); got.Name != "mainnet bot" {
		t.Errorf("Expected round-trip name, got %q", got.Name)
	}

	rec = rig.do(t, http.MethodPost, "/api/v1/projects", payload{"name": "x", "parent_wallet_address": "bogus"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid parent address, got %d", rec.Code)
	}

	rec = rig.do(t, http.MethodPatch, "/api/v1/projects/"+project.ID+"/status", payload{"status": "paused"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	rec = rig.do(t, http.MethodPatch, "/api/v1/projects/"+project.ID+"/status", payload{"status": "bogus"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown status, got %d", rec.Code)
	}

	rec = rig.do(t, http.MethodDelete, "/api/v1/projects/"+project.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	rec = rig.do(t, http.MethodGet, "/api/v1/projects/"+project.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", rec.Code)
	}
}

func TestBearerAuth(t *testing.T) {
	rig := newAPIRig(t, "secret-token")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets", nil)
	rec := httptest.NewRecorder()
	rig.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/wallets", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	rig.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 with wrong token, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/wallets", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec = httptest.NewRecorder()
	rig.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with token, got %d", rec.Code)
	}

	// Operational endpoints stay open
	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec = httptest.NewRecorder()
	rig.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 for healthz, got %d", rec.Code)
	}
}

func TestHealthzAndStatus(t *testing.T) {
	rig := newAPIRig(t, "")

	rec := rig.do(t, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	report := decode[health.Report](t, rec)
	if report.Status != health.StatusHealthy {
		t.Errorf("Expected healthy, got %s", report.Status)
	}

	rec = rig.do(t, http.MethodGet, "/api/v1/bot/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	status := decode[health.BotStatus](t, rec)
	if !status.Running {
		t.Error("Expected running true")
	}
}

// payload is shorthand for JSON request bodies.
type payload = map[string]any
