package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/aaane/member-portal/backend/internal/hpp"
	"github.com/aaane/member-portal/backend/internal/models"
	"github.com/aaane/member-portal/backend/internal/store"
	"github.com/aaane/member-portal/backend/internal/wizard"
)

// In-memory test doubles.

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]wizard.Session
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: make(map[string]wizard.Session)}
}

func (m *memSessions) CreateSession(ctx context.Context, session wizard.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
	return nil
}

func (m *memSessions) GetSession(ctx context.Context, id string) (*wizard.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, store.ErrSessionNotFound
	}
	return &session, nil
}

func (m *memSessions) UpdateSession(ctx context.Context, session wizard.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID]; !ok {
		return store.ErrSessionNotFound
	}
	m.sessions[session.ID] = session
	return nil
}

func (m *memSessions) get(t *testing.T, id string) wizard.Session {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[id]
	if !ok {
		t.Fatalf("session %s not stored", id)
	}
	return session
}

type memPayments struct {
	mu       sync.Mutex
	payments []models.PaymentRecord
}

func (m *memPayments) RecordPayment(ctx context.Context, payment *models.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	payment.ID = int64(len(m.payments) + 1)
	m.payments = append(m.payments, *payment)
	return nil
}

type fakeBilling struct {
	products map[string]models.Product
	promos   map[string]models.PromoCode

	account models.Account
	profile models.BillingProfile

	activeProducts []models.AccountProduct

	createAccountErr error
	createProfileErr error
}

func newFakeBilling() *fakeBilling {
	return &fakeBilling{
		products: map[string]models.Product{
			"prod-classic-m": {ID: "prod-classic-m", Name: "Classic Basic Monthly", Price: 9.99, Cycle: models.CycleMonthly, Level: models.LevelClassic},
			"prod-plus-m":    {ID: "prod-plus-m", Name: "Plus Monthly", Price: 14.99, Cycle: models.CycleMonthly, Level: models.LevelPlus},
		},
		promos: map[string]models.PromoCode{
			"SAVE10":   {ID: "promo-1", Code: "SAVE10", Status: "ACTIVE", DiscountPercent: 10},
			"AUTOPAY5": {ID: "promo-2", Code: "AUTOPAY5", Status: "ACTIVE", DiscountPercent: 5, RequiresAutopay: true},
		},
		account: models.Account{ID: "acct-1", Name: "Jordan Baker"},
		profile: models.BillingProfile{ID: "bp-1", AccountID: "acct-1", HostedPaymentPageExternalID: "hpp-ext-1"},
	}
}

func (f *fakeBilling) GetProductByID(ctx context.Context, productID string) (models.Product, error) {
	p, ok := f.products[productID]
	if !ok {
		return models.Product{}, fmt.Errorf("get product %s: not found", productID)
	}
	return p, nil
}

func (f *fakeBilling) CreateAccount(ctx context.Context, input models.NewAccountInput) (models.Account, error) {
	if f.createAccountErr != nil {
		return models.Account{}, f.createAccountErr
	}
	return f.account, nil
}

func (f *fakeBilling) CreateBillingProfile(ctx context.Context, input models.NewAccountInput, accountID, billTo string, cycle models.BillingCycle) (models.BillingProfile, error) {
	if f.createProfileErr != nil {
		return models.BillingProfile{}, f.createProfileErr
	}
	return f.profile, nil
}

func (f *fakeBilling) GetAccountByID(ctx context.Context, accountID string) (models.Account, error) {
	if accountID != f.account.ID {
		return models.Account{}, fmt.Errorf("get account %s: not found", accountID)
	}
	return f.account, nil
}

func (f *fakeBilling) GetBillingProfileByAccountID(ctx context.Context, accountID string) (models.BillingProfile, error) {
	return f.profile, nil
}

func (f *fakeBilling) GetAccountProductsByAccountID(ctx context.Context, accountID string) ([]models.AccountProduct, error) {
	return f.activeProducts, nil
}

func (f *fakeBilling) FindPromoCode(ctx context.Context, code string) (models.PromoCode, bool, error) {
	p, ok := f.promos[code]
	if !ok || !p.Active() {
		return models.PromoCode{}, false, nil
	}
	return p, true, nil
}

type staticTokens struct{}

func (staticTokens) AuthenticateHostedPayments(ctx context.Context) (string, error) {
	return "sec-token-1", nil
}

type spyProvisioner struct {
	mu     sync.Mutex
	calls  int
	result hpp.ProvisionResult
	err    error
	last   hpp.ProvisionRequest
}

func (s *spyProvisioner) Provision(ctx context.Context, req hpp.ProvisionRequest) (hpp.ProvisionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.last = req
	return s.result, s.err
}

type testEnv struct {
	router   chi.Router
	sessions *memSessions
	payments *memPayments
	billing  *fakeBilling
	prov     *spyProvisioner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	loader := hpp.NewScriptLoaderFunc(func(ctx context.Context) (hpp.Bootstrap, error) {
		return hpp.Bootstrap{ScriptURL: "https://cdn.example/lib.js"}, nil
	})
	prov := &spyProvisioner{result: hpp.ProvisionResult{AccountProduct: models.AccountProduct{ID: "ap-1"}}}
	manager := hpp.NewManager(loader, hpp.NewTokenCache(staticTokens{}), prov, slog.Default().Handler())

	env := &testEnv{
		sessions: newMemSessions(),
		payments: &memPayments{},
		billing:  newFakeBilling(),
		prov:     prov,
	}

	handler := NewWizardHandler(env.sessions, env.payments, env.billing, manager, "env-1", "https://payments.example")
	env.router = chi.NewRouter()
	handler.RegisterRoutes(env.router)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader([]byte("{}"))
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeView(t *testing.T, rr *httptest.ResponseRecorder) sessionView {
	t.Helper()
	var view sessionView
	if err := json.Unmarshal(rr.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode session view: %v (body: %s)", err, rr.Body.String())
	}
	return view
}

func (e *testEnv) startSession(t *testing.T, flow string) sessionView {
	t.Helper()
	payload := map[string]any{"flow": flow}
	if flow == "upgrade" {
		payload["account_id"] = "acct-1"
	}
	rr := e.do(t, http.MethodPost, "/api/wizard", payload)
	if rr.Code != http.StatusCreated {
		t.Fatalf("StartSession returned %d: %s", rr.Code, rr.Body.String())
	}
	return decodeView(t, rr)
}

func accountPayload() map[string]any {
	return map[string]any{
		"first_name": "Jordan",
		"last_name":  "Baker",
		"email":      "jordan@example.com",
		"address1":   "1 Main St",
		"city":       "Providence",
		"state":      "RI",
		"zip":        "02903",
	}
}

func (e *testEnv) readyForPayment(t *testing.T) sessionView {
	t.Helper()
	view := e.startSession(t, "sale")
	base := "/api/wizard/" + view.ID

	rr := e.do(t, http.MethodPost, base+"/product", map[string]any{"product_id": "prod-classic-m", "advance": true})
	if rr.Code != http.StatusOK {
		t.Fatalf("SelectProduct returned %d: %s", rr.Code, rr.Body.String())
	}
	rr = e.do(t, http.MethodPost, base+"/account", accountPayload())
	if rr.Code != http.StatusOK {
		t.Fatalf("CreateAccount returned %d: %s", rr.Code, rr.Body.String())
	}
	return decodeView(t, rr)
}

func TestStartSessionValidation(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/api/wizard", map[string]any{"flow": "renewal"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown flow, got %d", rr.Code)
	}

	rr = env.do(t, http.MethodPost, "/api/wizard", map[string]any{"flow": "upgrade"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for upgrade without account, got %d", rr.Code)
	}
}

func TestSaleFlowEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	view := env.readyForPayment(t)
	base := "/api/wizard/" + view.ID

	if view.CurrentStep != wizard.StepPay {
		t.Fatalf("expected pay step after account creation, got %d", view.CurrentStep)
	}

	rr := env.do(t, http.MethodPost, base+"/payment", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("EnterPayment returned %d: %s", rr.Code, rr.Body.String())
	}
	var paymentResp struct {
		WidgetConfig hpp.RenderConfig `json:"widget_config"`
		Amount       float64          `json:"amount"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &paymentResp); err != nil {
		t.Fatalf("decode payment response: %v", err)
	}
	if paymentResp.WidgetConfig.SecurityToken != "sec-token-1" {
		t.Fatalf("missing security token: %+v", paymentResp.WidgetConfig)
	}
	if paymentResp.WidgetConfig.BillingProfileID != "hpp-ext-1" {
		t.Fatalf("billing profile external id not threaded: %+v", paymentResp.WidgetConfig)
	}
	if paymentResp.Amount != 9.99 {
		t.Fatalf("unexpected amount: %f", paymentResp.Amount)
	}

	rr = env.do(t, http.MethodPost, base+"/payment/success", map[string]any{"widget_reference": "ref-1"})
	if rr.Code != http.StatusOK {
		t.Fatalf("PaymentSuccess returned %d: %s", rr.Code, rr.Body.String())
	}

	session := env.sessions.get(t, view.ID)
	if session.Status != wizard.SessionCompleted {
		t.Fatalf("expected completed session, got %s", session.Status)
	}
	if env.prov.calls != 1 {
		t.Fatalf("expected one provisioning run, got %d", env.prov.calls)
	}
	if env.prov.last.AccountID != "acct-1" || env.prov.last.Product.ID != "prod-classic-m" {
		t.Fatalf("unexpected provision request: %+v", env.prov.last)
	}
	if len(env.payments.payments) != 1 {
		t.Fatalf("expected one payment record, got %d", len(env.payments.payments))
	}
	if env.payments.payments[0].Amount != 9.99 {
		t.Fatalf("unexpected recorded amount: %f", env.payments.payments[0].Amount)
	}
}

func TestDuplicateSuccessCallbackIgnored(t *testing.T) {
	env := newTestEnv(t)
	view := env.readyForPayment(t)
	base := "/api/wizard/" + view.ID

	env.do(t, http.MethodPost, base+"/payment", nil)

	rr := env.do(t, http.MethodPost, base+"/payment/success", map[string]any{"widget_reference": "ref-1"})
	if rr.Code != http.StatusOK {
		t.Fatalf("first callback returned %d", rr.Code)
	}

	// The session is completed and the bridge removed; the duplicate is
	// discarded without touching the backend.
	rr = env.do(t, http.MethodPost, base+"/payment/success", map[string]any{"widget_reference": "ref-1"})
	if rr.Code != http.StatusGone {
		t.Fatalf("expected 410 for late duplicate, got %d: %s", rr.Code, rr.Body.String())
	}
	if env.prov.calls != 1 {
		t.Fatalf("duplicate callback provisioned again: %d calls", env.prov.calls)
	}
}

func TestSuccessCallbackAfterCancelDiscarded(t *testing.T) {
	env := newTestEnv(t)
	view := env.readyForPayment(t)
	base := "/api/wizard/" + view.ID

	env.do(t, http.MethodPost, base+"/payment", nil)

	rr := env.do(t, http.MethodPost, base+"/cancel", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("CancelSession returned %d", rr.Code)
	}

	rr = env.do(t, http.MethodPost, base+"/payment/success", map[string]any{"widget_reference": "ref-1"})
	if rr.Code != http.StatusGone {
		t.Fatalf("expected 410 after cancel, got %d", rr.Code)
	}
	if env.prov.calls != 0 {
		t.Fatalf("cancelled session still provisioned: %d calls", env.prov.calls)
	}
}

func TestPartialProvisioningSurfacesSupportMessage(t *testing.T) {
	env := newTestEnv(t)
	env.prov.err = fmt.Errorf("%w: apply promo: boom", hpp.ErrPartialProvisioning)

	view := env.readyForPayment(t)
	base := "/api/wizard/" + view.ID
	env.do(t, http.MethodPost, base+"/payment", nil)

	rr := env.do(t, http.MethodPost, base+"/payment/success", map[string]any{"widget_reference": "ref-1"})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for partial provisioning, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["status"] != "partial" || resp["message"] != supportMessage {
		t.Fatalf("unexpected partial response: %v", resp)
	}

	// The charge happened; the record is still written.
	if len(env.payments.payments) != 1 {
		t.Fatalf("expected payment record despite partial failure, got %d", len(env.payments.payments))
	}
}

func TestErrorCallbackAllowsRetry(t *testing.T) {
	env := newTestEnv(t)
	view := env.readyForPayment(t)
	base := "/api/wizard/" + view.ID

	env.do(t, http.MethodPost, base+"/payment", nil)

	rr := env.do(t, http.MethodPost, base+"/payment/error", map[string]any{"message": "card declined"})
	if rr.Code != http.StatusOK {
		t.Fatalf("PaymentError returned %d: %s", rr.Code, rr.Body.String())
	}

	// Re-entering the payment step renders a fresh form that can succeed.
	rr = env.do(t, http.MethodPost, base+"/payment", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("EnterPayment after error returned %d", rr.Code)
	}
	rr = env.do(t, http.MethodPost, base+"/payment/success", map[string]any{"widget_reference": "ref-2"})
	if rr.Code != http.StatusOK {
		t.Fatalf("retry success returned %d", rr.Code)
	}
	if env.prov.calls != 1 {
		t.Fatalf("expected exactly one provisioning run, got %d", env.prov.calls)
	}
}

func TestPromoAutopayConflictBlocksPayment(t *testing.T) {
	env := newTestEnv(t)
	view := env.readyForPayment(t)
	base := "/api/wizard/" + view.ID

	rr := env.do(t, http.MethodPost, base+"/promo", map[string]any{"code": "AUTOPAY5"})
	if rr.Code != http.StatusOK {
		t.Fatalf("ApplyPromo returned %d: %s", rr.Code, rr.Body.String())
	}
	if warning := decodeView(t, rr).PromoWarning; warning == "" {
		t.Fatal("expected promo warning with one-time method")
	}

	rr = env.do(t, http.MethodPost, base+"/payment", nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 while promo conflict outstanding, got %d", rr.Code)
	}

	// Switching to autopay resolves the conflict.
	rr = env.do(t, http.MethodPost, base+"/payment-method", map[string]any{"method": "autopay"})
	if warning := decodeView(t, rr).PromoWarning; warning != "" {
		t.Fatalf("warning should clear on autopay: %s", warning)
	}
	rr = env.do(t, http.MethodPost, base+"/payment", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("payment should proceed after switch, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestApplyPromoNotFound(t *testing.T) {
	env := newTestEnv(t)
	view := env.startSession(t, "sale")

	rr := env.do(t, http.MethodPost, "/api/wizard/"+view.ID+"/promo", map[string]any{"code": "NOPE"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown promo, got %d", rr.Code)
	}
}

func TestCreateAccountValidation(t *testing.T) {
	env := newTestEnv(t)
	view := env.startSession(t, "sale")
	base := "/api/wizard/" + view.ID

	// Account creation requires a selected product first.
	rr := env.do(t, http.MethodPost, base+"/account", accountPayload())
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 before product selection, got %d", rr.Code)
	}

	env.do(t, http.MethodPost, base+"/product", map[string]any{"product_id": "prod-classic-m"})

	bad := accountPayload()
	bad["email"] = "not-an-email"
	rr = env.do(t, http.MethodPost, base+"/account", bad)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad email, got %d", rr.Code)
	}

	bad = accountPayload()
	bad["zip"] = "1234"
	rr = env.do(t, http.MethodPost, base+"/account", bad)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad zip, got %d", rr.Code)
	}

	// A profile failure after account creation asks for a re-submit without
	// recording a half pair.
	env.billing.createProfileErr = errors.New("platform 500")
	rr = env.do(t, http.MethodPost, base+"/account", accountPayload())
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 for profile failure, got %d", rr.Code)
	}
	session := env.sessions.get(t, view.ID)
	if session.State.Account != nil || session.State.BillingProfile != nil {
		t.Fatal("half-provisioned pair must not be recorded")
	}
}

func TestStepClampOnRender(t *testing.T) {
	env := newTestEnv(t)
	view := env.startSession(t, "sale")
	base := "/api/wizard/" + view.ID

	// A stale client pushes the counter past its data; render clamps it.
	rr := env.do(t, http.MethodPost, base+"/step", map[string]any{"step": 3})
	if got := decodeView(t, rr).CurrentStep; got != wizard.StepSelectPlan {
		t.Fatalf("expected clamp to step 1, got %d", got)
	}

	env.do(t, http.MethodPost, base+"/product", map[string]any{"product_id": "prod-classic-m"})
	rr = env.do(t, http.MethodPost, base+"/step", map[string]any{"step": 3})
	if got := decodeView(t, rr).CurrentStep; got != wizard.StepCreateAccount {
		t.Fatalf("expected clamp to step 2, got %d", got)
	}
}

func TestUpgradeFlowProratesAndDeactivates(t *testing.T) {
	env := newTestEnv(t)
	env.billing.activeProducts = []models.AccountProduct{
		{ID: "ap-old", AccountID: "acct-1", ProductID: "prod-classic-m", Status: models.AccountProductActive},
	}

	view := env.startSession(t, "upgrade")
	base := "/api/wizard/" + view.ID

	rr := env.do(t, http.MethodPost, base+"/product", map[string]any{"product_id": "prod-plus-m", "advance": true})
	upgraded := decodeView(t, rr)
	if upgraded.CurrentStep != wizard.StepPay {
		t.Fatalf("upgrade should skip the account step, got step %d", upgraded.CurrentStep)
	}
	if upgraded.ChangeMode != models.ModeUpgrade {
		t.Fatalf("expected upgrade mode, got %s", upgraded.ChangeMode)
	}
	if fmt.Sprintf("%.2f", upgraded.ChargeAmount) != "5.00" {
		t.Fatalf("expected prorated 5.00, got %f", upgraded.ChargeAmount)
	}

	env.do(t, http.MethodPost, base+"/payment", nil)
	rr = env.do(t, http.MethodPost, base+"/payment/success", map[string]any{"widget_reference": "ref-1"})
	if rr.Code != http.StatusOK {
		t.Fatalf("upgrade success returned %d: %s", rr.Code, rr.Body.String())
	}
	if env.prov.last.PriorProductID != "prod-classic-m" {
		t.Fatalf("prior product not threaded to provisioning: %+v", env.prov.last)
	}
}

func TestSessionNotFound(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, http.MethodGet, "/api/wizard/missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", rr.Code)
	}
}
