package payment

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v79"

	"github.com/uranaibaya/baya/internal/kv"
	"github.com/uranaibaya/baya/internal/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockGateway はStripeゲートウェイのモック。
type mockGateway struct {
	createFunc    func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	getFunc       func(id string) (*stripe.CheckoutSession, error)
	constructFunc func(payload []byte, sigHeader, secret string) (stripe.Event, error)
	createParams  *stripe.CheckoutSessionParams
	getCalls      int
}

func (m *mockGateway) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	m.createParams = params
	if m.createFunc != nil {
		return m.createFunc(params)
	}
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.com/pay/cs_test_1"}, nil
}

func (m *mockGateway) GetCheckoutSession(id string) (*stripe.CheckoutSession, error) {
	m.getCalls++
	if m.getFunc != nil {
		return m.getFunc(id)
	}
	return nil, errors.New("not implemented")
}

func (m *mockGateway) ConstructWebhookEvent(payload []byte, sigHeader, secret string) (stripe.Event, error) {
	if m.constructFunc != nil {
		return m.constructFunc(payload, sigHeader, secret)
	}
	return stripe.Event{}, errors.New("not implemented")
}

func testConfig() Config {
	return Config{
		SecretKey:     "sk_test",
		WebhookSecret: "whsec_test",
		PriceIDs: map[string]string{
			"480":  "price_480",
			"980":  "price_980",
			"1980": "price_1980",
		},
		PublicAppURL:   "https://baya.example.com/",
		EntitlementTTL: 24 * time.Hour,
		PaidSessionTTL: 26 * time.Hour,
	}
}

func paidSession(plan, sessionHash string) *stripe.CheckoutSession {
	return &stripe.CheckoutSession{
		ID:            "cs_test_1",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Metadata: map[string]string{
			"plan":        plan,
			"sessionHash": sessionHash,
		},
	}
}

func completedEvent(t *testing.T, sess *stripe.CheckoutSession) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(sess)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}
	return stripe.Event{
		Type: "checkout.session.completed",
		Data: &stripe.EventData{Raw: raw},
	}
}

// TestCreateCheckout はCheckout作成のパラメータとURL生成を検証する。
func TestCreateCheckout(t *testing.T) {
	gw := &mockGateway{}
	svc := NewService(gw, kv.NewMemoryStore(), testLogger(), testConfig())

	res, err := svc.CreateCheckout(context.Background(), "980", "sesshash", "iphash", "sig")
	if err != nil {
		t.Fatalf("CreateCheckout returned error: %v", err)
	}
	if res.URL == "" || res.SessionID != "cs_test_1" {
		t.Errorf("result = %+v", res)
	}

	p := gw.createParams
	if p == nil {
		t.Fatal("gateway not called")
	}
	if got := *p.LineItems[0].Price; got != "price_980" {
		t.Errorf("price = %q, want price_980", got)
	}
	if p.Metadata["plan"] != "980" || p.Metadata["sessionHash"] != "sesshash" {
		t.Errorf("metadata = %v", p.Metadata)
	}
	if got := *p.SuccessURL; got != "https://baya.example.com/paid/success?session_id={CHECKOUT_SESSION_ID}&plan=980" {
		t.Errorf("success url = %q", got)
	}
}

// TestCreateCheckout_InvalidPlan は未対応プランが400になることを検証する。
func TestCreateCheckout_InvalidPlan(t *testing.T) {
	svc := NewService(&mockGateway{}, kv.NewMemoryStore(), testLogger(), testConfig())

	_, err := svc.CreateCheckout(context.Background(), "100", "sesshash", "", "")
	if apiErr := model.AsAPIError(err); apiErr == nil || apiErr.Code != model.ErrCodeInvalidRequest {
		t.Fatalf("expected INVALID_REQUEST, got %v", err)
	}
}

// TestCreateCheckout_NotConfigured はStripe未設定が構成エラーになることを検証する。
func TestCreateCheckout_NotConfigured(t *testing.T) {
	cfg := testConfig()
	cfg.SecretKey = ""
	svc := NewService(&mockGateway{}, kv.NewMemoryStore(), testLogger(), cfg)

	_, err := svc.CreateCheckout(context.Background(), "980", "sesshash", "", "")
	if apiErr := model.AsAPIError(err); apiErr == nil || apiErr.Code != model.ErrCodeConfig {
		t.Fatalf("expected CONFIG_ERROR, got %v", err)
	}
}

// TestHandleWebhook_GrantsEntitlement は決済完了イベントで権利が立つことを検証する。
func TestHandleWebhook_GrantsEntitlement(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	sess := paidSession("980", "sesshash")
	gw := &mockGateway{
		constructFunc: func(payload []byte, sigHeader, secret string) (stripe.Event, error) {
			if secret != "whsec_test" {
				t.Errorf("secret = %q", secret)
			}
			return completedEvent(t, sess), nil
		},
	}
	svc := NewService(gw, store, testLogger(), testConfig())

	if err := svc.HandleWebhook(ctx, []byte(`{}`), "sig"); err != nil {
		t.Fatalf("HandleWebhook returned error: %v", err)
	}

	raw, ok, _ := store.Get(ctx, kv.EntitlementKey("sesshash"))
	if !ok {
		t.Fatal("entitlement record should exist")
	}
	var ent model.Entitlement
	if err := json.Unmarshal([]byte(raw), &ent); err != nil {
		t.Fatalf("unmarshal entitlement: %v", err)
	}
	if ent.Plan != "980" || ent.SessionID != "cs_test_1" {
		t.Errorf("entitlement = %+v", ent)
	}

	if _, ok, _ := store.Get(ctx, kv.PaidSessionKey("cs_test_1")); !ok {
		t.Error("paid session record should exist")
	}
}

// TestHandleWebhook_BadSignature は署名不正が400になることを検証する。
func TestHandleWebhook_BadSignature(t *testing.T) {
	gw := &mockGateway{
		constructFunc: func(payload []byte, sigHeader, secret string) (stripe.Event, error) {
			return stripe.Event{}, errors.New("signature mismatch")
		},
	}
	svc := NewService(gw, kv.NewMemoryStore(), testLogger(), testConfig())

	err := svc.HandleWebhook(context.Background(), []byte(`{}`), "bad-sig")
	if apiErr := model.AsAPIError(err); apiErr == nil || apiErr.Code != model.ErrCodeInvalidRequest {
		t.Fatalf("expected INVALID_REQUEST, got %v", err)
	}
}

// TestHandleWebhook_IgnoresOtherEvents は対象外イベントが黙って受理されることを検証する。
func TestHandleWebhook_IgnoresOtherEvents(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	gw := &mockGateway{
		constructFunc: func(payload []byte, sigHeader, secret string) (stripe.Event, error) {
			return stripe.Event{Type: "invoice.paid"}, nil
		},
	}
	svc := NewService(gw, store, testLogger(), testConfig())

	if err := svc.HandleWebhook(ctx, []byte(`{}`), "sig"); err != nil {
		t.Fatalf("unhandled events should be accepted: %v", err)
	}
	if store.Len() != 0 {
		t.Error("unhandled events must not write records")
	}
}

// TestHandleWebhook_UnpaidIgnored は未決済のcompletedイベントが無視されることを検証する。
func TestHandleWebhook_UnpaidIgnored(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	sess := paidSession("980", "sesshash")
	sess.PaymentStatus = stripe.CheckoutSessionPaymentStatusUnpaid
	gw := &mockGateway{
		constructFunc: func(payload []byte, sigHeader, secret string) (stripe.Event, error) {
			return completedEvent(t, sess), nil
		},
	}
	svc := NewService(gw, store, testLogger(), testConfig())

	if err := svc.HandleWebhook(ctx, []byte(`{}`), "sig"); err != nil {
		t.Fatalf("HandleWebhook returned error: %v", err)
	}
	if store.Len() != 0 {
		t.Error("unpaid session must not grant entitlement")
	}
}

// TestVerify_GrantsWhenWebhookMissed はWebhook欠落時の照会付与を検証する。
func TestVerify_GrantsWhenWebhookMissed(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	gw := &mockGateway{
		getFunc: func(id string) (*stripe.CheckoutSession, error) {
			return paidSession("480", "sesshash"), nil
		},
	}
	svc := NewService(gw, store, testLogger(), testConfig())

	ent, err := svc.Verify(ctx, "cs_test_1")
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if ent.Plan != "480" {
		t.Errorf("plan = %q, want 480", ent.Plan)
	}
	if _, ok, _ := store.Get(ctx, kv.EntitlementKey("sesshash")); !ok {
		t.Error("verify should grant the entitlement")
	}

	// 2回目はキャッシュからでStripeへ往復しない
	if _, err := svc.Verify(ctx, "cs_test_1"); err != nil {
		t.Fatalf("second Verify returned error: %v", err)
	}
	if gw.getCalls != 1 {
		t.Errorf("stripe called %d times, want 1", gw.getCalls)
	}
}

// TestVerify_NotPaid は未決済セッションが402になることを検証する。
func TestVerify_NotPaid(t *testing.T) {
	gw := &mockGateway{
		getFunc: func(id string) (*stripe.CheckoutSession, error) {
			return &stripe.CheckoutSession{
				ID:            id,
				PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
			}, nil
		},
	}
	svc := NewService(gw, kv.NewMemoryStore(), testLogger(), testConfig())

	_, err := svc.Verify(context.Background(), "cs_test_1")
	if apiErr := model.AsAPIError(err); apiErr == nil || apiErr.Code != model.ErrCodePaymentRequired {
		t.Fatalf("expected PAYMENT_REQUIRED, got %v", err)
	}
}

// TestVerify_BadSessionID はセッションID形式の検証を確認する。
func TestVerify_BadSessionID(t *testing.T) {
	svc := NewService(&mockGateway{}, kv.NewMemoryStore(), testLogger(), testConfig())

	for _, id := range []string{"", "abc", "price_123"} {
		_, err := svc.Verify(context.Background(), id)
		if apiErr := model.AsAPIError(err); apiErr == nil || apiErr.Code != model.ErrCodeInvalidRequest {
			t.Errorf("Verify(%q): expected INVALID_REQUEST, got %v", id, err)
		}
	}
}
