package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/uranaibaya/baya/internal/identify"
	"github.com/uranaibaya/baya/internal/metrics"
	"github.com/uranaibaya/baya/internal/middleware"
	"github.com/uranaibaya/baya/internal/model"
	"github.com/uranaibaya/baya/internal/payment"
)

// webhookBodyLimit はWebhookペイロードの最大サイズ。
// Stripeのイベントはこれより十分小さく、超過は不正リクエストとみなす。
const webhookBodyLimit = 64 * 1024

// PaymentServiceInterface は決済ハンドラーが必要とするサービスインターフェース。
type PaymentServiceInterface interface {
	// CreateCheckout は指定プランのStripe Checkoutセッションを作成する。
	CreateCheckout(ctx context.Context, plan, sessionHash, ipHash, intakeSig string) (*payment.CheckoutResult, error)
	// HandleWebhook はStripe Webhookを検証し、決済完了イベントで権利を付与する。
	HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error
	// Verify はCheckoutセッションIDから決済状態を照会し、必要なら権利を付与する。
	Verify(ctx context.Context, checkoutID string) (*model.Entitlement, error)
}

// PaymentHandler は決済関連のHTTPハンドラー。
type PaymentHandler struct {
	service PaymentServiceInterface
	hasher  identify.Hasher
	metrics metrics.MetricsCollector
}

// NewPaymentHandler はPaymentHandlerを生成する。
func NewPaymentHandler(service PaymentServiceInterface, hasher identify.Hasher, collector metrics.MetricsCollector) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		hasher:  hasher,
		metrics: collector,
	}
}

// checkoutRequest はCheckoutセッション作成リクエストのボディ。
type checkoutRequest struct {
	Plan   string        `json:"plan"`
	Intake *model.Intake `json:"intake"`
}

// Checkout は指定プランのCheckoutセッションを作成してリダイレクト先URLを返す。
// POST /api/payments/checkout
func (h *PaymentHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	ids := h.hasher.ClientIDs(r, req.Intake)

	result, err := h.service.CreateCheckout(r.Context(), req.Plan, ids.SessionHash, ids.IPHash, req.Intake.Signature())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// Webhook はStripeからのWebhookを受け付ける。
// POST /api/payments/webhook
//
// 署名検証はサービス層で行う。レスポンスの200はStripeへの受理通知であり、
// 対象外イベントも200で返す（非200はStripe側の再送を招く）。
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, webhookBodyLimit))
	if err != nil {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("ペイロードの読み取りに失敗しました"))
		return
	}

	if err := h.service.HandleWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		middleware.WriteError(w, err)
		return
	}

	// 計測用にイベント種別だけを取り出す。取り出せなくても処理結果には影響しない
	var probe struct {
		Type string `json:"type"`
	}
	if json.Unmarshal(payload, &probe) == nil && probe.Type != "" {
		h.metrics.RecordWebhookEvent(probe.Type)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"received": true})
}

// Verify はCheckoutセッションの決済状態を照会し、権利情報を返す。
// GET /api/payments/verify?session_id=cs_xxx
//
// Webhookが遅延・欠落しても、決済完了ページからの照会で権利が立つ。
func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request) {
	checkoutID := r.URL.Query().Get("session_id")

	ent, err := h.service.Verify(r.Context(), checkoutID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ent)
}
