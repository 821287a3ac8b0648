package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"

	"github.com/uranaibaya/baya/internal/kv"
	"github.com/uranaibaya/baya/internal/model"
)

// Config は決済連携の実行時設定。
// SecretKeyが空の場合、決済エンドポイントは構成エラーを返す（鑑定本体は動く）。
type Config struct {
	SecretKey      string
	WebhookSecret  string
	PriceIDs       map[string]string // プラン → Stripe Price ID
	PublicAppURL   string            // 決済後に戻るアプリのベースURL
	EntitlementTTL time.Duration     // 権利レコードの保持期間
	PaidSessionTTL time.Duration     // 決済セッション逆引きの保持期間
}

// Configured は決済連携が有効かどうかを返す。
func (c Config) Configured() bool {
	return c.SecretKey != "" && c.PublicAppURL != ""
}

// Service はCheckout作成・Webhook処理・決済照会を担う。
// 権利の付与はWebhookと照会APIの両方から行われ、どちらが先でも結果は同じ。
type Service struct {
	gateway StripeGateway
	store   kv.Store
	logger  *slog.Logger
	cfg     Config
	now     func() time.Time // テスト用に差し替え可能
}

// NewService はService の新しいインスタンスを生成する。
func NewService(gateway StripeGateway, store kv.Store, logger *slog.Logger, cfg Config) *Service {
	return &Service{
		gateway: gateway,
		store:   store,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// CheckoutResult はCheckoutセッション作成の結果。
type CheckoutResult struct {
	URL       string `json:"url"`
	SessionID string `json:"id"`
}

// CreateCheckout は指定プランのStripe Checkoutセッションを作成する。
// sessionHashとintakeSigはメタデータに載せ、Webhook側で権利の宛先を解決する。
func (s *Service) CreateCheckout(ctx context.Context, plan, sessionHash, ipHash, intakeSig string) (*CheckoutResult, error) {
	if !s.cfg.Configured() {
		return nil, model.NewConfigError("stripe is not configured")
	}
	if !model.ValidPlan(plan) {
		return nil, model.NewInvalidRequestError("未対応のプランです: " + plan)
	}
	priceID := s.cfg.PriceIDs[plan]
	if priceID == "" {
		return nil, model.NewConfigError(fmt.Sprintf("price id for plan %s is missing", plan))
	}
	if sessionHash == "" {
		return nil, model.NewInvalidRequestError("セッション識別子がありません")
	}

	baseURL := strings.TrimRight(s.cfg.PublicAppURL, "/")
	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(baseURL + "/paid/success?session_id={CHECKOUT_SESSION_ID}&plan=" + plan),
		CancelURL:  stripe.String(baseURL + "/paid/cancel"),
		Metadata: map[string]string{
			"plan":        plan,
			"sessionHash": sessionHash,
			"ipHash":      ipHash,
			"intakeSig":   intakeSig,
		},
	}

	sess, err := s.gateway.CreateCheckoutSession(params)
	if err != nil {
		s.logger.Error("Checkoutセッションの作成に失敗しました",
			slog.String("plan", plan),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUpstreamError(0, err.Error())
	}

	s.logger.Info("Checkoutセッションを作成しました",
		slog.String("plan", plan),
		slog.String("checkout_id", sess.ID),
	)
	return &CheckoutResult{URL: sess.URL, SessionID: sess.ID}, nil
}

// HandleWebhook はStripe Webhookを検証し、決済完了イベントで権利を付与する。
// 対象外のイベントは黙って受理する（Stripeへの再送要求を避ける）。
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) error {
	if s.cfg.WebhookSecret == "" {
		return model.NewConfigError("stripe webhook secret is missing")
	}

	event, err := s.gateway.ConstructWebhookEvent(payload, sigHeader, s.cfg.WebhookSecret)
	if err != nil {
		s.logger.Warn("Webhook署名の検証に失敗しました",
			slog.String("error", err.Error()),
		)
		return model.NewInvalidRequestError("署名の検証に失敗しました")
	}

	if event.Type != "checkout.session.completed" {
		return nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		s.logger.Error("Checkoutセッションのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return model.NewInvalidRequestError("イベントの形式が正しくありません")
	}
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		s.logger.Info("未決済のCheckout完了イベントを無視します",
			slog.String("checkout_id", sess.ID),
			slog.String("payment_status", string(sess.PaymentStatus)),
		)
		return nil
	}

	return s.grantFromSession(ctx, &sess)
}

// Verify はCheckoutセッションIDから決済状態を照会し、必要なら権利を付与する。
// Webhookが遅延・欠落しても、決済完了ページからの照会で権利が立つ。
func (s *Service) Verify(ctx context.Context, checkoutID string) (*model.Entitlement, error) {
	if !s.cfg.Configured() {
		return nil, model.NewConfigError("stripe is not configured")
	}
	if checkoutID == "" || !strings.HasPrefix(checkoutID, "cs_") {
		return nil, model.NewInvalidRequestError("セッションIDの形式が正しくありません")
	}

	// 照会済みならStripeへ往復しない
	if raw, ok, err := s.store.Get(ctx, kv.PaidSessionKey(checkoutID)); err != nil {
		return nil, model.NewStoreError(err)
	} else if ok {
		var ent model.Entitlement
		if err := json.Unmarshal([]byte(raw), &ent); err == nil {
			return &ent, nil
		}
	}

	sess, err := s.gateway.GetCheckoutSession(checkoutID)
	if err != nil {
		s.logger.Error("Checkoutセッションの照会に失敗しました",
			slog.String("checkout_id", checkoutID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUpstreamError(0, err.Error())
	}
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		return nil, model.NewPaymentRequiredError()
	}

	if err := s.grantFromSession(ctx, sess); err != nil {
		return nil, err
	}
	return &model.Entitlement{
		Plan:      sess.Metadata["plan"],
		SessionID: sess.ID,
		PaidAt:    s.now().UTC().Format(time.RFC3339),
	}, nil
}

// grantFromSession は決済済みCheckoutセッションから権利レコードを書き込む。
// 冪等：同じセッションで何度呼んでも同じ権利が立つだけ。
func (s *Service) grantFromSession(ctx context.Context, sess *stripe.CheckoutSession) error {
	plan := sess.Metadata["plan"]
	sessionHash := sess.Metadata["sessionHash"]
	if !model.ValidPlan(plan) || sessionHash == "" {
		s.logger.Error("Checkoutセッションのメタデータが不足しています",
			slog.String("checkout_id", sess.ID),
			slog.String("plan", plan),
		)
		return model.NewInvalidRequestError("決済メタデータが不足しています")
	}

	ent := model.Entitlement{
		Plan:      plan,
		SessionID: sess.ID,
		PaidAt:    s.now().UTC().Format(time.RFC3339),
	}
	raw, err := json.Marshal(ent)
	if err != nil {
		return model.NewStoreError(err)
	}

	if err := s.store.Set(ctx, kv.EntitlementKey(sessionHash), string(raw), s.cfg.EntitlementTTL); err != nil {
		return model.NewStoreError(err)
	}
	if err := s.store.Set(ctx, kv.PaidSessionKey(sess.ID), string(raw), s.cfg.PaidSessionTTL); err != nil {
		return model.NewStoreError(err)
	}

	s.logger.Info("有料鑑定の権利を付与しました",
		slog.String("plan", plan),
		slog.String("checkout_id", sess.ID),
	)
	return nil
}
