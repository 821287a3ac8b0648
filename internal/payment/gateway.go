// Package payment はStripe決済の連携を提供する。
// Checkoutセッションの作成、Webhookによる権利付与、照会APIによる付与の補完を含む。
package payment

import (
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
)

// StripeGateway はStripe API呼び出しの抽象。テストでの差し替え用。
type StripeGateway interface {
	CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(id string) (*stripe.CheckoutSession, error)
	ConstructWebhookEvent(payload []byte, sigHeader, secret string) (stripe.Event, error)
}

// stripeGateway はstripe-go SDKを使う本物のゲートウェイ。
type stripeGateway struct{}

// NewStripeGateway はSDKのAPIキーを設定し、本物のゲートウェイを返す。
func NewStripeGateway(secretKey string) StripeGateway {
	stripe.Key = secretKey
	return &stripeGateway{}
}

func (g *stripeGateway) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.New(params)
}

func (g *stripeGateway) GetCheckoutSession(id string) (*stripe.CheckoutSession, error) {
	return session.Get(id, nil)
}

func (g *stripeGateway) ConstructWebhookEvent(payload []byte, sigHeader, secret string) (stripe.Event, error) {
	return webhook.ConstructEventWithOptions(
		payload,
		sigHeader,
		secret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
}
