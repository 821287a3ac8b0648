package handler

import (
	"encoding/json"
	"net/http"
)

// HealthHandler はヘルスチェックのHTTPハンドラー。
// 鍵の値そのものは決して返さず、構成の有無だけをフラグで返す。
type HealthHandler struct {
	stripeConfigured bool
}

// NewHealthHandler はHealthHandlerを生成する。
func NewHealthHandler(stripeConfigured bool) *HealthHandler {
	return &HealthHandler{stripeConfigured: stripeConfigured}
}

// healthResponse はヘルスチェックのレスポンス。
type healthResponse struct {
	Status           string `json:"status"`
	StripeConfigured bool   `json:"stripe_configured"`
}

// Check はサービスの稼働状態を返す。
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthResponse{
		Status:           "ok",
		StripeConfigured: h.stripeConfigured,
	})
}
