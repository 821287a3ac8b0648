// Package handler は鑑定・決済・共有のHTTPハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/uranaibaya/baya/internal/gate"
	"github.com/uranaibaya/baya/internal/identify"
	"github.com/uranaibaya/baya/internal/metrics"
	"github.com/uranaibaya/baya/internal/middleware"
	"github.com/uranaibaya/baya/internal/model"
)

// GeneratorInterface は鑑定生成サービスのインターフェース。
type GeneratorInterface interface {
	// Generate は指定モードの鑑定を生成し、フォーマット済みの結果を返す。
	Generate(ctx context.Context, mode model.Mode, it *model.Intake) (*model.GenerationResult, error)
}

// QuotaGateInterface は無料レポートのキャッシュ・日次クオータの門番インターフェース。
type QuotaGateInterface interface {
	GenerateFree(ctx context.Context, day, sessionHash, fingerprint string, gen gate.GenerateFunc) (*model.GenerationResult, error)
}

// EntitlementGateInterface は有料鑑定の権利確認インターフェース。
type EntitlementGateInterface interface {
	Check(ctx context.Context, sessionHash, requiredPlan string) (*model.Entitlement, error)
}

// WindowLimiterInterface はKV固定窓レート制限のインターフェース。
type WindowLimiterInterface interface {
	AllowIP(ctx context.Context, ipHash string) error
	AllowSession(ctx context.Context, sessionHash string) error
}

// FortuneHandler は鑑定生成のHTTPハンドラー。
type FortuneHandler struct {
	generator   GeneratorInterface
	quotaGate   QuotaGateInterface
	entitlement EntitlementGateInterface
	limiter     WindowLimiterInterface
	hasher      identify.Hasher
	metrics     metrics.MetricsCollector
	now         func() time.Time // テスト用に差し替え可能
}

// NewFortuneHandler はFortuneHandlerを生成する。
func NewFortuneHandler(
	generator GeneratorInterface,
	quotaGate QuotaGateInterface,
	entitlement EntitlementGateInterface,
	limiter WindowLimiterInterface,
	hasher identify.Hasher,
	collector metrics.MetricsCollector,
) *FortuneHandler {
	return &FortuneHandler{
		generator:   generator,
		quotaGate:   quotaGate,
		entitlement: entitlement,
		limiter:     limiter,
		hasher:      hasher,
		metrics:     collector,
		now:         time.Now,
	}
}

// generateRequest は鑑定生成リクエストのボディ。
type generateRequest struct {
	Mode   model.Mode    `json:"mode"`
	Intake *model.Intake `json:"intake"`
}

// Generate は指定モードの鑑定を生成して返す。
// POST /api/fortune/generate
//
// レート制限 → （モードに応じて）クオータまたは権利確認 → 生成、の順で通す。
func (h *FortuneHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	cfg, ok := req.Mode.Config()
	if !ok {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("未対応のモードです: "+string(req.Mode)))
		return
	}
	if req.Intake == nil {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("intakeがありません"))
		return
	}

	ids := h.hasher.ClientIDs(r, req.Intake)

	if err := h.limiter.AllowIP(r.Context(), ids.IPHash); err != nil {
		h.recordRateLimit(err, "ip")
		middleware.WriteError(w, err)
		return
	}
	if err := h.limiter.AllowSession(r.Context(), ids.SessionHash); err != nil {
		h.recordRateLimit(err, "sess")
		middleware.WriteError(w, err)
		return
	}

	start := h.now()
	res, err := h.dispatch(r.Context(), req.Mode, cfg, req.Intake, ids)
	h.recordGeneration(req.Mode, res, err, h.now().Sub(start))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(res)
}

// dispatch はモードに応じた門番を通して生成を実行する。
func (h *FortuneHandler) dispatch(ctx context.Context, mode model.Mode, cfg model.ModeConfig, it *model.Intake, ids identify.ClientIDs) (*model.GenerationResult, error) {
	switch {
	case mode.IsFreeReport():
		day := identify.JSTDay(h.now())
		return h.quotaGate.GenerateFree(ctx, day, ids.SessionHash, it.Signature(), func(ctx context.Context) (*model.GenerationResult, error) {
			return h.generator.Generate(ctx, mode, it)
		})
	case mode.IsPaid():
		if _, err := h.entitlement.Check(ctx, ids.SessionHash, cfg.Plan); err != nil {
			return nil, err
		}
		return h.generator.Generate(ctx, mode, it)
	default:
		return h.generator.Generate(ctx, mode, it)
	}
}

// recordRateLimit はレート制限による拒否を計測する。ストア障害等は対象外。
func (h *FortuneHandler) recordRateLimit(err error, namespace string) {
	if apiErr := model.AsAPIError(err); apiErr != nil && apiErr.Code == model.ErrCodeRateLimited {
		h.metrics.RecordRateLimitRejection(namespace)
	}
}

// recordGeneration は生成の結果・レイテンシ・キャッシュ動向を計測する。
func (h *FortuneHandler) recordGeneration(mode model.Mode, res *model.GenerationResult, err error, elapsed time.Duration) {
	if err != nil {
		outcome := "error"
		if apiErr := model.AsAPIError(err); apiErr != nil {
			switch apiErr.Code {
			case model.ErrCodeUpstreamTimeout:
				outcome = "timeout"
			case model.ErrCodeQuotaExceeded:
				h.metrics.RecordQuotaRejection()
				outcome = "rejected"
			case model.ErrCodeInvalidRequest, model.ErrCodePaymentRequired, model.ErrCodePlanMismatch:
				outcome = "rejected"
			}
		} else if errors.Is(err, context.DeadlineExceeded) {
			outcome = "timeout"
		}
		h.metrics.RecordGeneration(string(mode), outcome)
		return
	}

	if mode.IsFreeReport() {
		if res.Cached {
			h.metrics.RecordCacheHit()
		} else {
			h.metrics.RecordCacheMiss()
		}
	}
	h.metrics.RecordGeneration(string(mode), "success")
	h.metrics.RecordGenerationLatency(string(mode), elapsed)
}
