package gate

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/uranaibaya/baya/internal/kv"
	"github.com/uranaibaya/baya/internal/model"
)

// EntitlementGate は有料鑑定の権利確認の門番。
// 権利レコードは決済側が書き、ここでは読むだけ。TTL切れはレコード欠落と同じ扱い。
type EntitlementGate struct {
	store  kv.Store
	logger *slog.Logger
}

// NewEntitlementGate はEntitlementGate の新しいインスタンスを生成する。
func NewEntitlementGate(store kv.Store, logger *slog.Logger) *EntitlementGate {
	return &EntitlementGate{
		store:  store,
		logger: logger,
	}
}

// Check はセッションに要求プランの権利があるかを確認する。
// 権利なしは402、プラン不一致は403のAPIErrorになる。
func (g *EntitlementGate) Check(ctx context.Context, sessionHash, requiredPlan string) (*model.Entitlement, error) {
	raw, ok, err := g.store.Get(ctx, kv.EntitlementKey(sessionHash))
	if err != nil {
		return nil, model.NewStoreError(err)
	}
	if !ok {
		g.logger.Info("有料鑑定の権利が見つかりません",
			slog.String("required_plan", requiredPlan),
		)
		return nil, model.NewPaymentRequiredError()
	}

	var ent model.Entitlement
	if err := json.Unmarshal([]byte(raw), &ent); err != nil {
		// 壊れたレコードは権利なしと同じ。復旧はユーザーの再決済か照会APIに任せる
		g.logger.Error("権利レコードのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, model.NewPaymentRequiredError()
	}

	if ent.Plan != requiredPlan {
		g.logger.Info("権利プランと要求ティアが一致しません",
			slog.String("have", ent.Plan),
			slog.String("want", requiredPlan),
		)
		return nil, model.NewPlanMismatchError(ent.Plan, requiredPlan)
	}

	return &ent, nil
}
