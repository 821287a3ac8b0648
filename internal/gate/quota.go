package gate

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/uranaibaya/baya/internal/kv"
	"github.com/uranaibaya/baya/internal/model"
)

// QuotaConfig は無料鑑定の枠とキャッシュの設定。
type QuotaConfig struct {
	DailyLimit int64         // 1日（JST）あたりの無料生成回数
	CounterTTL time.Duration // 日次カウンタの保持期間。日付跨ぎの余裕を持たせる
	CacheTTL   time.Duration // 無料レポートキャッシュの保持期間
}

// GenerateFunc は無料レポート本体の生成処理。門番を通過したときだけ呼ばれる。
type GenerateFunc func(ctx context.Context) (*model.GenerationResult, error)

// QuotaCacheGate は無料レポートのキャッシュと日次クオータの門番。
// 判定順が要：キャッシュ命中は枠を見ずに返し、枠の消費は生成成功後にだけ行う。
// 失敗した生成で枠が減ると、障害時にユーザーが無料枠を失う。
type QuotaCacheGate struct {
	store  kv.Store
	logger *slog.Logger
	cfg    QuotaConfig
}

// NewQuotaCacheGate はQuotaCacheGate の新しいインスタンスを生成する。
func NewQuotaCacheGate(store kv.Store, logger *slog.Logger, cfg QuotaConfig) *QuotaCacheGate {
	return &QuotaCacheGate{
		store:  store,
		logger: logger,
		cfg:    cfg,
	}
}

// GenerateFree はキャッシュ→枠→生成→記帳の順で無料レポートを返す。
// dayはJSTのYYYY-MM-DD、fingerprintはintakeの署名、sessionHashはハッシュ化済み識別子。
func (g *QuotaCacheGate) GenerateFree(ctx context.Context, day, sessionHash, fingerprint string, gen GenerateFunc) (*model.GenerationResult, error) {
	// 1. キャッシュ命中なら枠の読み書きを一切せずに返す
	cacheKey := kv.FreeCacheKey(fingerprint)
	if raw, ok, err := g.store.Get(ctx, cacheKey); err != nil {
		// キャッシュの読み失敗は命中なし扱いで続行する（鑑定は止めない）
		g.logger.Warn("無料レポートキャッシュの読み取りに失敗しました",
			slog.String("error", err.Error()),
		)
	} else if ok {
		var cached model.GenerationResult
		if err := json.Unmarshal([]byte(raw), &cached); err == nil && cached.Content != "" {
			cached.Cached = true
			return &cached, nil
		}
		g.logger.Warn("無料レポートキャッシュの内容が壊れています",
			slog.String("key", cacheKey),
		)
	}

	// 2. 日次クオータの確認。カウンタが読めないときは枠を守る側に倒す
	countKey := kv.FreeCountKey(day, sessionHash)
	if raw, ok, err := g.store.Get(ctx, countKey); err != nil {
		return nil, model.NewStoreError(err)
	} else if ok {
		count, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, model.NewStoreError(err)
		}
		if count >= g.cfg.DailyLimit {
			g.logger.Info("無料鑑定の日次上限に達しました",
				slog.String("day", day),
				slog.Int64("count", count),
			)
			return nil, model.NewQuotaExceededError()
		}
	}

	// 3. 生成本体。失敗・空出力では枠を消費しない
	res, err := gen(ctx)
	if err != nil {
		return nil, err
	}
	if res == nil || res.Content == "" {
		return nil, model.NewEmptyOutputError()
	}

	// 4. 成功時のみ記帳する。記帳の失敗で成果物を捨てない
	n, err := g.store.Incr(ctx, countKey)
	if err != nil {
		g.logger.Error("無料枠カウンタの更新に失敗しました",
			slog.String("error", err.Error()),
		)
	} else if n == 1 {
		if err := g.store.Expire(ctx, countKey, g.cfg.CounterTTL); err != nil {
			g.logger.Error("無料枠カウンタのTTL設定に失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}

	if payload, err := json.Marshal(res); err == nil {
		if err := g.store.Set(ctx, cacheKey, string(payload), g.cfg.CacheTTL); err != nil {
			g.logger.Error("無料レポートキャッシュの書き込みに失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}

	return res, nil
}
