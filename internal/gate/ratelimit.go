// Package gate は生成呼び出しの前段に立つ各種の門番を提供する。
// KVベースの固定窓レート制限、無料枠クオータとキャッシュ、有料権利の検証を含む。
package gate

import (
	"context"
	"log/slog"
	"time"

	"github.com/uranaibaya/baya/internal/kv"
	"github.com/uranaibaya/baya/internal/model"
)

// WindowConfig は1つの名前空間の固定窓設定。
type WindowConfig struct {
	Window time.Duration // 窓の幅
	Limit  int64         // 窓あたりの許可回数
}

// FixedWindowLimiter はKVカウンタによる固定窓レート制限。
// 窓の開始時刻をキーに含めるため、窓が変わればカウンタは自然に切り替わる。
// 古い窓のキーはTTLで消える。
type FixedWindowLimiter struct {
	store  kv.Store
	logger *slog.Logger
	ip     WindowConfig
	sess   WindowConfig
	now    func() time.Time // テスト用に差し替え可能
}

// NewFixedWindowLimiter はFixedWindowLimiter の新しいインスタンスを生成する。
func NewFixedWindowLimiter(store kv.Store, logger *slog.Logger, ip, sess WindowConfig) *FixedWindowLimiter {
	return &FixedWindowLimiter{
		store:  store,
		logger: logger,
		ip:     ip,
		sess:   sess,
		now:    time.Now,
	}
}

// AllowIP はIPハッシュの窓カウンタを進め、上限内かどうかを判定する。
func (l *FixedWindowLimiter) AllowIP(ctx context.Context, ipHash string) error {
	return l.allow(ctx, "ip", ipHash, l.ip)
}

// AllowSession はセッションハッシュの窓カウンタを進め、上限内かどうかを判定する。
func (l *FixedWindowLimiter) AllowSession(ctx context.Context, sessionHash string) error {
	return l.allow(ctx, "sess", sessionHash, l.sess)
}

func (l *FixedWindowLimiter) allow(ctx context.Context, ns, hash string, cfg WindowConfig) error {
	// 窓はキーの粒度がUnix秒なので、1秒未満の設定は1秒に切り上げる
	windowSec := int64(cfg.Window / time.Second)
	if windowSec < 1 {
		windowSec = 1
	}
	nowUnix := l.now().Unix()
	windowStart := nowUnix - nowUnix%windowSec

	key := kv.RateKey(ns, hash, windowStart)
	n, err := l.store.Incr(ctx, key)
	if err != nil {
		l.logger.Error("レート制限カウンタの更新に失敗しました",
			slog.String("namespace", ns),
			slog.String("error", err.Error()),
		)
		return model.NewStoreError(err)
	}
	// 最初の加算時だけ窓のTTLを設定する（窓2つ分で余裕を持たせる）
	if n == 1 {
		if err := l.store.Expire(ctx, key, 2*cfg.Window); err != nil {
			return model.NewStoreError(err)
		}
	}
	if n > cfg.Limit {
		l.logger.Warn("レート制限を超過しました",
			slog.String("namespace", ns),
			slog.Int64("count", n),
			slog.Int64("limit", cfg.Limit),
		)
		return model.NewRateLimitedError()
	}
	return nil
}
