// Package kv は外部キーバリューストアへのアクセスを提供する。
//
// クオータカウンタ・無料レポートキャッシュ・権利レコード・レート制限窓・
// 共有リンクなど、リクエストをまたぐ状態はすべてこのストアに置く。
// ストアはフラットな文字列キーのマップとして扱い、キーごとのTTLと
// 単一コマンドの原子性（INCR/EXPIRE）だけを前提にする。
package kv

import (
	"context"
	"time"
)

// Store はキーバリューストアに要求する最小の操作集合。
type Store interface {
	// Get はキーの値を返す。キーが存在しない場合はok=false。
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set はキーに値を書き込む。ttl>0の場合は期限を設定する。
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Incr はキーの整数値を原子的に+1し、増分後の値を返す。
	// キーが存在しない場合は0から始まる（増分後は1）。
	Incr(ctx context.Context, key string) (int64, error)
	// Expire は既存キーに期限を設定する。
	Expire(ctx context.Context, key string, ttl time.Duration) error
}
