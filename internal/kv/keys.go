package kv

import (
	"fmt"
	"strconv"
)

// キーファミリーごとの型付きビルダー。
// キー書式の変更をここに集約し、ストアのトランスポートと独立にテストできるようにする。

// FreeCountKey は無料鑑定の日次クオータカウンタのキーを返す。
// dayはJSTのYYYY-MM-DD、sessionHashはハッシュ化済みセッション識別子。
func FreeCountKey(day, sessionHash string) string {
	return fmt.Sprintf("free:count:%s:%s", day, sessionHash)
}

// FreeCacheKey は無料レポートキャッシュのキーを返す。
// fingerprintはintakeの安定部分集合のハッシュ。
func FreeCacheKey(fingerprint string) string {
	return "free:cache:" + fingerprint
}

// EntitlementKey は有料アクセス権レコードのキーを返す。
func EntitlementKey(sessionHash string) string {
	return "paid:ent:" + sessionHash
}

// PaidSessionKey は決済セッションID→権利の逆引きレコードのキーを返す。
// Webhookの遅延吸収と照会APIで使う。
func PaidSessionKey(checkoutID string) string {
	return "paid:sess:" + checkoutID
}

// ShareKey は共有リンクのキーを返す。
func ShareKey(token string) string {
	return "share:" + token
}

// RateKey は固定窓レート制限カウンタのキーを返す。
// nsは名前空間（ip / sess）、windowStartは窓の開始Unix秒。
func RateKey(ns, hash string, windowStart int64) string {
	return "rl:" + ns + ":" + hash + ":" + strconv.FormatInt(windowStart, 10)
}
