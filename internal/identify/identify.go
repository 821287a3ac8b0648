// Package identify はレート制限・クオータ・権利管理に使うクライアント識別子を提供する。
//
// IP・セッションID・User-Agentはそれぞれ別の接頭辞とデプロイ共通のソルトを
// 付けてSHA-256でハッシュ化する。名前空間が分かれているため互いに衝突せず、
// 生の値はどこにも永続化されない。
package identify

import (
	"crypto/sha256"
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/uranaibaya/baya/internal/model"
)

// ClientIDs はひとつのリクエストに対するハッシュ化済み識別子の組。
type ClientIDs struct {
	IPHash      string
	SessionHash string
	UAHash      string
}

// Hasher はソルト付きの一方向ハッシュでクライアント識別子を導出する。
type Hasher struct {
	salt string
}

// NewHasher はHasherを生成する。saltはデプロイ共通の秘密値。
func NewHasher(salt string) Hasher {
	return Hasher{salt: salt}
}

// ClientIDs はリクエストとintakeからハッシュ化済み識別子を導出する。
func (h Hasher) ClientIDs(r *http.Request, it *model.Intake) ClientIDs {
	ip := ClientIP(r)
	ua := r.Header.Get("User-Agent")
	session := it.SessionID()

	return ClientIDs{
		IPHash:      h.hash("ip", ip),
		SessionHash: h.hash("sess", session),
		UAHash:      h.hash("ua", ua),
	}
}

// hash は接頭辞・値・ソルトを連結してSHA-256のhex表現を返す。
// 接頭辞で名前空間を分けることで、IP空間とセッション空間が混ざらない。
func (h Hasher) hash(prefix, v string) string {
	sum := sha256.Sum256([]byte(prefix + ":" + v + ":" + h.salt))
	return hex.EncodeToString(sum[:])
}

// ClientIP はプロキシ越しでもクライアントIPを推定して返す。
// X-Forwarded-For（先頭）→ X-Real-IP → RemoteAddr の順に見る。
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first := strings.TrimSpace(strings.Split(xff, ",")[0])
		if first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "0.0.0.0"
}

// jst は日本標準時。クオータの「1日」はロケールに関係なくこのタイムゾーンで区切る。
var jst = time.FixedZone("JST", 9*60*60)

// JSTDay はJSTにおける日付をYYYY-MM-DD形式で返す。
func JSTDay(t time.Time) string {
	return t.In(jst).Format("2006-01-02")
}
