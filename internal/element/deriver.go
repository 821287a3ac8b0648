// Package element は入力事実から五行の二気を決定論的に導出する。
//
// 導出はシード文字列のFNV-1aハッシュのみに依存し、乱数・時刻・セッション
// 状態を一切使わない。同じシードは何度呼んでも、プロセスを再起動しても、
// 常に同じ組を返す。
package element

import "github.com/uranaibaya/baya/internal/model"

// Alphabet は五行の記号。順序はハッシュ値の剰余で添字になるため固定。
var Alphabet = [5]string{"火", "水", "木", "金", "土"}

// FNV-1a 32bit の定数。
const (
	fnvOffset32 = 0x811c9dc5
	fnvPrime32  = 16777619
)

// hash32FNV1a はsのUTF-8バイト列に対する32bit FNV-1aハッシュを返す。
// 暗号ライブラリ無しで他言語からもバイト単位で再現できるように、
// 素朴なループで実装している。
func hash32FNV1a(s string) uint32 {
	h := uint32(fnvOffset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime32
	}
	return h
}

// Derive はシードから主気・補助気の組を導出する。
// 主気はseed+"|primary"のハッシュで五行から選び、補助気は主気を除いた
// 残り4つ（元の順序を保つ）からseed+"|secondary"のハッシュで選ぶ。
// したがってPrimary≠Secondaryが常に成り立つ。
func Derive(seed string) model.ElementPair {
	primary := Alphabet[hash32FNV1a(seed+"|primary")%uint32(len(Alphabet))]

	remaining := make([]string, 0, len(Alphabet)-1)
	for _, e := range Alphabet {
		if e != primary {
			remaining = append(remaining, e)
		}
	}
	secondary := remaining[hash32FNV1a(seed+"|secondary")%uint32(len(remaining))]

	return model.ElementPair{Primary: primary, Secondary: secondary}
}
