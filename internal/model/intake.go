// Package model はドメインモデルを定義する。
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Person は鑑定対象者（本人）の入力情報を保持する。
// 会話で答えなかった項目はnullのままAPIに届くため、全フィールドがポインタ。
type Person struct {
	Birthday        *string `json:"birthday"`
	Gender          *string `json:"gender"`
	BirthTime       *string `json:"birth_time"`
	BirthPrefecture *string `json:"birth_prefecture"`
	MBTI            *string `json:"mbti"`
}

// Partner はお相手様の入力情報を保持する。
// 生年月日が不明な場合はAgeRange（年代）が決定論の代替キーになる。
type Partner struct {
	Birthday        *string `json:"birthday"`
	Gender          *string `json:"gender"`
	BirthTime       *string `json:"birth_time"`
	BirthPrefecture *string `json:"birth_prefecture"`
	MBTI            *string `json:"mbti"`
	AgeRange        *string `json:"age_range"`
	Relation        *string `json:"relation"`
	RecentEvent     *string `json:"recent_event"`
}

// Concern はユーザーが自由記述で入力した悩みを保持する。
type Concern struct {
	FreeText *string `json:"free_text"`
}

// ElementPair は入力事実から決定論的に導出される二つの気。
// PrimaryとSecondaryは常に異なり、五行（火水木金土）のいずれか。
type ElementPair struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// Derived は導出済み・生成済みの値をintakeに畳み込んで保持する。
// 一度計算したelementsは再計算しない（同じ人→同じ鑑定の土台、の保証）。
type Derived struct {
	UserElements       *ElementPair `json:"user_elements"`
	PartnerElements    *ElementPair `json:"partner_elements"`
	UserMiniReading    *string      `json:"user_mini_reading"`
	PartnerMiniReading *string      `json:"partner_mini_reading"`
}

// Meta はブラウジングセッションの識別情報を保持する。
type Meta struct {
	SessionID string `json:"session_id"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Intake は会話フローで収集した全入力のレコード。
type Intake struct {
	Version string          `json:"version,omitempty"`
	User    *Person         `json:"user"`
	Partner *Partner        `json:"partner"`
	Concern *Concern        `json:"concern"`
	Derived *Derived        `json:"derived"`
	Meta    *Meta           `json:"meta"`
	Persona json.RawMessage `json:"persona,omitempty"`
}

// SessionID はmeta.session_idを返す。metaが無い場合は空文字列。
func (it *Intake) SessionID() string {
	if it == nil || it.Meta == nil {
		return ""
	}
	return it.Meta.SessionID
}

// signatureSubset は意味内容に効くフィールドだけを切り出した署名対象。
// session_idやderivedのような揮発フィールドは含めない。
type signatureSubset struct {
	V       string   `json:"v"`
	User    *Person  `json:"user"`
	Partner *Partner `json:"partner"`
	Concern *Concern `json:"concern"`
}

// Signature はintakeの安定部分集合のSHA-256指紋を返す。
// 実質同一の入力が同じ無料レポートキャッシュキーに写像されるように使う。
func (it *Intake) Signature() string {
	sub := signatureSubset{}
	if it != nil {
		sub.V = it.Version
		sub.User = it.User
		sub.Partner = it.Partner
		sub.Concern = it.Concern
	}
	b, _ := json.Marshal(sub)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Entitlement は決済完了で付与される有料アクセス権。
// 決済コラボレータが作成し、本体は読み取りのみを行う。KVのTTLで自然失効する。
type Entitlement struct {
	Plan      string `json:"plan"`
	SessionID string `json:"sessionId"`
	PaidAt    string `json:"paidAt"`
}

// 出力フォーマット。無料レポート系はHTML、それ以外はテキスト。
const (
	FormatText = "text"
	FormatHTML = "html"
)

// GenerationResult は生成鑑定の正規化済みレスポンス。
type GenerationResult struct {
	Format  string `json:"format"`
	Content string `json:"content"`
	Cached  bool   `json:"cached,omitempty"`
}
