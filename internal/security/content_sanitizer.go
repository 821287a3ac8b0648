// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は生成モデルが出力したHTML鑑定をサニタイズし、
// XSS攻撃などのセキュリティリスクからユーザーを保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// レポートの出力要件で許可したタグのみを通過させる。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はHTMLコンテンツのサニタイズ機能のインターフェースを定義する。
// 無料レポートの返却前および共有リンクの解決時に使用される。
type ContentSanitizerService interface {
	// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
	// 許可タグ（div, p, strong, ul, li）のみを通過させ、
	// script, iframe, styleタグおよびon*イベント属性を除去する。
	// divにはセクション区切り用のclass属性のみ許可される。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(rawHTML string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayのカスタムポリシーを構築する。
// ポリシーの内容:
//   - 許可タグ: div, p, strong, ul, li（レポートの出力要件と同じ集合）
//   - div要素のみclass属性を許可（セクション区切り <div class='sec'> のため）
//   - script, iframe, style等は許可リストに含めないことで自動的に除去される
//   - on*イベント属性はbluemondayのデフォルトで許可されないため除去される
//   - リンクと画像はレポートに不要なので一切許可しない
func NewContentSanitizer() *contentSanitizer {
	p := bluemonday.NewPolicy()

	p.AllowElements("div", "p", "strong", "ul", "li")
	p.AllowAttrs("class").OnElements("div")

	return &contentSanitizer{
		policy: p,
	}
}

// Sanitize はHTMLコンテンツをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) Sanitize(rawHTML string) string {
	return s.policy.Sanitize(rawHTML)
}
