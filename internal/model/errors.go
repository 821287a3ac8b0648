package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法、対応するHTTPステータスを含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ（ユーザー向け・口調は鑑定ペルソナに合わせる）
	Category string // カテゴリ: validation, payment, limit, upstream, system
	Action   string // ユーザー向け対処方法
	Status   int    // HTTPステータスコード
	Detail   string // 診断用の詳細。ログのみに出し、レスポンスには含めない
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// AsAPIError はerrからAPIErrorを取り出す。取り出せない場合はnil。
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return nil
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeConfig          = "CONFIG_ERROR"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeQuotaExceeded   = "QUOTA_EXCEEDED"
	ErrCodePaymentRequired = "PAYMENT_REQUIRED"
	ErrCodePlanMismatch    = "PLAN_MISMATCH"
	ErrCodeUpstream        = "UPSTREAM_ERROR"
	ErrCodeUpstreamTimeout = "UPSTREAM_TIMEOUT"
	ErrCodeEmptyOutput     = "EMPTY_OUTPUT"
	ErrCodeStore           = "STORE_ERROR"
)

// NewInvalidRequestError はリクエスト不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストの形式が正しくありません: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して、もう一度お試しください。",
		Status:   400,
	}
}

// NewConfigError は資格情報の欠落・破損エラーを生成する。
// 資格情報そのものは絶対に含めない。
func NewConfigError(detail string) *APIError {
	return &APIError{
		Code:     ErrCodeConfig,
		Message:  "申し訳ございません。ただいま鑑定の支度が整っておりません。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
		Status:   500,
		Detail:   detail,
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:     ErrCodeRateLimited,
		Message:  "少し急ぎすぎのようでございます。ひと呼吸おいてくださいませ。",
		Category: "limit",
		Action:   "1分ほど待ってから再度お試しください。",
		Status:   429,
	}
}

// NewQuotaExceededError は無料鑑定の1日上限超過エラーを生成する。
func NewQuotaExceededError() *APIError {
	return &APIError{
		Code:     ErrCodeQuotaExceeded,
		Message:  "本日の無料鑑定はここまでにございます。続きはまた明日お越しくださいませ。",
		Category: "limit",
		Action:   "日付が変わってから再度お試しください。",
		Status:   429,
	}
}

// NewPaymentRequiredError は有料鑑定の権利未付与エラーを生成する。
func NewPaymentRequiredError() *APIError {
	return &APIError{
		Code:     ErrCodePaymentRequired,
		Message:  "こちらは有料の鑑定でございます。お支払いの確認ができませんでした。",
		Category: "payment",
		Action:   "お支払いを済ませてから再度お試しください。",
		Status:   402,
	}
}

// NewPlanMismatchError は購入プランと要求ティアの不一致エラーを生成する。
func NewPlanMismatchError(have, want string) *APIError {
	return &APIError{
		Code:     ErrCodePlanMismatch,
		Message:  "お求めのプランと今回の鑑定が合っていないようでございます。",
		Category: "payment",
		Action:   "ご購入の鑑定をお選びいただくか、あらためてお求めくださいませ。",
		Status:   403,
		Detail:   fmt.Sprintf("entitlement plan=%s, required plan=%s", have, want),
	}
}

// NewUpstreamError は生成APIの非タイムアウト失敗エラーを生成する。
// bodyは診断用に先頭2000文字へ切り詰めて保持する。レスポンスには出さない。
func NewUpstreamError(status int, body string) *APIError {
	return &APIError{
		Code:     ErrCodeUpstream,
		Message:  "申し訳ございません。鑑定の途中で手が止まってしまいました。",
		Category: "upstream",
		Action:   "しばらく待ってから再度お試しください。",
		Status:   500,
		Detail:   fmt.Sprintf("upstream status %d: %s", status, Truncate(body, 2000)),
	}
}

// NewUpstreamTimeoutError は生成APIのタイムアウトエラーを生成する。
// 一般の失敗と区別して504で返し、運用側が遅延障害を切り分けられるようにする。
func NewUpstreamTimeoutError() *APIError {
	return &APIError{
		Code:     ErrCodeUpstreamTimeout,
		Message:  "申し訳ございません。読みに時間がかかりすぎてしまいました。",
		Category: "upstream",
		Action:   "少し待ってから、もう一度だけお試しくださいませ。",
		Status:   504,
	}
}

// NewEmptyOutputError は空の生成結果エラーを生成する。
// 無料レポートでは空の成果物をキャッシュしてはならないため、エラーとして扱う。
func NewEmptyOutputError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyOutput,
		Message:  "申し訳ございません。今回はうまく言葉になりませんでした。",
		Category: "upstream",
		Action:   "もう一度お試しください。無料回数は消費されておりません。",
		Status:   500,
	}
}

// NewStoreError はKVストア障害のエラーを生成する。
func NewStoreError(err error) *APIError {
	return &APIError{
		Code:     ErrCodeStore,
		Message:  "申し訳ございません。帳面の読み書きに失敗いたしました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
		Status:   500,
		Detail:   err.Error(),
	}
}

// Truncate はsを最大n文字に切り詰める。
// エラー詳細やログのペイロードサイズを抑えるために使う。
// 文字単位で切るため、マルチバイト文字が途中で壊れることはない。
func Truncate(s string, n int) string {
	// 大半の呼び出しは上限未満で終わるので、まずバイト長で素通りを判定する
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
