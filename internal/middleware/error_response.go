package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/uranaibaya/baya/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。Detailはログ専用でレスポンスには出さない。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// WriteAPIError はAPIErrorを統一フォーマットで書き込む。
// ステータスコードはエラー自身が持つ値を使う。
func WriteAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	status := apiErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteError はerrをAPIErrorとして書き込む。APIErrorでないerrは
// 詳細を漏らさず一般的な500で返す。
func WriteError(w http.ResponseWriter, err error) {
	if apiErr := model.AsAPIError(err); apiErr != nil {
		WriteAPIError(w, apiErr)
		return
	}
	WriteInternalServerError(w)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
// 詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteAPIError(w, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
		Status:   http.StatusInternalServerError,
	})
}
