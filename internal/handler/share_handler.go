package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/uranaibaya/baya/internal/middleware"
	"github.com/uranaibaya/baya/internal/model"
	"github.com/uranaibaya/baya/internal/share"
)

// ShareServiceInterface は共有ハンドラーが必要とするサービスインターフェース。
type ShareServiceInterface interface {
	// Create は鑑定本文の共有トークンを発行する。
	Create(ctx context.Context, format, content string) (string, error)
	// Get はトークンから共有レコードを取り出す。見つからない場合はok=false。
	Get(ctx context.Context, token string) (*share.Record, bool, error)
}

// ShareHandler は共有リンクのHTTPハンドラー。
type ShareHandler struct {
	service      ShareServiceInterface
	publicAppURL string
}

// NewShareHandler はShareHandlerを生成する。
func NewShareHandler(service ShareServiceInterface, publicAppURL string) *ShareHandler {
	return &ShareHandler{
		service:      service,
		publicAppURL: publicAppURL,
	}
}

// shareCreateRequest は共有リンク発行リクエストのボディ。
type shareCreateRequest struct {
	Format  string `json:"format"`
	Content string `json:"content"`
}

// shareCreateResponse は共有リンク発行のレスポンス。
type shareCreateResponse struct {
	Token string `json:"token"`
	URL   string `json:"url"`
}

// Create は鑑定本文の共有リンクを発行する。
// POST /api/share
func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req shareCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteAPIError(w, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	token, err := h.service.Create(r.Context(), req.Format, req.Content)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(shareCreateResponse{
		Token: token,
		URL:   strings.TrimRight(h.publicAppURL, "/") + "/share/" + token,
	})
}

// Get はトークンから共有された鑑定を取り出す。
// GET /api/share/{token}
func (h *ShareHandler) Get(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	rec, ok, err := h.service.Get(r.Context(), token)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	if !ok {
		middleware.WriteAPIError(w, &model.APIError{
			Code:     "NOT_FOUND",
			Message:  "お探しの鑑定は見つかりませんでした。期限が切れたのかもしれません。",
			Category: "validation",
			Action:   "リンクの発行元に新しいリンクをお求めください。",
			Status:   http.StatusNotFound,
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rec)
}
