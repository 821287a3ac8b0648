// Package share は鑑定結果の共有リンク機能を提供する。
// トークンの発行と、トークンからの本文取り出しを担う。リンクはTTLで自然失効する。
package share

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/uranaibaya/baya/internal/kv"
	"github.com/uranaibaya/baya/internal/model"
)

// tokenPattern は共有トークンの形式。UUIDのハイフン抜き16進32文字。
// 形式外のトークンはストアに問い合わせる前に弾く。
var tokenPattern = regexp.MustCompile(`^[0-9a-f]{32}$`)

// Config は共有リンクの実行時設定。
type Config struct {
	TTL        time.Duration // リンクの有効期間
	MaxContent int           // 保存を受け付ける本文の最大文字数
}

// Record は共有される鑑定のスナップショット。
type Record struct {
	Format    string `json:"format"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// Service は共有リンクの発行と解決を行う。
type Service struct {
	store  kv.Store
	logger *slog.Logger
	cfg    Config
	now    func() time.Time // テスト用に差し替え可能
}

// NewService はService の新しいインスタンスを生成する。
func NewService(store kv.Store, logger *slog.Logger, cfg Config) *Service {
	return &Service{
		store:  store,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Create は鑑定本文の共有トークンを発行する。
// 本文は発行時点のスナップショットとして保存され、以後の再生成の影響を受けない。
func (s *Service) Create(ctx context.Context, format, content string) (string, error) {
	if format != model.FormatText && format != model.FormatHTML {
		return "", model.NewInvalidRequestError("未対応のフォーマットです: " + format)
	}
	if content == "" {
		return "", model.NewInvalidRequestError("本文が空です")
	}
	if len([]rune(content)) > s.cfg.MaxContent {
		return "", model.NewInvalidRequestError("本文が長すぎます")
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	rec := Record{
		Format:    format,
		Content:   content,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", model.NewStoreError(err)
	}
	if err := s.store.Set(ctx, kv.ShareKey(token), string(raw), s.cfg.TTL); err != nil {
		return "", model.NewStoreError(err)
	}

	s.logger.Info("共有リンクを発行しました",
		slog.String("format", format),
		slog.Int("content_length", len(content)),
	)
	return token, nil
}

// Get はトークンから共有レコードを取り出す。
// 見つからない・期限切れの場合はok=falseを返し、エラーにはしない。
func (s *Service) Get(ctx context.Context, token string) (*Record, bool, error) {
	if !tokenPattern.MatchString(token) {
		return nil, false, model.NewInvalidRequestError("トークンの形式が正しくありません")
	}

	raw, ok, err := s.store.Get(ctx, kv.ShareKey(token))
	if err != nil {
		return nil, false, model.NewStoreError(err)
	}
	if !ok {
		return nil, false, nil
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		s.logger.Error("共有レコードのパースに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, false, nil
	}
	return &rec, true, nil
}
