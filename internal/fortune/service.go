package fortune

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/uranaibaya/baya/internal/model"
)

// Caller は生成APIの呼び出し1回分の抽象。テストでの差し替え用。
type Caller interface {
	Call(ctx context.Context, p CallParams) (string, error)
}

// HTMLSanitizer はHTML出力モードで本文に適用するサニタイザの抽象。
type HTMLSanitizer interface {
	Sanitize(s string) string
}

// GenerationConfig は生成パイプラインの実行時設定。
type GenerationConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Service はモード別の鑑定生成を実行する。
// レート制限・無料枠・支払い確認はこの層の外側（gate）で行い、
// ここでは入力の正規化から出力の正規化までだけを担う。
type Service struct {
	client    Caller
	sanitizer HTMLSanitizer
	logger    *slog.Logger
	cfg       GenerationConfig
}

// NewService はService の新しいインスタンスを生成する。
func NewService(client Caller, sanitizer HTMLSanitizer, logger *slog.Logger, cfg GenerationConfig) *Service {
	return &Service{
		client:    client,
		sanitizer: sanitizer,
		logger:    logger,
		cfg:       cfg,
	}
}

// validAPIKey はAPIキーが送信可能な形かどうかを返す。
// 前後の空白を除いた上で、空でなく印字可能ASCIIのみで構成されていること。
// 改行や制御文字が混ざったキーはHTTPヘッダを壊すため送信前に弾く。
func validAPIKey(key string) (string, bool) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}
	for _, r := range key {
		if r < 0x20 || r > 0x7e {
			return "", false
		}
	}
	return key, true
}

// Generate は指定モードの鑑定を生成し、フォーマット済みの結果を返す。
// フォーマットはモードだけで決まる。HTMLモードでは本文をサニタイズする。
func (s *Service) Generate(ctx context.Context, mode model.Mode, it *model.Intake) (*model.GenerationResult, error) {
	cfg, ok := mode.Config()
	if !ok {
		return nil, model.NewInvalidRequestError("未対応のモードです: " + string(mode))
	}

	key, ok := validAPIKey(s.cfg.APIKey)
	if !ok {
		s.logger.Error("生成APIキーが未設定または不正です")
		return nil, model.NewConfigError("generation api key is missing or malformed")
	}

	it = Normalize(it)
	prompt := Build(mode, it)

	content, err := s.client.Call(ctx, CallParams{
		APIKey:      key,
		Model:       s.cfg.Model,
		System:      GetSystemPrompt(),
		Prompt:      prompt,
		MaxTokens:   cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		Timeout:     s.cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Format == model.FormatHTML && s.sanitizer != nil {
		content = s.sanitizer.Sanitize(content)
	}

	return &model.GenerationResult{
		Format:  cfg.Format,
		Content: content,
	}, nil
}
