package fortune

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/uranaibaya/baya/internal/model"
)

// defaultEndpoint はチャット補完APIのエンドポイント。
const defaultEndpoint = "https://api.openai.com/v1/chat/completions"

// FallbackApology は生成結果が空だったときに返す定型の詫び文。
// ペルソナを崩さずに再試行を促す。
const FallbackApology = "すみませんね。ちょっと電波が乱れたみたいです。もう一回だけお願いできますか？"

// ChatClient はチャット補完APIのクライアント。
// リトライはしない。1回の呼び出しが長いため、失敗は即座に呼び出し元へ返す。
type ChatClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string // テスト用にエンドポイントを差し替え可能
}

// NewChatClient はChatClient の新しいインスタンスを生成する。
func NewChatClient(httpClient *http.Client, logger *slog.Logger) *ChatClient {
	return &ChatClient{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   defaultEndpoint,
	}
}

// CallParams は1回の生成呼び出しのパラメータ。
type CallParams struct {
	APIKey      string
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Call は生成APIを1回呼び出し、本文テキストを返す。
// タイムアウトは504相当、その他の上流失敗は500相当のAPIErrorになる。
// 正常応答で本文が空の場合は定型の詫び文を返す（エラーにはしない。
// 空を失敗として扱うかどうかは呼び出し側の責務）。
func (c *ChatClient) Call(ctx context.Context, p CallParams) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	reqBody := chatRequest{
		Model: p.Model,
		Messages: []chatMessage{
			{Role: "system", Content: p.System},
			{Role: "user", Content: p.Prompt},
		},
		MaxTokens:   p.MaxTokens,
		Temperature: p.Temperature,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("リクエストJSONの生成に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.logger.Error("生成APIがタイムアウトしました",
				slog.String("model", p.Model),
				slog.Duration("timeout", p.Timeout),
			)
			return "", model.NewUpstreamTimeoutError()
		}
		c.logger.Error("生成APIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.String("model", p.Model),
		)
		return "", model.NewUpstreamError(0, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		// ボディ受信中にデッドラインが切れる窓もタイムアウト扱いにする
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.logger.Error("生成APIの応答受信中にタイムアウトしました",
				slog.String("model", p.Model),
				slog.Duration("timeout", p.Timeout),
			)
			return "", model.NewUpstreamTimeoutError()
		}
		return "", fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("生成APIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("model", p.Model),
			slog.String("body", model.Truncate(string(body), 2000)),
		)
		return "", model.NewUpstreamError(resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", model.NewUpstreamError(resp.StatusCode, "レスポンスJSONのパースに失敗しました: "+err.Error())
	}

	content := ""
	if len(parsed.Choices) > 0 {
		content = parsed.Choices[0].Message.Content
	}
	if content == "" {
		c.logger.Warn("生成APIが空の本文を返しました",
			slog.String("model", p.Model),
			slog.Duration("elapsed", time.Since(start)),
		)
		return FallbackApology, nil
	}

	c.logger.Info("生成APIの呼び出しが完了しました",
		slog.String("model", p.Model),
		slog.Int("content_length", len(content)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return content, nil
}
