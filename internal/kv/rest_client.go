package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// RESTClient はREST API越しにキーバリューストアを操作するStore実装。
// Upstash互換のコマンドパス（/get/<key>、/set/<key>/<value>?ex=<sec>、
// /incr/<key>、/expire/<key>/<sec>）を発行し、{"result": ...} 形式の
// レスポンスを解釈する。
type RESTClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	token      string
}

// NewRESTClient はRESTClientを生成する。
func NewRESTClient(httpClient *http.Client, logger *slog.Logger, baseURL, token string) *RESTClient {
	return &RESTClient{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
		token:      token,
	}
}

// restEnvelope はストアのレスポンス包み。resultの型はコマンドごとに異なる。
type restEnvelope struct {
	Result json.RawMessage `json:"result"`
}

// command はコマンドパスを発行してresultを返す。
func (c *RESTClient) command(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("KVリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("KVストアの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("KVレスポンスの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("KVストアがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("KVストアがステータス %d を返しました", resp.StatusCode)
	}

	var env restEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("KVレスポンスのパースに失敗しました: %w", err)
	}
	return env.Result, nil
}

// Get はキーの値を取得する。存在しないキーはresultがnullで返る。
func (c *RESTClient) Get(ctx context.Context, key string) (string, bool, error) {
	result, err := c.command(ctx, "/get/"+url.PathEscape(key))
	if err != nil {
		return "", false, err
	}
	if len(result) == 0 || string(result) == "null" {
		return "", false, nil
	}
	var value string
	if err := json.Unmarshal(result, &value); err != nil {
		return "", false, fmt.Errorf("KVのGET結果のパースに失敗しました: %w", err)
	}
	return value, true, nil
}

// Set はキーに値を書き込む。ttl>0なら?ex=で期限を併せて設定する。
func (c *RESTClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	path := "/set/" + url.PathEscape(key) + "/" + url.PathEscape(value)
	if ttl > 0 {
		path += "?ex=" + strconv.FormatInt(int64(ttl.Seconds()), 10)
	}
	_, err := c.command(ctx, path)
	return err
}

// Incr はキーの整数値を原子的に+1する。原子性はストア側が保証する。
func (c *RESTClient) Incr(ctx context.Context, key string) (int64, error) {
	result, err := c.command(ctx, "/incr/"+url.PathEscape(key))
	if err != nil {
		return 0, err
	}
	var n int64
	if err := json.Unmarshal(result, &n); err != nil {
		return 0, fmt.Errorf("KVのINCR結果のパースに失敗しました: %w", err)
	}
	return n, nil
}

// Expire は既存キーに期限を設定する。
func (c *RESTClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	path := "/expire/" + url.PathEscape(key) + "/" + strconv.FormatInt(int64(ttl.Seconds()), 10)
	_, err := c.command(ctx, path)
	return err
}
