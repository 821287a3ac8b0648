package model

// Mode は生成する鑑定の種類（ティア）を表す閉じた列挙。
type Mode string

const (
	// ModeMiniUser は本人のミニ鑑定。
	ModeMiniUser Mode = "mini_user"
	// ModeMiniPartner はお相手様のミニ鑑定。
	ModeMiniPartner Mode = "mini_partner"
	// ModeFreeReport は無料の総合レポート（HTML出力）。
	ModeFreeReport Mode = "free_report"
	// ModePaid480 は480円版（1週間の流れ）。
	ModePaid480 Mode = "paid_480"
	// ModePaid980 は980円版（1ヶ月の運勢）。
	ModePaid980 Mode = "paid_980"
	// ModePaid1980 は1980円版（3ヶ月の特別鑑定）。
	ModePaid1980 Mode = "paid_1980"
)

// ModeConfig はモードごとの生成パラメータ。
// Formatはモードだけで決まり、生成内容には依存しない。
type ModeConfig struct {
	Format    string // 出力フォーマット（text / html）
	MaxTokens int    // 生成モデルへのトークン上限
	Plan      string // 必要なプラン。無料系は空文字列
}

var modeConfigs = map[Mode]ModeConfig{
	ModeMiniUser:    {Format: FormatText, MaxTokens: 1400},
	ModeMiniPartner: {Format: FormatText, MaxTokens: 1400},
	ModeFreeReport:  {Format: FormatHTML, MaxTokens: 2400},
	ModePaid480:     {Format: FormatText, MaxTokens: 2800, Plan: "480"},
	ModePaid980:     {Format: FormatText, MaxTokens: 4000, Plan: "980"},
	ModePaid1980:    {Format: FormatText, MaxTokens: 5200, Plan: "1980"},
}

// Config はモードの生成パラメータを返す。未定義モードはok=false。
func (m Mode) Config() (ModeConfig, bool) {
	cfg, ok := modeConfigs[m]
	return cfg, ok
}

// IsDefined は定義済みモードかどうかを返す。
func (m Mode) IsDefined() bool {
	_, ok := modeConfigs[m]
	return ok
}

// IsFreeReport は無料レポート系モードかどうかを返す。
func (m Mode) IsFreeReport() bool {
	return m == ModeFreeReport
}

// IsPaid は有料ティアかどうかを返す。
func (m Mode) IsPaid() bool {
	cfg, ok := modeConfigs[m]
	return ok && cfg.Plan != ""
}

// Plans は決済で受け付けるプランの一覧。
var Plans = []string{"480", "980", "1980"}

// ValidPlan はplanが受け付け可能な値かどうかを返す。
func ValidPlan(plan string) bool {
	for _, p := range Plans {
		if p == plan {
			return true
		}
	}
	return false
}
