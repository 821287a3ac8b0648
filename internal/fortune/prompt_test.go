package fortune

import (
	"strings"
	"testing"

	"github.com/uranaibaya/baya/internal/model"
)

func strp(s string) *string { return &s }

func sampleIntake() *model.Intake {
	return &model.Intake{
		Version: "1",
		User: &model.Person{
			Birthday:        strp("1995-04-12"),
			BirthTime:       strp("08:30"),
			BirthPrefecture: strp("東京都"),
			MBTI:            strp("INFP"),
		},
		Partner: &model.Partner{
			AgeRange:    strp("30代前半"),
			Relation:    strp("マッチングアプリで知り合って2回デート"),
			RecentEvent: strp("3日前から未読"),
		},
		Concern: &model.Concern{
			FreeText: strp("返信が来なくて不安です。"),
		},
	}
}

// TestBuild_Deterministic は同じ入力から同じ文書が組み上がることを検証する。
func TestBuild_Deterministic(t *testing.T) {
	it := Normalize(sampleIntake())
	for _, mode := range []model.Mode{
		model.ModeMiniUser, model.ModeMiniPartner, model.ModeFreeReport,
		model.ModePaid480, model.ModePaid980, model.ModePaid1980,
	} {
		a := Build(mode, it)
		b := Build(mode, it)
		if a != b {
			t.Errorf("Build(%s) is not deterministic", mode)
		}
		if a == "" {
			t.Errorf("Build(%s) returned empty prompt", mode)
		}
	}
}

// TestBuild_UnsupportedMode は未定義モードがセンチネル文字列になることを検証する。
func TestBuild_UnsupportedMode(t *testing.T) {
	got := Build(model.Mode("premium_9999"), sampleIntake())
	want := "Unsupported mode: premium_9999"
	if got != want {
		t.Errorf("Build = %q, want %q", got, want)
	}
}

// TestBuild_MiniUserEmbedsElements はミニ鑑定に導出済みの気が埋め込まれることを検証する。
func TestBuild_MiniUserEmbedsElements(t *testing.T) {
	it := Normalize(sampleIntake())
	got := Build(model.ModeMiniUser, it)

	pair := it.Derived.UserElements
	if !strings.Contains(got, "『"+pair.Primary+"の気』") {
		t.Errorf("prompt should name primary element %q", pair.Primary)
	}
	if !strings.Contains(got, pair.Primary+"×"+pair.Secondary) {
		t.Errorf("prompt should contain pair %s×%s", pair.Primary, pair.Secondary)
	}
	if !strings.Contains(got, "『……心当たりはございますでしょうか？』") {
		t.Error("mini_user prompt must pin the closing phrase")
	}
}

// TestBuild_MiniPartnerClosing はお相手様版の結び定型を検証する。
func TestBuild_MiniPartnerClosing(t *testing.T) {
	got := Build(model.ModeMiniPartner, Normalize(sampleIntake()))
	if !strings.Contains(got, "『……近いでしょうか？』") {
		t.Error("mini_partner prompt must pin the closing phrase")
	}
	if !strings.Contains(got, "年代=30代前半") {
		t.Error("mini_partner prompt should carry the age range")
	}
}

// TestBuild_NullFieldsBecomeUnknown はnull項目が不明として埋まることを検証する。
func TestBuild_NullFieldsBecomeUnknown(t *testing.T) {
	it := Normalize(&model.Intake{})
	got := Build(model.ModeMiniUser, it)
	if !strings.Contains(got, "生年月日=不明") {
		t.Error("missing birthday should render as 不明")
	}
	if strings.Contains(got, "<nil>") {
		t.Error("prompt must never contain <nil>")
	}
}

// TestBuild_FreeReportRequirements は無料レポートの出力要件が明記されることを検証する。
func TestBuild_FreeReportRequirements(t *testing.T) {
	got := Build(model.ModeFreeReport, Normalize(sampleIntake()))

	for _, want := range []string{
		"使ってよいタグは <div><p><strong><ul><li> のみ",
		"冒頭宣言",
		"二人の相性",
		"7日以内の流れ",
		"行動指示",
		"吉・凶・一手",
		"有料版でもっと詳しく占えます（CTA）",
		"悩み（長文）：",
		"返信が来なくて不安です。",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("free_report prompt missing %q", want)
		}
	}
}

// TestBuild_FallbackPairs はderived未設定時の既定の気を検証する。
func TestBuild_FallbackPairs(t *testing.T) {
	got := Build(model.ModeFreeReport, &model.Intake{})
	if !strings.Contains(got, "本人の気：火×金") {
		t.Error("user pair should fall back to 火×金")
	}
	if !strings.Contains(got, "相手の気：水×木") {
		t.Error("partner pair should fall back to 水×木")
	}
}

// TestBuild_PaidEmbedsMiniReadings は有料版がミニ鑑定本文を材料に含めることを検証する。
func TestBuild_PaidEmbedsMiniReadings(t *testing.T) {
	it := Normalize(sampleIntake())
	it.Derived.UserMiniReading = strp("火と金のお方でございます。")
	it.Derived.PartnerMiniReading = strp("水と木のお相手様でございます。")

	got := Build(model.ModePaid980, it)
	if !strings.Contains(got, "火と金のお方でございます。") {
		t.Error("paid prompt should embed user mini reading")
	}
	if !strings.Contains(got, "水と木のお相手様でございます。") {
		t.Error("paid prompt should embed partner mini reading")
	}
}

// TestGetSystemPrompt はペルソナ規範の柱が揃っていることを検証する。
func TestGetSystemPrompt(t *testing.T) {
	got := GetSystemPrompt()
	for _, want := range []string{"占いばあや", "四柱推命", "MBTI", "一手"} {
		if !strings.Contains(got, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
	if GetSystemPrompt() != got {
		t.Error("system prompt must be constant")
	}
}
