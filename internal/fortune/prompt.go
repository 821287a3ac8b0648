package fortune

import (
	"strings"

	"github.com/uranaibaya/baya/internal/model"
)

// unknown はnullフィールドの代わりに埋める表示文字列。
// 行を省略せずに埋めることで、モデルには常に同じ形の文書が届く。
const unknown = "不明"

func unknownOr(p *string) string {
	if p == nil || *p == "" {
		return unknown
	}
	return *p
}

func emptyOr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// pairString は『火×金』形式の気の表記を返す。
// derivedが未設定でもプロンプトが崩れないよう既定の組を使う。
func pairString(pair *model.ElementPair, fallback model.ElementPair) (model.ElementPair, string) {
	p := fallback
	if pair != nil {
		p = *pair
	}
	return p, p.Primary + "×" + p.Secondary
}

var (
	defaultUserPair    = model.ElementPair{Primary: "火", Secondary: "金"}
	defaultPartnerPair = model.ElementPair{Primary: "水", Secondary: "木"}
)

// Build はモードとintakeから生成モデルへの指示文書を組み立てる。
// 純粋関数であり、未定義モードには例外ではなく明示のセンチネル文字列を返す
// （呼び出し側はこれを上流でのハードエラーとして扱う）。
func Build(mode model.Mode, it *model.Intake) string {
	if it == nil {
		it = &model.Intake{}
	}
	switch mode {
	case model.ModeMiniUser:
		return buildMiniUser(it)
	case model.ModeMiniPartner:
		return buildMiniPartner(it)
	case model.ModeFreeReport:
		return buildFreeReport(it)
	case model.ModePaid480:
		return buildPaid480(it)
	case model.ModePaid980:
		return buildPaid980(it)
	case model.ModePaid1980:
		return buildPaid1980(it)
	default:
		return "Unsupported mode: " + string(mode)
	}
}

func derived(it *model.Intake) *model.Derived {
	if it.Derived == nil {
		return &model.Derived{}
	}
	return it.Derived
}

func person(it *model.Intake) *model.Person {
	if it.User == nil {
		return &model.Person{}
	}
	return it.User
}

func partner(it *model.Intake) *model.Partner {
	if it.Partner == nil {
		return &model.Partner{}
	}
	return it.Partner
}

func concern(it *model.Intake) *model.Concern {
	if it.Concern == nil {
		return &model.Concern{}
	}
	return it.Concern
}

// buildMiniUser は本人ミニ鑑定の指示文書を組み立てる。
// 800〜1000字、固定6セクション、冒頭定型には導出済みの気を必ず埋め込む。
func buildMiniUser(it *model.Intake) string {
	u := person(it)
	d := derived(it)
	ue, userPair := pairString(d.UserElements, defaultUserPair)

	return strings.Join([]string{
		"本人のミニ鑑定を書いてください。",
		"文字数：日本語で800〜1000字。",
		"形式：次の順で6つ。各セクションは『キャッチコピー1行＋本文2〜3文』。セクションの間は空行を1行。",
		"表面 / 内側 / 恋愛や対人 / 強み / 弱点 / まとめ",
		"",
		"冒頭は必ずこの形：",
		"かしこまりました。{生年月日}{出生時刻のニュアンス}ご誕生の気配を拝見いたしますと、あなた様は『" + ue.Primary + "の気』と『" + ue.Secondary + "の気』が同時に立つ方でございます。",
		"次の1文で、二つの気を短く説明（例：火＝始める、金＝分ける、など）。",
		"",
		"書き方のコツ：",
		"・五行の言葉（気/運/縁/流れ）を自然に入れる。",
		"・抽象だけにせず、口癖や行動のクセが浮かぶ具体例を入れる。",
		"・MBTIに触れるのは多くて1回。根拠として言い切らない。",
		"・最後は必ず『……心当たりはございますでしょうか？』で終える。",
		"",
		"入力：生年月日=" + unknownOr(u.Birthday) + " / 出生時刻=" + unknownOr(u.BirthTime) + " / 出生地=" + unknownOr(u.BirthPrefecture) + " / MBTI=" + unknownOr(u.MBTI),
		"指定の気：" + userPair,
	}, "\n")
}

// buildMiniPartner はお相手様ミニ鑑定の指示文書を組み立てる。
// 結びの定型文は本人版と異なる。
func buildMiniPartner(it *model.Intake) string {
	p := partner(it)
	d := derived(it)
	pe, partnerPair := pairString(d.PartnerElements, defaultPartnerPair)

	mbti := unknownOr(p.MBTI)
	if mbti == unknown {
		mbti = "不明/推定"
	}

	return strings.Join([]string{
		"相手のミニ鑑定を書いてください。",
		"文字数：日本語で800〜1000字。",
		"形式：次の順で6つ。各セクションは『キャッチコピー1行＋本文2〜3文』。セクションの間は空行を1行。",
		"表面 / 内側 / 恋愛や対人 / 強み / 弱点 / まとめ",
		"",
		"冒頭は必ずこの形：",
		"かしこまりました。{生年月日または年代}{出生時刻のニュアンス}ご誕生の気配を拝見いたしますと、お相手様は『" + pe.Primary + "の気』と『" + pe.Secondary + "の気』が同時に立つ方でございます。",
		"生年月日が不明なら年代でOK。その場合は言い切りすぎない（『そんな傾向が出やすい』くらい）。",
		"",
		"注意：関係性と直近の出来事を、説明くさくならないように1回だけ自然に入れる。",
		"MBTIに触れるのは多くて1回。根拠として言い切らない。",
		"最後は必ず『……近いでしょうか？』で終える。",
		"",
		"入力：生年月日=" + unknownOr(p.Birthday) + " / 年代=" + unknownOr(p.AgeRange) + " / 出生時刻=" + unknownOr(p.BirthTime) + " / MBTI=" + mbti + " / 関係性=" + unknownOr(p.Relation) + " / 直近=" + unknownOr(p.RecentEvent),
		"指定の気：" + partnerPair,
	}, "\n")
}

// materialLines は無料・有料レポート共通の入力材料ブロックを組み立てる。
// 生成済みのミニ鑑定があれば本文を、無ければ空のまま埋める（エラーにはしない）。
func materialLines(it *model.Intake) []string {
	p := partner(it)
	c := concern(it)
	d := derived(it)
	_, userPair := pairString(d.UserElements, defaultUserPair)
	_, partnerPair := pairString(d.PartnerElements, defaultPartnerPair)

	return []string{
		"本人の気：" + userPair,
		"相手の気：" + partnerPair,
		"",
		"本人ミニ鑑定：",
		emptyOr(d.UserMiniReading),
		"",
		"相手ミニ鑑定：",
		emptyOr(d.PartnerMiniReading),
		"",
		"関係性：" + unknownOr(p.Relation),
		"直近の出来事：" + unknownOr(p.RecentEvent),
		"",
		"悩み（長文）：",
		emptyOr(c.FreeText),
	}
}

// buildFreeReport は無料レポート（HTML）の指示文書を組み立てる。
// 出力タグの許可リストは推測に任せず明示する。決定的な行動指示は
// 『一手』1つに限定し、それ以外の決め打ちは有料版に取り置く。
func buildFreeReport(it *model.Intake) string {
	lines := []string{
		"【無料レポート（HTML）｜出力要件】",
		"",
		"■目的",
		"- ユーザーの迷いを減らし、気持ちが楽になる言葉を渡しつつ、行動を1つに決める。",
		"",
		"■文字数",
		"- 日本語で1200〜1500字。",
		"",
		"■出力形式（重要）",
		"- HTMLのみで出力する。",
		"- 使ってよいタグは <div><p><strong><ul><li> のみ。",
		"- 各セクションは <div class='sec'> で区切る。",
		"- 各セクション冒頭は必ず <p><strong>見出し名</strong></p> にする。",
		"- 長い1段落は禁止。必ず段落を分ける（3〜6行で改段落する感覚）。",
		"",
		"■この指示文の復唱は禁止",
		"- 『出力要件』『目的』『形式』などの指示っぽい言葉を本文に出さない。",
		"",
		"■構成（固定・見出し名固定・順番固定）",
		"必ず下記6セクションをこの順で出す：",
		"0) 冒頭宣言",
		"1) 二人の相性",
		"2) 7日以内の流れ",
		"3) 行動指示",
		"4) 吉・凶・一手",
		"5) 有料版でもっと詳しく占えます（CTA）",
		"",
		"■トーン（重要）",
		"- 口調は常に敬語。ただし難しい言葉は禁止（拝察/肝要/証左/僭越/〜にございます 等）。",
		"- 親戚のおばあちゃんが“やさしく言い切る”感じ。短い文を多めに。",
		"- 占いっぽさは『運・縁・流れ・間・気持ちが重い/軽い』の言葉で出す。五行は使ってよいが、連発しない（1セクションに0〜1回が目安）。",
		"",
		"■バーナム効果の必須要件（最重要）",
		"- ユーザーの心の動きを“当てる”言い回しを必ず入れる：",
		"  ・強がって平気なふりをしつつ、スマホを何回も見てしまう/答え合わせをしたくなる/自分だけが前のめりに見えるのが怖い 等。",
		"- 相手側にも“ありそう”を入れる：",
		"  ・返す気はあるのに、返すほど重く感じて止まる/気分と余白で返信速度が変わる/好き嫌いより疲れ具合が出る 等。",
		"",
		"■事実の反映（必須）",
		"- 相談文の事実を最低3点入れる（デート回数、未読日数、元カノ、相手は既読が遅い、など）。",
		"- 入力に数値（日数・回数）があれば最低1つ入れる。なければ“数日/しばらく/最近”で補う。",
		"- 返信がない＝脈なし、と断言しない。ただし希望だけで濁さず、現実の見立ても必ず入れる。",
		"",
		"■セクション別の要件",
		"",
		"0) 冒頭宣言",
		"- 2〜3段落。",
		"- 『今いちばん揺れる時期』を当てる。迷いを減らす宣言をする。",
		"",
		"1) 二人の相性",
		"- 冒頭にキャッチコピーを1行入れる：<p><strong>相性の核：◯◯</strong></p>",
		"- “押したくなる人”と“間が必要な人”のように、相性を一言で分かる形に翻訳する。",
		"- 『2回会えている＝縁が動いている』を言い切る。",
		"- ただし『良い流れほど相手は一度間を置く』も言い切る。",
		"",
		"2) 7日以内の流れ",
		"- 3〜4段落。",
		"- 日数レンジ（3日〜7日、など）を必ず1回入れる。",
		"- 返事が来る/来ないを断言しない代わりに、“起きやすい変化”を描写する（気持ちが落ち着く/重みが抜ける/返信しやすくなる 等）。",
		"",
		"3) 行動指示（最重要）",
		"- 『一手』を1つに決め切る（複数案は禁止）。",
		"- その一手が“なぜ効くか”を、占いっぽい言葉で説明する（縁の流れ/重み/余白/間 など）。",
		"- ユーザーがコピペできる送信文面テンプレを <ul><li> で1つだけ（短め）。",
		"- 禁じ手を <ul><li> で2つだけ（責める文、追撃、連投など）。",
		"- ユーザーの感情に寄り添う1文を必ず入れる（不安で当然、など）。",
		"",
		"4) 吉・凶・一手",
		"- <ul>で『吉』『凶』『一手』を必ず3つ出す（この表記で）。",
		"- 『一手』はセクション3と完全一致（内容ブレ禁止）。",
		"",
		"5) CTA",
		"- 押し売り禁止。やさしく案内する。",
		"- 480円と980円について、それぞれ増える内容を <ul><li> で2つずつ。",
		"",
		"■MBTIの扱い",
		"- MBTIは“性格の言い換え補助”として使ってよい。",
		"- ただし本文での言及は最大1回。根拠として断言しない（『〜っぽい』程度）。",
		"",
		"■入力データ（これを材料にする）",
	}
	return strings.Join(append(lines, materialLines(it)...), "\n")
}

// buildPaid480 は480円版（1週間の流れ）の指示文書を組み立てる。
func buildPaid480(it *model.Intake) string {
	lines := []string{
		"【480円版（テキスト）】",
		"",
		"■文字数",
		"- 日本語で2000〜2500字。",
		"",
		"■狙い",
		"- これから7日間の流れを日単位で具体化し、攻め時と引き時をはっきりさせる。",
		"",
		"■構成（固定）",
		"1) 相性の核（短め：2〜3段落）",
		"2) 7日間の流れ（前半3日／後半4日に分けて描写）",
		"3) 攻め時・引き時（それぞれ1つずつ、理由つき）",
		"4) 具体的な一手（1つだけ）＋送信文テンプレ（1つ）",
		"5) 避けるべき落とし穴（2つ）",
		"6) 吉・凶・一手",
		"7) 980円版のご案内（短く、押し売りしない）",
		"",
		"■占いの出し方",
		"- 五行は“説明”しない。比喩として軽く。",
		"- バーナム効果：ユーザー側/相手側ともに最低3つずつ散らす。",
		"- 断言は避けるが、現実的な見立ては必ず出す（期待だけで濁さない）。",
		"- 『一手』は1つに決め切る。複数案は禁止。6)の『一手』は4)と完全一致させる。",
		"",
		"■入力（材料）",
	}
	return strings.Join(append(lines, materialLines(it)...), "\n")
}

// buildPaid980 は980円版（1ヶ月の運勢）の指示文書を組み立てる。
func buildPaid980(it *model.Intake) string {
	lines := []string{
		"【980円版（テキスト）】",
		"",
		"■文字数",
		"- 日本語で3500〜4500字。",
		"",
		"■狙い",
		"- 1ヶ月スパンの流れを“占いとして”語りつつ、分岐点・相手の本音が出やすいタイミング・落とし穴を具体化する。",
		"",
		"■構成（固定）",
		"1) 相性の深掘り（1000字前後）",
		"2) 1ヶ月の運勢（週ごと：第1週〜第4週）",
		"3) 相手の本音が出やすいタイミング（3パターン）",
		"4) 分岐点（2つ）と、その見極めサイン",
		"5) 具体的な一手（1つだけ）＋送信文テンプレ（1つ）",
		"6) 避けるべき落とし穴（3つ）",
		"7) 吉・凶・一手",
		"8) 1980円版のご案内（短く、押し売りしない）",
		"",
		"■占いの出し方",
		"- 五行は“説明”しない。比喩として軽く。",
		"- バーナム効果：ユーザー側/相手側ともに最低5つずつ散らす。",
		"- 断言は避けるが、現実的な見立ては必ず出す（期待だけで濁さない）。",
		"- 『一手』は1つに決め切る。複数案は禁止。7)の『一手』は5)と完全一致させる。",
		"",
		"■入力（材料）",
	}
	return strings.Join(append(lines, materialLines(it)...), "\n")
}

// buildPaid1980 は1980円版（3ヶ月の特別鑑定）の指示文書を組み立てる。
func buildPaid1980(it *model.Intake) string {
	lines := []string{
		"【1980円版（テキスト）】",
		"",
		"■文字数",
		"- 日本語で5000〜6000字。",
		"",
		"■狙い",
		"- 3ヶ月先までの縁の流れを月ごとに組み立て、関係の到達点と破綻リスクの両方を、決断に使える粒度で示す。",
		"",
		"■構成（固定）",
		"1) ふたりの縁の読み直し（これまでの流れの意味づけ：1000字前後）",
		"2) 3ヶ月の運勢（月ごと：第1月〜第3月、各月に山場と注意日を1つずつ）",
		"3) 相手の本音が出やすいタイミング（3パターン）",
		"4) 大きな分岐点（2つ）と、その見極めサイン",
		"5) 関係の到達点（良い着地／苦しい着地の両方を正直に）",
		"6) 具体的な一手（1つだけ）＋送信文テンプレ（1つ）",
		"7) 避けるべき落とし穴（3つ）",
		"8) 吉・凶・一手",
		"",
		"■占いの出し方",
		"- 五行は“説明”しない。比喩として軽く。",
		"- バーナム効果：ユーザー側/相手側ともに最低5つずつ散らす。",
		"- 断言は避けるが、現実的な見立ては必ず出す（期待だけで濁さない）。",
		"- 『一手』は1つに決め切る。複数案は禁止。8)の『一手』は6)と完全一致させる。",
		"",
		"■入力（材料）",
	}
	return strings.Join(append(lines, materialLines(it)...), "\n")
}
