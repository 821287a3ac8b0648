// Package fortune は鑑定生成の中核パイプラインを提供する。
// intakeの正規化、モード別プロンプトの組み立て、生成APIの呼び出し、
// 出力形の正規化までを担う。
package fortune

import (
	"github.com/uranaibaya/baya/internal/element"
	"github.com/uranaibaya/baya/internal/model"
)

// deref はnull許容フィールドを空文字列に畳む。シード構築専用。
func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// UserSeed は本人の気を導出するシードを構築する。
// 使うのは生年月日・出生時刻・出生地のみ。MBTIは文体調整の入力であって
// 決定論のシードには含めない。
func UserSeed(u *model.Person) string {
	if u == nil {
		u = &model.Person{}
	}
	return "user|" + deref(u.Birthday) + "|" + deref(u.BirthTime) + "|" + deref(u.BirthPrefecture)
}

// PartnerSeed はお相手様の気を導出するシードを構築する。
// 生年月日が無い場合は年代を代替キーにする。
func PartnerSeed(p *model.Partner) string {
	if p == nil {
		p = &model.Partner{}
	}
	key := deref(p.Birthday)
	if key == "" {
		key = deref(p.AgeRange)
	}
	return "partner|" + key + "|" + deref(p.BirthTime)
}

// Normalize はintakeのサブ構造を既定値で埋め、derivedのelementsを
// 未計算の場合にだけ導出して返す。冪等：二度呼んでも結果は変わらず、
// 計算済みのelementsは事実が書き換わっていても上書きしない
// （同じ人→同じ鑑定の土台、という安定性を優先する）。
func Normalize(it *model.Intake) *model.Intake {
	if it == nil {
		it = &model.Intake{}
	}
	if it.User == nil {
		it.User = &model.Person{}
	}
	if it.Partner == nil {
		it.Partner = &model.Partner{}
	}
	if it.Concern == nil {
		it.Concern = &model.Concern{}
	}
	if it.Derived == nil {
		it.Derived = &model.Derived{}
	}

	if it.Derived.UserElements == nil {
		pair := element.Derive(UserSeed(it.User))
		it.Derived.UserElements = &pair
	}
	if it.Derived.PartnerElements == nil {
		pair := element.Derive(PartnerSeed(it.Partner))
		it.Derived.PartnerElements = &pair
	}

	return it
}
