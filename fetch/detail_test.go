package fetch

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const twPokemonDetail = `<!DOCTYPE html>
<html><body>
<h1 class="pageHeader cardDetail"><span class="evolveMarker">1進化</span>皮卡丘ex</h1>
<section class="imageColumn"><img src="https://asia.pokemon-card.com/tw/images/12345.png"></section>
<p class="mainInfomation">HP <span class="number">190</span> <span class="type">雷</span> <img src="/tw/images/energy/lightning.png"></p>
<div class="skillInformation">
	<h3 class="commonHeader">特性</h3>
	<div class="skill">
		<span class="skillName">充電</span>
		<p class="skillEffect">在自己的回合時可使用1次。從自己的牌庫選擇1張基本【雷】能量卡，附於這隻寶可夢身上。</p>
	</div>
</div>
<div class="skillInformation">
	<h3 class="commonHeader">招式</h3>
	<div class="skill">
		<span class="skillName">十萬伏特</span>
		<span class="skillCost"><img src="/tw/images/energy/lightning.png"><img src="/tw/images/energy/lightning.png"><img src="/tw/images/energy/colorless.png"></span>
		<span class="skillDamage">120+</span>
		<p class="skillEffect">擲硬幣1次，若為正面，則增加30點傷害。</p>
	</div>
</div>
<div class="subInformation"><table><tr>
	<td class="weakpoint"><img src="/tw/images/energy/fighting.png">×2</td>
	<td class="resist">--</td>
	<td class="escape"><img src="/tw/images/energy/colorless.png"></td>
</tr></table></div>
<section class="expansionColumn">
	<span class="expansionSymbol"><img src="/tw/images/expansion/sv8.png"></span>
	<span class="alpha">H</span>
	<span class="collectorNumber">055/106</span>
</section>
<section class="expansionLinkColumn"><a href="/tw/card-search/list/?expansionCodes=SV8">超電磁渦流</a></section>
<div class="illustrator">插畫家 <a href="#">Naoki Saito</a></div>
<div class="extraInformation">
	<h3>No.025 鼠寶可夢</h3>
	<p class="size">身高 <span class="value">0.4 m</span> 體重 <span class="value">6.0 kg</span></p>
	<p class="discription">居住在森林的寶可夢。頰囊可以儲存電力。</p>
</div>
</body></html>`

const twTrainerDetail = `<!DOCTYPE html>
<html><body>
<h1 class="pageHeader cardDetail">博士的研究</h1>
<section class="imageColumn"><img src="/tw/images/67890.png"></section>
<div class="skillInformation">
	<h3 class="commonHeader">支援者</h3>
	<div class="skill">
		<p class="skillEffect">將自己的手牌全部棄掉，從牌庫抽出7張卡。</p>
	</div>
</div>
<section class="expansionColumn">
	<span class="alpha">F</span>
	<span class="collectorNumber">196/172</span>
</section>
</body></html>`

const twEnergyDetail = `<!DOCTYPE html>
<html><body>
<h1 class="pageHeader cardDetail">基本雷能量</h1>
<div class="skillInformation">
	<h3 class="commonHeader">能量</h3>
	<div class="skill">
		<p class="skillEffect">提供1個【雷】能量。</p>
	</div>
</div>
</body></html>`

func parseTW(t *testing.T, html string, cardID int) *Card {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	card, err := parseDetailTW(cardID, "https://asia.pokemon-card.com/tw/card-search/detail/12345/", doc)
	if err != nil {
		t.Fatalf("parseDetailTW: %v", err)
	}
	return card
}

func strVal(t *testing.T, field string, got *string, want string) {
	t.Helper()
	if got == nil {
		t.Errorf("%s = nil, want %q", field, want)
		return
	}
	if *got != want {
		t.Errorf("%s = %q, want %q", field, *got, want)
	}
}

func TestParseDetailTWPokemon(t *testing.T) {
	card := parseTW(t, twPokemonDetail, 12345)

	if card.Name != "皮卡丘ex" {
		t.Errorf("Name = %q, want 皮卡丘ex", card.Name)
	}
	strVal(t, "EvolveMarker", card.EvolveMarker, "1進化")
	if card.CardType != TypePokemon {
		t.Errorf("CardType = %q, want pokemon", card.CardType)
	}
	if card.HP == nil || *card.HP != 190 {
		t.Errorf("HP = %v, want 190", card.HP)
	}
	strVal(t, "Element", card.Element, "雷")
	strVal(t, "ElementCode", card.ElementCode, "lightning")
	strVal(t, "ImageURL", card.ImageURL, "https://asia.pokemon-card.com/tw/images/12345.png")

	if len(card.Skills) != 2 {
		t.Fatalf("got %d skills, want 2", len(card.Skills))
	}
	ability := card.Skills[0]
	if ability.Idx != 0 {
		t.Errorf("first skill idx = %d, want 0", ability.Idx)
	}
	strVal(t, "ability kind", ability.Kind, "特性")
	strVal(t, "ability name", ability.Name, "充電")
	if len(ability.Cost) != 0 {
		t.Errorf("ability cost = %v, want empty", ability.Cost)
	}
	if ability.Damage != nil {
		t.Errorf("ability damage = %q, want nil", *ability.Damage)
	}
	if ability.EffectTextNorm == nil {
		t.Error("ability EffectTextNorm missing")
	}

	attack := card.Skills[1]
	if attack.Idx != 1 {
		t.Errorf("second skill idx = %d, want 1", attack.Idx)
	}
	strVal(t, "attack kind", attack.Kind, "招式")
	strVal(t, "attack name", attack.Name, "十萬伏特")
	strVal(t, "attack damage", attack.Damage, "120+")
	wantCost := []string{"lightning", "lightning", "colorless"}
	if len(attack.Cost) != len(wantCost) {
		t.Fatalf("attack cost = %v, want %v", attack.Cost, wantCost)
	}
	for i := range wantCost {
		if attack.Cost[i] != wantCost[i] {
			t.Errorf("attack cost[%d] = %q, want %q", i, attack.Cost[i], wantCost[i])
		}
	}

	strVal(t, "WeaknessCode", card.WeaknessCode, "fighting")
	strVal(t, "WeaknessValue", card.WeaknessValue, "×2")
	if card.ResistanceCode != nil || card.ResistanceValue != nil {
		t.Errorf("resistance = %v/%v, want nil (-- placeholder)", card.ResistanceCode, card.ResistanceValue)
	}
	if card.RetreatCost == nil || *card.RetreatCost != 1 {
		t.Errorf("RetreatCost = %v, want 1", card.RetreatCost)
	}

	strVal(t, "RegulationMark", card.RegulationMark, "H")
	strVal(t, "CollectorNumber", card.CollectorNumber, "055/106")
	strVal(t, "ExpansionSymbolURL", card.ExpansionSymbolURL, "/tw/images/expansion/sv8.png")
	strVal(t, "ExpansionCode", card.ExpansionCode, "SV8")
	strVal(t, "ExpansionName", card.ExpansionName, "超電磁渦流")
	strVal(t, "Illustrator", card.Illustrator, "Naoki Saito")

	if card.PokedexNo == nil || *card.PokedexNo != 25 {
		t.Errorf("PokedexNo = %v, want 25", card.PokedexNo)
	}
	if card.HeightM == nil || *card.HeightM != 0.4 {
		t.Errorf("HeightM = %v, want 0.4", card.HeightM)
	}
	if card.WeightKg == nil || *card.WeightKg != 6.0 {
		t.Errorf("WeightKg = %v, want 6.0", card.WeightKg)
	}
	if card.Description == nil {
		t.Error("Description missing")
	}
	if card.FetchedAt == "" {
		t.Error("FetchedAt missing")
	}
}

func TestParseDetailTWTrainer(t *testing.T) {
	card := parseTW(t, twTrainerDetail, 67890)
	if card.CardType != TypeTrainer {
		t.Errorf("CardType = %q, want trainer", card.CardType)
	}
	if card.HP != nil {
		t.Errorf("HP = %v, want nil", card.HP)
	}
	if card.EvolveMarker != nil {
		t.Errorf("EvolveMarker = %v, want nil", card.EvolveMarker)
	}
	strVal(t, "RegulationMark", card.RegulationMark, "F")
	if len(card.Skills) != 1 {
		t.Fatalf("got %d skills, want 1", len(card.Skills))
	}
	strVal(t, "kind", card.Skills[0].Kind, "支援者")
}

func TestParseDetailTWEnergy(t *testing.T) {
	card := parseTW(t, twEnergyDetail, 55555)
	if card.CardType != TypeEnergy {
		t.Errorf("CardType = %q, want energy", card.CardType)
	}
}

func TestParseDetailTWUnknown(t *testing.T) {
	const html = `<html><body>
	<h1 class="pageHeader cardDetail">謎之卡</h1>
	<div class="skillInformation"><h3 class="commonHeader">???</h3>
	<div class="skill"><p class="skillEffect">???</p></div></div>
	</body></html>`
	card := parseTW(t, html, 1)
	if card.CardType != TypeUnknown {
		t.Errorf("CardType = %q, want unknown", card.CardType)
	}
}

func TestParseDetailTWMissingHeading(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<html><body><p>nope</p></body></html>"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := parseDetailTW(1, "", doc); err == nil {
		t.Error("expected parse error for page without a heading")
	}
}
