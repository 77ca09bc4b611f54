package fetch

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

const jpPokemonDetail = `<!DOCTYPE html>
<html><body>
<h1 class="Heading1">ピカチュウ</h1>
<img class="fit" src="/assets/images/card/45678.jpg">
<div class="subtext"><img class="img-regulation" src="/images/sv2a.gif" alt="SV2a">110 / 165</div>
<section class="SubSection"><a class="Link">ポケモンカード151</a></section>
<div class="TopInfo">
	<span class="type">たね</span>
	<span class="hp">HP</span><span class="hp-num">60</span>
	<span class="hp-type">タイプ</span><span class="icon-electric icon"></span>
</div>
<div class="RightBox-inner">
	<h2>ワザ</h2>
	<h4><span class="icon-electric icon"></span><span class="icon-none icon"></span>でんこうせっか<span class="f_right">10+</span></h4>
	<p>コインを1回投げオモテなら、10ダメージ追加。</p>
	<table>
		<tr><th>弱点</th><th>抵抗力</th><th>にげる</th></tr>
		<tr>
			<td><span class="icon-fighting icon"></span>×2</td>
			<td>--</td>
			<td><span class="icon-none icon"></span></td>
		</tr>
	</table>
</div>
<div class="card">
	<h4>No.025 ねずみポケモン</h4>
	<p>高さ：0.4 m、重さ：6.0 kg</p>
	<p>森にすむポケモン。ほっぺたの電気袋に電気をためる。</p>
</div>
<div class="author"><a href="#">Mitsuhiro Arita</a></div>
</body></html>`

const jpTrainerDetail = `<!DOCTYPE html>
<html><body>
<h1 class="Heading1">博士の研究</h1>
<div class="RightBox-inner">
	<h2>サポート</h2>
	<h4>博士の研究</h4>
	<p>自分の手札をすべてトラッシュし、山札を7枚引く。</p>
</div>
</body></html>`

func parseJP(t *testing.T, html string, cardID int) *Card {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	card, err := parseDetailJP(cardID, "https://www.pokemon-card.com/card-search/details.php/card/45678/regu/ALL", doc)
	if err != nil {
		t.Fatalf("parseDetailJP: %v", err)
	}
	return card
}

func TestParseDetailJPPokemon(t *testing.T) {
	card := parseJP(t, jpPokemonDetail, 45678)

	if card.Name != "ピカチュウ" {
		t.Errorf("Name = %q, want ピカチュウ", card.Name)
	}
	if card.CardType != TypePokemon {
		t.Errorf("CardType = %q, want pokemon", card.CardType)
	}
	if card.HP == nil || *card.HP != 60 {
		t.Errorf("HP = %v, want 60", card.HP)
	}
	strVal(t, "EvolveMarker", card.EvolveMarker, "たね")
	// electric maps to the shared lightning code.
	strVal(t, "ElementCode", card.ElementCode, "lightning")
	strVal(t, "ImageURL", card.ImageURL, "https://www.pokemon-card.com/assets/images/card/45678.jpg")
	strVal(t, "ExpansionCode", card.ExpansionCode, "SV2a")
	strVal(t, "CollectorNumber", card.CollectorNumber, "110/165")
	strVal(t, "ExpansionName", card.ExpansionName, "ポケモンカード151")
	if card.RegulationMark != nil {
		t.Errorf("RegulationMark = %q, want nil (JP pages have none)", *card.RegulationMark)
	}

	if len(card.Skills) != 1 {
		t.Fatalf("got %d skills, want 1", len(card.Skills))
	}
	sk := card.Skills[0]
	strVal(t, "kind", sk.Kind, "ワザ")
	strVal(t, "name", sk.Name, "でんこうせっか")
	strVal(t, "damage", sk.Damage, "10+")
	wantCost := []string{"lightning", "colorless"}
	if len(sk.Cost) != len(wantCost) {
		t.Fatalf("cost = %v, want %v", sk.Cost, wantCost)
	}
	for i := range wantCost {
		if sk.Cost[i] != wantCost[i] {
			t.Errorf("cost[%d] = %q, want %q", i, sk.Cost[i], wantCost[i])
		}
	}
	if sk.Effect == nil || !strings.Contains(*sk.Effect, "コインを1回投げ") {
		t.Errorf("effect = %v, want coin-flip text", sk.Effect)
	}

	strVal(t, "WeaknessCode", card.WeaknessCode, "fighting")
	strVal(t, "WeaknessValue", card.WeaknessValue, "×2")
	if card.ResistanceCode != nil || card.ResistanceValue != nil {
		t.Errorf("resistance = %v/%v, want nil", card.ResistanceCode, card.ResistanceValue)
	}
	if card.RetreatCost == nil || *card.RetreatCost != 1 {
		t.Errorf("RetreatCost = %v, want 1", card.RetreatCost)
	}

	if card.PokedexNo == nil || *card.PokedexNo != 25 {
		t.Errorf("PokedexNo = %v, want 25", card.PokedexNo)
	}
	if card.HeightM == nil || *card.HeightM != 0.4 {
		t.Errorf("HeightM = %v, want 0.4", card.HeightM)
	}
	if card.WeightKg == nil || *card.WeightKg != 6.0 {
		t.Errorf("WeightKg = %v, want 6.0", card.WeightKg)
	}
	if card.Description == nil || !strings.Contains(*card.Description, "森にすむ") {
		t.Errorf("Description = %v, want habitat text", card.Description)
	}
	strVal(t, "Illustrator", card.Illustrator, "Mitsuhiro Arita")
}

func TestParseDetailJPTrainer(t *testing.T) {
	card := parseJP(t, jpTrainerDetail, 999)
	if card.CardType != TypeTrainer {
		t.Errorf("CardType = %q, want trainer", card.CardType)
	}
	if len(card.Skills) != 1 {
		t.Fatalf("got %d skills, want 1", len(card.Skills))
	}
	strVal(t, "kind", card.Skills[0].Kind, "サポート")
}

func TestEnergyCodeFromIconClass(t *testing.T) {
	cases := map[string]string{
		`<span class="icon-electric icon"></span>`: "lightning",
		`<span class="icon-none icon"></span>`:     "colorless",
		`<span class="icon-grass icon"></span>`:    "grass",
		`<span class="icon icon-dark"></span>`:     "dark",
	}
	for html, want := range cases {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			t.Fatal(err)
		}
		got := energyCodeFromIconClass(doc.Find("span").First())
		if got == nil || *got != want {
			t.Errorf("%s -> %v, want %q", html, got, want)
		}
	}
}
