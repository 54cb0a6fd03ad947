// Package e2e runs the ingest pipeline and search engine over a generated recipe corpus.
package e2e

import (
	"fmt"
	"strings"

	"github.com/hyperjump/cookcut/internal/models"
	"github.com/hyperjump/cookcut/internal/recipeid"
)

// QueryTestCase is a keyword that must surface at least one of the expected recipes.
type QueryTestCase struct {
	Query             string
	ExpectedRecipeIDs []string
	Description       string
}

// Corpus holds generated recipes and the queries that must find them.
type Corpus struct {
	Recipes      []models.RawRecipe
	TestCases    []QueryTestCase
	TotalRecipes int
	TotalQueries int
}

type dish struct {
	title     string
	signature string
	method    string
}

var dishes = []dish{
	{"Saffron Risotto", "saffron", "Toast the rice in butter, then add warm stock one ladle at a time."},
	{"Lemongrass Curry", "lemongrass", "Pound the paste, fry it in coconut cream, then simmer the vegetables."},
	{"Tamarind Chutney", "tamarind", "Soak the pulp, strain it, and cook it down with jaggery."},
	{"Miso Glazed Eggplant", "miso", "Score the eggplant, brush with the glaze and roast until caramelised."},
	{"Harissa Chickpeas", "harissa", "Fry the chickpeas until crisp and toss them with the spice paste."},
	{"Pesto Gnocchi", "basil", "Boil the gnocchi until they float and toss them with the pesto."},
	{"Cardamom Buns", "cardamom", "Knead the dough, fill it with spiced butter and let it rise twice."},
	{"Chipotle Black Beans", "chipotle", "Simmer the beans with onion and smoked chillies until thick."},
	{"Fennel Slaw", "fennel", "Shave the bulbs thinly and dress them with lemon and olive oil."},
	{"Sumac Roast Chicken", "sumac", "Rub the chicken with the spice, roast it hot and rest it before carving."},
	{"Gochujang Noodles", "gochujang", "Cook the noodles and coat them in the chilli sauce with sesame."},
	{"Rhubarb Crumble", "rhubarb", "Stew the stalks with sugar and cover them with a buttery crumb."},
	{"Za'atar Flatbread", "zaatar", "Stretch the dough, spread it with herb oil and bake on a hot stone."},
	{"Paprika Goulash", "paprika", "Brown the beef, add onions and the spice and braise slowly."},
	{"Turmeric Lentils", "turmeric", "Rinse the lentils and simmer them with ginger until soft."},
	{"Wasabi Salmon", "wasabi", "Sear the fillets skin side down and finish with the green glaze."},
	{"Juniper Cabbage", "juniper", "Braise the shredded cabbage with berries and a splash of vinegar."},
	{"Anchovy Puttanesca", "anchovy", "Melt the fillets in oil, add tomatoes, olives and capers."},
	{"Pistachio Cake", "pistachio", "Grind the nuts with sugar, fold in eggs and bake until springy."},
	{"Tarragon Mussels", "tarragon", "Steam the mussels in wine and finish with cream and herbs."},
}

// BuildCorpus returns three variants of every dish. Variant instructions grow long enough
// to be split into several overlapping chunks.
func BuildCorpus() *Corpus {
	recipes := buildRecipes(3)
	cases := buildQueryTestCases(recipes)
	return &Corpus{
		Recipes:      recipes,
		TestCases:    cases,
		TotalRecipes: len(recipes),
		TotalQueries: len(cases),
	}
}

func buildRecipes(variants int) []models.RawRecipe {
	recipes := make([]models.RawRecipe, 0, len(dishes)*variants)
	for v := 0; v < variants; v++ {
		for _, d := range dishes {
			row := len(recipes)
			title := d.title
			if v > 0 {
				title = fmt.Sprintf("%s %d", d.title, v+1)
			}
			var steps []string
			for i := 0; i <= v*4; i++ {
				steps = append(steps, fmt.Sprintf("Step %d. %s", i+1, d.method))
			}
			recipes = append(recipes, models.RawRecipe{
				Title:              title,
				Ingredients:        []string{"1 tsp " + d.signature, "2 cups water", "salt to taste"},
				CleanedIngredients: []string{d.signature, "water", "salt"},
				Instructions:       strings.Join(steps, " "),
				ImageName:          strings.ToLower(strings.ReplaceAll(title, " ", "-")),
				Row:                row,
			})
		}
	}
	return recipes
}

func buildQueryTestCases(recipes []models.RawRecipe) []QueryTestCase {
	cases := make([]QueryTestCase, 0, len(dishes))
	for _, d := range dishes {
		var ids []string
		for _, r := range recipes {
			if containsSignature(r, d.signature) {
				ids = append(ids, recipeid.RecipeID(r.Title, r.Row))
			}
		}
		cases = append(cases, QueryTestCase{
			Query:             d.signature,
			ExpectedRecipeIDs: ids,
			Description:       "ingredient " + d.signature,
		})
	}
	return cases
}

func containsSignature(r models.RawRecipe, signature string) bool {
	for _, ing := range r.PreferredIngredients() {
		if strings.Contains(strings.ToLower(ing), signature) {
			return true
		}
	}
	return false
}
