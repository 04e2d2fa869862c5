// Package collection groups saved cards into generation buckets.
package collection

import "serwer-kart/internal/models"

type Generation struct {
	Label string
	First int
	Last  int
}

// Generations are ordered and non-overlapping. Indexes outside every range,
// including 0, land in the last one.
var Generations = []Generation{
	{Label: "gen1", First: 1, Last: 151},
	{Label: "gen2", First: 152, Last: 251},
	{Label: "gen3", First: 252, Last: 386},
	{Label: "gen4", First: 387, Last: 493},
	{Label: "gen5", First: 494, Last: 649},
	{Label: "gen6", First: 650, Last: 721},
	{Label: "gen7", First: 722, Last: 809},
	{Label: "gen8", First: 810, Last: 905},
}

func GenerationOf(catalogIndex int) string {
	for _, g := range Generations {
		if catalogIndex >= g.First && catalogIndex <= g.Last {
			return g.Label
		}
	}
	return Generations[len(Generations)-1].Label
}

// Grouped always carries every label, with an empty list for unused buckets.
type Grouped map[string][]models.Card

// Group buckets cards by catalog index, keeping their input order.
func Group(cards []models.Card) Grouped {
	grouped := make(Grouped, len(Generations))
	for _, g := range Generations {
		grouped[g.Label] = []models.Card{}
	}
	for _, card := range cards {
		label := GenerationOf(card.CatalogIndex)
		grouped[label] = append(grouped[label], card)
	}
	return grouped
}
