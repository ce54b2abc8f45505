package schedule

import (
	"sort"

	"demeter/internal/attribute"
	"demeter/internal/models"
)

// LegendItem explains one color of the active color attribute.
type LegendItem struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// Legend lists the color map rows in option order; values missing from the
// options sort last by value.
func Legend(cfg models.AttributeConfig) []LegendItem {
	def := cfg.Definition()
	items := make([]LegendItem, 0, len(cfg.ValueColorMap))
	for value, color := range cfg.ValueColorMap {
		items = append(items, LegendItem{Value: value, Label: attribute.Label(value, def), Color: color})
	}
	rank := func(v string) int {
		if i := cfg.Options.Index(v); i >= 0 {
			return i
		}
		return len(cfg.Options)
	}
	sort.Slice(items, func(i, j int) bool {
		ri, rj := rank(items[i].Value), rank(items[j].Value)
		if ri != rj {
			return ri < rj
		}
		return items[i].Value < items[j].Value
	})
	return items
}
