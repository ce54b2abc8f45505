// Package schedule projects project tasks onto a Gantt-style timeline:
// resource lanes, span events, point markers, columns and a color legend.
package schedule

import (
	"fmt"

	"demeter/internal/models"
)

// View is the user's presentation choice for one project.
type View struct {
	// ColorAttribute is the attributeName used to color tasks; empty means none.
	ColorAttribute string `json:"colorAttribute,omitempty"`
	// Columns lists the selected column keys; nil means the defaults.
	Columns []string `json:"columns,omitempty"`
}

// ColorCapable reports whether cfg can drive task colors.
func ColorCapable(cfg models.AttributeConfig) bool {
	return cfg.AttributeType.HasOptions() && len(cfg.ValueColorMap) > 0
}

// SetColorAttribute selects name as the color source. Passing "" clears it.
func (v *View) SetColorAttribute(name string, configs []models.AttributeConfig) error {
	if name == "" {
		v.ColorAttribute = ""
		return nil
	}
	cfg, ok := findConfig(configs, name)
	if !ok {
		return fmt.Errorf("attribute %q not found", name)
	}
	if !ColorCapable(cfg) {
		return fmt.Errorf("attribute %q cannot color tasks: it needs a select or user type and a value color map", name)
	}
	v.ColorAttribute = name
	return nil
}

// Reconcile clears a color selection whose config lost its color map. A
// selection whose config is not in configs is left alone. It reports
// whether the view changed.
func (v *View) Reconcile(configs []models.AttributeConfig) bool {
	if v.ColorAttribute == "" {
		return false
	}
	cfg, ok := findConfig(configs, v.ColorAttribute)
	if !ok {
		return false
	}
	if len(cfg.ValueColorMap) == 0 {
		v.ColorAttribute = ""
		return true
	}
	return false
}

func (v View) colorConfig(configs []models.AttributeConfig) (models.AttributeConfig, bool) {
	if v.ColorAttribute == "" {
		return models.AttributeConfig{}, false
	}
	cfg, ok := findConfig(configs, v.ColorAttribute)
	if !ok || !ColorCapable(cfg) {
		return models.AttributeConfig{}, false
	}
	return cfg, true
}

func findConfig(configs []models.AttributeConfig, name string) (models.AttributeConfig, bool) {
	for _, c := range configs {
		if c.AttributeName == name {
			return c, true
		}
	}
	return models.AttributeConfig{}, false
}
