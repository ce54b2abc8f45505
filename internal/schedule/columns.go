package schedule

import (
	"strings"

	"demeter/internal/models"
)

const (
	ColumnTitle         = "title"
	ColumnStartDateTime = "startDateTime"
	ColumnEndDateTime   = "endDateTime"
	ColumnTaskType      = "taskType"

	attrPrefix  = "ca."
	labelSuffix = "Label"
)

// Column is one selectable column of the resource area.
type Column struct {
	Key            string `json:"key"`
	Label          string `json:"label"`
	Locked         bool   `json:"locked,omitempty"`
	DefaultVisible bool   `json:"defaultVisible"`
	// Field is the extended prop the cell renders.
	Field string `json:"field"`
}

// AttributeKey is the column and extended prop key of a custom attribute.
func AttributeKey(name string) string {
	return attrPrefix + name
}

// DisplayField maps a column key to the extended prop holding its display
// text: labels for task types and custom attributes, the raw key otherwise.
func DisplayField(key string) string {
	if key == ColumnTaskType || strings.HasPrefix(key, attrPrefix) {
		return key + labelSuffix
	}
	return key
}

// AvailableColumns lists every column in display order. Only the title and
// the start and end columns are visible until a selection is made.
func AvailableColumns(configs []models.AttributeConfig) []Column {
	cols := []Column{
		{Key: ColumnTitle, Label: "Task", Locked: true, DefaultVisible: true},
		{Key: ColumnStartDateTime, Label: "Start", DefaultVisible: true},
		{Key: ColumnEndDateTime, Label: "End", DefaultVisible: true},
		{Key: ColumnTaskType, Label: "Type"},
	}
	for _, cfg := range configs {
		cols = append(cols, Column{Key: AttributeKey(cfg.AttributeName), Label: cfg.AttributeLabel})
	}
	for i := range cols {
		cols[i].Field = DisplayField(cols[i].Key)
	}
	return cols
}

// VisibleColumns resolves the selection against the available columns. The
// title column is always first; unknown keys are ignored.
func (v View) VisibleColumns(configs []models.AttributeConfig) []Column {
	available := AvailableColumns(configs)
	selected := map[string]bool{}
	for _, k := range v.Columns {
		selected[k] = true
	}

	var out []Column
	for _, col := range available {
		switch {
		case col.Locked:
			out = append(out, col)
		case v.Columns == nil && col.DefaultVisible:
			out = append(out, col)
		case selected[col.Key]:
			out = append(out, col)
		}
	}
	return out
}
