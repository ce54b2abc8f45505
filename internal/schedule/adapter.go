package schedule

import (
	"demeter/internal/attribute"
	"demeter/internal/models"
)

const (
	// NeutralColor paints events without a resolved color.
	NeutralColor = "rgba(0,0,0,0.57)"
	// CheckpointColor is the default checkpoint marker color.
	CheckpointColor = "green"
	// MilestoneStatus is the status every milestone marker carries.
	MilestoneStatus = "Success"
)

// Resource is one lane of the timeline.
type Resource struct {
	ID            string         `json:"id"`
	Title         string         `json:"title"`
	ParentID      string         `json:"parentId,omitempty"`
	ExtendedProps map[string]any `json:"extendedProps"`
}

// Event is a start–end span on a resource lane.
type Event struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Color      string          `json:"color"`
	Start      models.DateTime `json:"start"`
	End        models.DateTime `json:"end"`
	ResourceID string          `json:"resourceId"`
}

// Milestone is a point marker attached to the parent lane.
type Milestone struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Time       models.DateTime `json:"time"`
	Status     string          `json:"status"`
	Color      string          `json:"color,omitempty"`
	ResourceID string          `json:"resourceId"`
}

// Checkpoint is a point marker attached to the parent lane.
type Checkpoint struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Time       models.DateTime `json:"time"`
	Color      string          `json:"color"`
	ResourceID string          `json:"resourceId"`
}

// Model is everything a timeline needs to render one project.
type Model struct {
	Resources   []Resource   `json:"resources"`
	Events      []Event      `json:"events"`
	Milestones  []Milestone  `json:"milestones"`
	Checkpoints []Checkpoint `json:"checkpoints"`
	Columns     []Column     `json:"columns"`
	Legend      []LegendItem `json:"legend"`
}

// Build partitions tasks by type and resolves colors, props and columns.
// Task order is kept as given.
func Build(tasks []models.ProjectTask, configs []models.AttributeConfig, view View) Model {
	m := Model{
		Resources:   []Resource{},
		Events:      []Event{},
		Milestones:  []Milestone{},
		Checkpoints: []Checkpoint{},
		Columns:     view.VisibleColumns(configs),
		Legend:      []LegendItem{},
	}
	colorCfg, coloring := view.colorConfig(configs)
	if coloring {
		m.Legend = Legend(colorCfg)
	}
	color := func(t models.ProjectTask) string {
		if !coloring {
			return ""
		}
		return ColorFor(t, colorCfg)
	}

	defs := models.Definitions(configs)
	parents := ParentLabels(tasks)
	for _, t := range tasks {
		id := t.ID.String()
		switch t.TaskType {
		case models.TaskTypeMilestone:
			if t.StartDateTime == nil {
				continue
			}
			m.Milestones = append(m.Milestones, Milestone{
				ID:         id,
				Title:      t.TaskName,
				Time:       *t.StartDateTime,
				Status:     MilestoneStatus,
				Color:      color(t),
				ResourceID: parentKey(t),
			})
		case models.TaskTypeCheckpoint:
			if t.StartDateTime == nil {
				continue
			}
			c := color(t)
			if c == "" {
				c = CheckpointColor
			}
			m.Checkpoints = append(m.Checkpoints, Checkpoint{
				ID:         id,
				Title:      t.TaskName,
				Time:       *t.StartDateTime,
				Color:      c,
				ResourceID: parentKey(t),
			})
		default:
			m.Resources = append(m.Resources, Resource{
				ID:            id,
				Title:         t.TaskName,
				ParentID:      parentKey(t),
				ExtendedProps: extendedProps(t, configs, defs, parents),
			})
			if ev, ok := spanEvent(t, color(t)); ok {
				m.Events = append(m.Events, ev)
			}
		}
	}
	return m
}

func spanEvent(t models.ProjectTask, color string) (Event, bool) {
	if t.StartDateTime == nil {
		return Event{}, false
	}
	start := *t.StartDateTime
	end := start
	if t.EndDateTime != nil && !t.EndDateTime.Before(start.Time) {
		end = *t.EndDateTime
	}
	if color == "" {
		color = NeutralColor
	}
	return Event{
		ID:         t.ID.String(),
		Title:      t.TaskName,
		Color:      color,
		Start:      start,
		End:        end,
		ResourceID: t.ID.String(),
	}, true
}

// ColorFor looks up the task's encoded value in cfg's color map.
func ColorFor(t models.ProjectTask, cfg models.AttributeConfig) string {
	raw, ok := t.CustomAttributes.Get(cfg.AttributeName)
	if !ok {
		return ""
	}
	return cfg.ValueColorMap[raw]
}

func parentKey(t models.ProjectTask) string {
	if t.ParentID == nil {
		return ""
	}
	return t.ParentID.String()
}

func extendedProps(t models.ProjectTask, configs []models.AttributeConfig, defs []attribute.Definition, parents map[string]string) map[string]any {
	props := map[string]any{
		"order":         t.Order,
		"taskType":      int(t.TaskType),
		"taskTypeLabel": t.TaskType.Label(),
		"startDate":     dateOnly(t.StartDateTime),
		"endDate":       dateOnly(t.EndDateTime),
		"parentId":      parentKey(t),
		"parentLabel":   parents[parentKey(t)],
	}
	if t.StartDateTime != nil {
		props[ColumnStartDateTime] = t.StartDateTime.Format(models.DateLayout)
	}
	if t.EndDateTime != nil {
		props[ColumnEndDateTime] = t.EndDateTime.Format(models.DateLayout)
	}
	for _, cfg := range configs {
		key := AttributeKey(cfg.AttributeName)
		raw, ok := t.CustomAttributes.Get(cfg.AttributeName)
		if !ok {
			props[key] = nil
			props[key+labelSuffix] = ""
			continue
		}
		props[key] = raw
		props[key+labelSuffix] = attribute.Label(raw, cfg.Definition())
	}
	// keys without a config are shown as stored
	for _, name := range attribute.UnknownKeys(t.CustomAttributes, defs) {
		key := AttributeKey(name)
		v := t.CustomAttributes[name]
		if v == nil {
			props[key] = nil
			props[key+labelSuffix] = ""
			continue
		}
		props[key] = *v
		props[key+labelSuffix] = *v
	}
	return props
}

func dateOnly(d *models.DateTime) string {
	if d == nil {
		return ""
	}
	return d.Format(models.DateLayout)
}
