package schedule

import (
	"demeter/internal/attribute"
	"demeter/internal/models"
)

// ParentOptions lists the tasks that may become the parent of taskID: every
// task outside taskID's own subtree. A zero taskID allows all tasks.
func ParentOptions(tasks []models.ProjectTask, taskID models.ID) attribute.Options {
	byID := make(map[models.ID]models.ProjectTask, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	var out attribute.Options
	for _, t := range tasks {
		if taskID != 0 && (t.ID == taskID || isDescendant(byID, t.ID, taskID)) {
			continue
		}
		out = append(out, attribute.Option{Label: t.TaskName, Value: t.ID.String()})
	}
	return out
}

// ParentLabels maps task ids to task names for rendering parent columns.
func ParentLabels(tasks []models.ProjectTask) map[string]string {
	out := make(map[string]string, len(tasks))
	for _, t := range tasks {
		out[t.ID.String()] = t.TaskName
	}
	return out
}
