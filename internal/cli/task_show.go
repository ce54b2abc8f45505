package cli

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"demeter/internal/attribute"
	"demeter/internal/models"
	"demeter/internal/schedule"
)

// taskDetail is the --json shape of tasks show.
type taskDetail struct {
	Task          models.ProjectTask `json:"task"`
	ParentName    string             `json:"parentName,omitempty"`
	Attributes    map[string]string  `json:"attributes"`
	ReadOnly      map[string]string  `json:"readOnly,omitempty"`
	ParentOptions attribute.Options  `json:"parentOptions"`
}

func (a *app) tasksShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show PROJECT_ID TASK_ID",
		Short: "Show a task with its attribute labels and possible parents",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseIDArg(args[0], "project id")
			if err != nil {
				return err
			}
			taskID, err := parseIDArg(args[1], "task id")
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			tasks, err := a.client.Tasks(ctx, projectID)
			if err != nil {
				return err
			}
			var task *models.ProjectTask
			for i := range tasks {
				if tasks[i].ID == taskID {
					task = &tasks[i]
					break
				}
			}
			if task == nil {
				return fmt.Errorf("task %s not found in project %s", taskID, projectID)
			}
			configs, err := a.client.AttributeConfigs(ctx, projectID)
			if err != nil {
				return err
			}
			form, err := a.client.TaskForm(ctx, projectID, task)
			if err != nil {
				return err
			}

			detail := taskDetail{
				Task:          *task,
				Attributes:    map[string]string{},
				ReadOnly:      form.ReadOnly,
				ParentOptions: schedule.ParentOptions(tasks, task.ID),
			}
			if task.ParentID != nil {
				detail.ParentName = schedule.ParentLabels(tasks)[task.ParentID.String()]
			}
			for _, cfg := range configs {
				if v, ok := form.Values[cfg.AttributeName]; ok {
					detail.Attributes[cfg.AttributeName] = displayValue(v, cfg.AttributeType)
				}
			}
			if a.asJSON {
				return a.printJSON(cmd.OutOrStdout(), detail)
			}
			printDetail(cmd.OutOrStdout(), detail, configs)
			return nil
		},
	}
}

// displayValue renders a decoded form value.
func displayValue(v attribute.FormValue, t attribute.Type) string {
	switch v := v.(type) {
	case time.Time:
		if t == attribute.TypeDatetime {
			return v.Format(attribute.DatetimeLayout)
		}
		return v.Format(attribute.DateLayout)
	case attribute.UserRef:
		return v.Label
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func printDetail(w io.Writer, d taskDetail, configs []models.AttributeConfig) {
	t := d.Task
	fmt.Fprintf(w, "%s  %s  [%s]\n", t.ID, t.TaskName, t.TaskType.Label())
	fmt.Fprintf(w, "parent: %s\n", orDash(d.ParentName))
	fmt.Fprintf(w, "start:  %s\n", deref(t.StartDateTime, "-"))
	fmt.Fprintf(w, "end:    %s\n", deref(t.EndDateTime, "-"))
	for _, cfg := range configs {
		fmt.Fprintf(w, "%s: %s\n", cfg.AttributeLabel, orDash(d.Attributes[cfg.AttributeName]))
	}
	keys := make([]string, 0, len(d.ReadOnly))
	for k := range d.ReadOnly {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s (read-only): %s\n", k, d.ReadOnly[k])
	}
	fmt.Fprintf(w, "possible parents: %d\n", len(d.ParentOptions))
}
