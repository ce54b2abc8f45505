package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"demeter/internal/models"
	"demeter/internal/schedule"
)

func (a *app) tasksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task", "t"},
		Short:   "Work with a project's task tree",
		GroupID: "data",
	}
	cmd.AddCommand(a.tasksListCommand(), a.tasksShowCommand(), a.tasksCreateCommand(), a.tasksMoveCommand(), a.tasksReorderCommand())
	return cmd
}

func (a *app) tasksListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list PROJECT_ID",
		Short: "Print the task tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseIDArg(args[0], "project id")
			if err != nil {
				return err
			}
			tasks, err := a.client.Tasks(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(cmd.OutOrStdout(), tasks)
			}
			printTree(cmd.OutOrStdout(), tasks)
			return nil
		},
	}
}

func printTree(w io.Writer, tasks []models.ProjectTask) {
	children := map[string][]models.ProjectTask{}
	known := map[models.ID]bool{}
	for _, t := range tasks {
		known[t.ID] = true
	}
	for _, t := range tasks {
		key := ""
		if t.ParentID != nil && known[*t.ParentID] {
			key = t.ParentID.String()
		}
		children[key] = append(children[key], t)
	}
	var walk func(parent string, depth int)
	walk = func(parent string, depth int) {
		for _, t := range children[parent] {
			fmt.Fprintf(w, "%s%s  %s  [%s, order %s]\n", strings.Repeat("  ", depth), t.ID, t.TaskName, t.TaskType.Label(), deref(t.Order, "-"))
			walk(t.ID.String(), depth+1)
		}
	}
	walk("", 0)
}

func (a *app) tasksCreateCommand() *cobra.Command {
	var parent, start, end string
	var taskType int
	var attrs []string
	cmd := &cobra.Command{
		Use:   "create PROJECT_ID NAME",
		Short: "Create a task; --attr values are checked against the project's attributes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseIDArg(args[0], "project id")
			if err != nil {
				return err
			}
			p := models.CreateTaskParams{TaskName: args[1]}
			if parent != "" {
				id, err := parseIDArg(parent, "--parent")
				if err != nil {
					return err
				}
				p.ParentID = &id
			}
			if p.StartDateTime, err = optionalDateTime(start, "--start"); err != nil {
				return err
			}
			if p.EndDateTime, err = optionalDateTime(end, "--end"); err != nil {
				return err
			}
			if cmd.Flags().Changed("type") {
				tt := models.TaskType(taskType)
				p.TaskType = &tt
			}

			// omitted attributes keep their configured defaults
			form, err := a.client.TaskForm(cmd.Context(), projectID, nil)
			if err != nil {
				return err
			}
			for _, raw := range attrs {
				key, value := splitPair(raw, "")
				form.Values[key] = value
			}
			if p.CustomAttributes, err = a.client.EncodeAttributes(cmd.Context(), projectID, form); err != nil {
				return err
			}

			task, err := a.client.CreateTask(cmd.Context(), projectID, p)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(cmd.OutOrStdout(), task)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created task %s (%s)\n", task.TaskName, task.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "parent task id")
	cmd.Flags().StringVar(&start, "start", "", "start, YYYY-MM-DDTHH:mm:ss")
	cmd.Flags().StringVar(&end, "end", "", "end, YYYY-MM-DDTHH:mm:ss")
	cmd.Flags().IntVar(&taskType, "type", int(models.TaskTypeDefault), "1 task, 2 milestone, 3 checkpoint")
	cmd.Flags().StringArrayVar(&attrs, "attr", nil, "custom attribute as name=value, repeatable")
	return cmd
}

func optionalDateTime(raw, flag string) (*models.DateTime, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := models.ParseDateTime(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", flag, err)
	}
	return &d, nil
}

func (a *app) tasksMoveCommand() *cobra.Command {
	var target, position string
	cmd := &cobra.Command{
		Use:   "move PROJECT_ID TASK_ID",
		Short: "Drop a task before, after or under another task",
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
			targetID, err := parseIDArg(target, "--target")
			if err != nil {
				return err
			}
			pos, err := schedule.ParsePosition(position)
			if err != nil {
				return err
			}
			task, err := a.client.MoveTask(cmd.Context(), projectID, taskID, targetID, pos)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(cmd.OutOrStdout(), task)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "moved %s: parent %s, order %s\n", task.ID, deref(task.ParentID, "none"), deref(task.Order, "-"))
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "drop target task id")
	cmd.Flags().StringVar(&position, "position", string(schedule.PositionAfter), "before, after or child")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func (a *app) tasksReorderCommand() *cobra.Command {
	var parent string
	cmd := &cobra.Command{
		Use:   "reorder PROJECT_ID",
		Short: "Renumber sibling orders to 1..n",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseIDArg(args[0], "project id")
			if err != nil {
				return err
			}
			var parentID *models.ID
			if parent != "" {
				id, err := parseIDArg(parent, "--parent")
				if err != nil {
					return err
				}
				parentID = &id
			}
			tasks, err := a.client.ReorderTasks(cmd.Context(), projectID, parentID)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(cmd.OutOrStdout(), tasks)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renumbered %d tasks\n", len(tasks))
			return nil
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "parent task id; roots when empty")
	return cmd
}
