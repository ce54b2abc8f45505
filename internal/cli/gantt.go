package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"demeter/internal/schedule"
)

func (a *app) ganttCommand() *cobra.Command {
	var colorAttr string
	var columns []string
	cmd := &cobra.Command{
		Use:     "gantt PROJECT_ID",
		Short:   "Render a project's timeline model",
		GroupID: "view",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseIDArg(args[0], "project id")
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			view := &schedule.View{Columns: columns}
			if colorAttr != "" {
				configs, err := a.client.AttributeConfigs(ctx, projectID)
				if err != nil {
					return err
				}
				if err := view.SetColorAttribute(colorAttr, configs); err != nil {
					return err
				}
			}
			model, err := a.client.Schedule(ctx, projectID, view)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(cmd.OutOrStdout(), model)
			}
			return printModel(cmd, model)
		},
	}
	cmd.Flags().StringVar(&colorAttr, "color-attr", "", "select or user attribute that colors tasks")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "column keys to show, e.g. title,startDateTime,ca.f_status")
	return cmd
}

func printModel(cmd *cobra.Command, m schedule.Model) error {
	out := cmd.OutOrStdout()
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	header := make([]string, 0, len(m.Columns))
	for _, col := range m.Columns {
		header = append(header, strings.ToUpper(col.Label))
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range m.Resources {
		row := make([]string, 0, len(m.Columns))
		for _, col := range m.Columns {
			if col.Key == schedule.ColumnTitle {
				row = append(row, r.Title)
				continue
			}
			row = append(row, fmt.Sprint(orDash(r.ExtendedProps[col.Field])))
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, ms := range m.Milestones {
		fmt.Fprintf(out, "milestone  %s  %s\n", ms.Time, ms.Title)
	}
	for _, cp := range m.Checkpoints {
		fmt.Fprintf(out, "checkpoint %s  %s  %s\n", cp.Time, cp.Title, cp.Color)
	}
	for _, item := range m.Legend {
		fmt.Fprintf(out, "legend     %s  %s\n", item.Color, item.Label)
	}
	return nil
}

func orDash(v any) any {
	if v == nil || v == "" {
		return "-"
	}
	return v
}
