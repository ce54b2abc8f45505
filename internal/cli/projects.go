package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"demeter/internal/models"
)

func (a *app) projectsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "projects",
		Aliases: []string{"project", "p"},
		Short:   "List and create projects",
		GroupID: "data",
	}

	var q models.ProjectQuery
	var mine bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List projects page by page",
		RunE: func(cmd *cobra.Command, args []string) error {
			fetch := a.client.ListProjects
			if mine {
				fetch = a.client.ListMyProjects
			}
			page, err := fetch(cmd.Context(), q)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(cmd.OutOrStdout(), page)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tSTART\tEND")
			for _, p := range page.List {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", p.ID, p.ProjectName, p.ProjectStatus, p.StartDateTime, deref(p.EndDateTime, "-"))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d total\n", page.Page, page.Total)
			return nil
		},
	}
	list.Flags().StringVar(&q.ProjectName, "name", "", "filter by name fragment")
	list.Flags().IntVar(&q.Page, "page", 1, "page number")
	list.Flags().IntVar(&q.PageSize, "page-size", models.DefaultPageSize, "items per page")
	list.Flags().BoolVar(&mine, "mine", false, "only projects you created")

	var start, end, description string
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := models.CreateProjectParams{ProjectName: args[0]}
			startAt, err := models.ParseDateTime(start)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			p.StartDateTime = startAt
			if end != "" {
				endAt, err := models.ParseDateTime(end)
				if err != nil {
					return fmt.Errorf("--end: %w", err)
				}
				p.EndDateTime = &endAt
			}
			if description != "" {
				p.Description = &description
			}
			project, err := a.client.CreateProject(cmd.Context(), p)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(cmd.OutOrStdout(), project)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created project %s (%s)\n", project.ProjectName, project.ID)
			return nil
		},
	}
	create.Flags().StringVar(&start, "start", "", "start, YYYY-MM-DDTHH:mm:ss")
	create.Flags().StringVar(&end, "end", "", "end, YYYY-MM-DDTHH:mm:ss")
	create.Flags().StringVar(&description, "description", "", "description")
	_ = create.MarkFlagRequired("start")

	cmd.AddCommand(list, create)
	return cmd
}
