package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"demeter/internal/attribute"
	"demeter/internal/models"
)

func (a *app) attributesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "attributes",
		Aliases: []string{"attrs"},
		Short:   "Manage a project's custom task attributes",
		GroupID: "data",
	}

	list := &cobra.Command{
		Use:   "list PROJECT_ID",
		Short: "List attribute configs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseIDArg(args[0], "project id")
			if err != nil {
				return err
			}
			configs, err := a.client.AttributeConfigs(cmd.Context(), projectID)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(cmd.OutOrStdout(), configs)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tLABEL\tTYPE\tREQUIRED\tOPTIONS")
			for _, cfg := range configs {
				opts := make([]string, 0, len(cfg.Options))
				for _, o := range cfg.Options {
					opts = append(opts, o.Label+"="+o.Value)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", cfg.AttributeName, cfg.AttributeLabel, cfg.AttributeType, cfg.IsRequired, strings.Join(opts, ", "))
			}
			return tw.Flush()
		},
	}

	var (
		label, kind, name, defaultValue string
		required                        bool
		options, colors                 []string
	)
	create := &cobra.Command{
		Use:   "create PROJECT_ID",
		Short: "Add a custom attribute",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID, err := parseIDArg(args[0], "project id")
			if err != nil {
				return err
			}
			t, err := attribute.ParseType(kind)
			if err != nil {
				return err
			}
			p := models.CreateAttributeConfigParams{
				AttributeName:  name,
				AttributeLabel: label,
				AttributeType:  t,
				IsRequired:     required,
			}
			if defaultValue != "" {
				p.DefaultValue = &defaultValue
			}
			for _, raw := range options {
				optLabel, value := splitPair(raw, "")
				if value == "" {
					value = optLabel
				}
				p.Options = append(p.Options, attribute.Option{Label: optLabel, Value: value})
			}
			if len(colors) > 0 {
				p.ValueColorMap = attribute.ColorMap{}
				for _, raw := range colors {
					value, color := splitPair(raw, attribute.DefaultColor)
					p.ValueColorMap[value] = color
				}
			}
			if err := attribute.ValidateConfig(p.Definition()); err != nil {
				return err
			}

			cfg, err := a.client.CreateAttributeConfig(cmd.Context(), projectID, p)
			if err != nil {
				return err
			}
			if a.asJSON {
				return a.printJSON(cmd.OutOrStdout(), cfg)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created attribute %s (%s)\n", cfg.AttributeLabel, cfg.AttributeName)
			return nil
		},
	}
	create.Flags().StringVar(&label, "label", "", "display label")
	create.Flags().StringVar(&kind, "type", string(attribute.TypeText), "one of "+typeNames())
	create.Flags().StringVar(&name, "name", "", "attribute name; generated when empty")
	create.Flags().StringVar(&defaultValue, "default", "", "default value")
	create.Flags().BoolVar(&required, "required", false, "value is required")
	create.Flags().StringArrayVar(&options, "option", nil, "option as label=value, repeatable")
	create.Flags().StringArrayVar(&colors, "color", nil, "color as value=#hex, repeatable; bare value uses "+attribute.DefaultColor)
	_ = create.MarkFlagRequired("label")

	cmd.AddCommand(list, create)
	return cmd
}

func typeNames() string {
	names := make([]string, 0, len(attribute.Types))
	for _, t := range attribute.Types {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}
