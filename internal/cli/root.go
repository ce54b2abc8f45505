// Package cli implements demeterctl, a command line client for the demeter
// API.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"demeter/internal/client"
	"demeter/internal/models"
	"demeter/internal/util"
)

type app struct {
	server   string
	username string
	password string
	asJSON   bool

	client *client.Client
}

// NewRootCommand builds the demeterctl command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "demeterctl",
		Short:         "Command line client for the demeter project scheduler",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.connect(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.server, "server", util.EnvOrDefault("DEMETER_SERVER", "http://localhost:8080"), "server base URL (DEMETER_SERVER)")
	flags.StringVarP(&a.username, "username", "u", util.EnvOrDefault("DEMETER_USERNAME", ""), "sign in as this user (DEMETER_USERNAME)")
	flags.StringVarP(&a.password, "password", "p", util.EnvOrDefault("DEMETER_PASSWORD", ""), "password (DEMETER_PASSWORD)")
	flags.BoolVar(&a.asJSON, "json", false, "print JSON instead of tables")

	root.AddGroup(
		&cobra.Group{ID: "data", Title: "Data Commands:"},
		&cobra.Group{ID: "view", Title: "View Commands:"},
	)
	root.AddCommand(
		a.projectsCommand(),
		a.tasksCommand(),
		a.attributesCommand(),
		a.ganttCommand(),
	)
	return root
}

// connect creates the API client and signs in when credentials are given.
func (a *app) connect(cmd *cobra.Command) error {
	c, err := client.New(a.server)
	if err != nil {
		return err
	}
	a.client = c
	if a.username == "" {
		return nil
	}
	if _, err := c.Login(cmd.Context(), a.username, a.password); err != nil {
		return fmt.Errorf("sign in as %s: %w", a.username, err)
	}
	return nil
}

func (a *app) printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseIDArg(raw, what string) (models.ID, error) {
	id, err := models.ParseID(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	return id, nil
}

// splitPair parses "key=value"; a missing "=" yields fallback as the value.
func splitPair(raw, fallback string) (string, string) {
	key, value, ok := strings.Cut(raw, "=")
	if !ok {
		return strings.TrimSpace(raw), fallback
	}
	return strings.TrimSpace(key), strings.TrimSpace(value)
}

func deref[T any](p *T, fallback string) string {
	if p == nil {
		return fallback
	}
	return fmt.Sprint(*p)
}
