package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newInfoCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "info ID",
		Short: "Show everything known about a component, checking programs then services then jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			c := client()

			var p programSummary
			if err := c.getJSON("/programs/"+id, &p); err == nil {
				return showInfo(p, asJSON)
			}
			var svc componentSummary
			if err := c.getJSON("/services/"+id, &svc); err == nil {
				return showInfo(svc, asJSON)
			}
			var job componentSummary
			if err := c.getJSON("/jobs/"+id, &job); err == nil {
				return showInfo(job, asJSON)
			}
			return fmt.Errorf("%s: not found among programs, services or jobs", id)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func showInfo(v any, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(v)
	}
	switch t := v.(type) {
	case programSummary:
		fmt.Printf("%s\n  stack:       %s\n  description: %s\n  tags:        %v\n", t.ID, t.Stack, t.Description, t.Tags)
	case componentSummary:
		fmt.Printf("%s\n  runner:      %s\n  description: %s\n  port:        %d\n  health_path: %s\n  proxy_path:  %s\n  schedule:    %s\n  managed:     %t\n  stack:       %s\n",
			t.ID, t.Runner, t.Description, t.Port, t.HealthPath, t.ProxyPath, t.Schedule, t.Managed, t.Stack)
	}
	return nil
}
