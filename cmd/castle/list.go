package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type programSummary struct {
	ID          string   `json:"id"`
	Description string   `json:"description,omitempty"`
	Stack       string   `json:"stack,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type componentSummary struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Runner      string `json:"runner,omitempty"`
	Port        int    `json:"port,omitempty"`
	HealthPath  string `json:"health_path,omitempty"`
	ProxyPath   string `json:"proxy_path,omitempty"`
	Schedule    string `json:"schedule,omitempty"`
	Managed     bool   `json:"managed,omitempty"`
	Stack       string `json:"stack,omitempty"`
}

func newListCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:       "list [programs|services|jobs]",
		Short:     "List components known to the catalog or registry",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"programs", "services", "jobs"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := "services"
			if len(args) == 1 {
				kind = args[0]
			}
			c := client()
			switch kind {
			case "programs":
				var out []programSummary
				if err := c.getJSON("/programs", &out); err != nil {
					return err
				}
				return printPrograms(out, asJSON)
			case "services":
				var out []componentSummary
				if err := c.getJSON("/services", &out); err != nil {
					return err
				}
				return printComponents(out, asJSON)
			case "jobs":
				var out []componentSummary
				if err := c.getJSON("/jobs", &out); err != nil {
					return err
				}
				return printComponents(out, asJSON)
			default:
				return fmt.Errorf("unknown list target %q (want programs, services or jobs)", kind)
			}
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func printPrograms(out []programSummary, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(out)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTACK\tDESCRIPTION")
	for _, p := range out {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.ID, p.Stack, p.Description)
	}
	return tw.Flush()
}

func printComponents(out []componentSummary, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(out)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRUNNER\tPORT\tMANAGED\tSCHEDULE\tDESCRIPTION")
	for _, cpt := range out {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%t\t%s\t%s\n", cpt.ID, cpt.Runner, cpt.Port, cpt.Managed, cpt.Schedule, cpt.Description)
	}
	return tw.Flush()
}
