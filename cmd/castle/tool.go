package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type toolSummary struct {
	ID                 string   `json:"id"`
	Description        string   `json:"description,omitempty"`
	Source             string   `json:"source,omitempty"`
	Stack              string   `json:"stack,omitempty"`
	Version            string   `json:"version,omitempty"`
	SystemDependencies []string `json:"system_dependencies,omitempty"`
	Installed          bool     `json:"installed"`
}

func newToolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tool",
		Short: "Manage PATH-installable tools",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all registered tools",
			RunE: func(cmd *cobra.Command, args []string) error {
				var out []toolSummary
				if err := client().getJSON("/tools", &out); err != nil {
					return err
				}
				tw := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tVERSION\tINSTALLED\tDESCRIPTION")
				for _, t := range out {
					fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", t.ID, t.Version, t.Installed, t.Description)
				}
				return tw.Flush()
			},
		},
		&cobra.Command{
			Use:   "info ID",
			Short: "Show detail for one tool",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var t toolSummary
				if err := client().getJSON("/tools/"+args[0], &t); err != nil {
					return err
				}
				return json.NewEncoder(os.Stdout).Encode(t)
			},
		},
		&cobra.Command{
			Use:   "install ID",
			Short: "Install a tool's PATH shim",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := client().post("/tools/"+args[0]+"/install", nil); err != nil {
					return err
				}
				fmt.Printf("%s installed\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "uninstall ID",
			Short: "Remove a tool's PATH shim",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := client().post("/tools/"+args[0]+"/uninstall", nil); err != nil {
					return err
				}
				fmt.Printf("%s uninstalled\n", args[0])
				return nil
			},
		},
	)
	return cmd
}
