package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newDeployCmd() *cobra.Command {
	var component string
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Compile the registry, render systemd units and the Caddyfile, and reload",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := json.Marshal(struct {
				Component string `json:"component,omitempty"`
			}{Component: component})
			if err != nil {
				return err
			}
			out, err := client().post("/config/apply", body)
			if err != nil {
				return err
			}
			var resp struct {
				Changed []string `json:"changed"`
			}
			if jerr := json.Unmarshal(out, &resp); jerr == nil && len(resp.Changed) > 0 {
				fmt.Println("regenerated:")
				for _, f := range resp.Changed {
					fmt.Println("  " + f)
				}
				return nil
			}
			fmt.Println("no changes")
			return nil
		},
	}
	cmd.Flags().StringVar(&component, "component", "", "scope the deploy to a single component id")
	return cmd
}
