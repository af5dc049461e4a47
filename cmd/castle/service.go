package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newServiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Start, stop, restart or check a systemd-managed service",
	}
	cmd.AddCommand(
		newServiceActionCmd("start"),
		newServiceActionCmd("stop"),
		newServiceActionCmd("restart"),
		newServiceStatusCmd(),
	)
	return cmd
}

func newServiceActionCmd(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " ID",
		Short: action + " a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			out, err := client().post("/services/"+id+"/"+action, nil)
			if err != nil {
				return err
			}
			var resp map[string]any
			if jerr := json.Unmarshal(out, &resp); jerr == nil {
				fmt.Printf("%s: %v\n", id, resp["state"])
				return nil
			}
			fmt.Println(string(out))
			return nil
		},
	}
}

func newServiceStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status ID",
		Short: "Show the current health of a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			var resp struct {
				Statuses []struct {
					ID     string `json:"id"`
					Status string `json:"status"`
				} `json:"statuses"`
			}
			if err := client().getJSON("/status", &resp); err != nil {
				return err
			}
			for _, st := range resp.Statuses {
				if st.ID == id {
					fmt.Printf("%s: %s\n", id, st.Status)
					return nil
				}
			}
			return fmt.Errorf("%s: no health record (no port/health_path configured)", id)
		},
	}
}
