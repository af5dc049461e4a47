package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newGatewayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gateway",
		Short: "Manage the Caddy gateway",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "reload",
			Short: "Regenerate and reload the gateway's Caddyfile",
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := client().post("/gateway/reload", nil); err != nil {
					return err
				}
				fmt.Println("gateway reloaded")
				return nil
			},
		},
		&cobra.Command{
			Use:   "caddyfile",
			Short: "Print the rendered Caddyfile",
			RunE: func(cmd *cobra.Command, args []string) error {
				body, err := client().get("/gateway/caddyfile")
				if err != nil {
					return err
				}
				_, err = os.Stdout.Write(body)
				return err
			},
		},
	)
	return cmd
}
