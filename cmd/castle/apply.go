package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply [file]",
		Short: "Validate and save a castle.yaml catalog, from a file path or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body []byte
			var err error
			if len(args) == 1 {
				body, err = os.ReadFile(args[0])
			} else {
				body, err = io.ReadAll(os.Stdin)
			}
			if err != nil {
				return fmt.Errorf("read catalog: %w", err)
			}
			if _, err := client().put("/config", body); err != nil {
				return err
			}
			fmt.Println("catalog saved")
			return nil
		},
	}
	return cmd
}
