// Command castle is the operator's command-line front end for castled: it
// never touches the catalog or registry files directly, instead driving
// the running daemon's dashboard API the way original_source/cli drove
// castle-core, now over HTTP instead of in-process imports.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var addrFlag string

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "castle:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "castle",
		Short:         "Operate a castle node: catalog, deployments, gateway and mesh",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&addrFlag, "addr", defaultAddr(), "castled API address (host:port)")

	root.AddCommand(
		newListCmd(),
		newApplyCmd(),
		newDeployCmd(),
		newGatewayCmd(),
		newServiceCmd(),
		newToolCmd(),
		newInfoCmd(),
	)
	return root
}

// defaultAddr lets CASTLE_ADDR override the dashboard's own default
// api_listen_addr (internal/config's 127.0.0.1:8900) without requiring a
// flag on every invocation.
func defaultAddr() string {
	if v := os.Getenv("CASTLE_ADDR"); v != "" {
		return v
	}
	return "127.0.0.1:8900"
}

func client() *apiClient {
	return newAPIClient(addrFlag)
}
