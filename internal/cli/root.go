// Package cli implements groupmemberd's command-line interface: a `serve`
// command that runs the gossip daemon, and `join`/`leave`/`members` client
// commands that talk to a running daemon's local control surface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var apiAddr string

var rootCmd = &cobra.Command{
	Use:   "groupmemberd",
	Short: "A SWIM-style group membership daemon",
	Long: `groupmemberd runs a single node of a decentralized group-membership
protocol: periodic direct and indirect liveness probing, gossiped CRDT
add/remove registers, and a local HTTP control surface for join/leave/members.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", "http://127.0.0.1:8946", "address of a running daemon's control surface")
}

// Execute runs the CLI, writing any error to stderr and exiting non-zero.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
