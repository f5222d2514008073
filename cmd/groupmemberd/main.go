// Command groupmemberd runs a node of the group-membership gossip protocol.
package main

import "github.com/tutu-network/groupmember/internal/cli"

func main() {
	cli.Execute()
}
