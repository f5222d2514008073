package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	joinCmd.Flags().String("seed-addr", "", "UDP address of the seed (not needed when SEED_ID is this node's own ID or the daemon already knows the seed's address)")
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(leaveCmd)
	rootCmd.AddCommand(membersCmd)
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

var joinCmd = &cobra.Command{
	Use:   "join SEED_ID",
	Short: "Join a group via the given seed process, or create one if SEED_ID is this node's own ID",
	Args:  cobra.ExactArgs(1),
	RunE:  runJoin,
}

func runJoin(cmd *cobra.Command, args []string) error {
	seedAddr, _ := cmd.Flags().GetString("seed-addr")
	body, err := json.Marshal(map[string]string{"seed": args[0], "seed_addr": seedAddr})
	if err != nil {
		return err
	}
	return postJSON("/v1/join", body)
}

var leaveCmd = &cobra.Command{
	Use:   "leave",
	Short: "Leave the group this node is a member of",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return postJSON("/v1/leave", nil)
	},
}

var membersCmd = &cobra.Command{
	Use:   "members",
	Short: "List the current active-set view from this node",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := httpClient.Get(apiAddr + "/v1/members")
		if err != nil {
			return fmt.Errorf("request daemon: %w", err)
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("daemon returned %s: %s", resp.Status, data)
		}

		var out struct {
			Members []string `json:"members"`
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return err
		}
		if len(out.Members) == 0 {
			fmt.Fprintln(os.Stdout, "No active members.")
			return nil
		}
		for _, m := range out.Members {
			fmt.Fprintln(os.Stdout, m)
		}
		return nil
	},
}

func postJSON(path string, body []byte) error {
	resp, err := httpClient.Post(apiAddr+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request daemon: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned %s: %s", resp.Status, data)
	}
	fmt.Fprintln(os.Stdout, string(data))
	return nil
}
