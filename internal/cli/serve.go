package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tutu-network/groupmember/internal/api"
	"github.com/tutu-network/groupmember/internal/daemon"
	"github.com/tutu-network/groupmember/internal/domain"
	"github.com/tutu-network/groupmember/internal/runtime"
)

const shutdownGrace = 5 * time.Second

func init() {
	serveCmd.Flags().String("config", "", "path to a groupmemberd.toml config file")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gossip daemon and its local control surface",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := daemon.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := log.New(os.Stderr, "groupmemberd: ", log.LstdFlags)

	host, err := runtime.NewHost(domain.ProcessId(cfg.Node.ID), cfg.Node.ListenAddr, cfg.EngineConfig(), logger)
	if err != nil {
		return fmt.Errorf("start gossip listener: %w", err)
	}

	for _, seed := range cfg.Cluster.Seeds {
		id, addr, err := parseSeed(seed)
		if err != nil {
			return fmt.Errorf("cluster.seeds: %w", err)
		}
		if err := host.SeedAddr(id, addr); err != nil {
			return fmt.Errorf("seed %s: %w", seed, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go host.Run(ctx)

	if len(cfg.Cluster.Seeds) > 0 {
		id, _, _ := parseSeed(cfg.Cluster.Seeds[0])
		host.Submit(domain.Join{Seed: id})
	} else {
		host.Submit(domain.Join{Seed: domain.ProcessId(cfg.Node.ID)})
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		Handler: api.NewServer(host).Handler(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Printf("node %s listening for gossip on %s, control surface on %s", cfg.Node.ID, cfg.Node.ListenAddr, srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("control surface: %w", err)
	}
	return nil
}

// parseSeed splits a "processID@host:port" seed descriptor.
func parseSeed(seed string) (domain.ProcessId, string, error) {
	for i := len(seed) - 1; i >= 0; i-- {
		if seed[i] == '@' {
			return domain.ProcessId(seed[:i]), seed[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("expected PROCESS_ID@HOST:PORT, got %q", seed)
}
