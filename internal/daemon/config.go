// Package daemon loads the groupmemberd configuration file and turns it
// into the types the engine and host need. Mirrors the donor's own
// daemon/config.go shape (nested API/Cluster structs, a DefaultConfig()
// contract, TOML as the file format).
package daemon

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"

	"github.com/tutu-network/groupmember/internal/domain"
	"github.com/tutu-network/groupmember/internal/infra/gossip"
)

// Config is the on-disk shape of groupmemberd's configuration file.
type Config struct {
	Node    NodeConfig    `toml:"node"`
	API     APIConfig     `toml:"api"`
	Cluster ClusterConfig `toml:"cluster"`
}

// NodeConfig identifies this process and its gossip listen address.
type NodeConfig struct {
	ID         string `toml:"id"`
	ListenAddr string `toml:"listen_addr"`
}

// APIConfig is the local control-surface HTTP listener (join/leave/members,
// health, metrics) — never exposed to the gossip network itself.
type APIConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// ClusterConfig carries the protocol tunables named in spec §6.
type ClusterConfig struct {
	Seeds               []string `toml:"seeds"`
	ProbePeriodSeconds  int      `toml:"probe_period_seconds"`
	SuspicionMultiplier int      `toml:"suspicion_multiplier"`
	IndirectFanout      int      `toml:"indirect_fanout"`
	SampleSize          int      `toml:"sample_size"`
}

// DefaultConfig returns the defaults a fresh node starts with if no config
// file is given: a random node ID, loopback listeners, and the protocol
// defaults from gossip.DefaultConfig.
func DefaultConfig() Config {
	eng := gossip.DefaultConfig()
	return Config{
		Node: NodeConfig{
			ID:         uuid.NewString(),
			ListenAddr: "127.0.0.1:7946",
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8946,
		},
		Cluster: ClusterConfig{
			ProbePeriodSeconds:  int(eng.T / time.Second),
			SuspicionMultiplier: eng.S,
			IndirectFanout:      eng.K,
			SampleSize:          eng.SampleSize,
		},
	}
}

// Load reads and validates a TOML config file, applying DefaultConfig's
// values for anything the file doesn't set. An empty path returns the
// defaults unmodified.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects tunables that would make the protocol nonsensical (spec
// §6: probe period and fanout must be positive).
func (c Config) Validate() error {
	if c.Cluster.ProbePeriodSeconds <= 0 {
		return fmt.Errorf("%w: cluster.probe_period_seconds must be positive", domain.ErrInvalidConfig)
	}
	if c.Cluster.SuspicionMultiplier <= 0 {
		return fmt.Errorf("%w: cluster.suspicion_multiplier must be positive", domain.ErrInvalidConfig)
	}
	if c.Cluster.IndirectFanout <= 0 {
		return fmt.Errorf("%w: cluster.indirect_fanout must be positive", domain.ErrInvalidConfig)
	}
	if c.Cluster.SampleSize <= 0 {
		return fmt.Errorf("%w: cluster.sample_size must be positive", domain.ErrInvalidConfig)
	}
	return nil
}

// EngineConfig projects the cluster tunables onto gossip.Config.
func (c Config) EngineConfig() gossip.Config {
	return gossip.Config{
		T:          time.Duration(c.Cluster.ProbePeriodSeconds) * time.Second,
		S:          c.Cluster.SuspicionMultiplier,
		K:          c.Cluster.IndirectFanout,
		SampleSize: c.Cluster.SampleSize,
	}
}
