// Package config loads the small set of static deployment settings this
// binary needs before it can open the state store: listen addresses,
// where the state document and RTMP server config live, and the RTMP
// server binary to supervise. Everything else lives in the state
// document itself and is mutated at runtime through the API.
package config

import (
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk deployment config, YAML formatted.
type Config struct {
	Host           string `yaml:"host"`
	APIAddr        string `yaml:"api_address"`
	HookAddr       string `yaml:"hook_address"`
	StatePath      string `yaml:"state_path"`
	RTMPBinary     string `yaml:"rtmp_binary"`
	RTMPConfigPath string `yaml:"rtmp_config_path"`
	HLSDir         string `yaml:"hls_dir"`
	DVRDir         string `yaml:"dvr_dir"`
	DVRTTLHours    int    `yaml:"dvr_ttl_hours"`
	MixinPipeDir   string `yaml:"mixin_pipe_dir"`
	Debug          bool   `yaml:"-"`
}

// defaults returns a same-directory config file location plus sane
// fallbacks for everything a fresh checkout needs to run.
func defaults() Config {
	return Config{
		Host:           "0.0.0.0",
		APIAddr:        ":8000",
		HookAddr:       "127.0.0.1:8001",
		StatePath:      "./data/state.json",
		RTMPBinary:     "srs",
		RTMPConfigPath: "./data/srs.conf",
		HLSDir:         "./data/hls",
		DVRDir:         "./data/dvr",
		DVRTTLHours:    24,
		MixinPipeDir:   "./data/mixins",
	}
}

// Load reads the YAML config at path (falling back to defaults for any
// unset field), then applies CLI flags and environment variables on top:
// file first, flags and env last.
func Load(args []string) (*Config, error) {
	cfg := defaults()

	fs := flag.NewFlagSet("restreamer", flag.ContinueOnError)
	configPath := fs.String("config", "restreamer.yaml", "path to the deployment config file")
	host := fs.String("host", "", "public host override")
	statePath := fs.String("state-path", "", "path to the persisted state document")
	debug := fs.Bool("debug", false, "enable development logging")
	hookAddr := fs.String("hook-addr", "", "loopback address the hook dispatcher listens on")
	apiAddr := fs.String("api-addr", "", "address the GraphQL/HTTP API listens on")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if raw, err := os.ReadFile(*configPath); err == nil {
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", *configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: read %s: %w", *configPath, err)
	}

	if *host != "" {
		cfg.Host = *host
	}
	if *statePath != "" {
		cfg.StatePath = *statePath
	}
	if *hookAddr != "" {
		cfg.HookAddr = *hookAddr
	}
	if *apiAddr != "" {
		cfg.APIAddr = *apiAddr
	}
	cfg.Debug = *debug

	if v := os.Getenv("EPHYR_RESTREAMER_STATE_PATH"); v != "" {
		cfg.StatePath = v
	}

	return &cfg, nil
}
