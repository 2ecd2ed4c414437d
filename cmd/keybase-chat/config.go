package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultConfigFile   = "config.json"
	defaultDebugLogFile = "debug.log"
	defaultReadAtLeast  = 10
	defaultDownloadPath = "./downloads"
	defaultPollSeconds  = 5
	defaultAgentTimeout = 60
)

// config mirrors config.json. Loaded once at startup and treated as
// immutable for the process lifetime.
type config struct {
	Debug        bool     `json:"debug"`
	MaxRecent    int      `json:"max_recent"`
	HideNames    []string `json:"hide_names"`
	ReadAtLeast  int      `json:"read_at_least"`
	DownloadPath string   `json:"download_path"`
}

type options struct {
	configPath   string
	debugLogPath string
	keybaseBin   string
	pollInterval time.Duration
	agentTimeout time.Duration
	altScreen    bool
}

func defaultConfig() config {
	return config{
		Debug:        false,
		MaxRecent:    0,
		HideNames:    []string{},
		ReadAtLeast:  defaultReadAtLeast,
		DownloadPath: defaultDownloadPath,
	}
}

// loadConfig never fails the application over config: a missing file
// yields defaults, a malformed file yields defaults plus a diagnostic.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return defaultConfig(), fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.ReadAtLeast <= 0 {
		cfg.ReadAtLeast = defaultReadAtLeast
	}
	if cfg.MaxRecent < 0 {
		cfg.MaxRecent = 0
	}
	if strings.TrimSpace(cfg.DownloadPath) == "" {
		cfg.DownloadPath = defaultDownloadPath
	}
	return cfg, nil
}

func parseFlags() options {
	opts := options{}
	flag.StringVar(&opts.configPath, "config", envOr("KBCHAT_CONFIG", defaultConfigFile), "Path to config.json")
	flag.StringVar(&opts.debugLogPath, "debug-log", envOr("KBCHAT_DEBUG_LOG", defaultDebugLogFile), "Debug log path (written when debug is enabled)")
	flag.StringVar(&opts.keybaseBin, "keybase", envOr("KBCHAT_KEYBASE_BIN", "keybase"), "Keybase CLI binary")
	pollSeconds := envOrInt("KBCHAT_POLL_INTERVAL", defaultPollSeconds)
	flag.IntVar(&pollSeconds, "poll-interval", pollSeconds, "New-message poll interval seconds")
	agentTimeoutSeconds := envOrInt("KBCHAT_AGENT_TIMEOUT", defaultAgentTimeout)
	flag.IntVar(&agentTimeoutSeconds, "agent-timeout", agentTimeoutSeconds, "Per-invocation keybase CLI timeout seconds")
	flag.BoolVar(&opts.altScreen, "alt-screen", envOrBool("KBCHAT_ALT_SCREEN", true), "Use alternate screen buffer")
	flag.Parse()

	opts.pollInterval = time.Duration(clampInt(pollSeconds, 1, 300)) * time.Second
	opts.agentTimeout = time.Duration(clampInt(agentTimeoutSeconds, 1, 600)) * time.Second
	return opts
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if value == "" {
		return fallback
	}
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
