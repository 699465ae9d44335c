// Package setup registers the MCP server with the Claude Desktop client.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/anc-caregap-server/internal/config"
)

// ServerName is the key the server is registered under.
const ServerName = "anc-caregap-risk"

// ClaudeDesktopConfig represents the Claude Desktop configuration file structure.
// Keys other than mcpServers are preserved.
type ClaudeDesktopConfig struct {
	MCPServers map[string]MCPServerConfig `json:"mcpServers"`
	extra      map[string]json.RawMessage
}

// MCPServerConfig represents a single MCP server configuration.
type MCPServerConfig struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// Options controls Register.
type Options struct {
	BinaryPath string
	ConfigFile string            // server config file, passed through the environment
	Env        map[string]string // extra ANC_CAREGAP_* overrides
}

// Status describes the current registration.
type Status struct {
	ConfigPath string
	Registered bool
	Server     MCPServerConfig
	Issues     []string
}

// ConfigPath returns the path to Claude Desktop's config file.
func ConfigPath() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, "Library", "Application Support", "Claude", "claude_desktop_config.json"), nil
	case "linux":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "Claude", "claude_desktop_config.json"), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, ".config", "Claude", "claude_desktop_config.json"), nil
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		return filepath.Join(appData, "Claude", "claude_desktop_config.json"), nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// Load reads the client config; a missing file yields an empty config.
func Load(path string) (*ClaudeDesktopConfig, error) {
	cfg := &ClaudeDesktopConfig{MCPServers: map[string]MCPServerConfig{}}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &cfg.extra); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw, ok := cfg.extra["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &cfg.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(cfg.extra, "mcpServers")
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = map[string]MCPServerConfig{}
	}
	return cfg, nil
}

// Save writes the client config, creating its directory.
func Save(path string, cfg *ClaudeDesktopConfig) error {
	out := make(map[string]interface{}, len(cfg.extra)+1)
	for k, v := range cfg.extra {
		out[k] = v
	}
	out["mcpServers"] = cfg.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Register adds or replaces the server entry in the client config at path.
func Register(path string, opts Options) (MCPServerConfig, error) {
	if opts.BinaryPath == "" {
		return MCPServerConfig{}, fmt.Errorf("server binary path is required")
	}
	binary, err := filepath.Abs(opts.BinaryPath)
	if err != nil {
		return MCPServerConfig{}, fmt.Errorf("failed to resolve binary path: %w", err)
	}

	cfg, err := Load(path)
	if err != nil {
		return MCPServerConfig{}, err
	}

	entry := MCPServerConfig{Command: binary, Env: map[string]string{}}
	for k, v := range opts.Env {
		entry.Env[k] = v
	}
	if opts.ConfigFile != "" {
		abs, err := filepath.Abs(opts.ConfigFile)
		if err != nil {
			return MCPServerConfig{}, fmt.Errorf("failed to resolve config path: %w", err)
		}
		entry.Env[config.ConfigFileEnv] = abs
	}
	if len(entry.Env) == 0 {
		entry.Env = nil
	}

	cfg.MCPServers[ServerName] = entry
	if err := Save(path, cfg); err != nil {
		return MCPServerConfig{}, err
	}
	return entry, nil
}

// Inspect reports whether the server is registered and whether its binary exists.
func Inspect(path string) (*Status, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	st := &Status{ConfigPath: path}
	entry, ok := cfg.MCPServers[ServerName]
	if !ok {
		st.Issues = append(st.Issues, "server is not registered")
		return st, nil
	}
	st.Registered = true
	st.Server = entry

	info, err := os.Stat(entry.Command)
	switch {
	case err != nil:
		st.Issues = append(st.Issues, fmt.Sprintf("server binary not found: %s", entry.Command))
	case info.Mode()&0111 == 0:
		st.Issues = append(st.Issues, fmt.Sprintf("server binary is not executable: %s", entry.Command))
	}
	if f := entry.Env[config.ConfigFileEnv]; f != "" {
		if _, err := os.Stat(f); err != nil {
			st.Issues = append(st.Issues, fmt.Sprintf("server config file not found: %s", f))
		}
	}
	return st, nil
}
