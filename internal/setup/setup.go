// Package setup registers the MCP server with desktop MCP clients.
package setup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// ServerName is the key the server is registered under.
const ServerName = "trial-eligibility"

// ServerEntry is one MCP server in a client configuration file.
type ServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// ClientConfig is a desktop client configuration file. Keys other than
// mcpServers are preserved as-is.
type ClientConfig struct {
	MCPServers map[string]ServerEntry
	other      map[string]json.RawMessage
}

// Options describes the server to register.
type Options struct {
	BinaryPath string
	DataDir    string
	TrialsDir  string
}

// Status describes the current registration.
type Status struct {
	ConfigPath string       `json:"config_path"`
	Registered bool         `json:"registered"`
	Entry      *ServerEntry `json:"entry,omitempty"`
	Issues     []string     `json:"issues,omitempty"`
}

// ClientConfigPath returns the path of the desktop client's config file.
func ClientConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support", "Claude")
	case "linux":
		// Try XDG config first, then fallback
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "Claude")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config", "Claude")
		}
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		configDir = filepath.Join(appData, "Claude")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	return filepath.Join(configDir, "claude_desktop_config.json"), nil
}

// LoadClientConfig reads a client configuration. A missing file yields an
// empty configuration.
func LoadClientConfig(path string) (*ClientConfig, error) {
	config := &ClientConfig{
		MCPServers: make(map[string]ServerEntry),
		other:      make(map[string]json.RawMessage),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, &config.other); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if raw, ok := config.other["mcpServers"]; ok {
		if err := json.Unmarshal(raw, &config.MCPServers); err != nil {
			return nil, fmt.Errorf("failed to parse mcpServers: %w", err)
		}
		delete(config.other, "mcpServers")
	}
	if config.MCPServers == nil {
		config.MCPServers = make(map[string]ServerEntry)
	}
	return config, nil
}

// SaveClientConfig writes the configuration, creating its directory.
func SaveClientConfig(path string, config *ClientConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	out := make(map[string]any, len(config.other)+1)
	for k, v := range config.other {
		out[k] = v
	}
	out["mcpServers"] = config.MCPServers

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Register adds or replaces the server entry in the config file at path.
// The entry runs the binary's mcp command in lite mode.
func Register(path string, opts Options) (ServerEntry, error) {
	if opts.BinaryPath == "" {
		return ServerEntry{}, fmt.Errorf("binary path is required")
	}
	binary, err := filepath.Abs(opts.BinaryPath)
	if err != nil {
		return ServerEntry{}, fmt.Errorf("failed to resolve binary path: %w", err)
	}

	config, err := LoadClientConfig(path)
	if err != nil {
		return ServerEntry{}, err
	}

	entry := ServerEntry{
		Command: binary,
		Args:    []string{"--lite", "mcp"},
		Env:     make(map[string]string),
	}
	if opts.DataDir != "" {
		entry.Env["TRIAL_DATA_DIR"] = opts.DataDir
	}
	if opts.TrialsDir != "" {
		entry.Env["TRIAL_TRIALS_DIR"] = opts.TrialsDir
	}

	config.MCPServers[ServerName] = entry
	if err := SaveClientConfig(path, config); err != nil {
		return ServerEntry{}, err
	}
	return entry, nil
}

// GetStatus inspects the registration in the config file at path.
func GetStatus(path string) (*Status, error) {
	status := &Status{ConfigPath: path}

	config, err := LoadClientConfig(path)
	if err != nil {
		return nil, err
	}
	entry, ok := config.MCPServers[ServerName]
	if !ok {
		status.Issues = append(status.Issues, "server is not registered")
		return status, nil
	}
	status.Registered = true
	status.Entry = &entry

	if info, err := os.Stat(entry.Command); err != nil {
		status.Issues = append(status.Issues, fmt.Sprintf("server binary not found: %s", entry.Command))
	} else if info.Mode()&0o111 == 0 {
		status.Issues = append(status.Issues, fmt.Sprintf("server binary is not executable: %s", entry.Command))
	}
	if dir := entry.Env["TRIAL_TRIALS_DIR"]; dir != "" {
		if _, err := os.Stat(dir); err != nil {
			status.Issues = append(status.Issues, fmt.Sprintf("trials directory not found: %s", dir))
		}
	}
	return status, nil
}
