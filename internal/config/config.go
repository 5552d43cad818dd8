package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 50 * 1024 * 1024 // 50MB
	DefaultCacheSize   = 64
	DefaultDataDirName = "sheet-data"

	// Directory permissions
	DefaultDirPerm = 0o750

	registryFileName = "sheets.yaml"
	storageDirName   = "sheets"
)

// Config holds all configuration for the sheet actions server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Storage configuration
	DataDirectory string
	// HelperScriptPath replaces the bundled helper library when set.
	HelperScriptPath string
	CacheSize        int

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:          ModeStdio, // Default to stdio mode for MCP compatibility
		Host:          DefaultHost,
		Port:          DefaultPort,
		DataDirectory: filepath.Join(currentDir, DefaultDataDirName),
		CacheSize:     DefaultCacheSize,
		Version:       "1.0.0",
		ServerName:    "mcp-sheet-actions",
		LogLevel:      DefaultLogLevel,
		MaxFileSize:   DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.DataDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.DataDirectory); err == nil {
			cfg.DataDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix("MCP_SHEETS")
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("datadir", cfg.DataDirectory)
	viper.SetDefault("helpers", cfg.HelperScriptPath)
	viper.SetDefault("cachesize", cfg.CacheSize)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("datadir", cfg.DataDirectory, "Directory holding imported sheets and the sheet index")
	pflag.String("helpers", cfg.HelperScriptPath, "JavaScript file replacing the bundled helper library")
	pflag.Int("cachesize", cfg.CacheSize, "Number of field listings kept in memory")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{"mode", "host", "port", "datadir", "helpers", "cachesize", "loglevel", "maxfilesize"} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP Sheet Actions - attach D&D 5e calculations to PDF character sheets\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                         "+
			"# stdio mode, ./sheet-data (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --datadir=/var/lib/sheets               "+
			"# stdio mode with custom data directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --host=0.0.0.0 --port=8081 # server on all interfaces\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  MCP_SHEETS_MODE        Server mode\n")
		fmt.Fprintf(os.Stderr, "  MCP_SHEETS_HOST        Server host\n")
		fmt.Fprintf(os.Stderr, "  MCP_SHEETS_PORT        Server port\n")
		fmt.Fprintf(os.Stderr, "  MCP_SHEETS_DATADIR     Data directory\n")
		fmt.Fprintf(os.Stderr, "  MCP_SHEETS_HELPERS     Helper script path\n")
		fmt.Fprintf(os.Stderr, "  MCP_SHEETS_CACHESIZE   Field cache capacity\n")
		fmt.Fprintf(os.Stderr, "  MCP_SHEETS_LOGLEVEL    Log level\n")
		fmt.Fprintf(os.Stderr, "  MCP_SHEETS_MAXFILESIZE Maximum file size\n")
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.DataDirectory = viper.GetString("datadir")
	cfg.HelperScriptPath = viper.GetString("helpers")
	cfg.CacheSize = viper.GetInt("cachesize")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

// Validate checks if the configuration is valid and creates the data directory
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Port only matters in server mode
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if c.CacheSize <= 0 {
		return errors.New("cache size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if c.HelperScriptPath != "" {
		info, err := os.Stat(c.HelperScriptPath)
		if err != nil {
			return fmt.Errorf("cannot access helper script %s: %w", c.HelperScriptPath, err)
		}
		if info.IsDir() {
			return fmt.Errorf("helper script %s is a directory", c.HelperScriptPath)
		}
	}

	if c.DataDirectory == "" {
		return errors.New("data directory cannot be empty")
	}
	if err := os.MkdirAll(c.DataDirectory, DefaultDirPerm); err != nil {
		return fmt.Errorf("cannot create data directory %s: %w", c.DataDirectory, err)
	}

	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// RegistryPath is the sheet index file inside the data directory.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.DataDirectory, registryFileName)
}

// StorageRoot is the directory sheet files are stored under.
func (c *Config) StorageRoot() string {
	return filepath.Join(c.DataDirectory, storageDirName)
}

// LoadHelperScript returns the configured replacement helper library, or ""
// when the bundled one should be used.
func (c *Config) LoadHelperScript() (string, error) {
	if c.HelperScriptPath == "" {
		return "", nil
	}
	data, err := os.ReadFile(c.HelperScriptPath)
	if err != nil {
		return "", fmt.Errorf("cannot read helper script: %w", err)
	}
	return string(data), nil
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, DataDirectory: %s, Helpers: %s, CacheSize: %d, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.DataDirectory, c.HelperScriptPath, c.CacheSize, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
