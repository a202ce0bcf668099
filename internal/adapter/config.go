package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Identity  IdentityConfig  `mapstructure:"identity"`
	Player    PlayerConfig    `mapstructure:"player"`
	Downloads DownloadsConfig `mapstructure:"downloads"`
	UI        UIConfig        `mapstructure:"ui"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds the marketplace endpoint and session
type ServerConfig struct {
	URL      string `mapstructure:"url"`
	Token    string `mapstructure:"token"`
	UserID   string `mapstructure:"user_id"`
	Username string `mapstructure:"username"` // display only
}

// IdentityConfig holds the identity used when signed out
type IdentityConfig struct {
	AnonymousID string `mapstructure:"anonymous_id"`
}

// PlayerConfig holds the external audio player
type PlayerConfig struct {
	Command string   `mapstructure:"command"`
	Args    []string `mapstructure:"args"`
}

// DownloadsConfig holds where purchased content is saved
type DownloadsConfig struct {
	Dir string `mapstructure:"dir"`
}

// UIConfig holds UI configuration
type UIConfig struct {
	Theme    string `mapstructure:"theme"`
	PageSize int    `mapstructure:"page_size"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultServerURL is the public marketplace
const DefaultServerURL = "https://reveilartist.com"

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			URL: DefaultServerURL,
		},
		Player: PlayerConfig{
			Command: "mpv",
			Args:    []string{"--no-video", "--really-quiet"},
		},
		Downloads: DownloadsConfig{
			Dir: defaultDownloadPath(),
		},
		UI: UIConfig{
			Theme:    "default",
			PageSize: 50,
		},
		Logging: LoggingConfig{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "reveil", "reveil.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "reveil", "reveil.log")
	}
}

func defaultDownloadPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Downloads", "reveil")
}

// defaultConfigPath returns the config directory. REVEIL_CONFIG_DIR overrides
// the per-OS default.
func defaultConfigPath() string {
	if dir := os.Getenv("REVEIL_CONFIG_DIR"); dir != "" {
		return dir
	}
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "reveil")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "reveil")
	}
}

// LoadConfig loads configuration from file and environment
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())

	// REVEIL_SERVER_URL, REVEIL_LOGGING_LEVEL, ...
	viper.SetEnvPrefix("REVEIL")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()
	for _, key := range envKeys {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	if cfg.UI.PageSize <= 0 {
		cfg.UI.PageSize = 50
	}

	return cfg, nil
}

// SaveConfig saves the current configuration to file
func SaveConfig(cfg *Config) error {
	// Set fields individually to keep snake_case key names
	viper.Set("server.url", cfg.Server.URL)
	viper.Set("server.token", cfg.Server.Token)
	viper.Set("server.user_id", cfg.Server.UserID)
	viper.Set("server.username", cfg.Server.Username)

	viper.Set("identity.anonymous_id", cfg.Identity.AnonymousID)

	viper.Set("player.command", cfg.Player.Command)
	viper.Set("player.args", cfg.Player.Args)

	viper.Set("downloads.dir", cfg.Downloads.Dir)

	viper.Set("ui.theme", cfg.UI.Theme)
	viper.Set("ui.page_size", cfg.UI.PageSize)

	viper.Set("logging.file", cfg.Logging.File)
	viper.Set("logging.level", cfg.Logging.Level)

	return writeConfig()
}

// SaveCredentials stores the signed-in session
func SaveCredentials(serverURL, token, userID, username string) error {
	viper.Set("server.url", serverURL)
	viper.Set("server.token", token)
	viper.Set("server.user_id", userID)
	viper.Set("server.username", username)
	return writeConfig()
}

// EnsureAnonymousID returns the identity used for the signed-out cart,
// generating and saving one on first use.
func EnsureAnonymousID(cfg *Config) (string, error) {
	if cfg.Identity.AnonymousID != "" {
		return cfg.Identity.AnonymousID, nil
	}
	id := "anon-" + uuid.NewString()
	viper.Set("identity.anonymous_id", id)
	if err := writeConfig(); err != nil {
		return "", err
	}
	cfg.Identity.AnonymousID = id
	return id, nil
}

func writeConfig() error {
	configPath := defaultConfigPath()
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := filepath.Join(configPath, "config.yaml")
	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// IsSignedIn returns true if a session token and user are configured
func (c *Config) IsSignedIn() bool {
	return c.Server.Token != "" && c.Server.UserID != ""
}

// CartOwner returns the identity carts are stored under: the user id when
// signed in, the anonymous identity otherwise.
func (c *Config) CartOwner() string {
	if c.IsSignedIn() {
		return c.Server.UserID
	}
	return c.Identity.AnonymousID
}

// defaultCachePath returns the default cache directory path for the current OS
func defaultCachePath() string {
	if dir := os.Getenv("REVEIL_CACHE_DIR"); dir != "" {
		return dir
	}
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("LOCALAPPDATA"), "reveil", "cache")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "reveil", "cache")
	}
}

// ClearServerConfig removes the session credentials while preserving the
// server URL and all other settings
func ClearServerConfig() error {
	viper.Set("server.token", "")
	viper.Set("server.user_id", "")
	viper.Set("server.username", "")
	return writeConfig()
}

// ClearCache removes all cached data, including persisted carts
func ClearCache() error {
	cachePath := defaultCachePath()
	if err := os.RemoveAll(cachePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// GetCachePath returns the cache directory path
func GetCachePath() string {
	return defaultCachePath()
}
