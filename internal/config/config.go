package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
	StorageMongo  = "mongo"
)

type Config struct {
	Port      string
	PublicURL string

	TelegramToken string

	// Seed credentials, used by the CLI and to pre-fill the web session.
	GitHubToken  string
	RigobotToken string

	GitHubClientID      string
	GitHubClientSecret  string
	GitHubWebhookSecret string
	GitHubAPIURL        string
	RawContentURL       string

	RigobotURL      string
	RigobotPromptID int

	StorageDriver string
	SQLitePath    string
	MongoDBURI    string
	DatabaseName  string
	EncryptionKey string

	DescriptionMaxLength int
	WalkConcurrency      int
	BulkConcurrency      int
}

// fileConfig mirrors the optional reposcanner.toml settings file.
type fileConfig struct {
	Server struct {
		Port      string `toml:"port"`
		PublicURL string `toml:"public_url"`
	} `toml:"server"`
	GitHub struct {
		APIURL        string `toml:"api_url"`
		RawContentURL string `toml:"raw_content_url"`
	} `toml:"github"`
	Rigobot struct {
		URL      string `toml:"url"`
		PromptID int    `toml:"prompt_id"`
	} `toml:"rigobot"`
	Storage struct {
		Driver       string `toml:"driver"`
		SQLitePath   string `toml:"sqlite_path"`
		MongoDBURI   string `toml:"mongodb_uri"`
		DatabaseName string `toml:"database_name"`
	} `toml:"storage"`
	Descriptions struct {
		MaxLength   int `toml:"max_length"`
		Concurrency int `toml:"concurrency"`
	} `toml:"descriptions"`
	Walk struct {
		Concurrency int `toml:"concurrency"`
	} `toml:"walk"`
}

func Default() *Config {
	return &Config{
		Port:                 "8080",
		PublicURL:            "http://localhost:8080",
		RawContentURL:        "https://raw.githubusercontent.com/",
		RigobotURL:           "https://rigobot.herokuapp.com",
		RigobotPromptID:      258,
		StorageDriver:        StorageSQLite,
		SQLitePath:           defaultSQLitePath(),
		DatabaseName:         "reposcanner",
		DescriptionMaxLength: 150,
		WalkConcurrency:      4,
		BulkConcurrency:      4,
	}
}

// Load builds the configuration from defaults, the settings file and the
// environment, in increasing order of precedence. A .env file in the working
// directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	path := getEnv("REPOSCANNER_CONFIG", "")
	if path == "" {
		path = SettingsPath()
	}
	if path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.overlayEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SettingsPath returns the default location of reposcanner.toml, or "" when
// the user config directory cannot be determined.
func SettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "reposcanner", "reposcanner.toml")
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read settings file: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("invalid settings file %s: %w", path, err)
	}

	setString(&c.Port, fc.Server.Port)
	setString(&c.PublicURL, fc.Server.PublicURL)
	setString(&c.GitHubAPIURL, fc.GitHub.APIURL)
	setString(&c.RawContentURL, fc.GitHub.RawContentURL)
	setString(&c.RigobotURL, fc.Rigobot.URL)
	setInt(&c.RigobotPromptID, fc.Rigobot.PromptID)
	setString(&c.StorageDriver, fc.Storage.Driver)
	setString(&c.SQLitePath, fc.Storage.SQLitePath)
	setString(&c.MongoDBURI, fc.Storage.MongoDBURI)
	setString(&c.DatabaseName, fc.Storage.DatabaseName)
	setInt(&c.DescriptionMaxLength, fc.Descriptions.MaxLength)
	setInt(&c.BulkConcurrency, fc.Descriptions.Concurrency)
	setInt(&c.WalkConcurrency, fc.Walk.Concurrency)
	return nil
}

func (c *Config) overlayEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.PublicURL = strings.TrimRight(getEnv("PUBLIC_URL", c.PublicURL), "/")
	c.TelegramToken = getEnv("TELEGRAM_TOKEN", c.TelegramToken)
	c.GitHubToken = getEnv("GITHUB_TOKEN", c.GitHubToken)
	c.RigobotToken = getEnv("RIGOBOT_TOKEN", c.RigobotToken)
	c.GitHubClientID = getEnv("GITHUB_CLIENT_ID", c.GitHubClientID)
	c.GitHubClientSecret = getEnv("GITHUB_CLIENT_SECRET", c.GitHubClientSecret)
	c.GitHubWebhookSecret = getEnv("GITHUB_WEBHOOK_SECRET", c.GitHubWebhookSecret)
	c.GitHubAPIURL = getEnv("GITHUB_API_URL", c.GitHubAPIURL)
	c.RawContentURL = getEnv("RAW_CONTENT_URL", c.RawContentURL)
	c.RigobotURL = strings.TrimRight(getEnv("RIGOBOT_URL", c.RigobotURL), "/")
	c.StorageDriver = strings.ToLower(getEnv("STORAGE_DRIVER", c.StorageDriver))
	c.SQLitePath = getEnv("SQLITE_PATH", c.SQLitePath)
	c.MongoDBURI = getEnv("MONGODB_URI", c.MongoDBURI)
	c.DatabaseName = getEnv("DATABASE_NAME", c.DatabaseName)
	c.EncryptionKey = getEnv("ENCRYPTION_KEY", c.EncryptionKey)

	ints := []struct {
		key string
		dst *int
	}{
		{"RIGOBOT_PROMPT_ID", &c.RigobotPromptID},
		{"DESCRIPTION_MAX_LENGTH", &c.DescriptionMaxLength},
		{"WALK_CONCURRENCY", &c.WalkConcurrency},
		{"BULK_CONCURRENCY", &c.BulkConcurrency},
	}
	for _, i := range ints {
		raw, ok := os.LookupEnv(i.key)
		if !ok || raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s must be an integer, got %q", i.key, raw)
		}
		*i.dst = n
	}
	return nil
}

func (c *Config) Validate() error {
	var problems []string

	switch c.StorageDriver {
	case StorageMemory, StorageSQLite:
	case StorageMongo:
		if c.MongoDBURI == "" {
			problems = append(problems, "MONGODB_URI is required when STORAGE_DRIVER=mongo")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	if c.DescriptionMaxLength < 1 {
		problems = append(problems, "DESCRIPTION_MAX_LENGTH must be at least 1")
	}
	if c.WalkConcurrency < 1 || c.BulkConcurrency < 1 {
		problems = append(problems, "WALK_CONCURRENCY and BULK_CONCURRENCY must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// OAuthEnabled reports whether the GitHub OAuth web flow can be offered.
func (c *Config) OAuthEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

func defaultSQLitePath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "reposcanner.db"
	}
	return filepath.Join(dir, "reposcanner", "cache.db")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}
