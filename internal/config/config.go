package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/semmidev/replguard/internal/domain"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Paths     PathsConfig     `mapstructure:"paths"`
	Servers   []ServerConfig  `mapstructure:"servers"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
	Retention RetentionConfig `mapstructure:"retention"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Offsite   OffsiteConfig   `mapstructure:"offsite"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
	// LogQuiet keeps only the log file, for cron runs that mail their output.
	LogQuiet bool `mapstructure:"log_quiet"`
}

type PathsConfig struct {
	CacheDir  string `mapstructure:"cache_dir"`
	TmpDir    string `mapstructure:"tmp_dir"`
	BackupDir string `mapstructure:"backup_dir"`
}

type ServerConfig struct {
	ID           string `mapstructure:"id"`
	Container    string `mapstructure:"container"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	PasswordFile string `mapstructure:"password_file"`
	StagingDir   string `mapstructure:"staging_dir"`
	BackupDir    string `mapstructure:"backup_dir"`
}

type TimeoutsConfig struct {
	Query time.Duration `mapstructure:"query"`
	Dump  time.Duration `mapstructure:"dump"`
	Sync  time.Duration `mapstructure:"sync"`
	Prune time.Duration `mapstructure:"prune"`
}

type RetentionConfig struct {
	// Increments is an rdiff-backup time spec such as 4W.
	Increments  string `mapstructure:"increments"`
	OffsiteDays int    `mapstructure:"offsite_days"`
}

type NotifyConfig struct {
	Recipients []string       `mapstructure:"recipients"`
	Email      EmailConfig    `mapstructure:"email"`
	Telegram   TelegramConfig `mapstructure:"telegram"`
}

type EmailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	// TLSPolicy is one of mandatory, opportunistic or none.
	TLSPolicy string `mapstructure:"tls_policy"`
}

type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
}

type OffsiteConfig struct {
	Compress bool            `mapstructure:"compress"`
	Targets  []OffsiteTarget `mapstructure:"targets"`
}

type OffsiteTarget struct {
	Type    string `mapstructure:"type"`
	Enabled bool   `mapstructure:"enabled"`

	// Local directory
	Path string `mapstructure:"path"`

	// Google Drive
	CredentialsFile string `mapstructure:"credentials_file"`
	FolderID        string `mapstructure:"folder_id"`

	// AWS S3
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
	Endpoint  string `mapstructure:"endpoint"`

	// Telegram
	BotToken   string `mapstructure:"bot_token"`
	ChatID     string `mapstructure:"chat_id"`
	SendFile   bool   `mapstructure:"send_file"`
	NotifyOnly bool   `mapstructure:"notify_only"`
}

type ScheduleConfig struct {
	Backup string `mapstructure:"backup"`
	Health string `mapstructure:"health"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("REPLGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.name", "replguard")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_quiet", false)
	v.SetDefault("paths.cache_dir", "/var/cache/replguard")
	v.SetDefault("paths.tmp_dir", os.TempDir())
	v.SetDefault("timeouts.query", 5*time.Minute)
	v.SetDefault("timeouts.dump", time.Hour)
	v.SetDefault("timeouts.sync", time.Hour)
	v.SetDefault("timeouts.prune", time.Hour)
	v.SetDefault("retention.increments", "4W")
	v.SetDefault("retention.offsite_days", 28)
	v.SetDefault("notify.email.smtp_port", 587)
	v.SetDefault("notify.email.tls_policy", "opportunistic")
	v.SetDefault("offsite.compress", true)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Servers) == 0 {
		return domain.ErrNoServers
	}

	seen := make(map[string]bool, len(c.Servers))
	for i, s := range c.Servers {
		if s.ID == "" {
			return fmt.Errorf("servers[%d]: id is required", i)
		}
		if seen[s.ID] {
			return fmt.Errorf("servers[%d]: duplicate id %q", i, s.ID)
		}
		seen[s.ID] = true
		if s.Container == "" {
			return fmt.Errorf("servers[%d]: container is required", i)
		}
		if s.User == "" {
			return fmt.Errorf("servers[%d]: user is required", i)
		}
	}

	if c.Paths.BackupDir == "" {
		return errors.New("paths.backup_dir is required")
	}
	if len(c.Notify.Recipients) == 0 {
		return errors.New("notify.recipients is required")
	}
	if c.Notify.Telegram.Enabled && (c.Notify.Telegram.BotToken == "" || c.Notify.Telegram.ChatID == "") {
		return errors.New("notify.telegram: bot_token and chat_id are required when enabled")
	}

	return nil
}

// ServerList converts the configured servers, in file order, filling in
// default staging and durable directories.
func (c *Config) ServerList() []domain.Server {
	servers := make([]domain.Server, 0, len(c.Servers))
	for _, s := range c.Servers {
		staging := s.StagingDir
		if staging == "" {
			staging = filepath.Join(c.Paths.CacheDir, "tmp_dumps", s.ID)
		}
		durable := s.BackupDir
		if durable == "" {
			durable = filepath.Join(c.Paths.BackupDir, s.ID, "sqls")
		}
		servers = append(servers, domain.Server{
			ID:           s.ID,
			Container:    s.Container,
			User:         s.User,
			Password:     s.Password,
			PasswordFile: s.PasswordFile,
			StagingDir:   staging,
			BackupDir:    durable,
		})
	}
	return servers
}

func (c *Config) BackupLockPath() string {
	return filepath.Join(c.Paths.CacheDir, "backup.lock")
}

func (c *Config) HealthLockPath() string {
	return filepath.Join(c.Paths.TmpDir, "health.lock")
}

func (c *Config) EnabledOffsiteTargets() []OffsiteTarget {
	var enabled []OffsiteTarget
	for _, target := range c.Offsite.Targets {
		if target.Enabled {
			enabled = append(enabled, target)
		}
	}
	return enabled
}
