// internal/config/config.go
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Database struct {
		Host       string `json:"host"`
		Port       string `json:"port"`
		User       string `json:"user"`
		Password   string `json:"password"`
		Name       string `json:"name"`
		SSLMode    string `json:"sslmode"`
		SearchPath string `json:"schema"`
	} `json:"database"`
	// OrgJWT signs tokens for organization users.
	OrgJWT struct {
		Secret       string        `json:"secret"`
		ExpiryPeriod time.Duration `json:"expiry_period"`
	} `json:"org_jwt"`
	// AdminJWT signs tokens for platform admins. Separate secret, shorter lifetime.
	AdminJWT struct {
		Secret       string        `json:"secret"`
		ExpiryPeriod time.Duration `json:"expiry_period"`
	} `json:"admin_jwt"`
	Server struct {
		Port         string        `json:"port"`
		ReadTimeout  time.Duration `json:"read_timeout"`
		WriteTimeout time.Duration `json:"write_timeout"`
	}
	Tenancy struct {
		// AllowOrgHeaderFallback lets unauthenticated requests select an
		// organization with the x-org-id header.
		AllowOrgHeaderFallback bool `json:"allow_org_header_fallback"`
		// AnonymousTicketSubmit allows ticket creation without an identity
		// when the header fallback is in use.
		AnonymousTicketSubmit bool `json:"anonymous_ticket_submit"`
	} `json:"tenancy"`
	Permissions struct {
		// CacheTTL of zero disables caching of resolved grants.
		CacheTTL time.Duration `json:"cache_ttl"`
	} `json:"permissions"`
	SetupToken struct {
		TTL        time.Duration `json:"ttl"`
		RatePerSec int           `json:"rate_per_second"`
		RateBurst  int           `json:"rate_burst"`
	} `json:"setup_token"`
	Email struct {
		Provider string `json:"provider"`
		FromName string `json:"from_name"`
	} `json:"email"`
	Sendgrid struct {
		APIKey string `json:"api_key"`
		From   string `json:"from"`
	} `json:"sendgrid"`
	SMTP map[string]struct {
		Host     string `json:"host"`
		Port     int    `json:"port"`
		Username string `json:"username"`
		Password string `json:"password"`
		From     string `json:"from"`
	} `json:"smtp"`
	BaseURL  string `json:"base_url"`
	LogLevel string `json:"log_level"`
}

func Load() *Config {
	cfg := &Config{}

	// Database configuration
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnv("DB_PORT", "5432")
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "")
	cfg.Database.Name = getEnv("DB_NAME", "campusops")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.SearchPath = getEnv("DB_SCHEMA", "public")

	// JWT configuration
	cfg.OrgJWT.Secret = getEnv("ORG_JWT_SECRET", "")
	cfg.OrgJWT.ExpiryPeriod = getEnvDuration("ORG_JWT_EXPIRY", 30*24*time.Hour)
	cfg.AdminJWT.Secret = getEnv("ADMIN_JWT_SECRET", "")
	cfg.AdminJWT.ExpiryPeriod = getEnvDuration("ADMIN_JWT_EXPIRY", 24*time.Hour)

	// Server configuration
	cfg.Server.Port = getEnv("SERVER_PORT", "8080")
	cfg.Server.ReadTimeout = time.Second * 15
	cfg.Server.WriteTimeout = time.Second * 15

	cfg.Tenancy.AllowOrgHeaderFallback = getEnvBool("ALLOW_ORG_HEADER_FALLBACK", false)
	cfg.Tenancy.AnonymousTicketSubmit = getEnvBool("ANONYMOUS_TICKET_SUBMIT", false)

	cfg.Permissions.CacheTTL = getEnvDuration("PERMISSION_CACHE_TTL", 0)

	cfg.SetupToken.TTL = getEnvDuration("SETUP_TOKEN_TTL", 72*time.Hour)
	cfg.SetupToken.RatePerSec = getEnvInt("SETUP_RATE_PER_SECOND", 2)
	cfg.SetupToken.RateBurst = getEnvInt("SETUP_RATE_BURST", 10)

	// Email configuration
	cfg.Email.Provider = getEnv("EMAIL_PROVIDER", "sendgrid")
	cfg.Email.FromName = getEnv("EMAIL_FROM_NAME", "Campus Ops")
	cfg.Sendgrid.APIKey = getEnv("SENDGRID_API_KEY", "")
	cfg.Sendgrid.From = getEnv("SENDGRID_FROM", "")
	if host := getEnv("SMTP_HOST", ""); host != "" {
		cfg.SMTP = map[string]struct {
			Host     string `json:"host"`
			Port     int    `json:"port"`
			Username string `json:"username"`
			Password string `json:"password"`
			From     string `json:"from"`
		}{
			"smtp": {
				Host:     host,
				Port:     getEnvInt("SMTP_PORT", 587),
				Username: getEnv("SMTP_USERNAME", ""),
				Password: getEnv("SMTP_PASSWORD", ""),
				From:     getEnv("SMTP_FROM", ""),
			},
		}
	}

	cfg.BaseURL = getEnv("BASE_URL", "http://localhost:3000")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")

	return cfg
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.OrgJWT.Secret == "" {
		errs = append(errs, errors.New("ORG_JWT_SECRET is required"))
	}
	if c.AdminJWT.Secret == "" {
		errs = append(errs, errors.New("ADMIN_JWT_SECRET is required"))
	}
	if c.OrgJWT.Secret != "" && c.OrgJWT.Secret == c.AdminJWT.Secret {
		errs = append(errs, errors.New("ORG_JWT_SECRET and ADMIN_JWT_SECRET must differ"))
	}
	if c.AdminJWT.ExpiryPeriod > c.OrgJWT.ExpiryPeriod {
		errs = append(errs, errors.New("ADMIN_JWT_EXPIRY must not exceed ORG_JWT_EXPIRY"))
	}
	if c.SetupToken.TTL <= 0 {
		errs = append(errs, errors.New("SETUP_TOKEN_TTL must be positive"))
	}
	return errors.Join(errs...)
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return "host=" + c.Database.Host +
		" port=" + c.Database.Port +
		" user=" + c.Database.User +
		" password=" + c.Database.Password +
		" dbname=" + c.Database.Name +
		" sslmode=" + c.Database.SSLMode +
		" search_path=" + c.Database.SearchPath
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return b
}

func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return d
}
