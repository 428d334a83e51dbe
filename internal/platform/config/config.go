// internal/platform/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr             string `yaml:"addr"`
	ShutdownTimeoutS int    `yaml:"shutdown_timeout_secs"`
}

// ShutdownTimeout returns the graceful shutdown window.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutS) * time.Second
}

// DatabaseConfig holds the postgres connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.DBName, c.SSLMode)
}

// AuthConfig holds token verification and account settings.
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	StudentDomain string `yaml:"student_domain"`
	AdminEmail    string `yaml:"admin_email"`
	AdminPassword string `yaml:"admin_password"`
}

// CirculationConfig holds the lending policy knobs.
type CirculationConfig struct {
	StudentLoanDays   int     `yaml:"student_loan_days"`
	FacultyLoanDays   int     `yaml:"faculty_loan_days"`
	StudentTokenLimit int     `yaml:"student_token_limit"`
	FacultyTokenLimit int     `yaml:"faculty_token_limit"`
	FineDailyRate     float64 `yaml:"fine_daily_rate"`
}

// TelemetryConfig holds the trace exporter settings. An empty endpoint
// disables export.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	ServiceName  string `yaml:"service_name"`
}

type Config struct {
	Server      ServerConfig      `yaml:"server"`
	DB          DatabaseConfig    `yaml:"database"`
	Auth        AuthConfig        `yaml:"auth"`
	Circulation CirculationConfig `yaml:"circulation"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
}

// Default returns the config used when a field is absent from the file.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:             ":8080",
			ShutdownTimeoutS: 10,
		},
		DB: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			SSLMode: "disable",
		},
		Auth: AuthConfig{
			StudentDomain: "cbit.edu.in",
			AdminEmail:    "admin@cbit.edu.in",
		},
		Circulation: CirculationConfig{
			StudentLoanDays:   14,
			FacultyLoanDays:   30,
			StudentTokenLimit: 3,
			FacultyTokenLimit: 10,
			FineDailyRate:     5.0,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "biblios",
		},
	}
}

// Load reads the yaml file at path over the defaults. BIBLIOS_JWT_SECRET and
// BIBLIOS_DB_PASSWORD override the file so secrets can stay out of it.
func Load(path string) (*Config, error) {
	cfg := Default()

	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if v := os.Getenv("BIBLIOS_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("BIBLIOS_DB_PASSWORD"); v != "" {
		cfg.DB.Password = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: jwt secret is required")
	}
	if c.Circulation.StudentLoanDays <= 0 || c.Circulation.FacultyLoanDays <= 0 {
		return fmt.Errorf("config: loan periods must be positive")
	}
	if c.Circulation.FineDailyRate < 0 {
		return fmt.Errorf("config: fine rate must not be negative")
	}
	return nil
}
