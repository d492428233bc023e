package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophidentity/internal/flagx"
	"github.com/dmitrijs2005/gophidentity/internal/timex"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for decoding config files. Durations use
// timex.Duration so both "5m" and integer nanoseconds are accepted.
type fileConfig struct {
	EndpointAddrHTTP string `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	EndpointAddrGRPC string `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDSN      string `json:"database_dsn" yaml:"database_dsn"`
	LogLevel         string `json:"log_level" yaml:"log_level"`

	SecretKey             string         `json:"secret_key" yaml:"secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration" yaml:"token_validity_duration"`
	CompatClaimName       string         `json:"compat_claim_name" yaml:"compat_claim_name"`
	CompatClaimValue      string         `json:"compat_claim_value" yaml:"compat_claim_value"`

	LockoutMaxFailedAttempts int            `json:"lockout_max_failed_attempts" yaml:"lockout_max_failed_attempts"`
	LockoutDuration          timex.Duration `json:"lockout_duration" yaml:"lockout_duration"`
	PasswordMinLength        int            `json:"password_min_length" yaml:"password_min_length"`
	PasswordDisallowUserName bool           `json:"password_disallow_username" yaml:"password_disallow_username"`
	BcryptCost               int            `json:"bcrypt_cost" yaml:"bcrypt_cost"`

	AdminRole              string   `json:"admin_role" yaml:"admin_role"`
	BootstrapAdminUser     string   `json:"bootstrap_admin_user" yaml:"bootstrap_admin_user"`
	BootstrapAdminPassword string   `json:"bootstrap_admin_password" yaml:"bootstrap_admin_password"`
	RoleReaderRoles        []string `json:"role_reader_roles" yaml:"role_reader_roles"`
	CORSAllowedOrigins     []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins"`

	RequestTimeout  timex.Duration `json:"request_timeout" yaml:"request_timeout"`
	ShutdownTimeout timex.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// parseFile overlays the file named by -c/-config onto config. Keys absent
// from the file keep their current values. The format is picked by
// extension: .yaml and .yml are YAML, everything else JSON.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	fc := toFileConfig(config)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, fc)
	default:
		err = json.Unmarshal(data, fc)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	fc.apply(config)
	return nil
}

func toFileConfig(c *Config) *fileConfig {
	return &fileConfig{
		EndpointAddrHTTP:         c.EndpointAddrHTTP,
		EndpointAddrGRPC:         c.EndpointAddrGRPC,
		DatabaseDSN:              c.DatabaseDSN,
		LogLevel:                 c.LogLevel,
		SecretKey:                c.SecretKey,
		TokenValidityDuration:    timex.Duration{Duration: c.TokenValidityDuration},
		CompatClaimName:          c.CompatClaimName,
		CompatClaimValue:         c.CompatClaimValue,
		LockoutMaxFailedAttempts: c.LockoutMaxFailedAttempts,
		LockoutDuration:          timex.Duration{Duration: c.LockoutDuration},
		PasswordMinLength:        c.PasswordMinLength,
		PasswordDisallowUserName: c.PasswordDisallowUserName,
		BcryptCost:               c.BcryptCost,
		AdminRole:                c.AdminRole,
		BootstrapAdminUser:       c.BootstrapAdminUser,
		BootstrapAdminPassword:   c.BootstrapAdminPassword,
		RoleReaderRoles:          c.RoleReaderRoles,
		CORSAllowedOrigins:       c.CORSAllowedOrigins,
		RequestTimeout:           timex.Duration{Duration: c.RequestTimeout},
		ShutdownTimeout:          timex.Duration{Duration: c.ShutdownTimeout},
	}
}

func (fc *fileConfig) apply(c *Config) {
	c.EndpointAddrHTTP = fc.EndpointAddrHTTP
	c.EndpointAddrGRPC = fc.EndpointAddrGRPC
	c.DatabaseDSN = fc.DatabaseDSN
	c.LogLevel = fc.LogLevel
	c.SecretKey = fc.SecretKey
	c.TokenValidityDuration = fc.TokenValidityDuration.Duration
	c.CompatClaimName = fc.CompatClaimName
	c.CompatClaimValue = fc.CompatClaimValue
	c.LockoutMaxFailedAttempts = fc.LockoutMaxFailedAttempts
	c.LockoutDuration = fc.LockoutDuration.Duration
	c.PasswordMinLength = fc.PasswordMinLength
	c.PasswordDisallowUserName = fc.PasswordDisallowUserName
	c.BcryptCost = fc.BcryptCost
	c.AdminRole = fc.AdminRole
	c.BootstrapAdminUser = fc.BootstrapAdminUser
	c.BootstrapAdminPassword = fc.BootstrapAdminPassword
	c.RoleReaderRoles = fc.RoleReaderRoles
	c.CORSAllowedOrigins = fc.CORSAllowedOrigins
	c.RequestTimeout = fc.RequestTimeout.Duration
	c.ShutdownTimeout = fc.ShutdownTimeout.Duration
}
