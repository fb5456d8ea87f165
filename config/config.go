// Package config loads grabcast settings from defaults, an optional
// grabcast.yaml and environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all runtime settings.
type Config struct {
	Transport string `mapstructure:"transport"` // "stdio" or "http"
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`

	AuthToken  string `mapstructure:"auth_token"`
	OwnerPhone string `mapstructure:"owner_phone"`

	StorageBackend string `mapstructure:"storage_backend"` // "s3" or "local"

	WasabiAccessKey string `mapstructure:"wasabi_access_key"`
	WasabiSecretKey string `mapstructure:"wasabi_secret_key"`
	WasabiBucket    string `mapstructure:"wasabi_bucket_name"`
	WasabiRegion    string `mapstructure:"wasabi_region"`
	WasabiEndpoint  string `mapstructure:"wasabi_endpoint_url"`

	FilesDir      string `mapstructure:"files_dir"`
	PublicBaseURL string `mapstructure:"public_base_url"`

	Format      string `mapstructure:"format"`
	CookiesFile string `mapstructure:"cookies_file"`
	LinkTTLSecs int    `mapstructure:"link_ttl"`

	StoreDir         string `mapstructure:"store_dir"`
	DiagnosticsLevel string `mapstructure:"diagnostics_level"`
}

var defaults = map[string]any{
	"transport":         "http",
	"host":              "0.0.0.0",
	"port":              8000,
	"storage_backend":   "s3",
	"wasabi_region":     "us-east-1",
	"files_dir":         "files",
	"format":            "best[height<=720]/best",
	"link_ttl":          86400,
	"store_dir":         "store",
	"diagnostics_level": "info",
}

// Environment variables carried over from earlier deployments. Bound in
// addition to the GRABCAST_ prefixed names.
var envAliases = map[string][]string{
	"host":                {"HOST"},
	"port":                {"PORT"},
	"auth_token":          {"AUTH_TOKEN"},
	"owner_phone":         {"MY_NUMBER"},
	"wasabi_access_key":   {"WASABI_ACCESS_KEY"},
	"wasabi_secret_key":   {"WASABI_SECRET_KEY"},
	"wasabi_bucket_name":  {"WASABI_BUCKET_NAME"},
	"wasabi_region":       {"WASABI_REGION"},
	"wasabi_endpoint_url": {"WASABI_ENDPOINT_URL"},
}

// Load reads configuration. An empty path means only the standard locations
// are searched; a missing config file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("grabcast")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if path != "" {
		v.SetConfigFile(path)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	v.AutomaticEnv()
	v.AllowEmptyEnv(true)
	v.SetEnvPrefix("grabcast")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	for key, names := range envAliases {
		args := append([]string{key, "GRABCAST_" + strings.ToUpper(key)}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, err
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	switch c.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("unknown transport %q (want stdio or http)", c.Transport)
	}

	switch c.StorageBackend {
	case "s3":
		if c.WasabiAccessKey == "" || c.WasabiSecretKey == "" || c.WasabiBucket == "" {
			return fmt.Errorf("missing required Wasabi credentials (WASABI_ACCESS_KEY, WASABI_SECRET_KEY, WASABI_BUCKET_NAME)")
		}
	case "local":
		if c.FilesDir == "" {
			return fmt.Errorf("files_dir must be set for the local storage backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q (want s3 or local)", c.StorageBackend)
	}

	return nil
}
