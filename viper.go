package filex

import (
	"strings"

	"github.com/spf13/viper"
)

// envPrefix namespaces environment overrides, e.g. FILEX_FILES_BUCKET
const envPrefix = "FILEX"

// configKeys lists every key bound from the environment
var configKeys = []string{
	"provider", "disk", "bucket", "region",
	"endpoint", "endpoint_internal", "cdn_domain", "is_cname", "use_path_style",
	"access_key", "secret_key", "session_token",
	"use_sdk_defaults", "role_arn", "external_id", "profile", "validate_assume_role_credentials",
	"signed_url_ttl", "request_timeout", "max_retries", "backoff_initial", "backoff_max",
	"disable_ssl", "create_bucket", "enable_logging",
}

// NewViper returns a viper instance reading an optional filex.yaml and FILEX_* environment variables
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("filex")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/filex")

	// Config file is optional
	_ = v.ReadInConfig()

	return v
}

// LoadViperConfig reads the "files" section of v on top of DefaultConfig
func LoadViperConfig(v *viper.Viper) (*Config, error) {
	prefix := Config{}.Prefix()

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range configKeys {
		_ = v.BindEnv(prefix + "." + key)
	}

	// Resolve keys one by one so environment overrides apply to nested keys
	sub := viper.New()
	for _, key := range configKeys {
		if val := v.Get(prefix + "." + key); val != nil {
			sub.Set(key, val)
		}
	}

	return NewConfigFromLoader(viperLoader{sub})
}

// viperLoader narrows viper's Unmarshal to the NewConfigFromLoader signature
type viperLoader struct{ v *viper.Viper }

func (l viperLoader) Unmarshal(out any) error { return l.v.Unmarshal(out) }
