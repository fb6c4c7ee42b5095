package conf

import (
	"strings"

	"github.com/spf13/viper"
)

// Build-time values, stamped by the linker.
var (
	Version     = "0.0.0"
	VersionLong = "0.0.0-dev"
	BuildTime   = ""
)

// Config is the service configuration, loaded once at startup. The
// processor table never changes afterwards.
type Config struct {
	ListenAddr       string `mapstructure:"listen_addr"`
	LitEndpoint      string `mapstructure:"lit_endpoint"`
	LitNetwork       string `mapstructure:"lit_network"`
	DatabaseURL      string `mapstructure:"database_url"`
	OidcIssuer       string `mapstructure:"oidc_issuer"`
	EciesPrivateKey  string `mapstructure:"ecies_private_key"`
	GatewaySignerKey string `mapstructure:"gateway_signer_key"`
	KeyFormat        string `mapstructure:"key_format"`
	// Processors maps guardian addresses to their private keys. This is
	// operator secret material; supply it via the config file or
	// DRMKEYS_PROCESSORS.
	Processors map[string]string `mapstructure:"processors"`
}

// Load reads config.yaml (working directory or /etc/drmkeys) with
// DRMKEYS_* environment overrides.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/drmkeys")
	v.SetEnvPrefix("drmkeys")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_addr", "0.0.0.0:8080")
	v.SetDefault("lit_endpoint", "http://localhost:7470")
	v.SetDefault("lit_network", "datil")
	v.SetDefault("key_format", "hex")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}
	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, err
	}
	return config, nil
}
