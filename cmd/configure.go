package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type Config struct {
	Profiles map[string]ProfileConfig `toml:"profiles"`
}

type ProfileConfig struct {
	ServiceEndpoint       string `toml:"serviceendpoint"`
	OidcDiscoveryEndpoint string `toml:"oidcdiscoveryendpoint"`
	ClientID              string `toml:"clientid"`
	ClientSecret          string `toml:"clientsecret,omitempty"`
}

// configureCmd represents the configure command
var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Write a CLI profile",
	Run:   configure,
}

func init() {
	rootCmd.AddCommand(configureCmd)

	configureCmd.Flags().String("profile", "default", "Profile name")
	configureCmd.Flags().String("service-endpoint", "http://localhost:8080", "Key service endpoint")
	configureCmd.Flags().String("oidc-endpoint", "", "OIDC discovery endpoint")
	configureCmd.Flags().String("client-id", "", "Client ID")
	configureCmd.Flags().String("client-secret", "", "Client Secret")
}

func configure(cmd *cobra.Command, args []string) {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Fatal(err)
	}
	configDir := filepath.Join(home, ".drmkeys")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		log.Fatal(err)
	}
	configFile := filepath.Join(configDir, "config")

	viper.AddConfigPath(configDir)
	viper.SetConfigName("config")
	viper.SetConfigType("toml")

	var config Config
	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("Couldn't find config file, creating one...")
	} else if err := viper.Unmarshal(&config); err != nil {
		log.Fatal(err)
	}
	if config.Profiles == nil {
		config.Profiles = map[string]ProfileConfig{}
	}

	profile, _ := cmd.Flags().GetString("profile")
	serviceEndpoint, _ := cmd.Flags().GetString("service-endpoint")
	oidcEndpoint, _ := cmd.Flags().GetString("oidc-endpoint")
	clientID, _ := cmd.Flags().GetString("client-id")
	clientSecret, _ := cmd.Flags().GetString("client-secret")

	config.Profiles[profile] = ProfileConfig{
		ServiceEndpoint:       serviceEndpoint,
		OidcDiscoveryEndpoint: oidcEndpoint,
		ClientID:              clientID,
		ClientSecret:          clientSecret,
	}

	out, err := toml.Marshal(config)
	if err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(configFile, out, 0o600); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("Profile %q written to %s\n", profile, configFile)
}
