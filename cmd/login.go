package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/drmkeys/backend-go/internal/auth"
)

type Credentials struct {
	Profile string        `toml:"profile"`
	Tokens  *oauth2.Token `toml:"tokens"`
}

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Obtain a service token for the configured profile",
	Run:   login,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	viper.AddConfigPath("$HOME/.drmkeys")
	viper.SetConfigName("config")
	viper.SetConfigType("toml")

	loginCmd.Flags().String("profile", "default", "Profile to use")
}

func login(cmd *cobra.Command, args []string) {
	if err := viper.ReadInConfig(); err != nil {
		fmt.Println("Can't read config:", err)
		os.Exit(1)
	}

	profile, err := cmd.Flags().GetString("profile")
	if err != nil {
		log.Fatal(err)
	}

	clientID := viper.GetString(fmt.Sprintf("profiles.%s.clientid", profile))
	clientSecret := viper.GetString(fmt.Sprintf("profiles.%s.clientsecret", profile))
	oidcEndpoint := viper.GetString(fmt.Sprintf("profiles.%s.oidcdiscoveryendpoint", profile))

	provider, err := oidc.NewProvider(cmd.Context(), oidcEndpoint)
	if err != nil {
		log.Fatal("could not discover oidc endpoints: ", err)
	}

	cc := &auth.ClientCredentials{
		Config: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     provider.Endpoint().TokenURL,
		},
	}
	tokens, err := cc.Login()
	if err != nil {
		log.Fatal("login failed: ", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		log.Fatal(err)
	}
	credentialsFile := filepath.Join(home, ".drmkeys", "credentials.toml")
	out, err := toml.Marshal(Credentials{Profile: profile, Tokens: tokens})
	if err != nil {
		log.Fatal(err)
	}
	if err := os.WriteFile(credentialsFile, out, 0o600); err != nil {
		log.Fatal(err)
	}
	fmt.Println("Logged in. Tokens written to", credentialsFile)
}
