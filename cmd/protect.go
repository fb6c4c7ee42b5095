package cmd

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/drmkeys/backend-go/internal/conf"
	"github.com/drmkeys/backend-go/pkg/protect"
)

// protectCmd represents the protect command
var protectCmd = &cobra.Command{
	Use:   "protect",
	Short: "Derive a content key and wrap it under every configured scheme",
	Run:   protectKey,
}

func init() {
	rootCmd.AddCommand(protectCmd)

	protectCmd.Flags().String("salt", "", "Salt to derive the pair from")
	protectCmd.Flags().String("authority", "", "Authority contract address")
	protectCmd.Flags().String("ledger", "", "Ledger reference for registration")
	protectCmd.Flags().Int("chain-id", 1, "Chain id")
	protectCmd.Flags().String("rpc", "", "Blockchain rpc endpoint")
	protectCmd.Flags().Bool("skip-ecies", false, "Skip the ECIES branch")
}

func protectKey(cmd *cobra.Command, args []string) {
	salt, err := cmd.Flags().GetString("salt")
	if err != nil {
		log.Fatal(err)
	}
	if salt == "" {
		log.Fatal("Must specify --salt")
	}
	authorityAddr, _ := cmd.Flags().GetString("authority")
	ledger, _ := cmd.Flags().GetString("ledger")
	chainID, _ := cmd.Flags().GetInt("chain-id")
	rpc, _ := cmd.Flags().GetString("rpc")
	skipEcies, _ := cmd.Flags().GetBool("skip-ecies")

	config, err := conf.Load()
	if err != nil {
		log.Fatal(err)
	}
	creator, _, err := buildCore(config)
	if err != nil {
		log.Fatal(err)
	}

	var protection *protect.ProtectionInput
	if authorityAddr != "" {
		protection = &protect.ProtectionInput{
			Authority: authorityAddr,
			Ledger:    ledger,
			ChainID:   chainID,
			RPC:       rpc,
		}
	}
	result, err := creator.CreateAll(cmd.Context(), protect.CreateRequest{
		Salt:       salt,
		Protection: protection,
		SkipEcies:  skipEcies,
	})
	if err != nil {
		log.Fatal(err)
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(out))
}
