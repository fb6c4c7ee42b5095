package cmd

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/drmkeys/backend-go/pkg/keys"
)

// deriveCmd represents the derive command
var deriveCmd = &cobra.Command{
	Use:   "derive",
	Short: "Derive a (kid, key) pair from a salt",
	Run:   derive,
}

func init() {
	rootCmd.AddCommand(deriveCmd)

	deriveCmd.Flags().String("salt", "", "Salt to derive the pair from")
}

func derive(cmd *cobra.Command, args []string) {
	salt, err := cmd.Flags().GetString("salt")
	if err != nil {
		log.Fatal(err)
	}
	if salt == "" {
		log.Fatal("Must specify --salt")
	}
	pair, err := keys.Derive(salt)
	if err != nil {
		log.Fatal(err)
	}
	out, err := json.Marshal(pair)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(string(out))
}
