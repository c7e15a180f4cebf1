package cmd

import (
	"context"
	"fmt"

	"github.com/fairsailau/congabox2/internal/boxapi"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the Box developer token is accepted by the API",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := boxapi.NewClient(cfg.Box)
		if err != nil {
			return err
		}

		if !client.ValidateToken(context.Background()) {
			return fmt.Errorf("Box API rejected the developer token")
		}

		fmt.Println("Box API token validated.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
