package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	persistence "example.com/dashboard/internal/persistence/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded schema migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, _, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		applied, err := persistence.Migrate(cmd.Context(), pool)
		if err != nil {
			return err
		}
		for _, name := range applied {
			fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
		}
		return nil
	},
}
