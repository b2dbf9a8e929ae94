package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"marketchat/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		repos, err := store.Open(cfg, true)
		if err != nil {
			return fmt.Errorf("migrate %s: %w", cfg.DBDriver, err)
		}
		defer repos.Close()
		logger.Info("schema applied", "driver", cfg.DBDriver)
		return nil
	},
}
