package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-vouchers/internal/repository"
)

func newMigrateCommand(e *env) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if dryRun {
				stmts, err := repository.SchemaStatements(e.cfg.Database.Driver)
				if err != nil {
					return err
				}
				for _, s := range stmts {
					fmt.Fprintf(cmd.OutOrStdout(), "%s;\n\n", s)
				}
				return nil
			}
			db, err := e.openDB(cmd.Context())
			if err != nil {
				return err
			}
			return db.Close()
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the DDL instead of applying it")
	return cmd
}
