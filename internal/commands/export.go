package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-vouchers/internal/server"
)

func newExportCommand(e *env) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write processed vouchers to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := a.service.ExportVouchers(cmd.Context())
			if err != nil {
				return err
			}
			if out == "" {
				out = server.ExportFileName(time.Now())
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return errors.Wrapf(err, "write %s", out)
			}
			e.log.Infow("export.ok", "path", out, "bytes", len(data))
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output path (default vouchers-<date>.xlsx)")
	return cmd
}
