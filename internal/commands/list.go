package commands

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-vouchers/internal/entity"
)

func newListCommand(e *env) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List processed invoices, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := e.newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			items, err := a.service.ListProcessedInvoices(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), items)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tVENDOR\tNUMBER\tDATE\tTOTAL\tCLASSIFICATION\tCATEGORY")
			for _, it := range items {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					it.Invoice.ID, it.Invoice.VendorName, it.Invoice.InvoiceNumber,
					it.Invoice.InvoiceDate.String(), it.Invoice.TotalAmount.StringFixed(2),
					classification(it.Voucher), category(it.Voucher))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

func newShowCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <invoice-id>",
		Short: "Print one invoice with its voucher and processing logs as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return errors.Newf("invalid invoice id %q", args[0])
			}
			a, err := e.newApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.service.GetInvoice(cmd.Context(), id)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
}

func classification(v *entity.Voucher) string {
	if v == nil {
		return "-"
	}
	return v.AccountClassification
}

func category(v *entity.Voucher) string {
	if v == nil {
		return "-"
	}
	return v.ExpenseCategory
}
