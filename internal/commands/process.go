package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/h2non/filetype"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-vouchers/constants"
	"github.com/joseph-ayodele/invoice-vouchers/internal/common"
	"github.com/joseph-ayodele/invoice-vouchers/internal/ingest"
	"github.com/joseph-ayodele/invoice-vouchers/internal/pipeline"
	"github.com/joseph-ayodele/invoice-vouchers/internal/services/invoice"
)

type processResult struct {
	index int
	path  string
	resp  *invoice.ProcessResponse
	err   error
}

func newProcessCommand(e *env) *cobra.Command {
	var (
		concurrency int
		asJSON      bool
		dir         string
		skipHidden  bool
	)

	cmd := &cobra.Command{
		Use:   "process [image]...",
		Short: "Run invoice images through the pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if dir != "" {
				found, err := ingest.Discover(dir, skipHidden)
				if err != nil {
					return err
				}
				args = append(args, found...)
			}
			if len(args) == 0 {
				return errors.New("no invoice images given")
			}
			a, err := e.newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			results := processFiles(ctx, a.service, args, concurrency)
			failed := lo.CountBy(results, func(r processResult) bool { return r.err != nil })

			out := cmd.OutOrStdout()
			if asJSON {
				if err := writeJSON(out, lo.Map(results, func(r processResult, _ int) processSummary {
					return summarize(r)
				})); err != nil {
					return err
				}
			} else {
				for _, r := range results {
					printSummary(out, summarize(r))
				}
			}

			e.log.Infow("process.done", "files", len(results), "failed", failed)
			if failed > 0 {
				return errors.Newf("%d of %d invoices failed", failed, len(results))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "invoices processed in parallel")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	cmd.Flags().StringVar(&dir, "dir", "", "also process every image under this directory")
	cmd.Flags().BoolVar(&skipHidden, "skip-hidden", true, "skip dot files and directories under --dir")
	return cmd
}

// processFiles runs paths through svc with at most concurrency runs in
// flight. Results keep the order of paths.
func processFiles(ctx context.Context, svc *invoice.Service, paths []string, concurrency int) []processResult {
	if concurrency < 1 {
		concurrency = 1
	}
	p := pool.NewWithResults[processResult]().WithContext(ctx).WithMaxGoroutines(concurrency)
	for i, path := range paths {
		p.Go(func(ctx context.Context) (processResult, error) {
			resp, err := processFile(ctx, svc, path)
			return processResult{index: i, path: path, resp: resp, err: err}, nil
		})
	}
	// per-file errors live in processResult, so Wait never fails
	results, _ := p.Wait()
	sort.Slice(results, func(a, b int) bool { return results[a].index < results[b].index })
	return results
}

func processFile(ctx context.Context, svc *invoice.Service, path string) (*invoice.ProcessResponse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return svc.ProcessUpload(ctx, pipeline.Upload{
		Data:     data,
		FileName: filepath.Base(path),
		MimeType: detectMime(path, data),
	})
}

// detectMime prefers the content signature and falls back to the extension.
func detectMime(path string, data []byte) string {
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	ext := constants.NormalizeExt(filepath.Ext(path))
	if t := filetype.GetType(ext); t != filetype.Unknown {
		return t.MIME.Value
	}
	return "application/octet-stream"
}

func printSummary(w io.Writer, s processSummary) {
	if s.Error != "" {
		fmt.Fprintf(w, "FAIL  %s  stage=%s  %s\n", s.Path, s.Stage, s.Error)
		return
	}
	fmt.Fprintf(w, "OK    %s  invoice=%d  voucher=%d  total=%s\n", s.Path, s.InvoiceID, s.VoucherID, s.Total)
}

type processSummary struct {
	Path      string `json:"path"`
	InvoiceID int64  `json:"invoiceId,omitempty"`
	VoucherID int64  `json:"voucherId,omitempty"`
	Total     string `json:"total,omitempty"`
	Stage     string `json:"stage,omitempty"`
	Error     string `json:"error,omitempty"`
}

func summarize(r processResult) processSummary {
	s := processSummary{Path: r.path}
	if r.err != nil {
		s.Error = r.err.Error()
		s.Stage = "upload"
		var pf *common.ProcessingFailedError
		if errors.As(r.err, &pf) {
			s.Stage = string(pf.Stage)
		}
		return s
	}
	s.InvoiceID = r.resp.Invoice.ID
	s.VoucherID = r.resp.Voucher.ID
	s.Total = r.resp.Invoice.TotalAmount.StringFixed(2)
	return s
}
