package commands

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-vouchers/internal/ingest"
)

func newWatchCommand(e *env) *cobra.Command {
	var (
		concurrency int
		initialScan bool
		debounce    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch <dir>...",
		Short: "Process invoice images as they appear in directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := e.newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			events, errs, err := ingest.Watch(ctx, ingest.WatchConfig{
				Roots:       args,
				InitialScan: initialScan,
				SkipHidden:  true,
				Debounce:    debounce,
			}, e.log)
			if err != nil {
				return err
			}
			return watchLoop(ctx, e, a, events, errs, concurrency)
		},
	}
	cmd.Flags().IntVar(&concurrency, "concurrency", 2, "invoices processed in parallel")
	cmd.Flags().BoolVar(&initialScan, "initial-scan", false, "also process images already present")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "quiet period before a new file is picked up")
	return cmd
}

// watchLoop submits every event until the channel closes. A path seen
// again while its run is in flight is skipped.
func watchLoop(ctx context.Context, e *env, a *app, events <-chan string, errs <-chan error, concurrency int) error {
	if concurrency < 1 {
		concurrency = 1
	}
	p := pool.New().WithMaxGoroutines(concurrency)
	var (
		mu     sync.Mutex
		active = map[string]bool{}
	)
	claim := func(path string) bool {
		mu.Lock()
		defer mu.Unlock()
		if active[path] {
			return false
		}
		active[path] = true
		return true
	}
	release := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		delete(active, path)
	}

	var processed, failed int
	for events != nil || errs != nil {
		select {
		case path, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !claim(path) {
				continue
			}
			p.Go(func() {
				defer release(path)
				// runs already started finish after shutdown is requested
				resp, err := processFile(context.WithoutCancel(ctx), a.service, path)
				s := summarize(processResult{path: path, resp: resp, err: err})
				mu.Lock()
				processed++
				if err != nil {
					failed++
				}
				mu.Unlock()
				if err != nil {
					e.log.Warnw("watch.process.failed", "path", path, "stage", s.Stage, "error", err)
					return
				}
				e.log.Infow("watch.process.ok", "path", path, "invoice_id", s.InvoiceID, "voucher_id", s.VoucherID)
			})
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			e.log.Warnw("watch.error", "error", err)
		}
	}
	p.Wait()
	e.log.Infow("watch.stopped", "processed", processed, "failed", failed)
	return nil
}
