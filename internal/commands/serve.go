package commands

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/invoice-vouchers/internal/api"
	"github.com/joseph-ayodele/invoice-vouchers/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(e *env) *cobra.Command {
	var grpcAddr, httpAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the gRPC and HTTP APIs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if grpcAddr != "" {
				e.cfg.Server.GRPCAddr = grpcAddr
			}
			if httpAddr != "" {
				e.cfg.Server.HTTPAddr = httpAddr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := e.newApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close()

			return serve(ctx, e, a)
		},
	}
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "override server.grpc_addr")
	cmd.Flags().StringVar(&httpAddr, "http-addr", "", "override server.http_addr (empty disables HTTP)")
	return cmd
}

// serve runs both listeners until ctx is done or one of them fails.
func serve(ctx context.Context, e *env, a *app) error {
	grpcLis, err := net.Listen("tcp", e.cfg.Server.GRPCAddr)
	if err != nil {
		return errors.Wrapf(err, "listen %s", e.cfg.Server.GRPCAddr)
	}
	gs := server.New(a.service, e.log)

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		return gs.Serve(ctx, grpcLis)
	})

	if e.cfg.Server.HTTPAddr != "" {
		health := func(ctx context.Context) error { return a.db.HealthCheck(ctx, 0) }
		hs := &http.Server{
			Addr:              e.cfg.Server.HTTPAddr,
			Handler:           api.NewRouter(a.service, health, e.log),
			ReadHeaderTimeout: 10 * time.Second,
		}
		p.Go(func(ctx context.Context) error {
			return serveHTTP(ctx, hs, e.log)
		})
	}

	err = p.Wait()
	e.log.Infow("serve.stopped", "error", err)
	return err
}

func serveHTTP(ctx context.Context, hs *http.Server, log *zap.SugaredLogger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Infow("http.serve", "addr", hs.Addr)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- errors.Wrap(err, "http serve")
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Infow("http.shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return errors.Wrap(hs.Shutdown(shutdownCtx), "http shutdown")
	}
}
