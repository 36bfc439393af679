package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/rs/zerolog"
)

// listenAndServe binds srv.Addr and serves until ctx is done or serving
// fails. A bind error is returned directly.
func listenAndServe(ctx context.Context, srv *http.Server, logger zerolog.Logger) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}
	logger.Info().Str("address", ln.Addr().String()).Msg("listening")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// shutdown drains srv within ctx. Calling it on a server that never
// started is a no-op.
func shutdown(ctx context.Context, srv *http.Server, logger zerolog.Logger) error {
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("shutdown did not complete")
		return err
	}
	logger.Info().Msg("stopped")
	return nil
}
