package httputil

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/kjk/todostore/log"
)

const shutdownTimeout = time.Second * 5

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
		Handler:      handler,
	}
}

// RunServer serves HTTP on addr until ctx is cancelled, then shuts down
// gracefully, waiting up to 5 seconds for in-flight requests.
// If ready is not nil, it's called with the listening address.
func RunServer(ctx context.Context, addr string, handler http.Handler, ready func(addr string)) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	httpSrv := NewServer(addr, handler)
	chServerClosed := make(chan error, 1)
	go func() {
		err := httpSrv.Serve(ln)
		// mute error caused by Shutdown()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		chServerClosed <- err
	}()
	log.Logf("listening on http://%s\n", ln.Addr().String())
	if ready != nil {
		ready(ln.Addr().String())
	}

	select {
	case err = <-chServerClosed:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = httpSrv.Shutdown(sctx)
	if err != nil {
		log.Logf("server shutdown failed with '%s'\n", err)
		return err
	}
	return <-chServerClosed
}
