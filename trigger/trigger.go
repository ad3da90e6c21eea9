// Package trigger implements a local Unix-domain socket channel for
// driving pushes out of band from the HTTP API: a listener accepts
// connections at PUSH_SOCKET_ADDR, and each connection's bytes become one
// push payload forwarded to the supplied handler.
package trigger

import (
	"context"
	"io"
	"net"
	"os"

	"github.com/chainguard-dev/clog"

	"github.com/arata-notify/webpush/perr"
)

// Listener accepts push-trigger connections on a Unix domain socket.
type Listener struct {
	ln   net.Listener
	addr string
}

// Listen binds a Unix domain socket at addr, unlinking any stale path
// left over from a previous run first.
func Listen(addr string) (*Listener, error) {
	if _, err := os.Stat(addr); err == nil {
		if err := os.Remove(addr); err != nil {
			return nil, perr.Wrap(perr.Config, "removing stale trigger socket", err)
		}
	}
	ln, err := net.Listen("unix", addr)
	if err != nil {
		return nil, perr.Wrap(perr.Config, "binding trigger socket", err)
	}
	return &Listener{ln: ln, addr: addr}, nil
}

// Close closes the listener and removes the socket file.
func (l *Listener) Close() error {
	err := l.ln.Close()
	_ = os.Remove(l.addr)
	return err
}

// Serve accepts connections until ctx is done or the listener closes,
// reading each connection fully and passing its bytes to handle. A
// handler error is logged but never stops the accept loop.
func (l *Listener) Serve(ctx context.Context, handle func(ctx context.Context, payload []byte) error) error {
	go func() {
		<-ctx.Done()
		l.Close()
	}()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return perr.Wrap(perr.NetworkFailure, "accepting trigger connection", err)
		}

		payload, err := io.ReadAll(conn)
		conn.Close()
		if err != nil {
			clog.Infof("trigger: reading connection: %v", err)
			continue
		}

		if err := handle(ctx, payload); err != nil {
			clog.Infof("trigger: handling payload: %v", err)
		}
	}
}
