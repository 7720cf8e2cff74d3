// Package listener hardens the daemon's accept loop. Transient accept
// failures (too many open files, aborted handshakes) are logged and retried
// instead of tearing down the HTTP server.
package listener

import (
	"errors"
	"net"

	"github.com/rs/zerolog"
)

// ResilientListener wraps a net.Listener so that recoverable accept errors
// are swallowed and the loop keeps serving.
type ResilientListener struct {
	net.Listener
	logger zerolog.Logger
}

func NewResilientListener(listenerToWrap net.Listener, logger zerolog.Logger) *ResilientListener {
	return &ResilientListener{Listener: listenerToWrap, logger: logger}
}

// Accept retries after recoverable errors. Only a closed listener
// propagates, which is how the HTTP server learns it should shut down.
func (l *ResilientListener) Accept() (net.Conn, error) {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil, err
			}
			l.logger.Warn().Err(err).Msg("recoverable listener error, connection rejected")
			continue
		}
		return conn, nil
	}
}
