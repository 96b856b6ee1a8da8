package transport

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/signalsfoundry/ccsds-mission-sim/internal/logging"
	"github.com/signalsfoundry/ccsds-mission-sim/mo"
)

// maxDatagram bounds inbound telecommand datagrams; CCSDS packets top
// out below 64 KiB.
const maxDatagram = 64 * 1024

// CommandHandler executes one raw telecommand packet. *mo.Handler
// satisfies it.
type CommandHandler interface {
	Handle(ctx context.Context, raw []byte) (mo.Result, error)
}

// CommandListener reads telecommand datagrams from a UDP socket and
// hands each one to the handler. A rejected or malformed datagram is
// logged and dropped; the listener keeps serving.
type CommandListener struct {
	conn    *net.UDPConn
	handler CommandHandler
	log     logging.Logger
}

// ListenerOption customises CommandListener construction.
type ListenerOption func(*CommandListener)

// WithListenerLogger attaches a structured logger.
func WithListenerLogger(log logging.Logger) ListenerOption {
	return func(l *CommandListener) {
		if log != nil {
			l.log = log
		}
	}
}

// NewCommandListener binds the uplink socket at addr (host:port).
func NewCommandListener(addr string, handler CommandHandler, opts ...ListenerOption) (*CommandListener, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve uplink address %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("listen uplink %q: %w", addr, err)
	}
	l := &CommandListener{conn: conn, handler: handler, log: logging.Noop()}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l, nil
}

// Addr reports the bound uplink address; useful when listening on an
// ephemeral port.
func (l *CommandListener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// Run serves uplink datagrams until ctx is cancelled. It returns nil on
// cancellation and the read error otherwise.
func (l *CommandListener) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		l.conn.Close()
	}()

	l.log.Info(ctx, "telecommand listener started",
		logging.String("addr", l.conn.LocalAddr().String()),
	)

	buf := make([]byte, maxDatagram)
	for {
		n, peer, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("uplink read: %w", err)
		}

		raw := make([]byte, n)
		copy(raw, buf[:n])

		res, err := l.handler.Handle(ctx, raw)
		if err != nil {
			l.log.Warn(ctx, "telecommand dropped",
				logging.String("peer", peer.String()),
				logging.String("command_id", res.CommandID),
				logging.Err(err),
			)
			continue
		}
		l.log.Info(ctx, "telecommand executed",
			logging.String("peer", peer.String()),
			logging.String("command_id", res.CommandID),
			logging.Int("service", int(res.ServiceType)),
			logging.Int("subtype", int(res.ServiceSubtype)),
		)
	}
}

// Close releases the uplink socket.
func (l *CommandListener) Close() error {
	return l.conn.Close()
}
