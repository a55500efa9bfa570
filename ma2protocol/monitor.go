package ma2protocol

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"sync"
)

// LineHandler receives one line of monitor output without ANSI escapes.
type LineHandler func(line string)

// Monitor follows the read-only log port of a console. It never sends
// commands; Credentials, if set, are used for the login some console
// versions require on that port.
type Monitor struct {
	Dialer      Dialer
	Logger      *slog.Logger
	Credentials *Credentials
}

// Run connects to ep and passes each received line to handle until ctx
// ends, which returns nil, or the transport fails.
func (m *Monitor) Run(ctx context.Context, ep Endpoint, handle LineHandler) error {
	dialer := m.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	log := m.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	dialCtx, cancel := context.WithTimeout(ctx, DefaultConnectTimeout)
	conn, err := dialer.DialContext(dialCtx, "tcp", ep.String())
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		if dialCtx.Err() != nil {
			return &ConnectTimeoutError{Endpoint: ep, Stage: Connecting, Err: dialCtx.Err()}
		}
		return &TransportError{Op: "dial", Endpoint: ep, Err: err}
	}
	defer conn.Close()

	// Unblock the reader when ctx ends.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	var wmu sync.Mutex
	if m.Credentials != nil {
		wire, _, err := loginLine(*m.Credentials)
		if err != nil {
			return err
		}
		if _, err := conn.Write([]byte(wire + LineTerminator)); err != nil {
			return &TransportError{Op: "write", Endpoint: ep, Err: err}
		}
	}
	log.Info("monitoring", "endpoint", ep.String())

	scanner := bufio.NewScanner(newTelnetReader(conn, conn, &wmu))
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := strings.TrimRight(StripANSI(scanner.Text()), "\r")
		if line == "" {
			continue
		}
		handle(line)
	}

	err = scanner.Err()
	if ctx.Err() != nil {
		return nil
	}
	if err == nil || errors.Is(err, net.ErrClosed) {
		err = errors.New("monitor connection closed by console")
	}
	return &TransportError{Op: "read", Endpoint: ep, Err: err}
}
