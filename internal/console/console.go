// Package console implements the operator's side of the drone protocol:
// a TCP server that accepts the drone's telemetry stream and prints it,
// and a UDP sender that encodes command words typed on stdin into Action
// datagrams. The spec treats this side as an external collaborator
// (interface-only); this package is one concrete implementation of it.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strings"

	"github.com/ehrlich-b/droned/internal/logging"
	"github.com/ehrlich-b/droned/internal/region"
	"github.com/ehrlich-b/droned/internal/wire"
)

// Config holds the two addresses the console needs: where to listen for
// the drone's telemetry connection, and where to send flight commands.
type Config struct {
	ListenAddr string // operator_ip:telemetry_port, TCP
	DroneAddr  string // drone_ip:flight_ctrl_port, UDP
}

// commandWords maps the case-insensitive words read from stdin to their
// Action encoding.
var commandWords = map[string]region.Action{
	"fly":       region.Fly,
	"samplegps": region.SampleGPS,
	"land":      region.Land,
	"idle":      region.Idle,
	"charge":    region.Charge,
	"abort":     region.Abort,
}

// Console is the operator-facing console: a TCP telemetry listener, a UDP
// command sender, and a line reader for stdin commands.
type Console struct {
	cfg    Config
	logger *logging.Logger
	out    io.Writer
	in     io.Reader
}

// New creates a Console that prints telemetry to out and reads command
// words from in.
func New(cfg Config, logger *logging.Logger, out io.Writer, in io.Reader) *Console {
	return &Console{cfg: cfg, logger: logger, out: out, in: in}
}

// Run listens for the drone's telemetry connection (one current
// connection at a time; a newer one replaces it), dials the command UDP
// socket, and multiplexes telemetry lines, command words, and shutdown
// over a single select loop until ctx is canceled.
func (c *Console) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", c.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("console: listen %s: %w", c.cfg.ListenAddr, err)
	}
	defer ln.Close()

	udpAddr, err := net.ResolveUDPAddr("udp", c.cfg.DroneAddr)
	if err != nil {
		return fmt.Errorf("console: resolve %s: %w", c.cfg.DroneAddr, err)
	}
	udpConn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return fmt.Errorf("console: dial %s: %w", c.cfg.DroneAddr, err)
	}
	defer udpConn.Close()

	telemetryLines := make(chan string)
	acceptedConns := make(chan net.Conn, 1)
	commands := make(chan string)

	go c.acceptLoop(ctx, ln, acceptedConns)
	go c.stdinLoop(ctx, commands)

	var drone net.Conn
	defer func() {
		if drone != nil {
			drone.Close()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case conn := <-acceptedConns:
			if drone != nil {
				drone.Close()
			}
			drone = conn
			c.logger.Info("drone connected", "addr", conn.RemoteAddr().String())
			go c.readTelemetry(ctx, conn, telemetryLines)

		case line := <-telemetryLines:
			fmt.Fprintln(c.out, line)

		case word := <-commands:
			c.sendCommand(udpConn, word)
		}
	}
}

// acceptLoop accepts exactly one connection at a time, replacing any
// prior one — the spec's "accepting one drone connection" taken as a
// standing invariant rather than a single lifetime event, so a
// respawned/reconnecting drone is not locked out.
func (c *Console) acceptLoop(ctx context.Context, ln net.Listener, out chan<- net.Conn) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Warn("accept failed", "error", err)
			continue
		}
		select {
		case out <- conn:
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}

// readTelemetry streams lines from the drone connection onto lines until
// EOF, an error, or ctx is done.
func (c *Console) readTelemetry(ctx context.Context, conn net.Conn, lines chan<- string) {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		select {
		case lines <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
}

// stdinLoop reads command words from c.in, one per line, with surrounding
// whitespace trimmed and blank lines skipped.
func (c *Console) stdinLoop(ctx context.Context, out chan<- string) {
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() {
		word := strings.TrimSpace(scanner.Text())
		if word == "" {
			continue
		}
		select {
		case out <- word:
		case <-ctx.Done():
			return
		}
	}
}

// sendCommand encodes a recognized command word as an Action datagram
// and sends it to the drone. An unrecognized word prints a usage hint
// and is not sent.
func (c *Console) sendCommand(conn *net.UDPConn, word string) {
	action, ok := commandWords[strings.ToLower(word)]
	if !ok {
		fmt.Fprintf(c.out, "unrecognized command %q, expected one of: fly samplegps land idle charge abort\n", word)
		return
	}
	if _, err := conn.Write(wire.EncodeAction(action)); err != nil {
		c.logger.Warn("send command failed", "action", action.String(), "error", err)
	}
}
