package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"go.bug.st/serial"

	"github.com/aquamet/ecbridge/pkg/bridge"
	"github.com/aquamet/ecbridge/pkg/config"
	"github.com/aquamet/ecbridge/pkg/ezo"
	"github.com/aquamet/ecbridge/pkg/publish"
)

func main() {
	var (
		configFlag = flag.String("config", "config.yaml", "Configuration file path")
		probeFlag  = flag.String("p", "", "Probe serial port override (e.g., COM3 or /dev/ttyUSB0)")
		hostFlag   = flag.String("host", "", "Host terminal serial port override (default: stdin/stdout)")
		mockFlag   = flag.Bool("mock", false, "Use a simulated probe instead of a serial port")
		debugFlag  = flag.Bool("debug", false, "Enable debug diagnostics")
	)
	flag.Parse()

	logger := newLogger(*debugFlag)

	cfg, err := config.Load(*configFlag)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *probeFlag != "" {
		cfg.Probe.Port = *probeFlag
	}
	if *hostFlag != "" {
		cfg.Host.Port = *hostFlag
	}

	clock := ezo.SystemClock{}

	host, err := openHost(cfg)
	if err != nil {
		logger.Error("failed to open host channel", "error", err)
		os.Exit(1)
	}

	probe, err := openProbe(cfg, clock, *mockFlag)
	if err != nil {
		logger.Error("failed to open probe channel", "port", cfg.Probe.Port, "error", err)
		os.Exit(1)
	}

	link := ezo.NewLink(probe, clock, host)
	br := bridge.New(cfg, host, link, clock, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MQTT.Enabled {
		client := publish.NewClient(cfg.MQTT, logger)
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := client.Connect(connectCtx); err != nil {
			logger.Warn("mqtt connect failed, continuing without telemetry", "error", err)
		} else {
			br.SetPublisher(client)
			defer client.Disconnect()
		}
		cancel()
	}

	logger.Info("bridge running", "probe", cfg.Probe.Port, "mock", *mockFlag)
	if err := br.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bridge stopped", "error", err)
		os.Exit(1)
	}
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})
	return slog.New(h).With("app", "ecbridge")
}

func openHost(cfg *config.Config) (ezo.ByteStream, error) {
	if cfg.Host.Port == "" {
		return newConsoleStream(os.Stdin, os.Stdout), nil
	}
	return openPort(cfg.Host.Port, cfg.Host.Baud)
}

func openProbe(cfg *config.Config, clock ezo.Clock, mock bool) (ezo.ByteStream, error) {
	if mock {
		return ezo.NewMock(&cfg.Mock, clock), nil
	}
	return openPort(cfg.Probe.Port, cfg.Probe.Baud)
}

func openPort(name string, baud int) (*portStream, error) {
	port, err := serial.Open(name, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, err
	}
	// Short read timeout turns the blocking port into a pollable stream.
	if err := port.SetReadTimeout(time.Millisecond); err != nil {
		port.Close()
		return nil, err
	}
	return &portStream{port: port}, nil
}

// portStream adapts a serial port to the bridge's polled byte stream.
type portStream struct {
	port serial.Port
}

var _ ezo.ByteStream = (*portStream)(nil)

func (p *portStream) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

func (p *portStream) ReadByte() (byte, bool) {
	var buf [1]byte
	n, err := p.port.Read(buf[:])
	if err != nil || n == 0 {
		return 0, false
	}
	return buf[0], true
}

// consoleStream adapts stdin/stdout to the byte stream interface. Stdin has
// no non-blocking read, so a goroutine pumps bytes into a channel the
// bridge loop polls.
type consoleStream struct {
	w  io.Writer
	ch chan byte
}

var _ ezo.ByteStream = (*consoleStream)(nil)

func newConsoleStream(r io.Reader, w io.Writer) *consoleStream {
	s := &consoleStream{w: w, ch: make(chan byte, 256)}
	go func() {
		var buf [1]byte
		for {
			n, err := r.Read(buf[:])
			if n > 0 {
				s.ch <- buf[0]
			}
			if err != nil {
				close(s.ch)
				return
			}
		}
	}()
	return s
}

func (s *consoleStream) Write(b []byte) (int, error) {
	return s.w.Write(b)
}

func (s *consoleStream) ReadByte() (byte, bool) {
	select {
	case b, ok := <-s.ch:
		if !ok {
			return 0, false
		}
		return b, true
	default:
		return 0, false
	}
}
