//go:build linux

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
	"golang.org/x/term"

	"github.com/srodi/proctop/pkg/config"
	"github.com/srodi/proctop/pkg/logging"
	"github.com/srodi/proctop/pkg/metrics"
	"github.com/srodi/proctop/pkg/report"
	"github.com/srodi/proctop/pkg/source"
	"github.com/srodi/proctop/pkg/system"
	"github.com/srodi/proctop/pkg/types"
	"github.com/srodi/proctop/pkg/ui"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitConfig      = 4
	exitInterrupted = 130
)

// sampler is the part of system.System the poll loop drives.
type sampler interface {
	Sample() types.Frame
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := config.Parse(args, stderr)
	if err != nil {
		if errors.Is(err, config.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "proctop: %v\n", err)
		return exitConfig
	}

	logger, closer, err := logging.Open(cfg.LogFile, "main", cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		fmt.Fprintf(stderr, "proctop: %v\n", err)
		return exitFailure
	}
	defer closer.Close()

	src, err := source.New(source.WithLogger(logger.With().Str("component", "source").Logger()))
	if err != nil {
		logger.Error().Err(err).Msg("initializing process source")
		fmt.Fprintf(stderr, "proctop: %v\n", err)
		return exitFailure
	}
	sys := system.New(src, system.WithLogger(logger))

	var exporter *metrics.Exporter
	if cfg.Textfile != "" {
		exporter = metrics.New(cfg.Textfile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cleanupTerminal := enableSingleView(logger)
	defer cleanupTerminal()

	logger.Info().Dur("interval", cfg.Interval).Int("topk", cfg.TopK).Float64("clk_tck", src.ClockTicks()).Msg("starting")

	displays := make(chan config.Display, 1)
	g, gctx := errgroup.WithContext(ctx)
	if cfg.File != "" {
		watcher, err := config.NewWatcher(cfg, logger.With().Str("component", "config").Logger())
		if err != nil {
			logger.Warn().Err(err).Msg("config reload disabled")
		} else {
			g.Go(func() error { return watcher.Run(gctx, displays) })
		}
	}
	g.Go(func() error { return pollLoop(gctx, sys, exporter, cfg, displays, stdout, logger) })

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("poll loop failed")
		cleanupTerminal()
		fmt.Fprintf(stderr, "proctop: %v\n", err)
		return exitFailure
	}
	if ctx.Err() != nil {
		logger.Info().Msg("interrupted")
		return exitInterrupted
	}
	return exitOK
}

// pollLoop samples once immediately and then on every tick until ctx ends.
// A display setting change redraws the last frame without sampling, so the
// counters keep their fixed cadence.
func pollLoop(ctx context.Context, sys sampler, exporter *metrics.Exporter, cfg config.Config,
	displays <-chan config.Display, out io.Writer, logger zerolog.Logger) error {
	display := cfg.Display()
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	frame := sys.Sample()
	for {
		if err := publish(frame, exporter, cfg.Interval, display, out, logger); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case d := <-displays:
			display = d
		case <-ticker.C:
			frame = sys.Sample()
		}
	}
}

// publish exports and renders frame with the current display settings.
func publish(frame types.Frame, exporter *metrics.Exporter, interval time.Duration,
	display config.Display, out io.Writer, logger zerolog.Logger) error {
	filter := report.FilterConfig{HideKernel: &display.HideKernel, User: display.User}

	if exporter != nil {
		exporter.Observe(frame, report.TopRows(report.FilterRows(frame.Processes, filter), display.TopK))
		if err := exporter.Write(); err != nil {
			logger.Warn().Err(err).Msg("metrics textfile not updated")
		}
	}

	var buf bytes.Buffer
	buf.WriteString(clearScreen)
	opts := ui.RenderOptions{
		Interval:   interval,
		TopK:       display.TopK,
		Filter:     filter,
		Updated:    time.Now(),
		ShowBanner: true,
	}
	if err := ui.RenderFrame(&buf, frame, opts); err != nil {
		return err
	}
	if _, err := out.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

const clearScreen = "\033[H\033[2J"

func enableSingleView(logger zerolog.Logger) func() {
	stdoutFD := int(os.Stdout.Fd())
	stdinFD := int(os.Stdin.Fd())
	if !term.IsTerminal(stdoutFD) {
		return func() {}
	}

	fmt.Print("\033[?1049h") // switch to alternate buffer
	fmt.Print("\033[?25l")   // hide cursor

	var restore []func()
	if term.IsTerminal(stdinFD) {
		if undoEcho, err := disableInputEcho(stdinFD); err != nil {
			logger.Warn().Err(err).Msg("unable to suppress stdin echo")
		} else if undoEcho != nil {
			restore = append(restore, undoEcho)
		}
	}

	done := false
	return func() {
		if done {
			return
		}
		done = true
		for i := len(restore) - 1; i >= 0; i-- {
			restore[i]()
		}
		fmt.Print("\033[?25h")   // show cursor
		fmt.Print("\033[?1049l") // restore main buffer
	}
}

// disableInputEcho turns off stdin echo so the alternate-screen view stays clean.
func disableInputEcho(fd int) (func(), error) {
	termState, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return nil, err
	}

	updated := *termState
	updated.Lflag &^= unix.ECHO

	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &updated); err != nil {
		return nil, err
	}

	return func() {
		_ = unix.IoctlSetTermios(fd, unix.TCSETS, termState)
	}, nil
}
