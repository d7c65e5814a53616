// go-ntag
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-ntag.
//
// go-ntag is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-ntag is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-ntag; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Command ntagtool reads, writes and configures NTAG213 tags through a
// PN532 reader.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ZaparooProject/go-ntag"
	"github.com/ZaparooProject/go-ntag/internal/config"
	"github.com/ZaparooProject/go-ntag/internal/logsetup"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

type options struct {
	configPath string
	device     string
	debug      bool
	trace      bool
}

func main() {
	os.Exit(mainWithExitCode(os.Args[1:], os.Stdout, os.Stderr))
}

func mainWithExitCode(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ntagtool", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var opts options
	fs.StringVar(&opts.configPath, "config", "", "Configuration file (default ./ntagtool.yaml)")
	fs.StringVar(&opts.device, "device", "", "Reader: serial port, I2C or SPI bus, or pcsc:<reader name>")
	fs.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	fs.BoolVar(&opts.trace, "trace", false, "Print OpenTelemetry spans to stderr")
	fs.Usage = func() {
		_, _ = fmt.Fprintf(stderr, "usage: ntagtool [flags] <command> [args]\n\ncommands:\n")
		printCommands(stderr)
		_, _ = fmt.Fprintf(stderr, "\nflags:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}

	inv, err := parseCommand(fs.Arg(0), fs.Args()[1:])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	if err := run(context.Background(), opts, inv, stdout, stderr); err != nil {
		if errors.Is(err, context.Canceled) {
			return exitOK
		}
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}

func run(ctx context.Context, opts options, inv *invocation, stdout, stderr io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.device != "" {
		cfg.Device = opts.device
	}
	if opts.debug {
		cfg.Log.Level = "debug"
	}
	if opts.trace {
		cfg.Trace = true
	}

	logger, cleanup, err := logsetup.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Trace {
		shutdown, err := setupTracing(stderr)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("failed to flush spans", zap.Error(err))
			}
		}()
	}

	if inv.cmd.local != nil {
		return inv.cmd.local(stdout)
	}

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	g.Go(func() error {
		defer close(done)
		reader, err := openReader(gctx, cfg, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := reader.Close(context.WithoutCancel(gctx)); err != nil {
				logger.Warn("failed to close reader", zap.Error(err))
			}
		}()

		drv := ntag.New(reader, driverOptions(cfg, logger)...)
		return inv.cmd.run(gctx, drv, inv.args, stdout)
	})

	g.Go(func() error {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)

		select {
		case s := <-sig:
			logger.Info("shutting down", zap.Stringer("signal", s))
			return context.Canceled
		case <-done:
			return nil
		}
	})

	return g.Wait()
}

func driverOptions(cfg *config.Config, logger *zap.Logger) []ntag.Option {
	return []ntag.Option{
		ntag.WithLogger(logger),
		ntag.WithExchangeTimeout(cfg.Reader.ExchangeTimeout),
		ntag.WithScanRetry(cfg.ScanRetry.RetryConfig()),
		ntag.WithWriteAckLossTolerance(cfg.Reader.TolerateWriteAckLoss),
	}
}
