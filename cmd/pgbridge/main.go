// Copyright 2026 The Pgbridge Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

// Command pgbridge starts a PostgreSQL-wire-compatible front end backed
// by the built-in echo engine. It exists to exercise the protocol stack
// end to end; a real deployment swaps in an executor for its engine.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/pgbridge/pgbridge/pkg/sql/executor/fake"
	"github.com/pgbridge/pgbridge/pkg/sql/pgwire"
	"github.com/pgbridge/pgbridge/pkg/util/log"
)

type config struct {
	ListenAddr  string `toml:"listen_addr"`
	MetricsAddr string `toml:"metrics_addr"`
	MaxConns    int    `toml:"max_conns"`
	Verbosity   int    `toml:"verbosity"`
}

func defaultConfig() config {
	return config{
		ListenAddr: "localhost:5432",
		MaxConns:   500,
	}
}

func main() {
	cfg := defaultConfig()
	var configPath string

	cmd := &cobra.Command{
		Use:           "pgbridge",
		Short:         "PostgreSQL wire protocol front end",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
					return errors.Wrapf(err, "reading config %s", configPath)
				}
			}
			return run(cmd.Context(), cfg)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "",
		"path to a TOML config file; values set there override flags")
	flags.StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr,
		"address to serve the SQL protocol on")
	flags.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr,
		"address to serve Prometheus metrics on (disabled when empty)")
	flags.IntVar(&cfg.MaxConns, "max-conns", cfg.MaxConns,
		"maximum concurrent client connections (0 for unbounded)")
	flags.IntVar(&cfg.Verbosity, "verbosity", cfg.Verbosity,
		"verbose logging level")

	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "pgbridge: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config) error {
	log.SetVerbosity(cfg.Verbosity)

	srv, err := pgwire.NewServer(fake.New(), pgwire.Config{
		MaxConns: cfg.MaxConns,
	})
	if err != nil {
		return err
	}

	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		srv.Metrics().Register(reg)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				log.Errorf(ctx, "metrics endpoint: %v", err)
			}
		}()
		log.Infof(ctx, "serving metrics on %s", cfg.MetricsAddr)
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", cfg.ListenAddr)
	}
	log.Infof(ctx, "listening on %s", ln.Addr())
	return srv.Serve(ctx, ln)
}
