// Copyright 2026 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command landd runs the landing service: an HTTP server that accepts
// pushed changeset stacks and rebases them onto bookmarks.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/dolthub/landd/libraries/landcore/bookmarks"
	"github.com/dolthub/landd/libraries/landcore/changesets"
	"github.com/dolthub/landd/libraries/landcore/landsrv"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "landd.yaml", "path to the service config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		logrus.WithError(err).Fatal("landd exited")
	}
}

func run(configPath string) (retErr error) {
	cfg, err := landsrv.YamlConfigFromFile(configPath)
	if err != nil {
		return err
	}

	level, err := logrus.ParseLevel(cfg.LogLevel())
	if err != nil {
		return fmt.Errorf("bad log level %q: %w", cfg.LogLevel(), err)
	}
	logger := logrus.New()
	logger.SetLevel(level)
	lgr := logrus.NewEntry(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Changesets are held resident; bookmarks are the durable state.
	g := changesets.NewMemoryStore()

	var bm bookmarks.Store
	switch cfg.StorageMode() {
	case landsrv.StorageModeMySQL:
		sqlStore, err := bookmarks.NewSQLStore(ctx, lgr, cfg.StorageDSN())
		if err != nil {
			return err
		}
		bm = sqlStore
	default:
		bm = bookmarks.NewMemoryStore()
	}
	defer func() {
		if closer, ok := bm.(io.Closer); ok {
			retErr = multierr.Append(retErr, closer.Close())
		}
	}()

	srv, err := landsrv.NewServer(ctx, lgr, cfg, g, bm)
	if err != nil {
		return err
	}
	defer func() {
		retErr = multierr.Append(retErr, srv.Close())
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		lgr.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return multierr.Combine(srv.Shutdown(shutdownCtx), <-serveErr)
	}
}
