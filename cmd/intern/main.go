// Command intern runs the always-on local full-text search daemon: it
// scans and watches the configured folders, indexes their contents
// into an embedded store, and answers line-oriented queries over TCP.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/rjcarver/intern/internal/config"
	"github.com/rjcarver/intern/internal/ignore"
	"github.com/rjcarver/intern/internal/indexer"
	"github.com/rjcarver/intern/internal/logging"
	"github.com/rjcarver/intern/internal/pathresolver"
	"github.com/rjcarver/intern/internal/query"
	"github.com/rjcarver/intern/internal/scanner"
	"github.com/rjcarver/intern/internal/server"
	"github.com/rjcarver/intern/internal/store"
	"github.com/rjcarver/intern/internal/version"
	"github.com/rjcarver/intern/internal/watcher"
)

func main() {
	app := &cli.App{
		Name:    "intern",
		Usage:   "an always-on local full-text search daemon",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "configuration file path (defaults to the platform config dir)",
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	configPath := c.String("config")
	if configPath == "" {
		p, err := pathresolver.ConfigFile()
		if err != nil {
			return fmt.Errorf("resolve config path: %w", err)
		}
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logPath, err := pathresolver.LogFile()
	if err != nil {
		return fmt.Errorf("resolve log path: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, logPath)
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	dbPath, err := pathresolver.DatabaseFile()
	if err != nil {
		logger.WithError(err).Fatal("resolve database path")
	}
	st, err := store.Open(dbPath)
	if err != nil {
		logger.WithError(err).Fatal("open store")
	}
	defer st.Close()

	idx := indexer.New(st, logger)
	engine := query.New(st, logger)

	period := time.Duration(cfg.Period) * time.Second

	var watchers []*watcher.Watcher
	for _, folder := range cfg.Folders {
		includes := ignore.IncludeList(folder.Includes)

		if err := scanner.Walk(folder.Name, folder.Recurse, includes, func(path string, mtime time.Time) {
			idx.IndexFile(path, mtime)
		}); err != nil {
			logger.WithError(err).WithField("folder", folder.Name).Warn("scan failed")
			continue
		}

		w, err := watcher.New(period)
		if err != nil {
			logger.WithError(err).WithField("folder", folder.Name).Fatal("create watcher")
		}
		if err := w.Subscribe(folder.Name, folder.Recurse, includes); err != nil {
			logger.WithError(err).WithField("folder", folder.Name).Fatal("subscribe watcher")
		}
		watchers = append(watchers, w)
	}

	srv, err := server.New(server.ListenAddr, watchers, idx, engine, logger)
	if err != nil {
		logger.WithError(err).Fatal("start server")
	}
	defer srv.Close()

	logger.WithField("addr", server.ListenAddr).Info("intern is listening")

	defer func() {
		if r := recover(); r != nil {
			logger.Error("fatal panic, flushing logs before exit")
			panic(r)
		}
	}()

	stop := make(chan struct{})
	srv.Run(stop)
	return nil
}
