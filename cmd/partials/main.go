package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/akamensky/argparse"
	"go.uber.org/zap"

	"github.com/andesco/partials/handlers"
	"github.com/andesco/partials/pkg/normalize"
	"github.com/andesco/partials/pkg/partials"
	"github.com/andesco/partials/pkg/siteroot"
)

var version = "dev"

const (
	exitOK         = 0
	exitError      = 1
	exitIncomplete = 2
)

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

func run(args []string, stdout io.Writer, stderr io.Writer) int {
	parser := argparse.NewParser("partials", "Injects shared header and footer fragments into static pages")
	configPath := parser.String("c", "config", &argparse.Options{Required: false, Help: "YAML configuration file (default $PARTIALS_CONFIG)"})
	verbose := parser.Flag("v", "verbose", &argparse.Options{Required: false, Help: "Log debug output"})

	serveCmd := parser.NewCommand("serve", "Proxy a static site and compose its pages")
	portEnv := os.Getenv("PORT")
	if portEnv == "" {
		portEnv = "8080"
	}
	port := serveCmd.String("p", "port", &argparse.Options{Required: false, Default: portEnv, Help: "Port the webserver will listen on"})
	origin := serveCmd.String("o", "origin", &argparse.Options{Required: false, Help: "Upstream static site (default $ORIGIN)"})

	renderCmd := parser.NewCommand("render", "Compose one page and print it")
	pageURL := renderCmd.String("u", "url", &argparse.Options{Required: true, Help: "URL of the page to compose"})
	outPath := renderCmd.String("o", "out", &argparse.Options{Required: false, Help: "Write the page to a file instead of stdout"})

	normalizeCmd := parser.NewCommand("normalize", "Print the root-relative form of attribute values")
	rootURL := normalizeCmd.String("r", "root", &argparse.Options{Required: true, Help: "Site root URL"})
	values := normalizeCmd.StringList("a", "value", &argparse.Options{Required: true, Help: "href, src or srcset value; repeatable"})

	if err := parser.Parse(args); err != nil {
		fmt.Fprint(stderr, parser.Usage(err))
		return exitError
	}

	logger := newLogger(stderr, *verbose)
	defer logger.Sync()

	switch {
	case normalizeCmd.Happened():
		return runNormalize(stdout, logger, *rootURL, *values)
	case renderCmd.Happened():
		cfg, err := partials.LoadConfig(*configPath)
		if err != nil {
			logger.Error("could not load config", zap.Error(err))
			return exitError
		}
		return runRender(stdout, logger, cfg, *pageURL, *outPath)
	case serveCmd.Happened():
		cfg, err := partials.LoadConfig(*configPath)
		if err != nil {
			logger.Error("could not load config", zap.Error(err))
			return exitError
		}
		if *origin != "" {
			cfg.Origin = *origin
		}
		return runServe(logger, cfg, *port)
	}
	return exitOK
}

func runNormalize(stdout io.Writer, logger *zap.Logger, rawRoot string, values []string) int {
	root, err := siteroot.Parse(rawRoot)
	if err != nil {
		logger.Error("invalid site root", zap.Error(err))
		return exitError
	}
	n := normalize.New(root)
	for _, v := range values {
		fmt.Fprintln(stdout, n.Value(v))
	}
	return exitOK
}

func runRender(stdout io.Writer, logger *zap.Logger, cfg partials.Config, pageURL, outPath string) int {
	composer, err := partials.NewComposer(cfg, logger)
	if err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return exitError
	}

	ctx := context.Background()
	page, err := composer.FetchPage(ctx, pageURL)
	if err != nil {
		logger.Error("could not fetch page", zap.String("url", pageURL), zap.Error(err))
		return exitError
	}

	out, completion, err := composer.Compose(ctx, pageURL, page.Body)
	if err != nil {
		logger.Error("could not compose page", zap.String("url", pageURL), zap.Error(err))
		return exitError
	}

	w := stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			logger.Error("could not create output file", zap.Error(err))
			return exitError
		}
		defer f.Close()
		w = f
	}
	if _, err := w.Write(out); err != nil {
		logger.Error("could not write page", zap.Error(err))
		return exitError
	}

	for _, r := range completion.Results {
		logger.Debug("partial",
			zap.String("target", r.TargetID),
			zap.Bool("loaded", r.Loaded),
			zap.String("url", r.URL),
			zap.Error(r.Err()))
	}
	if !completion.Loaded {
		return exitIncomplete
	}
	return exitOK
}

func runServe(logger *zap.Logger, cfg partials.Config, port string) int {
	if cfg.Origin == "" {
		logger.Error("no origin: pass --origin or set ORIGIN")
		return exitError
	}
	if _, err := strconv.Atoi(port); err != nil {
		logger.Error("invalid port", zap.String("port", port))
		return exitError
	}

	composer, err := partials.NewComposer(cfg, logger)
	if err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return exitError
	}

	handlers.Version = version
	app := handlers.NewApp(composer, cfg.Origin, logger)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		logger.Info("shutting down")
		_ = app.Shutdown()
	}()

	logger.Info("listening", zap.String("port", port), zap.String("origin", cfg.Origin))
	if err := app.Listen(":" + port); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return exitError
	}
	return exitOK
}
