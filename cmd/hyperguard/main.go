// Package main provides the hyperguard CLI entrypoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/arnewalsh/hyperguard/internal/checker"
	"github.com/arnewalsh/hyperguard/internal/harvest"
	"github.com/arnewalsh/hyperguard/internal/hyperguardcfg"
	"github.com/arnewalsh/hyperguard/internal/logging"
	"github.com/arnewalsh/hyperguard/internal/progress"
	"github.com/arnewalsh/hyperguard/internal/report"
)

// cliFlags holds parsed command-line flags.
type cliFlags struct {
	root       string
	configPath string
	outDir     string
	quiet      bool
	verbose    bool
	rewriteGH  bool
}

func parseFlags() *cliFlags {
	opts := &cliFlags{}
	flag.StringVar(&opts.root, "root", ".", "root of the documentation tree to harvest hyperlinks from")
	flag.StringVar(&opts.configPath, "config", "", "path to a hyperguard YAML config file (defaults applied if omitted)")
	flag.StringVar(&opts.outDir, "out", ".", "directory to write output.txt and output.json into")
	flag.BoolVar(&opts.quiet, "quiet", false, "skip the live progress view; read results directly")
	flag.BoolVar(&opts.verbose, "verbose", false, "enable debug-level logging")
	flag.BoolVar(&opts.rewriteGH, "rewrite-github-anchors", true, "canonicalize github.com fragments before checking")
	flag.Parse()
	return opts
}

func loadConfig(opts *cliFlags) (checker.Config, error) {
	if opts.configPath == "" {
		return checker.DefaultConfig(), nil
	}
	return hyperguardcfg.Load(opts.configPath)
}

func main() {
	opts := parseFlags()

	log := logging.New(os.Stderr, opts.verbose)

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hyperguard: %v\n", err)
		os.Exit(1)
	}
	cfg.RateLimitObserver = func(origin string, next time.Time) {
		logging.RateLimited(log, origin, next)
	}

	var rewrite harvest.RewriteFunc
	if opts.rewriteGH {
		rewrite = harvest.RewriteGitHubAnchor
	}

	links, index, err := harvest.Walk(opts.root, rewrite)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hyperguard: %v\n", err)
		os.Exit(1)
	}
	cfg.Resolver = index

	txtPath := filepath.Join(opts.outDir, "output.txt")
	jsonPath := filepath.Join(opts.outDir, "output.json")
	txtFile, err := os.Create(txtPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hyperguard: create %s: %v\n", txtPath, err)
		os.Exit(1)
	}
	defer txtFile.Close()
	jsonFile, err := os.Create(jsonPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hyperguard: create %s: %v\n", jsonPath, err)
		os.Exit(1)
	}
	defer jsonFile.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	hasAllowedRedirects := len(cfg.AllowedRedirects) > 0
	broken := 0

	process := func(res checker.CheckResult) {
		if res.Status == checker.StatusBroken {
			broken++
		}
		logging.Result(log, res, hasAllowedRedirects)
		if err := report.WriteText(txtFile, index, res); err != nil {
			fmt.Fprintf(os.Stderr, "hyperguard: %v\n", err)
		}
		if err := report.WriteJSONL(jsonFile, index, res); err != nil {
			fmt.Fprintf(os.Stderr, "hyperguard: %v\n", err)
		}
	}

	if opts.quiet {
		results := checker.Check(ctx, cfg, links)
		for res := range results {
			process(res)
		}
	} else {
		progressCh := make(chan checker.ProgressEvent, 64)
		results := checker.Check(ctx, cfg, links, checker.WithProgress(progressCh))

		done := make(chan struct{})
		go func() {
			defer close(done)
			for res := range results {
				process(res)
			}
		}()

		model := progress.NewModel(progressCh)
		program := tea.NewProgram(model)
		if _, err := program.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "hyperguard: run progress view: %v\n", err)
		}
		<-done
	}

	if broken > 0 {
		os.Exit(1)
	}
}
