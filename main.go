package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"content_machine/config"
	"content_machine/generator"
	"content_machine/logging"
	"content_machine/publisher"
	"content_machine/runner"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

// cli holds the persistent flags and what initialize builds from them.
type cli struct {
	configPath string
	verbose    bool
	mock       bool

	cfg    config.Config
	logger *slog.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, red("Error:"), err)
		stop()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   "content_machine",
		Short: "Research, write and edit articles with a three-role LLM pipeline",
		Long: fmt.Sprintf(`%s

Each article goes through a research analyst, a content writer and a senior
editor. Results are saved as Markdown plus a JSON metadata file in the output
directory.

%s
  content_machine batch                       # the built-in topic list
  content_machine batch --topics topics.yaml
  content_machine run --topic "Space weather" --language English
  content_machine serve --addr :8080
  content_machine interactive
  content_machine history`,
			bold("Content Machine"), bold("EXAMPLES:")),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initialize()
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "path to config file (default "+config.DefaultPath+" when present)")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logs")
	root.PersistentFlags().BoolVar(&c.mock, "mock", false, "use the offline mock LLM")

	root.AddCommand(
		newBatchCommand(c),
		newRunCommand(c),
		newServeCommand(c),
		newInteractiveCommand(c),
		newHistoryCommand(c),
		newShowCommand(c),
	)
	return root
}

func (c *cli) initialize() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.mock {
		cfg.LLM.Provider = "mock"
	}
	level := cfg.Log.Level
	if c.verbose {
		level = "debug"
	}
	c.cfg = cfg
	c.logger = logging.New(logging.Options{Level: level, Format: cfg.Log.Format})
	slog.SetDefault(c.logger)
	return nil
}

func (c *cli) publisher() *publisher.Publisher {
	return publisher.New(c.cfg.OutputDir)
}

// buildRunner fails with the config error before any LLM call is attempted.
func (c *cli) buildRunner() (*runner.Runner, error) {
	if err := c.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w (no run attempted)", err)
	}
	llm, err := runner.BuildLLM(c.cfg.LLM)
	if err != nil {
		return nil, err
	}
	provider, err := runner.BuildSearch(c.cfg.Search)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("runner ready",
		"provider", c.cfg.LLM.Provider,
		"model", c.cfg.LLM.Model,
		"api_key", logging.MaskKey(c.cfg.LLM.APIKey),
		"search", provider.Name(),
		"output_dir", c.cfg.OutputDir)
	return runner.New(runner.Options{
		LLM:           llm,
		Search:        provider,
		SearchResults: c.cfg.Search.Results,
		Publisher:     c.publisher(),
		Logger:        c.logger,
		Model:         c.cfg.LLM.Model,
	})
}

func (c *cli) printWarnings(useSearch bool) {
	for _, w := range c.cfg.Warnings(useSearch) {
		fmt.Fprintln(os.Stderr, yellow("Warning: "+w))
	}
}

// runFlags are the request constraints shared by batch and run.
type runFlags struct {
	language string
	minWords int
	maxWords int
	sources  int
	noSearch bool
}

// register shows the built-in defaults; settings applies the configured ones
// for flags left unset.
func (f *runFlags) register(cmd *cobra.Command) {
	d := config.BuiltinDefaults()
	cmd.Flags().StringVar(&f.language, "language", d.Language, "article language")
	cmd.Flags().IntVar(&f.minWords, "min-words", d.WordCountMin, "minimum word count")
	cmd.Flags().IntVar(&f.maxWords, "max-words", d.WordCountMax, "maximum word count")
	cmd.Flags().IntVar(&f.sources, "sources", d.NumSources, "minimum number of sources")
	cmd.Flags().BoolVar(&f.noSearch, "no-search", !d.UseSearch, "disable web search for the researcher")
}

// settings merges config defaults with the flags the user actually set.
func (f *runFlags) settings(cmd *cobra.Command, d config.RunDefaults) runner.BatchSettings {
	s := runner.SettingsFrom(d)
	if cmd.Flags().Changed("language") {
		s.Language = f.language
	}
	if cmd.Flags().Changed("min-words") {
		s.WordCountMin = f.minWords
	}
	if cmd.Flags().Changed("max-words") {
		s.WordCountMax = f.maxWords
	}
	if cmd.Flags().Changed("sources") {
		s.NumSources = f.sources
	}
	if cmd.Flags().Changed("no-search") {
		s.UseSearch = !f.noSearch
	}
	return s
}

func describeError(err error) string {
	var serr *generator.StageError
	if errors.As(err, &serr) {
		return fmt.Sprintf("%s stage (%s): %v", serr.Stage, serr.Role, serr.Err)
	}
	return err.Error()
}
