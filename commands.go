package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"content_machine/generator"
	"content_machine/logging"
	"content_machine/publisher"
	"content_machine/runner"
	"content_machine/server"
	"content_machine/tui"
)

func newBatchCommand(c *cli) *cobra.Command {
	var (
		flags      runFlags
		topicsPath string
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Generate one article per topic of the built-in list or a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			topics := runner.DefaultTopics
			if topicsPath != "" {
				loaded, err := runner.LoadTopics(topicsPath)
				if err != nil {
					return err
				}
				topics = loaded
			}
			settings := flags.settings(cmd, c.cfg.Defaults)
			c.printWarnings(settings.UseSearch)
			r, err := c.buildRunner()
			if err != nil {
				return err
			}

			report := r.Batch(cmd.Context(), topics, settings, runner.BatchHooks{
				OnStart: func(index, total int, t runner.Topic) {
					fmt.Printf("%s %s\n", cyan(fmt.Sprintf("[%d/%d]", index, total)), bold(t.Topic))
				},
				OnTransition: func(_ int, tr generator.Transition) {
					if tr.To != generator.StateDone && tr.To != generator.StateFailed {
						fmt.Println(gray(fmt.Sprintf("      %s (%s)", tr.To, tr.Role)))
					}
				},
				OnDone: func(item runner.ItemResult) {
					if item.Err != nil {
						fmt.Println(red("  ✗ " + describeError(item.Err)))
						return
					}
					fmt.Println(green("  ✓ saved " + item.Outcome.MarkdownPath))
				},
			})

			failed := len(report.Failed())
			fmt.Printf("\n%d succeeded, %d failed\n", len(report.Items)-failed, failed)
			return report.Err()
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&topicsPath, "topics", "", "YAML file with topic/audience/tone entries")
	return cmd
}

func newRunCommand(c *cli) *cobra.Command {
	var (
		flags runFlags
		topic runner.Topic
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate a single article",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := flags.settings(cmd, c.cfg.Defaults)
			c.printWarnings(settings.UseSearch)
			r, err := c.buildRunner()
			if err != nil {
				return err
			}
			out, err := r.Run(cmd.Context(), settings.Request(topic), runner.Placement{}, func(tr generator.Transition) {
				if tr.To != generator.StateDone && tr.To != generator.StateFailed {
					fmt.Println(gray(fmt.Sprintf("  %s (%s)", tr.To, tr.Role)))
				}
			})
			if err != nil {
				return errors.New(describeError(err))
			}
			fmt.Println(green("✓ saved " + out.MarkdownPath))
			fmt.Println(gray("  metadata " + out.MetadataPath))
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&topic.Topic, "topic", "", "article topic")
	cmd.Flags().StringVar(&topic.Audience, "audience", "", "target audience")
	cmd.Flags().StringVar(&topic.Tone, "tone", "Professional", "writing tone")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func newServeCommand(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := server.Options{
				Publisher: c.publisher(),
				Form:      runner.DefaultForm(defaultRequest(c)),
				Warnings:  c.cfg.Warnings(true),
				Logger:    c.logger,
			}
			r, err := c.buildRunner()
			if err != nil {
				// Keep serving history; runs are refused with this error.
				c.logger.Error("runs disabled", "error", err)
				opts.ConfigErr = err
			}
			opts.Runner = r
			srv, err := server.New(opts)
			if err != nil {
				return err
			}

			listen := c.cfg.ServerAddr
			if addr != "" {
				listen = addr
			}
			if listen == "" {
				listen = ":8080"
			}
			httpSrv := &http.Server{Addr: listen, Handler: srv.Routes(), ReadHeaderTimeout: 10 * time.Second}
			errCh := make(chan error, 1)
			go func() { errCh <- httpSrv.ListenAndServe() }()
			c.logger.Info("starting web server", "addr", listen, "output_dir", c.cfg.OutputDir)

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return httpSrv.Shutdown(ctx)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server_addr)")
	return cmd
}

func newInteractiveCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "interactive",
		Short: "Open the terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := c.buildRunner()
			if err != nil {
				return err
			}
			// slog output would corrupt the alternate screen.
			c.logger.Info("interactive session started")
			r = r.WithLogger(logging.Discard())
			return tui.Run(cmd.Context(), tui.Options{
				Run: func(ctx context.Context, req generator.RunRequest, observe func(generator.Transition)) (generator.Outcome, error) {
					return r.Run(ctx, req, runner.Placement{}, observe)
				},
				Publisher: r.Publisher(),
				Form:      runner.DefaultForm(defaultRequest(c)),
				Warnings:  c.cfg.Warnings(true),
			})
		},
	}
}

func newHistoryCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List saved articles, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := c.publisher().History()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println(gray("No articles in " + c.cfg.OutputDir))
				return nil
			}
			for _, e := range entries {
				marker := ""
				switch e.MetadataState {
				case publisher.MetadataMissing:
					marker = yellow(" [no metadata]")
				case publisher.MetadataUnreadable:
					marker = red(" [unreadable metadata]")
				}
				fmt.Printf("%s  %s%s\n    %s\n", cyan(e.Timestamp), bold(e.Topic), marker, gray(e.File))
			}
			return nil
		},
	}
}

func newShowCommand(c *cli) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Print a saved article rendered for the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := c.publisher().ReadArticle(args[0])
			if err != nil {
				return err
			}
			if raw {
				fmt.Print(md)
				return nil
			}
			out, err := glamour.Render(md, "dark")
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(os.Stdout, out)
			return err
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the Markdown source")
	return cmd
}

func defaultRequest(c *cli) generator.RunRequest {
	return runner.SettingsFrom(c.cfg.Defaults).Request(runner.Topic{})
}
