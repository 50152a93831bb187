package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"SubmissionTagger/internal/app"
	"SubmissionTagger/internal/config"
	"SubmissionTagger/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "submissiontagger",
		Short:         "Generates and loads constrained metadata for free-text submissions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(), newTagCmd(), newWatchCmd())
	return root
}

func newApplication() (*app.Application, error) {
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)
	return app.New(cfg, logger)
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one ETL batch over the configured feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication()
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			_, err = application.RunBatch(ctx)
			return err
		},
	}
}

func newTagCmd() *cobra.Command {
	var title, content string

	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Tag and summarize a single submission, printing the strict JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication()
			if err != nil {
				return err
			}

			if content == "" {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read content from stdin: %w", err)
				}
				content = strings.TrimSpace(string(raw))
			}
			if title == "" || content == "" {
				return fmt.Errorf("both a title and content are required")
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			md, err := application.TagOne(ctx, title, content)
			if err != nil {
				return err
			}

			out, err := json.Marshal(map[string]any{
				"tags":    md.Tags,
				"summary": md.Summary,
			})
			if err != nil {
				return fmt.Errorf("marshal result: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "submission title")
	cmd.Flags().StringVar(&content, "content", "", "submission content (stdin when omitted)")
	return cmd
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run the ETL batch on the configured interval until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := newApplication()
			if err != nil {
				return err
			}

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			return application.Watch(ctx)
		},
	}
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
