// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the docmark CLI, which converts
// office documents, PDFs, HTML, text and images into Markdown with their
// embedded images extracted alongside.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/pdiddy/docmark/internal/secrets"
	"github.com/pdiddy/docmark/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Keys

// cfg is the effective configuration, populated before every command runs.
var cfg types.Config

// closeLog releases the log file, if one was opened.
var closeLog = func() error { return nil }

// rootCmd is the base command for the docmark CLI.
var rootCmd = &cobra.Command{
	Use:   "docmark",
	Short: "Convert documents to Markdown with extracted images",
	Long: `docmark converts Word, PowerPoint, Excel, PDF, HTML, text and image files
into Markdown. Embedded images are written to images/{document}/image_NNN.ext
and every image placeholder in the converted text is rewritten to point at
the stored file. Image-only PDFs get a page-by-page image layout.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}

		verbose, _ := cmd.Flags().GetBool("verbose")
		logger, closer, err := newLogger(cfg.Log, verbose)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		closeLog = closer

		s, err := secrets.Load(".secrets/", logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			logger.Debug("loaded secrets", "keys", s.Names())
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./docmark.yaml or ~/.config/docmark/docmark.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}

func main() {
	// A missing .env is normal.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
