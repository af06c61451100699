// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/docmark/internal/caption"
	"github.com/pdiddy/docmark/internal/convert"
	"github.com/pdiddy/docmark/internal/manifest"
)

var convertCmd = &cobra.Command{
	Use:   "convert [paths...]",
	Short: "Convert documents to Markdown",
	Long: `Convert turns each input file, or every supported file in each input
directory, into {output}/{name}.md. Embedded images are extracted into the
configured image layout and the Markdown references are rewritten to the
stored files.

Conversion tools are tried in the order configured per document type.
Documents whose output already exists are skipped unless --overwrite is
set. A failed document does not stop the batch; the exit status is
non-zero when any document failed.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	logger := slog.Default()
	recursive, _ := cmd.Flags().GetBool("recursive")
	reportPath, _ := cmd.Flags().GetString("report")
	noManifest, _ := cmd.Flags().GetBool("no-manifest")

	srcs, err := convert.CollectInputs(args, recursive)
	if err != nil {
		return err
	}
	if len(srcs) == 0 {
		fmt.Println("No supported documents found.")
		return nil
	}

	opts := convert.Options{Config: cfg, Logger: logger}

	if cfg.Caption.Enabled {
		key := cfg.Caption.APIKey
		if key == "" {
			key = loadedSecrets.ForProvider(cfg.Caption.Provider)
		}
		c, err := caption.New(cfg.Caption, key, logger)
		if err != nil {
			logger.Warn("captioning disabled", "error", err)
		} else {
			opts.Annotator = caption.NewAnnotator(c, cfg.Caption.Timeout, logger)
		}
	}

	if cfg.Manifest.Enabled && !noManifest {
		path := cfg.Manifest.Path
		if path == "" {
			path = manifest.DefaultPath(cfg.Output.Dir)
		}
		store, err := manifest.Open(path)
		if err != nil {
			logger.Warn("manifest unavailable", "path", path, "error", err)
		} else {
			defer store.Close()
			opts.Recorder = store
		}
	}

	p, err := convert.NewPipeline(cmd.Context(), opts)
	if err != nil {
		return err
	}

	batch := p.ConvertBatch(cmd.Context(), srcs, os.Stdout)

	if reportPath != "" {
		if err := convert.WriteReport(reportPath, batch); err != nil {
			return err
		}
		fmt.Printf("report: %s\n", reportPath)
	}

	if batch.Stats.HasFailures() {
		return fmt.Errorf("%d document(s) failed conversion", batch.Stats.Failed)
	}
	return nil
}

func init() {
	f := convertCmd.Flags()
	f.StringP("output", "o", "", "output directory (default: output)")
	f.Bool("frontmatter", false, "prepend YAML frontmatter with conversion metadata")
	f.Bool("overwrite", false, "re-convert documents whose output already exists")
	f.Bool("caption", false, "generate image captions with the configured LLM provider")
	f.IntP("workers", "w", 0, "maximum documents converted concurrently")
	f.String("template", "", "image layout template or pattern")
	f.Bool("transliterate", false, "transliterate CJK names to pinyin")
	f.BoolP("recursive", "r", false, "descend into subdirectories")
	f.String("report", "", "write a YAML batch report to this path")
	f.Bool("no-manifest", false, "do not record this run in the manifest")

	bindFlag(convertCmd, "output.dir", "output")
	bindFlag(convertCmd, "output.frontmatter", "frontmatter")
	bindFlag(convertCmd, "output.overwrite", "overwrite")
	bindFlag(convertCmd, "caption.enabled", "caption")
	bindFlag(convertCmd, "conversion.max_workers", "workers")
	bindFlag(convertCmd, "layout.template", "template")
	bindFlag(convertCmd, "naming.transliterate", "transliterate")

	rootCmd.AddCommand(convertCmd)
}
