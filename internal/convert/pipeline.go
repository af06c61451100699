// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/docmark/internal/caption"
	"github.com/pdiddy/docmark/internal/extract"
	"github.com/pdiddy/docmark/internal/imageproc"
	"github.com/pdiddy/docmark/internal/layout"
	"github.com/pdiddy/docmark/internal/normalize"
	"github.com/pdiddy/docmark/internal/placement"
	"github.com/pdiddy/docmark/internal/reconcile"
	"github.com/pdiddy/docmark/pkg/types"
)

// Recorder persists batch runs. *manifest.Store implements it.
type Recorder interface {
	StartJob(ctx context.Context, jobID string, started time.Time) error
	RecordDocument(ctx context.Context, jobID string, res types.Result) error
	FinishJob(ctx context.Context, jobID string, stats types.BatchStats, finished time.Time) error
}

// Options configures a Pipeline. Config is required; the rest is optional.
type Options struct {
	Config types.Config

	// Chains maps document types to strategy chains. Nil builds them from
	// Config.Conversion with BuildChains.
	Chains map[types.DocType]*Chain

	// Annotator adds captions when set.
	Annotator *caption.Annotator

	// Recorder stores batch results when set.
	Recorder Recorder

	// Extractors selects the image extractor for a source file. Nil uses
	// extract.ForPath.
	Extractors func(src string, opts extract.Options) (extract.Extractor, error)

	Logger *slog.Logger
}

// Pipeline converts documents end to end.
type Pipeline struct {
	cfg        types.Config
	names      *normalize.Normalizer
	layout     *layout.Resolver
	images     *imageproc.Processor
	reconciler *reconcile.Reconciler
	placer     *placement.Placer
	chains     map[types.DocType]*Chain
	extractors func(string, extract.Options) (extract.Extractor, error)
	annotator  *caption.Annotator
	recorder   Recorder
	logger     *slog.Logger

	// Now stamps frontmatter and job records.
	Now func() time.Time
}

// NewPipeline wires the pipeline stages from opts.
func NewPipeline(ctx context.Context, opts Options) (*Pipeline, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	names := normalize.New(cfg.Naming)
	resolver, err := layout.New(cfg.Layout, names)
	if err != nil {
		return nil, err
	}
	placer, err := placement.New(cfg.Placement, logger)
	if err != nil {
		return nil, fmt.Errorf("loading caption patterns: %w", err)
	}
	images := imageproc.New(cfg.Images)

	chains := opts.Chains
	if chains == nil {
		chains = BuildChains(ctx, cfg.Conversion, names, logger)
	}

	extractors := opts.Extractors
	if extractors == nil {
		extractors = extract.ForPath
	}

	return &Pipeline{
		cfg:        cfg,
		names:      names,
		layout:     resolver,
		images:     images,
		reconciler: reconcile.New(images, logger),
		placer:     placer,
		chains:     chains,
		extractors: extractors,
		annotator:  opts.Annotator,
		recorder:   opts.Recorder,
		logger:     logger,
		Now:        time.Now,
	}, nil
}

// errSkipped marks documents whose output already exists.
var errSkipped = errors.New("output already exists")

// ConvertDocument converts one source file and reports progress to w.
func (p *Pipeline) ConvertDocument(ctx context.Context, src string, w io.Writer) types.Result {
	res := p.convert(ctx, src)
	progress(w, res)
	return res
}

func (p *Pipeline) convert(ctx context.Context, src string) types.Result {
	start := time.Now()
	res := types.Result{Source: src, DocType: types.DocTypeFor(src)}
	stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	res.DocName = p.names.Title(stem)

	err := p.run(ctx, src, &res)
	res.Duration = time.Since(start)
	switch {
	case errors.Is(err, errSkipped):
		res.Status = types.ConversionNone
	case err != nil:
		res.Status = types.ConversionFailed
		res.Error = err.Error()
		res.Output = ""
		p.logger.Warn("convert: document failed", "source", src, "error", err)
	case res.Unresolved > 0:
		res.Status = types.ConversionPartial
	default:
		res.Status = types.ConversionDone
	}
	return res
}

func (p *Pipeline) run(ctx context.Context, src string, res *types.Result) error {
	if err := p.validate(src); err != nil {
		return err
	}

	outDir := p.cfg.Output.Dir
	mdPath := filepath.Join(outDir, res.DocName+".md")
	if !p.cfg.Output.Overwrite {
		if _, err := os.Stat(mdPath); err == nil {
			res.Output = mdPath
			return errSkipped
		}
	}

	chain := p.chains[res.DocType]
	if chain == nil {
		return fmt.Errorf("%w for %s", ErrNoStrategy, res.DocType)
	}

	imageDir := p.layout.AbsoluteDir(outDir, res.DocName, res.DocType)
	linkDir := p.layout.RelativeDir(res.DocName, res.DocType)
	// Only a per-document directory is cleared; a shared one (flat layout)
	// is left as is.
	fresh := filepath.Base(imageDir) == p.layout.DirName(res.DocName, res.DocType)
	if err := prepareDir(imageDir, fresh); err != nil {
		return err
	}

	extractor, err := p.extractors(src, extract.Options{Images: p.images, Logger: p.logger})
	if err != nil {
		return err
	}
	extracted, err := extractor.Extract(ctx, src, imageDir)
	if err != nil {
		return fmt.Errorf("extracting images: %w", err)
	}
	res.Extracted = extracted

	text, converter, err := chain.ConvertWith(ctx, src)
	res.Converter = converter
	if err != nil {
		// A scanned PDF has no text layer; placement synthesizes its pages.
		if res.DocType != types.DocPDF || !errors.Is(err, ErrEmptyOutput) || converter == "" {
			return fmt.Errorf("converting text: %w", err)
		}
		text = ""
	}
	if res.DocType == types.DocPDF {
		text = CleanPDFText(text)
	}

	text, report := p.reconciler.Reconcile(text, reconcile.Job{
		DocName:   res.DocName,
		LinkDir:   linkDir,
		ImageDir:  imageDir,
		SourceDir: filepath.Dir(src),
		Images:    extracted,
	})
	res.Images = report.Substituted
	res.Unresolved = report.Unresolved
	res.Extracted = append(res.Extracted, report.Created...)
	if report.Substituted > 0 {
		res.Placement = types.PlacementInline
	}

	if res.DocType == types.DocPDF {
		var outcome placement.Outcome
		text, outcome = p.placer.Place(text, placement.Job{
			DocName:   res.DocName,
			LinkDir:   linkDir,
			Images:    report.Unused,
			Preceding: report.Substituted,
		})
		if outcome.Placed > 0 || outcome.Mode == types.PlacementSynthesis {
			res.Placement = outcome.Mode
		}
		res.Images += outcome.Placed
	}

	if p.annotator != nil && res.Images > 0 {
		text, res.Captions = p.annotator.Annotate(ctx, text, caption.Job{
			DocName:  res.DocName,
			LinkDir:  linkDir,
			ImageDir: imageDir,
		})
	}

	text = CleanMarkdown(text)
	if p.cfg.Output.Frontmatter {
		if text, err = addFrontmatter(*res, text, p.Now()); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(mdPath, []byte(text), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", mdPath, err)
	}
	res.Output = mdPath

	if len(res.Extracted) == 0 {
		// Leave no empty image directories behind.
		os.Remove(imageDir)
	}
	return nil
}

// validate checks that src is a non-empty regular file of a supported type
// within the size limit.
func (p *Pipeline) validate(src string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}
	if types.DocTypeFor(src) == types.DocUnknown {
		return fmt.Errorf("%w: %s", extract.ErrUnsupported, filepath.Ext(src))
	}
	if info.Size() == 0 {
		return errors.New("file is empty")
	}
	if limit := p.cfg.Images.MaxFileBytes; limit > 0 && info.Size() > limit {
		return fmt.Errorf("file is %d bytes, limit is %d", info.Size(), limit)
	}
	return nil
}

// prepareDir creates dir. With reset, an existing dir is removed first so
// images from earlier runs never leak into the new output.
func prepareDir(dir string, reset bool) error {
	if reset {
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("clearing image directory: %w", err)
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating image directory: %w", err)
	}
	return nil
}

// progress writes the per-document status line.
func progress(w io.Writer, res types.Result) {
	switch res.Status {
	case types.ConversionNone:
		fmt.Fprintf(w, "skipped: %s (already exists)\n", res.DocName)
	case types.ConversionFailed:
		fmt.Fprintf(w, "failed:  %s (%s)\n", res.DocName, res.Error)
	case types.ConversionPartial:
		fmt.Fprintf(w, "partial: %s (%d images, %d unresolved)\n", res.DocName, res.Images, res.Unresolved)
	default:
		fmt.Fprintf(w, "converted: %s (%d images)\n", res.DocName, res.Images)
	}
}

// Batch is the outcome of ConvertBatch.
type Batch struct {
	Stats   types.BatchStats `yaml:"stats"`
	Results []types.Result   `yaml:"results"`
}

// ConvertBatch converts srcs with at most Conversion.MaxWorkers documents
// in flight, printing per-file status to w followed by a summary. Failed
// documents are recorded and do not stop the batch.
func (p *Pipeline) ConvertBatch(ctx context.Context, srcs []string, w io.Writer) Batch {
	start := time.Now()
	jobID := uuid.NewString()
	batch := Batch{
		Stats:   types.BatchStats{JobID: jobID},
		Results: make([]types.Result, len(srcs)),
	}

	recording := p.recorder != nil
	if recording {
		if err := p.recorder.StartJob(ctx, jobID, p.Now()); err != nil {
			p.logger.Warn("convert: manifest unavailable", "error", err)
			recording = false
		}
	}

	var refused error
	if len(srcs) > 1 && p.layout.Shared() {
		refused = fmt.Errorf("%w: convert one document at a time or use a per-document template", ErrSharedImageDir)
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(max(p.cfg.Conversion.MaxWorkers, 1))
	for i, src := range srcs {
		g.Go(func() error {
			var res types.Result
			err := refused
			if err == nil {
				err = ctx.Err()
			}
			if err != nil {
				res = types.Result{Source: src, DocType: types.DocTypeFor(src), Status: types.ConversionFailed, Error: err.Error()}
				res.DocName = p.names.Title(strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)))
			} else {
				res = p.convert(ctx, src)
			}

			mu.Lock()
			defer mu.Unlock()
			batch.Results[i] = res
			batch.Stats.Add(res)
			progress(w, res)
			if recording {
				if err := p.recorder.RecordDocument(context.WithoutCancel(ctx), jobID, res); err != nil {
					p.logger.Warn("convert: recording document failed", "source", src, "error", err)
				}
			}
			return nil
		})
	}
	g.Wait()

	batch.Stats.Duration = time.Since(start)
	if recording {
		if err := p.recorder.FinishJob(context.WithoutCancel(ctx), jobID, batch.Stats, p.Now()); err != nil {
			p.logger.Warn("convert: recording job failed", "error", err)
		}
	}

	s := batch.Stats
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d partial, %d skipped, %d failed (total: %d)\n",
		s.Converted, s.Partial, s.Skipped, s.Failed, s.Total)
	fmt.Fprintf(w, "images: %d, captions: %d, success rate: %.1f%%, duration: %s\n",
		s.Images, s.Captions, s.SuccessRate(), s.Duration.Round(time.Millisecond))
	return batch
}

// WriteReport writes the batch as YAML to path.
func WriteReport(path string, batch Batch) error {
	data, err := yaml.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// CollectInputs expands paths into the supported files to convert. Files
// are taken as given; directories contribute their supported files, in
// sorted order, descending into subdirectories only when recursive is set.
// Hidden entries inside directories are ignored.
func CollectInputs(paths []string, recursive bool) ([]string, error) {
	var out []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}
		if !info.IsDir() {
			out = append(out, root)
			continue
		}

		var found []string
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == root {
				return nil
			}
			if strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if !recursive {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() && types.DocTypeFor(path) != types.DocUnknown {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
		slices.Sort(found)
		out = append(out, found...)
	}
	return out, nil
}
