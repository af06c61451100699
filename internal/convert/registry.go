// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/pdiddy/docmark/internal/container"
	"github.com/pdiddy/docmark/internal/normalize"
	"github.com/pdiddy/docmark/pkg/types"
)

// registry builds strategies by name. Strategies with an external
// dependency (container runtime, pandoc, soffice) are probed once; a
// missing dependency drops the strategy from every chain.
type registry struct {
	cfg    types.ConversionConfig
	names  *normalize.Normalizer
	logger *slog.Logger

	detect func(context.Context) (container.Runtime, error)
	lookup func(timeout time.Duration, candidates ...string) (tool, error)

	built map[string]Converter
	tried map[string]bool
}

func newRegistry(cfg types.ConversionConfig, names *normalize.Normalizer, logger *slog.Logger) *registry {
	return &registry{
		cfg:    cfg,
		names:  names,
		logger: logger,
		detect: container.DetectRuntime,
		lookup: func(timeout time.Duration, candidates ...string) (tool, error) {
			return container.LookupTool(timeout, candidates...)
		},
		built: make(map[string]Converter),
		tried: make(map[string]bool),
	}
}

// BuildChains assembles the configured strategy chain for every document
// type. Unknown or unavailable strategies are logged and left out; a type
// whose chain ends up empty is absent from the map.
func BuildChains(ctx context.Context, cfg types.ConversionConfig, names *normalize.Normalizer, logger *slog.Logger) map[types.DocType]*Chain {
	if logger == nil {
		logger = slog.Default()
	}
	if names == nil {
		names = normalize.Default
	}
	return newRegistry(cfg, names, logger).chains(ctx)
}

func (r *registry) chains(ctx context.Context) map[types.DocType]*Chain {
	docTypes := make([]string, 0, len(r.cfg.Strategies))
	for dt := range r.cfg.Strategies {
		docTypes = append(docTypes, dt)
	}
	slices.Sort(docTypes)

	out := make(map[types.DocType]*Chain, len(docTypes))
	for _, dt := range docTypes {
		var convs []Converter
		for _, name := range r.cfg.Strategies[dt] {
			if c := r.get(ctx, name); c != nil {
				convs = append(convs, c)
			}
		}
		if len(convs) == 0 {
			r.logger.Warn("convert: no strategy available", "doc_type", dt, "configured", r.cfg.Strategies[dt])
			continue
		}
		out[types.DocType(dt)] = NewChain(r.logger, convs...)
	}
	return out
}

// get returns the named strategy, building it on first use. It returns nil
// when the strategy is unknown or its dependency is missing.
func (r *registry) get(ctx context.Context, name string) Converter {
	if c, ok := r.built[name]; ok {
		return c
	}
	if r.tried[name] {
		return nil
	}
	r.tried[name] = true

	c, err := r.build(ctx, name)
	if err != nil {
		r.logger.Warn("convert: strategy unavailable", "strategy", name, "error", err)
		return nil
	}
	if c == nil {
		r.logger.Warn("convert: unknown strategy", "strategy", name)
		return nil
	}
	r.built[name] = c
	return c
}

func (r *registry) build(ctx context.Context, name string) (Converter, error) {
	switch name {
	case types.StrategyMarkitdown:
		rt, err := r.detect(ctx)
		if err != nil {
			return nil, err
		}
		return NewMarkitdownConverter(ctx, rt, r.cfg.MarkitdownImage, r.cfg.ContainerTimeout)
	case types.StrategyPandoc:
		t, err := r.lookup(r.cfg.PandocTimeout, "pandoc")
		if err != nil {
			return nil, err
		}
		return NewPandocConverter(t), nil
	case types.StrategyLibreOffice:
		t, err := r.lookup(r.cfg.LibreOfficeTimeout, "soffice", "libreoffice")
		if err != nil {
			return nil, err
		}
		return NewLibreOfficeConverter(t, PDFTextConverter{}), nil
	case types.StrategyDocx:
		return NewDocxConverter(r.logger), nil
	case types.StrategyPDFText:
		return PDFTextConverter{}, nil
	case types.StrategyHTML:
		return NewHTMLConverter(), nil
	case types.StrategyXLSX:
		return XLSXConverter{}, nil
	case types.StrategyText:
		return TextConverter{}, nil
	case types.StrategyImage:
		return NewImageConverter(r.names), nil
	}
	return nil, nil
}
