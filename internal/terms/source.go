package terms

import (
	"context"
	"log/slog"

	"makertrends/internal/config"
	"makertrends/internal/exporter"
	"makertrends/pkg/contracts/domain"
)

// Source names where a term list came from.
type Source string

const (
	SourceAPI    Source = "api"
	SourceConfig Source = "config"
	SourceCache  Source = "cache"
	SourceNone   Source = "none"
)

// Resolver picks the term calendar for a run: the Terms API when it is
// configured, then terms listed in config.yaml, then the terms.csv cache.
type Resolver struct {
	cfg      *config.Config
	paths    *config.Paths
	client   *Client
	exporter *exporter.PreparedExporter
	logger   *slog.Logger
}

// NewResolver creates a resolver. client may be nil to disable the API.
func NewResolver(cfg *config.Config, paths *config.Paths, client *Client, exp *exporter.PreparedExporter, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{cfg: cfg, paths: paths, client: client, exporter: exp, logger: logger}
}

// Resolve returns the terms and their source. Terms fetched from the API are
// written to the cache so later stages never hit the network.
func (r *Resolver) Resolve(ctx context.Context) ([]domain.Term, Source, error) {
	if r.client != nil && r.cfg.TermsAPI.Enabled() {
		fetched, err := r.client.FetchTerms(ctx, r.cfg.TermsAPI.TermIDs)
		if err != nil {
			return nil, SourceNone, err
		}
		if len(fetched) > 0 {
			if r.exporter != nil {
				if err := r.exporter.WriteTerms(fetched); err != nil {
					return nil, SourceNone, err
				}
			}
			return fetched, SourceAPI, nil
		}
		r.logger.WarnContext(ctx, "Terms API returned no usable terms, falling back",
			slog.Int("requested", len(r.cfg.TermsAPI.TermIDs)))
	}

	configured, err := r.cfg.TermList()
	if err != nil {
		return nil, SourceNone, err
	}
	if len(configured) > 0 {
		return configured, SourceConfig, nil
	}

	if config.FileExists(r.paths.TermsCSV) {
		cached, err := exporter.ReadTerms(r.paths.TermsCSV)
		if err != nil {
			return nil, SourceNone, err
		}
		return cached, SourceCache, nil
	}

	return nil, SourceNone, nil
}
