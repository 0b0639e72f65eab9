package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bidlens/backend/internal/domain"
)

// CompareServiceConfig holds configuration for the compare service.
type CompareServiceConfig struct {
	// MaxParseWorkers bounds the parse fan-out. 0 means one worker per
	// document.
	MaxParseWorkers    int
	EnableDebugLogging bool
}

// CompareService runs one bid comparison: parse every document, align the
// normalized items, and compute statistics, chapter rollups and the
// comparison matrix. A run is a pure computation over the documents given
// to it; nothing is shared across runs.
type CompareService struct {
	parser             domain.BidParser
	maxParseWorkers    int
	enableDebugLogging bool
}

// NewCompareService creates a compare service with dependencies.
func NewCompareService(parser domain.BidParser, config CompareServiceConfig) *CompareService {
	return &CompareService{
		parser:             parser,
		maxParseWorkers:    config.MaxParseWorkers,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// Compare processes a batch of bid documents. A document that fails to parse
// contributes a recorded error but does not abort the run; the run fails
// only when no document yields a usable bid. Provider columns and warnings
// follow submission order regardless of parse completion order; matrix and
// chapter rows are sorted by identifier and chapter code.
func (s *CompareService) Compare(ctx context.Context, files []domain.BidFile) (*domain.RunResult, error) {
	if len(files) == 0 {
		return nil, domain.ErrInvalidRequest
	}

	bids, warnings := s.parseAll(ctx, files)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	providers, byProvider := nameProviders(bids)
	if len(providers) == 0 {
		return nil, fmt.Errorf("%w: %d file(s) submitted", domain.ErrNoBids, len(files))
	}

	for _, provider := range providers {
		warnings = append(warnings, byProvider[provider].Warnings...)
	}

	// The z-score rule is run-wide: decided once from the distinct provider
	// count, never re-evaluated per row.
	zEnabled := len(providers) >= domain.MinProvidersForZScores

	normalized := make(map[string][]domain.LineItem, len(providers))
	baseItems := make(map[string][]domain.LineItem, len(providers))
	optionTotals := make(map[string]float64, len(providers))
	for _, provider := range providers {
		bid := byProvider[provider]
		merged, dupWarnings := mergeDuplicates(provider, bid.Items)
		warnings = append(warnings, dupWarnings...)
		normalized[provider] = merged

		var base []domain.LineItem
		var optionTotal float64
		for _, item := range merged {
			if item.IsOption {
				if item.SumAmount != nil {
					optionTotal += *item.SumAmount
				}
				continue
			}
			base = append(base, item)
		}
		baseItems[provider] = base
		optionTotals[provider] = optionTotal
	}

	aligned := alignBids(providers, baseItems)
	stats := computeRowStatistics(aligned, zEnabled)
	totals := providerTotals(providers, baseItems)
	zTotals := zScoreTotals(providers, stats)
	titles := collectChapterTitles(providers, normalized)
	chapters := computeChapters(aligned, titles)

	summary := domain.Summary{
		Totals:       totals,
		OptionTotals: optionTotals,
		Winner:       overallWinner(totals),
		ItemCount:    len(aligned.Rows),
	}
	if zEnabled {
		summary.ZScoreTotals = zTotals
		summary.BestZProvider = bestZProvider(zTotals, totals)
	} else {
		summary.ZScoreNote = fmt.Sprintf(
			"z-scores omitted: %d provider(s), need at least %d", len(providers), domain.MinProvidersForZScores)
	}

	if s.enableDebugLogging {
		log.Printf("[COMPARE] %d providers, %d unified items, %d chapters, z-scores=%v",
			len(providers), len(aligned.Rows), len(chapters), zEnabled)
	}

	return &domain.RunResult{
		Providers:      providers,
		Normalized:     normalized,
		Matrix:         buildMatrix(aligned, stats, totals, zTotals, zEnabled),
		Chapters:       buildChapterTable(providers, chapters, totals),
		Summary:        summary,
		Warnings:       warnings,
		ZScoresEnabled: zEnabled,
		GeneratedAt:    time.Now().UTC(),
	}, nil
}

// parseAll parses the documents concurrently and re-sorts the outcomes into
// submission order, so downstream ordering does not depend on completion
// order. Parse failures become warnings, not errors.
func (s *CompareService) parseAll(ctx context.Context, files []domain.BidFile) ([]*domain.ProviderBid, []string) {
	results := make([]*domain.ProviderBid, len(files))
	errs := make([]error, len(files))

	group, ctx := errgroup.WithContext(ctx)
	if s.maxParseWorkers > 0 {
		group.SetLimit(s.maxParseWorkers)
	}
	for i, file := range files {
		i, file := i, file
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			results[i], errs[i] = s.parser.Parse(file)
			return nil
		})
	}
	// Workers never return errors; failures are collected per file.
	_ = group.Wait()

	var warnings []string
	bids := make([]*domain.ProviderBid, 0, len(files))
	for i := range files {
		if errs[i] != nil {
			warnings = append(warnings, errs[i].Error())
			continue
		}
		bids = append(bids, results[i])
	}
	return bids, warnings
}

// nameProviders assigns each bid a unique provider name, suffixing
// duplicates with " (2)", " (3)", ... in submission order.
func nameProviders(bids []*domain.ProviderBid) ([]string, map[string]*domain.ProviderBid) {
	providers := make([]string, 0, len(bids))
	byProvider := make(map[string]*domain.ProviderBid, len(bids))

	for _, bid := range bids {
		name := bid.Provider
		if name == "" {
			name = fmt.Sprintf("bid %d", len(providers)+1)
		}
		unique := name
		for counter := 2; ; counter++ {
			if _, taken := byProvider[unique]; !taken {
				break
			}
			unique = fmt.Sprintf("%s (%d)", name, counter)
		}
		providers = append(providers, unique)
		byProvider[unique] = bid
	}

	return providers, byProvider
}
