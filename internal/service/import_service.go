package service

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/MedCatGit/catalog_api/internal/config"
	"github.com/MedCatGit/catalog_api/internal/identity"
	"github.com/MedCatGit/catalog_api/internal/models"
	"github.com/MedCatGit/catalog_api/pkg/catalogfeed"
)

// ProductStore is the persistence gateway consumed by the reconciler.
type ProductStore interface {
	GetByBusinessID(ctx context.Context, productID int64) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	UpdateDescription(ctx context.Context, id, description string) error
	BulkSoftDelete(ctx context.Context, seen map[int64]struct{}, deletedBy, deletedAt string) (int64, error)
}

// Enhancer rewrites a product description. Enrichment is best-effort: a
// failed call is logged and the pass moves on.
type Enhancer interface {
	EnhanceDescription(ctx context.Context, name, description string) (string, error)
}

// PassLocker serializes import passes over one store.
type PassLocker interface {
	Acquire(ctx context.Context) error
	Release(ctx context.Context) error
}

// ReportSink receives the report of a completed pass.
type ReportSink interface {
	Store(ctx context.Context, report any) error
}

// Report summarizes one completed import pass.
type Report struct {
	StartedAt   time.Time `json:"startedAt"`
	DurationMs  int64     `json:"durationMs"`
	Created     int64     `json:"created"`
	Updated     int64     `json:"updated"`
	SoftDeleted int64     `json:"softDeleted"`
	SkippedRows int64     `json:"skippedRows"`
	Enriched    int64     `json:"enriched"`
}

// ImportService runs one full catalog import pass: decode the feed, group
// rows into product aggregates, reconcile them against the store, then
// optionally enrich a bounded subset of descriptions.
type ImportService struct {
	store    ProductStore
	lock     PassLocker
	enhancer Enhancer
	reports  ReportSink
	ids      identity.Provider

	aggregator *Aggregator
	importer   config.ImporterConfig
	enrich     config.EnrichConfig

	// openFeed is swapped out by tests to feed synthetic rows.
	openFeed func() (RowSource, io.Closer, error)
}

// NewImportService constructs an ImportService. enhancer and reports may be
// nil; the corresponding steps are then skipped.
func NewImportService(store ProductStore, lock PassLocker, enhancer Enhancer, reports ReportSink, ids identity.Provider, importer config.ImporterConfig, enrich config.EnrichConfig) *ImportService {
	return &ImportService{
		store:      store,
		lock:       lock,
		enhancer:   enhancer,
		reports:    reports,
		ids:        ids,
		aggregator: NewAggregator(NewFieldDeriver(ids)),
		importer:   importer,
		enrich:     enrich,
		openFeed: func() (RowSource, io.Closer, error) {
			return catalogfeed.Open(importer.SourcePath)
		},
	}
}

// Run executes one import pass under the pass lock. It returns
// utils.ErrPassInProgress when another pass already holds the lock. Any
// error after decoding leaves the store in the partial state the pass
// reached; the next scheduled pass re-reconciles and self-corrects.
func (s *ImportService) Run(ctx context.Context) (*Report, error) {
	if err := s.lock.Acquire(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			log.Error().Err(err).Msg("failed to release pass lock")
		}
	}()

	report, err := s.runPass(ctx)
	if err != nil {
		return nil, err
	}

	if s.reports != nil {
		if err := s.reports.Store(ctx, report); err != nil {
			log.Error().Err(err).Msg("failed to store pass report")
		}
	}
	return report, nil
}

func (s *ImportService) runPass(ctx context.Context) (*Report, error) {
	start := time.Now()

	src, closer, err := s.openFeed()
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	agg, err := s.aggregator.Aggregate(src)
	if err != nil {
		// Malformed stream: fatal, nothing has been written.
		return nil, err
	}
	log.Info().
		Int("products", len(agg.Products)).
		Int("skipped_rows", agg.SkippedRows).
		Msg("catalog snapshot aggregated")

	report := &Report{StartedAt: start.UTC(), SkippedRows: int64(agg.SkippedRows)}

	if err := s.reconcile(ctx, agg.Products, report); err != nil {
		return nil, err
	}

	if s.importer.DeleteMissing {
		deleted, err := s.softDeleteMissing(ctx, agg.Seen)
		if err != nil {
			return nil, err
		}
		report.SoftDeleted = deleted
	}

	if s.enrich.Enabled && s.enhancer != nil {
		report.Enriched = s.enrichDescriptions(ctx, agg.Products)
	}

	report.DurationMs = time.Since(start).Milliseconds()
	log.Info().
		Int64("created", report.Created).
		Int64("updated", report.Updated).
		Int64("soft_deleted", report.SoftDeleted).
		Int64("skipped_rows", report.SkippedRows).
		Int64("enriched", report.Enriched).
		Dur("duration", time.Since(start)).
		Msg("import pass completed")
	return report, nil
}

// reconcile upserts every aggregate against the store with a bounded worker
// pool. Products are independent (one goroutine per business id), so the only
// shared state is the running counters. The partial-failure policy is
// abort-on-first-error: a failed write cancels the remaining upserts and
// fails the pass, matching the store's fatal-per-pass write semantics.
// Nothing already written is rolled back.
func (s *ImportService) reconcile(ctx context.Context, products []*models.Product, report *Report) error {
	var created, updated atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.importer.UpsertConcurrency)

	for _, p := range products {
		g.Go(func() error {
			if err := s.upsertProduct(gctx, p, &created, &updated); err != nil {
				return fmt.Errorf("product %d: %w", p.ProductID, err)
			}
			return nil
		})
	}

	err := g.Wait()
	report.Created = created.Load()
	report.Updated = updated.Load()
	if err != nil {
		log.Error().Err(err).Msg("reconciliation aborted")
		return err
	}
	return nil
}

func (s *ImportService) upsertProduct(ctx context.Context, p *models.Product, created, updated *atomic.Int64) error {
	existing, err := s.store.GetByBusinessID(ctx, p.ProductID)
	if err != nil {
		return fmt.Errorf("lookup: %w", err)
	}

	if existing == nil {
		if err := s.store.Create(ctx, p); err != nil {
			return fmt.Errorf("create: %w", err)
		}
		n := created.Add(1)
		log.Debug().
			Int64("product_id", p.ProductID).
			Int64("created", n).
			Int64("updated", updated.Load()).
			Msg("product created")
		return nil
	}

	// Update in place: keep the persisted identifiers and creation audit
	// fields, replace everything mutable. The fresh audit block carries no
	// deletion marks, so an update also revives a soft-deleted record.
	p.ID = existing.ID
	p.DocID = existing.DocID
	p.CompanyID = existing.CompanyID
	p.Info.CreatedBy = existing.Info.CreatedBy
	p.Info.CreatedAt = existing.Info.CreatedAt
	p.Status = models.StatusActive

	if err := s.store.Update(ctx, p); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	n := updated.Add(1)
	log.Debug().
		Int64("product_id", p.ProductID).
		Int64("created", created.Load()).
		Int64("updated", n).
		Msg("product updated")
	return nil
}

// softDeleteMissing marks every persisted product absent from the current
// snapshot as deleted. A failure here is fatal to the pass.
func (s *ImportService) softDeleteMissing(ctx context.Context, seen map[int64]struct{}) (int64, error) {
	deletedAt := time.Now().UTC().Format(time.RFC3339)
	deleted, err := s.store.BulkSoftDelete(ctx, seen, s.ids.NewToken(), deletedAt)
	if err != nil {
		log.Error().Err(err).Msg("bulk soft-delete failed")
		return 0, fmt.Errorf("bulk soft-delete: %w", err)
	}
	log.Info().Int64("count", deleted).Msg("products soft-deleted")
	return deleted, nil
}

// enrichDescriptions rewrites the description of the first N products of the
// pass via the enhancer, each call isolated: one failure is logged and the
// rest proceed. Returns the number of products actually enriched.
func (s *ImportService) enrichDescriptions(ctx context.Context, products []*models.Product) int64 {
	limit := s.enrich.Limit
	if limit > len(products) {
		limit = len(products)
	}
	if limit <= 0 {
		return 0
	}

	var enriched atomic.Int64
	g := &errgroup.Group{}
	g.SetLimit(s.enrich.Concurrency)

	for _, p := range products[:limit] {
		g.Go(func() error {
			newDesc, err := s.enhancer.EnhanceDescription(ctx, p.Data.Name, p.Data.Description)
			if err != nil {
				log.Warn().Err(err).Int64("product_id", p.ProductID).Msg("description enrichment failed")
				return nil
			}
			if err := s.store.UpdateDescription(ctx, p.ID, newDesc); err != nil {
				log.Warn().Err(err).Int64("product_id", p.ProductID).Msg("failed to persist enriched description")
				return nil
			}
			enriched.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return enriched.Load()
}
