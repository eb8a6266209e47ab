package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MedCatGit/catalog_api/internal/config"
	"github.com/MedCatGit/catalog_api/internal/identity"
	"github.com/MedCatGit/catalog_api/internal/models"
	"github.com/MedCatGit/catalog_api/internal/utils"
	"github.com/MedCatGit/catalog_api/pkg/catalogfeed"
)

// fakeStore is an in-memory ProductStore keyed by business product id.
type fakeStore struct {
	mu          sync.Mutex
	records     map[int64]*models.Product
	createErrOn int64
	deleteErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[int64]*models.Product)}
}

func (f *fakeStore) GetByBusinessID(_ context.Context, productID int64) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.records[productID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) Create(_ context.Context, p *models.Product) error {
	if f.createErrOn != 0 && f.createErrOn == p.ProductID {
		return fmt.Errorf("write refused for %d", p.ProductID)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *p
	f.records[p.ProductID] = &cp
	return nil
}

func (f *fakeStore) Update(_ context.Context, p *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.records[p.ProductID]
	if !ok || existing.ID != p.ID {
		return fmt.Errorf("update product %s: no such record", p.ID)
	}
	cp := *p
	f.records[p.ProductID] = &cp
	return nil
}

func (f *fakeStore) UpdateDescription(_ context.Context, id, description string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.records {
		if p.ID == id {
			p.Data.Description = description
			return nil
		}
	}
	return fmt.Errorf("no record %s", id)
}

func (f *fakeStore) BulkSoftDelete(_ context.Context, seen map[int64]struct{}, deletedBy, deletedAt string) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, p := range f.records {
		if _, ok := seen[id]; ok {
			continue
		}
		if p.Info.DeletedAt != "" {
			continue
		}
		p.Status = models.StatusDeleted
		p.Info.DeletedAt = deletedAt
		p.Info.DeletedBy = deletedBy
		n++
	}
	return n, nil
}

// fakeLock is an in-process PassLocker.
type fakeLock struct {
	mu       sync.Mutex
	held     bool
	releases int
}

func (l *fakeLock) Acquire(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return utils.ErrPassInProgress
	}
	l.held = true
	return nil
}

func (l *fakeLock) Release(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.releases++
	return nil
}

// fakeEnhancer rewrites descriptions, optionally failing for one product name.
type fakeEnhancer struct {
	mu     sync.Mutex
	failOn string
	calls  int
}

func (e *fakeEnhancer) EnhanceDescription(_ context.Context, name, description string) (string, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if name == e.failOn {
		return "", errors.New("model unavailable")
	}
	return "enhanced: " + description, nil
}

func feedRow(productID, itemID, name string) catalogfeed.Row {
	row := testRow()
	row.ProductID = productID
	row.ItemID = itemID
	row.ProductName = name
	return row
}

func newTestImportService(store ProductStore, lock PassLocker, enhancer Enhancer, importer config.ImporterConfig, enrich config.EnrichConfig, rows []catalogfeed.Row) *ImportService {
	if importer.UpsertConcurrency == 0 {
		importer.UpsertConcurrency = 1
	}
	s := NewImportService(store, lock, enhancer, nil, identity.NewSequenceProvider("t"), importer, enrich)
	s.openFeed = func() (RowSource, io.Closer, error) {
		src := &sliceSource{rows: rows}
		return src, src, nil
	}
	return s
}

func TestRunCreatesNewProducts(t *testing.T) {
	store := newFakeStore()
	rows := []catalogfeed.Row{
		feedRow("100", "ITM-1", "Gloves"),
		feedRow("100", "ITM-2", "Gloves"),
		feedRow("200", "ITM-3", "Syringes"),
	}
	s := newTestImportService(store, &fakeLock{}, nil, config.ImporterConfig{}, config.EnrichConfig{}, rows)

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Created)
	assert.Equal(t, int64(0), report.Updated)
	assert.Equal(t, int64(0), report.SoftDeleted)

	require.Contains(t, store.records, int64(100))
	require.Contains(t, store.records, int64(200))
	assert.Len(t, store.records[100].Data.Variants, 2)
	assert.Len(t, store.records[200].Data.Variants, 1)
}

func TestRunIsIdempotentWithDeletionDisabled(t *testing.T) {
	store := newFakeStore()
	rows := []catalogfeed.Row{
		feedRow("100", "ITM-1", "Gloves"),
		feedRow("100", "ITM-2", "Gloves"),
		feedRow("200", "ITM-3", "Syringes"),
	}
	s := newTestImportService(store, &fakeLock{}, nil, config.ImporterConfig{}, config.EnrichConfig{}, rows)

	first, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), first.Created)

	id100 := store.records[100].ID
	docID100 := store.records[100].DocID
	createdAt100 := store.records[100].Info.CreatedAt

	second, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), second.Created, "second pass must only update")
	assert.Equal(t, int64(2), second.Updated)

	assert.Len(t, store.records, 2)
	assert.Len(t, store.records[100].Data.Variants, 2)
	assert.Equal(t, id100, store.records[100].ID, "internal id must survive updates")
	assert.Equal(t, docID100, store.records[100].DocID, "doc id must survive updates")
	assert.Equal(t, createdAt100, store.records[100].Info.CreatedAt, "creation audit fields must survive updates")
}

func TestRunSoftDeletesMissingProducts(t *testing.T) {
	store := newFakeStore()
	importer := config.ImporterConfig{DeleteMissing: true}

	firstRows := []catalogfeed.Row{
		feedRow("100", "ITM-1", "Gloves"),
		feedRow("200", "ITM-3", "Syringes"),
	}
	s := newTestImportService(store, &fakeLock{}, nil, importer, config.EnrichConfig{}, firstRows)
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	secondRows := []catalogfeed.Row{feedRow("100", "ITM-1", "Gloves")}
	s2 := newTestImportService(store, &fakeLock{}, nil, importer, config.EnrichConfig{}, secondRows)
	report, err := s2.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), report.SoftDeleted)
	assert.Equal(t, models.StatusDeleted, store.records[200].Status)
	assert.NotEmpty(t, store.records[200].Info.DeletedAt)
	assert.Empty(t, store.records[100].Info.DeletedAt, "products present in the pass must never be deleted by it")
}

func TestRunDeletionDisabledLeavesMissingProducts(t *testing.T) {
	store := newFakeStore()

	s := newTestImportService(store, &fakeLock{}, nil, config.ImporterConfig{}, config.EnrichConfig{},
		[]catalogfeed.Row{feedRow("100", "ITM-1", "Gloves"), feedRow("200", "ITM-3", "Syringes")})
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	s2 := newTestImportService(store, &fakeLock{}, nil, config.ImporterConfig{}, config.EnrichConfig{},
		[]catalogfeed.Row{feedRow("100", "ITM-1", "Gloves")})
	report, err := s2.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(0), report.SoftDeleted)
	assert.Empty(t, store.records[200].Info.DeletedAt)
	assert.Equal(t, models.StatusActive, store.records[200].Status)
}

func TestRunUpdateRevivesSoftDeletedProduct(t *testing.T) {
	store := newFakeStore()
	importer := config.ImporterConfig{DeleteMissing: true}

	s := newTestImportService(store, &fakeLock{}, nil, importer, config.EnrichConfig{},
		[]catalogfeed.Row{feedRow("100", "ITM-1", "Gloves"), feedRow("200", "ITM-3", "Syringes")})
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	// 200 disappears, gets soft-deleted.
	s2 := newTestImportService(store, &fakeLock{}, nil, importer, config.EnrichConfig{},
		[]catalogfeed.Row{feedRow("100", "ITM-1", "Gloves")})
	_, err = s2.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, models.StatusDeleted, store.records[200].Status)

	// 200 reappears: same record is revived, not duplicated.
	id200 := store.records[200].ID
	s3 := newTestImportService(store, &fakeLock{}, nil, importer, config.EnrichConfig{},
		[]catalogfeed.Row{feedRow("100", "ITM-1", "Gloves"), feedRow("200", "ITM-3", "Syringes")})
	report, err := s3.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(0), report.Created)
	assert.Equal(t, int64(2), report.Updated)
	assert.Equal(t, id200, store.records[200].ID)
	assert.Equal(t, models.StatusActive, store.records[200].Status)
	assert.Empty(t, store.records[200].Info.DeletedAt)
}

func TestRunDeletionFailureIsFatal(t *testing.T) {
	store := newFakeStore()
	store.deleteErr = errors.New("store unavailable")
	importer := config.ImporterConfig{DeleteMissing: true}

	lock := &fakeLock{}
	s := newTestImportService(store, lock, nil, importer, config.EnrichConfig{},
		[]catalogfeed.Row{feedRow("100", "ITM-1", "Gloves")})

	_, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bulk soft-delete")
	assert.False(t, lock.held, "lock must be released on failure")
	assert.Equal(t, 1, lock.releases)
}

func TestRunStoreWriteFailureAbortsPass(t *testing.T) {
	store := newFakeStore()
	store.createErrOn = 200

	s := newTestImportService(store, &fakeLock{}, nil, config.ImporterConfig{}, config.EnrichConfig{},
		[]catalogfeed.Row{feedRow("100", "ITM-1", "Gloves"), feedRow("200", "ITM-3", "Syringes")})

	_, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "product 200")
	// No rollback: writes before the failure stay in place.
	assert.Contains(t, store.records, int64(100))
	assert.NotContains(t, store.records, int64(200))
}

func TestRunDecodeErrorWritesNothing(t *testing.T) {
	store := newFakeStore()
	s := newTestImportService(store, &fakeLock{}, nil, config.ImporterConfig{}, config.EnrichConfig{}, nil)
	s.openFeed = func() (RowSource, io.Closer, error) {
		src := &failingSource{after: 1}
		return src, (&sliceSource{}), nil
	}

	_, err := s.Run(context.Background())
	var decodeErr *catalogfeed.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Empty(t, store.records, "a malformed feed must not write anything")
}

func TestRunEnrichmentIsBestEffort(t *testing.T) {
	store := newFakeStore()
	enhancer := &fakeEnhancer{failOn: "Gloves"}
	enrich := config.EnrichConfig{Enabled: true, Limit: 2, Concurrency: 1}

	rows := []catalogfeed.Row{
		feedRow("100", "ITM-1", "Gloves"),
		feedRow("200", "ITM-3", "Syringes"),
		feedRow("300", "ITM-4", "Gauze"),
	}
	s := newTestImportService(store, &fakeLock{}, enhancer, config.ImporterConfig{}, enrich, rows)

	report, err := s.Run(context.Background())
	require.NoError(t, err, "a failed enrichment call must not fail the pass")

	assert.Equal(t, int64(1), report.Enriched)
	assert.Equal(t, 2, enhancer.calls, "enrichment is bounded to the first N products")
	assert.Equal(t, "enhanced: Powder-free exam gloves", store.records[200].Data.Description)
	assert.Equal(t, "Powder-free exam gloves", store.records[100].Data.Description, "failed call leaves description untouched")
	assert.Equal(t, "Powder-free exam gloves", store.records[300].Data.Description, "products beyond the limit are not enriched")
}

func TestRunRejectedWhenPassInProgress(t *testing.T) {
	store := newFakeStore()
	lock := &fakeLock{held: true}
	s := newTestImportService(store, lock, nil, config.ImporterConfig{}, config.EnrichConfig{},
		[]catalogfeed.Row{feedRow("100", "ITM-1", "Gloves")})

	_, err := s.Run(context.Background())
	require.ErrorIs(t, err, utils.ErrPassInProgress)
	assert.Empty(t, store.records)
}

func TestRunConcurrentUpsertsMatchSequential(t *testing.T) {
	rows := make([]catalogfeed.Row, 0, 40)
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("%d", 1000+i)
		rows = append(rows, feedRow(id, "ITM-A-"+id, "Product "+id))
		rows = append(rows, feedRow(id, "ITM-B-"+id, "Product "+id))
	}

	store := newFakeStore()
	s := newTestImportService(store, &fakeLock{}, nil, config.ImporterConfig{UpsertConcurrency: 8}, config.EnrichConfig{}, rows)

	report, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(20), report.Created)
	assert.Len(t, store.records, 20)
	for id, p := range store.records {
		assert.Len(t, p.Data.Variants, 2, "product %d", id)
	}
}
