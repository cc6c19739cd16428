package catalog

import (
	"context"
	"io/fs"
	"slices"
	"sync"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var (
	ErrNotFound       = errors.New("product not found")
	ErrDuplicateCode  = errors.New("product code already in use")
	ErrInvalidProduct = errors.New("invalid product")
)

const idPrefix = "p_"

// newProductID draws a random v4 UUID. With 122 random bits the chance of any
// collision among n ids is about n*n / 2^123.
func newProductID() string {
	return idPrefix + uuid.NewString()
}

// Manager owns the ordered, in-memory catalog and mirrors it to a Store after
// every mutation.
//
// Mutations hold the write lock across check, mutate and persist. Reads hold
// the read lock and hand out copies.
type Manager struct {
	store   Store
	log     *zap.Logger
	metrics *Metrics
	newID   func() string

	mu       sync.RWMutex
	products []Product
}

type Option func(*Manager)

func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) {
		if log != nil {
			m.log = log
		}
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithIDGenerator replaces the product id source.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// NewManager builds a manager from whatever store holds. A store that cannot
// be read yields an empty catalog; the failure is logged, not returned.
func NewManager(ctx context.Context, store Store, opts ...Option) *Manager {
	m := &Manager{
		store: store,
		log:   zap.NewNop(),
		newID: newProductID,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.products = m.load(ctx)
	m.metrics.setProducts(len(m.products))
	return m
}

func (m *Manager) load(ctx context.Context) []Product {
	products, err := m.store.Load(ctx)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		m.log.Info("catalog storage not found, starting empty", zap.Error(err))
		return []Product{}
	case err != nil:
		m.log.Warn("catalog storage unreadable, starting empty", zap.Error(err))
		return []Product{}
	case products == nil:
		return []Product{}
	}

	m.log.Info("catalog loaded", zap.Int("products", len(products)))
	return products
}

// List returns every product in insertion order.
func (m *Manager) List(_ context.Context) []Product {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.products)
}

// Count returns the number of live products.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.products)
}

func (m *Manager) Get(_ context.Context, id string) (Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.indexByID(id)
	if i < 0 {
		return Product{}, notFound(id)
	}
	return m.products[i], nil
}

// Create appends a product with a fresh id. The code must not be in use and
// price and stock must not be negative.
func (m *Manager) Create(ctx context.Context, in ProductInput) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := checkQuantities(in.Price, in.Stock); err != nil {
		return Product{}, err
	}
	if m.indexByCode(in.Code) >= 0 {
		return Product{}, duplicateCode(in.Code)
	}

	p := in.product(m.uniqueID())
	m.products = append(m.products, p)
	m.persist(ctx, "create")
	return p, nil
}

// Update merges patch into the product. A code already held by another
// product, or a negative price or stock, is rejected.
func (m *Manager) Update(ctx context.Context, id string, patch Patch) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexByID(id)
	if i < 0 {
		return Product{}, notFound(id)
	}
	if patch.Code != nil {
		if j := m.indexByCode(*patch.Code); j >= 0 && j != i {
			return Product{}, duplicateCode(*patch.Code)
		}
	}

	p := m.products[i]
	patch.apply(&p)
	if err := checkQuantities(p.Price, p.Stock); err != nil {
		return Product{}, err
	}
	m.products[i] = p
	m.persist(ctx, "update")
	return p, nil
}

func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexByID(id)
	if i < 0 {
		return notFound(id)
	}

	m.products = slices.Delete(m.products, i, i+1)
	m.persist(ctx, "delete")
	return nil
}

// Search returns products whose title or description contains query,
// ignoring case. An empty query matches everything.
func (m *Manager) Search(_ context.Context, query string) []Product {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterText(m.products, query)
}

// SortByPrice returns the catalog ordered by price. Equal prices keep their
// insertion order; the live order is not changed.
func (m *Manager) SortByPrice(_ context.Context, order SortOrder) []Product {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return SortByPrice(m.products, order)
}

// persist mirrors the catalog to the store. Failures are logged and counted;
// the in-memory state stays authoritative. Caller holds m.mu.
func (m *Manager) persist(ctx context.Context, op string) {
	m.metrics.setProducts(len(m.products))

	err := m.store.Save(ctx, m.products)
	m.metrics.storeWrite(err)
	if err != nil {
		m.log.Error("catalog not persisted",
			zap.String("op", op),
			zap.Int("products", len(m.products)),
			zap.Error(err),
		)
		return
	}
	m.log.Debug("catalog persisted", zap.String("op", op), zap.Int("products", len(m.products)))
}

// uniqueID re-draws on the off chance the generator repeats a live id.
// Caller holds m.mu.
func (m *Manager) uniqueID() string {
	for {
		id := m.newID()
		if m.indexByID(id) < 0 {
			return id
		}
		m.log.Warn("product id collision, drawing again", zap.String("id", id))
	}
}

func (m *Manager) indexByID(id string) int {
	return slices.IndexFunc(m.products, func(p Product) bool { return p.ID == id })
}

func (m *Manager) indexByCode(code string) int {
	return slices.IndexFunc(m.products, func(p Product) bool { return p.Code == code })
}

func checkQuantities(price decimal.Decimal, stock int64) error {
	if price.IsNegative() {
		return errors.Wrapf(ErrInvalidProduct, "negative price %s", price)
	}
	if stock < 0 {
		return errors.Wrapf(ErrInvalidProduct, "negative stock %d", stock)
	}
	return nil
}

func notFound(id string) error {
	return errors.Wrapf(ErrNotFound, "id %q", id)
}

func duplicateCode(code string) error {
	return errors.Wrapf(ErrDuplicateCode, "code %q", code)
}
