package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"bvstock/models"
	"bvstock/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Memory is an in-process Store used by tests and `serve --memory`.
//
// Writers are serialised on txMu, which WithTx holds for its whole callback;
// that is what makes a transaction atomic here. Readers outside a
// transaction only take mu and may observe a transaction in progress.
type Memory struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	stock        map[primitive.ObjectID]models.StockItem
	distributors map[primitive.ObjectID]models.Distributor
	sales        map[primitive.ObjectID]models.Sale
	users        map[primitive.ObjectID]models.User
	sessions     []models.Session
	last         time.Time
}

type txKey struct{}

func NewMemory() *Memory {
	return &Memory{
		stock:        make(map[primitive.ObjectID]models.StockItem),
		distributors: make(map[primitive.ObjectID]models.Distributor),
		sales:        make(map[primitive.ObjectID]models.Sale),
		users:        make(map[primitive.ObjectID]models.User),
	}
}

func (m *Memory) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Memory)
	return owner == m
}

// writer takes the writer lock unless ctx already belongs to a transaction
// on this store.
func (m *Memory) writer(ctx context.Context) func() {
	if m.inTx(ctx) {
		return func() {}
	}
	m.txMu.Lock()
	return m.txMu.Unlock
}

// now is strictly increasing so newest-first ordering is stable. Callers
// hold mu.
func (m *Memory) now() time.Time {
	t := time.Now().UTC()
	if !t.After(m.last) {
		t = m.last.Add(time.Microsecond)
	}
	m.last = t
	return t
}

type memorySnapshot struct {
	stock        map[primitive.ObjectID]models.StockItem
	distributors map[primitive.ObjectID]models.Distributor
	sales        map[primitive.ObjectID]models.Sale
	users        map[primitive.ObjectID]models.User
	sessions     int
}

func cloneMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (m *Memory) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.inTx(ctx) {
		return fn(ctx)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	snap := memorySnapshot{
		stock:        cloneMap(m.stock),
		distributors: cloneMap(m.distributors),
		sales:        cloneMap(m.sales),
		users:        cloneMap(m.users),
		sessions:     len(m.sessions),
	}
	m.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, m)); err != nil {
		m.mu.Lock()
		m.stock = snap.stock
		m.distributors = snap.distributors
		m.sales = snap.sales
		m.users = snap.users
		m.sessions = m.sessions[:snap.sessions]
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *Memory) EnsureIndexes(context.Context) error { return nil }

// --- stock ---

func (m *Memory) stockNameTaken(name string, except primitive.ObjectID) bool {
	for id, it := range m.stock {
		if it.Name == name && id != except {
			return true
		}
	}
	return false
}

func (m *Memory) CreateStock(ctx context.Context, item *models.StockItem) error {
	defer m.writer(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stockNameTaken(item.Name, primitive.NilObjectID) {
		return models.Invalid("Stock item already exists")
	}
	item.ID = primitive.NewObjectID()
	item.Version = 1
	item.CreatedAt = m.now()
	item.UpdatedAt = item.CreatedAt
	m.stock[item.ID] = *item
	return nil
}

func (m *Memory) ListStock(_ context.Context, search string) ([]models.StockItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(search)
	out := make([]models.StockItem, 0, len(m.stock))
	for _, it := range m.stock {
		if needle != "" && !strings.Contains(strings.ToLower(it.Name), needle) {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) GetStock(_ context.Context, id primitive.ObjectID) (*models.StockItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, ok := m.stock[id]
	if !ok {
		return nil, models.NotFound("Stock")
	}
	return &it, nil
}

func (m *Memory) FindStockByName(_ context.Context, name string) (*models.StockItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, it := range m.stock {
		if it.Name == name {
			found := it
			return &found, nil
		}
	}
	return nil, models.NotFound("Product")
}

func (m *Memory) UpdateStock(ctx context.Context, id primitive.ObjectID, upd models.StockUpdate) (*models.StockItem, error) {
	defer m.writer(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.stock[id]
	if !ok {
		return nil, models.NotFound("Stock")
	}
	if upd.Version != nil && *upd.Version != it.Version {
		return nil, models.ErrConflict
	}
	if upd.Name != nil {
		if m.stockNameTaken(*upd.Name, id) {
			return nil, models.Invalid("Stock item already exists")
		}
		it.Name = *upd.Name
	}
	if upd.Quantity != nil {
		it.Quantity = *upd.Quantity
	}
	if upd.BV != nil {
		it.BV = *upd.BV
	}
	it.Version++
	it.UpdatedAt = m.now()
	m.stock[id] = it
	return &it, nil
}

func (m *Memory) DeleteStock(ctx context.Context, id primitive.ObjectID) error {
	defer m.writer(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.stock[id]; !ok {
		return models.NotFound("Stock")
	}
	delete(m.stock, id)
	return nil
}

func (m *Memory) AdjustStock(ctx context.Context, id primitive.ObjectID, delta int) (*models.StockItem, error) {
	defer m.writer(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.stock[id]
	if !ok {
		return nil, models.NotFound("Stock")
	}
	if it.Quantity+delta < 0 {
		return nil, &models.InsufficientStockError{Product: it.Name, Available: it.Quantity, Requested: -delta}
	}
	it.Quantity += delta
	it.Version++
	it.UpdatedAt = m.now()
	m.stock[id] = it
	return &it, nil
}

func (m *Memory) RestockByName(ctx context.Context, name string, qty int, bv *float64) (*models.StockItem, bool, error) {
	defer m.writer(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()

	if it, ok := m.restockTarget(name); ok {
		it.Quantity += qty
		if bv != nil {
			it.BV = *bv
		}
		it.Version++
		it.UpdatedAt = m.now()
		m.stock[it.ID] = it
		return &it, false, nil
	}

	it := models.StockItem{ID: primitive.NewObjectID(), Name: name, Quantity: qty, Version: 1}
	if bv != nil {
		it.BV = *bv
	}
	it.CreatedAt = m.now()
	it.UpdatedAt = it.CreatedAt
	m.stock[it.ID] = it
	return &it, true, nil
}

// restockTarget prefers an exact name match, then the oldest item whose name
// differs only in case.
func (m *Memory) restockTarget(name string) (models.StockItem, bool) {
	var best models.StockItem
	found := false
	for _, it := range m.stock {
		if it.Name == name {
			return it, true
		}
		if !strings.EqualFold(it.Name, name) {
			continue
		}
		if !found || it.CreatedAt.Before(best.CreatedAt) {
			best, found = it, true
		}
	}
	return best, found
}

func (m *Memory) SetStockPhoto(ctx context.Context, id primitive.ObjectID, url, previewURL string) (*models.StockItem, error) {
	defer m.writer(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.stock[id]
	if !ok {
		return nil, models.NotFound("Stock")
	}
	it.PhotoURL = url
	it.PhotoPreviewURL = previewURL
	it.UpdatedAt = m.now()
	m.stock[id] = it
	return &it, nil
}

func (m *Memory) LowStock(_ context.Context, threshold int) ([]models.StockItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.StockItem{}
	for _, it := range m.stock {
		if it.Quantity < threshold {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity == out[j].Quantity {
			return out[i].Name < out[j].Name
		}
		return out[i].Quantity < out[j].Quantity
	})
	return out, nil
}

// --- distributors ---

func (m *Memory) distributorNameTaken(name string, except primitive.ObjectID) bool {
	for id, d := range m.distributors {
		if d.Name == name && id != except {
			return true
		}
	}
	return false
}

func (m *Memory) CreateDistributor(ctx context.Context, d *models.Distributor) error {
	defer m.writer(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.distributorNameTaken(d.Name, primitive.NilObjectID) {
		return models.Invalid("Distributor with this name already exists")
	}
	d.ID = primitive.NewObjectID()
	d.CreatedAt = m.now()
	d.UpdatedAt = d.CreatedAt
	m.distributors[d.ID] = *d
	return nil
}

func (m *Memory) ListDistributors(context.Context) ([]models.Distributor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Distributor, 0, len(m.distributors))
	for _, d := range m.distributors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) GetDistributor(_ context.Context, id primitive.ObjectID) (*models.Distributor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.distributors[id]
	if !ok {
		return nil, models.NotFound("Distributor")
	}
	return &d, nil
}

func (m *Memory) UpdateDistributor(ctx context.Context, id primitive.ObjectID, upd models.DistributorUpdate) (*models.Distributor, error) {
	defer m.writer(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.distributors[id]
	if !ok {
		return nil, models.NotFound("Distributor")
	}
	if upd.Name != nil {
		if m.distributorNameTaken(*upd.Name, id) {
			return nil, models.Invalid("Distributor with this name already exists")
		}
		d.Name = *upd.Name
	}
	setIf(&d.DOB, upd.DOB)
	setIf(&d.DOR, upd.DOR)
	setIf(&d.Phone, upd.Phone)
	setIf(&d.Gender, upd.Gender)
	setIf(&d.IDNumber, upd.IDNumber)
	setIf(&d.Nationality, upd.Nationality)
	d.UpdatedAt = m.now()
	m.distributors[id] = d
	return &d, nil
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func (m *Memory) DeleteDistributor(ctx context.Context, id primitive.ObjectID) error {
	defer m.writer(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.distributors[id]; !ok {
		return models.NotFound("Distributor")
	}
	delete(m.distributors, id)
	return nil
}

// --- sales ---

func (m *Memory) CreateSale(ctx context.Context, s *models.Sale) error {
	defer m.writer(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ID = primitive.NewObjectID()
	s.CreatedAt = m.now()
	s.UpdatedAt = s.CreatedAt
	m.sales[s.ID] = *s
	return nil
}

func (m *Memory) GetSale(_ context.Context, id primitive.ObjectID) (*models.Sale, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sales[id]
	if !ok {
		return nil, models.NotFound("Sale")
	}
	return &s, nil
}

func (m *Memory) ReplaceSale(ctx context.Context, s *models.Sale) error {
	defer m.writer(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.sales[s.ID]
	if !ok {
		return models.NotFound("Sale")
	}
	s.CreatedAt = old.CreatedAt
	s.UpdatedAt = m.now()
	m.sales[s.ID] = *s
	return nil
}

func (m *Memory) DeleteSale(ctx context.Context, id primitive.ObjectID) error {
	defer m.writer(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sales[id]; !ok {
		return models.NotFound("Sale")
	}
	delete(m.sales, id)
	return nil
}

func (m *Memory) ListSales(context.Context) ([]models.SaleView, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sales := make([]models.Sale, 0, len(m.sales))
	for _, s := range m.sales {
		sales = append(sales, s)
	}
	sort.Slice(sales, func(i, j int) bool { return sales[i].CreatedAt.After(sales[j].CreatedAt) })

	out := make([]models.SaleView, 0, len(sales))
	for _, s := range sales {
		var ref *models.DistributorRef
		if d, ok := m.distributors[s.Distributor]; ok {
			ref = d.Ref()
		}
		out = append(out, models.NewSaleView(s, ref))
	}
	return out, nil
}

// --- users ---

func (m *Memory) CreateUser(ctx context.Context, u *models.User) error {
	defer m.writer(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Username == u.Username {
			return models.Invalid("Username already taken")
		}
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = m.now()
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.Username == username {
			found := u
			return &found, nil
		}
	}
	return nil, models.NotFound("User")
}

func (m *Memory) GetUser(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, models.NotFound("User")
	}
	return &u, nil
}

func (m *Memory) ListUsers(context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CountUsers(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}

func (m *Memory) RecordSession(ctx context.Context, s *models.Session) error {
	defer m.writer(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()

	s.ID = primitive.NewObjectID()
	m.sessions = append(m.sessions, *s)
	return nil
}

func (m *Memory) Summary(context.Context) (*models.Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sum := &models.Summary{
		StockItems:   int64(len(m.stock)),
		Sales:        int64(len(m.sales)),
		Distributors: int64(len(m.distributors)),
	}
	for _, it := range m.stock {
		sum.StockUnits += int64(it.Quantity)
	}
	bvs := make([]float64, 0, len(m.sales))
	for _, s := range m.sales {
		bvs = append(bvs, s.TotalBV)
	}
	sum.TotalBV = utils.SumBV(bvs...)
	return sum, nil
}
