package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"bilancio/internal/core"
)

// MemoryStore keeps the whole entity graph in maps guarded by one mutex.
// InTx operates on a deep copy and swaps it in on success, so a failing unit
// of work leaves no partial state.
type MemoryStore struct {
	mu   sync.Mutex
	data *memState
	// inTx marks a transactional view; views skip locking because the
	// parent store stays locked for the duration of the unit of work.
	inTx bool
}

type memState struct {
	periods           map[uuid.UUID]core.Period
	folders           map[uuid.UUID]core.Folder
	categories        map[uuid.UUID]core.Category
	generalCategories map[uuid.UUID]core.GeneralCategory
	accounts          map[uuid.UUID]core.Account
	transactions      map[uuid.UUID]core.Transaction
	effects           map[uuid.UUID]core.CategoryEffect
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemState()}
}

func newMemState() *memState {
	return &memState{
		periods:           make(map[uuid.UUID]core.Period),
		folders:           make(map[uuid.UUID]core.Folder),
		categories:        make(map[uuid.UUID]core.Category),
		generalCategories: make(map[uuid.UUID]core.GeneralCategory),
		accounts:          make(map[uuid.UUID]core.Account),
		transactions:      make(map[uuid.UUID]core.Transaction),
		effects:           make(map[uuid.UUID]core.CategoryEffect),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for id, p := range s.periods {
		c.periods[id] = p
	}
	for id, f := range s.folders {
		c.folders[id] = f
	}
	for id, cat := range s.categories {
		c.categories[id] = cat
	}
	for id, g := range s.generalCategories {
		c.generalCategories[id] = cloneGeneralCategory(g)
	}
	for id, a := range s.accounts {
		c.accounts[id] = cloneAccount(a)
	}
	for id, t := range s.transactions {
		c.transactions[id] = cloneTransaction(t)
	}
	for id, e := range s.effects {
		c.effects[id] = cloneEffect(e)
	}
	return c
}

// Entities holding pointers or slices get copied field by field so a staged
// transaction cannot alias committed state.

func cloneGeneralCategory(g core.GeneralCategory) core.GeneralCategory {
	if g.FinalDate != nil {
		d := *g.FinalDate
		g.FinalDate = &d
	}
	return g
}

func cloneAccount(a core.Account) core.Account {
	if a.Bank != nil {
		b := *a.Bank
		a.Bank = &b
	}
	if a.Card != nil {
		card := *a.Card
		card.SupportedCurrencies = append([]string(nil), card.SupportedCurrencies...)
		a.Card = &card
	}
	return a
}

func cloneTransaction(t core.Transaction) core.Transaction {
	if t.CategoryID != nil {
		id := *t.CategoryID
		t.CategoryID = &id
	}
	return t
}

func cloneEffect(e core.CategoryEffect) core.CategoryEffect {
	if e.ConversionRate != nil {
		r := *e.ConversionRate
		e.ConversionRate = &r
	}
	return e
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(Store) error) error {
	if s.inTx {
		// Already inside a unit of work; nested calls join it.
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	staged := &MemoryStore{data: s.data.clone(), inTx: true}
	if err := fn(staged); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = staged.data
	return nil
}

func (s *MemoryStore) Period(ctx context.Context, id uuid.UUID) (core.Period, error) {
	defer s.lock()()
	p, ok := s.data.periods[id]
	if !ok {
		return core.Period{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) ActivePeriod(ctx context.Context, userID uuid.UUID) (core.Period, error) {
	defer s.lock()()
	var best core.Period
	found := false
	for _, p := range s.data.periods {
		if p.UserID != userID || !p.IsActive {
			continue
		}
		if !found || p.EndDate.After(best.EndDate) {
			best = p
			found = true
		}
	}
	if !found {
		return core.Period{}, ErrNotFound
	}
	return best, nil
}

func (s *MemoryStore) LatestPeriod(ctx context.Context, userID uuid.UUID) (core.Period, error) {
	defer s.lock()()
	var best core.Period
	found := false
	for _, p := range s.data.periods {
		if p.UserID != userID {
			continue
		}
		if !found || p.EndDate.After(best.EndDate) {
			best = p
			found = true
		}
	}
	if !found {
		return core.Period{}, ErrNotFound
	}
	return best, nil
}

func (s *MemoryStore) InsertPeriod(ctx context.Context, p core.Period) error {
	defer s.lock()()
	s.data.periods[p.ID] = p
	return nil
}

func (s *MemoryStore) UpdatePeriod(ctx context.Context, p core.Period) error {
	defer s.lock()()
	if _, ok := s.data.periods[p.ID]; !ok {
		return ErrNotFound
	}
	s.data.periods[p.ID] = p
	return nil
}

func (s *MemoryStore) Folder(ctx context.Context, id uuid.UUID) (core.Folder, error) {
	defer s.lock()()
	f, ok := s.data.folders[id]
	if !ok {
		return core.Folder{}, ErrNotFound
	}
	return f, nil
}

func (s *MemoryStore) ActiveFolders(ctx context.Context, periodID uuid.UUID) ([]core.Folder, error) {
	defer s.lock()()
	var out []core.Folder
	for _, f := range s.data.folders {
		if f.PeriodID == periodID && f.IsActive {
			out = append(out, f)
		}
	}
	sortByCreation(out, func(f core.Folder) (int64, uuid.UUID) { return f.CreatedOn.UnixNano(), f.ID })
	return out, nil
}

func (s *MemoryStore) UserFolders(ctx context.Context, userID uuid.UUID) ([]core.Folder, error) {
	defer s.lock()()
	var out []core.Folder
	for _, f := range s.data.folders {
		if f.UserID == userID && f.IsActive {
			out = append(out, f)
		}
	}
	sortByCreation(out, func(f core.Folder) (int64, uuid.UUID) { return f.CreatedOn.UnixNano(), f.ID })
	return out, nil
}

func (s *MemoryStore) InsertFolder(ctx context.Context, f core.Folder) error {
	defer s.lock()()
	s.data.folders[f.ID] = f
	return nil
}

func (s *MemoryStore) UpdateFolder(ctx context.Context, f core.Folder) error {
	defer s.lock()()
	if _, ok := s.data.folders[f.ID]; !ok {
		return ErrNotFound
	}
	s.data.folders[f.ID] = f
	return nil
}

func (s *MemoryStore) Category(ctx context.Context, id uuid.UUID) (core.Category, error) {
	defer s.lock()()
	c, ok := s.data.categories[id]
	if !ok {
		return core.Category{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) ActiveCategories(ctx context.Context, folderID uuid.UUID) ([]core.Category, error) {
	defer s.lock()()
	var out []core.Category
	for _, c := range s.data.categories {
		if c.FolderID == folderID && c.IsActive {
			out = append(out, c)
		}
	}
	sortByCreation(out, func(c core.Category) (int64, uuid.UUID) { return c.CreatedOn.UnixNano(), c.ID })
	return out, nil
}

func (s *MemoryStore) InsertCategory(ctx context.Context, c core.Category) error {
	defer s.lock()()
	s.data.categories[c.ID] = c
	return nil
}

func (s *MemoryStore) UpdateCategory(ctx context.Context, c core.Category) error {
	defer s.lock()()
	if _, ok := s.data.categories[c.ID]; !ok {
		return ErrNotFound
	}
	s.data.categories[c.ID] = c
	return nil
}

func (s *MemoryStore) GeneralCategory(ctx context.Context, id uuid.UUID) (core.GeneralCategory, error) {
	defer s.lock()()
	g, ok := s.data.generalCategories[id]
	if !ok {
		return core.GeneralCategory{}, ErrNotFound
	}
	return cloneGeneralCategory(g), nil
}

func (s *MemoryStore) InsertGeneralCategory(ctx context.Context, g core.GeneralCategory) error {
	defer s.lock()()
	s.data.generalCategories[g.ID] = cloneGeneralCategory(g)
	return nil
}

func (s *MemoryStore) UpdateGeneralCategory(ctx context.Context, g core.GeneralCategory) error {
	defer s.lock()()
	if _, ok := s.data.generalCategories[g.ID]; !ok {
		return ErrNotFound
	}
	s.data.generalCategories[g.ID] = cloneGeneralCategory(g)
	return nil
}

func (s *MemoryStore) Account(ctx context.Context, id uuid.UUID) (core.Account, error) {
	defer s.lock()()
	a, ok := s.data.accounts[id]
	if !ok {
		return core.Account{}, ErrNotFound
	}
	return cloneAccount(a), nil
}

func (s *MemoryStore) UserAccounts(ctx context.Context, userID uuid.UUID, kind core.AccountKind) ([]core.Account, error) {
	defer s.lock()()
	var out []core.Account
	for _, a := range s.data.accounts {
		if a.UserID != userID {
			continue
		}
		if kind != "" && a.Kind != kind {
			continue
		}
		out = append(out, cloneAccount(a))
	}
	sortByCreation(out, func(a core.Account) (int64, uuid.UUID) { return a.CreatedOn.UnixNano(), a.ID })
	return out, nil
}

func (s *MemoryStore) InsertAccount(ctx context.Context, a core.Account) error {
	defer s.lock()()
	s.data.accounts[a.ID] = cloneAccount(a)
	return nil
}

func (s *MemoryStore) UpdateAccount(ctx context.Context, a core.Account) error {
	defer s.lock()()
	if _, ok := s.data.accounts[a.ID]; !ok {
		return ErrNotFound
	}
	s.data.accounts[a.ID] = cloneAccount(a)
	return nil
}

func (s *MemoryStore) Transaction(ctx context.Context, id uuid.UUID) (core.Transaction, error) {
	defer s.lock()()
	t, ok := s.data.transactions[id]
	if !ok {
		return core.Transaction{}, ErrNotFound
	}
	return cloneTransaction(t), nil
}

func (s *MemoryStore) AccountTransactions(ctx context.Context, accountID uuid.UUID) ([]core.Transaction, error) {
	defer s.lock()()
	var out []core.Transaction
	for _, t := range s.data.transactions {
		if t.AccountID == accountID && t.IsActive {
			out = append(out, cloneTransaction(t))
		}
	}
	sortByCreation(out, func(t core.Transaction) (int64, uuid.UUID) { return t.CreatedOn.UnixNano(), t.ID })
	return out, nil
}

func (s *MemoryStore) CategoryTransactions(ctx context.Context, categoryID uuid.UUID) ([]core.Transaction, error) {
	defer s.lock()()
	var out []core.Transaction
	for _, t := range s.data.transactions {
		if t.CategoryID != nil && *t.CategoryID == categoryID && t.IsActive {
			out = append(out, cloneTransaction(t))
		}
	}
	sortByCreation(out, func(t core.Transaction) (int64, uuid.UUID) { return t.CreatedOn.UnixNano(), t.ID })
	return out, nil
}

func (s *MemoryStore) PendingReviewCount(ctx context.Context, accountID uuid.UUID) (int, error) {
	defer s.lock()()
	n := 0
	for _, t := range s.data.transactions {
		if t.AccountID == accountID && t.IsActive && t.RequireCategoryReview {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) InsertTransaction(ctx context.Context, t core.Transaction) error {
	defer s.lock()()
	s.data.transactions[t.ID] = cloneTransaction(t)
	return nil
}

func (s *MemoryStore) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	defer s.lock()()
	if _, ok := s.data.transactions[t.ID]; !ok {
		return ErrNotFound
	}
	s.data.transactions[t.ID] = cloneTransaction(t)
	return nil
}

func (s *MemoryStore) Effect(ctx context.Context, transactionID, categoryID uuid.UUID) (core.CategoryEffect, error) {
	defer s.lock()()
	for _, e := range s.data.effects {
		if e.TransactionID == transactionID && e.CategoryID == categoryID {
			return cloneEffect(e), nil
		}
	}
	return core.CategoryEffect{}, ErrNotFound
}

func (s *MemoryStore) InsertEffect(ctx context.Context, e core.CategoryEffect) error {
	defer s.lock()()
	s.data.effects[e.ID] = cloneEffect(e)
	return nil
}

func (s *MemoryStore) UpdateEffect(ctx context.Context, e core.CategoryEffect) error {
	defer s.lock()()
	if _, ok := s.data.effects[e.ID]; !ok {
		return ErrNotFound
	}
	s.data.effects[e.ID] = cloneEffect(e)
	return nil
}

func sortByCreation[T any](items []T, key func(T) (int64, uuid.UUID)) {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if ti != tj {
			return ti < tj
		}
		return idi.String() < idj.String()
	})
}
