package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"botwatch/internal/core/domain"
	"botwatch/internal/infra/storage"
)

// MemoryStorage backs every repository with plain maps. Used by tests and
// by runs without a configured database URL.
type MemoryStorage struct {
	wallets       map[string]*domain.Wallet
	txs           map[string]*domain.Transaction
	configs       map[string]*domain.BotConfiguration
	notifications map[string]*domain.Notification
	projects      map[string]*domain.Project
	txSeq         uint64
	mu            sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		wallets:       make(map[string]*domain.Wallet),
		txs:           make(map[string]*domain.Transaction),
		configs:       make(map[string]*domain.BotConfiguration),
		notifications: make(map[string]*domain.Notification),
		projects:      make(map[string]*domain.Project),
	}
}

// -----------------------------------------------------------------------------
// Wallet Repository
// -----------------------------------------------------------------------------

type WalletRepo struct {
	store *MemoryStorage
}

func NewWalletRepo(store *MemoryStorage) *WalletRepo {
	return &WalletRepo{store: store}
}

func (r *WalletRepo) Create(ctx context.Context, wallet *domain.Wallet) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.wallets[wallet.Address]; ok {
		return storage.ErrDuplicateAddress
	}
	w := *wallet
	now := time.Now()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now
	r.store.wallets[wallet.Address] = &w
	return nil
}

func (r *WalletRepo) GetByAddress(ctx context.Context, address string) (*domain.Wallet, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	w, ok := r.store.wallets[address]
	if !ok {
		return nil, storage.ErrWalletNotFound
	}
	copy := *w
	return &copy, nil
}

func (r *WalletRepo) GetAll(ctx context.Context) ([]*domain.Wallet, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.collect(func(*domain.Wallet) bool { return true }), nil
}

func (r *WalletRepo) GetActive(ctx context.Context) ([]*domain.Wallet, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.collect(func(w *domain.Wallet) bool { return w.IsActive }), nil
}

func (r *WalletRepo) GetByLevel(ctx context.Context, level int) ([]*domain.Wallet, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.collect(func(w *domain.Wallet) bool { return w.Level == level }), nil
}

// collect returns copies sorted by creation time. Callers hold the lock.
func (r *WalletRepo) collect(keep func(*domain.Wallet) bool) []*domain.Wallet {
	wallets := make([]*domain.Wallet, 0, len(r.store.wallets))
	for _, w := range r.store.wallets {
		if keep(w) {
			copy := *w
			wallets = append(wallets, &copy)
		}
	}
	sort.Slice(wallets, func(i, j int) bool {
		if wallets[i].CreatedAt.Equal(wallets[j].CreatedAt) {
			return wallets[i].Address < wallets[j].Address
		}
		return wallets[i].CreatedAt.Before(wallets[j].CreatedAt)
	})
	return wallets
}

func (r *WalletRepo) SetActive(ctx context.Context, address string, active bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	w, ok := r.store.wallets[address]
	if !ok {
		return storage.ErrWalletNotFound
	}
	w.IsActive = active
	w.UpdatedAt = time.Now()
	return nil
}

func (r *WalletRepo) UpdateBalance(ctx context.Context, address string, balance decimal.Decimal) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	w, ok := r.store.wallets[address]
	if !ok {
		return storage.ErrWalletNotFound
	}
	w.Balance = balance
	w.UpdatedAt = time.Now()
	return nil
}

func (r *WalletRepo) UpdateLastSignature(ctx context.Context, address string, signature string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	w, ok := r.store.wallets[address]
	if !ok {
		return storage.ErrWalletNotFound
	}
	w.LastSignature = signature
	w.UpdatedAt = time.Now()
	return nil
}

// -----------------------------------------------------------------------------
// Transaction Repository
// -----------------------------------------------------------------------------

type TxRepo struct {
	store *MemoryStorage
}

func NewTxRepo(store *MemoryStorage) *TxRepo {
	return &TxRepo{store: store}
}

func (r *TxRepo) Create(ctx context.Context, tx *domain.Transaction) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.txs[tx.TxID]; ok {
		return storage.ErrDuplicateTxID
	}
	r.store.txSeq++
	t := *tx
	t.ID = r.store.txSeq
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	r.store.txs[tx.TxID] = &t
	tx.ID = t.ID
	return nil
}

func (r *TxRepo) GetByTxID(ctx context.Context, txID string) (*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	tx, ok := r.store.txs[txID]
	if !ok {
		return nil, storage.ErrTxNotFound
	}
	copy := *tx
	return &copy, nil
}

func (r *TxRepo) List(ctx context.Context, f storage.TxFilter) ([]*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	txs := make([]*domain.Transaction, 0, len(r.store.txs))
	for _, tx := range r.store.txs {
		if f.Wallet != "" && tx.FromWallet != f.Wallet && tx.ToWallet != f.Wallet {
			continue
		}
		if f.Status != "" && tx.Status != f.Status {
			continue
		}
		copy := *tx
		txs = append(txs, &copy)
	}
	// Newest first, by insertion order
	sort.Slice(txs, func(i, j int) bool { return txs[i].ID > txs[j].ID })

	if f.Offset > 0 {
		if f.Offset >= len(txs) {
			return []*domain.Transaction{}, nil
		}
		txs = txs[f.Offset:]
	}
	if f.Limit > 0 && len(txs) > f.Limit {
		txs = txs[:f.Limit]
	}
	return txs, nil
}

func (r *TxRepo) UpdateStatus(ctx context.Context, txID string, status domain.TxStatus, failReason string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tx, ok := r.store.txs[txID]
	if !ok {
		return storage.ErrTxNotFound
	}
	tx.Status = status
	tx.FailReason = failReason
	tx.UpdatedAt = time.Now()
	return nil
}

func (r *TxRepo) IncrementRetry(ctx context.Context, txID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	tx, ok := r.store.txs[txID]
	if !ok {
		return storage.ErrTxNotFound
	}
	tx.RetryCount++
	tx.UpdatedAt = time.Now()
	return nil
}

func (r *TxRepo) CountByStatus(ctx context.Context, status domain.TxStatus) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	count := 0
	for _, tx := range r.store.txs {
		if tx.Status == status {
			count++
		}
	}
	return count, nil
}

func (r *TxRepo) ListRetryable(ctx context.Context, maxRetries int) ([]*domain.Transaction, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var txs []*domain.Transaction
	for _, tx := range r.store.txs {
		if tx.Status == domain.TxStatusFailed && tx.RetryCount < maxRetries {
			copy := *tx
			txs = append(txs, &copy)
		}
	}
	// Oldest attempt first
	sort.Slice(txs, func(i, j int) bool { return txs[i].UpdatedAt.Before(txs[j].UpdatedAt) })
	return txs, nil
}

func (r *TxRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var deleted int64
	for id, tx := range r.store.txs {
		if tx.Status != domain.TxStatusPending && tx.ObservedAt.Before(cutoff) {
			delete(r.store.txs, id)
			deleted++
		}
	}
	return deleted, nil
}

// -----------------------------------------------------------------------------
// Bot Config Repository
// -----------------------------------------------------------------------------

type ConfigRepo struct {
	store *MemoryStorage
}

func NewConfigRepo(store *MemoryStorage) *ConfigRepo {
	return &ConfigRepo{store: store}
}

func (r *ConfigRepo) Put(ctx context.Context, cfg *domain.BotConfiguration) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c := *cfg
	c.UpdatedAt = time.Now()
	r.store.configs[cfg.ParentWalletAddress] = &c
	return nil
}

func (r *ConfigRepo) Get(ctx context.Context, parentAddress string) (*domain.BotConfiguration, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	cfg, ok := r.store.configs[parentAddress]
	if !ok {
		return nil, storage.ErrConfigNotFound
	}
	copy := *cfg
	return &copy, nil
}

func (r *ConfigRepo) GetAll(ctx context.Context) ([]*domain.BotConfiguration, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	configs := make([]*domain.BotConfiguration, 0, len(r.store.configs))
	for _, cfg := range r.store.configs {
		copy := *cfg
		configs = append(configs, &copy)
	}
	sort.Slice(configs, func(i, j int) bool {
		return configs[i].ParentWalletAddress < configs[j].ParentWalletAddress
	})
	return configs, nil
}

// -----------------------------------------------------------------------------
// Notification Repository
// -----------------------------------------------------------------------------

type NotificationRepo struct {
	store *MemoryStorage
}

func NewNotificationRepo(store *MemoryStorage) *NotificationRepo {
	return &NotificationRepo{store: store}
}

func (r *NotificationRepo) Create(ctx context.Context, n *domain.Notification) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copy := *n
	if copy.CreatedAt.IsZero() {
		copy.CreatedAt = time.Now()
	}
	r.store.notifications[n.ID] = &copy
	return nil
}

func (r *NotificationRepo) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	n, ok := r.store.notifications[id]
	if !ok {
		return nil, storage.ErrNotificationNotFound
	}
	copy := *n
	return &copy, nil
}

func (r *NotificationRepo) List(ctx context.Context, onlyUnread bool, limit int) ([]*domain.Notification, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	ns := make([]*domain.Notification, 0, len(r.store.notifications))
	for _, n := range r.store.notifications {
		if onlyUnread && n.IsRead {
			continue
		}
		copy := *n
		ns = append(ns, &copy)
	}
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].CreatedAt.Equal(ns[j].CreatedAt) {
			return ns[i].ID > ns[j].ID
		}
		return ns[i].CreatedAt.After(ns[j].CreatedAt)
	})
	if limit > 0 && len(ns) > limit {
		ns = ns[:limit]
	}
	return ns, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	n, ok := r.store.notifications[id]
	if !ok {
		return storage.ErrNotificationNotFound
	}
	n.IsRead = true
	return nil
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var marked int64
	for _, n := range r.store.notifications {
		if !n.IsRead {
			n.IsRead = true
			marked++
		}
	}
	return marked, nil
}

func (r *NotificationRepo) UnreadCount(ctx context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	count := 0
	for _, n := range r.store.notifications {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (r *NotificationRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var deleted int64
	for id, n := range r.store.notifications {
		if n.IsRead && n.CreatedAt.Before(cutoff) {
			delete(r.store.notifications, id)
			deleted++
		}
	}
	return deleted, nil
}

// -----------------------------------------------------------------------------
// Project Repository
// -----------------------------------------------------------------------------

type ProjectRepo struct {
	store *MemoryStorage
}

func NewProjectRepo(store *MemoryStorage) *ProjectRepo {
	return &ProjectRepo{store: store}
}

func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	copy := *p
	if copy.CreatedAt.IsZero() {
		copy.CreatedAt = time.Now()
	}
	r.store.projects[p.ID] = &copy
	return nil
}

func (r *ProjectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	p, ok := r.store.projects[id]
	if !ok {
		return nil, storage.ErrProjectNotFound
	}
	copy := *p
	return &copy, nil
}

func (r *ProjectRepo) GetAll(ctx context.Context) ([]*domain.Project, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	ps := make([]*domain.Project, 0, len(r.store.projects))
	for _, p := range r.store.projects {
		copy := *p
		ps = append(ps, &copy)
	}
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].CreatedAt.Equal(ps[j].CreatedAt) {
			return ps[i].ID < ps[j].ID
		}
		return ps[i].CreatedAt.Before(ps[j].CreatedAt)
	})
	return ps, nil
}

func (r *ProjectRepo) UpdateStatus(ctx context.Context, id string, status domain.ProjectStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.projects[id]
	if !ok {
		return storage.ErrProjectNotFound
	}
	p.Status = status
	return nil
}

func (r *ProjectRepo) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.projects[id]; !ok {
		return storage.ErrProjectNotFound
	}
	delete(r.store.projects, id)
	return nil
}
