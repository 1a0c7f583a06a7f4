package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tanmaydesai/gigflow/pkg/models"
)

// MemoryStore is an in-memory implementation of the Store interface used for
// unit testing service logic without a running database. It honors the same
// conditional-update and atomic-balance semantics as PostgresStore, including
// "zero rows affected" on lost races.
type MemoryStore struct {
	mu           sync.Mutex
	profiles     map[uuid.UUID]*models.Profile
	jobs         map[uuid.UUID]*models.Job
	transactions []*models.Transaction
	err          error
}

// NewMemoryStore instantiates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[uuid.UUID]*models.Profile),
		jobs:     make(map[uuid.UUID]*models.Job),
	}
}

// WithError forces every subsequent call to fail with err. Passing nil
// clears the fault.
func (m *MemoryStore) WithError(err error) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// --- Profiles ---

func (m *MemoryStore) CreateProfile(ctx context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.profiles[p.UserID]; ok {
		return ErrDuplicateKey
	}
	cp := *p
	m.profiles[p.UserID] = &cp
	return nil
}

func (m *MemoryStore) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// --- Jobs ---

func (m *MemoryStore) CreateJob(ctx context.Context, j *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.jobs[j.ID]; ok {
		return ErrDuplicateKey
	}
	cp := *j
	m.jobs[j.ID] = &cp
	return nil
}

func (m *MemoryStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	j, ok := m.jobs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *MemoryStore) ListOpenJobs(ctx context.Context) ([]*models.Job, error) {
	return m.listJobs(func(j *models.Job) bool { return j.Status == models.JobStatusOpen })
}

func (m *MemoryStore) ListJobsByCustomer(ctx context.Context, customerID uuid.UUID) ([]*models.Job, error) {
	return m.listJobs(func(j *models.Job) bool { return j.CustomerID == customerID })
}

func (m *MemoryStore) ListJobsByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.Job, error) {
	return m.listJobs(func(j *models.Job) bool { return j.WorkerID != nil && *j.WorkerID == workerID })
}

func (m *MemoryStore) listJobs(match func(*models.Job) bool) ([]*models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var jobs []*models.Job
	for _, j := range m.jobs {
		if match(j) {
			cp := *j
			jobs = append(jobs, &cp)
		}
	}
	sort.Slice(jobs, func(a, b int) bool { return jobs[a].CreatedAt.After(jobs[b].CreatedAt) })
	return jobs, nil
}

func (m *MemoryStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, expectedStatus, newStatus string, opts ...JobUpdateOption) (int64, error) {
	var params jobUpdateParams
	for _, opt := range opts {
		opt(&params)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}

	j, ok := m.jobs[id]
	if !ok || j.Status != expectedStatus {
		return 0, nil
	}
	if params.AssignWorker != nil && j.WorkerID != nil {
		return 0, nil
	}
	if params.ExpectedWorker != nil && (j.WorkerID == nil || *j.WorkerID != *params.ExpectedWorker) {
		return 0, nil
	}

	j.Status = newStatus
	if params.AssignWorker != nil {
		worker := *params.AssignWorker
		j.WorkerID = &worker
	}
	j.UpdatedAt = time.Now().UTC()
	return 1, nil
}

func (m *MemoryStore) CompleteJob(ctx context.Context, jobID uuid.UUID) (*models.Transaction, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, 0, m.err
	}

	j, ok := m.jobs[jobID]
	if !ok || j.Status != models.JobStatusPendingConfirmation || j.WorkerID == nil {
		return nil, 0, nil
	}

	j.Status = models.JobStatusCompleted
	j.UpdatedAt = time.Now().UTC()
	if worker, ok := m.profiles[*j.WorkerID]; ok {
		worker.WalletBalance += j.Price
	}

	txn := &models.Transaction{
		ID:         uuid.New(),
		Amount:     j.Price,
		Type:       models.TransactionTypePayment,
		SenderID:   j.CustomerID,
		ReceiverID: *j.WorkerID,
		JobID:      &jobID,
		CreatedAt:  time.Now().UTC(),
	}
	m.transactions = append(m.transactions, txn)
	cp := *txn
	return &cp, 1, nil
}

// --- Wallets ---

func (m *MemoryStore) AdjustWalletBalance(ctx context.Context, userID uuid.UUID, delta float64) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return 0, ErrNotFound
	}
	if p.WalletBalance+delta < 0 {
		return 0, ErrInsufficientFunds
	}
	p.WalletBalance += delta
	return p.WalletBalance, nil
}

func (m *MemoryStore) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}
	cp := *txn
	m.transactions = append(m.transactions, &cp)
	return nil
}

func (m *MemoryStore) ListTransactions(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var txns []*models.Transaction
	for _, t := range m.transactions {
		if t.SenderID == userID || t.ReceiverID == userID {
			cp := *t
			txns = append(txns, &cp)
		}
	}
	sort.Slice(txns, func(a, b int) bool { return txns[a].CreatedAt.After(txns[b].CreatedAt) })
	return txns, nil
}

// --- Locations ---

func (m *MemoryStore) WriteLocation(ctx context.Context, userID uuid.UUID, sample models.LocationSample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return ErrNotFound
	}
	cp := sample
	p.CurrentLocation = &cp
	return nil
}

func (m *MemoryStore) ReadLocation(ctx context.Context, userID uuid.UUID) (*models.LocationSample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	if p.CurrentLocation == nil {
		return nil, nil
	}
	cp := *p.CurrentLocation
	return &cp, nil
}

// Transactions returns a copy of the full ledger, newest last. Test helper.
func (m *MemoryStore) Transactions() []*models.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Transaction, 0, len(m.transactions))
	for _, t := range m.transactions {
		cp := *t
		out = append(out, &cp)
	}
	return out
}
