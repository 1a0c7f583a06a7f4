package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tanmaydesai/gigflow/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Profiles ---

func (s *PostgresStore) CreateProfile(ctx context.Context, p *models.Profile) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO profiles (user_id, display_name, role, wallet_balance, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		p.UserID, p.DisplayName, p.Role, p.WalletBalance, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, display_name, role, wallet_balance, current_location, created_at, updated_at
		 FROM profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.DisplayName, &p.Role, &p.WalletBalance, &p.CurrentLocation, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

// --- Jobs ---

const jobColumns = `id, title, description, price, service_type, status, customer_id, worker_id, location, scheduled_time, created_at, updated_at`

func (s *PostgresStore) CreateJob(ctx context.Context, j *models.Job) error {
	now := time.Now().UTC()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	if j.UpdatedAt.IsZero() {
		j.UpdatedAt = now
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		j.ID, j.Title, j.Description, j.Price, j.ServiceType, j.Status,
		j.CustomerID, j.WorkerID, j.Location, j.ScheduledTime, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	j, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

func (s *PostgresStore) ListOpenJobs(ctx context.Context) ([]*models.Job, error) {
	return s.listJobs(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = 'open' ORDER BY created_at DESC`)
}

func (s *PostgresStore) ListJobsByCustomer(ctx context.Context, customerID uuid.UUID) ([]*models.Job, error) {
	return s.listJobs(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE customer_id = $1 ORDER BY created_at DESC`, customerID)
}

func (s *PostgresStore) ListJobsByWorker(ctx context.Context, workerID uuid.UUID) ([]*models.Job, error) {
	return s.listJobs(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE worker_id = $1 ORDER BY created_at DESC`, workerID)
}

func (s *PostgresStore) listJobs(ctx context.Context, query string, args ...any) ([]*models.Job, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.Title, &j.Description, &j.Price, &j.ServiceType, &j.Status,
		&j.CustomerID, &j.WorkerID, &j.Location, &j.ScheduledTime, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, id uuid.UUID, expectedStatus, newStatus string, opts ...JobUpdateOption) (int64, error) {
	var params jobUpdateParams
	for _, opt := range opts {
		opt(&params)
	}

	query := `UPDATE jobs SET status = $2, updated_at = NOW() WHERE id = $1 AND status = $3`
	args := []any{id, newStatus, expectedStatus}

	if params.AssignWorker != nil {
		args = append(args, *params.AssignWorker)
		query = fmt.Sprintf(
			`UPDATE jobs SET status = $2, worker_id = $%d, updated_at = NOW()
			 WHERE id = $1 AND status = $3 AND worker_id IS NULL`, len(args))
	}
	if params.ExpectedWorker != nil {
		args = append(args, *params.ExpectedWorker)
		query += fmt.Sprintf(` AND worker_id = $%d`, len(args))
	}

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update job status: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CompleteJob runs the payment release inside a single database transaction:
// the conditional status flip, the worker wallet credit, and the ledger
// insert commit together or not at all.
func (s *PostgresStore) CompleteJob(ctx context.Context, jobID uuid.UUID) (*models.Transaction, int64, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, 0, fmt.Errorf("begin complete job: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		price      float64
		customerID uuid.UUID
		workerID   *uuid.UUID
	)
	err = tx.QueryRow(ctx,
		`UPDATE jobs SET status = 'completed', updated_at = NOW()
		 WHERE id = $1 AND status = 'pending_confirmation'
		 RETURNING price, customer_id, worker_id`, jobID,
	).Scan(&price, &customerID, &workerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("complete job: %w", err)
	}
	if workerID == nil {
		return nil, 0, fmt.Errorf("complete job %s: no worker assigned", jobID)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE profiles SET wallet_balance = wallet_balance + $2, updated_at = NOW()
		 WHERE user_id = $1`, *workerID, price); err != nil {
		return nil, 0, fmt.Errorf("credit worker wallet: %w", err)
	}

	txn := &models.Transaction{
		ID:         uuid.New(),
		Amount:     price,
		Type:       models.TransactionTypePayment,
		SenderID:   customerID,
		ReceiverID: *workerID,
		JobID:      &jobID,
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO transactions (id, amount, type, sender_id, receiver_id, job_id)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
		txn.ID, txn.Amount, txn.Type, txn.SenderID, txn.ReceiverID, txn.JobID,
	).Scan(&txn.CreatedAt)
	if err != nil {
		return nil, 0, fmt.Errorf("insert payment transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("commit complete job: %w", err)
	}
	return txn, 1, nil
}

// --- Wallets ---

func (s *PostgresStore) AdjustWalletBalance(ctx context.Context, userID uuid.UUID, delta float64) (float64, error) {
	var balance float64
	err := s.pool.QueryRow(ctx,
		`UPDATE profiles SET wallet_balance = wallet_balance + $2, updated_at = NOW()
		 WHERE user_id = $1 AND wallet_balance + $2 >= 0
		 RETURNING wallet_balance`, userID, delta,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the profile is missing or the debit would go negative.
		if _, getErr := s.GetProfile(ctx, userID); getErr != nil {
			return 0, getErr
		}
		return 0, ErrInsufficientFunds
	}
	if err != nil {
		return 0, fmt.Errorf("adjust wallet balance: %w", err)
	}
	return balance, nil
}

func (s *PostgresStore) InsertTransaction(ctx context.Context, txn *models.Transaction) error {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO transactions (id, amount, type, sender_id, receiver_id, job_id)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
		txn.ID, txn.Amount, txn.Type, txn.SenderID, txn.ReceiverID, txn.JobID,
	).Scan(&txn.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, userID uuid.UUID) ([]*models.Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, amount, type, sender_id, receiver_id, job_id, created_at
		 FROM transactions WHERE sender_id = $1 OR receiver_id = $1
		 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txns []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.Amount, &t.Type, &t.SenderID, &t.ReceiverID, &t.JobID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, &t)
	}
	return txns, rows.Err()
}

// --- Locations ---

func (s *PostgresStore) WriteLocation(ctx context.Context, userID uuid.UUID, sample models.LocationSample) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE profiles SET current_location = $2, updated_at = NOW() WHERE user_id = $1`,
		userID, sample)
	if err != nil {
		return fmt.Errorf("write location: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ReadLocation(ctx context.Context, userID uuid.UUID) (*models.LocationSample, error) {
	var sample *models.LocationSample
	err := s.pool.QueryRow(ctx,
		`SELECT current_location FROM profiles WHERE user_id = $1`, userID,
	).Scan(&sample)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read location: %w", err)
	}
	return sample, nil
}

// isDuplicateKeyError checks for Postgres unique violation (23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
