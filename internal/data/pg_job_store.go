package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/core"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/data/pgxutil"
	"github.com/bhave-harshal-3000/masumi-makecom-proxy/internal/domain/model"
)

// Advisory lock namespace for retention sweeps. Two-arg
// pg_try_advisory_xact_lock(major, minor) keeps concurrent proxy instances
// from sweeping the same table at once.
const (
	advisoryLockSweepMajor    = 2000
	advisoryLockSweepRetained = 1
)

const jobColumns = `
  id,
  status,
  input_data,
  purchaser_id,
  blockchain_id,
  payment,
  result,
  message,
  created_at,
  completed_at
`

// PGJobStore provides Postgres-backed persistence for job records. It is the
// backend for deployments that need jobs to survive process restarts.
type PGJobStore struct {
	DB *sql.DB
}

// NewPGJobStore creates a job store on top of the given database handle.
func NewPGJobStore(db *sql.DB) *PGJobStore {
	return &PGJobStore{DB: db}
}

// Insert adds a new job record. Returns ErrJobExists when the id is taken.
func (s *PGJobStore) Insert(ctx context.Context, job *model.Job) error {
	if job == nil || job.ID == "" {
		return errors.New("job id is required")
	}

	inputData, err := marshalInputData(job.InputData)
	if err != nil {
		return err
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		job.ID,
		job.Status,
		inputData,
		job.PurchaserID,
		job.BlockchainID,
		[]byte(job.Payment),
		[]byte(job.Result),
		job.Message,
		job.CreatedAt.UTC(),
		job.CompletedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrJobExists
		}
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Get returns the job with the given id.
func (s *PGJobStore) Get(ctx context.Context, id string) (*model.Job, error) {
	row := s.DB.QueryRowContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE id = $1
	`, id)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Mutate loads the record under a row lock, applies fn, and writes the full
// record back in the same transaction. When fn returns an error the
// transaction is rolled back and the error is returned unchanged.
func (s *PGJobStore) Mutate(ctx context.Context, id string, fn func(*model.Job) error) (*model.Job, error) {
	var job *model.Job

	txErr := pgxutil.WithSQLTx(ctx, s.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			row := tx.QueryRowContext(ctx, `
				SELECT `+jobColumns+`
				FROM jobs
				WHERE id = $1
				FOR UPDATE
			`, id)

			loaded, err := scanJob(row)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return ErrJobNotFound
				}
				return fmt.Errorf("load job for update: %w", err)
			}

			if err := fn(loaded); err != nil {
				return err
			}

			inputData, err := marshalInputData(loaded.InputData)
			if err != nil {
				return err
			}

			if _, err := tx.ExecContext(ctx, `
				UPDATE jobs
				SET status = $2,
				    input_data = $3,
				    purchaser_id = $4,
				    blockchain_id = $5,
				    payment = $6,
				    result = $7,
				    message = $8,
				    completed_at = $9
				WHERE id = $1
			`,
				loaded.ID,
				loaded.Status,
				inputData,
				loaded.PurchaserID,
				loaded.BlockchainID,
				[]byte(loaded.Payment),
				[]byte(loaded.Result),
				loaded.Message,
				loaded.CompletedAt,
			); err != nil {
				return fmt.Errorf("update job: %w", err)
			}

			job = loaded
			return nil
		},
	})
	if txErr != nil {
		return nil, txErr
	}
	return job, nil
}

// DeleteTerminalBefore removes terminal jobs completed before the cutoff.
// An advisory lock keeps concurrent instances from running the sweep at the
// same time; when the lock is held elsewhere the call reports zero deletions.
func (s *PGJobStore) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var rowsAffected int64

	err := pgxutil.WithSQLTx(ctx, s.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx,
				"SELECT pg_try_advisory_xact_lock($1, $2)",
				advisoryLockSweepMajor, advisoryLockSweepRetained,
			).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			res, err := tx.ExecContext(ctx, `
				DELETE FROM jobs
				WHERE status IN ('completed', 'error', 'payment_timeout')
				  AND completed_at IS NOT NULL
				  AND completed_at < $1
			`, cutoff.UTC())
			if err != nil {
				return fmt.Errorf("delete terminal jobs: %w", err)
			}

			rowsAffected, err = res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}

// Health reports whether the database is reachable.
func (s *PGJobStore) Health(ctx context.Context) error {
	if err := s.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	return nil
}

// jobRowScanner abstracts sql.Row and sql.Rows for the shared scan helper.
type jobRowScanner interface {
	Scan(dest ...any) error
}

func scanJob(scanner jobRowScanner) (*model.Job, error) {
	var (
		job         model.Job
		status      string
		inputData   []byte
		payment     []byte
		result      []byte
		completedAt sql.NullTime
	)

	if err := scanner.Scan(
		&job.ID,
		&status,
		&inputData,
		&job.PurchaserID,
		&job.BlockchainID,
		&payment,
		&result,
		&job.Message,
		&job.CreatedAt,
		&completedAt,
	); err != nil {
		return nil, err
	}

	job.Status = model.JobStatus(status)
	if len(inputData) > 0 {
		if err := json.Unmarshal(inputData, &job.InputData); err != nil {
			return nil, fmt.Errorf("unmarshal input data: %w", err)
		}
	}
	if len(payment) > 0 {
		job.Payment = json.RawMessage(payment)
	}
	if len(result) > 0 {
		job.Result = json.RawMessage(result)
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return &job, nil
}

func marshalInputData(items []model.InputItem) ([]byte, error) {
	if items == nil {
		return []byte(`[]`), nil
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("marshal input data: %w", err)
	}
	return data, nil
}

var _ core.JobStore = (*PGJobStore)(nil)
