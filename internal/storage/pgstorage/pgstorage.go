package pgstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/mlevkov/partnerhub/internal/domain/accounts"
	"github.com/mlevkov/partnerhub/internal/domain/ledger"
	"github.com/mlevkov/partnerhub/internal/domain/payouts"
	"github.com/mlevkov/partnerhub/internal/storage"
	"github.com/mlevkov/partnerhub/internal/storage/dbmodels"
	"github.com/shopspring/decimal"

	// Postgres driver.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

var _ storage.Storage = (*Storage)(nil)

type Storage struct {
	db *sql.DB
}

type Config struct {
	maxOpenConns    int
	maxIdleConns    int
	connMaxIdleTime time.Duration
	connMaxLifetime time.Duration
}

type Option func(s *Config)

func WithMaxOpenConns(conns int) Option {
	return func(c *Config) {
		c.maxOpenConns = conns
	}
}

func WithMaxIdleConns(conns int) Option {
	return func(c *Config) {
		c.maxIdleConns = conns
	}
}

func WithConnMaxIdleTime(idleTime time.Duration) Option {
	return func(c *Config) {
		c.connMaxIdleTime = idleTime
	}
}

func WithConnMaxLifetime(lifetime time.Duration) Option {
	return func(c *Config) {
		c.connMaxLifetime = lifetime
	}
}

func NewStorage(connStr string, opts ...Option) (*Storage, error) {
	cfg := &Config{
		maxOpenConns:    10,
		maxIdleConns:    5,
		connMaxIdleTime: 180 * time.Second,
		connMaxLifetime: 3600 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	db.SetMaxOpenConns(cfg.maxOpenConns)
	db.SetMaxIdleConns(cfg.maxIdleConns)
	db.SetConnMaxIdleTime(cfg.connMaxIdleTime)
	db.SetConnMaxLifetime(cfg.connMaxLifetime)

	return &Storage{
		db: db,
	}, nil
}

func (s *Storage) Bootstrap(ctx context.Context) error {
	provider, err := goose.NewProvider(
		goose.DialectPostgres,
		s.db,
		os.DirFS("internal/storage/pgstorage/migrations"),
	)
	if err != nil {
		return fmt.Errorf("goose.NewProvider: %w", err)
	}

	_, err = provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("provider.Up: %w", err)
	}

	return nil
}

func (s *Storage) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("db.Close: %w", err)
	}

	return nil
}

// isRetryableError checks if error is retryable.
func isRetryableError(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgerrcode.IsConnectionException(pgErr.Code) {
		return true
	}

	return false
}

// WithRetry retries operations in case of retryable errors.
func WithRetry(operation func() error) error {
	retryCount := 3

	var retryWaitTime time.Duration

	retryWaitInterval := 2

	var err error

	for i := 0; i < retryCount; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if isRetryableError(err) {
			retryWaitTime = time.Duration((i*retryWaitInterval + 1)) * time.Second // 1s, 3s, 5s, etc.

			time.Sleep(retryWaitTime)
		} else {
			return fmt.Errorf("%w", err)
		}
	}

	return fmt.Errorf("retry attempts exceeded: %w", err)
}

func (s *Storage) Ping(ctx context.Context) error {
	err := WithRetry(func() error {
		if err := s.db.PingContext(ctx); err != nil {
			return fmt.Errorf("db.PingContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) CreateAccount(ctx context.Context, acc *accounts.Account) error {
	err := WithRetry(func() error {
		query := `INSERT INTO accounts (id, login, password_hash, twofa_state, secret, tmp_secret)
			VALUES ($1, $2, $3, $4, $5, $6)`

		_, err := s.db.ExecContext(ctx, query,
			acc.ID(), acc.Login(), acc.PasswordHash(), string(acc.TwoFAState()),
			nullString(acc.Secret()), nullString(acc.TmpSecret()),
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
				return storage.ErrAccountAlreadyExists
			}

			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) GetAccount(ctx context.Context, login string) (*accounts.Account, error) {
	dbAccount := new(dbmodels.Account)

	err := WithRetry(func() error {
		query := `SELECT id, login, password_hash, twofa_state, secret, tmp_secret
			FROM accounts WHERE login = $1`

		row := s.db.QueryRowContext(ctx, query, login)

		if err := row.Scan(
			&dbAccount.ID, &dbAccount.Login, &dbAccount.PasswordHash,
			&dbAccount.TwoFAState, &dbAccount.Secret, &dbAccount.TmpSecret,
		); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrAccountNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return accounts.RestoreAccount(
		dbAccount.ID, dbAccount.Login, dbAccount.PasswordHash,
		accounts.TwoFAState(dbAccount.TwoFAState),
		dbAccount.Secret.String, dbAccount.TmpSecret.String,
	), nil
}

func (s *Storage) UpdateAccountTwoFA(ctx context.Context, acc *accounts.Account) error {
	err := WithRetry(func() error {
		query := `UPDATE accounts SET twofa_state = $1, secret = $2, tmp_secret = $3 WHERE login = $4`

		result, err := s.db.ExecContext(ctx, query,
			string(acc.TwoFAState()), nullString(acc.Secret()), nullString(acc.TmpSecret()), acc.Login(),
		)
		if err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("result.RowsAffected: %w", err)
		}

		if affected == 0 {
			return storage.ErrAccountNotFound
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) CreateBankAccount(ctx context.Context, ba *accounts.BankAccount) error {
	err := WithRetry(func() error {
		query := `INSERT INTO bank_accounts (id, login, bank_name, number, created_at)
			VALUES ($1, $2, $3, $4, $5)`

		if _, err := s.db.ExecContext(ctx, query,
			ba.ID(), ba.Login(), ba.BankName(), ba.Number(), ba.CreatedAt(),
		); err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) GetBankAccount(ctx context.Context, id string) (*accounts.BankAccount, error) {
	dbBankAccount := new(dbmodels.BankAccount)

	err := WithRetry(func() error {
		query := `SELECT id, login, bank_name, number, created_at FROM bank_accounts WHERE id = $1`

		row := s.db.QueryRowContext(ctx, query, id)

		if err := row.Scan(
			&dbBankAccount.ID, &dbBankAccount.Login, &dbBankAccount.BankName,
			&dbBankAccount.Number, &dbBankAccount.CreatedAt,
		); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrBankAccountNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return accounts.RestoreBankAccount(
		dbBankAccount.ID, dbBankAccount.Login, dbBankAccount.BankName,
		dbBankAccount.Number, dbBankAccount.CreatedAt,
	), nil
}

func (s *Storage) GetBankAccountsByLogin(ctx context.Context, login string) ([]*accounts.BankAccount, error) {
	dbBankAccounts := make([]*dbmodels.BankAccount, 0)

	err := WithRetry(func() error {
		query := `SELECT id, login, bank_name, number, created_at FROM bank_accounts
			WHERE login = $1 ORDER BY created_at ASC`

		rows, err := s.db.QueryContext(ctx, query, login)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}

		defer rows.Close()

		for rows.Next() {
			dbBankAccount := new(dbmodels.BankAccount)

			if err := rows.Scan(
				&dbBankAccount.ID, &dbBankAccount.Login, &dbBankAccount.BankName,
				&dbBankAccount.Number, &dbBankAccount.CreatedAt,
			); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			dbBankAccounts = append(dbBankAccounts, dbBankAccount)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	bankAccounts := make([]*accounts.BankAccount, 0, len(dbBankAccounts))
	for _, dbBankAccount := range dbBankAccounts {
		bankAccounts = append(bankAccounts, accounts.RestoreBankAccount(
			dbBankAccount.ID, dbBankAccount.Login, dbBankAccount.BankName,
			dbBankAccount.Number, dbBankAccount.CreatedAt,
		))
	}

	return bankAccounts, nil
}

func (s *Storage) AppendEntry(ctx context.Context, entry *ledger.Entry) error {
	err := WithRetry(func() error {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO ledger_entries (id, login, kind, amount, description, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
			entry.ID(), entry.Login(), string(entry.Kind()), entry.Amount(),
			nullString(entry.Description()), entry.CreatedAt(),
		); err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) GetEntriesByLogin(ctx context.Context, login string) ([]*ledger.Entry, error) {
	dbEntries := make([]*dbmodels.LedgerEntry, 0)

	err := WithRetry(func() error {
		query := `SELECT id, login, kind, amount, description, created_at FROM ledger_entries
			WHERE login = $1 ORDER BY created_at DESC`

		rows, err := s.db.QueryContext(ctx, query, login)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}

		defer rows.Close()

		for rows.Next() {
			dbEntry := new(dbmodels.LedgerEntry)

			if err := rows.Scan(
				&dbEntry.ID, &dbEntry.Login, &dbEntry.Kind,
				&dbEntry.Amount, &dbEntry.Description, &dbEntry.CreatedAt,
			); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			dbEntries = append(dbEntries, dbEntry)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	entries := make([]*ledger.Entry, 0, len(dbEntries))
	for _, dbEntry := range dbEntries {
		entries = append(entries, ledger.RestoreEntry(
			dbEntry.ID, dbEntry.Login, ledger.EntryKind(dbEntry.Kind),
			dbEntry.Amount, dbEntry.Description.String, dbEntry.CreatedAt,
		))
	}

	return entries, nil
}

func (s *Storage) SumEntriesByKind(ctx context.Context, login string, kind ledger.EntryKind) (decimal.Decimal, error) {
	var sum decimal.Decimal

	err := WithRetry(func() error {
		query := `SELECT COALESCE(SUM(amount), 0) FROM ledger_entries WHERE login = $1 AND kind = $2`

		row := s.db.QueryRowContext(ctx, query, login, string(kind))

		if err := row.Scan(&sum); err != nil {
			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	return sum, nil
}

func (s *Storage) CreateWithdrawal(ctx context.Context, req *payouts.WithdrawalRequest, debit *ledger.Entry) error {
	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO withdrawal_requests (id, login, amount, bank_account_id, status, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
			req.ID(), req.Login(), req.Amount(), nullString(req.BankAccountID()),
			string(req.Status()), req.CreatedAt(),
		); err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ledger_entries (id, login, kind, amount, description, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
			debit.ID(), debit.Login(), string(debit.Kind()), debit.Amount(),
			nullString(debit.Description()), debit.CreatedAt(),
		); err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) GetWithdrawal(ctx context.Context, id string) (*payouts.WithdrawalRequest, error) {
	dbRequest := new(dbmodels.WithdrawalRequest)

	err := WithRetry(func() error {
		query := `SELECT id, login, amount, bank_account_id, status, note, created_at, reviewed_at, notified_at
			FROM withdrawal_requests WHERE id = $1`

		row := s.db.QueryRowContext(ctx, query, id)

		if err := scanWithdrawal(row.Scan, dbRequest); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrWithdrawalNotFound
			}

			return fmt.Errorf("db.QueryRowContext: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return restoreWithdrawal(dbRequest), nil
}

func (s *Storage) ReviewWithdrawal(ctx context.Context, req *payouts.WithdrawalRequest, reversal *ledger.Entry) error {
	err := WithRetry(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("db.BeginTx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck

		result, err := tx.ExecContext(ctx,
			`UPDATE withdrawal_requests SET status = $1, note = $2, reviewed_at = $3
				WHERE id = $4 AND status = 'pending'`,
			string(req.Status()), nullString(req.Note()), req.ReviewedAt(), req.ID(),
		)
		if err != nil {
			return fmt.Errorf("tx.ExecContext: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("result.RowsAffected: %w", err)
		}

		// Guards against concurrent reviews of the same request.
		if affected == 0 {
			return payouts.ErrAlreadyReviewed
		}

		if reversal != nil {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO ledger_entries (id, login, kind, amount, description, created_at)
					VALUES ($1, $2, $3, $4, $5, $6)`,
				reversal.ID(), reversal.Login(), string(reversal.Kind()), reversal.Amount(),
				nullString(reversal.Description()), reversal.CreatedAt(),
			); err != nil {
				return fmt.Errorf("tx.ExecContext: %w", err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("tx.Commit: %w", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) GetWithdrawalsByLogin(ctx context.Context, login string) ([]*payouts.WithdrawalRequest, error) {
	query := `SELECT id, login, amount, bank_account_id, status, note, created_at, reviewed_at, notified_at
		FROM withdrawal_requests WHERE login = $1 ORDER BY created_at DESC`

	return s.queryWithdrawals(ctx, query, login)
}

func (s *Storage) GetWithdrawalsByStatus(ctx context.Context, statuses []payouts.Status, limit, offset int) ([]*payouts.WithdrawalRequest, error) {
	statusStrings := make([]string, 0, len(statuses))
	for _, status := range statuses {
		statusStrings = append(statusStrings, string(status))
	}

	query := `SELECT id, login, amount, bank_account_id, status, note, created_at, reviewed_at, notified_at
		FROM withdrawal_requests WHERE status = ANY($1) ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	return s.queryWithdrawals(ctx, query, pq.Array(statusStrings), limit, offset)
}

func (s *Storage) GetUnnotifiedReviewed(ctx context.Context, limit int) ([]*payouts.WithdrawalRequest, error) {
	query := `SELECT id, login, amount, bank_account_id, status, note, created_at, reviewed_at, notified_at
		FROM withdrawal_requests WHERE status <> 'pending' AND notified_at IS NULL
		ORDER BY created_at DESC LIMIT $1`

	return s.queryWithdrawals(ctx, query, limit)
}

func (s *Storage) MarkWithdrawalNotified(ctx context.Context, id string) error {
	err := WithRetry(func() error {
		result, err := s.db.ExecContext(ctx,
			`UPDATE withdrawal_requests SET notified_at = NOW() WHERE id = $1`, id,
		)
		if err != nil {
			return fmt.Errorf("db.ExecContext: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("result.RowsAffected: %w", err)
		}

		if affected == 0 {
			return storage.ErrWithdrawalNotFound
		}

		return nil
	})
	if err != nil {
		return err
	}

	return nil
}

func (s *Storage) queryWithdrawals(ctx context.Context, query string, args ...any) ([]*payouts.WithdrawalRequest, error) {
	dbRequests := make([]*dbmodels.WithdrawalRequest, 0)

	err := WithRetry(func() error {
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("db.QueryContext: %w", err)
		}

		defer rows.Close()

		for rows.Next() {
			dbRequest := new(dbmodels.WithdrawalRequest)

			if err := scanWithdrawal(rows.Scan, dbRequest); err != nil {
				return fmt.Errorf("rows.Scan: %w", err)
			}

			dbRequests = append(dbRequests, dbRequest)
		}

		return rows.Err()
	})
	if err != nil {
		return nil, err
	}

	requests := make([]*payouts.WithdrawalRequest, 0, len(dbRequests))
	for _, dbRequest := range dbRequests {
		requests = append(requests, restoreWithdrawal(dbRequest))
	}

	return requests, nil
}

func scanWithdrawal(scan func(...any) error, dbRequest *dbmodels.WithdrawalRequest) error {
	return scan(
		&dbRequest.ID, &dbRequest.Login, &dbRequest.Amount, &dbRequest.BankAccountID,
		&dbRequest.Status, &dbRequest.Note, &dbRequest.CreatedAt,
		&dbRequest.ReviewedAt, &dbRequest.NotifiedAt,
	)
}

func restoreWithdrawal(dbRequest *dbmodels.WithdrawalRequest) *payouts.WithdrawalRequest {
	return payouts.RestoreWithdrawalRequest(
		dbRequest.ID, dbRequest.Login, dbRequest.Amount,
		dbRequest.BankAccountID.String,
		payouts.Status(dbRequest.Status), dbRequest.Note.String,
		dbRequest.CreatedAt, dbRequest.ReviewedAt.Time, dbRequest.NotifiedAt.Time,
	)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
