/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements engine.TxStore (schedules, payments, journal, receipt
  counters) using SQLite. In production, the same patterns apply to
  PostgreSQL - only minor SQL dialect differences (the per-school counter
  row would take SELECT ... FOR UPDATE there).

KEY TABLES:
  schedules:        One row per (student, academic year) with the due,
                    paid, and due-date vectors, derived status, and an
                    optimistic version counter
  payments:         Payment lifecycle plus the per-bucket allocation
                    written at validation
  journal:          Append-only audit log; rowid gives causal order
  receipt_counters: Per-school monotonic counter

CONCURRENCY:
  A sync.Mutex serializes writes: SQLite allows a single writer anyway,
  and the mutex keeps WithTx bodies (read schedule, allocate, write
  schedule + payment + journal + counter) from interleaving. On top of
  that, UpdateSchedule checks the version it read; a mismatch surfaces as
  engine.ErrConflictingUpdate so the caller can retry.

WAL MODE:
  Opened with WAL so readers do not block behind the writer.

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE ever touches the journal table.

USAGE:
  st, err := sqlite.New("./data/tuition.db")
  if err != nil { log.Fatal(err) }
  defer st.Close()
  svc := engine.NewService(st)

SEE ALSO:
  - engine/store.go: Interface definitions
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/scolaris/tuition-engine/engine"
)

// Store implements engine.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer; one pooled connection also keeps
	// ":memory:" databases from splitting across connections.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schedules (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		academic_year TEXT NOT NULL,
		due_inscription TEXT NOT NULL,
		due_t1 TEXT NOT NULL,
		due_t2 TEXT NOT NULL,
		due_t3 TEXT NOT NULL,
		paid_inscription TEXT NOT NULL,
		paid_t1 TEXT NOT NULL,
		paid_t2 TEXT NOT NULL,
		paid_t3 TEXT NOT NULL,
		due_date_inscription TEXT NOT NULL,
		due_date_t1 TEXT NOT NULL,
		due_date_t2 TEXT NOT NULL,
		due_date_t3 TEXT NOT NULL,
		status TEXT NOT NULL,
		allow_partial BOOLEAN NOT NULL DEFAULT TRUE,
		late_penalty_pct TEXT NOT NULL DEFAULT '0',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(student_id, academic_year)
	);

	CREATE INDEX IF NOT EXISTS idx_schedules_student
		ON schedules(student_id, academic_year);
	CREATE INDEX IF NOT EXISTS idx_schedules_status
		ON schedules(status);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		school_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		academic_year TEXT NOT NULL,
		amount TEXT NOT NULL,
		pay_date TEXT NOT NULL,
		type_label TEXT NOT NULL,
		method_label TEXT,
		state TEXT NOT NULL DEFAULT 'PENDING',
		receipt_number TEXT,
		alloc_inscription TEXT,
		alloc_t1 TEXT,
		alloc_t2 TEXT,
		alloc_t3 TEXT,
		created_at TEXT NOT NULL,
		validated_at TEXT,
		canceled_at TEXT
	);

	-- Receipt numbers are unique within a school.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_receipt
		ON payments(school_id, receipt_number) WHERE receipt_number IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_payments_student
		ON payments(student_id, academic_year);
	CREATE INDEX IF NOT EXISTS idx_payments_state
		ON payments(state);

	-- Append-only audit log. rowid reflects commit order per schedule.
	CREATE TABLE IF NOT EXISTS journal (
		id TEXT PRIMARY KEY,
		ts TEXT NOT NULL,
		actor_id TEXT,
		kind TEXT NOT NULL,
		schedule_id TEXT NOT NULL,
		payment_id TEXT,
		before_blob TEXT NOT NULL,
		after_blob TEXT NOT NULL,
		description TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_journal_schedule
		ON journal(schedule_id);
	CREATE INDEX IF NOT EXISTS idx_journal_kind
		ON journal(kind);

	CREATE TABLE IF NOT EXISTS receipt_counters (
		school_id TEXT PRIMARY KEY,
		next_value INTEGER NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so every operation can run
// standalone or inside WithTx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// SCHEDULE STORE (engine.ScheduleStore interface)
// =============================================================================

func (s *Store) CreateSchedule(ctx context.Context, sched *engine.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createSchedule(ctx, s.db, sched)
}

func createSchedule(ctx context.Context, q dbtx, sched *engine.Schedule) error {
	query := `
		INSERT INTO schedules
		(id, student_id, academic_year,
		 due_inscription, due_t1, due_t2, due_t3,
		 paid_inscription, paid_t1, paid_t2, paid_t3,
		 due_date_inscription, due_date_t1, due_date_t2, due_date_t3,
		 status, allow_partial, late_penalty_pct, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		sched.ID, sched.StudentID, sched.AcademicYear,
		sched.Due[engine.BucketInscription].String(),
		sched.Due[engine.BucketT1].String(),
		sched.Due[engine.BucketT2].String(),
		sched.Due[engine.BucketT3].String(),
		sched.Paid[engine.BucketInscription].String(),
		sched.Paid[engine.BucketT1].String(),
		sched.Paid[engine.BucketT2].String(),
		sched.Paid[engine.BucketT3].String(),
		sched.DueDates[engine.BucketInscription].String(),
		sched.DueDates[engine.BucketT1].String(),
		sched.DueDates[engine.BucketT2].String(),
		sched.DueDates[engine.BucketT3].String(),
		sched.Status, sched.AllowPartial, sched.LatePenaltyPct.String(), sched.Version,
		sched.CreatedAt.UTC().Format(time.RFC3339),
		sched.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: schedule for %s %s already exists",
				engine.ErrConflictingUpdate, sched.StudentID, sched.AcademicYear)
		}
		return fmt.Errorf("failed to insert schedule: %w", err)
	}
	return nil
}

const scheduleColumns = `
	id, student_id, academic_year,
	due_inscription, due_t1, due_t2, due_t3,
	paid_inscription, paid_t1, paid_t2, paid_t3,
	due_date_inscription, due_date_t1, due_date_t2, due_date_t3,
	status, allow_partial, late_penalty_pct, version, created_at, updated_at
`

func (s *Store) GetSchedule(ctx context.Context, studentID engine.StudentID, year engine.AcademicYear) (*engine.Schedule, error) {
	return getSchedule(ctx, s.db, studentID, year)
}

func getSchedule(ctx context.Context, q dbtx, studentID engine.StudentID, year engine.AcademicYear) (*engine.Schedule, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE student_id = ? AND academic_year = ?`,
		studentID, year)
	sched, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: schedule for student %s, year %s", engine.ErrNotFound, studentID, year)
	}
	return sched, err
}

func (s *Store) GetScheduleByID(ctx context.Context, id engine.ScheduleID) (*engine.Schedule, error) {
	return getScheduleByID(ctx, s.db, id)
}

func getScheduleByID(ctx context.Context, q dbtx, id engine.ScheduleID) (*engine.Schedule, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)
	sched, err := scanSchedule(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: schedule %s", engine.ErrNotFound, id)
	}
	return sched, err
}

func (s *Store) UpdateSchedule(ctx context.Context, sched *engine.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateSchedule(ctx, s.db, sched)
}

// updateSchedule writes the paid vector and status, guarded by the version
// the caller read. Zero rows affected with an existing row means a
// concurrent writer won.
func updateSchedule(ctx context.Context, q dbtx, sched *engine.Schedule) error {
	query := `
		UPDATE schedules SET
			paid_inscription = ?, paid_t1 = ?, paid_t2 = ?, paid_t3 = ?,
			status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`
	res, err := q.ExecContext(ctx, query,
		sched.Paid[engine.BucketInscription].String(),
		sched.Paid[engine.BucketT1].String(),
		sched.Paid[engine.BucketT2].String(),
		sched.Paid[engine.BucketT3].String(),
		sched.Status,
		sched.UpdatedAt.UTC().Format(time.RFC3339),
		sched.ID, sched.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists int
		if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM schedules WHERE id = ?`, sched.ID).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return fmt.Errorf("%w: schedule %s", engine.ErrNotFound, sched.ID)
		}
		return fmt.Errorf("%w: schedule %s version %d is stale", engine.ErrConflictingUpdate, sched.ID, sched.Version)
	}
	sched.Version++
	return nil
}

func (s *Store) ListScheduleIDs(ctx context.Context) ([]engine.ScheduleID, error) {
	return listScheduleIDs(ctx, s.db)
}

func listScheduleIDs(ctx context.Context, q dbtx) ([]engine.ScheduleID, error) {
	rows, err := q.QueryContext(ctx, `SELECT id FROM schedules ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	var ids []engine.ScheduleID
	for rows.Next() {
		var id engine.ScheduleID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*engine.Schedule, error) {
	var (
		sched                             engine.Schedule
		dueI, dueT1, dueT2, dueT3         string
		paidI, paidT1, paidT2, paidT3     string
		dateI, dateT1, dateT2, dateT3     string
		latePenalty, createdAt, updatedAt string
	)
	err := row.Scan(
		&sched.ID, &sched.StudentID, &sched.AcademicYear,
		&dueI, &dueT1, &dueT2, &dueT3,
		&paidI, &paidT1, &paidT2, &paidT3,
		&dateI, &dateT1, &dateT2, &dateT3,
		&sched.Status, &sched.AllowPartial, &latePenalty, &sched.Version,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	sched.Due, err = moneyVector(dueI, dueT1, dueT2, dueT3)
	if err != nil {
		return nil, fmt.Errorf("failed to scan schedule due: %w", err)
	}
	sched.Paid, err = moneyVector(paidI, paidT1, paidT2, paidT3)
	if err != nil {
		return nil, fmt.Errorf("failed to scan schedule paid: %w", err)
	}
	sched.DueDates, err = dateVector(dateI, dateT1, dateT2, dateT3)
	if err != nil {
		return nil, fmt.Errorf("failed to scan schedule due dates: %w", err)
	}

	penalty, err := engine.ParseMoney(latePenalty)
	if err != nil {
		return nil, fmt.Errorf("failed to scan late penalty: %w", err)
	}
	sched.LatePenaltyPct = penalty.Value

	sched.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan schedule created_at: %w", err)
	}
	sched.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan schedule updated_at: %w", err)
	}
	return &sched, nil
}

// =============================================================================
// PAYMENT STORE (engine.PaymentStore interface)
// =============================================================================

func (s *Store) CreatePayment(ctx context.Context, p *engine.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createPayment(ctx, s.db, p)
}

func createPayment(ctx context.Context, q dbtx, p *engine.Payment) error {
	query := `
		INSERT INTO payments
		(id, school_id, student_id, academic_year, amount, pay_date,
		 type_label, method_label, state, receipt_number,
		 alloc_inscription, alloc_t1, alloc_t2, alloc_t3,
		 created_at, validated_at, canceled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	a0, a1, a2, a3 := allocColumns(p.Allocation)
	_, err := q.ExecContext(ctx, query,
		p.ID, p.SchoolID, p.StudentID, p.AcademicYear,
		p.Amount.String(), p.Date.String(),
		p.Type, nullString(p.Method), p.State, nullString(p.Receipt),
		a0, a1, a2, a3,
		p.CreatedAt.UTC().Format(time.RFC3339),
		nullTime(p.ValidatedAt), nullTime(p.CanceledAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: payment %s already exists", engine.ErrConflictingUpdate, p.ID)
		}
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

const paymentColumns = `
	id, school_id, student_id, academic_year, amount, pay_date,
	type_label, method_label, state, receipt_number,
	alloc_inscription, alloc_t1, alloc_t2, alloc_t3,
	created_at, validated_at, canceled_at
`

func (s *Store) GetPayment(ctx context.Context, id engine.PaymentID) (*engine.Payment, error) {
	return getPayment(ctx, s.db, id)
}

func getPayment(ctx context.Context, q dbtx, id engine.PaymentID) (*engine.Payment, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	p, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: payment %s", engine.ErrNotFound, id)
	}
	return p, err
}

func (s *Store) UpdatePayment(ctx context.Context, p *engine.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updatePayment(ctx, s.db, p)
}

func updatePayment(ctx context.Context, q dbtx, p *engine.Payment) error {
	query := `
		UPDATE payments SET
			state = ?, receipt_number = ?,
			alloc_inscription = ?, alloc_t1 = ?, alloc_t2 = ?, alloc_t3 = ?,
			validated_at = ?, canceled_at = ?
		WHERE id = ?
	`
	a0, a1, a2, a3 := allocColumns(p.Allocation)
	res, err := q.ExecContext(ctx, query,
		p.State, nullString(p.Receipt),
		a0, a1, a2, a3,
		nullTime(p.ValidatedAt), nullTime(p.CanceledAt),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: payment %s", engine.ErrNotFound, p.ID)
	}
	return nil
}

func (s *Store) PaymentsForStudent(ctx context.Context, studentID engine.StudentID, year engine.AcademicYear) ([]engine.Payment, error) {
	return paymentsForStudent(ctx, s.db, studentID, year)
}

func paymentsForStudent(ctx context.Context, q dbtx, studentID engine.StudentID, year engine.AcademicYear) ([]engine.Payment, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments
		 WHERE student_id = ? AND academic_year = ?
		 ORDER BY created_at ASC`,
		studentID, year)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var out []engine.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanPayment(row rowScanner) (*engine.Payment, error) {
	var (
		p                       engine.Payment
		amount, payDate         string
		method, receipt         sql.NullString
		a0, a1, a2, a3          sql.NullString
		createdAt               string
		validatedAt, canceledAt sql.NullString
	)
	err := row.Scan(
		&p.ID, &p.SchoolID, &p.StudentID, &p.AcademicYear, &amount, &payDate,
		&p.Type, &method, &p.State, &receipt,
		&a0, &a1, &a2, &a3,
		&createdAt, &validatedAt, &canceledAt,
	)
	if err != nil {
		return nil, err
	}

	p.Amount, err = engine.ParseMoney(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment amount: %w", err)
	}
	p.Date, err = engine.ParseDate(payDate)
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment date: %w", err)
	}
	p.Method = method.String
	p.Receipt = receipt.String

	if a0.Valid {
		alloc, err := moneyVector(a0.String, a1.String, a2.String, a3.String)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment allocation: %w", err)
		}
		p.Allocation = engine.Allocation(alloc)
	}

	p.CreatedAt, err = time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment created_at: %w", err)
	}
	p.ValidatedAt = parseNullTime(validatedAt)
	p.CanceledAt = parseNullTime(canceledAt)
	return &p, nil
}

// =============================================================================
// JOURNAL (engine.Journal interface)
// =============================================================================

func (s *Store) AppendJournal(ctx context.Context, entry engine.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendJournal(ctx, s.db, entry)
}

func appendJournal(ctx context.Context, q dbtx, entry engine.JournalEntry) error {
	beforeBlob, err := json.Marshal(entry.Before)
	if err != nil {
		return fmt.Errorf("failed to marshal journal snapshot: %w", err)
	}
	afterBlob, err := json.Marshal(entry.After)
	if err != nil {
		return fmt.Errorf("failed to marshal journal snapshot: %w", err)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO journal
		(id, ts, actor_id, kind, schedule_id, payment_id, before_blob, after_blob, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Timestamp.UTC().Format(time.RFC3339),
		entry.ActorID, entry.Kind, entry.ScheduleID,
		nullString(string(entry.PaymentID)),
		string(beforeBlob), string(afterBlob),
		entry.Description,
	)
	if err != nil {
		return fmt.Errorf("failed to append journal entry: %w", err)
	}
	return nil
}

func (s *Store) JournalBySchedule(ctx context.Context, scheduleID engine.ScheduleID) ([]engine.JournalEntry, error) {
	return journalBySchedule(ctx, s.db, scheduleID)
}

func journalBySchedule(ctx context.Context, q dbtx, scheduleID engine.ScheduleID) ([]engine.JournalEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, ts, actor_id, kind, schedule_id, payment_id, before_blob, after_blob, description
		FROM journal WHERE schedule_id = ? ORDER BY rowid ASC`,
		scheduleID)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var out []engine.JournalEntry
	for rows.Next() {
		var (
			e          engine.JournalEntry
			ts         string
			paymentID  sql.NullString
			beforeBlob string
			afterBlob  string
		)
		if err := rows.Scan(&e.ID, &ts, &e.ActorID, &e.Kind, &e.ScheduleID,
			&paymentID, &beforeBlob, &afterBlob, &e.Description); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal timestamp: %w", err)
		}
		e.Timestamp = parsed
		e.PaymentID = engine.PaymentID(paymentID.String)
		if err := json.Unmarshal([]byte(beforeBlob), &e.Before); err != nil {
			return nil, fmt.Errorf("failed to decode journal snapshot: %w", err)
		}
		if err := json.Unmarshal([]byte(afterBlob), &e.After); err != nil {
			return nil, fmt.Errorf("failed to decode journal snapshot: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// RECEIPT COUNTER (engine.ReceiptCounter interface)
// =============================================================================

func (s *Store) NextReceiptNumber(ctx context.Context, schoolID engine.SchoolID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return nextReceiptNumber(ctx, s.db, schoolID)
}

// nextReceiptNumber serializes per school via the counter row. Inside
// WithTx the increment rolls back with everything else, so an aborted
// validation never consumes a number another school could observe.
func nextReceiptNumber(ctx context.Context, q dbtx, schoolID engine.SchoolID) (string, error) {
	if _, err := q.ExecContext(ctx,
		`INSERT INTO receipt_counters (school_id, next_value) VALUES (?, 0)
		 ON CONFLICT(school_id) DO NOTHING`, schoolID); err != nil {
		return "", fmt.Errorf("failed to seed receipt counter: %w", err)
	}
	if _, err := q.ExecContext(ctx,
		`UPDATE receipt_counters SET next_value = next_value + 1 WHERE school_id = ?`,
		schoolID); err != nil {
		return "", fmt.Errorf("failed to advance receipt counter: %w", err)
	}
	var value int64
	if err := q.QueryRowContext(ctx,
		`SELECT next_value FROM receipt_counters WHERE school_id = ?`, schoolID).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to read receipt counter: %w", err)
	}
	return engine.FormatReceiptNumber(schoolID, value), nil
}

// =============================================================================
// TRANSACTIONAL STORE (engine.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. If fn returns an
// error the transaction is rolled back: schedule, payment, journal, and
// receipt counter writes all vanish together.
func (s *Store) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) CreateSchedule(ctx context.Context, sched *engine.Schedule) error {
	return createSchedule(ctx, ts.tx, sched)
}

func (ts *txStore) GetSchedule(ctx context.Context, studentID engine.StudentID, year engine.AcademicYear) (*engine.Schedule, error) {
	return getSchedule(ctx, ts.tx, studentID, year)
}

func (ts *txStore) GetScheduleByID(ctx context.Context, id engine.ScheduleID) (*engine.Schedule, error) {
	return getScheduleByID(ctx, ts.tx, id)
}

func (ts *txStore) UpdateSchedule(ctx context.Context, sched *engine.Schedule) error {
	return updateSchedule(ctx, ts.tx, sched)
}

func (ts *txStore) ListScheduleIDs(ctx context.Context) ([]engine.ScheduleID, error) {
	return listScheduleIDs(ctx, ts.tx)
}

func (ts *txStore) CreatePayment(ctx context.Context, p *engine.Payment) error {
	return createPayment(ctx, ts.tx, p)
}

func (ts *txStore) GetPayment(ctx context.Context, id engine.PaymentID) (*engine.Payment, error) {
	return getPayment(ctx, ts.tx, id)
}

func (ts *txStore) UpdatePayment(ctx context.Context, p *engine.Payment) error {
	return updatePayment(ctx, ts.tx, p)
}

func (ts *txStore) PaymentsForStudent(ctx context.Context, studentID engine.StudentID, year engine.AcademicYear) ([]engine.Payment, error) {
	return paymentsForStudent(ctx, ts.tx, studentID, year)
}

func (ts *txStore) AppendJournal(ctx context.Context, entry engine.JournalEntry) error {
	return appendJournal(ctx, ts.tx, entry)
}

func (ts *txStore) JournalBySchedule(ctx context.Context, scheduleID engine.ScheduleID) ([]engine.JournalEntry, error) {
	return journalBySchedule(ctx, ts.tx, scheduleID)
}

func (ts *txStore) NextReceiptNumber(ctx context.Context, schoolID engine.SchoolID) (string, error) {
	return nextReceiptNumber(ctx, ts.tx, schoolID)
}

// =============================================================================
// HELPERS
// =============================================================================

func moneyVector(inscription, t1, t2, t3 string) (map[engine.Bucket]engine.Money, error) {
	out := make(map[engine.Bucket]engine.Money, 4)
	for b, raw := range map[engine.Bucket]string{
		engine.BucketInscription: inscription,
		engine.BucketT1:          t1,
		engine.BucketT2:          t2,
		engine.BucketT3:          t3,
	} {
		m, err := engine.ParseMoney(raw)
		if err != nil {
			return nil, err
		}
		out[b] = m
	}
	return out, nil
}

func dateVector(inscription, t1, t2, t3 string) (map[engine.Bucket]engine.Date, error) {
	out := make(map[engine.Bucket]engine.Date, 4)
	for b, raw := range map[engine.Bucket]string{
		engine.BucketInscription: inscription,
		engine.BucketT1:          t1,
		engine.BucketT2:          t2,
		engine.BucketT3:          t3,
	} {
		d, err := engine.ParseDate(raw)
		if err != nil {
			return nil, err
		}
		out[b] = d
	}
	return out, nil
}

func allocColumns(a engine.Allocation) (any, any, any, any) {
	if a == nil {
		return nil, nil, nil, nil
	}
	return a.Get(engine.BucketInscription).String(),
		a.Get(engine.BucketT1).String(),
		a.Get(engine.BucketT2).String(),
		a.Get(engine.BucketT3).String()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
