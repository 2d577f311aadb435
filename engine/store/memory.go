// Package store provides an in-memory TxStore implementation for tests
// and development.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/scolaris/tuition-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	schedules   map[engine.ScheduleID]*engine.Schedule
	studentYear map[studentYearKey]engine.ScheduleID
	payments    map[engine.PaymentID]*engine.Payment
	journal     []engine.JournalEntry
	counters    map[engine.SchoolID]int64
}

type studentYearKey struct {
	StudentID engine.StudentID
	Year      engine.AcademicYear
}

func NewMemory() *Memory {
	return &Memory{
		schedules:   make(map[engine.ScheduleID]*engine.Schedule),
		studentYear: make(map[studentYearKey]engine.ScheduleID),
		payments:    make(map[engine.PaymentID]*engine.Payment),
		counters:    make(map[engine.SchoolID]int64),
	}
}

// =============================================================================
// SCHEDULE STORE
// =============================================================================

func (m *Memory) CreateSchedule(_ context.Context, s *engine.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createScheduleLocked(s)
}

func (m *Memory) createScheduleLocked(s *engine.Schedule) error {
	k := studentYearKey{StudentID: s.StudentID, Year: s.AcademicYear}
	if _, exists := m.studentYear[k]; exists {
		return fmt.Errorf("%w: schedule for %s %s already exists", engine.ErrConflictingUpdate, s.StudentID, s.AcademicYear)
	}
	m.schedules[s.ID] = s.Clone()
	m.studentYear[k] = s.ID
	return nil
}

func (m *Memory) GetSchedule(_ context.Context, studentID engine.StudentID, year engine.AcademicYear) (*engine.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getScheduleLocked(studentID, year)
}

func (m *Memory) getScheduleLocked(studentID engine.StudentID, year engine.AcademicYear) (*engine.Schedule, error) {
	id, ok := m.studentYear[studentYearKey{StudentID: studentID, Year: year}]
	if !ok {
		return nil, fmt.Errorf("%w: schedule for student %s, year %s", engine.ErrNotFound, studentID, year)
	}
	return m.schedules[id].Clone(), nil
}

func (m *Memory) GetScheduleByID(_ context.Context, id engine.ScheduleID) (*engine.Schedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getScheduleByIDLocked(id)
}

func (m *Memory) getScheduleByIDLocked(id engine.ScheduleID) (*engine.Schedule, error) {
	s, ok := m.schedules[id]
	if !ok {
		return nil, fmt.Errorf("%w: schedule %s", engine.ErrNotFound, id)
	}
	return s.Clone(), nil
}

func (m *Memory) UpdateSchedule(_ context.Context, s *engine.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateScheduleLocked(s)
}

func (m *Memory) updateScheduleLocked(s *engine.Schedule) error {
	stored, ok := m.schedules[s.ID]
	if !ok {
		return fmt.Errorf("%w: schedule %s", engine.ErrNotFound, s.ID)
	}
	if stored.Version != s.Version {
		return fmt.Errorf("%w: schedule %s version %d != %d", engine.ErrConflictingUpdate, s.ID, stored.Version, s.Version)
	}
	next := s.Clone()
	next.Version++
	m.schedules[s.ID] = next
	s.Version = next.Version
	return nil
}

func (m *Memory) ListScheduleIDs(_ context.Context) ([]engine.ScheduleID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]engine.ScheduleID, 0, len(m.schedules))
	for id := range m.schedules {
		ids = append(ids, id)
	}
	return ids, nil
}

// =============================================================================
// PAYMENT STORE
// =============================================================================

func (m *Memory) CreatePayment(_ context.Context, p *engine.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createPaymentLocked(p)
}

func (m *Memory) createPaymentLocked(p *engine.Payment) error {
	if _, exists := m.payments[p.ID]; exists {
		return fmt.Errorf("%w: payment %s already exists", engine.ErrConflictingUpdate, p.ID)
	}
	m.payments[p.ID] = clonePayment(p)
	return nil
}

func (m *Memory) GetPayment(_ context.Context, id engine.PaymentID) (*engine.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getPaymentLocked(id)
}

func (m *Memory) getPaymentLocked(id engine.PaymentID) (*engine.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, fmt.Errorf("%w: payment %s", engine.ErrNotFound, id)
	}
	return clonePayment(p), nil
}

func (m *Memory) UpdatePayment(_ context.Context, p *engine.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updatePaymentLocked(p)
}

func (m *Memory) updatePaymentLocked(p *engine.Payment) error {
	if _, ok := m.payments[p.ID]; !ok {
		return fmt.Errorf("%w: payment %s", engine.ErrNotFound, p.ID)
	}
	m.payments[p.ID] = clonePayment(p)
	return nil
}

func (m *Memory) PaymentsForStudent(_ context.Context, studentID engine.StudentID, year engine.AcademicYear) ([]engine.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paymentsForStudentLocked(studentID, year), nil
}

func (m *Memory) paymentsForStudentLocked(studentID engine.StudentID, year engine.AcademicYear) []engine.Payment {
	var out []engine.Payment
	for _, p := range m.payments {
		if p.StudentID == studentID && p.AcademicYear == year {
			out = append(out, *clonePayment(p))
		}
	}
	sortPaymentsByCreation(out)
	return out
}

// =============================================================================
// JOURNAL
// =============================================================================

func (m *Memory) AppendJournal(_ context.Context, entry engine.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journal = append(m.journal, entry)
	return nil
}

func (m *Memory) JournalBySchedule(_ context.Context, scheduleID engine.ScheduleID) ([]engine.JournalEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []engine.JournalEntry
	for _, e := range m.journal {
		if e.ScheduleID == scheduleID {
			out = append(out, e)
		}
	}
	return out, nil
}

// =============================================================================
// RECEIPT COUNTER
// =============================================================================

func (m *Memory) NextReceiptNumber(_ context.Context, schoolID engine.SchoolID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextReceiptLocked(schoolID)
}

func (m *Memory) nextReceiptLocked(schoolID engine.SchoolID) (string, error) {
	m.counters[schoolID]++
	return engine.FormatReceiptNumber(schoolID, m.counters[schoolID]), nil
}

// =============================================================================
// TRANSACTIONS - Snapshot + rollback on error
// =============================================================================

// WithTx executes fn under the store lock. On error the pre-transaction
// snapshot is restored, so no partial state (including receipt counters
// and journal entries) survives.
func (m *Memory) WithTx(ctx context.Context, fn func(engine.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	view := &txView{parent: m}
	if err := fn(view); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	schedules   map[engine.ScheduleID]*engine.Schedule
	studentYear map[studentYearKey]engine.ScheduleID
	payments    map[engine.PaymentID]*engine.Payment
	journal     []engine.JournalEntry
	counters    map[engine.SchoolID]int64
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		schedules:   make(map[engine.ScheduleID]*engine.Schedule, len(m.schedules)),
		studentYear: make(map[studentYearKey]engine.ScheduleID, len(m.studentYear)),
		payments:    make(map[engine.PaymentID]*engine.Payment, len(m.payments)),
		journal:     append([]engine.JournalEntry{}, m.journal...),
		counters:    make(map[engine.SchoolID]int64, len(m.counters)),
	}
	for id, sched := range m.schedules {
		s.schedules[id] = sched.Clone()
	}
	for k, v := range m.studentYear {
		s.studentYear[k] = v
	}
	for id, p := range m.payments {
		s.payments[id] = clonePayment(p)
	}
	for k, v := range m.counters {
		s.counters[k] = v
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.schedules = s.schedules
	m.studentYear = s.studentYear
	m.payments = s.payments
	m.journal = s.journal
	m.counters = s.counters
}

// txView routes calls to the locked helpers so fn runs entirely under the
// store lock the outer WithTx already holds.
type txView struct {
	parent *Memory
}

func (tv *txView) CreateSchedule(_ context.Context, s *engine.Schedule) error {
	return tv.parent.createScheduleLocked(s)
}

func (tv *txView) GetSchedule(_ context.Context, studentID engine.StudentID, year engine.AcademicYear) (*engine.Schedule, error) {
	return tv.parent.getScheduleLocked(studentID, year)
}

func (tv *txView) GetScheduleByID(_ context.Context, id engine.ScheduleID) (*engine.Schedule, error) {
	return tv.parent.getScheduleByIDLocked(id)
}

func (tv *txView) UpdateSchedule(_ context.Context, s *engine.Schedule) error {
	return tv.parent.updateScheduleLocked(s)
}

func (tv *txView) ListScheduleIDs(_ context.Context) ([]engine.ScheduleID, error) {
	ids := make([]engine.ScheduleID, 0, len(tv.parent.schedules))
	for id := range tv.parent.schedules {
		ids = append(ids, id)
	}
	return ids, nil
}

func (tv *txView) CreatePayment(_ context.Context, p *engine.Payment) error {
	return tv.parent.createPaymentLocked(p)
}

func (tv *txView) GetPayment(_ context.Context, id engine.PaymentID) (*engine.Payment, error) {
	return tv.parent.getPaymentLocked(id)
}

func (tv *txView) UpdatePayment(_ context.Context, p *engine.Payment) error {
	return tv.parent.updatePaymentLocked(p)
}

func (tv *txView) PaymentsForStudent(_ context.Context, studentID engine.StudentID, year engine.AcademicYear) ([]engine.Payment, error) {
	return tv.parent.paymentsForStudentLocked(studentID, year), nil
}

func (tv *txView) AppendJournal(_ context.Context, entry engine.JournalEntry) error {
	tv.parent.journal = append(tv.parent.journal, entry)
	return nil
}

func (tv *txView) JournalBySchedule(_ context.Context, scheduleID engine.ScheduleID) ([]engine.JournalEntry, error) {
	var out []engine.JournalEntry
	for _, e := range tv.parent.journal {
		if e.ScheduleID == scheduleID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (tv *txView) NextReceiptNumber(_ context.Context, schoolID engine.SchoolID) (string, error) {
	return tv.parent.nextReceiptLocked(schoolID)
}

// =============================================================================
// HELPERS
// =============================================================================

func clonePayment(p *engine.Payment) *engine.Payment {
	c := *p
	if p.Allocation != nil {
		c.Allocation = p.Allocation.Clone()
	}
	if p.ValidatedAt != nil {
		t := *p.ValidatedAt
		c.ValidatedAt = &t
	}
	if p.CanceledAt != nil {
		t := *p.CanceledAt
		c.CanceledAt = &t
	}
	return &c
}

func sortPaymentsByCreation(ps []engine.Payment) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].CreatedAt.Before(ps[j].CreatedAt) })
}
