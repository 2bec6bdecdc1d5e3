// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ManuGH/waitlistd/internal/audit"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/fsm"
	"github.com/ManuGH/waitlistd/internal/domain/waitlist/model"
	"github.com/ManuGH/waitlistd/internal/persistence/sqlite"
)

const schemaVersion = 1

// Sqlite implements Store on top of modernc.org/sqlite. Every mutating
// method follows the same shape: BeginTx, read the current row to decide
// the fsm-allowed transition, issue a guarded `UPDATE ... WHERE status = ?`
// keyed on the state just read, and treat zero rows affected as a lost
// race rather than retrying silently.
type Sqlite struct {
	db *sql.DB
}

// NewSqlite opens (or creates) a waitlistd database at dbPath and applies
// its schema.
func NewSqlite(dbPath string) (*Sqlite, error) {
	db, err := sqlite.Open(dbPath, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}

	s := &Sqlite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("waitlist store: migration failed: %w", err)
	}
	return s, nil
}

// Close releases the underlying connection pool.
func (s *Sqlite) Close() error {
	return s.db.Close()
}

var _ Store = (*Sqlite)(nil)

func (s *Sqlite) migrate() error {
	var currentVersion int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= schemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	schema := `
	CREATE TABLE IF NOT EXISTS slots (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		staff_id TEXT NOT NULL,
		service_id TEXT NOT NULL,
		start_time_ms INTEGER NOT NULL,
		end_time_ms INTEGER NOT NULL,
		status TEXT NOT NULL,
		hold_expires_at_ms INTEGER,
		holder_entry_id TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_slots_status_expires ON slots(status, hold_expires_at_ms);
	CREATE INDEX IF NOT EXISTS idx_slots_tenant ON slots(tenant_id);

	CREATE TABLE IF NOT EXISTS waitlist_entries (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		customer_name TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL,
		email TEXT NOT NULL DEFAULT '',
		service_id TEXT NOT NULL,
		staff_id TEXT NOT NULL DEFAULT '',
		earliest_time_ms INTEGER NOT NULL,
		latest_time_ms INTEGER NOT NULL,
		vip INTEGER NOT NULL DEFAULT 0,
		priority_score INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		created_at_ms INTEGER NOT NULL,
		updated_at_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_tenant_phone_status ON waitlist_entries(tenant_id, phone, status);
	CREATE INDEX IF NOT EXISTS idx_entries_candidates ON waitlist_entries(tenant_id, service_id, status);

	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		slot_id TEXT NOT NULL,
		waitlist_entry_id TEXT NOT NULL DEFAULT '',
		customer_name TEXT NOT NULL DEFAULT '',
		customer_phone TEXT NOT NULL DEFAULT '',
		customer_email TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		source TEXT NOT NULL,
		created_at_ms INTEGER NOT NULL,
		updated_at_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_bookings_slot ON bookings(slot_id);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		entry_id TEXT NOT NULL,
		slot_id TEXT NOT NULL,
		channel TEXT NOT NULL,
		status TEXT NOT NULL,
		confirm_token_hash TEXT NOT NULL,
		decline_token_hash TEXT NOT NULL,
		provider_message_id TEXT NOT NULL DEFAULT '',
		last_error TEXT NOT NULL DEFAULT '',
		attempts INTEGER NOT NULL DEFAULT 0,
		sent_at_ms INTEGER,
		response TEXT NOT NULL DEFAULT '',
		created_at_ms INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS calendar_events (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		slot_id TEXT NOT NULL,
		staff_id TEXT NOT NULL,
		external_event_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		last_error TEXT NOT NULL DEFAULT '',
		created_at_ms INTEGER NOT NULL,
		updated_at_ms INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_calendar_status ON calendar_events(status);

	CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL DEFAULT '',
		actor_type TEXT NOT NULL DEFAULT '',
		actor_id TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL DEFAULT '',
		resource_type TEXT NOT NULL DEFAULT '',
		resource_id TEXT NOT NULL DEFAULT '',
		metadata_json TEXT NOT NULL DEFAULT '{}',
		created_at_ms INTEGER NOT NULL
	);
	`

	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// --- time helpers ---

func timeToMillis(t time.Time) int64 { return t.UnixMilli() }

func millisToTime(ms int64) time.Time { return time.UnixMilli(ms) }

func nullableTimeToMillis(t *time.Time) sql.NullInt64 {
	if t == nil || t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func nullMillisToTimePtr(ns sql.NullInt64) *time.Time {
	if !ns.Valid {
		return nil
	}
	t := time.UnixMilli(ns.Int64)
	return &t
}

// --- slots ---

const slotColumns = `id, tenant_id, staff_id, service_id, start_time_ms, end_time_ms, status, hold_expires_at_ms, holder_entry_id, version`

func scanSlot(scanner interface{ Scan(dest ...interface{}) error }) (model.Slot, error) {
	var slot model.Slot
	var startMs, endMs int64
	var holdExpiresMs sql.NullInt64

	err := scanner.Scan(&slot.ID, &slot.TenantID, &slot.StaffID, &slot.ServiceID,
		&startMs, &endMs, &slot.Status, &holdExpiresMs, &slot.HolderEntryID, &slot.Version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Slot{}, sql.ErrNoRows
		}
		return model.Slot{}, err
	}
	slot.StartTime = millisToTime(startMs)
	slot.EndTime = millisToTime(endMs)
	slot.HoldExpiresAt = nullMillisToTimePtr(holdExpiresMs)
	return slot, nil
}

func (s *Sqlite) CreateSlot(ctx context.Context, slot model.Slot) (model.Slot, error) {
	if slot.ID == "" {
		slot.ID = newID()
	}
	if slot.Status == "" {
		slot.Status = model.SlotOpen
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO slots (`+slotColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		slot.ID, slot.TenantID, slot.StaffID, slot.ServiceID,
		timeToMillis(slot.StartTime), timeToMillis(slot.EndTime), string(slot.Status),
		nullableTimeToMillis(slot.HoldExpiresAt), slot.HolderEntryID, slot.Version,
	)
	if err != nil {
		return model.Slot{}, err
	}
	return slot, nil
}

func (s *Sqlite) GetSlot(ctx context.Context, tenantID, slotID string) (model.Slot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE id = ? AND tenant_id = ?`, slotID, tenantID)
	slot, err := scanSlot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Slot{}, errSlotNotFound(slotID)
	}
	return slot, err
}

func (s *Sqlite) HoldSlotForEntry(ctx context.Context, tenantID, slotID, entryID string, holdExpiresAt time.Time) (model.Slot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Slot{}, err
	}
	defer tx.Rollback()

	slot, err := scanSlot(tx.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = ? AND tenant_id = ?`, slotID, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Slot{}, errSlotNotFound(slotID)
	} else if err != nil {
		return model.Slot{}, err
	}
	decision := fsm.SlotDecisionFor(slot.Status, fsm.SlotEvHold)
	if !decision.Allowed {
		return model.Slot{}, errSlotNoLongerAvailable(slotID)
	}

	entry, err := scanEntry(tx.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM waitlist_entries WHERE id = ? AND tenant_id = ?`, entryID, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Slot{}, errEntryNotFound(entryID)
	} else if err != nil {
		return model.Slot{}, err
	}
	entryDecision := fsm.EntryDecisionFor(entry.Status, fsm.EntryEvNotify)
	if !entryDecision.Allowed {
		return model.Slot{}, errEntryNotActive(entryID)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE slots SET status = ?, hold_expires_at_ms = ?, holder_entry_id = ?, version = version + 1
		 WHERE id = ? AND tenant_id = ? AND status = ?`,
		string(decision.To), timeToMillis(holdExpiresAt), entryID, slotID, tenantID, string(slot.Status))
	if err != nil {
		return model.Slot{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Slot{}, errSlotNoLongerAvailable(slotID)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE waitlist_entries SET status = ?, updated_at_ms = ? WHERE id = ? AND tenant_id = ?`,
		string(entryDecision.To), timeToMillis(holdExpiresAt), entryID, tenantID); err != nil {
		return model.Slot{}, err
	}

	if err := tx.Commit(); err != nil {
		return model.Slot{}, err
	}

	expires := holdExpiresAt
	slot.Status = decision.To
	slot.HoldExpiresAt = &expires
	slot.HolderEntryID = entryID
	slot.Version++
	return slot, nil
}

func (s *Sqlite) ConfirmHold(ctx context.Context, tenantID, slotID, entryID string, now time.Time) (ConfirmResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ConfirmResult{}, err
	}
	defer tx.Rollback()

	slot, err := scanSlot(tx.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = ? AND tenant_id = ?`, slotID, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return ConfirmResult{}, errSlotNotFound(slotID)
	} else if err != nil {
		return ConfirmResult{}, err
	}
	entry, err := scanEntry(tx.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM waitlist_entries WHERE id = ? AND tenant_id = ?`, entryID, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return ConfirmResult{}, errEntryNotFound(entryID)
	} else if err != nil {
		return ConfirmResult{}, err
	}

	// Idempotent replay: already confirmed for this slot by this entry.
	if entry.Status == model.EntryConfirmed && slot.Status == model.SlotBooked {
		if b, ok, berr := s.findBookingBySlotTx(ctx, tx, slotID); berr == nil && ok && b.WaitlistEntryID == entryID {
			if err := tx.Commit(); err != nil {
				return ConfirmResult{}, err
			}
			return ConfirmResult{Slot: slot, Entry: entry, Booking: b}, nil
		}
	}

	if slot.Status != model.SlotHeld {
		return ConfirmResult{}, errSlotNoLongerAvailable(slotID)
	}
	if slot.HoldExpiresAt == nil || !slot.HoldExpiresAt.After(now) {
		return ConfirmResult{}, errHoldExpired(slotID)
	}

	slotDecision := fsm.SlotDecisionFor(slot.Status, fsm.SlotEvConfirm)
	entryDecision := fsm.EntryDecisionFor(entry.Status, fsm.EntryEvConfirm)
	if !slotDecision.Allowed || !entryDecision.Allowed {
		return ConfirmResult{}, errSlotNoLongerAvailable(slotID)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE slots SET status = ?, hold_expires_at_ms = NULL, holder_entry_id = '', version = version + 1
		 WHERE id = ? AND tenant_id = ? AND status = ?`,
		string(slotDecision.To), slotID, tenantID, string(slot.Status))
	if err != nil {
		return ConfirmResult{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ConfirmResult{}, errSlotNoLongerAvailable(slotID)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE waitlist_entries SET status = ?, updated_at_ms = ? WHERE id = ? AND tenant_id = ?`,
		string(entryDecision.To), timeToMillis(now), entryID, tenantID); err != nil {
		return ConfirmResult{}, err
	}

	booking := model.Booking{
		ID:              newID(),
		TenantID:        tenantID,
		SlotID:          slotID,
		WaitlistEntryID: entryID,
		CustomerName:    entry.CustomerName,
		CustomerPhone:   entry.Phone,
		CustomerEmail:   entry.Email,
		Status:          model.BookingConfirmed,
		Source:          model.BookingSourceWaitlist,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO bookings (id, tenant_id, slot_id, waitlist_entry_id, customer_name, customer_phone, customer_email, status, source, created_at_ms, updated_at_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ID, booking.TenantID, booking.SlotID, booking.WaitlistEntryID, booking.CustomerName,
		booking.CustomerPhone, booking.CustomerEmail, string(booking.Status), string(booking.Source),
		timeToMillis(booking.CreatedAt), timeToMillis(booking.UpdatedAt)); err != nil {
		return ConfirmResult{}, err
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM waitlist_entries WHERE tenant_id = ? AND phone = ? AND status = ? AND id != ?`,
		tenantID, entry.Phone, string(model.EntryActive), entryID)
	if err != nil {
		return ConfirmResult{}, err
	}
	var removed []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return ConfirmResult{}, err
		}
		removed = append(removed, id)
	}
	rows.Close()
	sort.Strings(removed)
	for _, id := range removed {
		if _, err := tx.ExecContext(ctx,
			`UPDATE waitlist_entries SET status = ?, updated_at_ms = ? WHERE id = ? AND tenant_id = ?`,
			string(model.EntryRemoved), timeToMillis(now), id, tenantID); err != nil {
			return ConfirmResult{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return ConfirmResult{}, err
	}

	slot.Status = slotDecision.To
	slot.HoldExpiresAt = nil
	slot.HolderEntryID = ""
	slot.Version++
	entry.Status = entryDecision.To
	entry.UpdatedAt = now
	return ConfirmResult{Slot: slot, Entry: entry, Booking: booking, RemovedOthers: removed}, nil
}

func (s *Sqlite) findBookingBySlotTx(ctx context.Context, tx *sql.Tx, slotID string) (model.Booking, bool, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, tenant_id, slot_id, waitlist_entry_id, customer_name, customer_phone, customer_email, status, source, created_at_ms, updated_at_ms
		 FROM bookings WHERE slot_id = ? AND status != ? LIMIT 1`, slotID, string(model.BookingCanceled))
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, false, nil
	}
	if err != nil {
		return model.Booking{}, false, err
	}
	return b, true, nil
}

func scanBooking(scanner interface{ Scan(dest ...interface{}) error }) (model.Booking, error) {
	var b model.Booking
	var createdMs, updatedMs int64
	err := scanner.Scan(&b.ID, &b.TenantID, &b.SlotID, &b.WaitlistEntryID, &b.CustomerName,
		&b.CustomerPhone, &b.CustomerEmail, &b.Status, &b.Source, &createdMs, &updatedMs)
	if err != nil {
		return model.Booking{}, err
	}
	b.CreatedAt = millisToTime(createdMs)
	b.UpdatedAt = millisToTime(updatedMs)
	return b, nil
}

// ReleaseHold implements the held->open transition. Replaying a release for
// an entry the slot has already moved on from (re-held for someone else,
// confirmed, or canceled) is a no-op: it returns the slot as-is with
// released=false rather than a precondition-failed error.
func (s *Sqlite) ReleaseHold(ctx context.Context, tenantID, slotID, entryID string) (model.Slot, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Slot{}, false, err
	}
	defer tx.Rollback()

	slot, err := scanSlot(tx.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = ? AND tenant_id = ?`, slotID, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Slot{}, false, errSlotNotFound(slotID)
	} else if err != nil {
		return model.Slot{}, false, err
	}
	if slot.Status != model.SlotHeld {
		return slot, false, nil
	}
	if entryID != "" && slot.HolderEntryID != "" && slot.HolderEntryID != entryID {
		return slot, false, nil
	}
	if entryID == "" {
		entryID = slot.HolderEntryID
	}

	decision := fsm.SlotDecisionFor(slot.Status, fsm.SlotEvDecline)
	res, err := tx.ExecContext(ctx,
		`UPDATE slots SET status = ?, hold_expires_at_ms = NULL, holder_entry_id = '', version = version + 1
		 WHERE id = ? AND tenant_id = ? AND status = ?`,
		string(decision.To), slotID, tenantID, string(slot.Status))
	if err != nil {
		return model.Slot{}, false, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// A concurrent writer moved the slot between our read and this
		// UPDATE: same no-op as the pre-check above, not an error.
		return slot, false, nil
	}

	entry, err := scanEntry(tx.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM waitlist_entries WHERE id = ? AND tenant_id = ?`, entryID, tenantID))
	if err == nil {
		if d := fsm.EntryDecisionFor(entry.Status, fsm.EntryEvCascade); d.Allowed {
			if _, err := tx.ExecContext(ctx,
				`UPDATE waitlist_entries SET status = ? WHERE id = ? AND tenant_id = ?`,
				string(d.To), entryID, tenantID); err != nil {
				return model.Slot{}, false, err
			}
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return model.Slot{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return model.Slot{}, false, err
	}

	slot.Status = decision.To
	slot.HoldExpiresAt = nil
	slot.HolderEntryID = ""
	slot.Version++
	return slot, true, nil
}

func (s *Sqlite) CancelSlot(ctx context.Context, tenantID, slotID, _, _ string) (model.Slot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Slot{}, err
	}
	defer tx.Rollback()

	slot, err := scanSlot(tx.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = ? AND tenant_id = ?`, slotID, tenantID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Slot{}, errSlotNotFound(slotID)
	} else if err != nil {
		return model.Slot{}, err
	}
	if !fsm.CancelableFrom(slot.Status) {
		return model.Slot{}, errSlotNotCancelable(slotID)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE slots SET status = ?, hold_expires_at_ms = NULL, holder_entry_id = '', version = version + 1
		 WHERE id = ? AND tenant_id = ? AND status = ?`,
		string(model.SlotCanceled), slotID, tenantID, string(slot.Status))
	if err != nil {
		return model.Slot{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.Slot{}, errSlotNotCancelable(slotID)
	}
	if err := tx.Commit(); err != nil {
		return model.Slot{}, err
	}

	slot.Status = model.SlotCanceled
	slot.HoldExpiresAt = nil
	slot.HolderEntryID = ""
	slot.Version++
	return slot, nil
}

func (s *Sqlite) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]model.Slot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE status = ? AND hold_expires_at_ms <= ? ORDER BY id LIMIT ?`,
		string(model.SlotHeld), timeToMillis(now), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, slot)
	}
	return out, rows.Err()
}

// --- waitlist entries ---

const entryColumns = `id, tenant_id, customer_name, phone, email, service_id, staff_id, earliest_time_ms, latest_time_ms, vip, priority_score, status, created_at_ms, updated_at_ms`

func scanEntry(scanner interface{ Scan(dest ...interface{}) error }) (model.WaitlistEntry, error) {
	var e model.WaitlistEntry
	var earliestMs, latestMs, createdMs, updatedMs int64
	var vip int

	err := scanner.Scan(&e.ID, &e.TenantID, &e.CustomerName, &e.Phone, &e.Email, &e.ServiceID, &e.StaffID,
		&earliestMs, &latestMs, &vip, &e.PriorityScore, &e.Status, &createdMs, &updatedMs)
	if err != nil {
		return model.WaitlistEntry{}, err
	}
	e.EarliestTime = millisToTime(earliestMs)
	e.LatestTime = millisToTime(latestMs)
	e.CreatedAt = millisToTime(createdMs)
	e.UpdatedAt = millisToTime(updatedMs)
	e.VIP = vip != 0
	return e, nil
}

func (s *Sqlite) CreateEntry(ctx context.Context, entry model.WaitlistEntry) (model.WaitlistEntry, error) {
	if entry.ID == "" {
		entry.ID = newID()
	}
	if entry.Status == "" {
		entry.Status = model.EntryActive
	}
	entry.CustomerName = model.NormalizeCustomerName(entry.CustomerName)
	vip := 0
	if entry.VIP {
		vip = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO waitlist_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.TenantID, entry.CustomerName, entry.Phone, entry.Email, entry.ServiceID, entry.StaffID,
		timeToMillis(entry.EarliestTime), timeToMillis(entry.LatestTime), vip, entry.PriorityScore,
		string(entry.Status), timeToMillis(entry.CreatedAt), timeToMillis(entry.UpdatedAt))
	if err != nil {
		return model.WaitlistEntry{}, err
	}
	return entry, nil
}

func (s *Sqlite) GetEntry(ctx context.Context, tenantID, entryID string) (model.WaitlistEntry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM waitlist_entries WHERE id = ? AND tenant_id = ?`, entryID, tenantID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.WaitlistEntry{}, errEntryNotFound(entryID)
	}
	return e, err
}

func (s *Sqlite) RemoveEntry(ctx context.Context, tenantID, entryID, _, _ string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE waitlist_entries SET status = ? WHERE id = ? AND tenant_id = ?`,
		string(model.EntryRemoved), entryID, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errEntryNotFound(entryID)
	}
	return nil
}

func (s *Sqlite) CountActiveByPhone(ctx context.Context, tenantID, phone string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM waitlist_entries WHERE tenant_id = ? AND phone = ? AND status IN (?, ?)`,
		tenantID, phone, string(model.EntryActive), string(model.EntryNotified)).Scan(&count)
	return count, err
}

func (s *Sqlite) ListCandidates(ctx context.Context, filter CandidateFilter) ([]model.WaitlistEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM waitlist_entries
		 WHERE tenant_id = ? AND service_id = ? AND status = ?
		   AND (staff_id = '' OR staff_id = ?)
		   AND earliest_time_ms <= ? AND latest_time_ms >= ?`,
		filter.TenantID, filter.ServiceID, string(model.EntryActive), filter.StaffID,
		timeToMillis(filter.StartTime), timeToMillis(filter.EndTime))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.WaitlistEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- notifications ---

func (s *Sqlite) CreateNotification(ctx context.Context, n model.Notification) (model.Notification, error) {
	if n.ID == "" {
		n.ID = newID()
	}
	if n.Status == "" {
		n.Status = model.NotificationPending
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, tenant_id, entry_id, slot_id, channel, status, confirm_token_hash, decline_token_hash,
			provider_message_id, last_error, attempts, sent_at_ms, response, created_at_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.TenantID, n.EntryID, n.SlotID, string(n.Channel), string(n.Status),
		n.ConfirmTokenHash, n.DeclineTokenHash, n.ProviderMessageID, n.LastError, n.Attempts,
		nullableTimeToMillis(n.SentAt), string(n.Response), timeToMillis(n.CreatedAt))
	if err != nil {
		return model.Notification{}, err
	}
	return n, nil
}

func (s *Sqlite) UpdateNotificationStatus(ctx context.Context, tenantID, notificationID string, status model.NotificationStatus, providerMessageID, lastError string) error {
	var sentAt sql.NullInt64
	if status == model.NotificationSent || status == model.NotificationDelivered {
		sentAt = sql.NullInt64{Int64: time.Now().UnixMilli(), Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET status = ?, provider_message_id = ?, last_error = ?, attempts = attempts + 1,
			sent_at_ms = COALESCE(?, sent_at_ms)
		 WHERE id = ? AND tenant_id = ?`,
		string(status), providerMessageID, lastError, sentAt, notificationID, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errNotificationNotFound(notificationID)
	}
	return nil
}

func (s *Sqlite) RecordNotificationResponse(ctx context.Context, tenantID, notificationID string, response model.NotificationResponse) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET response = ? WHERE id = ? AND tenant_id = ?`,
		string(response), notificationID, tenantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errNotificationNotFound(notificationID)
	}
	return nil
}

// --- calendar ---

func (s *Sqlite) UpsertCalendarEvent(ctx context.Context, ev model.CalendarEvent) (model.CalendarEvent, error) {
	if ev.ID == "" {
		ev.ID = newID()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO calendar_events (id, tenant_id, slot_id, staff_id, external_event_id, status, last_error, created_at_ms, updated_at_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			external_event_id = excluded.external_event_id,
			status = excluded.status,
			last_error = excluded.last_error,
			updated_at_ms = excluded.updated_at_ms`,
		ev.ID, ev.TenantID, ev.SlotID, ev.StaffID, ev.ExternalEventID, string(ev.Status), ev.LastError,
		timeToMillis(ev.CreatedAt), timeToMillis(ev.UpdatedAt))
	if err != nil {
		return model.CalendarEvent{}, err
	}
	return ev, nil
}

func (s *Sqlite) ListCalendarEventsNeedingReconcile(ctx context.Context, limit int) ([]model.CalendarEvent, error) {
	if limit <= 0 {
		limit = 25
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, tenant_id, slot_id, staff_id, external_event_id, status, last_error, created_at_ms, updated_at_ms
		 FROM calendar_events WHERE status = ? ORDER BY id LIMIT ?`, string(model.CalendarError), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CalendarEvent
	for rows.Next() {
		var ev model.CalendarEvent
		var createdMs, updatedMs int64
		if err := rows.Scan(&ev.ID, &ev.TenantID, &ev.SlotID, &ev.StaffID, &ev.ExternalEventID,
			&ev.Status, &ev.LastError, &createdMs, &updatedMs); err != nil {
			return nil, err
		}
		ev.CreatedAt = millisToTime(createdMs)
		ev.UpdatedAt = millisToTime(updatedMs)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// --- audit ---

// RecordAuditLog implements audit.Sink.
func (s *Sqlite) RecordAuditLog(ctx context.Context, event audit.Event) error {
	metadataJSON, err := json.Marshal(event.Details)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, tenant_id, actor_type, actor_id, action, resource_type, resource_id, metadata_json, created_at_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		newID(), event.Details["tenant_id"], string(model.ActorSystem), event.Actor, event.Action,
		"", event.Resource, metadataJSON, timeToMillis(event.Timestamp))
	return err
}
