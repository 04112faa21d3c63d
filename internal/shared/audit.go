package shared

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// AuditLog is one compliance record. The trail is advisory: recording
// happens after a mutation commits and failures never roll it back.
type AuditLog struct {
	Actor    string         `json:"actor"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entityId"`
	Meta     map[string]any `json:"meta,omitempty"`
	At       time.Time      `json:"at"`
}

// AuditTrail keeps audit records inside the document store. It carries
// its own lock because Record runs outside the store write lock.
type AuditTrail struct {
	mu      sync.Mutex
	records []AuditLog
	limit   int
}

// NewAuditTrail builds a trail keeping at most limit records (0 keeps all).
func NewAuditTrail(limit int) *AuditTrail {
	return &AuditTrail{limit: limit}
}

// Record appends the log entry.
func (t *AuditTrail) Record(ctx context.Context, log AuditLog) error {
	if log.Action == "" || log.Entity == "" || log.EntityID == "" {
		return errors.New("audit log requires action/entity/entity_id")
	}
	if log.At.IsZero() {
		log.At = time.Now().UTC()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = append(t.records, log)
	if t.limit > 0 && len(t.records) > t.limit {
		t.records = t.records[len(t.records)-t.limit:]
	}
	return nil
}

// Recent returns up to n records, newest last.
func (t *AuditTrail) Recent(n int) []AuditLog {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n <= 0 || n > len(t.records) {
		n = len(t.records)
	}
	out := make([]AuditLog, n)
	copy(out, t.records[len(t.records)-n:])
	return out
}

// Name implements the store section contract.
func (t *AuditTrail) Name() string { return "auditLog" }

// Snapshot implements the store section contract.
func (t *AuditTrail) Snapshot() (json.RawMessage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return json.Marshal(t.records)
}

// Restore implements the store section contract. The incoming payload
// replaces the trail wholesale.
func (t *AuditTrail) Restore(data json.RawMessage) error {
	var records []AuditLog
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = records
	return nil
}
