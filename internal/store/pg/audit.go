package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"bazaar.dev/internal/audit"
)

// Append persists one audit entry. Replays of the same id are ignored.
func (s *Store) Append(ctx context.Context, e audit.Entry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}
	var identity sql.NullInt64
	if e.IdentityID != nil {
		identity = sql.NullInt64{Int64: *e.IdentityID, Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `
		insert into audit_events (id, kind, identity_id, details, request_id, occurred_at)
		values ($1, $2, $3, $4, $5, $6)
		on conflict (id) do nothing
	`, e.ID, string(e.Kind), identity, details, nullIfEmpty(e.RequestID), e.OccurredAt)
	return err
}
