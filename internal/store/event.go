package store

import (
	"context"
	"database/sql"
	"fmt"
)

// nextSequence atomically returns the next global sequence number.
//
// LLM events and chat messages draw from the same counter, so their
// relative order survives identical timestamps. The store mutex serializes
// within the process; RETURNING makes the increment atomic in the database.
// Must not be called from inside withTx.
func (s *Store) nextSequence(ctx context.Context) (int64, error) {
	var seq int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return tx.QueryRowContext(ctx,
			`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
		).Scan(&seq)
	})
	if err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}
