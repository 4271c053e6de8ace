// Package archive persists finalized duel records, keeping only the most
// recent N. Two backends exist: a JSON file (default) and Postgres.
package archive

import (
	"context"

	"github.com/okian/cfduel/internal/domain/model"
)

// Archive is the bounded store of finalized duels. Recent returns records
// newest first.
type Archive interface {
	Append(ctx context.Context, rec model.RecentDuelRecord) error
	Recent(ctx context.Context) ([]model.RecentDuelRecord, error)
}
