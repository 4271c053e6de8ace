package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/cfduel/internal/domain/model"
	"github.com/okian/cfduel/pkg/logger"
	"github.com/okian/cfduel/pkg/metrics"
)

// duelRow is the storage row. The full record travels as a JSON payload
// so the archive schema never chases the domain model.
type duelRow struct {
	ID      string `gorm:"primaryKey;size:64"`
	EndTime int64  `gorm:"index"`
	Payload []byte `gorm:"type:jsonb"`
}

func (duelRow) TableName() string { return "recent_duels" }

// PostgresArchive keeps the recent-duel list in Postgres, pruning rows
// beyond the retention bound on every append.
type PostgresArchive struct {
	settings

	db *gorm.DB
}

// NewPostgres connects to dsn and migrates the archive table.
func NewPostgres(dsn string, opts ...Option) (*PostgresArchive, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", ErrLoad)
	}
	if err := db.AutoMigrate(&duelRow{}); err != nil {
		return nil, fmt.Errorf("migrate recent_duels: %w", ErrLoad)
	}

	return &PostgresArchive{
		settings: newSettings(opts...),
		db:       db,
	}, nil
}

// Append inserts rec and prunes rows older than the newest maxRecent.
func (a *PostgresArchive) Append(ctx context.Context, rec model.RecentDuelRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		metrics.RecordArchiveError()
		return fmt.Errorf("encode record %s: %w", rec.ID, ErrPersist)
	}

	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&duelRow{ID: rec.ID, EndTime: rec.EndTime, Payload: payload}).Error; err != nil {
			return err
		}
		// keep only the newest maxRecent rows
		sub := tx.Model(&duelRow{}).
			Select("id").
			Order("end_time DESC, id DESC").
			Limit(a.maxRecent)
		return tx.Where("id NOT IN (?)", sub).Delete(&duelRow{}).Error
	})
	if err != nil {
		metrics.RecordArchiveError()
		a.logger.Error(ctx, "archive insert failed",
			logger.String("duel_id", rec.ID),
			logger.Error(err),
		)
		return fmt.Errorf("insert record %s: %w", rec.ID, ErrPersist)
	}

	var count int64
	if err := a.db.WithContext(ctx).Model(&duelRow{}).Count(&count).Error; err == nil {
		metrics.UpdateArchiveRecords(int(count))
	}
	return nil
}

// Recent returns the retained records, newest first.
func (a *PostgresArchive) Recent(ctx context.Context) ([]model.RecentDuelRecord, error) {
	var rows []duelRow
	err := a.db.WithContext(ctx).
		Order("end_time DESC, id DESC").
		Limit(a.maxRecent).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query recent_duels: %w", ErrLoad)
	}

	records := make([]model.RecentDuelRecord, 0, len(rows))
	for _, row := range rows {
		var rec model.RecentDuelRecord
		if err := json.Unmarshal(row.Payload, &rec); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", row.ID, ErrLoad)
		}
		records = append(records, rec)
	}
	return records, nil
}
