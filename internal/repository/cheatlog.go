package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"referral_contest/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type CheatLog struct {
	ID           int64         `db:"id"`
	FirstUserID  int64         `db:"first_user_id"`
	SecondUserID sql.NullInt64 `db:"second_user_id"`
	Type         string        `db:"type"`
	DetectedAt   time.Time     `db:"detected_at"`
}

func (r *Repository) insertCheatLogTx(ctx context.Context, tx *sqlx.Tx, log *model.CheatLog) error {
	query, args, err := squirrel.
		Insert("cheat_logs").
		SetMap(map[string]interface{}{
			"first_user_id":  log.FirstUserID,
			"second_user_id": log.SecondUserID,
			"type":           string(log.Type),
			"detected_at":    log.DetectedAt,
		}).
		Suffix("RETURNING id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build cheat log insert query: %w", err)
	}

	if err := tx.QueryRowxContext(ctx, query, args...).Scan(&log.ID); err != nil {
		return fmt.Errorf("failed to insert cheat log: %w", err)
	}

	return nil
}

// GetCheatLogs returns the newest cheat log rows first.
func (r *Repository) GetCheatLogs(ctx context.Context, limit int) ([]*model.CheatLog, error) {
	query, args, err := squirrel.
		Select("id", "first_user_id", "second_user_id", "type", "detected_at").
		From("cheat_logs").
		OrderBy("detected_at DESC", "id DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []CheatLog
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get cheat logs: %w", err)
	}

	logs := make([]*model.CheatLog, len(rows))
	for i, row := range rows {
		logs[i] = &model.CheatLog{
			ID:          row.ID,
			FirstUserID: row.FirstUserID,
			Type:        model.CheatType(row.Type),
			DetectedAt:  row.DetectedAt,
		}
		if row.SecondUserID.Valid {
			second := row.SecondUserID.Int64
			logs[i].SecondUserID = &second
		}
	}

	return logs, nil
}
