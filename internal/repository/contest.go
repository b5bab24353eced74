package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"referral_contest/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Contest struct {
	ID           int64         `db:"id"`
	Title        string        `db:"title"`
	Description  string        `db:"description"`
	EndTime      time.Time     `db:"end_time"`
	Status       string        `db:"status"`
	WinnerCount  int           `db:"winner_count"`
	WinnerIDs    pq.Int64Array `db:"winner_ids"`
	WinnerPoints pq.Int64Array `db:"winner_points"`
	FinishedAt   sql.NullTime  `db:"finished_at"`
	CreatedAt    time.Time     `db:"created_at"`
}

var contestColumns = []string{
	"id",
	"title",
	"description",
	"end_time",
	"status",
	"winner_count",
	"winner_ids",
	"winner_points",
	"finished_at",
	"created_at",
}

func (c *Contest) toModel() *model.Contest {
	out := &model.Contest{
		ID:           c.ID,
		Title:        c.Title,
		Description:  c.Description,
		EndTime:      c.EndTime,
		Status:       model.ContestStatus(c.Status),
		WinnerCount:  c.WinnerCount,
		WinnerIDs:    []int64(c.WinnerIDs),
		WinnerPoints: []int64(c.WinnerPoints),
		CreatedAt:    c.CreatedAt,
	}
	if c.FinishedAt.Valid {
		t := c.FinishedAt.Time
		out.FinishedAt = &t
	}
	return out
}

// CreateContestWithReset zeroes every user's round counters and opens the new
// contest in one transaction; a new round never starts on stale scores.
func (r *Repository) CreateContestWithReset(ctx context.Context, contest *model.Contest) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := r.resetAllPointsTx(ctx, tx); err != nil {
			return err
		}

		query, args, err := squirrel.
			Insert("contests").
			SetMap(map[string]interface{}{
				"title":        contest.Title,
				"description":  contest.Description,
				"end_time":     contest.EndTime,
				"status":       string(model.ContestActive),
				"winner_count": contest.WinnerCount,
			}).
			Suffix("RETURNING id, created_at").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build contest insert query: %w", err)
		}

		err = tx.QueryRowxContext(ctx, query, args...).Scan(&contest.ID, &contest.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert contest: %w", err)
		}

		contest.Status = model.ContestActive
		return nil
	})
}

func (r *Repository) GetContestByID(ctx context.Context, id int64) (*model.Contest, error) {
	return r.getContest(ctx, r.db, squirrel.Eq{"id": id}, false)
}

// GetLatestContest returns the most recently created contest.
func (r *Repository) GetLatestContest(ctx context.Context) (*model.Contest, error) {
	query, args, err := squirrel.
		Select(contestColumns...).
		From("contests").
		OrderBy("id DESC").
		Limit(1).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var contest Contest
	if err := r.db.GetContext(ctx, &contest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest contest: %w", err)
	}

	return contest.toModel(), nil
}

func (r *Repository) getContest(ctx context.Context, q sqlx.QueryerContext, where squirrel.Sqlizer, forUpdate bool) (*model.Contest, error) {
	builder := squirrel.
		Select(contestColumns...).
		From("contests").
		Where(where)
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}

	query, args, err := builder.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	var contest Contest
	if err := sqlx.GetContext(ctx, q, &contest, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return contest.toModel(), nil
}

func (r *Repository) ListContestsByStatus(ctx context.Context, status model.ContestStatus) ([]*model.Contest, error) {
	query, args, err := squirrel.
		Select(contestColumns...).
		From("contests").
		Where(squirrel.Eq{"status": string(status)}).
		OrderBy("end_time DESC", "id DESC").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var contests []Contest
	if err := r.db.SelectContext(ctx, &contests, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list contests: %w", err)
	}

	out := make([]*model.Contest, len(contests))
	for i := range contests {
		out[i] = contests[i].toModel()
	}

	return out, nil
}

// UpdateContest moves a contest from one of the allowed statuses to status and,
// when endTime is set, moves its deadline. ErrStatusChanged means the row exists
// but was no longer in an allowed status.
func (r *Repository) UpdateContest(ctx context.Context, id int64, from []model.ContestStatus, status model.ContestStatus, endTime *time.Time) error {
	values := map[string]interface{}{
		"status": string(status),
	}
	if endTime != nil {
		values["end_time"] = *endTime
	}

	query, args, err := squirrel.
		Update("contests").
		SetMap(values).
		Where(squirrel.Eq{
			"id":     id,
			"status": statusStrings(from),
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update contest: %w", err)
	}

	return r.checkContestRows(ctx, result, id)
}

// DeleteContest purges an active contest.
func (r *Repository) DeleteContest(ctx context.Context, id int64) error {
	query, args, err := squirrel.
		Delete("contests").
		Where(squirrel.Eq{
			"id":     id,
			"status": string(model.ContestActive),
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete contest: %w", err)
	}

	return r.checkContestRows(ctx, result, id)
}

func (r *Repository) checkContestRows(ctx context.Context, result sql.Result, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	if _, err := r.GetContestByID(ctx, id); err != nil {
		return err
	}
	return ErrStatusChanged
}

// FinishContest marks the contest finished and stores the current top
// winner_count non-banned users as its winners. Already finished contests are
// returned untouched.
func (r *Repository) FinishContest(ctx context.Context, id int64, at time.Time) (*model.Contest, error) {
	var out *model.Contest

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		contest, err := r.getContest(ctx, tx, squirrel.Eq{"id": id}, true)
		if err != nil {
			return err
		}

		if contest.Status == model.ContestFinished {
			out = contest
			return nil
		}
		if !contest.Status.CanTransition(model.ContestFinished) {
			return ErrStatusChanged
		}

		winners, err := r.getTopUsers(ctx, tx, contest.WinnerCount)
		if err != nil {
			return err
		}

		ids := make(pq.Int64Array, len(winners))
		points := make(pq.Int64Array, len(winners))
		for i, w := range winners {
			ids[i] = w.TelegramID
			points[i] = int64(w.Points)
		}

		query, args, err := squirrel.
			Update("contests").
			SetMap(map[string]interface{}{
				"status":        string(model.ContestFinished),
				"winner_ids":    ids,
				"winner_points": points,
				"finished_at":   at,
			}).
			Where(squirrel.Eq{"id": id}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to finish contest: %w", err)
		}

		finishedAt := at
		contest.Status = model.ContestFinished
		contest.WinnerIDs = []int64(ids)
		contest.WinnerPoints = []int64(points)
		contest.FinishedAt = &finishedAt
		out = contest

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func statusStrings(statuses []model.ContestStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
