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

type User struct {
	TelegramID          int64         `db:"telegram_id"`
	Username            string        `db:"username"`
	FullName            string        `db:"full_name"`
	Points              int           `db:"points"`
	SuccessfulReferrals int           `db:"successful_referrals"`
	FailedReferrals     int           `db:"failed_referrals"`
	ReferredBy          sql.NullInt64 `db:"referred_by"`
	Banned              bool          `db:"banned"`
	JoinCount           int           `db:"join_count"`
	LastJoinTime        sql.NullTime  `db:"last_join_time"`
	HasVerified         bool          `db:"has_verified"`
	CreatedAt           time.Time     `db:"created_at"`
}

var userColumns = []string{
	"telegram_id",
	"username",
	"full_name",
	"points",
	"successful_referrals",
	"failed_referrals",
	"referred_by",
	"banned",
	"join_count",
	"last_join_time",
	"has_verified",
	"created_at",
}

func (u *User) toModel() *model.User {
	out := &model.User{
		TelegramID:          u.TelegramID,
		Username:            u.Username,
		FullName:            u.FullName,
		Points:              u.Points,
		SuccessfulReferrals: u.SuccessfulReferrals,
		FailedReferrals:     u.FailedReferrals,
		Banned:              u.Banned,
		JoinCount:           u.JoinCount,
		HasVerified:         u.HasVerified,
		CreatedAt:           u.CreatedAt,
	}
	if u.ReferredBy.Valid {
		ref := u.ReferredBy.Int64
		out.ReferredBy = &ref
	}
	if u.LastJoinTime.Valid {
		t := u.LastJoinTime.Time
		out.LastJoinTime = &t
	}
	return out
}

func usersToModel(rows []User) []*model.User {
	out := make([]*model.User, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out
}

// CreateUser inserts the user unless a row with the same telegram_id exists.
// It reports whether a new row was written.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) (bool, error) {
	username := user.Username
	if username == "" {
		username = model.UnknownUsername
	}
	fullName := user.FullName
	if fullName == "" {
		fullName = model.UnknownUsername
	}

	query, args, err := squirrel.
		Insert("users").
		SetMap(map[string]interface{}{
			"telegram_id":    user.TelegramID,
			"username":       username,
			"full_name":      fullName,
			"referred_by":    user.ReferredBy,
			"last_join_time": user.LastJoinTime,
			"has_verified":   false,
		}).
		Suffix("ON CONFLICT (telegram_id) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build user insert query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to insert user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (r *Repository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return r.getUser(ctx, r.db, telegramID)
}

func (r *Repository) getUser(ctx context.Context, q sqlx.QueryerContext, telegramID int64) (*model.User, error) {
	var user User
	query, args, err := squirrel.
		Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = sqlx.GetContext(ctx, q, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user.toModel(), nil
}

// GetUsersByIDs loads every user whose id is in ids. Missing ids are skipped.
func (r *Repository) GetUsersByIDs(ctx context.Context, ids []int64) ([]*model.User, error) {
	if len(ids) == 0 {
		return []*model.User{}, nil
	}

	query, args, err := squirrel.
		Select(userColumns...).
		From("users").
		Where(squirrel.Expr("telegram_id = ANY(?)", pq.Array(ids))).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build users batch query: %w", err)
	}

	var users []User
	if err := r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get users by ids: %w", err)
	}

	return usersToModel(users), nil
}

// IsReferredBy reports whether userID's stored referrer is referrerID.
func (r *Repository) IsReferredBy(ctx context.Context, userID, referrerID int64) (bool, error) {
	query, args, err := squirrel.
		Select("1").
		Prefix("SELECT EXISTS (").
		From("users").
		Where(squirrel.Eq{
			"telegram_id": userID,
			"referred_by": referrerID,
		}).
		Suffix(")").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, err
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("failed to check referral edge: %w", err)
	}

	return exists, nil
}

// BanPair bans both users and appends a single cheat log row in one transaction.
func (r *Repository) BanPair(ctx context.Context, first, second int64, cheat model.CheatType, at time.Time) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Update("users").
			Set("banned", true).
			Where(squirrel.Expr("telegram_id = ANY(?)", pq.Array([]int64{first, second}))).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build ban query: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to ban users: %w", err)
		}

		secondID := second
		return r.insertCheatLogTx(ctx, tx, &model.CheatLog{
			FirstUserID:  first,
			SecondUserID: &secondID,
			Type:         cheat,
			DetectedAt:   at,
		})
	})
}

func (r *Repository) SaveJoinAttempt(ctx context.Context, telegramID int64, joinCount int, at time.Time) error {
	query, args, err := squirrel.
		Update("users").
		SetMap(map[string]interface{}{
			"join_count":     joinCount,
			"last_join_time": at,
		}).
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to save join attempt: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// BanForRejoinAbuse stores the final join counter, bans the user, logs the
// detection and charges a failed referral to the referrer of a user who never
// completed verification.
func (r *Repository) BanForRejoinAbuse(ctx context.Context, telegramID int64, joinCount int, at time.Time) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		user, err := r.getUser(ctx, tx, telegramID)
		if err != nil {
			return err
		}

		query, args, err := squirrel.
			Update("users").
			SetMap(map[string]interface{}{
				"join_count":     joinCount,
				"last_join_time": at,
				"banned":         true,
			}).
			Where(squirrel.Eq{"telegram_id": telegramID}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to ban user: %w", err)
		}

		if user.ReferredBy != nil && !user.HasVerified {
			failedQuery, failedArgs, err := squirrel.
				Update("users").
				Set("failed_referrals", squirrel.Expr("failed_referrals + 1")).
				Where(squirrel.Eq{"telegram_id": *user.ReferredBy}).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return err
			}

			if _, err := tx.ExecContext(ctx, failedQuery, failedArgs...); err != nil {
				return fmt.Errorf("failed to update referrer failed referrals: %w", err)
			}
		}

		return r.insertCheatLogTx(ctx, tx, &model.CheatLog{
			FirstUserID: telegramID,
			Type:        model.CheatRejoinAbuse,
			DetectedAt:  at,
		})
	})
}

// CompleteVerification flips has_verified from false to true and, only on that
// transition, pays points to the user's referrer. Both writes share a transaction,
// so a repeated verification can never pay twice.
func (r *Repository) CompleteVerification(ctx context.Context, telegramID int64, points int) (*model.Verification, error) {
	out := &model.Verification{}

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Update("users").
			Set("has_verified", true).
			Where(squirrel.Eq{
				"telegram_id":  telegramID,
				"has_verified": false,
				"banned":       false,
			}).
			Suffix("RETURNING referred_by").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		var referredBy sql.NullInt64
		err = tx.QueryRowxContext(ctx, query, args...).Scan(&referredBy)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("failed to mark user verified: %w", err)
		}

		out.FirstTime = true
		if !referredBy.Valid || referredBy.Int64 == telegramID {
			return nil
		}

		paid, err := r.awardReferralTx(ctx, tx, referredBy.Int64, points)
		if err != nil {
			return err
		}
		if paid {
			ref := referredBy.Int64
			out.PaidReferrerID = &ref
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *Repository) awardReferralTx(ctx context.Context, tx *sqlx.Tx, referrerID int64, points int) (bool, error) {
	query, args, err := squirrel.
		Update("users").
		Set("points", squirrel.Expr("points + ?", points)).
		Set("successful_referrals", squirrel.Expr("successful_referrals + 1")).
		Where(squirrel.Eq{
			"telegram_id": referrerID,
			"banned":      false,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, err
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to award referral: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (r *Repository) ResetAllPoints(ctx context.Context) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		return r.resetAllPointsTx(ctx, tx)
	})
}

func (r *Repository) resetAllPointsTx(ctx context.Context, tx *sqlx.Tx) error {
	query, args, err := squirrel.
		Update("users").
		SetMap(map[string]interface{}{
			"points":               0,
			"successful_referrals": 0,
			"failed_referrals":     0,
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to reset points: %w", err)
	}

	return nil
}

// GetMaxPoints returns the highest score among non-banned users, 0 when empty.
func (r *Repository) GetMaxPoints(ctx context.Context) (int, error) {
	query, args, err := squirrel.
		Select("COALESCE(MAX(points), 0)").
		From("users").
		Where(squirrel.Eq{"banned": false}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var points int
	if err := r.db.GetContext(ctx, &points, query, args...); err != nil {
		return 0, fmt.Errorf("failed to get max points: %w", err)
	}

	return points, nil
}

// GetTopUsers ranks non-banned users by points; equal scores keep arrival order.
func (r *Repository) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	return r.getTopUsers(ctx, r.db, limit)
}

func (r *Repository) getTopUsers(ctx context.Context, q sqlx.QueryerContext, limit int) ([]*model.User, error) {
	if limit <= 0 {
		return []*model.User{}, nil
	}

	query, args, err := squirrel.
		Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"banned": false}).
		OrderBy("points DESC", "created_at ASC", "telegram_id ASC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var users []User
	if err := sqlx.SelectContext(ctx, q, &users, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}

	return usersToModel(users), nil
}

// GetNextCompetitor returns the lowest-scoring non-banned user that is still
// strictly ahead of points.
func (r *Repository) GetNextCompetitor(ctx context.Context, telegramID int64, points int) (*model.User, error) {
	query, args, err := squirrel.
		Select(userColumns...).
		From("users").
		Where(squirrel.And{
			squirrel.NotEq{"telegram_id": telegramID},
			squirrel.Eq{"banned": false},
			squirrel.Gt{"points": points},
		}).
		OrderBy("points ASC", "created_at ASC").
		Limit(1).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get next competitor: %w", err)
	}

	return user.toModel(), nil
}

// GetRecipientIDs lists non-banned users, skipping the ids in exclude.
func (r *Repository) GetRecipientIDs(ctx context.Context, exclude []int64) ([]int64, error) {
	builder := squirrel.
		Select("telegram_id").
		From("users").
		Where(squirrel.Eq{"banned": false}).
		OrderBy("telegram_id")

	if len(exclude) > 0 {
		builder = builder.Where(squirrel.Expr("NOT (telegram_id = ANY(?))", pq.Array(exclude)))
	}

	query, args, err := builder.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get recipients: %w", err)
	}

	return ids, nil
}

type statistics struct {
	TotalUsers    int `db:"total_users"`
	BannedUsers   int `db:"banned_users"`
	TotalPoints   int `db:"total_points"`
	TotalContests int `db:"total_contests"`
}

func (r *Repository) GetStatistics(ctx context.Context) (*model.Statistics, error) {
	query, args, err := squirrel.
		Select(
			"(SELECT COUNT(*) FROM users) AS total_users",
			"(SELECT COUNT(*) FROM users WHERE banned) AS banned_users",
			"(SELECT COALESCE(SUM(points), 0) FROM users) AS total_points",
			"(SELECT COUNT(*) FROM contests) AS total_contests",
		).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var stats statistics
	if err := r.db.GetContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get statistics: %w", err)
	}

	return &model.Statistics{
		TotalUsers:    stats.TotalUsers,
		BannedUsers:   stats.BannedUsers,
		TotalPoints:   stats.TotalPoints,
		TotalContests: stats.TotalContests,
	}, nil
}
