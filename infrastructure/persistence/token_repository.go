package persistence

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/BLKOUTUK/comms-blkout-sub001/domain/model"
)

type PlatformTokenRepository struct{ db *sql.DB }

func NewPlatformTokenRepository(db *sql.DB) *PlatformTokenRepository {
	return &PlatformTokenRepository{db: db}
}

func (r *PlatformTokenRepository) UpsertToken(ctx context.Context, t *model.PlatformToken) error {
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	q := `INSERT INTO platform_tokens (platform, access_token, refresh_token, expires_at, account_id, account_name, scopes, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		  ON CONFLICT (platform) DO UPDATE SET
			access_token=EXCLUDED.access_token,
			refresh_token=EXCLUDED.refresh_token,
			expires_at=EXCLUDED.expires_at,
			account_id=EXCLUDED.account_id,
			account_name=EXCLUDED.account_name,
			scopes=EXCLUDED.scopes,
			updated_at=EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, q, t.Platform, t.AccessToken, t.RefreshToken, t.ExpiresAt, t.AccountID, t.AccountName, t.Scopes, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *PlatformTokenRepository) GetToken(ctx context.Context, platform string) (*model.PlatformToken, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, platform, access_token, refresh_token, expires_at, account_id, account_name, scopes, created_at, updated_at FROM platform_tokens WHERE platform=$1`, platform)
	tok, err := scanToken(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return tok, err
}

func (r *PlatformTokenRepository) GetAllTokens(ctx context.Context) ([]*model.PlatformToken, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, platform, access_token, refresh_token, expires_at, account_id, account_name, scopes, created_at, updated_at FROM platform_tokens`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.PlatformToken
	for rows.Next() {
		tok, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
	}
	return out, rows.Err()
}

func (r *PlatformTokenRepository) DeleteToken(ctx context.Context, platform string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM platform_tokens WHERE platform=$1`, platform)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (*model.PlatformToken, error) {
	tok := &model.PlatformToken{}
	var exp sql.NullTime
	if err := row.Scan(&tok.ID, &tok.Platform, &tok.AccessToken, &tok.RefreshToken, &exp, &tok.AccountID, &tok.AccountName, &tok.Scopes, &tok.CreatedAt, &tok.UpdatedAt); err != nil {
		return nil, err
	}
	if exp.Valid {
		t := exp.Time
		tok.ExpiresAt = &t
	}
	return tok, nil
}
