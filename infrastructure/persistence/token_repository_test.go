package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BLKOUTUK/comms-blkout-sub001/domain/model"
)

func TestPlatformTokenRepository_UpsertToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewPlatformTokenRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO platform_tokens`)).
		WithArgs("twitter", "at", "rt", sqlmock.AnyArg(), "555", "blkoutuk", "tweet.write", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	exp := time.Now().Add(time.Hour).UTC()
	err = repository.UpsertToken(context.Background(), &model.PlatformToken{
		Platform:     "twitter",
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresAt:    &exp,
		AccountID:    "555",
		AccountName:  "blkoutuk",
		Scopes:       "tweet.write",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlatformTokenRepository_GetToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewPlatformTokenRepository(db)
	now := time.Now().UTC()
	exp := now.Add(time.Hour)

	rows := sqlmock.NewRows([]string{"id", "platform", "access_token", "refresh_token", "expires_at", "account_id", "account_name", "scopes", "created_at", "updated_at"}).
		AddRow(int64(7), "linkedin", "li-at", "li-rt", exp, "abc", "BLKOUT UK", "w_member_social", now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, platform, access_token, refresh_token, expires_at, account_id, account_name, scopes, created_at, updated_at FROM platform_tokens WHERE platform=$1`)).
		WithArgs("linkedin").
		WillReturnRows(rows)

	tok, err := repository.GetToken(context.Background(), "linkedin")
	require.NoError(t, err)
	require.NotNil(t, tok)
	assert.Equal(t, "li-at", tok.AccessToken)
	assert.Equal(t, "BLKOUT UK", tok.AccountName)
	require.NotNil(t, tok.ExpiresAt)
	assert.WithinDuration(t, exp, *tok.ExpiresAt, time.Second)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPlatformTokenRepository_GetToken_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewPlatformTokenRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, platform, access_token`)).
		WithArgs("tiktok").
		WillReturnRows(sqlmock.NewRows([]string{"id", "platform", "access_token", "refresh_token", "expires_at", "account_id", "account_name", "scopes", "created_at", "updated_at"}))

	tok, err := repository.GetToken(context.Background(), "tiktok")
	require.NoError(t, err, "a missing row is not an error")
	assert.Nil(t, tok)
}

func TestPlatformTokenRepository_GetAllTokens(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewPlatformTokenRepository(db)
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "platform", "access_token", "refresh_token", "expires_at", "account_id", "account_name", "scopes", "created_at", "updated_at"}).
		AddRow(int64(1), "instagram", "ig-at", "", nil, "1784", "blkoutuk", "", now, now).
		AddRow(int64(2), "twitter", "tw-at", "tw-rt", now.Add(time.Hour), "555", "blkoutuk", "", now, now)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, platform, access_token`)).WillReturnRows(rows)

	tokens, err := repository.GetAllTokens(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "instagram", tokens[0].Platform)
	assert.Nil(t, tokens[0].ExpiresAt)
	assert.NotNil(t, tokens[1].ExpiresAt)
}

func TestPlatformTokenRepository_DeleteToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewPlatformTokenRepository(db)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM platform_tokens WHERE platform=$1`)).
		WithArgs("twitter").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repository.DeleteToken(context.Background(), "twitter"))
	require.NoError(t, mock.ExpectationsWereMet())
}
