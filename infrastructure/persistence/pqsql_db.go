package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/BLKOUTUK/comms-blkout-sub001/infrastructure/configuration"

	_ "github.com/lib/pq"
)

// NewPostgreSQLDB opens the dashboard's PostgreSQL database using native
// database/sql with the lib/pq driver.
func NewPostgreSQLDB() (*sql.DB, error) {
	cfg := configuration.C.Database.Psql
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
