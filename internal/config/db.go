package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DBConfig holds database connection parameters
type DBConfig struct {
	DSN string
}

// LoadDBConfig loads database configuration from environment variables
func LoadDBConfig() (*DBConfig, error) {
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")

	if dbHost == "" || dbPort == "" || dbUser == "" || dbName == "" {
		return nil, fmt.Errorf("database environment variables not set (DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME)")
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		dbHost, dbPort, dbUser, dbPassword, dbName)

	return &DBConfig{DSN: dsn}, nil
}

// ConnectDB opens a pool and pings it, retrying while the database comes up
func ConnectDB(ctx context.Context, cfg *DBConfig, log zerolog.Logger) (*pgxpool.Pool, error) {
	const maxRetries = 5
	const retryInterval = 5 * time.Second

	var err error
	for i := 0; i < maxRetries; i++ {
		var pool *pgxpool.Pool
		pool, err = pgxpool.New(ctx, cfg.DSN)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				log.Info().Msg("connected to PostgreSQL")
				return pool, nil
			}
			pool.Close()
		}
		log.Warn().Err(err).Int("attempt", i+1).Int("max_attempts", maxRetries).Dur("retry_in", retryInterval).
			Msg("failed to connect to database")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
	return nil, fmt.Errorf("unable to connect to database after %d attempts: %w", maxRetries, err)
}

// Execer is the part of a pool AutoMigrate needs
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('Donor', 'Volunteer', 'Admin')) DEFAULT 'Donor',
		phone TEXT,
		location TEXT,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS volunteers (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		skills TEXT[] NOT NULL DEFAULT '{}',
		availability TEXT NOT NULL DEFAULT '',
		points INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS donations (
		id BIGSERIAL PRIMARY KEY,
		type TEXT NOT NULL CHECK (type IN ('clothes', 'books', 'food', 'money', 'others')),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		status TEXT NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'approved', 'assigned', 'completed', 'approvedByAdmin')),
		donor_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		assigned_to BIGINT REFERENCES volunteers(id) ON DELETE SET NULL,
		completion_proof TEXT NOT NULL DEFAULT '',
		points_awarded INTEGER NOT NULL DEFAULT 0 CHECK (points_awarded >= 0),
		created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		CHECK (status <> 'assigned' OR assigned_to IS NOT NULL)
	);

	CREATE INDEX IF NOT EXISTS idx_donations_donor_id ON donations(donor_id);
	CREATE INDEX IF NOT EXISTS idx_donations_assigned_to ON donations(assigned_to);
	CREATE INDEX IF NOT EXISTS idx_donations_status ON donations(status);
	CREATE INDEX IF NOT EXISTS idx_volunteers_points ON volunteers(points DESC, id);

	CREATE OR REPLACE FUNCTION update_updated_at_column()
	RETURNS TRIGGER AS $$
	BEGIN
		NEW.updated_at = NOW();
		RETURN NEW;
	END;
	$$ language 'plpgsql';

	DO $$
	BEGIN
		IF NOT EXISTS (
			SELECT 1
			FROM pg_trigger
			WHERE tgname = 'set_donations_updated_at' AND tgrelid = 'donations'::regclass
		) THEN
			CREATE TRIGGER set_donations_updated_at
			BEFORE UPDATE ON donations
			FOR EACH ROW
			EXECUTE FUNCTION update_updated_at_column();
		END IF;
	END
	$$;
`

// AutoMigrate creates tables if they don't exist
func AutoMigrate(ctx context.Context, db Execer, log zerolog.Logger) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("unable to apply migrations: %w", err)
	}
	log.Info().Msg("AutoMigrate applied successfully")
	return nil
}
