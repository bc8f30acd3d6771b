// Command seed loads a starter catalogue into the database and can mint bearer tokens for local testing.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"plumbstore/internal/auth"
	"plumbstore/internal/config"
	"plumbstore/internal/database"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type seedProduct struct {
	name        string
	description string
	price       string
	stock       int
}

type seedCategory struct {
	name        string
	description string
	icon        string
	products    []seedProduct
}

var catalogue = []seedCategory{
	{
		name:        "Taps & Mixers",
		description: "Kitchen and bathroom taps",
		icon:        "tap",
		products: []seedProduct{
			{"Chrome Mixer Tap", "Single lever kitchen mixer", "89.99", 25},
			{"Basin Pillar Taps (pair)", "Classic hot and cold pillar taps", "34.50", 40},
		},
	},
	{
		name:        "Pipes & Fittings",
		description: "Copper, PVC and compression fittings",
		icon:        "pipe",
		products: []seedProduct{
			{"15mm Copper Pipe 2m", "Half-hard copper tube", "12.75", 200},
			{"22mm Compression Elbow", "Brass 90 degree elbow", "3.20", 500},
			{"PTFE Tape", "12mm thread seal tape", "0.99", 1000},
		},
	},
	{
		name:        "Tools",
		description: "Hand tools for plumbing work",
		icon:        "wrench",
		products: []seedProduct{
			{"Basin Wrench", "Telescopic basin wrench", "18.40", 30},
			{"Pipe Cutter", "Adjustable 3-22mm pipe cutter", "14.99", 60},
		},
	},
}

func main() {
	token := flag.Bool("token", false, "print a signed bearer token instead of seeding")
	userID := flag.Int64("user", 1, "user id for -token")
	roleID := flag.Int64("role", 1, "role id for -token (0 is admin)")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime for -token, 0 for no expiry")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Logger)

	if *token {
		signed, err := auth.NewVerifier(cfg.Auth.JWTSecret).Issue(auth.Identity{UserID: *userID, RoleID: *roleID}, *ttl)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to issue token")
		}
		fmt.Println(signed)
		return
	}

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database.ConnectionString(), logger); err != nil {
			logger.Fatal().Err(err).Msg("Failed to run migrations")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	var dbName string
	if err := pool.QueryRow(ctx, "SELECT current_database()").Scan(&dbName); err != nil {
		logger.Fatal().Err(err).Msg("Failed to query database")
	}
	logger.Info().Str("database", dbName).Msg("Connected")

	inserted, err := seed(ctx, pool, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to seed catalogue")
	}
	logger.Info().Int("products", inserted).Msg("Catalogue seeded")
}

// seed inserts the catalogue in one transaction. Categories that already exist are left alone
// along with their products, so the command can be re-run.
func seed(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) (int, error) {
	inserted := 0
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		for _, c := range catalogue {
			var categoryID int64
			err := tx.QueryRow(ctx, `
				INSERT INTO categories (name, description, icon)
				VALUES ($1, $2, $3)
				ON CONFLICT (name) DO NOTHING
				RETURNING id`, c.name, c.description, c.icon).Scan(&categoryID)
			if errors.Is(err, pgx.ErrNoRows) {
				logger.Debug().Str("category", c.name).Msg("category exists, skipping")
				continue
			}
			if err != nil {
				return fmt.Errorf("insert category %q: %w", c.name, err)
			}

			for _, p := range c.products {
				_, err := tx.Exec(ctx, `
					INSERT INTO products (category_id, name, description, price, stock)
					VALUES ($1, $2, $3, $4::numeric, $5)`, categoryID, p.name, p.description, p.price, p.stock)
				if err != nil {
					return fmt.Errorf("insert product %q: %w", p.name, err)
				}
				inserted++
			}
		}
		return nil
	})
	return inserted, err
}
