package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/sqlagent/sqlagent/internal/config"
	"github.com/sqlagent/sqlagent/internal/seed"
)

func main() {
	revert := flag.Bool("revert", false, "drop the seeded tables instead of creating them")
	steps := flag.Int("steps", 1, "number of seed scripts to revert")
	flag.Parse()

	cfg, err := config.LoadFromEnv("sqlagent-seed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	conn, err := openDatabase(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database open error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "database ping error: %v\n", err)
		os.Exit(1)
	}

	runner := seed.NewRunner()
	if *revert {
		reverted, err := runner.Revert(ctx, conn, *steps)
		if err != nil {
			fmt.Fprintf(os.Stderr, "seed revert failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("reverted %d seed script(s)\n", reverted)
		return
	}

	applied, err := runner.Apply(ctx, conn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("applied %d seed script(s)\n", applied)
}

func openDatabase(cfg config.Config) (*sql.DB, error) {
	if cfg.Database.Backend == config.BackendPostgres {
		return sql.Open("pgx", cfg.Database.PostgresDSN)
	}
	return sql.Open("duckdb", cfg.Database.DuckDBPath)
}
