package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/kevin07696/recharge-service/internal/adapters/postgres"
	"github.com/kevin07696/recharge-service/internal/config"
	"github.com/kevin07696/recharge-service/pkg/security"
)

const dialect = "postgres"

var (
	flags = flag.NewFlagSet("migrate", flag.ExitOnError)
	dir   = flags.String("dir", "", "read migrations from this directory instead of the embedded set")
)

func main() {
	flags.Usage = usage
	_ = flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) < 1 {
		flags.Usage()
		return
	}
	command := args[0]

	logger, err := security.NewZapLoggerFromLevel(os.Getenv("LOG_LEVEL"), true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Fatal("Failed to read .env", zap.Error(err))
	}
	dbCfg := config.LoadDatabaseFromEnv()

	db, err := sql.Open("pgx", dbCfg.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal("Failed to connect to database",
			zap.String("host", dbCfg.Host),
			zap.String("database", dbCfg.Database),
			zap.Error(err))
	}

	if err := goose.SetDialect(dialect); err != nil {
		logger.Fatal("Failed to set dialect", zap.Error(err))
	}

	migrationsDir := *dir
	if migrationsDir == "" {
		goose.SetBaseFS(postgres.Migrations)
		migrationsDir = postgres.MigrationsDir
	}

	if err := goose.Run(command, db, migrationsDir, args[1:]...); err != nil {
		logger.Fatal("Migration failed", zap.String("command", command), zap.Error(err))
	}
	logger.Info("Migration finished", zap.String("command", command))
}

func usage() {
	fmt.Print(`Usage: migrate [-dir DIR] COMMAND

Commands:
    up                   Migrate the DB to the most recent version available
    up-by-one            Migrate the DB up by 1
    up-to VERSION        Migrate the DB to a specific VERSION
    down                 Roll back the version by 1
    down-to VERSION      Roll back to a specific VERSION
    redo                 Re-run the latest migration
    reset                Roll back all migrations
    status               Dump the migration status for the current DB
    version              Print the current version of the database
    create NAME sql      Create a new migration file (requires -dir)

Connection settings come from DB_HOST, DB_PORT, DB_USER, DB_PASSWORD,
DB_NAME and DB_SSL_MODE.
`)
}
