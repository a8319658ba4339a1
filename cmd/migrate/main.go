package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/kdimtricp/pagescan/internal/config"
	"github.com/kdimtricp/pagescan/internal/database"
	"github.com/kdimtricp/pagescan/internal/logging"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	var (
		dbType         = flag.String("db", "postgres", "Database type (postgres or sqlite)")
		host           = flag.String("host", cfg.DBHost, "Database host")
		port           = flag.Int("port", cfg.DBPort, "Database port")
		user           = flag.String("user", cfg.DBUser, "Database user")
		password       = flag.String("password", cfg.DBPassword, "Database password")
		dbName         = flag.String("name", cfg.DBName, "Database name")
		migrationsPath = flag.String("migrations", cfg.Migrations, "Path to migrations directory")
		status         = flag.Bool("status", false, "Show migration status only")
	)
	flag.Parse()

	log := logging.Setup(logging.ParseLevel(cfg.LogLevel))

	dbConfig := cfg.Database()
	dbConfig.Type = *dbType
	dbConfig.Host = *host
	dbConfig.Port = *port
	dbConfig.User = *user
	dbConfig.Password = *password
	dbConfig.Name = *dbName

	db, err := database.NewDB(dbConfig)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()

	if *status {
		statuses, err := database.NewMigrator(db.Conn(), dbConfig.Type).Status(ctx, *migrationsPath)
		if err != nil {
			log.Error("failed to read migration status", "error", err)
			os.Exit(1)
		}

		fmt.Println("Migration Status:")
		fmt.Println("=================")
		for _, m := range statuses {
			state := "pending"
			if m.Applied {
				state = "applied"
			}
			fmt.Printf("%s - %s [%s]\n", m.Version, m.Name, state)
		}
		return
	}

	fmt.Printf("Running migrations from %s...\n", *migrationsPath)
	if err := db.RunMigrations(ctx, *migrationsPath); err != nil {
		log.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	fmt.Println("Migrations completed successfully!")
}
