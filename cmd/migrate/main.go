// Command migrate applies or inspects the database schema. Usage:
//
//	migrate up
//	migrate down
//	migrate status
package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/Abraxas-365/identity-core/pkg/config"
	"github.com/Abraxas-365/identity-core/pkg/logx"
	"github.com/Abraxas-365/identity-core/pkg/migrate"
	_ "github.com/lib/pq"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: migrate [up|down|status]")
		os.Exit(1)
	}

	cfg := config.Load()
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Password,
		cfg.Database.Name, cfg.Database.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		logx.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	switch os.Args[1] {
	case "up":
		err = migrate.Up(db)
	case "down":
		err = migrate.Down(db)
	case "status":
		err = migrate.Status(db)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		os.Exit(1)
	}
	if err != nil {
		logx.Fatalf("migrate %s failed: %v", os.Args[1], err)
	}
}
