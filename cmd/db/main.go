// Command db runs schema migrations against the configured database.
//
// Usage:
//
//	db [up|down|status|version|reset|redo]
package main

import (
	"context"
	"log"
	"os"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/letieu/strategia/config"
	"github.com/letieu/strategia/internal/database"
)

func main() {
	ctx := context.Background()

	cnf, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	command := "up"
	var args []string
	if len(os.Args) > 1 {
		command, args = os.Args[1], os.Args[2:]
	}

	if cnf.Database.Type == "sqlite" {
		sqlite_vec.Auto()
	}
	db, err := database.OpenSQL(cnf.Database.Type, cnf.Database.DBName, cnf.Database.Url, cnf.Database.Token)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := database.RunMigrations(ctx, db, command, args...); err != nil {
		log.Fatal(err)
	}

	log.Println("DONE")
}
