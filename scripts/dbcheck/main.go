package main

import (
	"context"
	"fmt"
	"os"

	"orderdesk/internal/config"

	"github.com/jackc/pgx/v5"
)

// dbcheck connects with the service's database settings and reports which
// of the order tables exist.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to load configuration: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, cfg.Database.ConnectionString())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	var dbName string
	err = conn.QueryRow(ctx, "SELECT current_database()").Scan(&dbName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "QueryRow failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Successfully connected to database: %s\n", dbName)

	fmt.Println("\nOrder tables:")
	for _, table := range []string{"users", "products", "orders", "order_items", "order_status_history"} {
		var exists bool
		err = conn.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", "public."+table).Scan(&exists)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
			os.Exit(1)
		}
		state := "missing"
		if exists {
			state = "present"
		}
		fmt.Printf("  - %-22s %s\n", table, state)
	}
}
