// migrate applies or rolls back the embedded database migrations.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/iamasit07/realtime-chat/internal/config"
	"github.com/iamasit07/realtime-chat/internal/repository/postgres"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

func main() {
	flagSet := pflag.NewFlagSet("migrate", pflag.ContinueOnError)
	direction := flagSet.StringP("direction", "d", "up", "migration direction: up or down")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set; create a .env or set DATABASE_URL")
		os.Exit(1)
	}

	if err := postgres.RunMigrations(cfg.DatabaseURL, *direction); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
	fmt.Printf("migrations applied (%s)\n", *direction)
}
