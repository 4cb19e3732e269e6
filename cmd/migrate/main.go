// Command migrate manages the notification schema by hand.
//
//	migrate [-path dir] up|down|version|force N
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gaiathon25/gaiathon-notify/internal/shared/infrastructure/config"
	"github.com/gaiathon25/gaiathon-notify/internal/shared/infrastructure/logger"
	"github.com/gaiathon25/gaiathon-notify/pkg/migration"
	"go.uber.org/zap"
)

type migrator interface {
	Up() error
	Down() error
	Force(version int) error
	Version() (uint, bool, error)
}

var errUsage = errors.New("usage: migrate [-path dir] up|down|version|force N")

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Load()

	path := flag.String("path", cfg.Notifications.MigrationsPath, "migrations directory")
	flag.Parse()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	runner := migration.NewRunner(&migration.Config{
		MigrationsPath: *path,
		DatabaseURL:    cfg.Database.URL(),
		Logger:         log,
	})
	if err := run(runner, flag.Args(), os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		log.Fatal("migrate failed", zap.Error(err))
	}
}

func run(m migrator, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	switch args[0] {
	case "up":
		if len(args) != 1 {
			return errUsage
		}
		return m.Up()
	case "down":
		if len(args) != 1 {
			return errUsage
		}
		return m.Down()
	case "force":
		if len(args) != 2 {
			return errUsage
		}
		version, err := strconv.Atoi(args[1])
		if err != nil || version < -1 {
			return fmt.Errorf("%w: force needs a version >= -1", errUsage)
		}
		return m.Force(version)
	case "version":
		if len(args) != 1 {
			return errUsage
		}
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "version=%d dirty=%t\n", version, dirty)
		return err
	default:
		return errUsage
	}
}
