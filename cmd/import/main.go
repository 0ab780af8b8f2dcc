// Command import loads the Taipei attraction dump into the attractions and
// attraction_images tables.  It is safe to re-run: rows are updated in
// place by id.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/gommon/log"

	"github.com/iliyamo/taipei-day-trip/internal/catalog"
	"github.com/iliyamo/taipei-day-trip/internal/config"
	"github.com/iliyamo/taipei-day-trip/internal/database"
	"github.com/iliyamo/taipei-day-trip/internal/repository"
)

func main() {
	def := os.Getenv("IMPORT_FILE")
	if def == "" {
		def = "data/taipei-attractions.json"
	}
	file := flag.String("file", def, "path to taipei-attractions.json")
	flag.Parse()

	logger := log.New("tdt-import")
	logger.SetLevel(log.INFO)

	if err := run(config.LoadDB(), *file, logger); err != nil {
		logger.Fatal(err)
	}
}

func run(cfg config.DBConfig, file string, logger *log.Logger) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	list, err := catalog.Load(f)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}

	db, err := database.Open(
		database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName),
		database.PoolOptions{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		},
	)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DBMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		logger.Info("schema applied")
	}

	images := 0
	for _, a := range list {
		images += len(a.Images)
	}
	if err := repository.NewAttractionRepo(db).ReplaceAll(ctx, list); err != nil {
		return err
	}
	logger.Infof("imported %d attractions with %d images from %s", len(list), images, file)
	return nil
}
