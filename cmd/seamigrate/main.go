// seamigrate runs the legacy-snapshot migration for every tenant found
// under the configured data roots. It is the process-start entry the host
// application invokes; all real logic lives in the migrate package.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/marinerlabs/seastore/migrate"

	_ "modernc.org/sqlite"
)

func main() {
	cfgPath := "seamigrate.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := migrate.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	eng, err := migrate.New(cfg, migrate.WithLogger(logger))
	if err != nil {
		log.Fatalf("init engine: %v", err)
	}
	defer eng.Close()

	batch, err := eng.MigrateAll(context.Background())
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}

	for _, res := range batch.Results {
		for _, f := range res.Files {
			if !f.OK {
				logger.Warn("file left in place",
					"tenant", res.TenantID, "kind", f.Kind, "path", f.Path, "err", f.Err)
			}
		}
	}
	logger.Info("done",
		"migrated", batch.Migrated, "skipped", batch.Skipped, "failed", batch.Failed)

	if batch.Failed > 0 {
		os.Exit(1)
	}
}
