// Command import loads a JSON export of a request collection (an object keyed
// by child id) into Redis. Children are written in document order, so the new
// time-ordered keys keep the exported order. Malformed children are skipped.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prudhvinik1/nurseaide/internal/database"
	"github.com/prudhvinik1/nurseaide/internal/logger"
	"github.com/prudhvinik1/nurseaide/internal/models"
	"github.com/prudhvinik1/nurseaide/internal/repositories"
	"github.com/prudhvinik1/nurseaide/internal/services"
	"go.uber.org/zap"
)

func main() {
	godotenv.Load()

	file := flag.String("file", "", "path to the JSON export")
	path := flag.String("path", envOr("REQUESTS_PATH", services.DefaultRequestsPath), "collection path to import into")
	redisURL := flag.String("redis", os.Getenv("REDIS_URL"), "redis URL")
	dryRun := flag.Bool("dry-run", false, "decode only, write nothing")
	flag.Parse()

	if *file == "" || (*redisURL == "" && !*dryRun) {
		log.Fatalf("Usage: %s -file export.json [-path requests] [-redis redis://...] [-dry-run]", os.Args[0])
	}

	lg, err := logger.NewLogger(envOr("LOG_LEVEL", "info"), "console", "nurseaide-import")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer lg.Sync()

	raw, err := os.ReadFile(*file)
	if err != nil {
		lg.Fatal("failed to read export", zap.Error(err))
	}

	snap, err := models.ParseSnapshot(*path, raw)
	if err != nil {
		lg.Fatal("failed to parse export", zap.Error(err))
	}
	records := services.DecodeSnapshot(snap)
	lg.Info("export decoded",
		zap.Int("children", len(snap.Children)),
		zap.Int("valid", len(records)),
	)
	if *dryRun {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	client, err := database.NewRedisClient(ctx, *redisURL, lg)
	if err != nil {
		lg.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer client.Close()

	n, err := importRecords(ctx, repositories.NewRedisRequestRepository(client), *path, records)
	if err != nil {
		lg.Fatal("import failed", zap.Int("imported", n), zap.Error(err))
	}
	lg.Info("import completed", zap.Int("imported", n), zap.String("path", *path))
}

type childWriter interface {
	PutChild(ctx context.Context, path string, child models.RequestChild) (string, error)
}

func importRecords(ctx context.Context, w childWriter, path string, records []models.RequestRecord) (int, error) {
	for i, r := range records {
		_, err := w.PutChild(ctx, path, models.RequestChild{
			Type:            r.Type,
			Timestamp:       r.Timestamp,
			PatientID:       r.PatientID,
			RoomNumber:      r.RoomNumber,
			DiscomfortLevel: r.DiscomfortLevel,
		})
		if err != nil {
			return i, err
		}
	}
	return len(records), nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
