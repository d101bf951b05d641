// Command migrate imports an exported data dump into the configured
// database. The dump is a JSON file with series, sessions and recent
// series arrays, the format older deployments export.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/wfunc/remi-scorer/internal/config"
	"github.com/wfunc/remi-scorer/internal/database"
	"github.com/wfunc/remi-scorer/internal/logger"
	"github.com/wfunc/remi-scorer/internal/models"
	"go.uber.org/zap"
)

// defaultPassword backfills records exported before passwords were
// mandatory
const defaultPassword = "parola_implicita"

// dump shape of the exported JSON file
type dump struct {
	Series       []models.Series       `json:"series"`
	Sessions     []models.Session      `json:"sessions"`
	RecentSeries []models.RecentSeries `json:"recentSeries"`
}

func main() {
	var (
		configPath = flag.String("config", "", "path to the config file")
		inputPath  = flag.String("input", "", "path to the JSON dump to import")
	)

	flag.Parse()

	if *inputPath == "" {
		fmt.Println("usage: migrate -input dump.json [-config config.yaml]")
		os.Exit(1)
	}

	if err := config.Init(*configPath); err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Get()

	if err := logger.Init(&cfg.Log); err != nil {
		fmt.Printf("failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer logger.Cleanup()

	if err := database.Init(&cfg.Database); err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := database.AutoMigrate(); err != nil {
		logger.Fatal("failed to migrate schema", zap.Error(err))
	}

	if err := run(*inputPath); err != nil {
		logger.Fatal("import failed", zap.Error(err))
	}

	logger.Info("import complete")
}

// run imports the dump record by record. A record that fails, usually
// a duplicate identifier, is logged and skipped so a re-run imports
// only what is missing.
func run(inputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read dump: %w", err)
	}

	var d dump
	if err := json.Unmarshal(data, &d); err != nil {
		return fmt.Errorf("failed to parse dump: %w", err)
	}

	logger.Info("dump loaded",
		zap.Int("series", len(d.Series)),
		zap.Int("sessions", len(d.Sessions)),
		zap.Int("recent_series", len(d.RecentSeries)))

	db := database.GetDB()

	imported, skipped := 0, 0
	for i := range d.Series {
		series := d.Series[i]
		series.ID = 0
		if series.Password == "" {
			logger.Info("backfilling default password",
				zap.String("series_id", series.SeriesID))
			series.Password = defaultPassword
		}
		if series.CreatorID == "" {
			series.CreatorID = models.CreatorUnknown
		}
		if err := db.Create(&series).Error; err != nil {
			logger.Warn("skipping series",
				zap.String("series_id", series.SeriesID),
				zap.Error(err))
			skipped++
			continue
		}
		imported++
	}
	logger.Info("series imported", zap.Int("imported", imported), zap.Int("skipped", skipped))

	imported, skipped = 0, 0
	for i := range d.Sessions {
		session := d.Sessions[i]
		session.ID = 0
		if session.Password == "" {
			logger.Info("backfilling default password",
				zap.String("session_id", session.SessionID))
			session.Password = defaultPassword
		}
		if session.CreatorID == "" {
			session.CreatorID = models.CreatorUnknown
		}
		if session.Status == "" {
			session.Status = models.SessionStatusEnded
		}
		if err := db.Create(&session).Error; err != nil {
			logger.Warn("skipping session",
				zap.String("session_id", session.SessionID),
				zap.Error(err))
			skipped++
			continue
		}
		imported++
	}
	logger.Info("sessions imported", zap.Int("imported", imported), zap.Int("skipped", skipped))

	imported, skipped = 0, 0
	for i := range d.RecentSeries {
		recent := d.RecentSeries[i]
		recent.ID = 0
		if err := db.Create(&recent).Error; err != nil {
			logger.Warn("skipping recent series entry",
				zap.String("series_id", recent.SeriesID),
				zap.String("device_id", recent.DeviceID),
				zap.Error(err))
			skipped++
			continue
		}
		imported++
	}
	logger.Info("recent series imported", zap.Int("imported", imported), zap.Int("skipped", skipped))

	return nil
}
