package db

import (
	"errors"
	"fmt"
	"time"

	"spt-installer/logger"

	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/ncruces/go-sqlite3/gormlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Store wraps the installer's SQLite database.
type Store struct {
	DB *gorm.DB
}

// Open connects to the SQLite database at dbPath and migrates the schema.
func Open(dbPath string) (*Store, error) {
	newLogger := gormlogger.New(
		zap.NewStdLog(logger.ZapLogger),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)

	conn, err := gorm.Open(gormlite.Open(dbPath), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := conn.AutoMigrate(&HistoryEntry{}, &MultiplayerConfig{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}

	return &Store{DB: conn}, nil
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Record appends a history entry. A nil store is a no-op so callers without a database still work.
func (s *Store) Record(root string, kind EventKind, subject, version, detail string) error {
	if s == nil {
		return nil
	}
	entry := HistoryEntry{
		InstallRoot: root,
		Kind:        kind,
		Subject:     subject,
		Version:     version,
		Detail:      detail,
	}
	if err := s.DB.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to save history entry: %w", err)
	}
	return nil
}

// History returns the newest entries for root, newest first. limit <= 0 means no limit.
func (s *Store) History(root string, limit int) ([]HistoryEntry, error) {
	var entries []HistoryEntry
	q := s.DB.Where("install_root = ?", root).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return entries, nil
}

// GetMultiplayer returns the saved multiplayer settings for root, or nil if none exist.
func (s *Store) GetMultiplayer(root string) (*MultiplayerConfig, error) {
	var mc MultiplayerConfig
	err := s.DB.Where("install_root = ?", root).First(&mc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query multiplayer config: %w", err)
	}
	return &mc, nil
}

// SaveMultiplayer creates or overwrites the multiplayer settings for root.
func (s *Store) SaveMultiplayer(root string, mode Mode, hostIP, myIP string) error {
	var mc MultiplayerConfig
	err := s.DB.Where(MultiplayerConfig{InstallRoot: root}).
		Assign(map[string]any{"mode": string(mode), "host_ip": hostIP, "my_ip": myIP}).
		FirstOrCreate(&mc).Error
	if err != nil {
		return fmt.Errorf("failed to save multiplayer config: %w", err)
	}
	return nil
}

// ClearMultiplayer forgets the multiplayer settings for root.
func (s *Store) ClearMultiplayer(root string) error {
	if err := s.DB.Unscoped().Where("install_root = ?", root).Delete(&MultiplayerConfig{}).Error; err != nil {
		return fmt.Errorf("failed to clear multiplayer config: %w", err)
	}
	return nil
}
