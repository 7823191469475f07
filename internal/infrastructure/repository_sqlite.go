package infrastructure

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yourusername/tg-scribe-go/internal/domain"
)

// SQLiteRunRepository implements domain.RunRepository using SQLite
type SQLiteRunRepository struct {
	db *gorm.DB
}

// NewSQLiteRunRepository creates a new SQLite run repository
func NewSQLiteRunRepository(dbPath string) (*SQLiteRunRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Auto-migrate the schema for RunRecord
	if err := db.AutoMigrate(&domain.RunRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteRunRepository{db: db}, nil
}

// Create creates a new run record
func (r *SQLiteRunRepository) Create(run *domain.RunRecord) error {
	return r.db.Create(run).Error
}

// Update updates an existing run record
func (r *SQLiteRunRepository) Update(run *domain.RunRecord) error {
	return r.db.Save(run).Error
}

// FindByID finds a run by ID
func (r *SQLiteRunRepository) FindByID(id string) (*domain.RunRecord, error) {
	var run domain.RunRecord
	err := r.db.First(&run, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// FindRecent returns the most recent runs, newest first
func (r *SQLiteRunRepository) FindRecent(limit int) ([]*domain.RunRecord, error) {
	var runs []*domain.RunRecord
	err := r.db.Order("started_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// FindByChat returns runs for a chat slug, newest first
func (r *SQLiteRunRepository) FindByChat(chatSlug string) ([]*domain.RunRecord, error) {
	var runs []*domain.RunRecord
	err := r.db.Where("chat_slug = ?", chatSlug).Order("started_at DESC").Find(&runs).Error
	return runs, err
}

// GetStats returns run archive statistics
func (r *SQLiteRunRepository) GetStats() (*domain.RunStats, error) {
	stats := &domain.RunStats{}

	if err := r.db.Model(&domain.RunRecord{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status domain.RunStatus
		Count  int64
	}{}
	if err := r.db.Model(&domain.RunRecord{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}
	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.RunRunning:
			stats.Running = sc.Count
		case domain.RunCompleted:
			stats.Completed = sc.Count
		case domain.RunFailed:
			stats.Failed = sc.Count
		}
	}

	var processed struct{ Sum int64 }
	if err := r.db.Model(&domain.RunRecord{}).
		Select("coalesce(sum(processed), 0) as sum").
		Scan(&processed).Error; err != nil {
		return nil, err
	}
	stats.MessagesProcessed = processed.Sum

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteRunRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
