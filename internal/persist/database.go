package persist

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const queueStateKey = "queues"

// SavedState is one keyed blob of persisted process state.
type SavedState struct {
	ID        uint           `gorm:"primarykey"`
	Key       string         `gorm:"uniqueIndex;size:64"`
	Payload   datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

// Manager is the database-backed Store. It connects to Postgres and falls
// back to a local SQLite file when Postgres is unreachable.
type Manager struct {
	DB              *gorm.DB
	ShouldSaveLocal bool
	SqliteFilePath  string
	Logger          zerolog.Logger
}

var _ Store = (*Manager)(nil)

// NewManager creates an unconnected database manager.
func NewManager(log zerolog.Logger, sqlitePath string) *Manager {
	return &Manager{
		SqliteFilePath: sqlitePath,
		Logger:         log,
	}
}

// Connect establishes a database connection, falling back to SQLite if
// Postgres fails, and migrates the saved-state schema.
func (m *Manager) Connect() error {
	var err error

	m.DB, err = m.getPostgresDB()
	if err != nil {
		m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
		m.ShouldSaveLocal = true
		m.DB, err = m.getSqliteDB()
		if err != nil || m.DB == nil {
			return fmt.Errorf("failed to get local SQLite DB: %w", err)
		}
	}

	sqlDB, err := m.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err = sqlDB.Ping(); err != nil {
		m.Logger.Error().Err(err).Msg("Failed to validate connection, trying SQLite")
		m.ShouldSaveLocal = true
		m.DB, err = m.getSqliteDB()
		if err != nil || m.DB == nil {
			return fmt.Errorf("failed to get local SQLite DB: %w", err)
		}
	}
	if !m.ShouldSaveLocal {
		sqlDB.SetMaxOpenConns(10)
	}

	if err = m.DB.AutoMigrate(&SavedState{}); err != nil {
		return fmt.Errorf("failed to migrate saved state schema: %w", err)
	}

	m.Logger.Info().Bool("local", m.ShouldSaveLocal).Msg("Connected to database")
	return nil
}

func (m *Manager) getPostgresDB() (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		viper.GetString("db.host"),
		viper.GetString("db.port"),
		viper.GetString("db.username"),
		viper.GetString("db.password"),
		viper.GetString("db.database"),
	)
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

func (m *Manager) getSqliteDB() (*gorm.DB, error) {
	path := m.SqliteFilePath
	if path == "" {
		path = "relink.db"
	}
	return gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

// SaveQueues upserts the queue snapshot.
func (m *Manager) SaveQueues(state QueueState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshalling queue state: %w", err)
	}
	row := SavedState{Key: queueStateKey, Payload: payload}
	err = m.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("saving queue state: %w", err)
	}
	return nil
}

// LoadQueues reads the queue snapshot. Never-saved state is not an error.
func (m *Manager) LoadQueues() (QueueState, bool, error) {
	var row SavedState
	err := m.DB.Where("key = ?", queueStateKey).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return QueueState{}, false, nil
	}
	if err != nil {
		return QueueState{}, false, fmt.Errorf("reading queue state: %w", err)
	}
	var state QueueState
	if err = json.Unmarshal(row.Payload, &state); err != nil {
		return QueueState{}, false, fmt.Errorf("unmarshalling queue state: %w", err)
	}
	return state, true, nil
}

// Close closes the underlying connection.
func (m *Manager) Close() error {
	if m.DB == nil {
		return nil
	}
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
