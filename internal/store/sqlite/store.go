package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"spotanalitics/internal/forecast"
	"spotanalitics/internal/store"
	"spotanalitics/internal/store/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type SqliteStore struct {
	db *gorm.DB
}

func NewSqliteStore(path string) (*SqliteStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return NewSqliteStoreFromDB(db)
}

func NewSqliteStoreFromDB(db *gorm.DB) (*SqliteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db cannot be nil")
	}
	models := []interface{}{
		&model.OpenForecastModel{},
		&model.ForecastHistoryModel{},
		&model.UserModel{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) GetOpen(ctx context.Context, symbol string) (*forecast.Forecast, error) {
	var m model.OpenForecastModel
	err := s.db.WithContext(ctx).Where("symbol_key = ?", symbolKey(symbol)).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f, err := fromColumns(m.ForecastColumns)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// PutOpen 依赖主键冲突实现 insert-if-absent。
func (s *SqliteStore) PutOpen(ctx context.Context, f forecast.Forecast) error {
	cols, err := toColumns(f)
	if err != nil {
		return err
	}
	m := model.OpenForecastModel{SymbolKey: symbolKey(f.Symbol), ForecastColumns: cols}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrOpenForecastExists
	}
	return nil
}

func (s *SqliteStore) CloseForecast(ctx context.Context, symbol string, hit forecast.Hit) (*forecast.Forecast, error) {
	var closed *forecast.Forecast
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.OpenForecastModel
		err := tx.Where("symbol_key = ?", symbolKey(symbol)).Take(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		open, err := fromColumns(m.ForecastColumns)
		if err != nil {
			return err
		}
		done, err := open.Close(hit)
		if err != nil {
			return err
		}
		res := tx.Where("symbol_key = ? AND forecast_id = ?", m.SymbolKey, m.ForecastID).Delete(&model.OpenForecastModel{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		hm, err := toHistory(done)
		if err != nil {
			return err
		}
		if err := tx.Create(&hm).Error; err != nil {
			return err
		}
		closed = &done
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("close forecast %s: %w", symbol, err)
	}
	return closed, nil
}

func (s *SqliteStore) AllOpen(ctx context.Context) ([]forecast.Forecast, error) {
	var rows []model.OpenForecastModel
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]forecast.Forecast, 0, len(rows))
	for _, r := range rows {
		f, err := fromColumns(r.ForecastColumns)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (s *SqliteStore) AllHistory(ctx context.Context) ([]forecast.Forecast, error) {
	return s.history(ctx, "id ASC", 0)
}

func (s *SqliteStore) RecentHistory(ctx context.Context, limit int) ([]forecast.Forecast, error) {
	return s.history(ctx, "id DESC", limit)
}

func (s *SqliteStore) history(ctx context.Context, order string, limit int) ([]forecast.Forecast, error) {
	q := s.db.WithContext(ctx).Order(order)
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []model.ForecastHistoryModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]forecast.Forecast, 0, len(rows))
	for _, r := range rows {
		f, err := fromHistory(r)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (s *SqliteStore) UpsertUser(ctx context.Context, u store.User) error {
	m := model.UserModel{
		ChatID:      u.ChatID,
		Username:    u.Username,
		RiskProfile: u.RiskProfile,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "chat_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "risk_profile", "updated_at"}),
	}).Create(&m).Error
}

func (s *SqliteStore) GetUser(ctx context.Context, chatID int64) (*store.User, error) {
	var m model.UserModel
	err := s.db.WithContext(ctx).Where("chat_id = ?", chatID).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u := toUser(m)
	return &u, nil
}

func (s *SqliteStore) ListUsers(ctx context.Context) ([]store.User, error) {
	var rows []model.UserModel
	if err := s.db.WithContext(ctx).Order("chat_id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]store.User, 0, len(rows))
	for _, r := range rows {
		out = append(out, toUser(r))
	}
	return out, nil
}

func toUser(m model.UserModel) store.User {
	return store.User{
		ChatID:      m.ChatID,
		Username:    m.Username,
		RiskProfile: m.RiskProfile,
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}
}

func (s *SqliteStore) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ store.Store = (*SqliteStore)(nil)
