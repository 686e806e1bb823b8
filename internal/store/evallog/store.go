package evallog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"spotanalitics/internal/logger"
	"spotanalitics/internal/strategy"

	_ "modernc.org/sqlite"
)

// Store 评估诊断日志，每次 Evaluate 一条。
type Store struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// Record 查询返回的记录。
type Record struct {
	ID int64 `json:"id"`
	strategy.Evaluation
}

// Query 过滤条件，Symbol 为空表示全部。
type Query struct {
	Symbol string
	Reason string
	Limit  int
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("evaluation log path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS evaluations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts INTEGER NOT NULL,
			pass_id TEXT,
			symbol TEXT NOT NULL,
			timeframe TEXT,
			candles INTEGER NOT NULL DEFAULT 0,
			reason TEXT NOT NULL,
			conditions TEXT,
			forecast_id TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_evaluations_symbol_ts ON evaluations(symbol, ts)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("evaluation log schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, ev strategy.Evaluation) (int64, error) {
	conds, err := json.Marshal(ev.Conditions)
	if err != nil {
		return 0, err
	}
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO evaluations (ts, pass_id, symbol, timeframe, candles, reason, conditions, forecast_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		at.UnixMilli(), ev.PassID, ev.Symbol, ev.Timeframe, ev.Candles, ev.Reason, string(conds), ev.ForecastID)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// AfterEvaluate 实现 strategy.EvaluationObserver，写入失败只记录日志。
func (s *Store) AfterEvaluate(ctx context.Context, ev strategy.Evaluation) {
	if s == nil {
		return
	}
	if _, err := s.Insert(context.WithoutCancel(ctx), ev); err != nil {
		logger.Warnf("evaluation log insert failed symbol=%s: %v", ev.Symbol, err)
	}
}

// List 按时间倒序返回。
func (s *Store) List(ctx context.Context, q Query) ([]Record, error) {
	limit := q.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var (
		where []string
		args  []any
	)
	if sym := strings.TrimSpace(q.Symbol); sym != "" {
		where = append(where, "symbol = ?")
		args = append(args, strings.ToUpper(sym))
	}
	if reason := strings.TrimSpace(q.Reason); reason != "" {
		where = append(where, "reason = ?")
		args = append(args, reason)
	}
	query := `SELECT id, ts, pass_id, symbol, timeframe, candles, reason, conditions, forecast_id FROM evaluations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY ts DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		var (
			rec        Record
			ts         int64
			passID     sql.NullString
			timeframe  sql.NullString
			conditions sql.NullString
			forecastID sql.NullString
		)
		if err := rows.Scan(&rec.ID, &ts, &passID, &rec.Symbol, &timeframe, &rec.Candles, &rec.Reason, &conditions, &forecastID); err != nil {
			return nil, err
		}
		rec.At = time.UnixMilli(ts).UTC()
		rec.PassID = passID.String
		rec.Timeframe = timeframe.String
		rec.ForecastID = forecastID.String
		if conditions.Valid && conditions.String != "" && conditions.String != "null" {
			if err := json.Unmarshal([]byte(conditions.String), &rec.Conditions); err != nil {
				return nil, fmt.Errorf("decode conditions id=%d: %w", rec.ID, err)
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
