package runstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/analysis/correlation"
	storemodel "github.com/Arc-Celt/crypto-correlation-analyzer/internal/store/model"
)

// ErrNotFound 查询的运行记录不存在。
var ErrNotFound = errors.New("run record not found")

type RunStatus = storemodel.RunStatus

const (
	RunStatusRunning   = storemodel.RunStatusRunning
	RunStatusSucceeded = storemodel.RunStatusSucceeded
	RunStatusFailed    = storemodel.RunStatusFailed
)

// Record 一次分析运行的历史条目。
type Record struct {
	ID          string             `json:"id"`
	Status      RunStatus          `json:"status"`
	Mode        string             `json:"mode"`
	Timeframe   string             `json:"timeframe"`
	MultiDay    bool               `json:"multi_day"`
	TargetCount int                `json:"target_count"`
	Symbols     []string           `json:"symbols"`
	Successes   []string           `json:"successes"`
	Failures    []string           `json:"failures"`
	Matrix      correlation.Matrix `json:"matrix"`
	Rows        int                `json:"rows"`
	Cols        int                `json:"cols"`
	SpanStart   time.Time          `json:"span_start"`
	SpanEnd     time.Time          `json:"span_end"`
	Duration    time.Duration      `json:"-"`
	DurationMS  int64              `json:"duration_ms"`
	ReportPath  string             `json:"report_path"`
	Error       string             `json:"error,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Store 用 Gorm + SQLite 保存运行历史。
type Store struct {
	db *gorm.DB
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("run store: 数据库路径不能为空")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&storemodel.RunModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: 允许少量并发读，写冲突靠 busy_timeout 吸收
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Create 写入一条新的运行记录，状态通常为 running。
func (s *Store) Create(ctx context.Context, rec Record) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("run store 未初始化")
	}
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("run id 不能为空")
	}
	if rec.Status == "" {
		rec.Status = RunStatusRunning
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	m, err := recordToModel(rec)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(&m).Error
}

// Finish 用最终结果覆盖一条记录（成功或失败均走这里）。
func (s *Store) Finish(ctx context.Context, rec Record) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("run store 未初始化")
	}
	m, err := recordToModel(rec)
	if err != nil {
		return err
	}
	m.UpdatedAt = time.Now().UnixMilli()
	res := s.db.WithContext(ctx).Model(&storemodel.RunModel{}).
		Where("id = ?", rec.ID).
		Updates(map[string]interface{}{
			"status":         m.Status,
			"successes_json": m.Successes,
			"failures_json":  m.Failures,
			"matrix_json":    m.Matrix,
			"rows":           m.Rows,
			"cols":           m.Cols,
			"span_start":     m.SpanStart,
			"span_end":       m.SpanEnd,
			"duration_ms":    m.DurationMS,
			"report_path":    m.ReportPath,
			"error":          m.Error,
			"updated_at":     m.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	if s == nil || s.db == nil {
		return Record{}, fmt.Errorf("run store 未初始化")
	}
	var m storemodel.RunModel
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return modelToRecord(m)
}

// List 按创建时间倒序返回最近的记录。limit<=0 时取 50。
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("run store 未初始化")
	}
	if limit <= 0 {
		limit = 50
	}
	var models []storemodel.RunModel
	if err := s.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(models))
	for _, m := range models {
		rec, err := modelToRecord(m)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func recordToModel(rec Record) (storemodel.RunModel, error) {
	symbols, err := jsonColumn(rec.Symbols)
	if err != nil {
		return storemodel.RunModel{}, err
	}
	successes, err := jsonColumn(rec.Successes)
	if err != nil {
		return storemodel.RunModel{}, err
	}
	failures, err := jsonColumn(rec.Failures)
	if err != nil {
		return storemodel.RunModel{}, err
	}
	var matrix datatypes.JSON
	if rec.Matrix.Size() > 0 {
		raw, err := json.Marshal(rec.Matrix)
		if err != nil {
			return storemodel.RunModel{}, err
		}
		matrix = datatypes.JSON(raw)
	}
	durationMS := rec.DurationMS
	if durationMS == 0 && rec.Duration > 0 {
		durationMS = rec.Duration.Milliseconds()
	}
	return storemodel.RunModel{
		ID:          rec.ID,
		Status:      rec.Status,
		Mode:        rec.Mode,
		Timeframe:   rec.Timeframe,
		MultiDay:    rec.MultiDay,
		TargetCount: rec.TargetCount,
		Symbols:     symbols,
		Successes:   successes,
		Failures:    failures,
		Matrix:      matrix,
		Rows:        rec.Rows,
		Cols:        rec.Cols,
		SpanStart:   unixOrZero(rec.SpanStart),
		SpanEnd:     unixOrZero(rec.SpanEnd),
		DurationMS:  durationMS,
		ReportPath:  rec.ReportPath,
		Error:       rec.Error,
		CreatedAt:   rec.CreatedAt.UnixMilli(),
	}, nil
}

func modelToRecord(m storemodel.RunModel) (Record, error) {
	rec := Record{
		ID:          m.ID,
		Status:      m.Status,
		Mode:        m.Mode,
		Timeframe:   m.Timeframe,
		MultiDay:    m.MultiDay,
		TargetCount: m.TargetCount,
		Rows:        m.Rows,
		Cols:        m.Cols,
		DurationMS:  m.DurationMS,
		Duration:    time.Duration(m.DurationMS) * time.Millisecond,
		ReportPath:  m.ReportPath,
		Error:       m.Error,
		CreatedAt:   time.UnixMilli(m.CreatedAt).UTC(),
	}
	if m.SpanStart > 0 {
		rec.SpanStart = time.UnixMilli(m.SpanStart).UTC()
	}
	if m.SpanEnd > 0 {
		rec.SpanEnd = time.UnixMilli(m.SpanEnd).UTC()
	}
	for _, pair := range []struct {
		raw  datatypes.JSON
		dest *[]string
	}{
		{m.Symbols, &rec.Symbols},
		{m.Successes, &rec.Successes},
		{m.Failures, &rec.Failures},
	} {
		if len(pair.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(pair.raw, pair.dest); err != nil {
			return Record{}, fmt.Errorf("decode run record %s: %w", m.ID, err)
		}
	}
	if len(m.Matrix) > 0 {
		if err := json.Unmarshal(m.Matrix, &rec.Matrix); err != nil {
			return Record{}, fmt.Errorf("decode run matrix %s: %w", m.ID, err)
		}
	}
	return rec, nil
}

func jsonColumn(items []string) (datatypes.JSON, error) {
	if items == nil {
		items = []string{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
