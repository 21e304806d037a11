package model

import (
	"gorm.io/datatypes"
)

// RunStatus 一次分析运行的生命周期状态。
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// RunModel 持久化一次分析运行的参数与结果。
// 列表类字段（交易对、成功/失败名单）与相关矩阵存成 JSON 列。
type RunModel struct {
	ID          string         `gorm:"column:id;primaryKey"`
	Status      RunStatus      `gorm:"column:status;index"`
	Mode        string         `gorm:"column:mode"`
	Timeframe   string         `gorm:"column:timeframe"`
	MultiDay    bool           `gorm:"column:multi_day"`
	TargetCount int            `gorm:"column:target_count"`
	Symbols     datatypes.JSON `gorm:"column:symbols_json"`
	Successes   datatypes.JSON `gorm:"column:successes_json"`
	Failures    datatypes.JSON `gorm:"column:failures_json"`
	Matrix      datatypes.JSON `gorm:"column:matrix_json"`
	Rows        int            `gorm:"column:rows"`
	Cols        int            `gorm:"column:cols"`
	SpanStart   int64          `gorm:"column:span_start"`
	SpanEnd     int64          `gorm:"column:span_end"`
	DurationMS  int64          `gorm:"column:duration_ms"`
	ReportPath  string         `gorm:"column:report_path"`
	Error       string         `gorm:"column:error"`
	CreatedAt   int64          `gorm:"column:created_at;index"`
	UpdatedAt   int64          `gorm:"column:updated_at"`
}

func (RunModel) TableName() string { return "analysis_runs" }
