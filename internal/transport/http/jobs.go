package httpapi

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/logger"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/store/runstore"
)

// RunRequest 一次分析任务的请求参数。零值字段用配置默认值。
type RunRequest struct {
	ID          string `json:"-"`
	TargetCount int    `json:"target_count"`
	Timeframe   string `json:"timeframe"`
	Mode        string `json:"mode"`
	DaysBack    int    `json:"days_back"`
	MultiDay    bool   `json:"multi_day"`
	// Start/End 为 YYYY-MM-DD，多日模式使用
	Start string `json:"start"`
	End   string `json:"end"`
}

// ExecuteFunc 由组装层注入，执行一次完整的分析运行。
type ExecuteFunc func(ctx context.Context, req RunRequest) (runstore.Record, error)

// JobStatus 入库前的任务状态（入库后以 runstore 为准）。
type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

type jobState struct {
	Status JobStatus
	Error  string
}

// Jobs 单 worker 顺序执行分析任务：同一时刻最多一次运行在跑，
// 与核心的严格串行取数模型保持一致。
type Jobs struct {
	execute ExecuteFunc
	queue   chan RunRequest

	mu     sync.RWMutex
	states map[string]*jobState
}

func NewJobs(execute ExecuteFunc, queueSize int) *Jobs {
	if queueSize <= 0 {
		queueSize = 8
	}
	return &Jobs{
		execute: execute,
		queue:   make(chan RunRequest, queueSize),
		states:  make(map[string]*jobState),
	}
}

// Start 启动 worker，ctx 取消后停止接收并退出。
func (j *Jobs) Start(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-j.queue:
			j.setState(req.ID, JobRunning, "")
			started := time.Now()
			_, err := j.execute(ctx, req)
			if err != nil {
				j.setState(req.ID, JobFailed, err.Error())
				logger.Warnf("分析任务 %s 失败 (%s): %v", req.ID, time.Since(started).Round(time.Millisecond), err)
				continue
			}
			j.setState(req.ID, JobDone, "")
			logger.Infof("分析任务 %s 完成，耗时 %s", req.ID, time.Since(started).Round(time.Millisecond))
		}
	}
}

// Submit 入队一个任务并返回任务 id；队列满时报错而不是阻塞请求。
func (j *Jobs) Submit(req RunRequest) (string, error) {
	if strings.TrimSpace(req.ID) == "" {
		req.ID = uuid.NewString()
	}
	j.setState(req.ID, JobQueued, "")
	select {
	case j.queue <- req:
		return req.ID, nil
	default:
		j.dropState(req.ID)
		return "", fmt.Errorf("任务队列已满")
	}
}

// State 返回尚未入库任务的内存状态。
func (j *Jobs) State(id string) (JobStatus, string, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	st, ok := j.states[id]
	if !ok {
		return "", "", false
	}
	return st.Status, st.Error, true
}

func (j *Jobs) setState(id string, status JobStatus, errMsg string) {
	j.mu.Lock()
	j.states[id] = &jobState{Status: status, Error: errMsg}
	j.mu.Unlock()
}

func (j *Jobs) dropState(id string) {
	j.mu.Lock()
	delete(j.states, id)
	j.mu.Unlock()
}
