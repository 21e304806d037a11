package universe

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/logger"
	"github.com/Arc-Celt/crypto-correlation-analyzer/internal/pkg/symbol"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Snapshot 资产分类规则的一致快照：别名表、稳定币、排除名单与兜底列表。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time

	Aliases       map[string]string
	Stablecoins   map[string]struct{}
	Excluded      map[string]struct{}
	FallbackBases []string
}

// AliasFor 返回某资产代码在交易所上市用的替代基础代码。
func (s Snapshot) AliasFor(code string) (string, bool) {
	alias, ok := s.Aliases[symbol.NormalizeCode(code)]
	return alias, ok
}

func (s Snapshot) IsStablecoin(code string) bool {
	_, ok := s.Stablecoins[symbol.NormalizeCode(code)]
	return ok
}

func (s Snapshot) IsExcluded(code string) bool {
	_, ok := s.Excluded[symbol.NormalizeCode(code)]
	return ok
}

// ChangeListener 在规则文件重载后触发。
type ChangeListener func(Snapshot)

// Registry 管理资产分类规则。未配置文件时使用内置默认值；
// 配置了文件则监听变更并热加载。
type Registry struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  Snapshot
	listeners []ChangeListener
}

// fileConfig 映射规则文件结构。
type fileConfig struct {
	Aliases       map[string]string `yaml:"aliases"`
	Stablecoins   []string          `yaml:"stablecoins"`
	Excluded      []string          `yaml:"excluded"`
	FallbackBases []string          `yaml:"fallback_bases"`
}

const schemaJSON = `{
  "type": "object",
  "properties": {
    "aliases": {
      "type": "object",
      "additionalProperties": {"type": "string", "minLength": 1}
    },
    "stablecoins": {"type": "array", "items": {"type": "string", "minLength": 1}},
    "excluded": {"type": "array", "items": {"type": "string", "minLength": 1}},
    "fallback_bases": {"type": "array", "items": {"type": "string", "minLength": 1}}
  },
  "additionalProperties": false
}`

// NewRegistry 读取规则文件并监听更新。path 为空时返回纯默认规则的 registry。
func NewRegistry(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	r := &Registry{path: path}
	if path == "" {
		r.snapshot = defaultSnapshot(1)
		return r, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read universe config failed: %w", err)
	}
	r.v = v
	if err := r.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.reload(); err != nil {
			logger.Errorf("universe reload failed: %v", err)
			return
		}
		r.notifyListeners()
	})
	v.WatchConfig()
	return r, nil
}

// Snapshot 返回当前规则集（副本）。
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSnapshot(r.snapshot)
}

// OnChange 注册重载回调。
func (r *Registry) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.listeners = append(r.listeners, fn)
	r.mu.Unlock()
}

func (r *Registry) reload() error {
	cfg, err := readUniverseFile(r.path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	snap := buildSnapshot(cfg, r.snapshot.Version+1)
	r.snapshot = snap
	r.mu.Unlock()
	logger.Infof("universe 规则已加载: %d 别名 / %d 稳定币 / %d 排除 / %d 兜底 (%s)",
		len(snap.Aliases), len(snap.Stablecoins), len(snap.Excluded), len(snap.FallbackBases), filepath.Base(r.path))
	return nil
}

func (r *Registry) notifyListeners() {
	r.mu.RLock()
	snap := cloneSnapshot(r.snapshot)
	listeners := append([]ChangeListener(nil), r.listeners...)
	r.mu.RUnlock()
	for _, fn := range listeners {
		go func(cb ChangeListener) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Errorf("universe listener panic: %v", rec)
				}
			}()
			cb(snap)
		}(fn)
	}
}

func defaultSnapshot(version int64) Snapshot {
	return buildSnapshot(fileConfig{}, version)
}

// buildSnapshot 把文件配置规范化成快照；文件缺失的组用内置默认值补齐。
func buildSnapshot(cfg fileConfig, version int64) Snapshot {
	aliases := make(map[string]string)
	src := cfg.Aliases
	if len(src) == 0 {
		src = defaultAliases
	}
	for code, alias := range src {
		code = symbol.NormalizeCode(code)
		alias = symbol.NormalizeCode(alias)
		if code == "" || alias == "" {
			continue
		}
		aliases[code] = alias
	}

	stable := cfg.Stablecoins
	if len(stable) == 0 {
		stable = defaultStablecoins
	}
	excluded := cfg.Excluded
	if len(excluded) == 0 {
		excluded = defaultExcluded
	}
	fallback := cfg.FallbackBases
	if len(fallback) == 0 {
		fallback = defaultFallbackBases
	}

	return Snapshot{
		Version:       version,
		LoadedAt:      time.Now(),
		Aliases:       aliases,
		Stablecoins:   toSet(stable),
		Excluded:      toSet(excluded),
		FallbackBases: symbol.Dedupe(fallback),
	}
}

func toSet(codes []string) map[string]struct{} {
	out := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		c = symbol.NormalizeCode(c)
		if c == "" {
			continue
		}
		out[c] = struct{}{}
	}
	return out
}

func cloneSnapshot(src Snapshot) Snapshot {
	dst := Snapshot{
		Version:       src.Version,
		LoadedAt:      src.LoadedAt,
		Aliases:       make(map[string]string, len(src.Aliases)),
		Stablecoins:   make(map[string]struct{}, len(src.Stablecoins)),
		Excluded:      make(map[string]struct{}, len(src.Excluded)),
		FallbackBases: append([]string(nil), src.FallbackBases...),
	}
	for k, v := range src.Aliases {
		dst.Aliases[k] = v
	}
	for k := range src.Stablecoins {
		dst.Stablecoins[k] = struct{}{}
	}
	for k := range src.Excluded {
		dst.Excluded[k] = struct{}{}
	}
	return dst
}

func readUniverseFile(path string) (fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read universe config failed: %w", err)
	}

	// 先做 schema 校验，再做严格解码
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return fileConfig{}, fmt.Errorf("parse universe config failed: %w", err)
	}
	if generic != nil {
		if err := universeSchema.Validate(generic); err != nil {
			return fileConfig{}, fmt.Errorf("universe config schema invalid: %w", err)
		}
	}

	var cfg fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return fileConfig{}, fmt.Errorf("parse universe config failed: %w", err)
	}
	return cfg, nil
}

var universeSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("universe.json", strings.NewReader(schemaJSON)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("universe.json")
}
