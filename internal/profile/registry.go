package profile

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"spotanalitics/internal/logger"
	"spotanalitics/internal/strategy"
)

// FileConfig 风险 profile 文件结构。
type FileConfig struct {
	Profiles map[string]strategy.RiskParams `yaml:"profiles"`
}

// Snapshot 只读快照。
type Snapshot struct {
	Version  int64
	LoadedAt time.Time
	Profiles map[string]strategy.RiskParams
}

// Names 按字母序返回 profile 名称。
func (s Snapshot) Names() []string {
	out := make([]string, 0, len(s.Profiles))
	for name := range s.Profiles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Registry 从 YAML 文件加载风险 profile 并热更新，实现 strategy.ParamsProvider。
// 热更新失败时保留上一份快照。
type Registry struct {
	path   string
	active string
	schema *jsonschema.Schema
	v      *viper.Viper

	mu       sync.RWMutex
	snapshot Snapshot
}

// NewRegistry 读取并校验文件，active 为当前生效的 profile 名称。
func NewRegistry(path, active string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("profile registry requires path")
	}
	active = strings.TrimSpace(active)
	if active == "" {
		return nil, fmt.Errorf("profile registry requires an active profile name")
	}
	schema, err := compileSchema()
	if err != nil {
		return nil, fmt.Errorf("compile profile schema: %w", err)
	}
	r := &Registry{path: path, active: active, schema: schema}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Watch 监听文件变化并自动重载。
func (r *Registry) Watch() {
	v := viper.New()
	v.SetConfigFile(r.path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		logger.Warnf("profile watch disabled: %v", err)
		return
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := r.Reload(); err != nil {
			logger.Errorf("risk profile reload failed (%s), keeping version %d: %v", evt.Name, r.Snapshot().Version, err)
		}
	})
	v.WatchConfig()
	r.v = v
}

// Reload 重新读取文件；任何错误都不会替换当前快照。
func (r *Registry) Reload() error {
	profiles, err := r.read()
	if err != nil {
		return err
	}
	if _, ok := profiles[r.active]; !ok {
		return fmt.Errorf("active risk profile %q not found in %s", r.active, filepath.Base(r.path))
	}
	r.mu.Lock()
	r.snapshot = Snapshot{
		Version:  r.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Profiles: profiles,
	}
	version := r.snapshot.Version
	r.mu.Unlock()
	logger.Infof("risk profiles v%d loaded %d profiles from %s (active=%s)", version, len(profiles), filepath.Base(r.path), r.active)
	return nil
}

func (r *Registry) read() (map[string]strategy.RiskParams, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read risk profiles: %w", err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse risk profiles: %w", err)
	}
	value, err := toJSONValue(doc)
	if err != nil {
		return nil, fmt.Errorf("parse risk profiles: %w", err)
	}
	if err := r.schema.Validate(value); err != nil {
		return nil, fmt.Errorf("risk profiles schema: %w", err)
	}

	var cfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode risk profiles: %w", err)
	}
	out := make(map[string]strategy.RiskParams, len(cfg.Profiles))
	for name, p := range cfg.Profiles {
		p = withDefaults(p)
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("risk profile %s: %w", name, err)
		}
		out[strings.TrimSpace(name)] = p
	}
	return out, nil
}

// withDefaults 未填写的字段取默认值。
func withDefaults(p strategy.RiskParams) strategy.RiskParams {
	def := strategy.DefaultRiskParams()
	if p.ATRMultiplier == 0 {
		p.ATRMultiplier = def.ATRMultiplier
	}
	if p.Percentage == 0 {
		p.Percentage = def.Percentage
	}
	if p.SwingLowPeriod == 0 {
		p.SwingLowPeriod = def.SwingLowPeriod
	}
	if p.RRTakeProfit1 == 0 {
		p.RRTakeProfit1 = def.RRTakeProfit1
	}
	if p.RRTakeProfit2 == 0 {
		p.RRTakeProfit2 = def.RRTakeProfit2
	}
	return p
}

func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := Snapshot{Version: r.snapshot.Version, LoadedAt: r.snapshot.LoadedAt, Profiles: make(map[string]strategy.RiskParams, len(r.snapshot.Profiles))}
	for k, v := range r.snapshot.Profiles {
		out.Profiles[k] = v
	}
	return out
}

func (r *Registry) Active() string { return r.active }

// RiskParams 返回当前生效 profile 的参数。
func (r *Registry) RiskParams() strategy.RiskParams {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot.Profiles[r.active]
}

var _ strategy.ParamsProvider = (*Registry)(nil)
