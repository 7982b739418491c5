package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"multicam/internal/camera"
	"multicam/internal/scripts"
	"multicam/internal/session"
	"multicam/internal/timecode"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Session  SessionConfig  `yaml:"session" toml:"session"`
	Phases   []PhaseConfig  `yaml:"phases" toml:"phases" validate:"dive"`
	Timecode TimecodeConfig `yaml:"timecode" toml:"timecode"`
	History  HistoryConfig  `yaml:"history" toml:"history"`
	Server   ServerConfig   `yaml:"server" toml:"server"`
}

// SessionConfig は撮影セッションの実行環境の設定
type SessionConfig struct {
	Python      string `yaml:"python" toml:"python" validate:"required"`  // スクリプトを実行するインタプリタ
	ScriptsDir  string `yaml:"scripts_dir" toml:"scripts_dir"`            // 番号付きスクリプトのディレクトリ
	WorkDir     string `yaml:"work_dir" toml:"work_dir"`                  // ステップの作業ディレクトリ（空ならカレント）
	CameraCache string `yaml:"camera_cache" toml:"camera_cache"`          // discover が書き出すキャッシュ
	Countdown   bool   `yaml:"countdown" toml:"countdown"`                // 待機中に残り時間を表示する

	// stop / poweroff にタイムアウトが無い場合の上限
	CleanupTimeout Duration `yaml:"cleanup_timeout" toml:"cleanup_timeout" validate:"gte=0"`
}

// PhaseConfig はフェーズ表の1行の設定
type PhaseConfig struct {
	Name     string   `yaml:"name" toml:"name" validate:"required,oneof=discover start stop copy sync poweroff"`
	Command  string   `yaml:"command" toml:"command"` // 空ならスクリプトから割り当てる
	Script   string   `yaml:"script" toml:"script"`   // scripts_dir からの相対パス
	Args     []string `yaml:"args" toml:"args"`
	Timeout  Duration `yaml:"timeout" toml:"timeout" validate:"gte=0"` // 0 なら既定値
	Disabled bool     `yaml:"disabled" toml:"disabled"`
}

// TimecodeConfig はタイムコードマーカーの設定
type TimecodeConfig struct {
	Enabled  bool     `yaml:"enabled" toml:"enabled"`
	Targets  []string `yaml:"targets" toml:"targets"`
	Repeat   int      `yaml:"repeat" toml:"repeat" validate:"gte=1"`
	Interval Duration `yaml:"interval" toml:"interval" validate:"gte=0"`
}

// HistoryConfig はセッション履歴の設定
type HistoryConfig struct {
	DSN string `yaml:"dsn" toml:"dsn"` // 空なら履歴を保存しない
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host" toml:"host"`                                  // リッスンするホスト
	Port int    `yaml:"port" toml:"port" validate:"gte=1,lte=65535"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  Duration `yaml:"read_timeout" toml:"read_timeout" validate:"gte=0"`   // 読み込みタイムアウト
	WriteTimeout Duration `yaml:"write_timeout" toml:"write_timeout" validate:"gte=0"` // 書き込みタイムアウト
}

// DefaultPhaseTimeouts はフェーズごとの既定のタイムアウト
var DefaultPhaseTimeouts = map[session.PhaseName]time.Duration{
	session.PhaseDiscover: 2 * time.Minute,
	session.PhaseStart:    time.Minute,
	session.PhaseStop:     time.Minute,
	session.PhaseCopy:     2 * time.Hour,
	session.PhaseSync:     4 * time.Hour,
	session.PhasePowerOff: time.Minute,
}

// requiredPhases は起動できない場合に致命的エラーとするフェーズ
var requiredPhases = map[session.PhaseName]bool{
	session.PhaseStop:     true,
	session.PhaseCopy:     true,
	session.PhasePowerOff: true,
}

// Default はデフォルト設定を返す
func Default() *Config {
	cfg := &Config{
		Session: SessionConfig{
			Python:         "python3",
			ScriptsDir:     ".",
			CameraCache:    camera.DefaultCachePath,
			Countdown:      true,
			CleanupTimeout: Duration(session.DefaultCleanupTimeout),
		},
		Timecode: TimecodeConfig{
			Enabled:  false,
			Targets:  []string{fmt.Sprintf("192.168.100.66:%d", timecode.DefaultPort)},
			Repeat:   timecode.DefaultRepeat,
			Interval: Duration(timecode.DefaultInterval),
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  Duration(10 * time.Second),
			WriteTimeout: Duration(10 * time.Second),
		},
	}
	cfg.Phases = defaultPhases()
	return cfg
}

func defaultPhases() []PhaseConfig {
	var phases []PhaseConfig
	for _, name := range session.PhaseOrder {
		if name == session.PhaseWait {
			continue
		}
		phases = append(phases, PhaseConfig{
			Name:    string(name),
			Timeout: Duration(DefaultPhaseTimeouts[name]),
		})
	}
	return phases
}

// Load は設定を読み込む
// デフォルト値、設定ファイル（path が空でなければ）、環境変数の順に上書きする
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// loadFile は拡張子に応じて YAML または TOML の設定ファイルを読み込む
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
	}

	c.Phases = nil
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		return fmt.Errorf("未対応の設定ファイル形式: %s", path)
	}
	if err != nil {
		return fmt.Errorf("設定ファイルの解析に失敗: %s: %w", path, err)
	}

	c.Phases = mergePhases(defaultPhases(), c.Phases)
	return nil
}

// mergePhases はファイルで指定されたフェーズで既定値を上書きする
func mergePhases(defaults, overrides []PhaseConfig) []PhaseConfig {
	merged := make([]PhaseConfig, 0, len(defaults)+len(overrides))
	index := make(map[string]int)
	for _, p := range defaults {
		index[p.Name] = len(merged)
		merged = append(merged, p)
	}

	for _, p := range overrides {
		i, ok := index[p.Name]
		if !ok {
			// 未知のフェーズ名は Validate で検出する
			merged = append(merged, p)
			continue
		}
		if p.Timeout == 0 {
			p.Timeout = merged[i].Timeout
		}
		merged[i] = p
	}
	return merged
}

// applyEnv は環境変数で設定を上書きする
func (c *Config) applyEnv() {
	c.Session.Python = getEnvOrDefault("MULTICAM_PYTHON", c.Session.Python)
	c.Session.ScriptsDir = getEnvOrDefault("MULTICAM_SCRIPTS_DIR", c.Session.ScriptsDir)
	c.Session.CameraCache = getEnvOrDefault("MULTICAM_CAMERA_CACHE", c.Session.CameraCache)
	c.History.DSN = getEnvOrDefault("MULTICAM_HISTORY", c.History.DSN)
	c.Server.Host = getEnvOrDefault("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsIntOrDefault("PORT", c.Server.Port)

	if targets := os.Getenv("MULTICAM_TIMECODE_TARGETS"); targets != "" {
		c.Timecode.Targets = splitList(targets)
		c.Timecode.Enabled = true
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("無効な設定値: %s (%s)", verrs[0].Namespace(), verrs[0].Tag())
		}
		return err
	}

	seen := make(map[string]bool)
	for _, p := range c.Phases {
		if seen[p.Name] {
			return fmt.Errorf("フェーズが重複しています: %s", p.Name)
		}
		seen[p.Name] = true

		if p.Disabled && requiredPhases[session.PhaseName(p.Name)] {
			return fmt.Errorf("必須フェーズは無効にできません: %s", p.Name)
		}
	}

	if c.Timecode.Enabled && len(c.Timecode.Targets) == 0 {
		return errors.New("タイムコードの送信先が設定されていません")
	}

	return nil
}

// Steps は設定からフェーズ表を作成する
// コマンドもスクリプトも無いフェーズは Executable が空のまま返す
func (c *Config) Steps() []session.Step {
	byName := make(map[string]PhaseConfig)
	for _, p := range c.Phases {
		byName[p.Name] = p
	}

	var steps []session.Step
	for _, name := range session.PhaseOrder {
		p, ok := byName[string(name)]
		if !ok || p.Disabled || name == session.PhaseWait {
			continue
		}

		step := session.Step{
			Phase:    name,
			Args:     p.Args,
			Required: requiredPhases[name],
			Timeout:  p.Timeout.Std(),
		}
		switch {
		case p.Command != "":
			step.Executable = p.Command
			if p.Script != "" {
				step.Script = c.scriptPath(p.Script)
			}
		case p.Script != "":
			step.Executable = c.Session.Python
			step.Script = c.scriptPath(p.Script)
		}
		steps = append(steps, step)
	}
	return steps
}

// ResolveSteps は設定のフェーズ表に scripts_dir の番号付きスクリプトを割り当てる
// スクリプトのパスは work_dir を基準にした絶対パスになる
func (c *Config) ResolveSteps(ctx context.Context) ([]session.Step, scripts.Binding, error) {
	steps := c.Steps()
	if c.Session.ScriptsDir == "" {
		return steps, scripts.Binding{}, nil
	}

	binding, err := scripts.Discover(ctx, c.ResolvePath(c.Session.ScriptsDir))
	if err != nil {
		return nil, scripts.Binding{}, err
	}
	return binding.Apply(steps, c.Session.Python), binding, nil
}

func (c *Config) scriptPath(script string) string {
	if !filepath.IsAbs(script) && c.Session.ScriptsDir != "" {
		script = filepath.Join(c.Session.ScriptsDir, script)
	}
	return c.ResolvePath(script)
}

// BaseDir はステップを実行するディレクトリの絶対パスを返す。work_dir が空なら空文字
func (c *Config) BaseDir() (string, error) {
	if c.Session.WorkDir == "" {
		return "", nil
	}
	dir, err := filepath.Abs(c.Session.WorkDir)
	if err != nil {
		return "", fmt.Errorf("作業ディレクトリを解決できません: %w", err)
	}
	return dir, nil
}

// ResolvePath は相対パスを work_dir（空ならカレント）基準の絶対パスにする
func (c *Config) ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if c.Session.WorkDir != "" {
		path = filepath.Join(c.Session.WorkDir, path)
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// CameraCachePath は discover ステップが書き出すカメラキャッシュのパスを返す
func (c *Config) CameraCachePath() string {
	path := c.Session.CameraCache
	if path == "" {
		path = camera.DefaultCachePath
	}
	return c.ResolvePath(path)
}

// TimecodeTargets は送信先をポート付きで返す
func (c *Config) TimecodeTargets() []string {
	targets := make([]string, 0, len(c.Timecode.Targets))
	for _, t := range c.Timecode.Targets {
		targets = append(targets, timecode.NormalizeTarget(t))
	}
	return targets
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
