package scripts

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"multicam/internal/session"
)

var scriptPattern = regexp.MustCompile(`^(\d{2})\..*\.py$`)

// Script は番号付きスクリプト1つを表す
type Script struct {
	Prefix int    // 先頭の番号
	Name   string // ファイル名
	Path   string // ディレクトリを含むパス
}

// phaseByPrefix は番号とフェーズの対応
var phaseByPrefix = map[int]session.PhaseName{
	1:  session.PhaseDiscover,
	2:  session.PhaseStart,
	3:  session.PhaseStop,
	4:  session.PhaseCopy,
	6:  session.PhaseSync,
	99: session.PhasePowerOff,
}

// preferred は同じ番号のスクリプトが複数ある場合に優先する名前の一部
var preferred = map[session.PhaseName]string{
	session.PhaseStop: "all",
	session.PhaseCopy: "last",
}

// Scan はディレクトリ内の番号付きスクリプトを番号順に返す
func Scan(ctx context.Context, dir string) ([]Script, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.py"))
	if err != nil {
		return nil, fmt.Errorf("スクリプトのスキャンに失敗: %w", err)
	}

	var scripts []Script
	for _, match := range matches {
		// コンテキストのキャンセルをチェック
		select {
		case <-ctx.Done():
			return scripts, ctx.Err()
		default:
		}

		name := filepath.Base(match)
		prefix, ok := extractPrefix(name)
		if !ok {
			continue
		}
		scripts = append(scripts, Script{Prefix: prefix, Name: name, Path: match})
	}

	// 番号でソート
	sort.SliceStable(scripts, func(i, j int) bool {
		if scripts[i].Prefix != scripts[j].Prefix {
			return scripts[i].Prefix < scripts[j].Prefix
		}
		return scripts[i].Name < scripts[j].Name
	})

	return scripts, nil
}

// extractPrefix はファイル名から番号を抽出する
func extractPrefix(name string) (int, bool) {
	matches := scriptPattern.FindStringSubmatch(name)
	if len(matches) < 2 {
		return 0, false
	}

	num, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, false
	}

	return num, true
}

// Binding はフェーズへのスクリプト割り当て結果
type Binding struct {
	Phases     map[session.PhaseName]Script
	Alternates []Script // 同じ番号で選ばれなかったスクリプト
	Ignored    []Script // フェーズに対応しない番号のスクリプト
}

// Bind はスキャン結果をフェーズに割り当てる
func Bind(scripts []Script) Binding {
	b := Binding{Phases: make(map[session.PhaseName]Script)}

	for _, s := range scripts {
		phase, ok := phaseByPrefix[s.Prefix]
		if !ok {
			b.Ignored = append(b.Ignored, s)
			continue
		}

		current, exists := b.Phases[phase]
		if !exists {
			b.Phases[phase] = s
			continue
		}

		if better(phase, s, current) {
			b.Phases[phase] = s
			b.Alternates = append(b.Alternates, current)
		} else {
			b.Alternates = append(b.Alternates, s)
		}
	}

	return b
}

// better は candidate が current より優先されるかを返す
func better(phase session.PhaseName, candidate, current Script) bool {
	hint, ok := preferred[phase]
	if !ok {
		return false
	}
	return containsWord(candidate.Name, hint) && !containsWord(current.Name, hint)
}

func containsWord(name, word string) bool {
	return strings.Contains(strings.ToLower(name), word)
}

// Apply はコマンド未設定のステップにスクリプトを割り当てる
func (b Binding) Apply(steps []session.Step, python string) []session.Step {
	result := make([]session.Step, len(steps))
	for i, step := range steps {
		result[i] = step
		if step.Executable != "" {
			continue
		}
		s, ok := b.Phases[step.Phase]
		if !ok {
			continue
		}
		result[i].Executable = python
		result[i].Script = s.Path
	}
	return result
}

// Discover はディレクトリをスキャンして割り当て結果を返す
func Discover(ctx context.Context, dir string) (Binding, error) {
	scripts, err := Scan(ctx, dir)
	if err != nil {
		return Binding{}, err
	}
	return Bind(scripts), nil
}
