package rules

import (
	_ "embed"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types/ref"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var embedded []byte

const (
	TableAssessment = "assessment"
	TableDifficulty = "difficulty"
	TableMastery    = "mastery"
	TableMaxSession = "max_session"
	TableBurnout    = "burnout"
	TableEngagement = "engagement"

	ModeAll   = "all"
	ModeFirst = "first"
)

type ruleSpec struct {
	Name string            `yaml:"name"`
	When string            `yaml:"when"`
	Emit map[string]string `yaml:"emit"`
}

type tableSpec struct {
	Name  string            `yaml:"name"`
	Mode  string            `yaml:"mode"`
	Vars  map[string]string `yaml:"vars"`
	Rules []ruleSpec        `yaml:"rules"`
}

type document struct {
	Tables []tableSpec `yaml:"tables"`
}

type compiledRule struct {
	name string
	when cel.Program
	emit map[string]cel.Program
}

type table struct {
	name  string
	mode  string
	vars  map[string]string
	rules []compiledRule
}

// Match is one rule that fired, with its emitted values.
type Match struct {
	Rule string
	Out  map[string]ref.Val
}

var (
	stringType  = reflect.TypeOf("")
	boolType    = reflect.TypeOf(false)
	int64Type   = reflect.TypeOf(int64(0))
	float64Type = reflect.TypeOf(float64(0))
	stringsType = reflect.TypeOf([]string{})
)

func (m Match) String(key string) string {
	v, ok := m.Out[key]
	if !ok {
		return ""
	}
	s, err := v.ConvertToNative(stringType)
	if err != nil {
		return ""
	}
	return s.(string)
}

func (m Match) Bool(key string) bool {
	v, ok := m.Out[key]
	if !ok {
		return false
	}
	b, err := v.ConvertToNative(boolType)
	if err != nil {
		return false
	}
	return b.(bool)
}

func (m Match) Int(key string) int {
	v, ok := m.Out[key]
	if !ok {
		return 0
	}
	i, err := v.ConvertToNative(int64Type)
	if err != nil {
		return 0
	}
	return int(i.(int64))
}

func (m Match) Float(key string) float64 {
	v, ok := m.Out[key]
	if !ok {
		return 0
	}
	f, err := v.ConvertToNative(float64Type)
	if err != nil {
		return 0
	}
	return f.(float64)
}

func (m Match) Strings(key string) []string {
	v, ok := m.Out[key]
	if !ok {
		return nil
	}
	l, err := v.ConvertToNative(stringsType)
	if err != nil {
		return nil
	}
	return l.([]string)
}

// Engine evaluates the compiled decision tables. It is safe for concurrent
// use; cel programs are stateless.
type Engine struct {
	tables map[string]*table
}

var (
	defaultOnce   sync.Once
	defaultEngine *Engine
	defaultErr    error
)

// Default compiles the embedded rules.yaml once.
func Default() (*Engine, error) {
	defaultOnce.Do(func() {
		defaultEngine, defaultErr = Compile(embedded)
	})
	return defaultEngine, defaultErr
}

func MustDefault() *Engine {
	e, err := Default()
	if err != nil {
		panic(err)
	}
	return e
}

// Compile parses and type-checks a rules document.
func Compile(data []byte) (*Engine, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	e := &Engine{tables: make(map[string]*table, len(doc.Tables))}
	for _, ts := range doc.Tables {
		t, err := compileTable(ts)
		if err != nil {
			return nil, err
		}
		if _, dup := e.tables[t.name]; dup {
			return nil, fmt.Errorf("duplicate table %s", t.name)
		}
		e.tables[t.name] = t
	}
	return e, nil
}

func celType(name string) (*cel.Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "bool":
		return cel.BoolType, nil
	case "int":
		return cel.IntType, nil
	case "double":
		return cel.DoubleType, nil
	case "string":
		return cel.StringType, nil
	default:
		return nil, fmt.Errorf("unsupported var type %q", name)
	}
}

func compileTable(ts tableSpec) (*table, error) {
	if strings.TrimSpace(ts.Name) == "" {
		return nil, fmt.Errorf("table missing name")
	}
	mode := ts.Mode
	if mode == "" {
		mode = ModeAll
	}
	if mode != ModeAll && mode != ModeFirst {
		return nil, fmt.Errorf("table %s: unknown mode %q", ts.Name, ts.Mode)
	}
	opts := make([]cel.EnvOption, 0, len(ts.Vars))
	for name, typ := range ts.Vars {
		ct, err := celType(typ)
		if err != nil {
			return nil, fmt.Errorf("table %s var %s: %w", ts.Name, name, err)
		}
		opts = append(opts, cel.Variable(name, ct))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("table %s: cel env: %w", ts.Name, err)
	}

	t := &table{name: ts.Name, mode: mode, vars: ts.Vars}
	for _, rs := range ts.Rules {
		when, err := compileExpr(env, rs.When, cel.BoolType)
		if err != nil {
			return nil, fmt.Errorf("table %s rule %s when: %w", ts.Name, rs.Name, err)
		}
		cr := compiledRule{name: rs.Name, when: when, emit: make(map[string]cel.Program, len(rs.Emit))}
		for key, expr := range rs.Emit {
			prg, err := compileExpr(env, expr, nil)
			if err != nil {
				return nil, fmt.Errorf("table %s rule %s emit %s: %w", ts.Name, rs.Name, key, err)
			}
			cr.emit[key] = prg
		}
		t.rules = append(t.rules, cr)
	}
	return t, nil
}

func compileExpr(env *cel.Env, expr string, want *cel.Type) (cel.Program, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("empty expression")
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	if want != nil && !ast.OutputType().IsExactType(want) {
		return nil, fmt.Errorf("expression %q yields %s, want %s", expr, ast.OutputType(), want)
	}
	return env.Program(ast)
}

// Eval runs a table against vars. Every declared var must be supplied.
func (e *Engine) Eval(tableName string, vars map[string]any) ([]Match, error) {
	t, ok := e.tables[tableName]
	if !ok {
		return nil, fmt.Errorf("unknown rule table %s", tableName)
	}
	act := make(map[string]any, len(vars))
	for name := range t.vars {
		v, ok := vars[name]
		if !ok {
			return nil, fmt.Errorf("table %s: missing var %s", tableName, name)
		}
		act[name] = normalize(v)
	}

	var out []Match
	for _, r := range t.rules {
		val, _, err := r.when.Eval(act)
		if err != nil {
			return nil, fmt.Errorf("table %s rule %s: %w", tableName, r.name, err)
		}
		if fired, _ := val.Value().(bool); !fired {
			continue
		}
		m := Match{Rule: r.name, Out: make(map[string]ref.Val, len(r.emit))}
		for key, prg := range r.emit {
			v, _, err := prg.Eval(act)
			if err != nil {
				return nil, fmt.Errorf("table %s rule %s emit %s: %w", tableName, r.name, key, err)
			}
			m.Out[key] = v
		}
		out = append(out, m)
		if t.mode == ModeFirst {
			break
		}
	}
	return out, nil
}

// First is Eval for single-answer tables.
func (e *Engine) First(tableName string, vars map[string]any) (Match, bool, error) {
	ms, err := e.Eval(tableName, vars)
	if err != nil || len(ms) == 0 {
		return Match{}, false, err
	}
	return ms[0], true, nil
}

// normalize widens Go numerics to the types cel expects.
func normalize(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int32:
		return int64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}
