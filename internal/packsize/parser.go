package packsize

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/frostline/frostline-backend/pkg/logger"
)

type pattern struct {
	name string
	re   *regexp.Regexp
	// weight turns the submatches into a total case weight in pounds.
	weight func(m []string) (float64, bool)
}

const number = `(\d+(?:\.\d+)?)`

// Patterns are tried in order and the first match wins, so the multi-pack
// forms must come before the bare weight form.
var patterns = []pattern{
	{
		name:   "count_slash_weight",
		re:     regexp.MustCompile(`(?i)` + number + `\s*/\s*` + number + `\s*LBS?\b`),
		weight: product,
	},
	{
		name:   "count_x_weight",
		re:     regexp.MustCompile(`(?i)` + number + `\s*[x×]\s*` + number + `\s*LBS?\b`),
		weight: product,
	},
	{
		name:   "single_weight",
		re:     regexp.MustCompile(`(?i)` + number + `\s*LBS?\b`),
		weight: single,
	},
	{
		name:   "count_dash_pound_sign",
		re:     regexp.MustCompile(`(?i)` + number + `\s*-\s*` + number + `\s*#`),
		weight: product,
	},
}

// ParseSync extracts the total case weight in pounds from a pack-size string.
// It returns nil for empty or unrecognized input; that is not an error.
func ParseSync(packSize string) *float64 {
	text := strings.TrimSpace(packSize)
	if text == "" {
		return nil
	}
	for _, p := range patterns {
		m := p.re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if w, ok := p.weight(m); ok && w > 0 {
			return &w
		}
		return nil
	}
	return nil
}

func product(m []string) (float64, bool) {
	count, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	each, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return 0, false
	}
	return count * each, true
}

func single(m []string) (float64, bool) {
	w, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return w, true
}

// Interpreter resolves pack sizes the patterns cannot read, typically by asking an AI model.
type Interpreter interface {
	Enabled() bool
	InterpretPackSize(ctx context.Context, userID, packSize, description string) (*float64, error)
}

// Parser combines the deterministic patterns with an optional interpreter fallback.
type Parser struct {
	interpreter Interpreter
	logg        *logger.Logger
}

// NewParser builds a parser. interpreter may be nil.
func NewParser(interpreter Interpreter, logg *logger.Logger) *Parser {
	return &Parser{interpreter: interpreter, logg: logg}
}

// Result describes how a case weight was resolved.
type Result struct {
	WeightLbs   *float64 `json:"case_weight_lbs"`
	AIAssisted  bool     `json:"ai_assisted"`
	Unparseable bool     `json:"unparseable"`
}

// Parse runs the patterns first. Only when they fail and a description is present
// is the interpreter asked, once. Interpreter errors resolve to an unparseable result.
func (p *Parser) Parse(ctx context.Context, userID, packSize, description string) Result {
	if w := ParseSync(packSize); w != nil {
		return Result{WeightLbs: w}
	}
	if p == nil || p.interpreter == nil || !p.interpreter.Enabled() || strings.TrimSpace(description) == "" {
		return Result{Unparseable: true}
	}

	w, err := p.interpreter.InterpretPackSize(ctx, userID, packSize, description)
	if err != nil {
		if p.logg != nil {
			warnCtx := p.logg.WithFields(ctx, map[string]any{"pack_size": packSize, "error": err.Error()})
			p.logg.Warn(warnCtx, "packsize.interpret.failed")
		}
		return Result{Unparseable: true}
	}
	if w == nil || *w <= 0 {
		return Result{Unparseable: true}
	}
	return Result{WeightLbs: w, AIAssisted: true}
}
