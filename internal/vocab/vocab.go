// Package vocab holds the reference data the extraction pipeline decides
// against: category and priority keyword sets, the urgency-level table,
// confidence constants, ensemble weights, and the title-cleanup rules.
//
// The compiled-in defaults match the product vocabulary. A YAML file can
// override or extend them (see Load), so locales can add keywords and
// cleanup rules without a rebuild.
package vocab

import (
	"fmt"
	"os"

	"github.com/studytask/taskparse/internal/models"
	"gopkg.in/yaml.v3"
)

// Confidence holds the scoring constants used across the pipeline.
// These are passed explicitly into the ensemble and reconciler at
// construction so tests can vary thresholds deterministically.
type Confidence struct {
	// Base is the confidence assigned to a single keyword match
	Base float64 `yaml:"base"`
	// Increment is added per additional distinct keyword match
	Increment float64 `yaml:"increment"`
	// Max caps any confidence score
	Max float64 `yaml:"max"`
	// Threshold is the minimum confidence to accept an AI-derived value
	Threshold float64 `yaml:"threshold"`
	// TitleBase is the fixed confidence for rule-based title generation
	TitleBase float64 `yaml:"title_base"`
}

// UrgencyLevel maps a band of days-until-due to a recommended priority.
// Levels are scanned in ascending order of MaxDays; the final level has
// Unbounded set and catches everything else.
type UrgencyLevel struct {
	Name       string          `yaml:"name"`
	MaxDays    int             `yaml:"max_days"`
	Unbounded  bool            `yaml:"unbounded"`
	Priority   models.Priority `yaml:"priority"`
	Confidence float64         `yaml:"confidence"`
}

// CleanupRule is one step of the title-cleanup cascade. Position controls
// where the pattern is removed: "prefix", "suffix", or "anywhere"
// (replaced by a space). An empty position applies all three, suffix and
// prefix first, the way the cascade originally worked.
type CleanupRule struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
	Position    string `yaml:"position"`
}

// Vocabulary bundles all reference data for one pipeline instance
type Vocabulary struct {
	CategoryKeywords map[string][]string          `yaml:"category_keywords"`
	PriorityKeywords map[models.Priority][]string `yaml:"priority_keywords"`
	UrgencyLevels    []UrgencyLevel               `yaml:"urgency_levels"`
	Confidence       Confidence                   `yaml:"confidence"`
	TitleRules       []CleanupRule                `yaml:"title_rules"`
	// DeadlinePhrases maps a deadline reference phrase to days-from-now,
	// used by the ensemble's semantic deadline estimation
	DeadlinePhrases map[string]int `yaml:"deadline_phrases"`
	// EnsembleWeights maps provider id to its weight; must sum to 1.0
	// under normal operation (renormalized over loaded providers at runtime)
	EnsembleWeights map[string]float64 `yaml:"ensemble_weights"`
}

// Default returns the compiled-in vocabulary
func Default() *Vocabulary {
	return &Vocabulary{
		CategoryKeywords: map[string][]string{
			"数学":      {"計算", "数式", "証明", "微分", "積分", "代数", "幾何"},
			"統計学":     {"統計", "確率", "分布", "標本", "検定", "推定"},
			"機械学習":    {"ML", "AI", "学習", "モデル", "予測", "分類"},
			"理論":      {"理論", "原理", "定理", "公理", "法則"},
			"プログラミング": {"コード", "プログラム", "開発", "実装", "デバッグ"},
		},
		PriorityKeywords: map[models.Priority][]string{
			models.PriorityHigh:   {"重要", "急ぎ", "必須", "絶対", "今すぐ", "即時"},
			models.PriorityMedium: {"なるべく", "できれば", "そろそろ", "近いうち"},
			models.PriorityLow:    {"余裕", "時間がある", "ゆっくり"},
		},
		UrgencyLevels: []UrgencyLevel{
			{Name: "今日・明日まで", MaxDays: 1, Priority: models.PriorityHigh, Confidence: 1.0},
			{Name: "一週間以内", MaxDays: 7, Priority: models.PriorityHigh, Confidence: 0.9},
			{Name: "二週間以内", MaxDays: 14, Priority: models.PriorityMedium, Confidence: 0.7},
			{Name: "余裕あり", Unbounded: true, Priority: models.PriorityLow, Confidence: 0.5},
		},
		Confidence: Confidence{
			Base:      0.5,
			Increment: 0.1,
			Max:       1.0,
			Threshold: 0.3,
			TitleBase: 0.8,
		},
		TitleRules: []CleanupRule{
			// compound particles
			{Pattern: `(について|における|に関する|による|に向けて)`},
			// plain particles
			{Pattern: `(の|を|に|へ|で|から|まで|より)`},
			// suru-style verbs
			{Pattern: `(する|します|やる|行う|おこなう)`},
			// common action nouns
			{Pattern: `(提出|作成|実施|開始|完了|終了|準備)`},
			// filler nouns
			{Pattern: `(必要|要|予定|こと|もの)`},
			// copulas
			{Pattern: `(です|だ|である|になる)`},
		},
		DeadlinePhrases: map[string]int{
			"明日":  1,
			"明後日": 2,
			"今週中": 7,
			"来週":  7,
			"今月中": 30,
		},
		EnsembleWeights: map[string]float64{
			"wordvec": 0.4,
			"ngram":   0.35,
			"openai":  0.25,
		},
	}
}

// Load reads a YAML override file and merges it onto the defaults.
// Only populated sections replace the default; absent sections keep the
// compiled-in data. An empty path returns the defaults untouched.
func Load(path string) (*Vocabulary, error) {
	v := Default()
	if path == "" {
		return v, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read vocabulary file: %w", err)
	}

	var override Vocabulary
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse vocabulary file: %w", err)
	}

	v.merge(&override)
	if err := v.validate(); err != nil {
		return nil, fmt.Errorf("invalid vocabulary file %s: %w", path, err)
	}
	return v, nil
}

func (v *Vocabulary) merge(o *Vocabulary) {
	if len(o.CategoryKeywords) > 0 {
		v.CategoryKeywords = o.CategoryKeywords
	}
	if len(o.PriorityKeywords) > 0 {
		v.PriorityKeywords = o.PriorityKeywords
	}
	if len(o.UrgencyLevels) > 0 {
		v.UrgencyLevels = o.UrgencyLevels
	}
	if o.Confidence != (Confidence{}) {
		v.Confidence = o.Confidence
	}
	if len(o.TitleRules) > 0 {
		v.TitleRules = o.TitleRules
	}
	if len(o.DeadlinePhrases) > 0 {
		v.DeadlinePhrases = o.DeadlinePhrases
	}
	if len(o.EnsembleWeights) > 0 {
		v.EnsembleWeights = o.EnsembleWeights
	}
}

func (v *Vocabulary) validate() error {
	for category := range v.CategoryKeywords {
		if !models.ValidCategory(category) {
			return fmt.Errorf("unknown category %q in keyword map", category)
		}
	}
	for priority := range v.PriorityKeywords {
		if !priority.Valid() {
			return fmt.Errorf("unknown priority %q in keyword map", priority)
		}
	}
	if len(v.UrgencyLevels) == 0 {
		return fmt.Errorf("urgency_levels must not be empty")
	}
	last := v.UrgencyLevels[len(v.UrgencyLevels)-1]
	if !last.Unbounded {
		return fmt.Errorf("final urgency level must be unbounded")
	}
	for i, level := range v.UrgencyLevels {
		if !level.Priority.Valid() {
			return fmt.Errorf("urgency level %d has invalid priority %q", i, level.Priority)
		}
	}
	return nil
}

// UrgencyFor returns the first urgency level whose upper bound covers the
// given days-until-due, scanned in ascending order of bound. The final
// unbounded level catches everything, so a level is always found.
func (v *Vocabulary) UrgencyFor(daysUntilDue int) UrgencyLevel {
	for _, level := range v.UrgencyLevels {
		if level.Unbounded || daysUntilDue <= level.MaxDays {
			return level
		}
	}
	return v.UrgencyLevels[len(v.UrgencyLevels)-1]
}

// KeywordScore implements the shared confidence formula
// min(Base + matches*Increment, Max) for a count of distinct keyword
// matches. Zero matches yields zero confidence.
func (c Confidence) KeywordScore(matches int) float64 {
	if matches <= 0 {
		return 0
	}
	score := c.Base + float64(matches)*c.Increment
	if score > c.Max {
		return c.Max
	}
	return score
}
