// Package refdata generates labelled sample texts for evaluating the
// extraction pipeline. Samples combine task-type, deadline and action
// phrases into category- and priority-specific templates, so each text
// carries known ground-truth labels.
package refdata

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strings"

	"github.com/studytask/taskparse/internal/models"
)

// Labels is the ground truth attached to one generated sample
type Labels struct {
	Category       string          `json:"category"`
	Priority       models.Priority `json:"priority"`
	DeadlinePhrase string          `json:"deadline_phrase"`
}

// Sample is one labelled input text
type Sample struct {
	Text   string `json:"text"`
	Labels Labels `json:"labels"`
}

// template holds the phrase patterns for one category and priority.
// Placeholders {task}, {deadline} and {action} are substituted at
// generation time.
var templates = map[string]map[models.Priority][]string{
	"数学": {
		models.PriorityHigh: {
			"数学の{task}を{deadline}までに急いで{action}",
			"緊急：{deadline}までの数学の{task}",
			"{deadline}締切の数学{task}、最優先で{action}",
		},
		models.PriorityMedium: {
			"数学の{task}を{deadline}までに{action}",
			"{deadline}までの数学{task}",
		},
		models.PriorityLow: {
			"余裕のある数学の{task}、{deadline}まで",
			"{deadline}の数学{task}、後でいい",
		},
	},
	"統計学": {
		models.PriorityHigh: {
			"統計の{task}、{deadline}までに急いで{action}",
			"優先度高：{deadline}の統計{task}",
		},
		models.PriorityMedium: {
			"統計の{task}を{deadline}までに{action}",
			"{deadline}の統計{task}",
		},
		models.PriorityLow: {
			"統計の{task}、{deadline}まで余裕あり",
			"ゆっくりでいい統計{task}、{deadline}まで",
		},
	},
	"機械学習": {
		models.PriorityHigh: {
			"機械学習の{task}を{deadline}までに急いで{action}",
			"緊急：{deadline}までの機械学習{task}",
		},
		models.PriorityMedium: {
			"機械学習の{task}を{deadline}までに{action}",
			"{deadline}の機械学習{task}",
		},
		models.PriorityLow: {
			"機械学習の{task}、{deadline}まで余裕あり",
			"{deadline}の機械学習{task}、後でいい",
		},
	},
	"理論": {
		models.PriorityHigh: {
			"理論の{task}を{deadline}までに急いで{action}",
			"緊急：{deadline}までの理論{task}",
		},
		models.PriorityMedium: {
			"理論の{task}を{deadline}までに{action}",
			"{deadline}の理論{task}",
		},
		models.PriorityLow: {
			"理論の{task}、{deadline}まで余裕あり",
			"{deadline}の理論{task}、後でいい",
		},
	},
	"プログラミング": {
		models.PriorityHigh: {
			"プログラミングの{task}を{deadline}までに急いで{action}",
			"緊急：{deadline}までのプログラミング{task}",
		},
		models.PriorityMedium: {
			"プログラミングの{task}を{deadline}までに{action}",
			"{deadline}のプログラミング{task}",
		},
		models.PriorityLow: {
			"プログラミングの{task}、{deadline}まで余裕あり",
			"{deadline}のプログラミング{task}、後でいい",
		},
	},
}

var taskTypes = []string{
	"レポート", "課題", "宿題", "テスト", "演習",
	"プリント", "問題集", "中間試験", "期末試験",
}

var deadlines = []string{
	"今日", "明日", "明後日", "今週末", "来週",
	"今月末", "3日後", "一週間後", "2週間後",
}

var actions = []string{
	"終わらせる", "完了する", "提出する",
	"仕上げる", "完成させる", "片付ける",
}

var priorities = []models.Priority{
	models.PriorityHigh, models.PriorityMedium, models.PriorityLow,
}

// Generator produces labelled samples from the built-in templates
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator seeded for reproducible output
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Generate returns n labelled samples drawn uniformly over categories,
// priorities and phrase combinations
func (g *Generator) Generate(n int) []Sample {
	categories := make([]string, 0, len(templates))
	for category := range templates {
		categories = append(categories, category)
	}
	// map iteration order is random; sort for reproducibility under a seed
	sort.Strings(categories)

	samples := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		category := categories[g.rng.Intn(len(categories))]
		priority := priorities[g.rng.Intn(len(priorities))]
		deadline := deadlines[g.rng.Intn(len(deadlines))]

		patterns := templates[category][priority]
		pattern := patterns[g.rng.Intn(len(patterns))]

		text := strings.NewReplacer(
			"{task}", taskTypes[g.rng.Intn(len(taskTypes))],
			"{deadline}", deadline,
			"{action}", actions[g.rng.Intn(len(actions))],
		).Replace(pattern)

		samples = append(samples, Sample{
			Text: text,
			Labels: Labels{
				Category:       category,
				Priority:       priority,
				DeadlinePhrase: deadline,
			},
		})
	}
	return samples
}

// Split partitions samples into training and evaluation sets. ratio is
// the training fraction; samples are shuffled first.
func (g *Generator) Split(samples []Sample, ratio float64) (train, eval []Sample) {
	shuffled := make([]Sample, len(samples))
	copy(shuffled, samples)
	g.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	split := int(float64(len(shuffled)) * ratio)
	return shuffled[:split], shuffled[split:]
}

// Save writes samples as indented JSON
func Save(samples []Sample, path string) error {
	data, err := json.MarshalIndent(samples, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal samples: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write samples: %w", err)
	}
	return nil
}

// LoadFile reads samples previously written by Save
func LoadFile(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read samples: %w", err)
	}
	var samples []Sample
	if err := json.Unmarshal(data, &samples); err != nil {
		return nil, fmt.Errorf("failed to parse samples: %w", err)
	}
	return samples, nil
}
