package parser

import (
	"strings"
	"time"

	"github.com/studytask/taskparse/internal/models"
)

// priorityOrder fixes the scan order so keyword ties resolve toward the
// more urgent label
var priorityOrder = []models.Priority{
	models.PriorityHigh,
	models.PriorityMedium,
	models.PriorityLow,
}

// ExtractPriority combines two independent signals: keyword matching and
// a date-derived urgency lookup (computed only when a due date is found
// in the text). Whichever signal reports the higher confidence wins; on a
// tie the keyword signal is preferred since it is an explicit statement
// by the user. With no signal at all the default is low priority at base
// confidence.
func (p *Parser) ExtractPriority(text string) models.Field[models.Priority] {
	keyword := p.keywordPriority(text)
	dateDerived := p.dateDerivedPriority(text)

	switch {
	case keyword.Set && dateDerived.Set:
		if dateDerived.Confidence > keyword.Confidence {
			return dateDerived
		}
		return keyword
	case keyword.Set:
		return keyword
	case dateDerived.Set:
		return dateDerived
	default:
		return models.NewField(models.PriorityLow, p.vocab.Confidence.Base)
	}
}

func (p *Parser) keywordPriority(text string) models.Field[models.Priority] {
	best := models.AbsentField[models.Priority]()
	for _, priority := range priorityOrder {
		matches := 0
		for _, keyword := range p.vocab.PriorityKeywords[priority] {
			if strings.Contains(text, keyword) {
				matches++
			}
		}
		score := p.vocab.Confidence.KeywordScore(matches)
		if score > best.Confidence {
			best = models.NewField(priority, score)
		}
	}
	return best
}

func (p *Parser) dateDerivedPriority(text string) models.Field[models.Priority] {
	dateMatch := p.ExtractDate(text)
	if dateMatch == nil {
		return models.AbsentField[models.Priority]()
	}

	now := p.now()
	due, err := time.ParseInLocation(models.DateFormat, dateMatch.Date, now.Location())
	if err != nil {
		return models.AbsentField[models.Priority]()
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	days := int(due.Sub(today).Hours() / 24)

	level := p.vocab.UrgencyFor(days)
	return models.NewField(level.Priority, level.Confidence)
}
