package parser

import (
	"regexp"
	"strings"

	"github.com/studytask/taskparse/internal/vocab"
)

// titleRule is one compiled step of the cleanup cascade
type titleRule struct {
	suffix      *regexp.Regexp
	prefix      *regexp.Regexp
	anywhere    *regexp.Regexp
	replacement string
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// trailing grammatical glue stripped after the cascade has run
var (
	trailingParticle = regexp.MustCompile(`(の|を|に|へ|で|が|は)$`)
	trailingVerb     = regexp.MustCompile(`(提出|作成|実施|開始|完了|終了|準備|する|やる|行う)$`)
)

// compileTitleRules turns the declarative vocabulary rules into compiled
// regexes. A rule with an explicit position compiles only that form; the
// default applies suffix, then prefix, then anywhere, which is the order
// the cascade needs so edge matches are removed before interior ones are
// blanked to spaces.
func compileTitleRules(rules []vocab.CleanupRule) []titleRule {
	compiled := make([]titleRule, 0, len(rules))
	for _, r := range rules {
		t := titleRule{replacement: r.Replacement}
		switch r.Position {
		case "prefix":
			t.prefix = regexp.MustCompile(`^\s*` + r.Pattern)
		case "suffix":
			t.suffix = regexp.MustCompile(r.Pattern + `\s*$`)
		case "anywhere":
			t.anywhere = regexp.MustCompile(r.Pattern)
		default:
			t.suffix = regexp.MustCompile(r.Pattern + `\s*$`)
			t.prefix = regexp.MustCompile(`^\s*` + r.Pattern)
			t.anywhere = regexp.MustCompile(r.Pattern)
		}
		compiled = append(compiled, t)
	}
	return compiled
}

// CleanTitle strips deadline phrases, particles, verb boilerplate, and
// filler nouns from the text, leaving the content words that make a
// usable title. Rules run in vocabulary order; interior matches are
// replaced by a space so separate content words do not fuse.
func (p *Parser) CleanTitle(text string) string {
	for _, rule := range p.titleRules {
		if rule.suffix != nil {
			text = rule.suffix.ReplaceAllString(text, rule.replacement)
		}
		if rule.prefix != nil {
			text = rule.prefix.ReplaceAllString(text, rule.replacement)
		}
		if rule.anywhere != nil {
			replacement := rule.replacement
			if replacement == "" {
				replacement = " "
			}
			text = rule.anywhere.ReplaceAllString(text, replacement)
		}
	}

	text = whitespaceRun.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	text = trailingParticle.ReplaceAllString(text, "")
	text = trailingVerb.ReplaceAllString(text, "")

	return strings.TrimSpace(text)
}
