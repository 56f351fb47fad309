// Package tokenize defines the boundary to the external morphological
// tokenizer. The pipeline only needs ordered (surface, part-of-speech)
// pairs to weight candidate title tokens, so the interface stays minimal
// and a heuristic script-boundary segmenter serves as the fallback when
// no external tokenizer is wired in.
package tokenize

import "unicode"

// POS is a coarse part-of-speech class
type POS string

const (
	POSNoun      POS = "noun"
	POSVerb      POS = "verb"
	POSAdjective POS = "adjective"
	POSAdverb    POS = "adverb"
	POSParticle  POS = "particle"
	POSAuxiliary POS = "auxiliary"
	POSOther     POS = "other"
)

// TitleWeight returns the weight of this class for title token scoring.
// Nouns carry the most signal, then adjectives and adverbs.
func (p POS) TitleWeight() float64 {
	switch p {
	case POSNoun:
		return 1.0
	case POSAdjective:
		return 0.8
	case POSAdverb:
		return 0.6
	default:
		return 0.4
	}
}

// Token is one surface form with its part-of-speech class
type Token struct {
	Surface string
	POS     POS
}

// Tokenizer produces an ordered token sequence for a text
type Tokenizer interface {
	Tokenize(text string) []Token
}

// ScriptSegmenter is the fallback tokenizer. It splits text at script
// boundaries (kanji, hiragana, katakana, latin, digit) and tags kanji,
// katakana, latin, and digit runs as nouns. Hiragana runs are tagged as
// particles since in short task texts they are mostly grammatical glue.
type ScriptSegmenter struct{}

type script int

const (
	scriptOther script = iota
	scriptKanji
	scriptHiragana
	scriptKatakana
	scriptLatin
	scriptDigit
)

func classify(r rune) script {
	switch {
	case unicode.In(r, unicode.Han):
		return scriptKanji
	case unicode.In(r, unicode.Hiragana):
		return scriptHiragana
	case unicode.In(r, unicode.Katakana) || r == 'ー':
		return scriptKatakana
	case unicode.IsLetter(r):
		return scriptLatin
	case unicode.IsDigit(r):
		return scriptDigit
	default:
		return scriptOther
	}
}

func posFor(s script) POS {
	switch s {
	case scriptKanji, scriptKatakana, scriptLatin, scriptDigit:
		return POSNoun
	case scriptHiragana:
		return POSParticle
	default:
		return POSOther
	}
}

// Tokenize splits the text into script runs
func (t ScriptSegmenter) Tokenize(text string) []Token {
	var tokens []Token
	var run []rune
	current := scriptOther

	flush := func() {
		if len(run) == 0 {
			return
		}
		if current != scriptOther {
			tokens = append(tokens, Token{Surface: string(run), POS: posFor(current)})
		}
		run = run[:0]
	}

	for _, r := range text {
		s := classify(r)
		if s != current {
			flush()
			current = s
		}
		run = append(run, r)
	}
	flush()

	return tokens
}
