package embedding

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/studytask/taskparse/internal/tokenize"
)

// WordVecProviderID identifies the local word-vector provider
const WordVecProviderID = "wordvec"

// maxVocabSize caps how many rows of the vector file are loaded. Files
// shipped for this service are pre-trimmed to the study-task domain, so
// the cap only guards against someone pointing the config at a full
// general-purpose model.
const maxVocabSize = 500000

// WordVecProvider scores similarity with pretrained word vectors loaded
// from a text-format vector file (one word per line, space-separated
// components). A text span embeds as the mean of its token vectors.
type WordVecProvider struct {
	vectors   map[string][]float32
	dim       int
	tokenizer tokenize.Tokenizer
}

// NewWordVecFactory returns a factory that loads the vector file at
// path on first use
func NewWordVecFactory(path string, tokenizer tokenize.Tokenizer) Factory {
	return func() (Provider, error) {
		return LoadWordVectors(path, tokenizer)
	}
}

// LoadWordVectors reads a text-format vector file into memory.
// The optional header line ("<count> <dim>") is detected and skipped.
func LoadWordVectors(path string, tokenizer tokenize.Tokenizer) (*WordVecProvider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector file: %w", err)
	}
	defer func() { _ = f.Close() }()

	p := &WordVecProvider{
		vectors:   make(map[string][]float32),
		tokenizer: tokenizer,
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	first := true
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if first {
			first = false
			// header line is "<count> <dim>"
			if len(fields) == 2 {
				if _, err := strconv.Atoi(fields[0]); err == nil {
					continue
				}
			}
		}
		if len(fields) < 2 {
			continue
		}

		word := fields[0]
		vec := make([]float32, 0, len(fields)-1)
		for _, component := range fields[1:] {
			v, err := strconv.ParseFloat(component, 32)
			if err != nil {
				return nil, fmt.Errorf("malformed vector for %q: %w", word, err)
			}
			vec = append(vec, float32(v))
		}

		if p.dim == 0 {
			p.dim = len(vec)
		} else if len(vec) != p.dim {
			return nil, fmt.Errorf("vector for %q has dimension %d, expected %d", word, len(vec), p.dim)
		}

		p.vectors[word] = vec
		if len(p.vectors) >= maxVocabSize {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vector file: %w", err)
	}
	if len(p.vectors) == 0 {
		return nil, fmt.Errorf("vector file %s contains no vectors", path)
	}
	return p, nil
}

// ID implements Provider
func (p *WordVecProvider) ID() string { return WordVecProviderID }

// VocabSize returns how many word vectors are loaded
func (p *WordVecProvider) VocabSize() int { return len(p.vectors) }

// Embed returns the mean vector of the tokens found in the vocabulary.
// A span with no known tokens yields ErrDegenerateVector.
func (p *WordVecProvider) Embed(_ context.Context, text string) ([]float32, error) {
	mean := make([]float32, p.dim)
	found := 0
	for _, token := range p.tokenizer.Tokenize(text) {
		vec, ok := p.vectors[token.Surface]
		if !ok {
			continue
		}
		for i, v := range vec {
			mean[i] += v
		}
		found++
	}
	if found == 0 {
		return nil, fmt.Errorf("%w: no known tokens in %q", ErrDegenerateVector, text)
	}
	for i := range mean {
		mean[i] /= float32(found)
	}
	return mean, nil
}

// Similarity implements Provider as cosine similarity of the mean vectors
func (p *WordVecProvider) Similarity(ctx context.Context, a, b string) (float64, error) {
	va, err := p.Embed(ctx, a)
	if err != nil {
		return 0, err
	}
	vb, err := p.Embed(ctx, b)
	if err != nil {
		return 0, err
	}
	return CosineSimilarity(va, vb), nil
}
