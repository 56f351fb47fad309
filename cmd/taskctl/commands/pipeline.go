package commands

import (
	"fmt"

	"github.com/studytask/taskparse/internal/extraction"
	"github.com/studytask/taskparse/internal/parser"
	"github.com/studytask/taskparse/internal/reconcile"
	"github.com/studytask/taskparse/internal/services/embedding"
	"github.com/studytask/taskparse/internal/services/inference"
	"github.com/studytask/taskparse/internal/tokenize"
	"github.com/studytask/taskparse/internal/vocab"
)

// buildOfflinePipeline assembles an extraction pipeline that needs no
// external services: the n-gram provider plus an optional word-vector
// model file. Used by the extract and eval commands.
func buildOfflinePipeline(vocabPath, wordVecPath string) (*extraction.Pipeline, error) {
	v, err := vocab.Load(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load vocabulary: %w", err)
	}

	tokenizer := tokenize.ScriptSegmenter{}

	factories := map[string]embedding.Factory{
		"ngram": embedding.NewNGramFactory(),
	}
	if wordVecPath != "" {
		factories["wordvec"] = embedding.NewWordVecFactory(wordVecPath, tokenizer)
	}

	ensemble := embedding.NewEnsemble(v, factories)
	analyzer := inference.New(ensemble, v, inference.WithTokenizer(tokenizer))

	return extraction.New(
		parser.New(v),
		reconcile.New(v),
		extraction.WithAnalyzer(analyzer),
	), nil
}
