package models

// Field is one extracted attribute paired with the confidence of the
// signal source that produced it. Confidence is a design-internal
// heuristic in [0,1], not a probability. Set is false when the source
// found nothing; absent fields always carry zero confidence.
type Field[T any] struct {
	Value      T       `json:"value"`
	Confidence float64 `json:"confidence"`
	Set        bool    `json:"set"`
}

// NewField returns a populated field
func NewField[T any](value T, confidence float64) Field[T] {
	return Field[T]{Value: value, Confidence: confidence, Set: true}
}

// AbsentField returns an empty field with zero confidence
func AbsentField[T any]() Field[T] {
	return Field[T]{}
}
