package llm

import "errors"

var (
	// ErrContextOverflow is returned when a prompt cannot be made to fit the
	// model's input budget.
	ErrContextOverflow = errors.New("prompt exceeds model context budget")

	// ErrGeneration wraps a failed or empty completion.
	ErrGeneration = errors.New("generation failed")

	// ErrEmbedding wraps a failed embedding request.
	ErrEmbedding = errors.New("embedding failed")
)
