package llm

import (
	"fmt"
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// LengthOracle decides whether a prompt fits an input budget measured in
// tokens. A prompt fits when its token count is strictly below budget.
type LengthOracle interface {
	Fits(prompt string, budget int) bool
}

// Budget describes the model's context window and how much of it is
// reserved for the completion.
type Budget struct {
	ContextWindow   int
	MaxOutputTokens int
}

// Input returns the tokens available for the prompt.
func (b Budget) Input() int {
	return b.ContextWindow - b.MaxOutputTokens
}

func (b Budget) Validate() error {
	if b.ContextWindow <= 0 {
		return fmt.Errorf("context window must be positive, got %d", b.ContextWindow)
	}
	if b.MaxOutputTokens < 0 || b.MaxOutputTokens >= b.ContextWindow {
		return fmt.Errorf("max output tokens %d must be in [0, %d)", b.MaxOutputTokens, b.ContextWindow)
	}
	return nil
}

var loaderOnce sync.Once

// TiktokenOracle counts tokens with a BPE encoding. Encodings are loaded
// from the bundled offline loader so no network access is needed.
type TiktokenOracle struct {
	enc *tiktoken.Tiktoken
}

func NewTiktokenOracle(encoding string) (*TiktokenOracle, error) {
	loaderOnce.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %q: %w", encoding, err)
	}
	return &TiktokenOracle{enc: enc}, nil
}

func (o *TiktokenOracle) Count(prompt string) int {
	return len(o.enc.Encode(prompt, nil, nil))
}

func (o *TiktokenOracle) Fits(prompt string, budget int) bool {
	return o.Count(prompt) < budget
}

// RuneOracle estimates four characters per token.
type RuneOracle struct{}

func (RuneOracle) Count(prompt string) int {
	return (utf8.RuneCountInString(prompt) + 3) / 4
}

func (o RuneOracle) Fits(prompt string, budget int) bool {
	return o.Count(prompt) < budget
}

// OracleFunc adapts a token counting function to LengthOracle.
type OracleFunc func(prompt string) int

func (f OracleFunc) Fits(prompt string, budget int) bool {
	return f(prompt) < budget
}

// NewOracle returns a tiktoken oracle for encoding, or RuneOracle when
// encoding is empty.
func NewOracle(encoding string) (LengthOracle, error) {
	if encoding == "" {
		return RuneOracle{}, nil
	}
	return NewTiktokenOracle(encoding)
}
