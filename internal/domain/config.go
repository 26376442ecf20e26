package domain

import "fmt"

// Mode selects which backend serves a generate call.
type Mode string

const (
	ModeOnline  Mode = "online"
	ModeOffline Mode = "offline"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeOnline || m == ModeOffline
}

// ModelParameters holds generation parameters for a backend call.
// Construct through NewModelParameters so invalid values are rejected at
// creation rather than at use.
type ModelParameters struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// NewModelParameters validates and returns a parameter set.
func NewModelParameters(temperature float64, topK int, topP float64, maxOutputTokens int) (ModelParameters, error) {
	p := ModelParameters{
		Temperature:     temperature,
		TopK:            topK,
		TopP:            topP,
		MaxOutputTokens: maxOutputTokens,
	}
	if err := p.Validate(); err != nil {
		return ModelParameters{}, err
	}
	return p, nil
}

// Validate checks every parameter range.
func (p ModelParameters) Validate() error {
	if p.Temperature < 0 || p.Temperature > 2 {
		return fmt.Errorf("%w: temperature %v outside [0, 2]", ErrInvalidInput, p.Temperature)
	}
	if p.TopK <= 0 {
		return fmt.Errorf("%w: topK %d must be > 0", ErrInvalidInput, p.TopK)
	}
	if p.TopP < 0 || p.TopP > 1 {
		return fmt.Errorf("%w: topP %v outside [0, 1]", ErrInvalidInput, p.TopP)
	}
	if p.MaxOutputTokens <= 0 {
		return fmt.Errorf("%w: maxOutputTokens %d must be > 0", ErrInvalidInput, p.MaxOutputTokens)
	}
	return nil
}

// AiConfiguration is a point-in-time configuration snapshot. Workflows read
// one snapshot per invocation and never observe changes mid-workflow.
type AiConfiguration struct {
	Mode   Mode            `json:"mode"`
	Params ModelParameters `json:"modelParameters"`
}

// Validate checks the mode and parameter ranges.
func (c AiConfiguration) Validate() error {
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, string(c.Mode))
	}
	return c.Params.Validate()
}
