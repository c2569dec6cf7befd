package dto

import (
	"encoding/json"
	"strings"

	"github.com/caseforge/drillapi/internal/apperr"
)

// Response payload kinds. The payload is a tagged union: exactly the fields
// for the declared kind may be set, validated at the boundary before any
// scoring code sees it.
const (
	PayloadNumericAnswer   = "numeric_answer"
	PayloadFreeText        = "free_text"
	PayloadStructuredSteps = "structured_steps"
)

// CalculationStep is one line of working in a structured-steps response.
type CalculationStep struct {
	Label      string `json:"label"`
	Expression string `json:"expression"`
	Result     string `json:"result"`
}

// DrillResponsePayload is the submitted response for an attempt.
type DrillResponsePayload struct {
	Kind          string            `json:"kind" binding:"required"`
	NumericAnswer string            `json:"numeric_answer,omitempty"`
	Text          string            `json:"text,omitempty"`
	Steps         []CalculationStep `json:"steps,omitempty"`
	// TimeUp marks the synthetic submission forced when the deadline fires
	// before the user submits.
	TimeUp bool `json:"time_up,omitempty"`
}

// Validate enforces the kind/field agreement. A time-up payload is exempt
// from the content requirements: the deadline fired with whatever was there.
func (p *DrillResponsePayload) Validate() error {
	switch p.Kind {
	case PayloadNumericAnswer:
		if !p.TimeUp && strings.TrimSpace(p.NumericAnswer) == "" {
			return apperr.New(apperr.KindValidation, "numeric_answer payload requires a numeric_answer value")
		}
		if p.Text != "" || len(p.Steps) > 0 {
			return apperr.New(apperr.KindValidation, "numeric_answer payload must not carry text or steps")
		}
	case PayloadFreeText:
		if !p.TimeUp && strings.TrimSpace(p.Text) == "" {
			return apperr.New(apperr.KindValidation, "free_text payload requires a text value")
		}
		if p.NumericAnswer != "" || len(p.Steps) > 0 {
			return apperr.New(apperr.KindValidation, "free_text payload must not carry a numeric answer or steps")
		}
	case PayloadStructuredSteps:
		if !p.TimeUp && len(p.Steps) == 0 {
			return apperr.New(apperr.KindValidation, "structured_steps payload requires at least one step")
		}
		if p.Text != "" {
			return apperr.New(apperr.KindValidation, "structured_steps payload must not carry free text")
		}
	default:
		return apperr.Newf(apperr.KindValidation, "unknown response kind %q", p.Kind)
	}
	return nil
}

// AnswerText extracts the value the numeric evaluator should parse: the
// numeric answer itself, or the final step's result for worked calculations.
func (p *DrillResponsePayload) AnswerText() string {
	switch p.Kind {
	case PayloadNumericAnswer:
		return p.NumericAnswer
	case PayloadStructuredSteps:
		if len(p.Steps) > 0 {
			return p.Steps[len(p.Steps)-1].Result
		}
	}
	return p.Text
}

// FreeText renders the payload for the LLM prompt.
func (p *DrillResponsePayload) FreeText() string {
	switch p.Kind {
	case PayloadFreeText:
		return p.Text
	case PayloadNumericAnswer:
		return p.NumericAnswer
	case PayloadStructuredSteps:
		var b strings.Builder
		for i, s := range p.Steps {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(s.Label)
			b.WriteString(": ")
			b.WriteString(s.Expression)
			b.WriteString(" = ")
			b.WriteString(s.Result)
		}
		return b.String()
	}
	return ""
}

// Marshal serializes the payload for storage on the attempt row.
func (p *DrillResponsePayload) Marshal() (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "marshal response payload", err)
	}
	return string(raw), nil
}

// UnmarshalPayload restores a stored payload.
func UnmarshalPayload(raw string) (*DrillResponsePayload, error) {
	var p DrillResponsePayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "unmarshal response payload", err)
	}
	return &p, nil
}
