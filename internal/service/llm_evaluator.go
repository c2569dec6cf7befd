package service

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/caseforge/drillapi/config"
	"github.com/caseforge/drillapi/internal/apperr"
	"github.com/caseforge/drillapi/internal/dto"
	"github.com/caseforge/drillapi/internal/model"
	"github.com/caseforge/drillapi/internal/scoring"
	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// EvaluationOutcome is the structured result the state machine expects from
// the LLM collaborator for free-text drill categories.
type EvaluationOutcome struct {
	OverallScore   int
	CriteriaScores map[string]int
	Feedback       string
}

// LLMEvaluator scores free-text drill responses. Implementations must honour
// the context deadline and return apperr-kinded errors so the state machine
// can distinguish transient failures from permanent ones.
type LLMEvaluator interface {
	Evaluate(ctx context.Context, template *model.DrillTemplate, response *dto.DrillResponsePayload) (*EvaluationOutcome, error)
}

type geminiEvaluator struct {
	client         *genai.GenerativeModel
	callTimeout    time.Duration
	maxRetries     int
	initialBackoff time.Duration
}

func NewGeminiEvaluator(cfg *config.Config) (LLMEvaluator, error) {
	ev := &geminiEvaluator{
		callTimeout:    time.Duration(cfg.Evaluation.TimeoutMs) * time.Millisecond,
		maxRetries:     cfg.Evaluation.MaxRetries,
		initialBackoff: 200 * time.Millisecond,
	}
	if ev.maxRetries <= 0 {
		ev.maxRetries = 3
	}
	if ev.callTimeout <= 0 {
		ev.callTimeout = 30 * time.Second
	}

	if cfg.Gemini.APIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY is not set; LLM evaluation will be unavailable")
		return ev, nil
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.Gemini.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Gemini client: %w", err)
	}
	modelName := cfg.Gemini.Model
	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}
	ev.client = client.GenerativeModel(modelName)
	return ev, nil
}

// Evaluate runs the scoring call with bounded retries and exponential backoff.
// Exhausted retries surface as EvaluationFailed; the caller leaves the attempt
// in COMPLETED so evaluation can be retried later.
func (g *geminiEvaluator) Evaluate(ctx context.Context, template *model.DrillTemplate, response *dto.DrillResponsePayload) (*EvaluationOutcome, error) {
	if g.client == nil {
		return nil, apperr.New(apperr.KindEvaluationFailed, "LLM evaluator is not configured")
	}

	prompt := buildEvaluationPrompt(template, response)

	var lastErr error
	for attempt := 0; attempt < g.maxRetries; attempt++ {
		outcome, err := g.evaluateOnce(ctx, template, prompt)
		if err == nil {
			return outcome, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			// Caller cancelled; the attempt simply stays COMPLETED.
			return nil, apperr.Wrap(apperr.KindTimeout, "evaluation cancelled", ctx.Err())
		}
		if attempt == g.maxRetries-1 {
			break
		}

		wait := g.backoff(attempt)
		log.Warn().Err(err).Int("attempt", attempt+1).Dur("backoff", wait).
			Uint("templateID", template.ID).Msg("LLM evaluation attempt failed, retrying")
		select {
		case <-ctx.Done():
			return nil, apperr.Wrap(apperr.KindTimeout, "evaluation cancelled during backoff", ctx.Err())
		case <-time.After(wait):
		}
	}

	return nil, apperr.Wrap(apperr.KindEvaluationFailed,
		fmt.Sprintf("LLM evaluation failed after %d attempts", g.maxRetries), lastErr)
}

func (g *geminiEvaluator) evaluateOnce(ctx context.Context, template *model.DrillTemplate, prompt string) (*EvaluationOutcome, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
	defer cancel()

	resp, err := g.client.GenerateContent(callCtx, genai.Text(prompt))
	if err != nil {
		if callCtx.Err() != nil {
			return nil, apperr.Wrap(apperr.KindTimeout, "Gemini call timed out", err)
		}
		return nil, apperr.Wrap(apperr.KindUpstream, "Gemini API error", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, apperr.New(apperr.KindUpstream, "Gemini returned no content")
	}

	var raw strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			raw.WriteString(string(txt))
		}
	}
	if raw.Len() == 0 {
		return nil, apperr.New(apperr.KindUpstream, "Gemini returned no text content")
	}

	return parseEvaluationResponse(raw.String(), template.Criteria)
}

func (g *geminiEvaluator) backoff(attempt int) time.Duration {
	wait := float64(g.initialBackoff) * math.Pow(2, float64(attempt))
	// Full jitter keeps concurrent evaluations from retrying in lockstep.
	return time.Duration(wait * (0.5 + rand.Float64()/2))
}

var categoryInstructions = map[model.DrillCategory]string{
	model.CategoryCasePrompt:    "The candidate opened a case interview. Judge their problem structuring, hypothesis framing, and clarifying questions.",
	model.CategoryBrainstorming: "The candidate brainstormed ideas under time pressure. Judge breadth, MECE structure, and creativity of the idea list.",
	model.CategorySynthesizing:  "The candidate synthesized case findings into a recommendation. Judge clarity of the recommendation, supporting logic, and prioritization.",
}

func buildEvaluationPrompt(template *model.DrillTemplate, response *dto.DrillResponsePayload) string {
	var b strings.Builder
	b.WriteString("You are an expert case-interview coach evaluating a candidate's response to a timed practice drill.\n\n")

	if instruction, ok := categoryInstructions[template.Category]; ok {
		b.WriteString(instruction)
		b.WriteString("\n\n")
	}

	b.WriteString("Drill prompt:\n---\n")
	b.WriteString(template.Prompt)
	b.WriteString("\n---\n\n")

	if len(template.Criteria) > 0 {
		b.WriteString("Score against these weighted criteria:\n")
		for _, c := range template.Criteria {
			fmt.Fprintf(&b, "- %s (weight %.0f%%): %s\n", c.Name, c.Weight*100, c.Description)
		}
		b.WriteString("\n")
	}

	b.WriteString("Candidate's response:\n---\n")
	b.WriteString(response.FreeText())
	b.WriteString("\n---\n\n")

	b.WriteString("Respond strictly in this format:\n")
	b.WriteString("Score: [overall score, integer 0-100]\n")
	b.WriteString("Criteria:\n")
	b.WriteString("- [criterion name]: [score 0-100]\n")
	b.WriteString("Feedback:\n")
	b.WriteString("[concise, constructive feedback: what worked, what to fix, and how]\n")
	return b.String()
}

// parseEvaluationResponse extracts the overall score, per-criterion scores,
// and feedback from the model's formatted reply. Missing criterion lines fall
// back to the overall score so the mapping is always complete.
func parseEvaluationResponse(raw string, criteria []model.EvaluationCriterion) (*EvaluationOutcome, error) {
	scoreIdx := strings.Index(raw, "Score:")
	if scoreIdx == -1 {
		return nil, apperr.New(apperr.KindUpstream, "LLM response missing 'Score:' prefix").With("raw", raw)
	}

	scoreLine := raw[scoreIdx+len("Score:"):]
	if nl := strings.Index(scoreLine, "\n"); nl != -1 {
		scoreLine = scoreLine[:nl]
	}
	fields := strings.Fields(scoreLine)
	if len(fields) == 0 {
		return nil, apperr.New(apperr.KindUpstream, "LLM response has an empty score line")
	}
	overall, err := strconv.ParseFloat(strings.TrimSuffix(fields[0], "%"), 64)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUpstream, fmt.Sprintf("unparseable overall score %q", fields[0]), err)
	}

	outcome := &EvaluationOutcome{
		OverallScore:   scoring.ClampScore(int(math.Round(overall))),
		CriteriaScores: make(map[string]int, len(criteria)),
	}

	for _, c := range criteria {
		outcome.CriteriaScores[c.Name] = outcome.OverallScore
	}
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		for _, c := range criteria {
			if !strings.EqualFold(strings.TrimSpace(name), c.Name) {
				continue
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), "%")), 64); err == nil {
				outcome.CriteriaScores[c.Name] = scoring.ClampScore(int(math.Round(v)))
			}
		}
	}

	if fbIdx := strings.Index(raw, "Feedback:"); fbIdx != -1 {
		outcome.Feedback = strings.TrimSpace(raw[fbIdx+len("Feedback:"):])
	}
	return outcome, nil
}
