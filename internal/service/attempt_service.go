package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/caseforge/drillapi/internal/apperr"
	"github.com/caseforge/drillapi/internal/dto"
	"github.com/caseforge/drillapi/internal/metrics"
	"github.com/caseforge/drillapi/internal/model"
	"github.com/caseforge/drillapi/internal/repository"
	"github.com/caseforge/drillapi/internal/scoring"
	"github.com/google/uuid"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
)

// AttemptService drives the timed-attempt state machine. Every transition
// verifies ownership, checks the legal edge, and saves with an optimistic
// version check so concurrent transitions on the same attempt cannot both win.
type AttemptService interface {
	Start(userID, drillID uint) (*dto.AttemptDTO, error)
	Submit(attemptID, userID uint, payload dto.DrillResponsePayload) (*dto.AttemptDTO, error)
	TimeUp(attemptID, userID uint) (*dto.AttemptDTO, error)
	Evaluate(ctx context.Context, attemptID, userID uint) (*dto.EvaluationDTO, error)
	Abandon(attemptID, userID uint) (*dto.AttemptDTO, error)
	Get(attemptID, userID uint) (*dto.AttemptDetailDTO, error)
	Timer(attemptID, userID uint) (*scoring.TimerState, error)
	ListForDrill(drillID, userID uint) ([]dto.AttemptSummaryDTO, error)
}

type attemptService struct {
	drills   repository.DrillRepository
	attempts repository.AttemptRepository
	evals    repository.EvaluationRepository
	llm      LLMEvaluator
	mon      *metrics.Collector
	now      func() time.Time
}

func NewAttemptService(
	drills repository.DrillRepository,
	attempts repository.AttemptRepository,
	evals repository.EvaluationRepository,
	llm LLMEvaluator,
	mon *metrics.Collector,
) AttemptService {
	return &attemptService{
		drills:   drills,
		attempts: attempts,
		evals:    evals,
		llm:      llm,
		mon:      mon,
		now:      time.Now,
	}
}

// Start creates a new attempt in IN_PROGRESS. A user may hold at most one
// active attempt per drill; starting again while one is running is rejected.
func (s *attemptService) Start(userID, drillID uint) (*dto.AttemptDTO, error) {
	template, err := s.drills.FindByID(drillID)
	if err != nil {
		return nil, err
	}

	active, err := s.attempts.FindActiveByUserAndTemplate(userID, template.ID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, apperr.Newf(apperr.KindAlreadyInProgress,
			"an attempt for drill %d is already in progress", drillID).
			With("attempt_id", active.ID)
	}

	attempt := &model.DrillAttempt{
		PublicID:   uuid.New(),
		UserID:     userID,
		TemplateID: template.ID,
		Status:     model.StatusInProgress,
		StartedAt:  s.now(),
	}
	if err := s.attempts.Create(attempt); err != nil {
		return nil, err
	}
	attempt.Template = *template
	s.mon.AttemptStarted()

	log.Info().Uint("attemptID", attempt.ID).Uint("userID", userID).
		Uint("drillID", drillID).Msg("Attempt started")
	return attemptToDTO(attempt), nil
}

// Submit records the response and moves IN_PROGRESS to COMPLETED. A submit
// that lands after the deadline is still accepted, flagged as timed out.
func (s *attemptService) Submit(attemptID, userID uint, payload dto.DrillResponsePayload) (*dto.AttemptDTO, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	attempt, err := s.loadOwned(attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.StatusInProgress {
		return nil, invalidTransition(attempt, model.StatusCompleted)
	}
	if err := validateKindForCategory(&payload, attempt.Template.Category); err != nil {
		return nil, err
	}

	now := s.now()
	if scoring.Countdown(now, attempt.StartedAt, attempt.Template.TimeLimitSeconds).Expired {
		payload.TimeUp = true
	}

	if err := s.applySubmission(attempt, &payload, now); err != nil {
		return nil, err
	}
	return attemptToDTO(attempt), nil
}

// TimeUp force-completes an attempt whose deadline has passed, storing a
// synthetic empty payload in the drill's native response kind.
func (s *attemptService) TimeUp(attemptID, userID uint) (*dto.AttemptDTO, error) {
	attempt, err := s.loadOwned(attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.StatusInProgress {
		return nil, invalidTransition(attempt, model.StatusCompleted)
	}

	now := s.now()
	timer := scoring.Countdown(now, attempt.StartedAt, attempt.Template.TimeLimitSeconds)
	if !timer.Expired {
		return nil, apperr.Newf(apperr.KindValidation,
			"attempt still has %d seconds remaining", timer.RemainingSeconds)
	}

	kind := dto.PayloadFreeText
	if attempt.Template.Category.Numeric() {
		kind = dto.PayloadNumericAnswer
	}
	payload := dto.DrillResponsePayload{Kind: kind, TimeUp: true}

	if err := s.applySubmission(attempt, &payload, now); err != nil {
		return nil, err
	}
	return attemptToDTO(attempt), nil
}

func (s *attemptService) applySubmission(attempt *model.DrillAttempt, payload *dto.DrillResponsePayload, now time.Time) error {
	raw, err := payload.Marshal()
	if err != nil {
		return err
	}

	attempt.Status = model.StatusCompleted
	attempt.CompletedAt = &now
	attempt.ResponseKind = &payload.Kind
	attempt.ResponseJSON = &raw
	attempt.TimedOut = payload.TimeUp

	if err := s.attempts.SaveWithVersion(attempt, attempt.Version); err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			s.mon.Conflict()
		}
		return err
	}
	s.mon.AttemptSubmitted(payload.TimeUp)

	log.Info().Uint("attemptID", attempt.ID).Bool("timedOut", payload.TimeUp).
		Msg("Attempt submitted")
	return nil
}

// Evaluate scores a COMPLETED attempt and moves it to EVALUATED. Numeric
// categories are scored locally against the expected answer; free-text
// categories go through the LLM. An evaluation failure leaves the attempt
// COMPLETED so the caller can retry.
func (s *attemptService) Evaluate(ctx context.Context, attemptID, userID uint) (*dto.EvaluationDTO, error) {
	attempt, err := s.loadOwned(attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.StatusCompleted {
		return nil, invalidTransition(attempt, model.StatusEvaluated)
	}
	if attempt.ResponseJSON == nil {
		return nil, apperr.Newf(apperr.KindInternal, "attempt %d has no stored response", attempt.ID)
	}

	payload, err := dto.UnmarshalPayload(*attempt.ResponseJSON)
	if err != nil {
		return nil, err
	}

	template := &attempt.Template
	var result scoring.CalculationResult
	var criteriaScores map[string]int
	var llmFeedback *string

	if template.Category.Numeric() && template.CorrectAnswer != nil {
		result = scoring.EvaluateCalculation(payload.AnswerText(), *template.CorrectAnswer, scoring.CalculationOptions{
			TolerancePercent:  template.TolerancePercent,
			RequireExactMatch: template.RequireExactMatch,
		})
		criteriaScores = make(map[string]int, len(template.Criteria))
		for _, c := range template.Criteria {
			criteriaScores[c.Name] = result.Score
		}
	} else {
		outcome, err := s.llm.Evaluate(ctx, template, payload)
		if err != nil {
			s.mon.Evaluation(metrics.OutcomeFailed)
			log.Error().Err(err).Uint("attemptID", attempt.ID).
				Msg("LLM evaluation failed, attempt stays completed")
			return nil, err
		}
		result = scoring.CalculationResult{Score: outcome.OverallScore}
		criteriaScores = outcome.CriteriaScores
		if outcome.Feedback != "" {
			llmFeedback = &outcome.Feedback
		}
	}

	now := s.now()
	perf := scoring.CalculateMetrics(attempt.TimeSpentSeconds(now), result.Score)
	feedback := scoring.SynthesizeFeedback(result, perf, string(template.Category))

	eval, err := buildEvaluation(attempt.ID, result.Score, feedback, llmFeedback, now)
	if err != nil {
		return nil, err
	}

	scoresRaw, err := json.Marshal(criteriaScores)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "marshal criteria scores", err)
	}
	scoresJSON := string(scoresRaw)

	attempt.Status = model.StatusEvaluated
	attempt.Score = &result.Score
	attempt.CriteriaScoresJSON = &scoresJSON

	if err := s.evals.CreateWithAttempt(eval, attempt, attempt.Version); err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			s.mon.Conflict()
		}
		s.mon.Evaluation(metrics.OutcomeFailed)
		return nil, err
	}
	s.mon.Evaluation(metrics.OutcomeEvaluated)

	log.Info().Uint("attemptID", attempt.ID).Int("score", result.Score).
		Str("tier", perf.Tier).Msg("Attempt evaluated")

	return &dto.EvaluationDTO{
		AttemptID:      attempt.ID,
		OverallScore:   result.Score,
		Summary:        feedback.Summary,
		Strengths:      feedback.Strengths,
		Improvements:   feedback.Improvements,
		CriteriaScores: criteriaScores,
		LLMFeedback:    llmFeedback,
		SpeedScore:     perf.SpeedScore,
		AccuracyScore:  perf.AccuracyScore,
		Efficiency:     perf.Efficiency,
		Tier:           perf.Tier,
		EvaluatedAt:    eval.EvaluatedAt,
	}, nil
}

// Abandon moves an IN_PROGRESS attempt to the terminal ABANDONED state.
func (s *attemptService) Abandon(attemptID, userID uint) (*dto.AttemptDTO, error) {
	attempt, err := s.loadOwned(attemptID, userID)
	if err != nil {
		return nil, err
	}
	if attempt.Status != model.StatusInProgress {
		return nil, invalidTransition(attempt, model.StatusAbandoned)
	}

	attempt.Status = model.StatusAbandoned
	if err := s.attempts.SaveWithVersion(attempt, attempt.Version); err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			s.mon.Conflict()
		}
		return nil, err
	}
	s.mon.AttemptAbandoned()

	log.Info().Uint("attemptID", attempt.ID).Msg("Attempt abandoned")
	return attemptToDTO(attempt), nil
}

// Get returns the full attempt view including the stored response and, once
// evaluated, the evaluation.
func (s *attemptService) Get(attemptID, userID uint) (*dto.AttemptDetailDTO, error) {
	attempt, err := s.attempts.FindByIDWithDetails(attemptID)
	if err != nil {
		return nil, err
	}
	if !attempt.OwnedBy(userID) {
		return nil, notOwned(attemptID)
	}

	detail := &dto.AttemptDetailDTO{AttemptDTO: *attemptToDTO(attempt)}

	if attempt.ResponseJSON != nil {
		payload, err := dto.UnmarshalPayload(*attempt.ResponseJSON)
		if err != nil {
			return nil, err
		}
		detail.Response = payload
	}
	if attempt.CriteriaScoresJSON != nil {
		scores := map[string]int{}
		if err := json.Unmarshal([]byte(*attempt.CriteriaScoresJSON), &scores); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "unmarshal criteria scores", err)
		}
		detail.CriteriaScores = scores
	}
	if attempt.Evaluation != nil {
		evalDTO, err := evaluationToDTO(attempt, attempt.Evaluation)
		if err != nil {
			return nil, err
		}
		detail.Evaluation = evalDTO
	}
	return detail, nil
}

// Timer returns the countdown snapshot for an active attempt.
func (s *attemptService) Timer(attemptID, userID uint) (*scoring.TimerState, error) {
	attempt, err := s.loadOwned(attemptID, userID)
	if err != nil {
		return nil, err
	}
	state := scoring.Countdown(s.now(), attempt.StartedAt, attempt.Template.TimeLimitSeconds)
	return &state, nil
}

func (s *attemptService) ListForDrill(drillID, userID uint) ([]dto.AttemptSummaryDTO, error) {
	if _, err := s.drills.FindByID(drillID); err != nil {
		return nil, err
	}
	attempts, err := s.attempts.FindAllByTemplateAndUser(drillID, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]dto.AttemptSummaryDTO, 0, len(attempts))
	for _, a := range attempts {
		var summary dto.AttemptSummaryDTO
		if err := copier.Copy(&summary, &a); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "map attempt summary", err)
		}
		summary.Status = string(a.Status)
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *attemptService) loadOwned(attemptID, userID uint) (*model.DrillAttempt, error) {
	attempt, err := s.attempts.FindByIDWithTemplate(attemptID)
	if err != nil {
		return nil, err
	}
	if !attempt.OwnedBy(userID) {
		return nil, notOwned(attemptID)
	}
	return attempt, nil
}

// validateKindForCategory rejects a payload whose kind does not fit the
// drill: numeric categories take a numeric answer or worked steps, everything
// else takes prose. Checked before the response is stored so mismatches never
// reach the evaluators.
func validateKindForCategory(p *dto.DrillResponsePayload, category model.DrillCategory) error {
	if category.Numeric() {
		if p.Kind == dto.PayloadFreeText {
			return apperr.Newf(apperr.KindValidation,
				"category %s requires a numeric_answer or structured_steps response", category)
		}
		return nil
	}
	if p.Kind != dto.PayloadFreeText {
		return apperr.Newf(apperr.KindValidation,
			"category %s requires a free_text response", category)
	}
	return nil
}

func invalidTransition(attempt *model.DrillAttempt, next model.AttemptStatus) error {
	return apperr.Newf(apperr.KindInvalidState,
		"attempt %d is %s and cannot transition to %s", attempt.ID, attempt.Status, next).
		With("attempt_id", attempt.ID).
		With("status", string(attempt.Status))
}

func notOwned(attemptID uint) error {
	return apperr.Newf(apperr.KindUnauthorized, "attempt %d belongs to another user", attemptID)
}

func buildEvaluation(attemptID uint, score int, fb scoring.Feedback, llmFeedback *string, now time.Time) (*model.DrillEvaluation, error) {
	strengthsRaw, err := json.Marshal(fb.Strengths)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "marshal strengths", err)
	}
	improvementsRaw, err := json.Marshal(fb.Improvements)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "marshal improvements", err)
	}
	return &model.DrillEvaluation{
		AttemptID:        attemptID,
		OverallScore:     score,
		Summary:          fb.Summary,
		StrengthsJSON:    string(strengthsRaw),
		ImprovementsJSON: string(improvementsRaw),
		LLMFeedback:      llmFeedback,
		EvaluatedAt:      now,
	}, nil
}

func attemptToDTO(attempt *model.DrillAttempt) *dto.AttemptDTO {
	return &dto.AttemptDTO{
		ID:          attempt.ID,
		PublicID:    attempt.PublicID,
		TemplateID:  attempt.TemplateID,
		DrillTitle:  attempt.Template.Title,
		UserID:      attempt.UserID,
		Status:      string(attempt.Status),
		StartedAt:   attempt.StartedAt,
		CompletedAt: attempt.CompletedAt,
		TimedOut:    attempt.TimedOut,
		Score:       attempt.Score,
		Version:     attempt.Version,
	}
}

func evaluationToDTO(attempt *model.DrillAttempt, eval *model.DrillEvaluation) (*dto.EvaluationDTO, error) {
	var strengths, improvements []string
	if err := json.Unmarshal([]byte(eval.StrengthsJSON), &strengths); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "unmarshal strengths", err)
	}
	if err := json.Unmarshal([]byte(eval.ImprovementsJSON), &improvements); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "unmarshal improvements", err)
	}

	end := eval.EvaluatedAt
	perf := scoring.CalculateMetrics(attempt.TimeSpentSeconds(end), eval.OverallScore)

	var criteriaScores map[string]int
	if attempt.CriteriaScoresJSON != nil {
		if err := json.Unmarshal([]byte(*attempt.CriteriaScoresJSON), &criteriaScores); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "unmarshal criteria scores", err)
		}
	}

	return &dto.EvaluationDTO{
		AttemptID:      eval.AttemptID,
		OverallScore:   eval.OverallScore,
		Summary:        eval.Summary,
		Strengths:      strengths,
		Improvements:   improvements,
		CriteriaScores: criteriaScores,
		LLMFeedback:    eval.LLMFeedback,
		SpeedScore:     perf.SpeedScore,
		AccuracyScore:  perf.AccuracyScore,
		Efficiency:     perf.Efficiency,
		Tier:           perf.Tier,
		EvaluatedAt:    eval.EvaluatedAt,
	}, nil
}
