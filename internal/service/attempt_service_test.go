package service

import (
	"context"
	"testing"
	"time"

	"github.com/caseforge/drillapi/internal/apperr"
	"github.com/caseforge/drillapi/internal/dto"
	"github.com/caseforge/drillapi/internal/model"
	"github.com/caseforge/drillapi/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDrillRepo struct {
	templates map[uint]*model.DrillTemplate
}

func (f *fakeDrillRepo) Create(t *model.DrillTemplate) error {
	t.ID = uint(len(f.templates) + 1)
	f.templates[t.ID] = t
	return nil
}

func (f *fakeDrillRepo) FindByID(id uint) (*model.DrillTemplate, error) {
	t, ok := f.templates[id]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "drill template %d not found", id)
	}
	return t, nil
}

func (f *fakeDrillRepo) FindByIDWithCriteria(id uint) (*model.DrillTemplate, error) {
	return f.FindByID(id)
}

func (f *fakeDrillRepo) FindAllWithCriteriaCount() ([]repository.DrillWithCriteriaCount, error) {
	var out []repository.DrillWithCriteriaCount
	for _, t := range f.templates {
		out = append(out, repository.DrillWithCriteriaCount{DrillTemplate: *t, CriteriaCount: len(t.Criteria)})
	}
	return out, nil
}

type fakeAttemptRepo struct {
	drills   *fakeDrillRepo
	attempts map[uint]*model.DrillAttempt
	nextID   uint
}

func (f *fakeAttemptRepo) Create(a *model.DrillAttempt) error {
	f.nextID++
	a.ID = f.nextID
	clone := *a
	f.attempts[a.ID] = &clone
	return nil
}

func (f *fakeAttemptRepo) FindByID(id uint) (*model.DrillAttempt, error) {
	a, ok := f.attempts[id]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "attempt %d not found", id)
	}
	clone := *a
	return &clone, nil
}

func (f *fakeAttemptRepo) FindByIDWithTemplate(id uint) (*model.DrillAttempt, error) {
	a, err := f.FindByID(id)
	if err != nil {
		return nil, err
	}
	if t, ok := f.drills.templates[a.TemplateID]; ok {
		a.Template = *t
	}
	return a, nil
}

func (f *fakeAttemptRepo) FindByIDWithDetails(id uint) (*model.DrillAttempt, error) {
	return f.FindByIDWithTemplate(id)
}

func (f *fakeAttemptRepo) FindActiveByUserAndTemplate(userID, templateID uint) (*model.DrillAttempt, error) {
	for _, a := range f.attempts {
		if a.UserID == userID && a.TemplateID == templateID && a.Status == model.StatusInProgress {
			clone := *a
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeAttemptRepo) FindAllByTemplateAndUser(templateID, userID uint) ([]model.DrillAttempt, error) {
	var out []model.DrillAttempt
	for _, a := range f.attempts {
		if a.TemplateID == templateID && a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAttemptRepo) SaveWithVersion(a *model.DrillAttempt, expectedVersion int) error {
	stored, ok := f.attempts[a.ID]
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "attempt %d not found", a.ID)
	}
	if stored.Version != expectedVersion {
		return apperr.Newf(apperr.KindConflict, "attempt %d was modified concurrently", a.ID)
	}
	clone := *a
	clone.Version = expectedVersion + 1
	clone.Template = model.DrillTemplate{}
	f.attempts[a.ID] = &clone
	a.Version = clone.Version
	return nil
}

type fakeEvalRepo struct {
	attempts *fakeAttemptRepo
	evals    map[uint]*model.DrillEvaluation
}

func (f *fakeEvalRepo) CreateWithAttempt(eval *model.DrillEvaluation, attempt *model.DrillAttempt, expectedVersion int) error {
	if err := f.attempts.SaveWithVersion(attempt, expectedVersion); err != nil {
		return err
	}
	eval.ID = uint(len(f.evals) + 1)
	f.evals[eval.AttemptID] = eval
	return nil
}

func (f *fakeEvalRepo) FindByAttemptID(attemptID uint) (*model.DrillEvaluation, error) {
	eval, ok := f.evals[attemptID]
	if !ok {
		return nil, apperr.Newf(apperr.KindNotFound, "no evaluation for attempt %d", attemptID)
	}
	return eval, nil
}

type fakeLLM struct {
	outcome *EvaluationOutcome
	err     error
	calls   int
}

func (f *fakeLLM) Evaluate(ctx context.Context, template *model.DrillTemplate, response *dto.DrillResponsePayload) (*EvaluationOutcome, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.outcome, nil
}

type harness struct {
	svc      *attemptService
	drills   *fakeDrillRepo
	attempts *fakeAttemptRepo
	evals    *fakeEvalRepo
	llm      *fakeLLM
	clock    time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	drills := &fakeDrillRepo{templates: map[uint]*model.DrillTemplate{}}
	attempts := &fakeAttemptRepo{drills: drills, attempts: map[uint]*model.DrillAttempt{}}
	evals := &fakeEvalRepo{attempts: attempts, evals: map[uint]*model.DrillEvaluation{}}
	llm := &fakeLLM{}

	h := &harness{
		drills:   drills,
		attempts: attempts,
		evals:    evals,
		llm:      llm,
		clock:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	h.svc = NewAttemptService(drills, attempts, evals, llm, nil).(*attemptService)
	h.svc.now = func() time.Time { return h.clock }
	return h
}

func (h *harness) addNumericDrill(answer float64) *model.DrillTemplate {
	template := &model.DrillTemplate{
		Title:            "Revenue calculation",
		Category:         model.CategoryCalculations,
		Difficulty:       "medium",
		Prompt:           "What is 150 * 8?",
		TimeLimitSeconds: 120,
		CorrectAnswer:    &answer,
		TolerancePercent: 1,
		Criteria: []model.EvaluationCriterion{
			{Name: "Accuracy", Weight: 1, Position: 1},
		},
	}
	_ = h.drills.Create(template)
	return template
}

func (h *harness) addFreeTextDrill() *model.DrillTemplate {
	template := &model.DrillTemplate{
		Title:            "Market entry brainstorm",
		Category:         model.CategoryBrainstorming,
		Difficulty:       "hard",
		Prompt:           "List growth levers for a coffee chain.",
		TimeLimitSeconds: 300,
		Criteria: []model.EvaluationCriterion{
			{Name: "Breadth", Weight: 0.5, Position: 1},
			{Name: "Structure", Weight: 0.5, Position: 2},
		},
	}
	_ = h.drills.Create(template)
	return template
}

func (h *harness) advance(d time.Duration) {
	h.clock = h.clock.Add(d)
}

func TestStartAttempt(t *testing.T) {
	h := newHarness(t)
	drill := h.addNumericDrill(1200)

	got, err := h.svc.Start(7, drill.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusInProgress), got.Status)
	assert.Equal(t, uint(7), got.UserID)
	assert.NotEqual(t, got.PublicID.String(), "00000000-0000-0000-0000-000000000000")

	// A second start while the first is active is rejected.
	_, err = h.svc.Start(7, drill.ID)
	require.Error(t, err)
	assert.Equal(t, apperr.KindAlreadyInProgress, apperr.KindOf(err))

	// A different user is unaffected.
	_, err = h.svc.Start(8, drill.ID)
	assert.NoError(t, err)
}

func TestStartUnknownDrill(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Start(7, 99)
	require.Error(t, err)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestSubmitHappyPath(t *testing.T) {
	h := newHarness(t)
	drill := h.addNumericDrill(1200)
	started, err := h.svc.Start(7, drill.ID)
	require.NoError(t, err)

	h.advance(45 * time.Second)
	got, err := h.svc.Submit(started.ID, 7, dto.DrillResponsePayload{
		Kind:          dto.PayloadNumericAnswer,
		NumericAnswer: "1200",
	})
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusCompleted), got.Status)
	assert.False(t, got.TimedOut)
	require.NotNil(t, got.CompletedAt)
	assert.Equal(t, 45*time.Second, got.CompletedAt.Sub(got.StartedAt))
}

func TestSubmitRejectsWrongOwner(t *testing.T) {
	h := newHarness(t)
	drill := h.addNumericDrill(1200)
	started, err := h.svc.Start(7, drill.ID)
	require.NoError(t, err)

	_, err = h.svc.Submit(started.ID, 8, dto.DrillResponsePayload{
		Kind:          dto.PayloadNumericAnswer,
		NumericAnswer: "1200",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestSubmitRejectsNonActiveStates(t *testing.T) {
	h := newHarness(t)
	drill := h.addNumericDrill(1200)
	started, err := h.svc.Start(7, drill.ID)
	require.NoError(t, err)

	payload := dto.DrillResponsePayload{Kind: dto.PayloadNumericAnswer, NumericAnswer: "1200"}
	_, err = h.svc.Submit(started.ID, 7, payload)
	require.NoError(t, err)

	// A second submit on the now-completed attempt is an invalid transition.
	_, err = h.svc.Submit(started.ID, 7, payload)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestSubmitValidatesPayload(t *testing.T) {
	h := newHarness(t)
	drill := h.addNumericDrill(1200)
	started, err := h.svc.Start(7, drill.ID)
	require.NoError(t, err)

	_, err = h.svc.Submit(started.ID, 7, dto.DrillResponsePayload{Kind: "bogus"})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// The attempt is untouched by the rejected submit.
	stored, err := h.attempts.FindByID(started.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, stored.Status)
}

func TestSubmitRejectsKindCategoryMismatch(t *testing.T) {
	h := newHarness(t)
	numeric := h.addNumericDrill(1200)
	freeText := h.addFreeTextDrill()

	numericAttempt, err := h.svc.Start(7, numeric.ID)
	require.NoError(t, err)
	freeTextAttempt, err := h.svc.Start(7, freeText.ID)
	require.NoError(t, err)

	// Prose on a calculation drill never reaches the numeric evaluator.
	_, err = h.svc.Submit(numericAttempt.ID, 7, dto.DrillResponsePayload{
		Kind: dto.PayloadFreeText,
		Text: "roughly twelve hundred",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// And a numeric answer on a brainstorming drill is equally rejected.
	_, err = h.svc.Submit(freeTextAttempt.ID, 7, dto.DrillResponsePayload{
		Kind:          dto.PayloadNumericAnswer,
		NumericAnswer: "42",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	// Both attempts stay in progress; worked steps are fine for numeric drills.
	stored, err := h.attempts.FindByID(numericAttempt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, stored.Status)

	_, err = h.svc.Submit(numericAttempt.ID, 7, dto.DrillResponsePayload{
		Kind:  dto.PayloadStructuredSteps,
		Steps: []dto.CalculationStep{{Label: "total", Expression: "150 * 8", Result: "1200"}},
	})
	assert.NoError(t, err)
}

func TestSubmitAfterDeadlineIsFlaggedTimedOut(t *testing.T) {
	h := newHarness(t)
	drill := h.addNumericDrill(1200)
	started, err := h.svc.Start(7, drill.ID)
	require.NoError(t, err)

	h.advance(time.Duration(drill.TimeLimitSeconds+5) * time.Second)
	got, err := h.svc.Submit(started.ID, 7, dto.DrillResponsePayload{
		Kind:          dto.PayloadNumericAnswer,
		NumericAnswer: "1200",
	})
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusCompleted), got.Status)
	assert.True(t, got.TimedOut)
}

func TestConcurrentSubmitsOnlyOneWins(t *testing.T) {
	h := newHarness(t)
	drill := h.addNumericDrill(1200)
	started, err := h.svc.Start(7, drill.ID)
	require.NoError(t, err)

	// Simulate a racing writer that bumped the version after this instance
	// loaded the attempt at version 0.
	loaded, err := h.attempts.FindByIDWithTemplate(started.ID)
	require.NoError(t, err)
	h.attempts.attempts[started.ID].Version++

	loaded.Status = model.StatusCompleted
	err = h.attempts.SaveWithVersion(loaded, loaded.Version)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// The submit path surfaces the same conflict kind to its caller.
	h.attempts.attempts[started.ID].Version = 0
	first, err := h.svc.Submit(started.ID, 7, dto.DrillResponsePayload{
		Kind:          dto.PayloadNumericAnswer,
		NumericAnswer: "1200",
	})
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusCompleted), first.Status)
}

func TestTimeUpBeforeDeadlineRejected(t *testing.T) {
	h := newHarness(t)
	drill := h.addNumericDrill(1200)
	started, err := h.svc.Start(7, drill.ID)
	require.NoError(t, err)

	h.advance(30 * time.Second)
	_, err = h.svc.TimeUp(started.ID, 7)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestTimeUpThenEvaluateScoresZero(t *testing.T) {
	h := newHarness(t)
	drill := h.addNumericDrill(1200)
	started, err := h.svc.Start(7, drill.ID)
	require.NoError(t, err)

	h.advance(time.Duration(drill.TimeLimitSeconds) * time.Second)
	got, err := h.svc.TimeUp(started.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusCompleted), got.Status)
	assert.True(t, got.TimedOut)

	eval, err := h.svc.Evaluate(context.Background(), started.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, eval.OverallScore)
	assert.Contains(t, eval.Improvements, "Provide your answer as a plain number, for example 42 or 3.14")

	stored, err := h.attempts.FindByID(started.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusEvaluated, stored.Status)
	// The LLM is never consulted for a numeric drill.
	assert.Zero(t, h.llm.calls)
}

func TestEvaluateNumericExactAnswer(t *testing.T) {
	h := newHarness(t)
	drill := h.addNumericDrill(1200)
	started, err := h.svc.Start(7, drill.ID)
	require.NoError(t, err)

	h.advance(20 * time.Second)
	_, err = h.svc.Submit(started.ID, 7, dto.DrillResponsePayload{
		Kind:          dto.PayloadNumericAnswer,
		NumericAnswer: "1,200",
	})
	require.NoError(t, err)

	eval, err := h.svc.Evaluate(context.Background(), started.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 100, eval.OverallScore)
	assert.Equal(t, 100, eval.AccuracyScore)
	assert.Contains(t, eval.Strengths, "Excellent accuracy in calculation")
	assert.Equal(t, map[string]int{"Accuracy": 100}, eval.CriteriaScores)
	// 20s of 300s: speed 93, efficiency 97.
	assert.Equal(t, 93, eval.SpeedScore)
	assert.Equal(t, "Excellent", eval.Tier)
}

func TestEvaluateFreeTextUsesLLM(t *testing.T) {
	h := newHarness(t)
	drill := h.addFreeTextDrill()
	started, err := h.svc.Start(7, drill.ID)
	require.NoError(t, err)

	h.llm.outcome = &EvaluationOutcome{
		OverallScore:   82,
		CriteriaScores: map[string]int{"Breadth": 85, "Structure": 79},
		Feedback:       "Good coverage, tighten the grouping.",
	}

	h.advance(90 * time.Second)
	_, err = h.svc.Submit(started.ID, 7, dto.DrillResponsePayload{
		Kind: dto.PayloadFreeText,
		Text: "Open new stores, loyalty program, delivery partnerships.",
	})
	require.NoError(t, err)

	eval, err := h.svc.Evaluate(context.Background(), started.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, h.llm.calls)
	assert.Equal(t, 82, eval.OverallScore)
	assert.Equal(t, map[string]int{"Breadth": 85, "Structure": 79}, eval.CriteriaScores)

	// The evaluator's qualitative feedback rides along in the response.
	require.NotNil(t, eval.LLMFeedback)
	assert.Equal(t, "Good coverage, tighten the grouping.", *eval.LLMFeedback)

	storedEval, err := h.evals.FindByAttemptID(started.ID)
	require.NoError(t, err)
	require.NotNil(t, storedEval.LLMFeedback)
	assert.Equal(t, "Good coverage, tighten the grouping.", *storedEval.LLMFeedback)
}

func TestEvaluateLLMFailureLeavesCompleted(t *testing.T) {
	h := newHarness(t)
	drill := h.addFreeTextDrill()
	started, err := h.svc.Start(7, drill.ID)
	require.NoError(t, err)

	_, err = h.svc.Submit(started.ID, 7, dto.DrillResponsePayload{
		Kind: dto.PayloadFreeText,
		Text: "Some response.",
	})
	require.NoError(t, err)

	h.llm.err = apperr.New(apperr.KindEvaluationFailed, "LLM evaluation failed after 3 attempts")
	_, err = h.svc.Evaluate(context.Background(), started.ID, 7)
	require.Error(t, err)
	assert.Equal(t, apperr.KindEvaluationFailed, apperr.KindOf(err))
	assert.True(t, apperr.Retryable(err))

	stored, err := h.attempts.FindByID(started.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, stored.Status)

	// A retry after the upstream recovers succeeds.
	h.llm.err = nil
	h.llm.outcome = &EvaluationOutcome{OverallScore: 70, CriteriaScores: map[string]int{}}
	_, err = h.svc.Evaluate(context.Background(), started.ID, 7)
	assert.NoError(t, err)
}

func TestEvaluateRequiresCompleted(t *testing.T) {
	h := newHarness(t)
	drill := h.addNumericDrill(1200)
	started, err := h.svc.Start(7, drill.ID)
	require.NoError(t, err)

	_, err = h.svc.Evaluate(context.Background(), started.ID, 7)
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestAbandon(t *testing.T) {
	h := newHarness(t)
	drill := h.addNumericDrill(1200)
	started, err := h.svc.Start(7, drill.ID)
	require.NoError(t, err)

	got, err := h.svc.Abandon(started.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, string(model.StatusAbandoned), got.Status)

	// Terminal: no further transitions.
	_, err = h.svc.Submit(started.ID, 7, dto.DrillResponsePayload{
		Kind:          dto.PayloadNumericAnswer,
		NumericAnswer: "1200",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))

	// And starting fresh is allowed again.
	_, err = h.svc.Start(7, drill.ID)
	assert.NoError(t, err)
}

func TestTimerSnapshot(t *testing.T) {
	h := newHarness(t)
	drill := h.addNumericDrill(1200)
	started, err := h.svc.Start(7, drill.ID)
	require.NoError(t, err)

	h.advance(100 * time.Second)
	state, err := h.svc.Timer(started.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, 100, state.ElapsedSeconds)
	assert.Equal(t, 20, state.RemainingSeconds)
	assert.False(t, state.Expired)
}

func TestGetDetailIncludesResponseAndEvaluation(t *testing.T) {
	h := newHarness(t)
	drill := h.addNumericDrill(1200)
	started, err := h.svc.Start(7, drill.ID)
	require.NoError(t, err)

	h.advance(15 * time.Second)
	_, err = h.svc.Submit(started.ID, 7, dto.DrillResponsePayload{
		Kind:          dto.PayloadNumericAnswer,
		NumericAnswer: "1180",
	})
	require.NoError(t, err)
	_, err = h.svc.Evaluate(context.Background(), started.ID, 7)
	require.NoError(t, err)

	detail, err := h.svc.Get(started.ID, 7)
	require.NoError(t, err)
	require.NotNil(t, detail.Response)
	assert.Equal(t, "1180", detail.Response.NumericAnswer)
	require.NotNil(t, detail.CriteriaScores)

	_, err = h.svc.Get(started.ID, 8)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestListForDrill(t *testing.T) {
	h := newHarness(t)
	drill := h.addNumericDrill(1200)
	started, err := h.svc.Start(7, drill.ID)
	require.NoError(t, err)
	_, err = h.svc.Abandon(started.ID, 7)
	require.NoError(t, err)
	_, err = h.svc.Start(7, drill.ID)
	require.NoError(t, err)

	list, err := h.svc.ListForDrill(drill.ID, 7)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	other, err := h.svc.ListForDrill(drill.ID, 8)
	require.NoError(t, err)
	assert.Empty(t, other)
}
