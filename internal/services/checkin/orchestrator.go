package checkin

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/benvon/manasmitra/internal/models"
	"github.com/benvon/manasmitra/internal/services/ai"
)

// Generator is the part of the generation client the orchestrator needs.
type Generator interface {
	EmpatheticResponse(ctx context.Context, in ai.EmpatheticResponseInput) (ai.EmpatheticResponseOutput, error)
	ResourceRecommendation(ctx context.Context, in ai.ResourceRecommendationInput) (ai.ResourceRecommendationOutput, error)
}

// Input is what the two generation calls are built from.
type Input struct {
	Mood        models.Mood
	Feelings    []models.Feeling
	Details     string
	CheckInData string
}

// InputFromRequest derives orchestrator input from a wizard submission.
func InputFromRequest(req models.CheckInRequest) Input {
	feelings := models.NormalizeFeelings(req.Feelings)
	return Input{
		Mood:        req.Mood,
		Feelings:    feelings,
		Details:     req.Details,
		CheckInData: FormatCheckInData(req.Mood, feelings, req.Details),
	}
}

// FormatCheckInData flattens a check-in into "Mood: X. Feelings: a, b. Details: d".
func FormatCheckInData(mood models.Mood, feelings []models.Feeling, details string) string {
	names := make([]string, len(feelings))
	for i, f := range feelings {
		names[i] = string(f)
	}
	return fmt.Sprintf("Mood: %s. Feelings: %s. Details: %s", mood, strings.Join(names, ", "), details)
}

// Orchestrator runs the empathetic response and resource recommendation
// calls concurrently and joins them all-or-nothing.
type Orchestrator struct {
	gen Generator
}

// NewOrchestrator creates an orchestrator over gen.
func NewOrchestrator(gen Generator) *Orchestrator {
	return &Orchestrator{gen: gen}
}

// Respond returns both results or the first error. The first failure cancels
// the sibling call.
func (o *Orchestrator) Respond(ctx context.Context, in Input) (models.CheckInResult, error) {
	g, gctx := errgroup.WithContext(ctx)

	var response ai.EmpatheticResponseOutput
	var recommendation ai.ResourceRecommendationOutput

	g.Go(func() error {
		out, err := o.gen.EmpatheticResponse(gctx, ai.EmpatheticResponseInput{
			Mood:     in.Mood,
			Feelings: in.Feelings,
			Details:  in.Details,
		})
		if err != nil {
			return fmt.Errorf("empathetic response: %w", err)
		}
		response = out
		return nil
	})

	g.Go(func() error {
		out, err := o.gen.ResourceRecommendation(gctx, ai.ResourceRecommendationInput{
			CheckInData: in.CheckInData,
		})
		if err != nil {
			return fmt.Errorf("resource recommendation: %w", err)
		}
		recommendation = out
		return nil
	})

	if err := g.Wait(); err != nil {
		return models.CheckInResult{}, err
	}

	return models.CheckInResult{
		Response:       response.Response,
		Recommendation: recommendation.ResourceRecommendation,
	}, nil
}
