package ai

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/benvon/manasmitra/internal/mindfulness"
	"github.com/benvon/manasmitra/internal/models"
	"gopkg.in/yaml.v3"
)

// Template names
const (
	TemplateAffirmation            = "affirmation"
	TemplateEmpatheticResponse     = "empathetic_response"
	TemplateResourceRecommendation = "resource_recommendation"
	TemplateMindfulnessSession     = "mindfulness_session"
)

// FallbackAffirmation is returned when the backend stays unavailable.
const FallbackAffirmation = "You are strong and capable. Every day brings new opportunities for growth and learning."

//go:embed templates.yaml
var templatesYAML []byte

// AffirmationInput asks for an affirmation, optionally tuned to a mood. Mood
// is free text, so dashboard moods outside the check-in list are accepted.
type AffirmationInput struct {
	Mood models.Mood `json:"mood,omitempty" validate:"omitempty,max=50"`
}

// AffirmationOutput is the generated affirmation.
type AffirmationOutput struct {
	Affirmation string `json:"affirmation" validate:"required"`
}

// EmpatheticResponseInput is the check-in content the response reacts to.
type EmpatheticResponseInput struct {
	Mood     models.Mood      `json:"mood" validate:"required,mood"`
	Feelings []models.Feeling `json:"feelings" validate:"dive,feeling"`
	Details  string           `json:"details,omitempty"`
}

// EmpatheticResponseOutput is the supportive reply.
type EmpatheticResponseOutput struct {
	Response string `json:"response" validate:"required"`
}

// ResourceRecommendationInput carries the flattened check-in text.
type ResourceRecommendationInput struct {
	CheckInData string `json:"checkInData" validate:"required"`
}

// ResourceRecommendationOutput is the recommended resource and why.
type ResourceRecommendationOutput struct {
	ResourceRecommendation string `json:"resourceRecommendation" validate:"required"`
}

// MindfulnessSessionInput describes the session to generate. Mood is free
// text here ("stressed", "calm") rather than the check-in enum.
type MindfulnessSessionInput struct {
	Mood        string             `json:"mood" validate:"required,max=50"`
	SessionType models.SessionType `json:"sessionType" validate:"required,session_type"`
	Duration    int                `json:"duration" validate:"required,min=1,max=30"`
	Experience  models.Experience  `json:"experience,omitempty" validate:"experience"`
}

// Template binds a prompt to its typed input and output. Fallback, when set,
// supplies the payload used after retries are exhausted on unavailability.
type Template[In, Out any] struct {
	Name        string
	Description string
	Sampling    Sampling
	system      *template.Template
	user        *template.Template
	Fallback    func(In) Out
}

// Render produces the prompt for in.
func (t *Template[In, Out]) Render(in In) (Prompt, error) {
	var sys, usr strings.Builder
	if err := t.system.Execute(&sys, in); err != nil {
		return Prompt{}, fmt.Errorf("render %s system prompt: %w", t.Name, err)
	}
	if err := t.user.Execute(&usr, in); err != nil {
		return Prompt{}, fmt.Errorf("render %s user prompt: %w", t.Name, err)
	}
	return Prompt{Operation: t.Name, System: sys.String(), User: usr.String(), Sampling: t.Sampling}, nil
}

type templateSpec struct {
	Description string   `yaml:"description"`
	System      string   `yaml:"system"`
	User        string   `yaml:"user"`
	Sampling    Sampling `yaml:"sampling"`
}

var templateFuncs = template.FuncMap{
	"join": func(feelings []models.Feeling) string {
		parts := make([]string, len(feelings))
		for i, f := range feelings {
			parts[i] = string(f)
		}
		return strings.Join(parts, ", ")
	},
}

func loadCatalog(data []byte) (map[string]templateSpec, error) {
	var catalog map[string]templateSpec
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse prompt catalogue: %w", err)
	}
	return catalog, nil
}

func newTemplate[In, Out any](catalog map[string]templateSpec, name string, fallback func(In) Out) (*Template[In, Out], error) {
	spec, ok := catalog[name]
	if !ok {
		return nil, fmt.Errorf("prompt catalogue has no %q template", name)
	}
	if spec.System == "" || spec.User == "" {
		return nil, fmt.Errorf("template %q needs both system and user text", name)
	}
	if spec.Sampling.Temperature < 0 || spec.Sampling.Temperature > 2 || spec.Sampling.MaxTokens < 0 {
		return nil, fmt.Errorf("template %q has out-of-range sampling %+v", name, spec.Sampling)
	}
	sys, err := template.New(name + ".system").Funcs(templateFuncs).Option("missingkey=error").Parse(spec.System)
	if err != nil {
		return nil, fmt.Errorf("parse %s system template: %w", name, err)
	}
	usr, err := template.New(name + ".user").Funcs(templateFuncs).Option("missingkey=error").Parse(spec.User)
	if err != nil {
		return nil, fmt.Errorf("parse %s user template: %w", name, err)
	}
	return &Template[In, Out]{
		Name:        name,
		Description: spec.Description,
		Sampling:    spec.Sampling,
		system:      sys,
		user:        usr,
		Fallback:    fallback,
	}, nil
}

// Templates is the full set used by Client.
type Templates struct {
	Affirmation            *Template[AffirmationInput, AffirmationOutput]
	EmpatheticResponse     *Template[EmpatheticResponseInput, EmpatheticResponseOutput]
	ResourceRecommendation *Template[ResourceRecommendationInput, ResourceRecommendationOutput]
	MindfulnessSession     *Template[MindfulnessSessionInput, models.MindfulnessSession]
}

// LoadTemplates parses a prompt catalogue.
func LoadTemplates(data []byte) (*Templates, error) {
	catalog, err := loadCatalog(data)
	if err != nil {
		return nil, err
	}

	var ts Templates
	if ts.Affirmation, err = newTemplate(catalog, TemplateAffirmation, func(AffirmationInput) AffirmationOutput {
		return AffirmationOutput{Affirmation: FallbackAffirmation}
	}); err != nil {
		return nil, err
	}
	if ts.EmpatheticResponse, err = newTemplate[EmpatheticResponseInput, EmpatheticResponseOutput](catalog, TemplateEmpatheticResponse, nil); err != nil {
		return nil, err
	}
	if ts.ResourceRecommendation, err = newTemplate[ResourceRecommendationInput, ResourceRecommendationOutput](catalog, TemplateResourceRecommendation, nil); err != nil {
		return nil, err
	}
	if ts.MindfulnessSession, err = newTemplate(catalog, TemplateMindfulnessSession, func(in MindfulnessSessionInput) models.MindfulnessSession {
		return mindfulness.DefaultSession(in.SessionType, in.Duration)
	}); err != nil {
		return nil, err
	}
	return &ts, nil
}

// DefaultTemplates returns the embedded catalogue. It panics if the embedded
// file is malformed, which is a build defect.
func DefaultTemplates() *Templates {
	ts, err := LoadTemplates(templatesYAML)
	if err != nil {
		panic(err)
	}
	return ts
}
