package sales

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Stage is the visitor's position in the persuasion funnel.
type Stage string

const (
	StageInitialRapport     Stage = "initial-rapport"
	StagePainDiscovery      Stage = "pain-discovery"
	StagePainAmplification  Stage = "pain-amplification"
	StageSolutionFraming    Stage = "solution-framing"
	StageValueDemonstration Stage = "value-demonstration"
	StageObjectionHandling  Stage = "objection-handling"
	StageCommitmentMicro    Stage = "commitment-micro"
	StageCommitmentMajor    Stage = "commitment-major"
	StagePostCommitment     Stage = "post-commitment"
)

var ErrUnknownStage = errors.New("unknown stage")

var stages = []Stage{
	StageInitialRapport,
	StagePainDiscovery,
	StagePainAmplification,
	StageSolutionFraming,
	StageValueDemonstration,
	StageObjectionHandling,
	StageCommitmentMicro,
	StageCommitmentMajor,
	StagePostCommitment,
}

// Stages lists every funnel stage in order.
func Stages() []Stage {
	return slices.Clone(stages)
}

// ParseStage validates a caller-supplied stage name.
func ParseStage(raw string) (Stage, error) {
	s := Stage(strings.ToLower(strings.TrimSpace(raw)))
	if slices.Contains(stages, s) {
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStage, raw)
}

const (
	minScore = 0
	maxScore = 100

	engagementStep       = 5
	pricingReadinessStep = 25
	commitmentStep       = 10
)

// ConversationState is the lead-qualification record for one visitor session.
type ConversationState struct {
	Stage            Stage     `json:"stage"`
	PainPoints       []string  `json:"pain_points"`
	Objections       []string  `json:"objections"`
	Interests        []string  `json:"interests"`
	EngagementScore  int       `json:"engagement_score"`
	ReadyToBuy       int       `json:"ready_to_buy"`
	LastInteraction  time.Time `json:"last_interaction"`
	MicroCommitments []string  `json:"micro_commitments"`
}

func newState(now time.Time) ConversationState {
	return ConversationState{
		Stage:            StageInitialRapport,
		PainPoints:       []string{},
		Objections:       []string{},
		Interests:        []string{},
		MicroCommitments: []string{},
		LastInteraction:  now,
	}
}

func (s ConversationState) clone() ConversationState {
	c := s
	c.PainPoints = slices.Clone(s.PainPoints)
	c.Objections = slices.Clone(s.Objections)
	c.Interests = slices.Clone(s.Interests)
	c.MicroCommitments = slices.Clone(s.MicroCommitments)
	return c
}

func clampScore(v int) int {
	return min(max(v, minScore), maxScore)
}

// appendCapped keeps at most limit newest entries; limit <= 0 means unbounded.
func appendCapped(list []string, v string, limit int) []string {
	list = append(list, v)
	if limit > 0 && len(list) > limit {
		list = slices.Delete(list, 0, len(list)-limit)
	}
	return list
}
