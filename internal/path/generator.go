// Package path turns a diagnostic report into an ordered learning path:
// weak topics are expanded through the prerequisite graph, practice sets
// are attached from the item-similarity lookup, and checkpoints and
// milestones are derived from the resulting step sequence.
package path

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"adaptive-assessment-service/internal/domain"
	"adaptive-assessment-service/internal/graph"
	"adaptive-assessment-service/internal/logger"
)

// ConceptRepository loads the jurisdiction's concept graph.
type ConceptRepository interface {
	ListConcepts(ctx context.Context, jurisdiction string) ([]domain.ConceptNode, error)
}

// PracticeItemFinder resolves a concept to a ranked list of practice item
// ids via the external similarity search. An empty result is a content gap,
// not an error.
type PracticeItemFinder interface {
	FindItemsForConcept(ctx context.Context, conceptID string, limit int) ([]string, error)
}

// Options tune path generation.
type Options struct {
	ItemsPerConcept        int
	RequiredAccuracy       float64
	CheckpointInterval     int
	DefaultStudyMinutes    int
	PracticeMinutesPerItem int
	AssessmentMinutes      int
}

// DefaultOptions matches the product defaults.
func DefaultOptions() Options {
	return Options{
		ItemsPerConcept:        10,
		RequiredAccuracy:       0.75,
		CheckpointInterval:     6,
		DefaultStudyMinutes:    15,
		PracticeMinutesPerItem: 2,
		AssessmentMinutes:      45,
	}
}

// Generator composes diagnostic reports, the concept graph and the
// practice-item lookup into learning paths.
type Generator struct {
	concepts ConceptRepository
	items    PracticeItemFinder
	opts     Options
	log      *logger.Logger
	now      func() time.Time
	newID    func() string
}

func NewGenerator(concepts ConceptRepository, items PracticeItemFinder, opts Options, log *logger.Logger) *Generator {
	return &Generator{
		concepts: concepts,
		items:    items,
		opts:     opts,
		log:      log,
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// NewGeneratorWithClock is test-only for deterministic ids and timestamps.
func NewGeneratorWithClock(concepts ConceptRepository, items PracticeItemFinder, opts Options, log *logger.Logger, now func() time.Time, newID func() string) *Generator {
	g := NewGenerator(concepts, items, opts, log)
	g.now = now
	g.newID = newID
	return g
}

// Generate builds the learning path for one diagnostic report. The concept
// graph is validated first; an invalid graph is a hard error surfaced to
// the content layer, never worked around.
func (g *Generator) Generate(ctx context.Context, jurisdiction string, report domain.DiagnosticReport, profile domain.StudentProfile) (domain.LearningPath, error) {
	if len(report.WeakTopics) == 0 {
		return g.examReadyPath(report, profile), nil
	}

	concepts, err := g.concepts.ListConcepts(ctx, jurisdiction)
	if err != nil {
		return domain.LearningPath{}, fmt.Errorf("list concepts: %w", err)
	}
	if validation := graph.Validate(concepts); !validation.IsValid {
		return domain.LearningPath{}, fmt.Errorf("%w: %v", domain.ErrCycleDetected, validation.Errors)
	}

	ordered, err := g.orderedWeakConcepts(report.WeakTopics, concepts)
	if err != nil {
		return domain.LearningPath{}, err
	}

	steps := g.buildSteps(ctx, ordered)
	steps = append(steps, domain.PathStep{
		Index:            len(steps),
		Type:             domain.StepAssessment,
		Title:            "Final readiness assessment",
		EstimatedMinutes: g.opts.AssessmentMinutes,
	})

	return g.assemble(report.StudentID, steps, profile), nil
}

// orderedWeakConcepts resolves weak topics to concepts, expands every one
// through its full prerequisite chain, and topologically sorts the
// deduplicated union so prerequisites precede dependents across all weak
// areas at once, not per concept in isolation.
func (g *Generator) orderedWeakConcepts(weakTopics []string, concepts []domain.ConceptNode) ([]domain.ConceptNode, error) {
	weak := make(map[string]struct{}, len(weakTopics))
	for _, t := range weakTopics {
		weak[t] = struct{}{}
	}

	union := make(map[string]domain.ConceptNode)
	for _, c := range concepts {
		if _, isWeak := weak[c.Topic]; !isWeak {
			continue
		}
		chain, err := graph.PrerequisiteChain(c.ID, concepts)
		if err != nil {
			return nil, fmt.Errorf("prerequisite chain for %s: %w", c.ID, err)
		}
		for _, node := range chain {
			union[node.ID] = node
		}
	}

	merged := make([]domain.ConceptNode, 0, len(union))
	for _, c := range concepts { // keep stable catalog order before sorting
		if node, ok := union[c.ID]; ok {
			merged = append(merged, node)
		}
	}
	return graph.TopologicalSort(merged)
}

// buildSteps emits a CONCEPT_STUDY step per concept, a PRACTICE_SET step
// when the similarity lookup has matching items, and a CHECKPOINT after
// every interval of emitted steps requiring the steps since the previous
// checkpoint.
func (g *Generator) buildSteps(ctx context.Context, ordered []domain.ConceptNode) []domain.PathStep {
	var steps []domain.PathStep
	sinceCheckpoint := 0

	appendStep := func(step domain.PathStep) {
		step.Index = len(steps)
		steps = append(steps, step)
		sinceCheckpoint++
		if sinceCheckpoint >= g.opts.CheckpointInterval {
			required := make([]int, 0, sinceCheckpoint)
			for i := len(steps) - sinceCheckpoint; i < len(steps); i++ {
				required = append(required, i)
			}
			steps = append(steps, domain.PathStep{
				Index:            len(steps),
				Type:             domain.StepCheckpoint,
				Title:            "Progress checkpoint",
				RequiredSteps:    required,
				EstimatedMinutes: 10,
			})
			sinceCheckpoint = 0
		}
	}

	for _, c := range ordered {
		studyMinutes := c.EstimatedStudyMinutes
		if studyMinutes <= 0 {
			studyMinutes = g.opts.DefaultStudyMinutes
		}
		appendStep(domain.PathStep{
			Type:             domain.StepConceptStudy,
			Title:            "Study: " + c.Name,
			ConceptID:        c.ID,
			ConceptName:      c.Name,
			EstimatedMinutes: studyMinutes,
		})

		itemIDs, err := g.items.FindItemsForConcept(ctx, c.ID, g.opts.ItemsPerConcept)
		if err != nil {
			g.log.Warn("practice item lookup failed", "concept_id", c.ID, "error", err)
			continue
		}
		if len(itemIDs) == 0 {
			// Content gap: worth surfacing to editors, not fatal.
			g.log.Info("no practice items for concept", "concept_id", c.ID)
			continue
		}
		appendStep(domain.PathStep{
			Type:             domain.StepPracticeSet,
			Title:            "Practice: " + c.Name,
			ConceptID:        c.ID,
			ConceptName:      c.Name,
			ItemIDs:          itemIDs,
			RequiredAccuracy: g.opts.RequiredAccuracy,
			EstimatedMinutes: len(itemIDs) * g.opts.PracticeMinutesPerItem,
		})
	}
	return steps
}

// examReadyPath is the hand-authored template for students with no weak
// topics: study tips plus two full practice exams.
func (g *Generator) examReadyPath(report domain.DiagnosticReport, profile domain.StudentProfile) domain.LearningPath {
	steps := []domain.PathStep{
		{
			Index:            0,
			Type:             domain.StepConceptStudy,
			Title:            "Exam strategy and test-day preparation",
			EstimatedMinutes: 30,
		},
		{
			Index:            1,
			Type:             domain.StepAssessment,
			Title:            "Full practice exam 1",
			EstimatedMinutes: g.opts.AssessmentMinutes,
		},
		{
			Index:            2,
			Type:             domain.StepAssessment,
			Title:            "Full practice exam 2",
			EstimatedMinutes: g.opts.AssessmentMinutes,
		},
	}
	return g.assemble(report.StudentID, steps, profile)
}

// assemble attaches milestones and duration estimates to a step sequence.
func (g *Generator) assemble(studentID string, steps []domain.PathStep, profile domain.StudentProfile) domain.LearningPath {
	totalMinutes := 0
	for _, s := range steps {
		totalMinutes += s.EstimatedMinutes
	}

	daily := profile.DailyGoalMinutes
	if daily <= 0 {
		daily = 30
	}
	days := int(math.Ceil(float64(totalMinutes) / (float64(daily) * profile.Pace.Multiplier())))
	if days < 1 {
		days = 1
	}

	return domain.LearningPath{
		ID:                    g.newID(),
		StudentID:             studentID,
		Steps:                 steps,
		Milestones:            milestonesFor(steps),
		TotalEstimatedMinutes: totalMinutes,
		EstimatedDays:         days,
		CreatedAt:             g.now(),
	}
}

// milestonesFor derives the 25%/50%/100% milestones: badge, practice-exam
// unlock, completion certificate. Each requires every step before its
// cut-off.
func milestonesFor(steps []domain.PathStep) []domain.Milestone {
	n := len(steps)
	if n == 0 {
		return nil
	}

	cutoff := func(fraction float64) []int {
		count := int(math.Ceil(fraction * float64(n)))
		if count < 1 {
			count = 1
		}
		required := make([]int, count)
		for i := range required {
			required[i] = i
		}
		return required
	}

	return []domain.Milestone{
		{ID: "milestone-25", Label: "Strong start", RequiredSteps: cutoff(0.25), Reward: domain.RewardBadge},
		{ID: "milestone-50", Label: "Halfway there", RequiredSteps: cutoff(0.50), Reward: domain.RewardUnlockExam},
		{ID: "milestone-100", Label: "Path complete", RequiredSteps: cutoff(1.0), Reward: domain.RewardCertificate},
	}
}
