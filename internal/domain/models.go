package domain

import "time"

// Difficulty labels items whose IRT parameters have not been calibrated yet.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "EASY"
	DifficultyMedium Difficulty = "MEDIUM"
	DifficultyHard   Difficulty = "HARD"
)

// ItemParams is the 3PL triple: discrimination (a), difficulty (b), guessing (c).
// Immutable once calibrated.
type ItemParams struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
}

// DefaultParams maps an editorial difficulty label onto a conservative
// uncalibrated triple.
func DefaultParams(d Difficulty) ItemParams {
	p := ItemParams{A: 1.0, B: 0, C: 0.25}
	switch d {
	case DifficultyEasy:
		p.B = -0.5
	case DifficultyHard:
		p.B = 0.5
	}
	return p
}

// Valid reports whether the triple lies in the calibrated ranges
// a in [0.1,3.0], b in [-4,4], c in [0,0.5].
func (p ItemParams) Valid() bool {
	return p.A >= 0.1 && p.A <= 3.0 &&
		p.B >= -4 && p.B <= 4 &&
		p.C >= 0 && p.C <= 0.5
}

// Option represents a possible answer for an item.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// Item is a bank question with its IRT parameters (nil until calibrated;
// callers fall back to DefaultParams).
type Item struct {
	ID            string      `json:"id"`
	Jurisdiction  string      `json:"jurisdiction"`
	Topic         string      `json:"topic"`
	CognitiveType string      `json:"cognitiveType"`
	Difficulty    Difficulty  `json:"difficulty"`
	Prompt        string      `json:"prompt"`
	Options       []Option    `json:"options"`
	Params        *ItemParams `json:"params,omitempty"`
	TimesUsed     int         `json:"timesUsed"`
	Active        bool        `json:"active"`
}

// EffectiveParams returns the calibrated triple or the difficulty default.
func (i Item) EffectiveParams() ItemParams {
	if i.Params != nil {
		return *i.Params
	}
	return DefaultParams(i.Difficulty)
}

// CorrectOptionID returns the ID of the first option flagged correct.
func (i Item) CorrectOptionID() string {
	for _, opt := range i.Options {
		if opt.Correct {
			return opt.ID
		}
	}
	return ""
}

// AbilityEstimate pairs theta with its standard error.
type AbilityEstimate struct {
	Theta         float64 `json:"theta"`
	StandardError float64 `json:"standardError"`
}

// ResponseRecord is the append-only audit entry for a single administered
// item. Never edited after creation; ability re-estimation replays these.
type ResponseRecord struct {
	Sequence       int        `json:"sequence"`
	ItemID         string     `json:"itemId"`
	Topic          string     `json:"topic"`
	Params         ItemParams `json:"params"`
	ThetaBefore    float64    `json:"thetaBefore"`
	SEBefore       float64    `json:"seBefore"`
	ThetaAfter     float64    `json:"thetaAfter"`
	SEAfter        float64    `json:"seAfter"`
	Information    float64    `json:"information"`
	SelectedAnswer string     `json:"selectedAnswer"`
	CorrectAnswer  string     `json:"correctAnswer"`
	Correct        bool       `json:"correct"`
	ElapsedSeconds float64    `json:"elapsedSeconds"`
	AnsweredAt     time.Time  `json:"answeredAt"`
}

// CoverageState counts administered items per topic, cognitive type and
// difficulty. Incremented once per item, never rolled back.
type CoverageState struct {
	ByTopic         map[string]int `json:"byTopic"`
	ByCognitiveType map[string]int `json:"byCognitiveType"`
	ByDifficulty    map[string]int `json:"byDifficulty"`
	TotalQuestions  int            `json:"totalQuestions"`
}

// NewCoverageState returns empty counters.
func NewCoverageState() CoverageState {
	return CoverageState{
		ByTopic:         make(map[string]int),
		ByCognitiveType: make(map[string]int),
		ByDifficulty:    make(map[string]int),
	}
}

// RecordItem increments the counters for one administered item.
func (c *CoverageState) RecordItem(item Item) {
	c.ByTopic[item.Topic]++
	c.ByCognitiveType[item.CognitiveType]++
	c.ByDifficulty[string(item.Difficulty)]++
	c.TotalQuestions++
}

// SessionStatus is the assessment lifecycle state; transitions only forward.
type SessionStatus string

const (
	StatusInitialized SessionStatus = "INITIALIZED"
	StatusInProgress  SessionStatus = "IN_PROGRESS"
	StatusCompleted   SessionStatus = "COMPLETED"
)

// SessionConfig tunes a single adaptive assessment.
type SessionConfig struct {
	Jurisdiction    string         `json:"jurisdiction" yaml:"jurisdiction"`
	StartingTheta   float64        `json:"startingTheta" yaml:"starting_theta"`
	MinQuestions    int            `json:"minQuestions" yaml:"min_questions"`
	MaxQuestions    int            `json:"maxQuestions" yaml:"max_questions"`
	SEThreshold     float64        `json:"seThreshold" yaml:"se_threshold"`
	TopicMinimums   map[string]int `json:"topicMinimums" yaml:"topic_minimums"`
	ExposureControl bool           `json:"exposureControl" yaml:"exposure_control"`
	Randomness      float64        `json:"randomness" yaml:"randomness"` // in [0,1]
	WeakThreshold   float64        `json:"weakThreshold" yaml:"weak_threshold"`
	StrongThreshold float64        `json:"strongThreshold" yaml:"strong_threshold"`
}

// SessionState is the full state of one assessment attempt. Becomes
// immutable (except report generation) once COMPLETED.
type SessionState struct {
	ID             string           `json:"id"`
	StudentID      string           `json:"studentId"`
	Config         SessionConfig    `json:"config"`
	CurrentTheta   float64          `json:"currentTheta"`
	CurrentSE      float64          `json:"currentSE"`
	QuestionsAsked int              `json:"questionsAsked"`
	Responses      []ResponseRecord `json:"responses"`
	Coverage       CoverageState    `json:"coverage"`
	Status         SessionStatus    `json:"status"`
	StartedAt      time.Time        `json:"startedAt"`
	CompletedAt    *time.Time       `json:"completedAt,omitempty"`
	// EndReason records why the session completed: a termination reason or
	// the no-content condition.
	EndReason string `json:"endReason,omitempty"`
}

// UsedItemIDs returns the set of items already administered in this session.
func (s *SessionState) UsedItemIDs() map[string]struct{} {
	used := make(map[string]struct{}, len(s.Responses))
	for _, r := range s.Responses {
		used[r.ItemID] = struct{}{}
	}
	return used
}

// TerminationDecision explains whether and why an assessment should end.
type TerminationDecision struct {
	ShouldTerminate bool            `json:"shouldTerminate"`
	Reason          string          `json:"reason"`
	MetCriteria     map[string]bool `json:"metCriteria"`
}

// Termination reasons surfaced to the UI.
const (
	ReasonMaxQuestions     = "max_questions_reached"
	ReasonPrecisionReached = "precision_threshold_met"
	ReasonNoContent        = "no_content_available"
)

// Readiness buckets the estimated exam score.
type Readiness string

const (
	ReadinessExamReady  Readiness = "EXAM_READY"
	ReadinessReady      Readiness = "READY"
	ReadinessDeveloping Readiness = "DEVELOPING"
	ReadinessNotReady   Readiness = "NOT_READY"
)

// TopicPerformance aggregates accuracy for one topic across a session.
type TopicPerformance struct {
	Topic    string  `json:"topic"`
	Asked    int     `json:"asked"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// DiagnosticReport is the outcome of a completed assessment and the input
// to path generation.
type DiagnosticReport struct {
	SessionID          string             `json:"sessionId"`
	StudentID          string             `json:"studentId"`
	Theta              float64            `json:"theta"`
	StandardError      float64            `json:"standardError"`
	ConfidenceLow      float64            `json:"confidenceLow"`
	ConfidenceHigh     float64            `json:"confidenceHigh"`
	EstimatedExamScore float64            `json:"estimatedExamScore"`
	Readiness          Readiness          `json:"readiness"`
	Topics             []TopicPerformance `json:"topics"`
	WeakTopics         []string           `json:"weakTopics"`
	StrongTopics       []string           `json:"strongTopics"`
	GeneratedAt        time.Time          `json:"generatedAt"`
}

// ConceptNode is one node of the prerequisite DAG. Prerequisites reference
// other concepts by id only; adjacency is rebuilt per operation.
type ConceptNode struct {
	ID                    string   `json:"id"`
	Jurisdiction          string   `json:"jurisdiction"`
	Name                  string   `json:"name"`
	Topic                 string   `json:"topic"`
	Prerequisites         []string `json:"prerequisites"`
	EstimatedStudyMinutes int      `json:"estimatedStudyMinutes"`
	AvgCompletionSeconds  float64  `json:"avgCompletionSeconds"`
}

// GraphStats summarizes the structure of a concept graph.
type GraphStats struct {
	ConceptCount int `json:"conceptCount"`
	EdgeCount    int `json:"edgeCount"`
	RootCount    int `json:"rootCount"`
	LeafCount    int `json:"leafCount"`
	MaxDepth     int `json:"maxDepth"`
}

// GraphValidation is the result of validating a concept graph.
type GraphValidation struct {
	IsValid  bool       `json:"isValid"`
	Errors   []string   `json:"errors"`
	Warnings []string   `json:"warnings"`
	Stats    GraphStats `json:"stats"`
}

// Attempt is one practice attempt against a concept's items.
type Attempt struct {
	IsCorrect   bool      `json:"isCorrect"`
	TimeSeconds float64   `json:"timeSeconds"`
	AttemptedAt time.Time `json:"attemptedAt"`
}

// MasteryLevel buckets the overall mastery score.
type MasteryLevel string

const (
	LevelMastery    MasteryLevel = "MASTERY"
	LevelProficient MasteryLevel = "PROFICIENT"
	LevelDeveloping MasteryLevel = "DEVELOPING"
	LevelNovice     MasteryLevel = "NOVICE"
)

// MasteryScore is the five-factor mastery breakdown for one
// (student, concept) pair. Derived on demand, cached but never authoritative.
type MasteryScore struct {
	RecentAccuracy  float64      `json:"recentAccuracy"`
	OverallAccuracy float64      `json:"overallAccuracy"`
	TimeEfficiency  float64      `json:"timeEfficiency"`
	Consistency     float64      `json:"consistency"`
	Retention       float64      `json:"retention"`
	Overall         float64      `json:"overall"`
	Level           MasteryLevel `json:"level"`
}

// StepType discriminates the learning-path step variants.
type StepType string

const (
	StepConceptStudy StepType = "CONCEPT_STUDY"
	StepPracticeSet  StepType = "PRACTICE_SET"
	StepCheckpoint   StepType = "CHECKPOINT"
	StepAssessment   StepType = "ASSESSMENT"
)

// PathStep is one ordered step of a generated path. Type decides which
// fields are populated: concept steps carry ConceptID/ConceptName, practice
// steps additionally ItemIDs and RequiredAccuracy, checkpoints carry
// RequiredSteps.
type PathStep struct {
	Index            int      `json:"index"`
	Type             StepType `json:"type"`
	Title            string   `json:"title"`
	ConceptID        string   `json:"conceptId,omitempty"`
	ConceptName      string   `json:"conceptName,omitempty"`
	ItemIDs          []string `json:"itemIds,omitempty"`
	RequiredAccuracy float64  `json:"requiredAccuracy,omitempty"`
	RequiredSteps    []int    `json:"requiredSteps,omitempty"`
	EstimatedMinutes int      `json:"estimatedMinutes"`
}

// RewardType enumerates what a milestone dispatches on unlock.
type RewardType string

const (
	RewardBadge       RewardType = "BADGE"
	RewardXP          RewardType = "XP"
	RewardUnlockExam  RewardType = "UNLOCK_EXAM"
	RewardCertificate RewardType = "CERTIFICATE"
)

// Milestone unlocks a reward once every required step is complete.
type Milestone struct {
	ID            string     `json:"id"`
	Label         string     `json:"label"`
	RequiredSteps []int      `json:"requiredSteps"`
	Reward        RewardType `json:"reward"`
}

// Reward is one granted reward ledger entry.
type Reward struct {
	StudentID   string     `json:"studentId"`
	MilestoneID string     `json:"milestoneId"`
	Type        RewardType `json:"type"`
	XP          int        `json:"xp,omitempty"`
	GrantedAt   time.Time  `json:"grantedAt"`
}

// Pace is the student's self-reported study pace.
type Pace string

const (
	PaceSlow   Pace = "SLOW"
	PaceMedium Pace = "MEDIUM"
	PaceFast   Pace = "FAST"
)

// Multiplier maps pace onto the daily-minutes multiplier used for duration
// estimates.
func (p Pace) Multiplier() float64 {
	switch p {
	case PaceSlow:
		return 0.7
	case PaceFast:
		return 1.3
	default:
		return 1.0
	}
}

// StudentProfile is the slice of the student record path generation needs.
type StudentProfile struct {
	StudentID        string  `json:"studentId"`
	Theta            float64 `json:"theta"`
	Pace             Pace    `json:"pace"`
	DailyGoalMinutes int     `json:"dailyGoalMinutes"`
}

// LearningPath is an immutable ordered step sequence plus milestones.
type LearningPath struct {
	ID                    string      `json:"id"`
	StudentID             string      `json:"studentId"`
	Steps                 []PathStep  `json:"steps"`
	Milestones            []Milestone `json:"milestones"`
	TotalEstimatedMinutes int         `json:"totalEstimatedMinutes"`
	EstimatedDays         int         `json:"estimatedDays"`
	CreatedAt             time.Time   `json:"createdAt"`
}
