package model

import (
	"strings"
	"time"
)

type SubmissionStatus string

const (
	StatusAccepted            SubmissionStatus = "Accepted"
	StatusWrongAnswer         SubmissionStatus = "WrongAnswer"
	StatusTimeLimitExceeded   SubmissionStatus = "TimeLimitExceeded"
	StatusMemoryLimitExceeded SubmissionStatus = "MemoryLimitExceeded"
	StatusCompilationError    SubmissionStatus = "CompilationError"
	StatusRuntimeError        SubmissionStatus = "RuntimeError"
	StatusOther               SubmissionStatus = "Other"
)

var verdictTable = map[Platform]map[string]SubmissionStatus{
	PlatformLeetCode: {
		"AC":                    StatusAccepted,
		"ACCEPTED":              StatusAccepted,
		"WA":                    StatusWrongAnswer,
		"WRONG ANSWER":          StatusWrongAnswer,
		"TLE":                   StatusTimeLimitExceeded,
		"TIME LIMIT EXCEEDED":   StatusTimeLimitExceeded,
		"MLE":                   StatusMemoryLimitExceeded,
		"MEMORY LIMIT EXCEEDED": StatusMemoryLimitExceeded,
		"CE":                    StatusCompilationError,
		"COMPILE ERROR":         StatusCompilationError,
		"RE":                    StatusRuntimeError,
		"RUNTIME ERROR":         StatusRuntimeError,
	},
	PlatformCodeforces: {
		"OK":                      StatusAccepted,
		"WRONG_ANSWER":            StatusWrongAnswer,
		"TIME_LIMIT_EXCEEDED":     StatusTimeLimitExceeded,
		"IDLENESS_LIMIT_EXCEEDED": StatusTimeLimitExceeded,
		"MEMORY_LIMIT_EXCEEDED":   StatusMemoryLimitExceeded,
		"COMPILATION_ERROR":       StatusCompilationError,
		"RUNTIME_ERROR":           StatusRuntimeError,
	},
}

// NormalizeVerdict maps a judge-specific verdict string to a SubmissionStatus.
// Only the normalized value may be used to decide whether a problem is solved.
func NormalizeVerdict(platform Platform, raw string) SubmissionStatus {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if table, ok := verdictTable[platform]; ok {
		if status, ok := table[key]; ok {
			return status
		}
	}
	return StatusOther
}

type Submission struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	Platform    Platform         `json:"platform"`
	ExternalID  string           `json:"external_id"`
	ProblemID   string           `json:"problem_id"`
	Verdict     SubmissionStatus `json:"verdict"`
	RawVerdict  string           `json:"raw_verdict"`
	Language    string           `json:"language,omitempty"`
	SubmittedAt time.Time        `json:"submitted_at"`
	CreatedAt   time.Time        `json:"created_at"`

	ProblemTitle *string `json:"problem_title,omitempty"` // For display
	ProblemSlug  *string `json:"problem_slug,omitempty"`  // For display
}

func (s Submission) IsAccepted() bool {
	return s.Verdict == StatusAccepted
}

// SubmissionFact is a submission joined with the problem attributes the
// scoring engine needs.
type SubmissionFact struct {
	Platform    Platform
	ProblemID   string
	Verdict     SubmissionStatus
	Difficulty  ProblemDifficulty
	Tags        []string
	SubmittedAt time.Time
}
