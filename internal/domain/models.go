package domain

// Roles assigned to users at provisioning time.
const (
	RoleCandidate = "candidate"
	RoleAdmin     = "admin"
)

// The event runs a fixed set of four rounds.
const (
	RoundMCQ      = "round1"
	RoundDesign   = "round2"
	RoundExternal = "round3"
	RoundTopic    = "round4"
)

// RoundIDs lists all rounds in play order.
var RoundIDs = []string{RoundMCQ, RoundDesign, RoundExternal, RoundTopic}

// Round content types.
const (
	RoundTypeMCQ      = "mcq"
	RoundTypeDesign   = "design"
	RoundTypeExternal = "external"
	RoundTypeTopic    = "topic"
)

// Participant is a registered user. Team numbers are handed out first come
// first served; organizer accounts carry RoleAdmin and no team.
type Participant struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"passwordHash,omitempty"`
	Team         string `json:"team,omitempty"`
	TeamNumber   int    `json:"teamNumber,omitempty"`
	Role         string `json:"role"`
	RegisteredAt int64  `json:"registeredAt"` // epoch ms
}

// RoundConfig is the per-round gate and payload, mutable by admins.
type RoundConfig struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Type           string `json:"type"`
	Password       string `json:"password,omitempty"`
	TimeLimit      int    `json:"timeLimit"` // minutes
	TotalQuestions int    `json:"totalQuestions,omitempty"`
	IsActive       bool   `json:"isActive"`
	ChallengeLink  string `json:"challengeLink,omitempty"`
	PreviewSeconds int    `json:"previewSeconds,omitempty"`
}

// Answer records one MCQ selection.
type Answer struct {
	Selected int  `json:"selected"`
	Correct  bool `json:"correct"`
}

// Attempt is the persisted record of one participant's progress through one
// round. Its document id is the composite {participantID}_{roundID}, which
// guarantees at most one attempt per participant per round.
//
// StartTime is written exactly once and is the single source of truth for
// all elapsed-time math; Completed only ever flips false -> true.
type Attempt struct {
	ID            string `json:"id,omitempty"`
	ParticipantID string `json:"participantId"`
	RoundID       string `json:"roundId"`
	Team          string `json:"team,omitempty"`
	Name          string `json:"name,omitempty"`

	StartTime int64 `json:"startTime"` // epoch ms, immutable once set
	Completed bool  `json:"completed"`
	EndTime   int64 `json:"endTime,omitempty"`   // epoch ms
	TimeTaken int64 `json:"timeTaken,omitempty"` // seconds

	// Round 1 payload.
	CurrentQuestion int               `json:"currentQuestion,omitempty"`
	Answers         map[string]Answer `json:"answers,omitempty"`
	Score           *int              `json:"score,omitempty"`

	// Round 2 payload.
	ChallengeID   string `json:"challengeId,omitempty"`
	SubmittedHTML string `json:"submittedHtml,omitempty"`
	SubmittedCSS  string `json:"submittedCss,omitempty"`

	// Round 4 payload.
	TopicID string `json:"topicId,omitempty"`

	// Manual override entered by an organizer; beats Score everywhere.
	AdminScore *int `json:"adminScore,omitempty"`
}

// AttemptID builds the composite document id. Admin aggregation splits on the
// trailing _{roundID}, so the encoding must not change.
func AttemptID(participantID, roundID string) string {
	return participantID + "_" + roundID
}

// EffectiveScore resolves the admin-beats-auto precedence. The second return
// is false when neither score exists.
func (a *Attempt) EffectiveScore() (int, bool) {
	if a.AdminScore != nil {
		return *a.AdminScore, true
	}
	if a.Score != nil {
		return *a.Score, true
	}
	return 0, false
}

// Question is a stable round-1 quiz item.
type Question struct {
	ID            string   `json:"id"`
	Order         int      `json:"order"`
	Prompt        string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	RoundID       string   `json:"roundId"`
}

// DesignChallenge is a round-2 target artifact, assigned at random on start.
type DesignChallenge struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Desc string `json:"desc"`
	HTML string `json:"html,omitempty"`
	CSS  string `json:"css,omitempty"`
}

// Topic is a round-4 assignment subject.
type Topic struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Desc  string `json:"desc,omitempty"`
}

// Violation kinds reported by the browser client.
const (
	ViolationCopy       = "copy_attempt"
	ViolationPaste      = "paste_attempt"
	ViolationCut        = "cut_attempt"
	ViolationRightClick = "right_click"
	ViolationTabSwitch  = "tab_switch"
	ViolationWindowBlur = "window_blur"
	ViolationShortcut   = "keyboard_shortcut"
	ViolationDevTools   = "devtools_open"
)

// AntiCheatLog is the per-participant warning record. There is one log per
// participant, not per round; a violation anywhere bumps the global count.
type AntiCheatLog struct {
	ParticipantID   string `json:"participantId,omitempty"`
	Warnings        int    `json:"warnings"`
	LastViolation   string `json:"lastViolation,omitempty"`
	LastViolationAt int64  `json:"lastViolationAt,omitempty"` // epoch ms
	UnlockedAt      int64  `json:"unlockedAt,omitempty"`      // epoch ms
}

// RoundScore is a leaderboard cell; nil fields render as "not played".
type RoundScore struct {
	Score     *int   `json:"score"`
	TimeTaken *int64 `json:"timeTaken"` // seconds
}

// LeaderboardRow is one ranked participant.
type LeaderboardRow struct {
	ParticipantID string                `json:"participantId"`
	Name          string                `json:"name"`
	Team          string                `json:"team"`
	Rounds        map[string]RoundScore `json:"rounds"`
	TotalScore    int                   `json:"totalScore"`
	TotalTime     int64                 `json:"totalTime"` // seconds
}

// Leaderboard is the ordered scoreboard across all rounds.
type Leaderboard struct {
	Rows      []LeaderboardRow `json:"rows"`
	UpdatedAt int64            `json:"updatedAt"` // epoch ms
}
