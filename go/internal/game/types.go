package game

// Phase of a room's quiz session. The reveal pause is not a phase of its own:
// it is PhaseQuestion with the session locked.
type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhaseCountdown Phase = "countdown"
	PhaseQuestion  Phase = "question"
	PhaseFinished  Phase = "finished"
)

// Settings are the tunable rules of a session
type Settings struct {
	MinPlayers          int
	QuestionCount       int
	BasePoints          int
	SpeedBonusPerSecond int
}

func DefaultSettings() Settings {
	return Settings{
		MinPlayers:          2,
		QuestionCount:       15,
		BasePoints:          10,
		SpeedBonusPerSecond: 2,
	}
}

// Participant is a player's standing in one session. Inactive participants
// left mid-game and are kept so final results still list them.
type Participant struct {
	ConnID      string
	DisplayName string
	Score       int
	Active      bool
	Ready       bool
}

type PublicQuestion struct {
	Text    string   `json:"text"`
	Choices []string `json:"choices"`
}

type ScoreEntry struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Active bool   `json:"active"`
}

type ReadyEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
}

// Snapshot is the public view of a session. It never exposes the question
// pool or the choice permutations.
type Snapshot struct {
	RoomID     string          `json:"roomId"`
	Phase      Phase           `json:"phase"`
	Started    bool            `json:"started"`
	Finished   bool            `json:"finished"`
	Index      int             `json:"idx"`
	Total      int             `json:"total"`
	Locked     bool            `json:"locked"`
	Question   *PublicQuestion `json:"question"`
	Scores     []ScoreEntry    `json:"scores"`
	Ready      []ReadyEntry    `json:"ready"`
	MinPlayers int             `json:"minPlayers"`
	CanStart   bool            `json:"canStart"`
}

// ReviewItem is one question as a specific player saw it
type ReviewItem struct {
	Text                string   `json:"text"`
	Choices             []string `json:"choices"`
	CorrectDisplayIndex int      `json:"correctDisplayIndex"`
	YourIndex           *int     `json:"yourIndex"`
}

type AnswerResult struct {
	Accepted    bool
	Correct     bool
	Index       int
	Awarded     int
	AllAnswered bool
}
