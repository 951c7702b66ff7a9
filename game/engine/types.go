package engine

import "encoding/json"

// Mark is the content of a board cell
type Mark string

const (
	Empty  Mark = ""
	Circle Mark = "O"
	Cross  Mark = "X"

	// BoardSize is the number of cells on the 3x3 board
	BoardSize = 9
)

// MarshalJSON encodes the empty mark as null
func (m Mark) MarshalJSON() ([]byte, error) {
	if m == Empty {
		return []byte("null"), nil
	}
	return json.Marshal(string(m))
}

// UnmarshalJSON accepts null for the empty mark
func (m *Mark) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*m = Empty
		return nil
	}
	*m = Mark(*s)
	return nil
}

// Side identifies one of the two player slots. SideNone doubles as "no turn".
type Side string

const (
	SideNone   Side = ""
	SideCircle Side = "circlePlayer"
	SideCross  Side = "crossPlayer"
)

// Valid reports whether s names one of the two player slots
func (s Side) Valid() bool {
	return s == SideCircle || s == SideCross
}

// MarshalJSON encodes SideNone as null
func (s Side) MarshalJSON() ([]byte, error) {
	if s == SideNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

// UnmarshalJSON accepts null for SideNone
func (s *Side) UnmarshalJSON(data []byte) error {
	var v *string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*s = SideNone
		return nil
	}
	*s = Side(*v)
	return nil
}

// Opposite returns the other player slot
func Opposite(s Side) Side {
	switch s {
	case SideCircle:
		return SideCross
	case SideCross:
		return SideCircle
	}
	return SideNone
}

// MarkOf returns the mark placed by the occupant of side s
func MarkOf(s Side) Mark {
	switch s {
	case SideCircle:
		return Circle
	case SideCross:
		return Cross
	}
	return Empty
}

// SideOfMark is the inverse of MarkOf
func SideOfMark(m Mark) Side {
	switch m {
	case Circle:
		return SideCircle
	case Cross:
		return SideCross
	}
	return SideNone
}

// Board is the 3x3 grid in row-major order
type Board [BoardSize]Mark

// Phase is the lifecycle state of a game, derived from its fields
type Phase string

const (
	PhaseEmpty      Phase = "empty"
	PhaseWaiting    Phase = "waiting_for_players"
	PhaseReady      Phase = "ready"
	PhaseInProgress Phase = "in_progress"
	PhaseConcluded  Phase = "concluded"
)

// Outcome is the score result reported for one player
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLose Outcome = "lose"
	OutcomeDraw Outcome = "draw"
)

// Score is one outcome to be reported for a nick
type Score struct {
	Nick    string  `json:"nick"`
	Outcome Outcome `json:"outcome"`
}

// EventKind names an outbound game event
type EventKind string

const (
	EventSidePicked EventKind = "sidePicked"
	EventStartGame  EventKind = "startGame"
	EventMove       EventKind = "move"
	EventWinner     EventKind = "winner"
	EventStopGame   EventKind = "stopGame"
)

// ResultDraw is the winner label broadcast for a draw
const ResultDraw = "draw"

// Event is an outbound game event. Only the fields relevant to Kind are set.
type Event struct {
	Kind EventKind

	// sidePicked, startGame, winner
	Side Side
	// sidePicked (empty when the side was vacated), winner
	Nick string

	// move
	Cell int
	Mark Mark

	// winner: true when the game ended in a draw (Side is then SideNone)
	Draw      bool
	Surrender bool

	// stopGame
	Reason string
}

// Result collects what one accepted operation produced, in emission order
type Result struct {
	Events []Event
	Scores []Score
}

func (r *Result) emit(ev Event) {
	r.Events = append(r.Events, ev)
}

func (r *Result) score(nick string, outcome Outcome) {
	r.Scores = append(r.Scores, Score{Nick: nick, Outcome: outcome})
}

// Coin is the random source used to pick the starting side.
// *math/rand.Rand satisfies it.
type Coin interface {
	Intn(n int) int
}
