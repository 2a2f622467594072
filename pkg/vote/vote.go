package vote

// Direction is a vote request: up or down.
type Direction int8

const (
	Down Direction = iota - 1
	_
	Up
)

// State is the current position of a single voter on a single item.
type State int8

const (
	StateDown State = iota - 1
	StateNone
	StateUp
)

func (s State) String() string {
	switch s {
	case StateUp:
		return "up"
	case StateDown:
		return "down"
	}
	return "none"
}

// Ledger tracks which users voted which way on one item. It is embedded
// into posts and comments and persisted alongside them.
type Ledger struct {
	Upvoters   []int64 `bson:"upvoters"`
	Downvoters []int64 `bson:"downvoters"`
}

// NewLedger seeds the author's automatic upvote.
func NewLedger(author int64) Ledger {
	return Ledger{Upvoters: []int64{author}, Downvoters: []int64{}}
}

// State reports the voter's current position.
func (l *Ledger) State(voter int64) State {
	if contains(l.Upvoters, voter) {
		return StateUp
	}
	if contains(l.Downvoters, voter) {
		return StateDown
	}
	return StateNone
}

// Apply runs one transition of the vote state machine and returns the new
// state and the score delta. Casting the same direction twice toggles the
// vote off; casting the opposite direction flips it. A voter is never left
// in both sets.
func (l *Ledger) Apply(voter int64, d Direction) (State, int) {
	cur := l.State(voter)

	l.Upvoters = remove(l.Upvoters, voter)
	l.Downvoters = remove(l.Downvoters, voter)

	switch {
	case d == Up && cur == StateUp:
		return StateNone, -1
	case d == Down && cur == StateDown:
		return StateNone, +1
	case d == Up:
		l.Upvoters = append(l.Upvoters, voter)
		if cur == StateDown {
			return StateUp, +2
		}
		return StateUp, +1
	default:
		l.Downvoters = append(l.Downvoters, voter)
		if cur == StateUp {
			return StateDown, -2
		}
		return StateDown, -1
	}
}

// Vote is the wire representation of a single cast vote.
type Vote struct {
	User int64 `json:"user"`
	Vote int8  `json:"vote"`
}

// Votes flattens the ledger for responses: upvoters first, then downvoters.
func (l *Ledger) Votes() []*Vote {
	votes := make([]*Vote, 0, len(l.Upvoters)+len(l.Downvoters))
	for _, u := range l.Upvoters {
		votes = append(votes, &Vote{User: u, Vote: 1})
	}
	for _, u := range l.Downvoters {
		votes = append(votes, &Vote{User: u, Vote: -1})
	}
	return votes
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func remove(ids []int64, id int64) []int64 {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
