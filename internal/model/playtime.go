package model

import "time"

// Outcome classifies how one riddle attempt ended.
type Outcome string

const (
	OutcomeCorrect   Outcome = "correct"
	OutcomeIncorrect Outcome = "incorrect"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeTimedOut  Outcome = "timedOut"
)

// Valid reports whether o is one of the known outcome tags.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeCorrect, OutcomeIncorrect, OutcomeSkipped, OutcomeTimedOut:
		return true
	}
	return false
}

// Playtime is a single-player session over an ordered list of riddles.
type Playtime struct {
	ID               string      `json:"id" bson:"_id"`
	UserID           string      `json:"userId" bson:"userId"`
	Riddles          []RiddleRef `json:"riddles" bson:"riddles"`
	Corrects         []string    `json:"corrects" bson:"corrects"`
	Incorrects       []string    `json:"incorrects" bson:"incorrects"`
	Skipped          []string    `json:"skipped" bson:"skipped"`
	Playing          bool        `json:"playing" bson:"playing"`
	SecondsPerRiddle int         `json:"secondsPerRiddle" bson:"secondsPerRiddle"`
	Previous         string      `json:"previous,omitempty" bson:"previous,omitempty"`
	Current          string      `json:"current,omitempty" bson:"current,omitempty"`
	Next             string      `json:"next,omitempty" bson:"next,omitempty"`
	Version          int64       `json:"version" bson:"version"`
	CreatedAt        time.Time   `json:"createdAt" bson:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt" bson:"updatedAt"`
}

// Answered is the number of riddles placed in any outcome bucket.
func (p *Playtime) Answered() int {
	return len(p.Corrects) + len(p.Incorrects) + len(p.Skipped)
}

// Finished is the caller-side completion check: every riddle has been
// bucketed. The engine itself only flips Playing.
func (p *Playtime) Finished() bool {
	return p.Answered() >= len(p.Riddles)
}

// SoloAdvanceResult is returned after a solo advance.
type SoloAdvanceResult struct {
	Previous string `json:"previous,omitempty"`
	Current  string `json:"current,omitempty"`
	Next     string `json:"next,omitempty"`
	Playing  bool   `json:"playing"`
}

// CreatePlaytimeRequest creates a solo playtime from known riddle IDs.
type CreatePlaytimeRequest struct {
	RiddleIDs        []string `json:"riddleIds"`
	SecondsPerRiddle int      `json:"secondsPerRiddle"`
}

// SoloSessionRequest creates a solo playtime from freshly fetched riddles.
type SoloSessionRequest struct {
	Category         string `json:"category"`
	Count            int    `json:"count"`
	SecondsPerRiddle int    `json:"secondsPerRiddle"`
}

// AdvanceRequest carries the outcome for one advance call. ExpectedRiddle
// is optional; when set, the advance only applies if that riddle is
// still current.
type AdvanceRequest struct {
	Outcome        Outcome `json:"outcome"`
	ExpectedRiddle string  `json:"expectedRiddle,omitempty"`
}
