package model

// Riddle is the stored content of one riddle. Playtimes reference it by ID only.
type Riddle struct {
	ID         string   `json:"id" bson:"_id"`
	Text       string   `json:"text" bson:"text"`
	Hash       string   `json:"-" bson:"hash"`
	Answer     string   `json:"answer" bson:"answer"`
	Choices    []string `json:"choices,omitempty" bson:"choices,omitempty"`
	Category   string   `json:"category" bson:"category"`
	Difficulty string   `json:"difficulty,omitempty" bson:"difficulty,omitempty"`
}

// RiddleRef is a riddle slot inside a playtime. Done flips to true once
// the slot has been adjudicated.
type RiddleRef struct {
	ID   string `json:"id" bson:"id"`
	Done bool   `json:"done" bson:"done"`
}

// Category is a normalized riddle category name.
type Category struct {
	ID   string `json:"id" bson:"_id"`
	Name string `json:"name" bson:"name"`
}

// NewRiddleRefs returns fresh, not-done slots for the given riddle IDs.
func NewRiddleRefs(ids []string) []RiddleRef {
	refs := make([]RiddleRef, len(ids))
	for i, id := range ids {
		refs[i] = RiddleRef{ID: id}
	}
	return refs
}

// RiddleRefIDs projects the slot IDs in order.
func RiddleRefIDs(refs []RiddleRef) []string {
	ids := make([]string, len(refs))
	for i, r := range refs {
		ids[i] = r.ID
	}
	return ids
}
