package progress

import (
	"log"
	"sort"

	"riddlerush/internal/model"
)

// Score reduces a play log to bucket counts. When playerID is non-empty
// only entries played by that player are counted. Entries with an
// unknown result tag are logged and left out of every bucket, Total
// included.
func Score(play []model.PlayEntry, playerID string) model.ScoreCard {
	card := model.ScoreCard{PlayerID: playerID}
	for _, entry := range play {
		if playerID != "" && entry.PlayedBy != playerID {
			continue
		}
		if !tally(&card, entry.Result) {
			log.Printf("Warning: [Ledger] ignoring play entry %d with unknown result %q", entry.TurnIndex, entry.Result)
		}
	}
	return card
}

// ScoreByPlayer returns one card per player seen in the log, ordered by
// correct answers (desc) then player ID.
func ScoreByPlayer(play []model.PlayEntry) []model.ScoreCard {
	cards := make(map[string]*model.ScoreCard)
	for _, entry := range play {
		card, ok := cards[entry.PlayedBy]
		if !ok {
			card = &model.ScoreCard{PlayerID: entry.PlayedBy}
			cards[entry.PlayedBy] = card
		}
		if !tally(card, entry.Result) {
			log.Printf("Warning: [Ledger] ignoring play entry %d with unknown result %q", entry.TurnIndex, entry.Result)
		}
	}

	out := make([]model.ScoreCard, 0, len(cards))
	for _, card := range cards {
		out = append(out, *card)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Correct != out[j].Correct {
			return out[i].Correct > out[j].Correct
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out
}

func tally(card *model.ScoreCard, result model.Outcome) bool {
	switch result {
	case model.OutcomeCorrect:
		card.Correct++
	case model.OutcomeIncorrect:
		card.Incorrect++
	case model.OutcomeSkipped:
		card.Skipped++
	case model.OutcomeTimedOut:
		card.TimedOut++
	default:
		return false
	}
	card.Total++
	return true
}
