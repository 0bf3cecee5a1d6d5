package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"riddlerush/internal/clock"
	"riddlerush/internal/model"
	"riddlerush/internal/progress"
	"riddlerush/internal/repository"
)

// RiddleSource turns a category and count into stored riddle IDs.
type RiddleSource interface {
	FetchRiddleIDs(ctx context.Context, category string, count int) ([]string, error)
}

const maxRiddlesPerPlaytime = 50

// SoloService runs single-player playtimes
type SoloService struct {
	playtimes repository.PlaytimeRepo
	riddles   RiddleSource
	clock     clock.Clock
}

// NewSoloService creates a new solo service
func NewSoloService(playtimes repository.PlaytimeRepo, riddles RiddleSource, clk clock.Clock) *SoloService {
	return &SoloService{
		playtimes: playtimes,
		riddles:   riddles,
		clock:     clk,
	}
}

// CreatePlaytime starts a solo playtime over riddleIDs with the pointer on
// the first riddle.
func (s *SoloService) CreatePlaytime(ctx context.Context, userID string, riddleIDs []string, secondsPerRiddle int) (*model.Playtime, error) {
	if len(riddleIDs) == 0 {
		return nil, fmt.Errorf("%w: at least one riddle is required", ErrInvalidInput)
	}
	if secondsPerRiddle < 0 {
		return nil, fmt.Errorf("%w: secondsPerRiddle must not be negative", ErrInvalidInput)
	}

	refs := model.NewRiddleRefs(riddleIDs)
	first := progress.NextPending(refs, 0)
	ptr := progress.RiddleAt(refs, first)

	playtime := &model.Playtime{
		ID:               uuid.New().String(),
		UserID:           userID,
		Riddles:          refs,
		Corrects:         []string{},
		Incorrects:       []string{},
		Skipped:          []string{},
		Playing:          !ptr.Empty(),
		SecondsPerRiddle: secondsPerRiddle,
		Previous:         ptr.Previous,
		Current:          ptr.Current,
		Next:             ptr.Next,
	}
	if err := s.playtimes.Create(ctx, playtime); err != nil {
		return nil, fmt.Errorf("failed to create playtime: %w", err)
	}

	log.Printf("[Solo] Created playtime %s for %s with %d riddles", playtime.ID, userID, len(refs))
	return playtime, nil
}

// CreateSession fetches riddles for the request and starts a playtime
// over them.
func (s *SoloService) CreateSession(ctx context.Context, userID string, req model.SoloSessionRequest) (*model.Playtime, error) {
	if req.Count <= 0 || req.Count > maxRiddlesPerPlaytime {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", ErrInvalidInput, maxRiddlesPerPlaytime)
	}
	ids, err := s.riddles.FetchRiddleIDs(ctx, req.Category, req.Count)
	if err != nil {
		return nil, err
	}
	return s.CreatePlaytime(ctx, userID, ids, req.SecondsPerRiddle)
}

func (s *SoloService) Get(ctx context.Context, id string) (*model.Playtime, error) {
	playtime, err := s.playtimes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if playtime == nil {
		return nil, fmt.Errorf("playtime %s: %w", id, ErrNotFound)
	}
	return playtime, nil
}

// ListActive returns the user's playtimes that are still playing.
func (s *SoloService) ListActive(ctx context.Context, userID string) ([]*model.Playtime, error) {
	return s.playtimes.ListPlayingByUser(ctx, userID)
}

// Advance adjudicates the current riddle with req.Outcome and moves the
// pointer to the next pending riddle. An empty userID skips the owner
// check.
func (s *SoloService) Advance(ctx context.Context, id, userID string, req model.AdvanceRequest) (*model.SoloAdvanceResult, error) {
	playtime, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if userID != "" && playtime.UserID != userID {
		return nil, fmt.Errorf("playtime %s belongs to another user: %w", id, ErrForbidden)
	}
	if req.ExpectedRiddle != "" && req.ExpectedRiddle != playtime.Current {
		return nil, fmt.Errorf("riddle %s is no longer current: %w", req.ExpectedRiddle, ErrConflict)
	}

	advanceSolo(playtime, req.Outcome)

	if err := s.playtimes.Update(ctx, playtime); err != nil {
		return nil, fmt.Errorf("failed to save playtime %s: %w", id, conflictOr(err))
	}

	return &model.SoloAdvanceResult{
		Previous: playtime.Previous,
		Current:  playtime.Current,
		Next:     playtime.Next,
		Playing:  playtime.Playing,
	}, nil
}

// advanceSolo applies one advance to p in place.
func advanceSolo(p *model.Playtime, outcome model.Outcome) {
	idx := progress.IndexOfRiddle(p.Riddles, p.Current)
	if idx != progress.NoIndex && p.Riddles[idx].Done {
		log.Printf("Warning: [Solo] playtime %s points at finished riddle %s", p.ID, p.Current)
		idx = progress.NoIndex
	}
	if idx == progress.NoIndex {
		idx = progress.NextPending(p.Riddles, 0)
	}
	if idx == progress.NoIndex {
		p.Playing = false
		p.Previous, p.Current, p.Next = "", "", ""
		return
	}

	riddleID := p.Riddles[idx].ID
	p.Riddles[idx].Done = true
	switch outcome {
	case model.OutcomeCorrect:
		p.Corrects = append(p.Corrects, riddleID)
	case model.OutcomeIncorrect:
		p.Incorrects = append(p.Incorrects, riddleID)
	case model.OutcomeSkipped:
		p.Skipped = append(p.Skipped, riddleID)
	default:
		if outcome != model.OutcomeTimedOut {
			log.Printf("Warning: [Solo] unknown outcome %q for playtime %s, counting as skipped", outcome, p.ID)
		}
		p.Skipped = append(p.Skipped, riddleID)
	}

	next := progress.NextPending(p.Riddles, idx+1)
	ptr := progress.RiddleAt(p.Riddles, next)
	p.Previous, p.Current, p.Next = ptr.Previous, ptr.Current, ptr.Next
	p.Playing = !ptr.Empty()
}
