package content

import (
	"context"
	"encoding/hex"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"riddlerush/internal/cache"
	"riddlerush/internal/model"
	"riddlerush/internal/repository"
)

// Fetcher is the external source of riddles.
type Fetcher interface {
	Fetch(ctx context.Context, category string, count int) ([]FetchedRiddle, error)
}

// Provider resolves fetched riddles to stored riddle IDs.
type Provider struct {
	fetcher Fetcher
	riddles repository.RiddleRepo
	cache   cache.RiddleCache
}

// NewProvider creates a provider. riddleCache may be nil.
func NewProvider(fetcher Fetcher, riddles repository.RiddleRepo, riddleCache cache.RiddleCache) *Provider {
	return &Provider{fetcher: fetcher, riddles: riddles, cache: riddleCache}
}

// Hash is the dedupe key for a riddle: BLAKE3 over the trimmed,
// lower-cased text and answer.
func Hash(text, answer string) string {
	h := blake3.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(text))))
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(answer))))
	return hex.EncodeToString(h.Sum(nil))
}

// ResolveOrCreate returns the ID of the stored riddle with this content,
// storing it first if it is new.
func (p *Provider) ResolveOrCreate(ctx context.Context, text, answer, category string) (string, error) {
	hash := Hash(text, answer)
	existing, err := p.riddles.GetByHash(ctx, hash)
	if err != nil {
		return "", fmt.Errorf("lookup riddle: %w", err)
	}
	if existing != nil {
		return existing.ID, nil
	}

	riddle := &model.Riddle{
		ID:       uuid.New().String(),
		Text:     strings.TrimSpace(text),
		Hash:     hash,
		Answer:   strings.TrimSpace(answer),
		Category: NormalizeCategory(category),
	}
	id, err := p.riddles.Insert(ctx, riddle)
	if err != nil {
		return "", fmt.Errorf("store riddle: %w", err)
	}
	return id, nil
}

// FetchRiddleIDs fetches count riddles in category and returns their
// stored IDs in fetch order, without duplicates.
func (p *Provider) FetchRiddleIDs(ctx context.Context, category string, count int) ([]string, error) {
	category = NormalizeCategory(category)
	fetched, err := p.fetcher.Fetch(ctx, category, count)
	if err != nil {
		return nil, fmt.Errorf("fetch riddles: %w", err)
	}
	if _, err := p.riddles.SaveCategory(ctx, category); err != nil {
		log.Printf("Warning: [Content] failed to save category %q: %v", category, err)
	}

	ids := make([]string, 0, len(fetched))
	seen := make(map[string]bool, len(fetched))
	for _, r := range fetched {
		id, err := p.ResolveOrCreate(ctx, r.Text, r.Answer, category)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no riddles available for category %q", category)
	}
	return ids, nil
}

// Get returns stored riddle content by ID, or nil if there is none.
func (p *Provider) Get(ctx context.Context, id string) (*model.Riddle, error) {
	if p.cache != nil {
		if cached, err := p.cache.Get(ctx, id); err == nil && cached != nil {
			return cached, nil
		}
	}
	riddle, err := p.riddles.GetByID(ctx, id)
	if err != nil || riddle == nil {
		return riddle, err
	}
	if p.cache != nil {
		if err := p.cache.Set(ctx, riddle); err != nil {
			log.Printf("Warning: [Content] failed to cache riddle %s: %v", id, err)
		}
	}
	return riddle, nil
}
