package content

import (
	"context"
	"errors"
	"testing"

	"riddlerush/internal/model"
)

type fakeFetcher struct {
	riddles []FetchedRiddle
	err     error
}

func (f *fakeFetcher) Fetch(ctx context.Context, category string, count int) ([]FetchedRiddle, error) {
	return f.riddles, f.err
}

type fakeRiddleRepo struct {
	byID       map[string]*model.Riddle
	categories []string
}

func newFakeRiddleRepo() *fakeRiddleRepo {
	return &fakeRiddleRepo{byID: make(map[string]*model.Riddle)}
}

func (r *fakeRiddleRepo) GetByID(ctx context.Context, id string) (*model.Riddle, error) {
	return r.byID[id], nil
}

func (r *fakeRiddleRepo) GetByHash(ctx context.Context, hash string) (*model.Riddle, error) {
	for _, riddle := range r.byID {
		if riddle.Hash == hash {
			return riddle, nil
		}
	}
	return nil, nil
}

func (r *fakeRiddleRepo) Insert(ctx context.Context, riddle *model.Riddle) (string, error) {
	r.byID[riddle.ID] = riddle
	return riddle.ID, nil
}

func (r *fakeRiddleRepo) SaveCategory(ctx context.Context, name string) (*model.Category, error) {
	r.categories = append(r.categories, name)
	return &model.Category{ID: name, Name: name}, nil
}

func TestHashNormalizes(t *testing.T) {
	a := Hash("What has keys?", "A piano")
	b := Hash("  what has KEYS? ", "a piano ")
	if a != b {
		t.Errorf("hashes differ: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64", len(a))
	}
	if Hash("ab", "c") == Hash("a", "bc") {
		t.Error("text/answer boundary is not part of the hash")
	}
}

func TestResolveOrCreateDedupes(t *testing.T) {
	repo := newFakeRiddleRepo()
	p := NewProvider(nil, repo, nil)
	ctx := context.Background()

	first, err := p.ResolveOrCreate(ctx, "What has keys?", "A piano", "Funny")
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	second, err := p.ResolveOrCreate(ctx, "what has keys?", "a piano", "funny")
	if err != nil {
		t.Fatalf("ResolveOrCreate: %v", err)
	}
	if first != second {
		t.Errorf("ids differ: %s vs %s", first, second)
	}
	if len(repo.byID) != 1 {
		t.Errorf("stored %d riddles, want 1", len(repo.byID))
	}
	if got := repo.byID[first].Category; got != "funny" {
		t.Errorf("category = %q, want funny", got)
	}
}

func TestFetchRiddleIDs(t *testing.T) {
	repo := newFakeRiddleRepo()
	fetcher := &fakeFetcher{riddles: []FetchedRiddle{
		{Text: "one", Answer: "1"},
		{Text: "two", Answer: "2"},
		{Text: "ONE", Answer: "1"},
	}}
	p := NewProvider(fetcher, repo, nil)

	ids, err := p.FetchRiddleIDs(context.Background(), " Logic", 3)
	if err != nil {
		t.Fatalf("FetchRiddleIDs: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2", len(ids))
	}
	if repo.byID[ids[0]].Text != "one" || repo.byID[ids[1]].Text != "two" {
		t.Errorf("ids out of fetch order")
	}
	if len(repo.categories) != 1 || repo.categories[0] != "logic" {
		t.Errorf("categories = %v, want [logic]", repo.categories)
	}
}

func TestFetchRiddleIDsEmpty(t *testing.T) {
	p := NewProvider(&fakeFetcher{}, newFakeRiddleRepo(), nil)
	if _, err := p.FetchRiddleIDs(context.Background(), "logic", 3); err == nil {
		t.Fatal("expected error for empty fetch")
	}
}

func TestFetchRiddleIDsFetchError(t *testing.T) {
	boom := errors.New("boom")
	p := NewProvider(&fakeFetcher{err: boom}, newFakeRiddleRepo(), nil)
	if _, err := p.FetchRiddleIDs(context.Background(), "logic", 3); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped boom", err)
	}
}
