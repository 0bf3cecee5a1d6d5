package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"riddlerush/internal/clock"
	"riddlerush/internal/content"
	"riddlerush/internal/model"
	"riddlerush/internal/repository"
	"riddlerush/internal/service"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func (m *memUsers) GetByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}

func (m *memUsers) GetOrCreate(ctx context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	u := &model.User{ID: "id-" + username, Username: username}
	m.users[username] = u
	return u, nil
}

type memPlaytimes struct {
	mu   sync.Mutex
	byID map[string]model.Playtime
}

func (m *memPlaytimes) Create(ctx context.Context, p *model.Playtime) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[p.ID] = copyPlaytime(*p)
	return nil
}

func (m *memPlaytimes) GetByID(ctx context.Context, id string) (*model.Playtime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	c := copyPlaytime(p)
	return &c, nil
}

func (m *memPlaytimes) Update(ctx context.Context, p *model.Playtime) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.byID[p.ID].Version != p.Version {
		return repository.ErrVersionConflict
	}
	p.Version++
	m.byID[p.ID] = copyPlaytime(*p)
	return nil
}

func (m *memPlaytimes) ListPlayingByUser(ctx context.Context, userID string) ([]*model.Playtime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Playtime
	for _, p := range m.byID {
		if p.UserID == userID && p.Playing {
			c := copyPlaytime(p)
			out = append(out, &c)
		}
	}
	return out, nil
}

func copyPlaytime(p model.Playtime) model.Playtime {
	p.Riddles = append([]model.RiddleRef(nil), p.Riddles...)
	p.Corrects = append([]string{}, p.Corrects...)
	p.Incorrects = append([]string{}, p.Incorrects...)
	p.Skipped = append([]string{}, p.Skipped...)
	return p
}

type memRiddles struct {
	byID map[string]*model.Riddle
}

func (m *memRiddles) GetByID(ctx context.Context, id string) (*model.Riddle, error) {
	return m.byID[id], nil
}

func (m *memRiddles) GetByHash(ctx context.Context, hash string) (*model.Riddle, error) {
	for _, r := range m.byID {
		if r.Hash == hash {
			return r, nil
		}
	}
	return nil, nil
}

func (m *memRiddles) Insert(ctx context.Context, riddle *model.Riddle) (string, error) {
	m.byID[riddle.ID] = riddle
	return riddle.ID, nil
}

func (m *memRiddles) SaveCategory(ctx context.Context, name string) (*model.Category, error) {
	return &model.Category{ID: name, Name: name}, nil
}

func newTestRouter() http.Handler {
	clk := clock.Fake(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	riddles := &memRiddles{byID: map[string]*model.Riddle{
		"r1": {ID: "r1", Text: "What has keys but opens no locks?", Answer: "A piano", Category: "logic"},
	}}
	return NewRouter(&Container{
		AuthService: service.NewAuthService(&memUsers{users: map[string]*model.User{}}, "test-secret"),
		SoloService: service.NewSoloService(&memPlaytimes{byID: map[string]model.Playtime{}}, nil, clk),
		Riddles:     content.NewProvider(nil, riddles, nil),
	})
}

func do(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, h http.Handler, username string) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/v1/auth/login", "", model.LoginRequest{Username: username})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp model.LoginResponse
	json.NewDecoder(rec.Body).Decode(&resp)
	return resp.Token
}

func TestHealthAndCORS(t *testing.T) {
	h := newTestRouter()

	rec := do(t, h, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != `{"status":"ok"}` {
		t.Errorf("health = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, h, http.MethodOptions, "/v1/rooms", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("preflight status = %d, want 200 without a token", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}

func TestLoginValidation(t *testing.T) {
	h := newTestRouter()
	rec := do(t, h, http.MethodPost, "/v1/auth/login", "", model.LoginRequest{Username: ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty username status = %d, want 400", rec.Code)
	}
}

func TestRoutesRequireToken(t *testing.T) {
	h := newTestRouter()
	paths := []struct{ method, path string }{
		{http.MethodGet, "/v1/solo/playtimes"},
		{http.MethodPost, "/v1/rooms"},
		{http.MethodGet, "/v1/rooms/r1/signals"},
		{http.MethodPost, "/v1/room-playtimes/p1/advance"},
		{http.MethodGet, "/v1/notifications"},
	}
	for _, p := range paths {
		if rec := do(t, h, p.method, p.path, "", nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token = %d, want 401", p.method, p.path, rec.Code)
		}
		if rec := do(t, h, p.method, p.path, "forged", nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s with forged token = %d, want 401", p.method, p.path, rec.Code)
		}
	}
}

func TestSoloPlaytimeFlow(t *testing.T) {
	h := newTestRouter()
	alice := login(t, h, "alice")
	bob := login(t, h, "bob")

	rec := do(t, h, http.MethodPost, "/v1/solo/playtimes", alice, model.CreatePlaytimeRequest{RiddleIDs: []string{"r1", "r2"}})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	var created map[string]string
	json.NewDecoder(rec.Body).Decode(&created)
	id := created["playtimeId"]

	rec = do(t, h, http.MethodPost, "/v1/solo/playtimes/"+id+"/advance", alice, map[string]string{"outcome": "guess"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown outcome status = %d, want 400", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/v1/solo/playtimes/"+id+"/advance", bob, model.AdvanceRequest{Outcome: model.OutcomeCorrect})
	if rec.Code != http.StatusForbidden {
		t.Errorf("other user's advance status = %d, want 403", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/v1/solo/playtimes/"+id+"/advance", alice, model.AdvanceRequest{Outcome: model.OutcomeCorrect, ExpectedRiddle: "r2"})
	if rec.Code != http.StatusConflict {
		t.Errorf("stale expected riddle status = %d, want 409", rec.Code)
	}

	rec = do(t, h, http.MethodPost, "/v1/solo/playtimes/"+id+"/advance", alice, model.AdvanceRequest{Outcome: model.OutcomeCorrect})
	if rec.Code != http.StatusOK {
		t.Fatalf("advance status = %d: %s", rec.Code, rec.Body.String())
	}
	var result model.SoloAdvanceResult
	json.NewDecoder(rec.Body).Decode(&result)
	want := model.SoloAdvanceResult{Previous: "r1", Current: "r2", Playing: true}
	if result != want {
		t.Errorf("advance = %+v, want %+v", result, want)
	}

	rec = do(t, h, http.MethodGet, "/v1/solo/playtimes/"+id, bob, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("other user's get status = %d, want 403", rec.Code)
	}

	rec = do(t, h, http.MethodGet, "/v1/solo/playtimes", alice, nil)
	var active []model.Playtime
	json.NewDecoder(rec.Body).Decode(&active)
	if len(active) != 1 || active[0].ID != id || len(active[0].Corrects) != 1 {
		t.Errorf("active playtimes = %+v", active)
	}

	rec = do(t, h, http.MethodGet, "/v1/solo/playtimes/missing", alice, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing playtime status = %d, want 404", rec.Code)
	}
}

func TestGetRiddle(t *testing.T) {
	h := newTestRouter()
	token := login(t, h, "alice")

	rec := do(t, h, http.MethodGet, "/v1/riddles/r1", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var got model.Riddle
	json.NewDecoder(rec.Body).Decode(&got)
	if got.ID != "r1" || got.Answer != "A piano" {
		t.Errorf("riddle = %+v", got)
	}

	if rec := do(t, h, http.MethodGet, "/v1/riddles/nope", token, nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing riddle status = %d, want 404", rec.Code)
	}
}
