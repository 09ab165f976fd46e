package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"

	"github.com/zuccone/super-lunch-buddies/internal/apperr"
	"github.com/zuccone/super-lunch-buddies/internal/models"
	"github.com/zuccone/super-lunch-buddies/internal/observability"
	"github.com/zuccone/super-lunch-buddies/internal/store"
)

// Pipeline state per group.
const (
	StateIdle       = "idle"
	StateRequesting = "requesting"
)

// Merger persists a fresh recommendation set for a group. It returns
// store.ErrNotFound when the group no longer exists, which the pipeline
// treats as a discard.
type Merger interface {
	ReplaceRecommendations(ctx context.Context, groupID string, recs []models.Recommendation) error
}

// Coords is an optional precise user location for the bonus step.
type Coords struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Request is everything one pipeline run needs, captured at dispatch time.
// The group id doubles as the request token: a late result is merged into
// this group and no other, so switching the active selection mid-flight can
// never route the result to the wrong group.
type Request struct {
	GroupID         string
	Roster          []models.AttendanceEntry
	Vibe            string
	Catalog         []models.Restaurant
	DefaultLocation string
	Coords          *Coords
}

// Pipeline runs the two-step vibe recommendation flow. Each invocation is a
// single best-effort attempt with no retries and no cancellation once
// dispatched; callers enforce one in-flight request per group.
type Pipeline struct {
	gen    Generator
	merger Merger

	mu     sync.Mutex
	states map[string]string
}

// NewPipeline builds a Pipeline.
func NewPipeline(gen Generator, merger Merger) *Pipeline {
	return &Pipeline{gen: gen, merger: merger, states: make(map[string]string)}
}

// State reports the per-group pipeline state.
func (p *Pipeline) State(groupID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.states[groupID]; ok {
		return s
	}
	return StateIdle
}

func (p *Pipeline) setState(groupID, s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s == StateIdle {
		delete(p.states, groupID)
		return
	}
	p.states[groupID] = s
}

// Run executes shortlist and bonus generation and merges the result.
//
// The shortlist failing aborts the whole run with nothing written. The bonus
// step is independent: its failure degrades to a shortlist-only result. The
// merge wholly replaces the group's previous recommendations.
func (p *Pipeline) Run(ctx context.Context, req Request) ([]models.Recommendation, error) {
	if len(req.Catalog) == 0 {
		return nil, apperr.Validation("add some restaurants first")
	}
	if strings.TrimSpace(req.Vibe) == "" && !anySuggestion(req.Roster) {
		return nil, apperr.Validation("describe the lunch vibe or add individual suggestions")
	}

	ctx, span := otel.Tracer("super-lunch-buddies/suggest").Start(ctx, "pipeline.run")
	defer span.End()

	p.setState(req.GroupID, StateRequesting)
	defer p.setState(req.GroupID, StateIdle)

	recs, err := p.shortlist(ctx, req)
	if err != nil {
		observability.IncSuggestion("shortlist", "error")
		return nil, err
	}
	observability.IncSuggestion("shortlist", "ok")

	if bonus, err := p.bonus(ctx, req); err != nil {
		observability.IncSuggestion("bonus", "error")
		log.Printf("bonus suggestion failed, keeping shortlist: %v", err)
	} else {
		observability.IncSuggestion("bonus", "ok")
		recs = append(recs, bonus)
	}

	if err := p.merger.ReplaceRecommendations(ctx, req.GroupID, recs); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// The target group is gone; a late result must not be applied
			// anywhere else.
			observability.IncSuggestion("merge", "discarded")
			log.Printf("discarding late recommendations for removed group %s", req.GroupID)
			return recs, nil
		}
		observability.IncSuggestion("merge", "error")
		return nil, err
	}
	observability.IncSuggestion("merge", "ok")
	return recs, nil
}

func (p *Pipeline) shortlist(ctx context.Context, req Request) ([]models.Recommendation, error) {
	names := make([]string, 0, len(req.Roster))
	prefs := make([]string, 0, len(req.Roster))
	for _, e := range req.Roster {
		names = append(names, e.PersonName)
		if e.Suggestion != "" {
			prefs = append(prefs, fmt.Sprintf("%s wants %s", e.PersonName, e.Suggestion))
		}
	}
	going := strings.Join(names, ", ")
	if going == "" {
		going = "everyone"
	}
	individual := strings.Join(prefs, ". ")
	if individual == "" {
		individual = "None specified"
	}

	type promptEntry struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Rating      int    `json:"rating"`
		Address     string `json:"address"`
	}
	entries := make([]promptEntry, 0, len(req.Catalog))
	for _, r := range req.Catalog {
		entries = append(entries, promptEntry{Name: r.Name, Description: r.Description, Rating: r.Rating, Address: r.Address})
	}
	catalogJSON, err := json.Marshal(entries)
	if err != nil {
		return nil, &apperr.SuggestionServiceError{Step: "shortlist", Err: err}
	}

	prompt := fmt.Sprintf(`You are a fun, quirky AI assistant helping friends decide on a lunch spot. The group's default location is %s. The friends going are: %s. Their combined vibe is: %q. Individual preferences are: %s. From the list of restaurants below, please pick up to 4 that best match the overall vibe, individual preferences, and are a reasonable distance from the group's location. Return only the names of the restaurants as a simple JSON array of strings. Restaurant List: %s`,
		req.DefaultLocation, going, req.Vibe, individual, catalogJSON)

	schema := map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"recommendations": map[string]any{
				"type":  "ARRAY",
				"items": map[string]any{"type": "STRING"},
			},
		},
		"required": []string{"recommendations"},
	}

	text, err := p.gen.Generate(ctx, prompt, schema)
	if err != nil {
		return nil, &apperr.SuggestionServiceError{Step: "shortlist", Err: err}
	}

	var decoded struct {
		Recommendations []string `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, &apperr.SuggestionServiceError{Step: "shortlist", Err: err}
	}

	// Names that do not exactly match a catalog entry are dropped silently;
	// no fuzzy matching, zero matches is not an error.
	byName := make(map[string]models.Restaurant, len(req.Catalog))
	for _, r := range req.Catalog {
		byName[r.Name] = r
	}
	recs := make([]models.Recommendation, 0, len(decoded.Recommendations))
	for _, name := range decoded.Recommendations {
		r, ok := byName[name]
		if !ok {
			continue
		}
		reasoning := r.Description
		if reasoning == "" {
			reasoning = "A great place!"
		}
		recs = append(recs, models.Recommendation{Name: r.Name, Address: r.Address, Reasoning: reasoning})
	}
	return recs, nil
}

func (p *Pipeline) bonus(ctx context.Context, req Request) (models.Recommendation, error) {
	quoted := make([]string, 0, len(req.Catalog))
	for _, r := range req.Catalog {
		quoted = append(quoted, fmt.Sprintf("%q", r.Name))
	}

	where := fmt.Sprintf("near %s", req.DefaultLocation)
	if req.Coords != nil {
		where = fmt.Sprintf("near latitude %v and longitude %v", req.Coords.Latitude, req.Coords.Longitude)
	}

	prompt := fmt.Sprintf(`Suggest a specific, real restaurant that is not on this list: [%s]. This restaurant should be %s and match a %q vibe. Then, write a short, fun, one-sentence reason why someone should try it. Return the name, its address, and the reason in a JSON object like {"name": "Restaurant Name", "address": "123 Main St, City, State", "reasoning": "Reason here"}.`,
		strings.Join(quoted, ", "), where, req.Vibe)

	schema := map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"name":      map[string]any{"type": "STRING"},
			"address":   map[string]any{"type": "STRING"},
			"reasoning": map[string]any{"type": "STRING"},
		},
		"required": []string{"name", "address", "reasoning"},
	}

	text, err := p.gen.Generate(ctx, prompt, schema)
	if err != nil {
		return models.Recommendation{}, &apperr.SuggestionServiceError{Step: "bonus", Err: err}
	}

	var decoded struct {
		Name      string `json:"name"`
		Address   string `json:"address"`
		Reasoning string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return models.Recommendation{}, &apperr.SuggestionServiceError{Step: "bonus", Err: err}
	}
	if decoded.Name == "" {
		return models.Recommendation{}, &apperr.SuggestionServiceError{Step: "bonus", Err: errors.New("missing name in structured response")}
	}

	return models.Recommendation{
		Name:      decoded.Name,
		Address:   decoded.Address,
		Reasoning: stripQuotes(decoded.Reasoning),
		IsBonus:   true,
	}, nil
}

func anySuggestion(roster []models.AttendanceEntry) bool {
	for _, e := range roster {
		if e.Suggestion != "" {
			return true
		}
	}
	return false
}
