package suggest

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zuccone/super-lunch-buddies/internal/apperr"
	"github.com/zuccone/super-lunch-buddies/internal/models"
	"github.com/zuccone/super-lunch-buddies/internal/store"
)

// scriptedGenerator answers the shortlist call first, the bonus call second.
type scriptedGenerator struct {
	responses []string
	errs      []error
	prompts   []string
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string, schema map[string]any) (string, error) {
	i := len(g.prompts)
	g.prompts = append(g.prompts, prompt)
	var err error
	if i < len(g.errs) {
		err = g.errs[i]
	}
	resp := ""
	if i < len(g.responses) {
		resp = g.responses[i]
	}
	return resp, err
}

type recordingMerger struct {
	byGroup map[string][]models.Recommendation
	err     error
}

func newRecordingMerger() *recordingMerger {
	return &recordingMerger{byGroup: make(map[string][]models.Recommendation)}
}

func (m *recordingMerger) ReplaceRecommendations(ctx context.Context, groupID string, recs []models.Recommendation) error {
	if m.err != nil {
		return m.err
	}
	m.byGroup[groupID] = recs
	return nil
}

func testRequest() Request {
	return Request{
		GroupID: "g1",
		Vibe:    "cheap & cheerful",
		Roster: []models.AttendanceEntry{
			{PersonName: "ana", Suggestion: "ramen"},
			{PersonName: "bo"},
		},
		Catalog: []models.Restaurant{
			{ID: "1", Name: "Tako", Address: "1 Main St", Description: "Tacos all day."},
			{ID: "2", Name: "Noodle Bar", Address: "2 Main St"},
			{ID: "3", Name: "Green Bowl", Address: "3 Main St", Description: "Salads."},
		},
		DefaultLocation: "Irvine, CA",
	}
}

func TestRunMergesShortlistAndBonus(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"recommendations":["Tako","Noodle Bar"]}`,
		`{"name":"Hidden Gem","address":"9 Side St","reasoning":"\"Worth the detour.\""}`,
	}}
	merger := newRecordingMerger()
	p := NewPipeline(gen, merger)

	recs, err := p.Run(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, recs, 3)
	require.Equal(t, "Tacos all day.", recs[0].Reasoning)
	require.Equal(t, "A great place!", recs[1].Reasoning)
	require.True(t, recs[2].IsBonus)
	require.Equal(t, "Worth the detour.", recs[2].Reasoning)
	require.Equal(t, recs, merger.byGroup["g1"])
}

func TestShortlistDropsUnknownNames(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"recommendations":["Tako","Totally Made Up","tako"]}`,
		`{"name":"Hidden Gem","address":"9 Side St","reasoning":"ok"}`,
	}}
	p := NewPipeline(gen, newRecordingMerger())

	recs, err := p.Run(context.Background(), testRequest())
	require.NoError(t, err)
	// Exact match only: the misspelling and the case mismatch are dropped.
	require.Len(t, recs, 2)
	require.Equal(t, "Tako", recs[0].Name)
	require.True(t, recs[1].IsBonus)
}

func TestBonusFailureKeepsShortlist(t *testing.T) {
	gen := &scriptedGenerator{
		responses: []string{`{"recommendations":["Tako","Noodle Bar","Green Bowl"]}`, ""},
		errs:      []error{nil, errors.New("rate limited")},
	}
	merger := newRecordingMerger()
	p := NewPipeline(gen, merger)

	recs, err := p.Run(context.Background(), testRequest())
	require.NoError(t, err)
	require.Len(t, recs, 3)
	for _, r := range recs {
		require.False(t, r.IsBonus)
	}
	require.Equal(t, recs, merger.byGroup["g1"])
}

func TestShortlistFailureAbortsRun(t *testing.T) {
	gen := &scriptedGenerator{errs: []error{errors.New("boom")}}
	merger := newRecordingMerger()
	p := NewPipeline(gen, merger)

	_, err := p.Run(context.Background(), testRequest())
	var svcErr *apperr.SuggestionServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Empty(t, merger.byGroup)
	require.Len(t, gen.prompts, 1)
}

func TestMalformedShortlistIsTypedFailure(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{`not json at all`}}
	p := NewPipeline(gen, newRecordingMerger())

	_, err := p.Run(context.Background(), testRequest())
	var svcErr *apperr.SuggestionServiceError
	require.ErrorAs(t, err, &svcErr)
}

func TestLateResultTargetsOriginatingGroupOnly(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"recommendations":["Tako"]}`,
		`{"name":"Hidden Gem","address":"9 Side St","reasoning":"ok"}`,
	}}
	merger := newRecordingMerger()
	p := NewPipeline(gen, merger)

	// The request was dispatched for g1; the caller has since selected g2.
	// The result lands in g1 and nothing is written to g2.
	req := testRequest()
	recs, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	require.Contains(t, merger.byGroup, "g1")
	require.NotContains(t, merger.byGroup, "g2")
}

func TestLateResultForDeletedGroupIsDiscarded(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"recommendations":["Tako"]}`,
		`{"name":"Hidden Gem","address":"9 Side St","reasoning":"ok"}`,
	}}
	merger := newRecordingMerger()
	merger.err = store.ErrNotFound
	p := NewPipeline(gen, merger)

	recs, err := p.Run(context.Background(), testRequest())
	require.NoError(t, err)
	require.NotEmpty(t, recs)
	require.Empty(t, merger.byGroup)
}

func TestRunValidation(t *testing.T) {
	p := NewPipeline(&scriptedGenerator{}, newRecordingMerger())
	var validation *apperr.ValidationError

	empty := testRequest()
	empty.Catalog = nil
	_, err := p.Run(context.Background(), empty)
	require.ErrorAs(t, err, &validation)

	noVibe := testRequest()
	noVibe.Vibe = "  "
	noVibe.Roster = []models.AttendanceEntry{{PersonName: "ana"}}
	_, err = p.Run(context.Background(), noVibe)
	require.ErrorAs(t, err, &validation)
}

func TestPromptsCarryContext(t *testing.T) {
	gen := &scriptedGenerator{responses: []string{
		`{"recommendations":[]}`,
		`{"name":"Hidden Gem","address":"9 Side St","reasoning":"ok"}`,
	}}
	p := NewPipeline(gen, newRecordingMerger())

	req := testRequest()
	req.Coords = &Coords{Latitude: 33.68, Longitude: -117.82}
	_, err := p.Run(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, gen.prompts, 2)

	require.Contains(t, gen.prompts[0], "ana wants ramen")
	require.Contains(t, gen.prompts[0], "Irvine, CA")
	require.Contains(t, gen.prompts[0], `"cheap & cheerful"`)

	require.Contains(t, gen.prompts[1], "latitude 33.68")
	require.True(t, strings.Contains(gen.prompts[1], `"Tako"`))
}
