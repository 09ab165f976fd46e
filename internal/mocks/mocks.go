package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/zuccone/super-lunch-buddies/internal/catalog"
	"github.com/zuccone/super-lunch-buddies/internal/models"
	"github.com/zuccone/super-lunch-buddies/internal/suggest"
)

type GeneratorMock struct {
	mock.Mock
}

func (m *GeneratorMock) Generate(ctx context.Context, prompt string, schema map[string]any) (string, error) {
	args := m.Called(ctx, prompt, schema)
	return args.String(0), args.Error(1)
}

type DescriberMock struct {
	mock.Mock
}

func (m *DescriberMock) Describe(ctx context.Context, input string) (string, error) {
	args := m.Called(ctx, input)
	return args.String(0), args.Error(1)
}

func (m *DescriberMock) Rewrite(ctx context.Context, current, instruction string) (string, error) {
	args := m.Called(ctx, current, instruction)
	return args.String(0), args.Error(1)
}

type RecommenderMock struct {
	mock.Mock
}

func (m *RecommenderMock) Run(ctx context.Context, req suggest.Request) ([]models.Recommendation, error) {
	args := m.Called(ctx, req)
	recs, _ := args.Get(0).([]models.Recommendation)
	return recs, args.Error(1)
}

func (m *RecommenderMock) State(groupID string) string {
	args := m.Called(groupID)
	return args.String(0)
}

type GroupServiceMock struct {
	mock.Mock
}

func (m *GroupServiceMock) List() []models.Group {
	args := m.Called()
	groups, _ := args.Get(0).([]models.Group)
	return groups
}

func (m *GroupServiceMock) Get(id string) (models.Group, bool) {
	args := m.Called(id)
	group, _ := args.Get(0).(models.Group)
	return group, args.Bool(1)
}

func (m *GroupServiceMock) Create(ctx context.Context, name, defaultLocation string) (models.Group, error) {
	args := m.Called(ctx, name, defaultLocation)
	group, _ := args.Get(0).(models.Group)
	return group, args.Error(1)
}

func (m *GroupServiceMock) Update(ctx context.Context, id, name, defaultLocation string) error {
	args := m.Called(ctx, id, name, defaultLocation)
	return args.Error(0)
}

func (m *GroupServiceMock) SetVibe(ctx context.Context, id, vibe string) error {
	args := m.Called(ctx, id, vibe)
	return args.Error(0)
}

func (m *GroupServiceMock) Delete(ctx context.Context, id string) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

type CatalogMutatorMock struct {
	mock.Mock
}

func (m *CatalogMutatorMock) Add(ctx context.Context, in catalog.AddInput) (models.Restaurant, error) {
	args := m.Called(ctx, in)
	r, _ := args.Get(0).(models.Restaurant)
	return r, args.Error(1)
}

func (m *CatalogMutatorMock) Edit(ctx context.Context, id string, in catalog.EditInput) error {
	args := m.Called(ctx, id, in)
	return args.Error(0)
}

func (m *CatalogMutatorMock) Remove(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *CatalogMutatorMock) Rate(ctx context.Context, id string, delta int) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

func (m *CatalogMutatorMock) MarkVisitedToday(ctx context.Context, id, groupID string) error {
	args := m.Called(ctx, id, groupID)
	return args.Error(0)
}

type RosterSynchronizerMock struct {
	mock.Mock
}

func (m *RosterSynchronizerMock) SetAttendance(ctx context.Context, personName, targetGroupID string, attending bool, suggestion string) error {
	args := m.Called(ctx, personName, targetGroupID, attending, suggestion)
	return args.Error(0)
}

func (m *RosterSynchronizerMock) UpdateSuggestion(ctx context.Context, personName, groupID, suggestion string) error {
	args := m.Called(ctx, personName, groupID, suggestion)
	return args.Error(0)
}
