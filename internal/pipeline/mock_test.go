package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/monument-cli/internal/model"
	"github.com/sells-group/monument-cli/internal/store"
)

// --- Escalator Mock ---

type mockEscalator struct {
	mock.Mock
}

func (m *mockEscalator) Escalate(ctx context.Context, req model.AdjudicationRequest) (model.Verdict, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(model.Verdict), args.Error(1)
}

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) LoadBaseRecords(ctx context.Context) ([]model.BaseRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BaseRecord), args.Error(1)
}

func (m *mockStore) SaveMergedRecords(ctx context.Context, records []model.BaseRecord) error {
	args := m.Called(ctx, records)
	return args.Error(0)
}

func (m *mockStore) RecordProvenance(ctx context.Context, runID string, changes []model.FieldChange) error {
	args := m.Called(ctx, runID, changes)
	return args.Error(0)
}

func (m *mockStore) SaveProviderPlaces(ctx context.Context, runID string, decisions []model.MatchDecision) error {
	args := m.Called(ctx, runID, decisions)
	return args.Error(0)
}

func (m *mockStore) GetVerdict(ctx context.Context, key model.DecisionKey) (*model.Verdict, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Verdict), args.Error(1)
}

func (m *mockStore) PutVerdict(ctx context.Context, key model.DecisionKey, v model.Verdict) error {
	args := m.Called(ctx, key, v)
	return args.Error(0)
}

func (m *mockStore) QueryView(ctx context.Context, name string) (*store.Table, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Table), args.Error(1)
}

func (m *mockStore) Quality(ctx context.Context) (*store.QualityReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.QualityReport), args.Error(1)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ store.Store = (*mockStore)(nil)
