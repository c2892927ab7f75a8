package mocks

import (
	"context"
	"time"

	"github.com/askvinny/agent-performance-backend/internal/core/domain"
	"github.com/askvinny/agent-performance-backend/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// MockFunnelRepository is a mock implementation of ports.FunnelRepository
type MockFunnelRepository struct {
	mock.Mock
}

func NewMockFunnelRepository() *MockFunnelRepository {
	return &MockFunnelRepository{}
}

func (m *MockFunnelRepository) FetchFunnelRows(ctx context.Context) ([]domain.FunnelRow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FunnelRow), args.Error(1)
}

// MockReportService is a mock implementation of ports.ReportService
type MockReportService struct {
	mock.Mock
}

func NewMockReportService() *MockReportService {
	return &MockReportService{}
}

func (m *MockReportService) WeeklyReport(ctx context.Context) ([]domain.WeeklyAgentMetric, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.WeeklyAgentMetric), args.Error(1)
}

func (m *MockReportService) CurrentWeek(ctx context.Context, sessionID string) (*domain.WeekView, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WeekView), args.Error(1)
}

func (m *MockReportService) SelectWeek(ctx context.Context, params ports.SelectWeekParams) (*domain.WeekView, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WeekView), args.Error(1)
}

func (m *MockReportService) Invalidate() {
	m.Called()
}

// MockReportBroadcaster is a mock implementation of ports.ReportBroadcaster
type MockReportBroadcaster struct {
	mock.Mock
}

func NewMockReportBroadcaster() *MockReportBroadcaster {
	return &MockReportBroadcaster{}
}

func (m *MockReportBroadcaster) BroadcastRefresh(loadedAt time.Time, weekCount int) {
	m.Called(loadedAt, weekCount)
}
