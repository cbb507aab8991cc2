package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"billscan/internal/domain"
)

// MockExtractionModel is a mock implementation of port.ExtractionModel.
type MockExtractionModel struct {
	mock.Mock
}

func (m *MockExtractionModel) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockExtractionModel) Extract(ctx context.Context, text string) domain.ParseResult {
	args := m.Called(ctx, text)
	return args.Get(0).(domain.ParseResult)
}
