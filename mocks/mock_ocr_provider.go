package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"billscan/internal/domain"
)

// MockOCRProvider is a mock implementation of port.OCRProvider.
type MockOCRProvider struct {
	mock.Mock
}

func (m *MockOCRProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockOCRProvider) Extract(ctx context.Context, document []byte) domain.EngineResult {
	args := m.Called(ctx, document)
	return args.Get(0).(domain.EngineResult)
}
