package commands

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRelayUseCase is a mock implementation of the outbox relay use case.
type MockRelayUseCase struct {
	mock.Mock
}

func (m *MockRelayUseCase) Start(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRelayUseCase) ProcessMessages(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRelayUseCase) CleanupProcessed(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestRunCleanOutbox(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("text-output", func(t *testing.T) {
		mockUseCase := &MockRelayUseCase{}
		mockUseCase.On("CleanupProcessed", ctx).Return(int64(100), nil)

		var out bytes.Buffer
		err := RunCleanOutbox(ctx, mockUseCase, logger, &out, "text")

		require.NoError(t, err)
		require.Contains(t, out.String(), "Successfully deleted 100 processed outbox message(s)")
		mockUseCase.AssertExpectations(t)
	})

	t.Run("json-output", func(t *testing.T) {
		mockUseCase := &MockRelayUseCase{}
		mockUseCase.On("CleanupProcessed", ctx).Return(int64(50), nil)

		var out bytes.Buffer
		err := RunCleanOutbox(ctx, mockUseCase, logger, &out, "json")

		require.NoError(t, err)
		require.Contains(t, out.String(), `"count": 50`)
		mockUseCase.AssertExpectations(t)
	})

	t.Run("cleanup-error", func(t *testing.T) {
		mockUseCase := &MockRelayUseCase{}
		mockUseCase.On("CleanupProcessed", ctx).Return(int64(0), errors.New("database error"))

		err := RunCleanOutbox(ctx, mockUseCase, logger, &bytes.Buffer{}, "text")

		require.Error(t, err)
		require.Contains(t, err.Error(), "failed to clean outbox messages")
	})
}
