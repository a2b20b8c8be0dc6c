package factory

import (
	"time"

	"github.com/legionlabs/spacefight-server/internal/dependencies/mocks"
	"github.com/legionlabs/spacefight-server/internal/services/matchmaking"
	"github.com/legionlabs/spacefight-server/internal/services/presence"
	"github.com/legionlabs/spacefight-server/internal/storage/memory"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked
// dependencies. Background loops are not started; tests drive the
// matchmaking and presence sweeps explicitly through SweepOnce.
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app := newWithDependencies(
		store,
		mockClock,
		mockRandom,
		nil,
		matchmaking.DefaultConfig(),
		presence.DefaultConfig(),
		nil,
	)

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}
