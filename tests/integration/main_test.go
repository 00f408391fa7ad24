package integration

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestMain terminates the shared containers after the package's tests.
func TestMain(m *testing.M) {
	code := m.Run()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if sharedContainer != nil {
		_ = sharedContainer.Terminate(ctx)
	}
	if redisContainer != nil {
		_ = redisContainer.Terminate(ctx)
	}
	cancel()
	os.Exit(code)
}
