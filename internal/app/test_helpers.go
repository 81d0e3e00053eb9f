package app

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/capsulrun/internal/hcl"
)

// SafeBuffer is a thread-safe buffer for capturing output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// SetupAppTest creates a new app instance for system testing. It returns
// the app, its process output and its log output.
func SetupAppTest(t *testing.T, cfg *Config, opts Options) (*App, *SafeBuffer, *SafeBuffer) {
	t.Helper()

	outBuffer := &SafeBuffer{}
	logBuffer := &SafeBuffer{}
	cfg.LogLevel = "debug"
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = 1
	}
	dir := t.TempDir()
	if cfg.WorkflowDatabase == "" {
		cfg.WorkflowDatabase = filepath.Join(dir, "workflows.sqlite")
	}
	if cfg.StudyConfigPath == "" {
		cfg.StudyConfigPath = filepath.Join(dir, "study_config.yaml")
		require.NoError(t, os.WriteFile(cfg.StudyConfigPath, []byte("use_soma_workflow: false\n"), 0o600))
	}
	testApp, err := NewApp(outBuffer, logBuffer, cfg, hcl.NewLoader(), opts)
	require.NoError(t, err)

	t.Cleanup(func() {
		if os.Getenv("CAPSUL_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, outBuffer, logBuffer
}
