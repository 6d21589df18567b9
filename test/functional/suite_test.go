package functional

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cucumber/godog"
)

type stateKeyType struct{}

var stateKey = stateKeyType{}

type testState struct {
	homeDir   string
	binPath   string
	indexFile string
	stdout    string
	stderr    string
	exitCode  int
}

func getState(ctx context.Context) *testState {
	if s, ok := ctx.Value(stateKey).(*testState); ok {
		return s
	}
	return nil
}

func setState(ctx context.Context, s *testState) context.Context {
	return context.WithValue(ctx, stateKey, s)
}

func TestFeatures(t *testing.T) {
	binPath := os.Getenv("PYBUN_TEST_BINARY")
	if binPath == "" {
		t.Skip("PYBUN_TEST_BINARY not set; point it at a built pybun binary")
	}

	// Resolve to absolute path since go test changes the working directory
	absBin, err := filepath.Abs(binPath)
	if err != nil {
		t.Fatalf("resolving binary path: %v", err)
	}
	binPath = absBin

	opts := &godog.Options{
		Format:   "pretty",
		Paths:    []string{"features"},
		TestingT: t,
	}
	if tags := os.Getenv("PYBUN_TEST_TAGS"); tags != "" {
		opts.Tags = tags
	}

	suite := godog.TestSuite{
		ScenarioInitializer: func(ctx *godog.ScenarioContext) {
			initializeScenario(ctx, binPath)
		},
		Options: opts,
	}
	if suite.Run() != 0 {
		t.Fatal("functional tests failed")
	}
}

func initializeScenario(ctx *godog.ScenarioContext, binPath string) {
	// Reset home directory before each scenario
	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		repoRoot := filepath.Dir(binPath)
		// homeDir is relative to the binary's directory (repo root)
		homeDir := filepath.Join(repoRoot, ".pybun-test")
		os.RemoveAll(homeDir)
		if err := os.MkdirAll(homeDir, 0o755); err != nil {
			return ctx, err
		}

		// Scenarios point --index-file at this fixture to resolve/install
		// without reaching a real package index.
		indexFile := filepath.Join(repoRoot, "test", "functional", "fixtures", "index.json")

		state := &testState{
			homeDir:   homeDir,
			binPath:   binPath,
			indexFile: indexFile,
		}
		return setState(ctx, state), nil
	})

	// Environment steps
	ctx.Step(`^a clean pybun environment$`, aCleanPybunEnvironment)

	// Command steps
	ctx.Step(`^I run "([^"]*)"$`, iRun)

	// Assertion steps
	ctx.Step(`^the exit code is (\d+)$`, theExitCodeIs)
	ctx.Step(`^the exit code is not (\d+)$`, theExitCodeIsNot)
	ctx.Step(`^the output contains "([^"]*)"$`, theOutputContains)
	ctx.Step(`^the output does not contain "([^"]*)"$`, theOutputDoesNotContain)
	ctx.Step(`^the error output contains "([^"]*)"$`, theErrorOutputContains)
	ctx.Step(`^the error output does not contain "([^"]*)"$`, theErrorOutputDoesNotContain)
	ctx.Step(`^the file "([^"]*)" exists$`, theFileExists)
	ctx.Step(`^the file "([^"]*)" does not exist$`, theFileDoesNotExist)
}
