package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yorozuya-cybersecurity/vulnbrief/internal/fault"
	"github.com/yorozuya-cybersecurity/vulnbrief/internal/report"
	"github.com/yorozuya-cybersecurity/vulnbrief/internal/schema"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// MockCompleter is a testify mock of llm.Completer.
type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) Complete(ctx context.Context, prompt string) (schema.Completion, error) {
	args := m.Called(ctx, prompt)
	return args.Get(0).(schema.Completion), args.Error(1)
}

func (m *MockCompleter) Name() string  { return "mock" }
func (m *MockCompleter) Model() string { return "mock-model" }

type fixture struct {
	dir    string
	inputs schema.Inputs
	fs     afero.Fs
}

func newFixture(t *testing.T, trivy, snyk string) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir: dir,
		fs:  afero.NewOsFs(),
		inputs: schema.Inputs{
			TrivyPath:  filepath.Join(dir, "trivy.json"),
			SnykPath:   filepath.Join(dir, "snyk.json"),
			OutputPath: filepath.Join(dir, "report.html"),
		},
	}
	require.NoError(t, os.WriteFile(f.inputs.TrivyPath, []byte(trivy), 0o644))
	require.NoError(t, os.WriteFile(f.inputs.SnykPath, []byte(snyk), 0o644))
	return f
}

func TestRun_WritesCompletionVerbatim(t *testing.T) {
	f := newFixture(t, `{}`, `{}`)
	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.AnythingOfType("string")).
		Return(schema.Completion{Text: "<html>OK</html>"}, nil).Once()

	res, err := NewRunner(f.fs, completer, zaptest.NewLogger(t)).Run(context.Background(), f.inputs)
	require.NoError(t, err)

	got, err := os.ReadFile(f.inputs.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, "<html>OK</html>", string(got))
	assert.Equal(t, len("<html>OK</html>"), res.Bytes)
	assert.NotEmpty(t, res.RunID)
	completer.AssertExpectations(t)
}

func TestRun_PromptCarriesBothReports(t *testing.T) {
	f := newFixture(t,
		`{"Results":[{"Vulnerabilities":[{"VulnerabilityID":"CVE-2023-4863","Severity":"CRITICAL"}]}]}`,
		`{"vulnerabilities":[{"id":"SNYK-JS-LODASH-567746","identifiers":{"CVE":["CVE-2020-8203"]}}]}`)

	var prompt string
	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { prompt = args.String(1) }).
		Return(schema.Completion{Text: "<html></html>"}, nil)

	_, err := NewRunner(f.fs, completer, zap.NewNop()).Run(context.Background(), f.inputs)
	require.NoError(t, err)

	assert.Contains(t, prompt, report.Header)
	assert.Contains(t, prompt, "=== Trivy Scan Results ===\n"+`{"Results":[{"Vulnerabilities":[{"Severity":"CRITICAL","VulnerabilityID":"CVE-2023-4863"}]}]}`)
	assert.Contains(t, prompt, "=== Snyk Scan Results ===\n"+`{"vulnerabilities":[{"id":"SNYK-JS-LODASH-567746","identifiers":{"CVE":["CVE-2020-8203"]}}]}`)
}

func TestRun_MissingInputCreatesNoOutput(t *testing.T) {
	f := newFixture(t, `{}`, `{}`)
	require.NoError(t, os.Remove(f.inputs.SnykPath))
	completer := new(MockCompleter)

	_, err := NewRunner(f.fs, completer, zap.NewNop()).Run(context.Background(), f.inputs)

	require.Error(t, err)
	assert.Equal(t, fault.KindFileAccess, fault.KindOf(err))
	assert.NoFileExists(t, f.inputs.OutputPath)
	completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestRun_InvalidJSON(t *testing.T) {
	f := newFixture(t, `{"a":`, `{}`)
	completer := new(MockCompleter)

	_, err := NewRunner(f.fs, completer, zap.NewNop()).Run(context.Background(), f.inputs)

	require.Error(t, err)
	assert.Equal(t, fault.KindParse, fault.KindOf(err))
	assert.NoFileExists(t, f.inputs.OutputPath)
	completer.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestRun_CompletionFailureLeavesOutputUntouched(t *testing.T) {
	netErr := fault.New(fault.KindNetwork, "request completion", errors.New("connection reset by peer"))

	t.Run("no previous output", func(t *testing.T) {
		f := newFixture(t, `{}`, `{}`)
		completer := new(MockCompleter)
		completer.On("Complete", mock.Anything, mock.Anything).Return(schema.Completion{}, netErr)

		_, err := NewRunner(f.fs, completer, zap.NewNop()).Run(context.Background(), f.inputs)

		require.Error(t, err)
		assert.Equal(t, fault.KindNetwork, fault.KindOf(err))
		assert.NoFileExists(t, f.inputs.OutputPath)
		entries, readErr := os.ReadDir(f.dir)
		require.NoError(t, readErr)
		assert.Len(t, entries, 2, "only the two inputs remain")
	})

	t.Run("previous output kept", func(t *testing.T) {
		f := newFixture(t, `{}`, `{}`)
		require.NoError(t, os.WriteFile(f.inputs.OutputPath, []byte("<html>yesterday</html>"), 0o644))
		completer := new(MockCompleter)
		completer.On("Complete", mock.Anything, mock.Anything).Return(schema.Completion{}, netErr)

		_, err := NewRunner(f.fs, completer, zap.NewNop()).Run(context.Background(), f.inputs)

		require.Error(t, err)
		got, readErr := os.ReadFile(f.inputs.OutputPath)
		require.NoError(t, readErr)
		assert.Equal(t, "<html>yesterday</html>", string(got))
	})
}

func TestRun_WriteFailure(t *testing.T) {
	f := newFixture(t, `{}`, `{}`)
	f.inputs.OutputPath = filepath.Join(f.dir, "no", "such", "dir", "report.html")
	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return(schema.Completion{Text: "<html/>"}, nil)

	_, err := NewRunner(f.fs, completer, zap.NewNop()).Run(context.Background(), f.inputs)

	require.Error(t, err)
	assert.Equal(t, fault.KindWrite, fault.KindOf(err))
}

func TestRun_Idempotent(t *testing.T) {
	f := newFixture(t, `{"b":[1,2],"a":{"y":"ü","x":null}}`, `[{"z":1},{"y":2}]`)
	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).
		Return(schema.Completion{Text: "<html><h1>Summary</h1></html>"}, nil).Twice()
	runner := NewRunner(f.fs, completer, zap.NewNop())

	_, err := runner.Run(context.Background(), f.inputs)
	require.NoError(t, err)
	first, err := os.ReadFile(f.inputs.OutputPath)
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), f.inputs)
	require.NoError(t, err)
	second, err := os.ReadFile(f.inputs.OutputPath)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	prompts := []string{completer.Calls[0].Arguments.String(1), completer.Calls[1].Arguments.String(1)}
	assert.Equal(t, prompts[0], prompts[1])
}

func TestRun_LogsStagesWithRunID(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/in/trivy.json", []byte(`{}`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/in/snyk.json", []byte(`[]`), 0o644))
	require.NoError(t, fs.MkdirAll("/out", 0o755))

	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).Return(schema.Completion{Text: "x"}, nil)

	res, err := NewRunner(fs, completer, zap.New(core)).Run(context.Background(), schema.Inputs{
		TrivyPath: "/in/trivy.json", SnykPath: "/in/snyk.json", OutputPath: "/out/r.html",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, logs.FilterMessage("Report loaded").Len())
	assert.Equal(t, 1, logs.FilterMessage("Prompt built").Len())
	assert.Equal(t, 1, logs.FilterMessage("Report written").Len())
	for _, e := range logs.All() {
		assert.Equal(t, res.RunID, e.ContextMap()["run_id"])
	}
}

func TestRun_FailureLeavesReportingToCaller(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f := newFixture(t, `{}`, `{}`)
	completer := new(MockCompleter)
	completer.On("Complete", mock.Anything, mock.Anything).
		Return(schema.Completion{}, fault.New(fault.KindRateLimit, "request completion", errors.New("slow down")))

	_, err := NewRunner(f.fs, completer, zap.New(core)).Run(context.Background(), f.inputs)

	require.Error(t, err)
	assert.Zero(t, logs.FilterLevelExact(zap.ErrorLevel).Len())
	assert.Zero(t, logs.FilterLevelExact(zap.WarnLevel).Len())
	assert.Zero(t, logs.FilterMessage("Stage failed").Len(), "stage failures are debug only")
}
