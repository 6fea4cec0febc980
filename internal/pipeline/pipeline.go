package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/yorozuya-cybersecurity/vulnbrief/internal/fault"
	"github.com/yorozuya-cybersecurity/vulnbrief/internal/llm"
	"github.com/yorozuya-cybersecurity/vulnbrief/internal/report"
	"github.com/yorozuya-cybersecurity/vulnbrief/internal/scanners"
	"github.com/yorozuya-cybersecurity/vulnbrief/internal/schema"
)

// Runner executes load, prompt, complete and write in order. The first
// failing stage ends the run; nothing is written unless every stage before
// the writer succeeded.
type Runner struct {
	fs        afero.Fs
	completer llm.Completer
	logger    *zap.Logger
}

func NewRunner(fs afero.Fs, completer llm.Completer, logger *zap.Logger) *Runner {
	return &Runner{
		fs:        fs,
		completer: completer,
		logger:    logger.Named("pipeline"),
	}
}

// Result describes a successful run.
type Result struct {
	RunID      string
	OutputPath string
	Bytes      int
	Completion schema.Completion
	Duration   time.Duration
}

// Run produces the HTML summary for in.
func (r *Runner) Run(ctx context.Context, in schema.Inputs) (Result, error) {
	start := time.Now()
	res := Result{RunID: uuid.NewString(), OutputPath: in.OutputPath}
	log := r.logger.With(zap.String("run_id", res.RunID))

	trivy, err := r.load(log, schema.SourceTrivy, in.TrivyPath)
	if err != nil {
		return res, err
	}
	snyk, err := r.load(log, schema.SourceSnyk, in.SnykPath)
	if err != nil {
		return res, err
	}

	prompt, err := report.BuildPrompt(trivy, snyk)
	if err != nil {
		return res, r.fail(log, "build prompt", err)
	}
	log.Info("Prompt built", zap.Int("bytes", len(prompt)))

	log.Info("Requesting completion",
		zap.String("provider", r.completer.Name()),
		zap.String("model", r.completer.Model()),
	)
	completion, err := r.completer.Complete(ctx, prompt)
	if err != nil {
		return res, r.fail(log, "complete", err)
	}
	res.Completion = completion

	if err := report.WriteHTML(r.fs, in.OutputPath, completion.Text); err != nil {
		return res, r.fail(log, "write", err)
	}
	res.Bytes = len(completion.Text)
	res.Duration = time.Since(start)

	log.Info("Report written",
		zap.String("path", in.OutputPath),
		zap.Int("bytes", res.Bytes),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

func (r *Runner) load(log *zap.Logger, source schema.Source, path string) (schema.ScanReport, error) {
	rep, err := scanners.LoadReport(r.fs, source, path)
	if err != nil {
		return rep, r.fail(log, fmt.Sprintf("load %s report", source), err)
	}
	log.Info("Report loaded",
		zap.String("source", string(source)),
		zap.String("path", path),
		zap.Int("bytes", rep.Size),
	)
	return rep, nil
}

// fail records the failing stage at debug level. Reporting the error to the
// user is left to the caller.
func (r *Runner) fail(log *zap.Logger, stage string, err error) error {
	log.Debug("Stage failed",
		zap.String("stage", stage),
		zap.Stringer("kind", fault.KindOf(err)),
		zap.Error(err),
	)
	return err
}
