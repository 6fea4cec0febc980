package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yorozuya-cybersecurity/vulnbrief/internal/fault"
	"github.com/yorozuya-cybersecurity/vulnbrief/internal/llm"
	"github.com/yorozuya-cybersecurity/vulnbrief/internal/observability"
	"github.com/yorozuya-cybersecurity/vulnbrief/internal/pipeline"
	"github.com/yorozuya-cybersecurity/vulnbrief/internal/schema"
)

func runSummarize(cmd *cobra.Command, v *viper.Viper, fs afero.Fs, args []string) error {
	cfg, err := loadConfig(cmd, v)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Logger, zapcore.Lock(zapcore.AddSync(cmd.ErrOrStderr())))
	if err != nil {
		return fault.Usage("configure logging", err)
	}
	defer observability.Sync(logger)

	completer, err := llm.NewCompleter(cfg.LLM, logger)
	if err != nil {
		return fault.Usage("configure completion client", err)
	}

	logger.Debug("Starting vulnbrief",
		zap.String("version", Version),
		zap.String("provider", completer.Name()),
		zap.String("model", completer.Model()),
		zap.Bool("api_key_set", cfg.LLM.APIKey != ""),
	)

	res, err := pipeline.NewRunner(fs, completer, logger).Run(cmd.Context(), schema.Inputs{
		TrivyPath:  args[0],
		SnykPath:   args[1],
		OutputPath: args[2],
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "📝 HTML report: %s\n", res.OutputPath)
	return nil
}
