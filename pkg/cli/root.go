package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yorozuya-cybersecurity/vulnbrief/internal/config"
	"github.com/yorozuya-cybersecurity/vulnbrief/internal/fault"
)

// Version is overridden at build time with -ldflags "-X .../pkg/cli.Version=...".
var Version = "0.1.0"

func newRootCmd(fs afero.Fs) *cobra.Command {
	v := viper.New()
	config.SetDefaults(v)

	cmd := &cobra.Command{
		Use:   "vulnbrief <trivy_report_path> <snyk_report_path> <output_html_path>",
		Short: "Summarize Trivy and Snyk scan results into an HTML brief",
		Long: "vulnbrief sends two vulnerability scan reports to a chat-completion model and writes " +
			"the returned CTO-level HTML summary to the output path.",
		Example: "OPENAI_API_KEY=sk-... vulnbrief trivy.json snyk.json summary.html",
		Version: Version,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.ExactArgs(3)(cmd, args); err != nil {
				return fault.Usage("parse arguments", err)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSummarize(cmd, v, fs, args)
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fault.Usage("parse flags", err)
	})

	// Flags
	f := cmd.Flags()
	f.StringP("config", "c", "", "YAML config file")
	f.String("provider", string(config.ProviderOpenAI), "Completion provider: openai or gemini")
	f.String("model", config.DefaultModel, "Model identifier")
	f.Float64("temperature", config.DefaultTemperature, "Sampling temperature")
	f.String("endpoint", config.DefaultEndpoint, "Base URL of the completion API")
	f.String("api-key-env", config.DefaultAPIKeyEnv, "Environment variable holding the API key")
	f.Duration("timeout", 0, "Request timeout (0 waits indefinitely)")
	f.String("log-level", "info", "Log level: debug, info, warn, error")
	f.String("log-format", "console", "Log format: console or json")
	f.String("log-file", "", "Also write JSON logs to this rotated file")

	_ = v.BindPFlag("llm.provider", f.Lookup("provider"))
	_ = v.BindPFlag("llm.model", f.Lookup("model"))
	_ = v.BindPFlag("llm.temperature", f.Lookup("temperature"))
	_ = v.BindPFlag("llm.endpoint", f.Lookup("endpoint"))
	_ = v.BindPFlag("llm.api_key_env", f.Lookup("api-key-env"))
	_ = v.BindPFlag("llm.timeout", f.Lookup("timeout"))
	_ = v.BindPFlag("logger.level", f.Lookup("log-level"))
	_ = v.BindPFlag("logger.format", f.Lookup("log-format"))
	_ = v.BindPFlag("logger.log_file", f.Lookup("log-file"))

	// Environment variable support (VULNBRIEF_LLM_MODEL, etc.)
	v.SetEnvPrefix("VULNBRIEF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	return cmd
}

// loadConfig reads the optional config file and resolves the API key from
// the environment variable the config names.
func loadConfig(cmd *cobra.Command, v *viper.Viper) (*config.Config, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fault.Usage("read config", err)
		}
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, fault.Usage("load config", err)
	}
	cfg.LLM.APIKey = os.Getenv(cfg.LLM.APIKeyEnv)
	return cfg, nil
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(afero.NewOsFs())
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		if fault.KindOf(err) == fault.KindUsage {
			fmt.Fprintf(stderr, "Run '%s --help' for usage.\n", cmd.Name())
		}
		return fault.ExitCode(err)
	}
	return 0
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
