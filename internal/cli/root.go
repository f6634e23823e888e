// Package cli wires the crackgo command line onto the run pipeline.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"Crackgo/internal/config"
	"Crackgo/internal/dispatch"
	"Crackgo/internal/httpclient"
	"Crackgo/internal/input"
	"Crackgo/internal/logger"
	"Crackgo/internal/match"
	"Crackgo/internal/operation"
	"Crackgo/internal/pipeline"
	"Crackgo/internal/reporter"
	"Crackgo/internal/verify"

	"github.com/spf13/cobra"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
)

// flags holds the raw command-line values; only flags the user actually set
// override config.yaml.
type flags struct {
	configFile string
	target     string
	query      string
	inputCSV   string
	delimiter  string
	batchSize  int
	aliasName  string
	outputJSON string
	timeout    time.Duration
	delay      int
	proxy      string
	headers    []string
	userAgent  string
	secure     bool
	skipProbe  bool
	match      string
	verbosity  int
	trace      bool
}

// rootCmd represents the base command when called without any subcommands
var rootCmd, _ = newRootCmd()

func newRootCmd() (*cobra.Command, *flags) {
	f := &flags{}
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "crackgo -t <url> -q <template> -i <csv> [flags]",
		Short: "crackgo packs many GraphQL operations into one request to test credentials and rate limits",
		Long: `crackgo reads an operation template and a CSV of values, injects every row into the
template under a unique alias and sends the aliased copies in batched GraphQL documents.
The merged data and errors are printed and saved as a JSON report.

Template markers: $name or {{name}} inject a quoted string; {{name|int}}, {{name|float}},
{{name|bool}} and {{name|raw}} inject typed or verbatim values.

crackgo automatically loads 'config.yaml' from the current directory.
Command-line flags override settings from the configuration file.`,
		Example: `  # Brute-force a login mutation, 10 attempts per request
  crackgo -t http://localhost:4000/graphql -q sample-queries/login.graphql -i sample-inputs/users-and-passwords.csv -b 10

  # Flag the rows whose login returned a token
  crackgo -t https://api.example.com/graphql -q login.graphql -i creds.csv --match 'data?.token != nil'`,
		Version:       fmt.Sprintf("%s (commit %s)", Version, Commit),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f)
		},
	}

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		fmt.Fprintf(c.ErrOrStderr(), "Error: %v\n\n%s", err, c.UsageString())
		return err
	})

	fs := cmd.Flags()
	fs.StringVar(&f.configFile, "config", config.DefaultFile, "Path to the YAML configuration file")
	fs.StringVarP(&f.target, "target", "t", "", "Target GraphQL endpoint URL (e.g., http://example.com/graphql)")
	fs.StringVarP(&f.query, "query", "q", "", "Path to the operation template file")
	fs.StringVarP(&f.inputCSV, "input-csv", "i", "", "Path to the CSV of values (header row names the markers)")
	fs.StringVarP(&f.delimiter, "delimiter", "d", defaults.Delimiter, `CSV delimiter ("\t" or "tab" for TSV)`)
	fs.IntVarP(&f.batchSize, "batch-size", "b", defaults.BatchSize, "Number of aliased operations per request")
	fs.StringVarP(&f.aliasName, "alias-name", "a", defaults.AliasName, "Alias prefix; a 1-based counter is appended")
	fs.StringVarP(&f.outputJSON, "output-json", "o", "", "Path of the JSON report (default: results/<host-path>-<timestamp>.json)")
	fs.DurationVar(&f.timeout, "timeout", defaults.Timeout, "Per-request timeout")
	fs.IntVar(&f.delay, "delay", 0, "Delay between batches in milliseconds (ms)")
	fs.StringVar(&f.proxy, "proxy", "", "Proxy URL (http://, https:// or socks5://)")
	fs.StringArrayVarP(&f.headers, "header", "H", nil, `Extra request header "Name: value" (repeatable)`)
	fs.StringVar(&f.userAgent, "user-agent", "", "Custom User-Agent header")
	fs.BoolVar(&f.secure, "secure", false, "Verify the target's TLS certificate")
	fs.BoolVar(&f.skipProbe, "skip-probe", false, "Skip the GraphQL endpoint check before the run")
	fs.StringVar(&f.match, "match", "", "expr predicate over alias, data and row that flags a hit")
	fs.CountVarP(&f.verbosity, "verbose", "v", "Enable verbose output (-v DEBUG, -vv TRACE)")
	fs.BoolVar(&f.trace, "vv", false, "Enable trace-level output (prints every batch document)")

	return cmd, f
}

// Execute runs the root command with a context cancelled on SIGINT/SIGTERM.
// It is called by main.main().
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// loadConfig reads the YAML file and lets every flag the user set override it.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, err := config.LoadConfig(f.configFile)
	if err != nil {
		return nil, err
	}

	changed := cmd.Flags().Changed
	if changed("target") {
		cfg.Target = f.target
	}
	if changed("query") {
		cfg.Query = f.query
	}
	if changed("input-csv") {
		cfg.InputCSV = f.inputCSV
	}
	if changed("delimiter") {
		cfg.Delimiter = f.delimiter
	}
	if changed("batch-size") {
		cfg.BatchSize = f.batchSize
	}
	if changed("alias-name") {
		cfg.AliasName = f.aliasName
	}
	if changed("output-json") {
		cfg.Output.OutputFile = f.outputJSON
	}
	if changed("timeout") {
		cfg.Timeout = f.timeout
	}
	if changed("delay") {
		cfg.Delay = f.delay
	}
	if changed("proxy") {
		cfg.Proxy = f.proxy
	}
	if changed("user-agent") {
		cfg.UserAgent = f.userAgent
	}
	if changed("secure") {
		cfg.VerifyTLS = f.secure
	}
	if changed("skip-probe") {
		cfg.SkipProbe = f.skipProbe
	}
	if changed("match") {
		cfg.Match = f.match
	}
	if f.verbosity >= 1 {
		cfg.Output.Verbose = true
	}
	if f.verbosity >= 2 || (changed("vv") && f.trace) {
		cfg.Output.Trace = true
	}

	if len(f.headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string)
		}
		for _, h := range f.headers {
			name, value, ok := strings.Cut(h, ":")
			name = strings.TrimSpace(name)
			if !ok || name == "" {
				return nil, fmt.Errorf("invalid header %q, expected \"Name: value\"", h)
			}
			cfg.Headers[name] = strings.TrimSpace(value)
		}
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "crackgo/" + Version
	}
	return cfg, nil
}

func logLevel(cfg *config.Config) logger.LogLevel {
	switch {
	case cfg.Output.Trace:
		return logger.TRACE
	case cfg.Output.Verbose:
		return logger.DEBUG
	default:
		return logger.INFO
	}
}

// prepared is everything the precondition gate produced.
type prepared struct {
	target  string
	tmpl    *operation.Template
	rows    []input.Row
	matcher *match.Matcher
}

// prepare runs every check that must pass before a single request is sent.
func prepare(cfg *config.Config, log *logger.Logger) (*prepared, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &verify.PreconditionError{Check: "config", Message: "invalid configuration", Err: err}
	}

	target, err := verify.URL(cfg.Target)
	if err != nil {
		return nil, err
	}
	if err := verify.AliasPrefix(cfg.AliasName); err != nil {
		return nil, err
	}
	delim, err := input.ParseDelimiter(cfg.Delimiter)
	if err != nil {
		return nil, &verify.PreconditionError{Check: "input", Message: "bad delimiter", Err: err}
	}

	src, err := os.ReadFile(cfg.Query)
	if err != nil {
		return nil, &verify.PreconditionError{Check: "template", Message: "cannot read query file", Err: err}
	}
	tmpl, err := operation.Parse(string(src))
	if err != nil {
		return nil, &verify.PreconditionError{Check: "template", Message: cfg.Query, Err: err}
	}
	if err := verify.Template(tmpl, cfg.AliasName); err != nil {
		return nil, err
	}
	log.Debug("Template %s: root %q, markers %v", cfg.Query, tmpl.RootType, tmpl.Markers())

	header, rows, err := input.ReadCSVFile(cfg.InputCSV, delim)
	if err != nil {
		return nil, &verify.PreconditionError{Check: "input", Message: cfg.InputCSV, Err: err}
	}
	if err := verify.Inputs(tmpl, header); err != nil {
		return nil, err
	}
	log.Debug("Input %s: %d row(s), columns %v", cfg.InputCSV, len(rows), header)

	p := &prepared{target: target.String(), tmpl: tmpl, rows: rows}
	if cfg.Match != "" {
		p.matcher, err = match.Compile(cfg.Match)
		if err != nil {
			return nil, &verify.PreconditionError{Check: "match", Message: "invalid --match expression", Err: err}
		}
	}
	return p, nil
}

func run(cmd *cobra.Command, f *flags) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		logger.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), logger.INFO).Error("Failed to load config: %v", err)
		return err
	}

	log := logger.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), logLevel(cfg))
	defer log.Sync()
	log.Debug("Config loaded - batch size %d, alias %q, timeout %s", cfg.BatchSize, cfg.AliasName, cfg.Timeout)

	p, err := prepare(cfg, log)
	if err != nil {
		log.Error("%v", err)
		return err
	}

	client, err := httpclient.NewClient(log, httpclient.ClientOptions{
		Timeout:            cfg.Timeout,
		InsecureSkipVerify: !cfg.VerifyTLS,
		UserAgent:          cfg.UserAgent,
		Headers:            cfg.Headers,
		Proxy:              cfg.Proxy,
	})
	if err != nil {
		log.Error("%v", err)
		return &verify.PreconditionError{Check: "proxy", Message: "cannot build HTTP client", Err: err}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if cfg.SkipProbe {
		log.Debug("Skipping endpoint probe.")
	} else if err := verify.NewEndpointProber(client, log).Probe(ctx, p.target); err != nil {
		log.Error("%v", err)
		return err
	}

	runner, err := pipeline.NewRunner(p.tmpl, dispatch.New(client, log), log, pipeline.Options{
		Endpoint:    p.target,
		BatchSize:   cfg.BatchSize,
		AliasPrefix: cfg.AliasName,
		Delay:       cfg.DelayDuration(),
		Matcher:     p.matcher,
	})
	if err != nil {
		log.Error("%v", err)
		return err
	}

	startTime := time.Now()
	report := reporter.NewReport(p.target, cfg.Query, cfg.InputCSV, cfg.BatchSize, startTime)
	result, runErr := runner.Run(ctx, p.rows)
	report.Finalize(time.Now(), startTime, result, runErr)

	if runErr != nil {
		log.Error("Run aborted: %v", runErr)
		log.Warn("Reporting the %d of %d batch(es) merged before the failure.", result.BatchesSent, result.BatchesPlanned)
	}

	if err := printResults(cmd.OutOrStdout(), report); err != nil {
		log.Error("Failed to print results: %v", err)
	}

	outputPath := cfg.Output.OutputFile
	if outputPath == "" {
		outputPath = reporter.DefaultOutputPath(p.target, startTime)
	}
	log.Info("Generating JSON report to %s...", outputPath)
	if err := reporter.WriteJSONReport(report, outputPath); err != nil {
		log.Error("Failed to write JSON report: %v", err)
	} else {
		log.Success("JSON report successfully saved to %s", outputPath)
	}

	if runErr != nil {
		return runErr
	}
	if n := len(result.Matches); n > 0 {
		log.Success("%d match(es) for %q.", n, p.matcher.String())
	}
	log.Info("crackgo run completed: %d batch(es), %d data entr(ies), %d error(s).",
		result.BatchesSent, result.Aggregate.Len(), len(result.Aggregate.Errors()))
	return nil
}

// printResults writes the merged data and errors the way the report stores them.
func printResults(w io.Writer, report *reporter.Report) error {
	data, err := json.MarshalIndent(report.Data, "", "  ")
	if err != nil {
		return err
	}
	errs, err := json.MarshalIndent(report.Errors, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Data:\n%s\nError:\n%s\n", data, errs)
	return err
}

