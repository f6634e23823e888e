package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// DefaultFile is read from the working directory when present.
const DefaultFile = "config.yaml"

// Defaults applied before the YAML file and flags.
const (
	DefaultBatchSize = 100
	DefaultAliasName = "alias"
	DefaultTimeout   = 10 * time.Second
)

var graphQLName = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

// OutputConfig holds configuration settings related to output and logging.
type OutputConfig struct {
	OutputFile string `yaml:"output_file"` // Path of the JSON report; empty means results/<host-path>-<timestamp>.json.
	Verbose    bool   `yaml:"verbose"`     // Enable debug logging.
	Trace      bool   `yaml:"trace"`       // Enable trace logging (rendered documents, raw requests).
}

// Config is the main struct to hold all configuration data from the YAML file.
type Config struct {
	Target    string        `yaml:"target"`     // GraphQL endpoint URL.
	Query     string        `yaml:"query"`      // Path to the operation template.
	InputCSV  string        `yaml:"input_csv"`  // Path to the CSV of row values.
	Delimiter string        `yaml:"delimiter"`  // CSV delimiter; "\t" or "tab" for TSV.
	BatchSize int           `yaml:"batch_size"` // Aliased operations per request.
	AliasName string        `yaml:"alias_name"` // Alias prefix, suffixed with a 1-based counter.
	Timeout   time.Duration `yaml:"timeout"`    // Per-request timeout, e.g. "10s".
	Delay     int           `yaml:"delay"`      // Delay between batches in milliseconds.
	Proxy     string        `yaml:"proxy"`      // Optional http(s):// or socks5:// proxy.
	UserAgent string        `yaml:"user_agent"` // Custom User-Agent header.
	VerifyTLS bool          `yaml:"verify_tls"` // Verify the target's TLS certificate.
	SkipProbe bool          `yaml:"skip_probe"` // Skip the introspection-free endpoint probe.
	Match     string        `yaml:"match"`      // Optional expr predicate flagging hits.

	// Headers added to every request, e.g. an Authorization token.
	Headers map[string]string `yaml:"headers"`

	// Output configuration settings.
	Output OutputConfig `yaml:"output"`
}

// Default returns a Config holding the built-in defaults.
func Default() *Config {
	return &Config{
		Delimiter: ",",
		BatchSize: DefaultBatchSize,
		AliasName: DefaultAliasName,
		Timeout:   DefaultTimeout,
	}
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
// It returns the defaults if the file does not exist; keys absent from the file keep their defaults.
func LoadConfig(filePath string) (*Config, error) {
	config := Default()

	yamlFile, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filePath, err)
	}
	return config, nil
}

// Validate checks the settings a run cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.Target == "" {
		errs = append(errs, errors.New("target URL is required (-t)"))
	}
	if c.Query == "" {
		errs = append(errs, errors.New("query template file is required (-q)"))
	}
	if c.InputCSV == "" {
		errs = append(errs, errors.New("input CSV file is required (-i)"))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batch size must be at least 1, got %d", c.BatchSize))
	}
	if !graphQLName.MatchString(c.AliasName) {
		errs = append(errs, fmt.Errorf("alias name %q is not a valid GraphQL name", c.AliasName))
	}
	if c.Delimiter != "" && c.Delimiter != `\t` && c.Delimiter != "tab" && utf8.RuneCountInString(c.Delimiter) != 1 {
		errs = append(errs, fmt.Errorf("delimiter %q must be a single character", c.Delimiter))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.Delay < 0 {
		errs = append(errs, fmt.Errorf("delay must not be negative, got %d", c.Delay))
	}
	return errors.Join(errs...)
}

// DelayDuration returns Delay as a time.Duration.
func (c *Config) DelayDuration() time.Duration {
	return time.Duration(c.Delay) * time.Millisecond
}
