package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// OptionType is the expected type of an option value.
type OptionType string

const (
	TypeString   OptionType = "string"
	TypeBool     OptionType = "bool"
	TypeInt      OptionType = "int"
	TypeDuration OptionType = "duration"
	// TypeEnum accepts one of ConfigOption.Values.
	TypeEnum OptionType = "enum"
)

// ConfigOption declares one option.
type ConfigOption struct {
	Key         string
	Type        OptionType
	Default     string
	Description string
	// Section is "" for global options, else the command name.
	Section string
	// EnvVar overrides the option when set.
	EnvVar string
	Values []string
}

// ConfigSchema declares the known options.
type ConfigSchema struct {
	options []*ConfigOption
	index   map[string]map[string]*ConfigOption
}

// NewSchema returns an empty schema.
func NewSchema() *ConfigSchema {
	return &ConfigSchema{index: make(map[string]map[string]*ConfigOption)}
}

// Register adds options. A later registration of the same section and key
// replaces the earlier one.
func (s *ConfigSchema) Register(opts ...ConfigOption) {
	for _, opt := range opts {
		ref := &opt
		sec := s.index[opt.Section]
		if sec == nil {
			sec = make(map[string]*ConfigOption)
			s.index[opt.Section] = sec
		}
		if old, ok := sec[opt.Key]; ok {
			*old = opt
			continue
		}
		sec[opt.Key] = ref
		s.options = append(s.options, ref)
	}
}

// Lookup returns the option declared for key in section ("" for global),
// or nil.
func (s *ConfigSchema) Lookup(section, key string) *ConfigOption {
	return s.index[section][key]
}

// find returns the section option for key, else the global one.
func (s *ConfigSchema) find(section, key string) *ConfigOption {
	if section != "" {
		if opt := s.Lookup(section, key); opt != nil {
			return opt
		}
	}
	return s.Lookup("", key)
}

// Options returns the options of one section in registration order.
func (s *ConfigSchema) Options(section string) []ConfigOption {
	var out []ConfigOption
	for _, o := range s.options {
		if o.Section == section {
			out = append(out, *o)
		}
	}
	return out
}

// Sections returns the sorted names of command sections.
func (s *ConfigSchema) Sections() []string {
	var out []string
	for sec := range s.index {
		if sec != "" {
			out = append(out, sec)
		}
	}
	sort.Strings(out)
	return out
}

// Value returns the effective value of key for command ("" for global):
// the option's environment variable if non-empty, then the command
// section, then the global value, then the schema default.
func (s *ConfigSchema) Value(c *Config, command, key string) string {
	opt := s.find(command, key)
	if opt != nil && opt.EnvVar != "" {
		if v := os.Getenv(opt.EnvVar); v != "" {
			return v
		}
	}
	if c != nil {
		if v, ok := c.GetCommandOption(command, key); ok {
			return v
		}
	}
	if opt != nil {
		return opt.Default
	}
	return ""
}

// ValidateConfig returns a sorted list of problems: unknown options and
// values that do not match their declared type.
func ValidateConfig(c *Config, s *ConfigSchema) []string {
	var issues []string
	for key, value := range c.Global {
		opt := s.Lookup("", key)
		if opt == nil {
			issues = append(issues, fmt.Sprintf("unknown global option: %q (value: %q)", key, value))
			continue
		}
		if err := opt.check(value); err != nil {
			issues = append(issues, fmt.Sprintf("global option %q: %v", key, err))
		}
	}
	for section, opts := range c.Commands {
		for key, value := range opts {
			opt := s.find(section, key)
			if opt == nil {
				issues = append(issues, fmt.Sprintf("unknown option for command %q: %q (value: %q)", section, key, value))
				continue
			}
			if err := opt.check(value); err != nil {
				issues = append(issues, fmt.Sprintf("option %q in [%s]: %v", key, section, err))
			}
		}
	}
	sort.Strings(issues)
	return issues
}

func (o *ConfigOption) check(value string) error {
	switch o.Type {
	case TypeString, "":
	case TypeBool:
		if _, err := parseBool(value); err != nil {
			return fmt.Errorf("expected bool, got %q", value)
		}
	case TypeInt:
		if _, err := strconv.Atoi(value); err != nil {
			return fmt.Errorf("expected int, got %q", value)
		}
	case TypeDuration:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("expected duration, got %q", value)
		}
	case TypeEnum:
		for _, v := range o.Values {
			if v == value {
				return nil
			}
		}
		return fmt.Errorf("expected one of %s, got %q", strings.Join(o.Values, ", "), value)
	default:
		return fmt.Errorf("unknown option type %q", o.Type)
	}
	return nil
}

// FormatHelp renders the schema as a reference, global options first.
func (s *ConfigSchema) FormatHelp() string {
	var b strings.Builder
	if opts := s.Options(""); len(opts) > 0 {
		b.WriteString("Global Options:\n")
		for _, o := range opts {
			writeOptionHelp(&b, o)
		}
	}
	for _, sec := range s.Sections() {
		fmt.Fprintf(&b, "\n[%s] Options:\n", sec)
		for _, o := range s.Options(sec) {
			writeOptionHelp(&b, o)
		}
	}
	return b.String()
}

func writeOptionHelp(b *strings.Builder, o ConfigOption) {
	fmt.Fprintf(b, "  %-24s %s", o.Key, o.Description)
	var parts []string
	switch o.Type {
	case TypeString, "":
	case TypeEnum:
		parts = append(parts, "one of: "+strings.Join(o.Values, "|"))
	default:
		parts = append(parts, "type: "+string(o.Type))
	}
	if o.Default != "" {
		parts = append(parts, "default: "+o.Default)
	}
	if o.EnvVar != "" {
		parts = append(parts, "env: "+o.EnvVar)
	}
	if len(parts) > 0 {
		fmt.Fprintf(b, " (%s)", strings.Join(parts, ", "))
	}
	b.WriteByte('\n')
}

// Option keys.
const (
	KeyLogLevel           = "log.level"
	KeyLogFile            = "log.file"
	KeyWaitTimeout        = "wait.timeout"
	KeyWaitInterval       = "wait.interval"
	KeyStartupTimeout     = "startup.timeout"
	KeyGateTimeout        = "gate.timeout"
	KeyMenuTimeout        = "menu.timeout"
	KeySettingsBaseDir    = "settings.base-dir"
	KeySettingsFlag       = "settings.flag"
	KeySettingsKeep       = "settings.keep"
	KeyTerminalRows       = "terminal.rows"
	KeyTerminalCols       = "terminal.cols"
	KeyObjectMapPath      = "objectmap.path"
	KeyReportFormat       = "report.format"
	KeyPluginErrorLocator = "plugin-error.locator"
	KeyColor              = "color"
)

// DefaultSchema returns every option uidriver understands.
func DefaultSchema() *ConfigSchema {
	s := NewSchema()
	s.Register(
		ConfigOption{Key: KeyLogLevel, Type: TypeEnum, Values: []string{"debug", "info", "warn", "error"}, Default: "info", Description: "Log level", EnvVar: "UIDRIVER_LOG_LEVEL"},
		ConfigOption{Key: KeyLogFile, Default: "", Description: "Write JSON logs to this file instead of stderr", EnvVar: "UIDRIVER_LOG_FILE"},
		ConfigOption{Key: KeyWaitTimeout, Type: TypeDuration, Default: "20s", Description: "Default timeout of waitForObject"},
		ConfigOption{Key: KeyWaitInterval, Type: TypeDuration, Default: "25ms", Description: "Polling interval of waits"},
		ConfigOption{Key: KeyStartupTimeout, Type: TypeDuration, Default: "10s", Description: "Time an application gets to publish its first widget tree"},
		ConfigOption{Key: KeyGateTimeout, Type: TypeDuration, Default: "1s", Description: "Time the startup gate looks for the plugin error dialog"},
		ConfigOption{Key: KeyMenuTimeout, Type: TypeDuration, Default: "5s", Description: "Time a menu item gets to appear"},
		ConfigOption{Key: KeySettingsBaseDir, Default: "", Description: "Parent directory of per-session settings directories (default: system temp dir)"},
		ConfigOption{Key: KeySettingsFlag, Default: "-settingspath", Description: "Flag passing the settings directory to the application, - to disable"},
		ConfigOption{Key: KeySettingsKeep, Type: TypeBool, Default: "false", Description: "Keep settings directories after teardown"},
		ConfigOption{Key: KeyTerminalRows, Type: TypeInt, Default: "24", Description: "Terminal rows of launched applications"},
		ConfigOption{Key: KeyTerminalCols, Type: TypeInt, Default: "80", Description: "Terminal columns of launched applications"},
		ConfigOption{Key: KeyObjectMapPath, Default: "", Description: "Object map used instead of the one next to each script"},
		ConfigOption{Key: KeyReportFormat, Type: TypeEnum, Values: []string{"text", "json"}, Default: "text", Description: "Report output format"},
		ConfigOption{Key: KeyPluginErrorLocator, Default: "*://Dialog{name='PluginErrorOverview'}", Description: "Locator of the plugin error dialog checked at startup"},
		ConfigOption{Key: KeyColor, Type: TypeEnum, Values: []string{"auto", "always", "never"}, Default: "auto", Description: "Colour text reports"},

		ConfigOption{Key: "keep-going", Section: "run", Type: TypeBool, Default: "true", Description: "Run remaining scripts after a failure"},
		ConfigOption{Key: "depth", Section: "tree", Type: TypeInt, Default: "0", Description: "Maximum depth printed, 0 for all"},
	)
	return s
}
