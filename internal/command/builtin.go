package command

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/joeycumines/uidriver/internal/config"
)

// HelpCommand displays help information for commands.
type HelpCommand struct {
	*BaseCommand
	registry *Registry
}

// NewHelpCommand creates a new help command.
func NewHelpCommand(registry *Registry) *HelpCommand {
	return &HelpCommand{
		BaseCommand: NewBaseCommand(
			"help",
			"Display help information for commands",
			"help [command]",
		),
		registry: registry,
	}
}

// Execute displays help information.
func (c *HelpCommand) Execute(_ context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		_, _ = fmt.Fprintln(stdout, "uidriver - drive terminal applications through their widget tree")
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Usage: uidriver <command> [options] [args...]")
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Available commands:")

		w := tabwriter.NewWriter(stdout, 0, 8, 2, ' ', 0)
		for _, name := range c.registry.List() {
			if cmd, err := c.registry.Get(name); err == nil {
				_, _ = fmt.Fprintf(w, "  %s\t%s\n", name, cmd.Description())
			}
		}
		_ = w.Flush()

		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Use 'uidriver help <command>' for more information about a specific command (includes flags).")
		return nil
	}

	cmd, err := c.registry.Get(args[0])
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[0])
		return err
	}

	_, _ = fmt.Fprintf(stdout, "Command: %s\n", cmd.Name())
	_, _ = fmt.Fprintf(stdout, "Description: %s\n", cmd.Description())
	_, _ = fmt.Fprintf(stdout, "Usage: %s\n", cmd.Usage())

	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	buf := &bytes.Buffer{}
	fs.SetOutput(buf)
	cmd.SetupFlags(fs)
	fs.PrintDefaults()
	if buf.Len() > 0 {
		_, _ = fmt.Fprintln(stdout, "")
		_, _ = fmt.Fprintln(stdout, "Flags:")
		_, _ = fmt.Fprint(stdout, buf.String())
	}
	return nil
}

// VersionCommand displays version information.
type VersionCommand struct {
	*BaseCommand
	version string
}

// NewVersionCommand creates a new version command.
func NewVersionCommand(version string) *VersionCommand {
	return &VersionCommand{
		BaseCommand: NewBaseCommand(
			"version",
			"Display version information",
			"version",
		),
		version: version,
	}
}

// Execute displays version information.
func (c *VersionCommand) Execute(_ context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}
	_, _ = fmt.Fprintf(stdout, "uidriver version %s\n", c.version)
	return nil
}

// ConfigCommand shows and edits configuration.
type ConfigCommand struct {
	*BaseCommand
	config     *config.Config
	configPath string
	section    string
	showAll    bool
}

// NewConfigCommand creates a new config command. Values set through it
// are written to configPath; an empty path skips persistence.
func NewConfigCommand(cfg *config.Config, configPath string) *ConfigCommand {
	return &ConfigCommand{
		BaseCommand: NewBaseCommand(
			"config",
			"Show or change configuration settings",
			"config [options] [validate|schema|key [value]]",
		),
		config:     cfg,
		configPath: configPath,
	}
}

// SetupFlags configures the flags for the config command.
func (c *ConfigCommand) SetupFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.section, "section", "", "Command section to read or write instead of the global options")
	fs.BoolVar(&c.showAll, "all", false, "Show the effective value of every option")
}

// Execute shows or changes configuration.
func (c *ConfigCommand) Execute(_ context.Context, args []string, stdout, stderr io.Writer) error {
	schema := config.DefaultSchema()
	switch {
	case len(args) == 0 && c.showAll:
		c.writeEffective(stdout, schema)
		return nil
	case len(args) == 0:
		_, _ = fmt.Fprintln(stdout, "Configuration management:")
		_, _ = fmt.Fprintln(stdout, "  config <key>              - Get the effective value")
		_, _ = fmt.Fprintln(stdout, "  config <key> <value>      - Set a value")
		_, _ = fmt.Fprintln(stdout, "  config -section run ...   - Use the [run] section")
		_, _ = fmt.Fprintln(stdout, "  config -all               - Show every effective value")
		_, _ = fmt.Fprintln(stdout, "  config validate           - Validate configuration")
		_, _ = fmt.Fprintln(stdout, "  config schema             - Show configuration schema")
		return nil
	case len(args) == 1 && args[0] == "validate":
		return c.executeValidate(stdout)
	case len(args) == 1 && args[0] == "schema":
		_, _ = fmt.Fprint(stdout, schema.FormatHelp())
		return nil
	case len(args) == 1:
		_, _ = fmt.Fprintf(stdout, "%s: %s\n", args[0], schema.Value(c.config, c.section, args[0]))
		return nil
	case len(args) == 2:
		key, value := args[0], args[1]
		if c.section == "" {
			c.config.SetGlobalOption(key, value)
		} else {
			c.config.SetCommandOption(c.section, key, value)
		}
		for _, issue := range config.ValidateConfig(c.config, schema) {
			_, _ = fmt.Fprintf(stderr, "Warning: %s\n", issue)
		}
		if c.configPath != "" {
			if err := config.SetKeyInFile(c.configPath, c.section, key, value); err != nil {
				return fmt.Errorf("failed to persist config: %w", err)
			}
		}
		_, _ = fmt.Fprintf(stdout, "Set configuration: %s = %s\n", key, value)
		return nil
	}
	_, _ = fmt.Fprintln(stderr, "Invalid number of arguments")
	return fmt.Errorf("invalid arguments")
}

func (c *ConfigCommand) writeEffective(w io.Writer, schema *config.ConfigSchema) {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	for _, opt := range schema.Options("") {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", opt.Key, schema.Value(c.config, c.section, opt.Key))
	}
	for _, sec := range schema.Sections() {
		_, _ = fmt.Fprintf(tw, "[%s]\t\n", sec)
		for _, opt := range schema.Options(sec) {
			_, _ = fmt.Fprintf(tw, "  %s\t%s\n", opt.Key, schema.Value(c.config, sec, opt.Key))
		}
	}
	_ = tw.Flush()
}

func (c *ConfigCommand) executeValidate(stdout io.Writer) error {
	issues := config.ValidateConfig(c.config, config.DefaultSchema())
	if len(issues) == 0 {
		_, _ = fmt.Fprintln(stdout, "Configuration is valid.")
		return nil
	}
	_, _ = fmt.Fprintf(stdout, "Configuration has %d issue(s):\n", len(issues))
	for _, issue := range issues {
		_, _ = fmt.Fprintf(stdout, "  - %s\n", issue)
	}
	return &ExitError{Code: 1, Err: errors.New("invalid configuration")}
}

const defaultConfigFile = `# uidriver configuration file
# Format: optionName remainingLineIsTheValue
# Use [command_name] sections for command-specific options.
# Run 'uidriver config schema' for every option.

log.level info
wait.timeout 20s
startup.timeout 10s

[run]
report.format text
`

// InitCommand writes a starter configuration file.
type InitCommand struct {
	*BaseCommand
	configPath string
	force      bool
}

// NewInitCommand creates a new init command writing to configPath.
func NewInitCommand(configPath string) *InitCommand {
	return &InitCommand{
		BaseCommand: NewBaseCommand(
			"init",
			"Write a starter configuration file",
			"init [options]",
		),
		configPath: configPath,
	}
}

// SetupFlags configures the flags for the init command.
func (c *InitCommand) SetupFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.force, "force", false, "Overwrite an existing configuration")
}

// Execute writes the configuration file.
func (c *InitCommand) Execute(_ context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		_, _ = fmt.Fprintf(stderr, "unexpected arguments: %v\n", args)
		return fmt.Errorf("unexpected arguments")
	}
	if _, err := os.Stat(c.configPath); err == nil && !c.force {
		_, _ = fmt.Fprintf(stdout, "Configuration already exists at: %s\n", c.configPath)
		_, _ = fmt.Fprintln(stdout, "Use -force to overwrite existing configuration")
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(c.configPath, []byte(defaultConfigFile), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	_, _ = fmt.Fprintf(stdout, "Initialized uidriver configuration at: %s\n", c.configPath)
	return nil
}
