package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/seslattery/launchwarden/internal/config"
)

var exampleConfig = `# launchwarden configuration
# Relative paths are resolved against this file's directory (.launchwarden/),
# so env_file: ../.env points at the project root.

# Program to launch. Bare names are looked up on PATH.
executable: supabase-mcp-server
args: []

# KEY=VALUE file loaded before launch. Values do not replace variables that
# are already set unless env_file_override is true.
env_file: ../.env
env_file_override: false

# Start from the current environment. With strip_secrets, inherited
# variables that look like credentials are dropped unless listed in
# env_passthrough.
inherit_env: true
strip_secrets: false
env_passthrough: []

# Fixed overrides and removals.
env:
  LOG_LEVEL: info
unset: []

# Fetch secrets from Doppler when DOPPLER_TOKEN is set. Without a token
# the same names are read from the current environment.
# doppler:
#   project: my-project
#   config: dev
#   secrets: [SUPABASE_ACCESS_TOKEN]
#   cache_ttl: 5m

supervisor:
  kill_after: 10s

telemetry:
  enabled: false
`

var exampleEnv = `# Loaded by launchwarden before the server starts.
# SUPABASE_ACCESS_TOKEN=
# SUPABASE_PROJECT_REF=
`

func newInitCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an example launchwarden configuration",
		Long: `Create .launchwarden/config.yaml and an example .env in the target directory.

Existing files are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.OutOrStdout(), dir)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "Project directory to initialize")
	return cmd
}

func runInit(out io.Writer, dir string) error {
	dir = config.ExpandPath(dir)
	configDir := filepath.Join(dir, config.ConfigDirName)
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, config.ConfigFileName)
	if err := writeFileIfNotExists(out, configPath, exampleConfig, 0o644); err != nil {
		return err
	}
	envPath := filepath.Join(dir, config.DefaultEnvFile)
	if err := writeFileIfNotExists(out, envPath, exampleEnv, 0o600); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "1. Set executable in", configPath)
	fmt.Fprintln(out, "2. Put the server's variables in", envPath)
	fmt.Fprintln(out, "3. Run: launchwarden")
	return nil
}

func writeFileIfNotExists(out io.Writer, path, content string, perm os.FileMode) error {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(out, "⊘ Skipped (already exists): %s\n", path)
		return nil
	}

	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(out, "✓ Created %s\n", path)
	return nil
}
