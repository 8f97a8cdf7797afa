package main

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/seslattery/launchwarden/internal/env"
	"github.com/seslattery/launchwarden/internal/launch"
)

type envOptions struct {
	showSecrets bool
	origins     bool
	json        bool
}

func newEnvCmd(ro *rootOptions) *cobra.Command {
	lo := &launchOptions{}
	eo := &envOptions{}

	cmd := &cobra.Command{
		Use:   "env",
		Short: "Print the environment the child would be launched with",
		Long: `Print the environment launchwarden would hand to the child, sorted by name.
Values of variables that look like credentials are redacted unless
--show-secrets is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnv(cmd, ro, lo, eo)
		},
	}
	addLaunchFlags(cmd, lo)
	cmd.Flags().BoolVar(&eo.showSecrets, "show-secrets", false, "Print secret values instead of redacting them")
	cmd.Flags().BoolVar(&eo.origins, "origins", false, "Annotate each variable with the source that set it")
	cmd.Flags().BoolVar(&eo.json, "json", false, "Print a JSON object instead of KEY=VALUE lines")
	return cmd
}

func runEnv(cmd *cobra.Command, ro *rootOptions, lo *launchOptions, eo *envOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := applyEnvOverrides(cmd, ro, lo); err != nil {
		return err
	}

	cfg, err := loadConfig(ro.configPath)
	if err != nil {
		return err
	}
	cliEnv, err := applyLaunchFlags(cfg, lo)
	if err != nil {
		return err
	}

	opts := launch.Options{Env: cliEnv}
	vars, err := launch.Environment(ctx, cfg, opts)
	if err != nil {
		return err
	}
	var origins map[string]string
	if eo.origins {
		if origins, err = launch.Origins(ctx, cfg, opts); err != nil {
			return err
		}
	}

	if !eo.showSecrets {
		for key, value := range vars {
			vars[key] = env.Redact(key, value)
		}
	}

	out := cmd.OutOrStdout()
	if eo.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(vars)
	}
	for _, key := range slices.Sorted(maps.Keys(vars)) {
		if origins != nil {
			fmt.Fprintf(out, "%s=%s\t# %s\n", key, vars[key], origins[key])
			continue
		}
		fmt.Fprintf(out, "%s=%s\n", key, vars[key])
	}
	return nil
}
