package main

import (
	"fmt"
	"os"

	"github.com/marmos91/mediagc/pkg/config"
	"github.com/spf13/cobra"
)

var (
	initForce bool
	initPath  string
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := initPath
		if path == "" {
			p, err := config.InitConfig(initForce)
			if err != nil {
				return err
			}
			path = p
		} else if err := config.InitConfigToPath(path, initForce); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
		return nil
	},
}

var configSchemaCmd = &cobra.Command{
	Use:   "schema [output]",
	Short: "Write the configuration JSON schema (stdout when no file is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := config.SchemaJSON()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		}

		if err := os.WriteFile(args[0], data, 0644); err != nil {
			return fmt.Errorf("failed to write schema file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "JSON schema written to %s\n", args[0])
		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load and validate the configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid (files=%s leases=%s references=%d)\n",
			cfg.Files.Type, cfg.Leases.Type, len(cfg.References))
		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing file")
	configInitCmd.Flags().StringVarP(&initPath, "path", "p", "", "write to this path instead of the default location")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configSchemaCmd)
	configCmd.AddCommand(configValidateCmd)
}
