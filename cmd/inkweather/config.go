// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wneessen/inkweather/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Validate or create config files",
	}
	cmd.AddCommand(validateCmd())
	cmd.AddCommand(wizardCmd())
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a YAML config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(args[0]); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Config valid")
			return nil
		},
	}
}

func wizardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wizard <dst>",
		Short: "Interactively create a config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.EnsureDir(args[0]); err != nil {
				return err
			}
			_, err := config.Wizard(cmd.InOrStdin(), cmd.OutOrStdout(), args[0])
			return err
		},
	}
}
