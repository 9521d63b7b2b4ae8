/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command yololabel annotates images with YOLO bounding boxes and maintains
// the resulting label sets.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"yololabel/internal/config"
	"yololabel/internal/crash"
	applog "yololabel/internal/log"
	"yololabel/internal/version"
)

// app carries what the subcommands share after the root pre-run.
type app struct {
	cfg    config.AppConfig
	secret string
	log    *slog.Logger

	// loadConfig is replaced in tests to keep the user config and keyring out of reach.
	loadConfig func() (config.AppConfig, string, error)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "yololabel",
		Short: "Draw, edit and maintain YOLO bounding-box labels",
		Long: `YOLO Label draws and edits axis-aligned bounding boxes on images and stores
them as YOLO label files (one "<class> <xc> <yc> <w> <h>" line per box,
normalized to the image size).

Examples:
  yololabel ui ./images
  yololabel check ./labels
  yololabel export ./images ./labels --json manifest.json --pdf report.pdf`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, secret, err := a.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
				cfg.Logging.Level = lvl
			}
			applog.Init(applog.Options{
				Level:     cfg.Logging.Level,
				Format:    cfg.Logging.Format,
				AddSource: cfg.Logging.Source,
				File:      cfg.Logging.File,
				Writer:    cmd.ErrOrStderr(),
			})
			a.cfg, a.secret = cfg, secret
			a.log = applog.WithComponent("cli")
			a.log.Debug("start", slog.String("cmd", cmd.Name()))
			return nil
		},
	}
	root.SetVersionTemplate("YOLO Label {{.Version}}\n")
	root.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(
		newVersionCmd(),
		newCheckCmd(a),
		newNormalizeCmd(a),
		newIndexCmd(a),
		newExportCmd(a),
		newUICmd(a),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "YOLO Label")
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func main() {
	defer crash.Recover(nil)

	a := &app{loadConfig: config.Load}
	if err := newRootCmd(a).Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
