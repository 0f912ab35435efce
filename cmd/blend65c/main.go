// Copyright 2026 Blend65 Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blend65/blend65/internal/codegen6502"
	"github.com/blend65/blend65/internal/compiler"
	"github.com/blend65/blend65/internal/config"
)

var debug bool

var rootCmd = &cobra.Command{
	Use: "blend65c",
}

var compileCmd = &cobra.Command{
	Use:  "compile source... [-o output] [-t target] [-O optimization] [-e exit-behavior]",
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		log := logrus.StandardLogger()
		if debug {
			log.SetLevel(logrus.DebugLevel)
		}

		output, _ := cmd.PersistentFlags().GetString("output")
		target, _ := cmd.PersistentFlags().GetString("target")
		optimization, _ := cmd.PersistentFlags().GetString("optimization")
		exitBehavior, _ := cmd.PersistentFlags().GetString("exit-behavior")
		configPath, _ := cmd.PersistentFlags().GetString("config")

		opts := config.CompilerOptions{Target: target, Optimization: optimization, ExitBehavior: exitBehavior}
		if configPath != "" {
			fileOpts, err := config.Load(configPath, log)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(int(compiler.ExitInvalidArgs))
			}
			// A flag left at its default does not override a value the file sets.
			if !cmd.PersistentFlags().Changed("target") && fileOpts.Target != "" {
				opts.Target = ""
			}
			if !cmd.PersistentFlags().Changed("optimization") && fileOpts.Optimization != "" {
				opts.Optimization = ""
			}
			if !cmd.PersistentFlags().Changed("exit-behavior") {
				opts.ExitBehavior = ""
			}
			opts = mergeOptions(fileOpts, opts)
		}

		if _, err := codegen6502.ParseExitBehaviorStrict(opts.ExitBehavior); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid values: %v\n", err)
			os.Exit(int(compiler.ExitInvalidArgs))
		}

		sess := compiler.NewSession(log)
		result := sess.Compile(compiler.Request{Files: args, Config: opts})

		for _, d := range result.Diags {
			fmt.Fprintln(os.Stderr, d.String())
		}

		if result.ExitCode == compiler.ExitSuccess {
			if err := writeOutput(output, args[0], result.Assembly); err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(int(compiler.ExitInternalError))
			}
			if debug {
				mapBase := trimExt(output)
				if output == "" {
					mapBase = filepath.Join(filepath.Dir(args[0]), trimExt(filepath.Base(args[0])))
				}
				data, err := json.Marshal(result.SourceMap)
				if err == nil {
					err = os.WriteFile(mapBase+"-"+sess.ID.String()+".map.json", data, 0o644)
				}
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(int(compiler.ExitInternalError))
				}
			}
		}

		os.Exit(int(result.ExitCode))
	},
}

// mergeOptions layers cliOpts over fileOpts: a non-empty CLI value wins,
// otherwise the config file's value is kept.
func mergeOptions(fileOpts, cliOpts config.CompilerOptions) config.CompilerOptions {
	merged := fileOpts
	if cliOpts.Target != "" {
		merged.Target = cliOpts.Target
	}
	if cliOpts.Optimization != "" {
		merged.Optimization = cliOpts.Optimization
	}
	if cliOpts.ExitBehavior != "" {
		merged.ExitBehavior = cliOpts.ExitBehavior
	}
	return merged
}

func writeOutput(output, firstSource, asm string) error {
	if output == "" {
		output = filepath.Join(filepath.Dir(firstSource), trimExt(filepath.Base(firstSource))+".asm")
	}
	return os.WriteFile(output, []byte(asm), 0o644)
}

func trimExt(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}

func init() {
	compileCmd.PersistentFlags().StringP("output", "o", "", "output assembly file path")
	compileCmd.PersistentFlags().StringP("target", "t", "c64", "target architecture (c64)")
	compileCmd.PersistentFlags().StringP("optimization", "O", "O1", "optimization level (O0, O1, O2)")
	compileCmd.PersistentFlags().StringP("exit-behavior", "e", "loop", "program-exit behavior (loop, basic, reset)")
	compileCmd.PersistentFlags().String("config", "", "path to a blend65.json or blend65.yaml config file")
	compileCmd.PersistentFlags().BoolVarP(&debug, "debug", "v", false, "enable debug logging and source-map output")
	rootCmd.AddCommand(compileCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(int(compiler.ExitInvalidArgs))
	}
}
