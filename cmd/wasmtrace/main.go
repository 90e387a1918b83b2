// Command wasmtrace instruments a WebAssembly module with call/return
// tracing, and can drive the result through wasmtime to print the decoded
// trace back out.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wasmtrace/wasmtrace/instrument"
)

func main() {
	os.Exit(doMain(os.Stdout, os.Stderr, os.Args[1:]))
}

// doMain is separated out for the purpose of unit testing.
func doMain(stdOut, stdErr *os.File, args []string) int {
	log := logrus.New()
	log.SetOutput(stdErr)

	root := newRootCommand(log, stdOut, stdErr)
	root.SetArgs(args)
	root.SetOut(stdOut)
	root.SetErr(stdErr)

	if err := root.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCommand(log *logrus.Logger, stdOut, stdErr *os.File) *cobra.Command {
	var (
		logLevel   string
		outputPath string
		cfgFile    string
	)

	root := &cobra.Command{
		Use:   "wasmtrace <input.wasm>",
		Short: "Instruments a WebAssembly module with function call/return tracing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyLogLevel(log, viper.GetString("log-level")); err != nil {
				return err
			}

			inputPath := args[0]
			out := viper.GetString("output")
			if out == "" {
				out = "output.wasm"
			}

			in, err := os.Open(inputPath)
			if err != nil {
				fmt.Fprintf(stdErr, "wasmtrace: %v\n", err)
				return err
			}
			defer in.Close()

			outFile, err := os.Create(out)
			if err != nil {
				fmt.Fprintf(stdErr, "wasmtrace: %v\n", err)
				return err
			}
			defer outFile.Close()

			stats, err := instrument.Module(log, in, outFile)
			if err != nil {
				fmt.Fprintf(stdErr, "wasmtrace: %v\n", err)
				return err
			}
			fmt.Fprintf(stdOut, "instrumented %d functions (%d skipped), wrote %s\n",
				stats.FunctionsInstrumented, stats.FunctionsSkipped, out)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default none)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	root.Flags().StringVarP(&outputPath, "output", "o", "output.wasm", "path to write the instrumented module to")

	_ = viper.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("output", root.Flags().Lookup("output"))
	viper.SetEnvPrefix("wasmtrace")
	viper.AutomaticEnv()

	cobra.OnInitialize(func() {
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
			_ = viper.ReadInConfig()
		}
	})

	root.AddCommand(newExecCommand(log, stdOut, stdErr))
	root.AddCommand(newDescribeCommand(log, stdOut, stdErr))
	return root
}

func applyLogLevel(log *logrus.Logger, level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(lvl)
	return nil
}
