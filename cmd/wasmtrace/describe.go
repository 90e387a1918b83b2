package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wasmtrace/wasmtrace/internal/wasmbin"
	"github.com/wasmtrace/wasmtrace/wasmview"
)

// newDescribeCommand prints every function in a module's function index
// space without instrumenting it, mirroring the print-functions diagnostic
// the original tool offered ahead of deciding what to --call under exec.
func newDescribeCommand(log *logrus.Logger, stdOut, stdErr *os.File) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <input.wasm>",
		Short: "Lists the functions in a module's function index space",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("describe: %w", err)
			}
			defer in.Close()

			m, err := wasmbin.DecodeModule(in)
			if err != nil {
				return fmt.Errorf("describe: %w", err)
			}

			view := wasmview.New(m)
			it := view.Functions()
			count := 0
			for {
				fn, ok := it.Next()
				if !ok {
					break
				}
				fmt.Fprint(stdOut, fn.String())
				count++
			}
			log.WithField("functions", count).Debug("describe: done")
			return nil
		},
	}
}
