package main

import (
	"errors"
	"fmt"
	"os"

	"robolab/cmd/robolab/ui"
	"robolab/internal/instrument"

	"github.com/spf13/cobra"
)

func instrumentCmd() *cobra.Command {
	var output string
	var compat bool

	cmd := &cobra.Command{
		Use:   "instrument <file>",
		Short: "Rewrite a user program with frequency control",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			code := string(source)
			if compat {
				code = instrument.CompatRewrite(code)
			}

			out, err := instrument.Apply(code)
			if errors.Is(err, instrument.ErrNoLoop) {
				return fmt.Errorf("%s: no top-level iterative loop found", args[0])
			}
			if err != nil {
				return err
			}

			if output == "" {
				fmt.Print(out)
				return nil
			}
			if err := os.WriteFile(output, []byte(out), 0o644); err != nil {
				return err
			}
			fmt.Println(ui.SuccessMsg("wrote %s", output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write result to file instead of stdout")
	cmd.Flags().BoolVar(&compat, "compat", false, "Apply interface import substitutions first")
	return cmd
}
