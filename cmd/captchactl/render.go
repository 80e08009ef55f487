package main

import (
	"fmt"
	"os"

	"github.com/MrEthical07/goCaptcha/challenge"
	"github.com/MrEthical07/goCaptcha/random"
	"github.com/spf13/cobra"
)

func newRenderCmd(cfg *envConfig) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write one challenge image and print its answer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			renderer, err := challenge.NewCanvasRenderer(random.System())
			if err != nil {
				return err
			}
			c, err := challenge.NewGenerator(random.System(), renderer).Generate(challenge.Options{
				Length:   cfg.Length,
				Excluded: cfg.Exclude,
			})
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, c.Image, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.Text)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "challenge.png", "output PNG path")
	return cmd
}
