package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"palette-porter/internal/algorithms"
	"palette-porter/internal/app"
	"palette-porter/internal/gui/widgets"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	configPath string
	logLevel   string
}

type outputOptions struct {
	output string
	show   bool
}

func (o *outputOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "write the result to this file (format from extension)")
	cmd.Flags().BoolVar(&o.show, "show", false, "show the images even when writing a file")
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:          app.AppName,
		Short:        "Transfer colour statistics between images",
		Version:      app.AppVersion,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (default from LOG_LEVEL or config)")

	rootCmd.AddCommand(
		newTransferCmd(opts),
		newMaskCmd(opts),
		newDiffCmd(opts),
		newAlgorithmsCmd(opts),
	)

	return rootCmd
}

func run(cmd *cobra.Command, opts *globalOptions, build func(*app.Application) (app.Job, error)) error {
	application, err := app.NewApplication(app.Options{
		ConfigPath: opts.configPath,
		LogLevel:   opts.logLevel,
	})
	if err != nil {
		return err
	}
	defer application.Shutdown()

	job, err := build(application)
	if err != nil {
		return err
	}

	return application.Run(cmd.Context(), job)
}

func newTransferCmd(opts *globalOptions) *cobra.Command {
	var (
		source, target string
		out            outputOptions
		clip           = newBoolValue(true)
		preservePaper  = newBoolValue(true)
	)

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Give the target image the colour statistics of the source image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, func(*app.Application) (app.Job, error) {
				params := map[string]interface{}{}
				if cmd.Flags().Changed("clip") {
					params["clip"] = clip.value
				}
				if cmd.Flags().Changed("preserve-paper") {
					params["preserve_paper"] = preservePaper.value
				}

				return app.Job{
					Algorithm: algorithms.ColorTransfer,
					Primary:   target,
					Reference: source,
					Params:    params,
					Output:    out.output,
					Show:      out.show,
				}, nil
			})
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "image whose colours are taken")
	cmd.Flags().StringVarP(&target, "target", "t", "", "image that is recoloured")
	cmd.Flags().VarP(clip, "clip", "c", "clip out-of-range values instead of rescaling (yes/no)")
	cmd.Flags().VarP(preservePaper, "preserve-paper", "p", "scale by target/source deviation (yes/no)")
	out.register(cmd)
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("target")

	return cmd
}

func newMaskCmd(opts *globalOptions) *cobra.Command {
	var (
		input, lower, upper, mode string
		out                       outputOptions
	)

	cmd := &cobra.Command{
		Use:   "mask",
		Short: "Keep the pixels whose HSV value lies in a range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, func(*app.Application) (app.Job, error) {
				params, err := maskParams(cmd, lower, upper, mode)
				if err != nil {
					return app.Job{}, err
				}

				return app.Job{
					Algorithm: algorithms.ColorRangeMask,
					Primary:   input,
					Params:    params,
					Output:    out.output,
					Show:      out.show,
				}, nil
			})
		},
	}

	cmd.Flags().StringVarP(&input, "image", "i", "", "input image")
	cmd.Flags().StringVar(&lower, "lower", "", "lower HSV bound as h,s,v")
	cmd.Flags().StringVar(&upper, "upper", "", "upper HSV bound as h,s,v")
	cmd.Flags().StringVar(&mode, "output-mode", "", "masked, mask or inverted")
	out.register(cmd)
	_ = cmd.MarkFlagRequired("image")

	return cmd
}

func maskParams(cmd *cobra.Command, lower, upper, mode string) (map[string]interface{}, error) {
	params := map[string]interface{}{}

	for prefix, raw := range map[string]string{"lower": lower, "upper": upper} {
		if !cmd.Flags().Changed(prefix) {
			continue
		}
		hsv, err := parseHSV(raw)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", prefix, err)
		}
		params[prefix+"_h"] = hsv[0]
		params[prefix+"_s"] = hsv[1]
		params[prefix+"_v"] = hsv[2]
	}

	if cmd.Flags().Changed("output-mode") {
		params["output"] = mode
	}

	return params, nil
}

func newDiffCmd(opts *globalOptions) *cobra.Command {
	var (
		baseline, frame string
		threshold       float64
		minArea         float64
		out             outputOptions
	)

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Box the regions where a frame differs from a baseline image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts, func(*app.Application) (app.Job, error) {
				params := map[string]interface{}{}
				if cmd.Flags().Changed("threshold") {
					params["default_threshold"] = threshold
				}
				if cmd.Flags().Changed("min-area") {
					params["min_area"] = minArea
				}

				return app.Job{
					Algorithm: algorithms.RegionChange,
					Primary:   frame,
					Reference: baseline,
					Params:    params,
					Output:    out.output,
					Show:      out.show,
				}, nil
			})
		},
	}

	cmd.Flags().StringVarP(&baseline, "baseline", "b", "", "reference image")
	cmd.Flags().StringVarP(&frame, "frame", "f", "", "image compared against the baseline")
	cmd.Flags().Float64Var(&threshold, "threshold", 20, "difference threshold when no regions are configured")
	cmd.Flags().Float64Var(&minArea, "min-area", 300, "smallest changed area reported, in pixels")
	out.register(cmd)
	_ = cmd.MarkFlagRequired("baseline")
	_ = cmd.MarkFlagRequired("frame")

	return cmd
}

func newAlgorithmsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List the available algorithms and their current parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			application, err := app.NewApplication(app.Options{
				ConfigPath: opts.configPath,
				LogLevel:   opts.logLevel,
			})
			if err != nil {
				return err
			}
			defer application.Shutdown()

			describeAlgorithms(cmd, application.Algorithms())
			return nil
		},
	}
}

func describeAlgorithms(cmd *cobra.Command, manager *algorithms.Manager) {
	w := cmd.OutOrStdout()

	for _, name := range manager.GetAvailableAlgorithms() {
		params := manager.GetParameters(name)

		keys := make([]string, 0, len(params))
		for key := range params {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fields := make([]string, 0, len(keys))
		for _, key := range keys {
			fields = append(fields, key+"="+widgets.FormatValue(params[key]))
		}

		fmt.Fprintf(w, "%s\n  %s\n", name, strings.Join(fields, " "))
	}
}
