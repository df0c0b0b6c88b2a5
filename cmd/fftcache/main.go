// Command fftcache inspects and manages the gpufft rtc compile cache, and
// can pre-compile ("warm") the kernels a set of transform lengths needs.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	gpufft "github.com/cwbudde/gpufft"
	"github.com/cwbudde/gpufft/envconfig"
	"github.com/cwbudde/gpufft/internal/generator"
	"github.com/cwbudde/gpufft/rtc"
)

func main() {
	slog.SetLogLoggerLevel(envconfig.LogLevel())
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dir string

	root := &cobra.Command{
		Use:           "fftcache",
		Short:         "Inspect and manage the gpufft runtime compile cache",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dir, "dir", envconfig.CachePath(), "cache directory")

	openCache := func() (*rtc.Cache, error) {
		return rtc.Open(dir, rtc.CacheOptions{MaxBytes: envconfig.CacheMaxBytes()})
	}

	root.AddCommand(newInfoCmd(openCache))
	root.AddCommand(newListCmd(openCache))
	root.AddCommand(newClearCmd(openCache))
	root.AddCommand(newPruneCmd(openCache))
	root.AddCommand(newWarmCmd(openCache))
	return root
}

func newInfoCmd(open func() (*rtc.Cache, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show cache location, footprint and generator signature",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, err := open()
			if err != nil {
				return err
			}
			entries, err := cache.Entries()
			if err != nil {
				return err
			}
			var total int64
			for _, e := range entries {
				total += e.Size
			}
			fmt.Fprintf(cmd.OutOrStdout(), "directory:  %s\n", cache.Dir())
			fmt.Fprintf(cmd.OutOrStdout(), "entries:    %d\n", len(entries))
			fmt.Fprintf(cmd.OutOrStdout(), "footprint:  %s\n", formatSize(total))
			fmt.Fprintf(cmd.OutOrStdout(), "signature:  %s\n", gpufft.GeneratorSignature())
			for k, v := range envconfig.AsMap() {
				fmt.Fprintf(cmd.OutOrStdout(), "env %s=%s\n", k, v)
			}
			return nil
		},
	}
}

func newListCmd(open func() (*rtc.Cache, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached kernel binaries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, err := open()
			if err != nil {
				return err
			}
			entries, err := cache.Entries()
			if err != nil {
				return err
			}
			sort.Slice(entries, func(i, j int) bool {
				return entries[i].Key.Kernel < entries[j].Key.Kernel
			})
			current := gpufft.GeneratorSignature()
			for _, e := range entries {
				marker := ""
				if e.Key.Signature != current {
					marker = "  (stale)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-60s %-10s %8s  %s%s\n",
					e.Key.Kernel, e.Key.Arch, formatSize(e.Size),
					e.ModTime.Format(time.DateTime), marker)
			}
			return nil
		},
	}
}

func newClearCmd(open func() (*rtc.Cache, error)) *cobra.Command {
	var stale bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached binaries (all, or only stale-signature entries)",
		RunE: func(_ *cobra.Command, _ []string) error {
			cache, err := open()
			if err != nil {
				return err
			}
			if stale {
				return cache.ClearMismatched(gpufft.GeneratorSignature())
			}
			return cache.Clear()
		},
	}
	cmd.Flags().BoolVar(&stale, "stale", false, "only remove entries from older generator versions")
	return cmd
}

func newPruneCmd(open func() (*rtc.Cache, error)) *cobra.Command {
	var maxSize string
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Evict least-recently-used entries down to a size bound",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, err := open()
			if err != nil {
				return err
			}
			bound, err := parseSize(maxSize)
			if err != nil {
				return err
			}
			removed, err := cache.Prune(bound)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", removed)
			return nil
		},
	}
	cmd.Flags().StringVar(&maxSize, "max-size", "1G", "footprint bound, e.g. 512M or 2G")
	return cmd
}

func newWarmCmd(open func() (*rtc.Cache, error)) *cobra.Command {
	var (
		sizeList  string
		arch      string
		precision string
		toolchain string
		jobs      int
	)
	cmd := &cobra.Command{
		Use:   "warm",
		Short: "Pre-compile the kernels a set of transform lengths needs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, err := open()
			if err != nil {
				return err
			}
			prec, err := parsePrecision(precision)
			if err != nil {
				return err
			}
			var compiler rtc.Compiler
			switch toolchain {
			case "hip":
				compiler = rtc.NewHIPCompiler()
			case "nvcc":
				compiler = rtc.NewNVRTCCompiler()
			default:
				return fmt.Errorf("unknown toolchain %q (want hip or nvcc)", toolchain)
			}
			pipe := rtc.NewPipeline(cache, compiler, rtc.PipelineOptions{
				BypassCache: envconfig.BypassCache(),
			})

			sizes, err := parseSizes(sizeList)
			if err != nil {
				return err
			}
			specs := make(map[gpufft.KernelSpec]bool)
			for _, n := range sizes {
				plan, err := gpufft.NewPlan(n, prec, gpufft.LayoutInterleaved, gpufft.PlanOptions{})
				if err != nil {
					return fmt.Errorf("size %d: %w", n, err)
				}
				for _, dir := range []gpufft.Direction{gpufft.Forward, gpufft.Inverse} {
					for _, s := range plan.Specs(dir) {
						specs[s] = true
					}
				}
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(jobs)
			sig := gpufft.GeneratorSignature()
			for spec := range specs {
				spec := spec
				g.Go(func() error {
					name := spec.EntryPoint()
					_, err := pipe.Compile(ctx, name, arch, func(string) (string, error) {
						_, src, err := generator.Generate(spec)
						return src, err
					}, sig)
					if err != nil {
						return fmt.Errorf("%s: %w", name, err)
					}
					slog.Info("compiled", "kernel", name, "arch", arch)
					return nil
				})
			}
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&sizeList, "sizes", "256,1024,4096", "comma-separated transform lengths")
	cmd.Flags().StringVar(&arch, "arch", "", "target architecture identifier (required)")
	cmd.Flags().StringVar(&precision, "precision", "single", "single, double or half")
	cmd.Flags().StringVar(&toolchain, "toolchain", "hip", "device compiler: hip or nvcc")
	cmd.Flags().IntVar(&jobs, "jobs", 4, "concurrent compilations")
	_ = cmd.MarkFlagRequired("arch")
	return cmd
}

func parseSizes(s string) ([]int, error) {
	var sizes []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid size %q", part)
		}
		sizes = append(sizes, n)
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("no sizes specified")
	}
	return sizes, nil
}

func parsePrecision(s string) (gpufft.Precision, error) {
	switch strings.ToLower(s) {
	case "single", "sp", "float":
		return gpufft.PrecisionSingle, nil
	case "double", "dp":
		return gpufft.PrecisionDouble, nil
	case "half", "hp":
		return gpufft.PrecisionHalf, nil
	default:
		return gpufft.PrecisionSingle, fmt.Errorf("unknown precision %q", s)
	}
}

func parseSize(s string) (int64, error) {
	mult := int64(1)
	switch {
	case strings.HasSuffix(s, "K"), strings.HasSuffix(s, "k"):
		mult, s = 1<<10, s[:len(s)-1]
	case strings.HasSuffix(s, "M"), strings.HasSuffix(s, "m"):
		mult, s = 1<<20, s[:len(s)-1]
	case strings.HasSuffix(s, "G"), strings.HasSuffix(s, "g"):
		mult, s = 1<<30, s[:len(s)-1]
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid size %q", s)
	}
	return n * mult, nil
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<30:
		return fmt.Sprintf("%.1fG", float64(n)/(1<<30))
	case n >= 1<<20:
		return fmt.Sprintf("%.1fM", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1fK", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%dB", n)
	}
}
