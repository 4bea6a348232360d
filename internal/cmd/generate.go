package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/MeKo-Tech/texturemaps/internal/intensity"
	"github.com/MeKo-Tech/texturemaps/internal/normalmap"
	"github.com/MeKo-Tech/texturemaps/internal/pack"
	"github.com/MeKo-Tech/texturemaps/internal/pipeline"
	"github.com/MeKo-Tech/texturemaps/internal/raster"
	"github.com/MeKo-Tech/texturemaps/internal/specular"
	"github.com/MeKo-Tech/texturemaps/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// mapFilePattern matches files written by generate: {name}_{kind}.{ext}.
var mapFilePattern = regexp.MustCompile(`^(.+)_(normal|spec|displace|occlusion|channel)\.(png|jpe?g|tiff?|bmp|webp)$`)

var generateCmd = &cobra.Command{
	Use:   "generate [files...]",
	Short: "Generate texture maps",
	Long: `Generate normal, specular, displacement and occlusion maps for one or more
source textures. Sources are given as arguments and/or collected from --input-dir.`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	// Batch flags
	generateCmd.Flags().String("input-dir", "", "Process every supported texture in this directory")
	generateCmd.Flags().IntP("workers", "w", 0, "Number of parallel workers (default: number of CPUs)")
	generateCmd.Flags().Bool("progress", true, "Show progress bar when processing several textures")
	generateCmd.Flags().Bool("allow-failures", false, "Continue even if some textures fail")

	// Output flags
	generateCmd.Flags().String("format", "folder", "Output format: folder or pack")
	generateCmd.Flags().String("output-file", "", "Output file path for pack format (e.g., maps.texpack)")
	generateCmd.Flags().String("ext", "png", "Image format of the written maps (png, jpg, tiff, bmp, webp; tga writes png)")
	generateCmd.Flags().String("maps", "normal,spec,displace,occlusion", "Comma-separated maps to generate")
	generateCmd.Flags().String("channel-preview", "", "Also write the intensity of one channel (r, g, b, a)")

	// Normal map flags
	generateCmd.Flags().String("channels", "rgb", "Channels feeding the normal map intensity (any of r, g, b, a)")
	generateCmd.Flags().String("mode", "average", "Channel combination: average or max")
	generateCmd.Flags().String("kernel", "sobel", "Gradient kernel: sobel or prewitt")
	generateCmd.Flags().Float64("strength", 2.0, "Normal map strength")
	generateCmd.Flags().Bool("invert", false, "Invert the height interpretation")
	generateCmd.Flags().Bool("tileable", true, "Wrap neighbour lookups at the image edges")
	generateCmd.Flags().Int("size-percent", 100, "Scale the source before normal generation (1-100)")
	generateCmd.Flags().Bool("large-detail-auto", true, "Choose keep-large-detail settings from the texture size")
	generateCmd.Flags().Bool("keep-large-detail", false, "Blend in normals from a downsampled copy")
	generateCmd.Flags().Int("large-detail-scale", 25, "Downsampled copy size in percent (1-100)")
	generateCmd.Flags().Float64("large-detail-height", 1.0, "Weight of the large detail normals")

	// Specular flags
	generateCmd.Flags().String("spec-mode", "average", "Specular channel combination: average or max")
	generateCmd.Flags().String("spec-weights", "1,1,1,0", "Specular channel weights r,g,b[,a]")
	generateCmd.Flags().Float64("spec-scale", 1.0, "Specular brightness scale")
	generateCmd.Flags().Float64("spec-contrast", 1.5, "Specular contrast")

	// Displacement flags
	generateCmd.Flags().String("displace-mode", "average", "Displacement channel combination: average or max")
	generateCmd.Flags().String("displace-weights", "1,1,1", "Displacement channel weights r,g,b")
	generateCmd.Flags().Float64("displace-scale", 1.0, "Displacement brightness scale")
	generateCmd.Flags().Float64("displace-contrast", 1.0, "Displacement contrast")
	generateCmd.Flags().Int("displace-blur-radius", 0, "Box blur radius applied to the displacement map")
	generateCmd.Flags().Bool("displace-blur-tileable", true, "Wrap the displacement blur at the image edges")

	// Occlusion flags
	generateCmd.Flags().Float64("ssao-size", 1.0, "Occlusion sample radius in pixels")
	generateCmd.Flags().Int("ssao-samples", 16, "Occlusion samples per pixel")
	generateCmd.Flags().Int("ssao-noise-size", 4, "Side length of the rotation noise tile")
	generateCmd.Flags().Int64("ssao-seed", 1337, "Deterministic seed for the occlusion kernel")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"generate.input_dir", "input-dir"},
		{"generate.workers", "workers"},
		{"generate.progress", "progress"},
		{"generate.allow_failures", "allow-failures"},
		{"generate.format", "format"},
		{"generate.output_file", "output-file"},
		{"generate.ext", "ext"},
		{"generate.maps", "maps"},
		{"generate.channel_preview", "channel-preview"},
		{"generate.channels", "channels"},
		{"generate.mode", "mode"},
		{"generate.kernel", "kernel"},
		{"generate.strength", "strength"},
		{"generate.invert", "invert"},
		{"generate.tileable", "tileable"},
		{"generate.size_percent", "size-percent"},
		{"generate.large_detail_auto", "large-detail-auto"},
		{"generate.keep_large_detail", "keep-large-detail"},
		{"generate.large_detail_scale", "large-detail-scale"},
		{"generate.large_detail_height", "large-detail-height"},
		{"generate.spec_mode", "spec-mode"},
		{"generate.spec_weights", "spec-weights"},
		{"generate.spec_scale", "spec-scale"},
		{"generate.spec_contrast", "spec-contrast"},
		{"generate.displace_mode", "displace-mode"},
		{"generate.displace_weights", "displace-weights"},
		{"generate.displace_scale", "displace-scale"},
		{"generate.displace_contrast", "displace-contrast"},
		{"generate.displace_blur_radius", "displace-blur-radius"},
		{"generate.displace_blur_tileable", "displace-blur-tileable"},
		{"generate.ssao_size", "ssao-size"},
		{"generate.ssao_samples", "ssao-samples"},
		{"generate.ssao_noise_size", "ssao-noise-size"},
		{"generate.ssao_seed", "ssao-seed"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, generateCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	inputDir := viper.GetString("generate.input_dir")
	workers := viper.GetInt("generate.workers")
	showProgress := viper.GetBool("generate.progress")
	allowFailures := viper.GetBool("generate.allow_failures")
	format := viper.GetString("generate.format")
	outputFile := viper.GetString("generate.output_file")
	outputDir := viper.GetString("output-dir")

	if logger == nil {
		initLogging()
	}

	if format != "folder" && format != "pack" {
		return fmt.Errorf("invalid format %q: must be 'folder' or 'pack'", format)
	}
	if format == "pack" && outputFile == "" {
		return fmt.Errorf("--output-file is required when using --format=pack")
	}

	opts, err := buildOptions()
	if err != nil {
		return err
	}

	sources, skipped, err := collectSources(args, inputDir)
	if err != nil {
		return err
	}
	for _, path := range skipped {
		logger.Warn("Skipping unsupported file", "path", path)
	}
	if len(sources) == 0 {
		return fmt.Errorf("no source textures given (pass files or --input-dir)")
	}

	tasks, err := buildTasks(sources)
	if err != nil {
		return err
	}

	if outputDir == "" {
		outputDir = filepath.Dir(sources[0])
	}
	opts.OutputDir = outputDir

	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var packWriter *pack.Writer
	if format == "pack" {
		packFormat, ok := raster.FormatForPath("map" + opts.OutputExt)
		if !ok {
			return fmt.Errorf("invalid --ext %q: %w", opts.OutputExt, raster.ErrUnsupportedFormat)
		}

		packWriter, err = pack.New(outputFile, pack.Metadata{
			Name:        "texturemaps",
			Description: "Generated texture maps",
			Version:     "1.0",
			Params:      describeOptions(opts),
		})
		if err != nil {
			return fmt.Errorf("failed to create pack writer: %w", err)
		}
		defer packWriter.Close()

		opts.Writer = pipeline.NewPackWriter(packWriter, packFormat)
		logger.Info("Pack writer created", "output", outputFile, "encoding", packFormat)
	}

	gen, err := pipeline.NewGenerator(opts, logger)
	if err != nil {
		return fmt.Errorf("failed to init generator: %w", err)
	}

	logger.Info("Starting map generation",
		"sources", len(tasks),
		"workers", workers,
		"format", format,
		"output_dir", outputDir,
		"ext", opts.OutputExt,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received interrupt signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	progress := worker.NewProgress(len(tasks), showProgress && len(tasks) > 1)
	pool := worker.New(worker.Config{
		Workers:    workers,
		Generator:  gen,
		OnProgress: progress.Callback(),
	})

	results := pool.Run(ctx, tasks)
	progress.Done()

	var failedCount int
	for _, r := range results {
		if r.Err != nil {
			failedCount++
			logger.Error("Map generation failed", "source", r.Task.Source, "error", r.Err)
			continue
		}
		logger.Info("Maps generated", "source", r.Task.Source, "maps", len(r.Written), "elapsed", r.Elapsed)
	}

	logger.Info(progress.Summary())

	if packWriter != nil {
		logger.Info("Flushing pack database...")
		if err := packWriter.Flush(); err != nil {
			return fmt.Errorf("failed to flush pack: %w", err)
		}
	}

	if failedCount > 0 {
		if allowFailures {
			logger.Warn("Some textures failed, but continuing due to --allow-failures flag", "failed_count", failedCount)
			return nil
		}
		return fmt.Errorf("%d textures failed to generate", failedCount)
	}

	return nil
}

// buildOptions reads the generate.* settings into pipeline options.
func buildOptions() (pipeline.Options, error) {
	opts := pipeline.DefaultOptions()

	maps, err := parseMaps(viper.GetString("generate.maps"))
	if err != nil {
		return opts, err
	}
	opts.Maps = maps
	opts.ChannelPreview = viper.GetString("generate.channel_preview")
	opts.OutputExt = raster.OutputExt(viper.GetString("generate.ext"))

	channels, err := intensity.ParseChannels(viper.GetString("generate.channels"))
	if err != nil {
		return opts, err
	}
	if !channels.Any() {
		return opts, fmt.Errorf("--channels must select at least one channel")
	}
	mode, err := intensity.ParseMode(viper.GetString("generate.mode"))
	if err != nil {
		return opts, err
	}
	kernel, err := normalmap.ParseKernel(viper.GetString("generate.kernel"))
	if err != nil {
		return opts, err
	}
	opts.Normal = normalmap.Params{
		Channels:          channels,
		Mode:              mode,
		Kernel:            kernel,
		Strength:          viper.GetFloat64("generate.strength"),
		Invert:            viper.GetBool("generate.invert"),
		Tileable:          viper.GetBool("generate.tileable"),
		KeepLargeDetail:   viper.GetBool("generate.keep_large_detail"),
		LargeDetailScale:  viper.GetInt("generate.large_detail_scale"),
		LargeDetailHeight: viper.GetFloat64("generate.large_detail_height"),
	}
	opts.LargeDetailAuto = viper.GetBool("generate.large_detail_auto")
	opts.SizePercent = viper.GetInt("generate.size_percent")

	opts.Specular, err = readSpecularParams("spec", 4)
	if err != nil {
		return opts, err
	}
	opts.Displacement, err = readSpecularParams("displace", 3)
	if err != nil {
		return opts, err
	}
	opts.DisplaceBlurRadius = viper.GetInt("generate.displace_blur_radius")
	opts.DisplaceBlurTileable = viper.GetBool("generate.displace_blur_tileable")

	opts.Occlusion.Size = viper.GetFloat64("generate.ssao_size")
	opts.Occlusion.Samples = viper.GetInt("generate.ssao_samples")
	opts.Occlusion.NoiseTexSize = viper.GetInt("generate.ssao_noise_size")
	opts.Occlusion.Seed = viper.GetInt64("generate.ssao_seed")

	return opts, opts.Validate()
}

func readSpecularParams(prefix string, maxWeights int) (specular.Params, error) {
	mode, err := intensity.ParseMode(viper.GetString("generate." + prefix + "_mode"))
	if err != nil {
		return specular.Params{}, fmt.Errorf("--%s-mode: %w", prefix, err)
	}
	weights, err := parseWeights(viper.GetString("generate."+prefix+"_weights"), maxWeights)
	if err != nil {
		return specular.Params{}, fmt.Errorf("--%s-weights: %w", prefix, err)
	}
	return specular.Params{
		Mode:     mode,
		Weights:  weights,
		Scale:    viper.GetFloat64("generate." + prefix + "_scale"),
		Contrast: viper.GetFloat64("generate." + prefix + "_contrast"),
	}, nil
}

// parseWeights parses "r,g,b" or "r,g,b,a" into channel weights. A missing
// alpha weight is 0. maxValues limits the accepted count to 3 or 4.
func parseWeights(s string, maxValues int) (specular.Weights, error) {
	parts := strings.Split(s, ",")
	if len(parts) < 3 || len(parts) > maxValues {
		if maxValues == 3 {
			return specular.Weights{}, fmt.Errorf("expected 3 comma-separated values, got %d", len(parts))
		}
		return specular.Weights{}, fmt.Errorf("expected 3 or %d comma-separated values, got %d", maxValues, len(parts))
	}

	var vals [4]float64
	for i, part := range parts {
		val, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return specular.Weights{}, fmt.Errorf("invalid number at position %d: %w", i, err)
		}
		vals[i] = val
	}

	return specular.Weights{R: vals[0], G: vals[1], B: vals[2], A: vals[3]}, nil
}

// parseMaps parses a comma-separated list of map kinds. The channel preview is
// selected with --channel-preview instead.
func parseMaps(s string) (pipeline.Maps, error) {
	var maps pipeline.Maps
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		kind, err := pipeline.ParseKind(part)
		if err != nil {
			return pipeline.Maps{}, err
		}
		switch kind {
		case pipeline.KindNormal:
			maps.Normal = true
		case pipeline.KindSpecular:
			maps.Specular = true
		case pipeline.KindDisplacement:
			maps.Displacement = true
		case pipeline.KindOcclusion:
			maps.Occlusion = true
		default:
			return pipeline.Maps{}, fmt.Errorf("%q cannot be selected with --maps (use --channel-preview)", part)
		}
	}
	return maps, nil
}

// collectSources returns the readable textures among files plus those in dir.
// Unsupported files are returned as skipped; maps generated by a previous run
// are ignored when scanning dir.
func collectSources(files []string, dir string) (sources, skipped []string, err error) {
	seen := make(map[string]bool)
	add := func(path string) {
		path = filepath.Clean(path)
		if seen[path] {
			return
		}
		seen[path] = true
		if raster.SupportedInput(path) {
			sources = append(sources, path)
		} else {
			skipped = append(skipped, path)
		}
	}

	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			return nil, nil, fmt.Errorf("source not found: %w", err)
		}
		if info.IsDir() {
			return nil, nil, fmt.Errorf("%s is a directory (use --input-dir)", f)
		}
		add(f)
	}

	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read input directory: %w", err)
		}
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if e.IsDir() || mapFilePattern.MatchString(strings.ToLower(e.Name())) {
				continue
			}
			names = append(names, e.Name())
		}
		sort.Strings(names)
		for _, name := range names {
			add(filepath.Join(dir, name))
		}
	}

	return sources, skipped, nil
}

// buildTasks names each source after its base name. Two sources that would
// write the same map files are rejected.
func buildTasks(sources []string) ([]worker.Task, error) {
	tasks := make([]worker.Task, 0, len(sources))
	names := make(map[string]string, len(sources))
	for _, src := range sources {
		name := pipeline.BaseName(src)
		if prev, ok := names[name]; ok {
			return nil, fmt.Errorf("sources %s and %s would both write maps named %q", prev, src, name)
		}
		names[name] = src
		tasks = append(tasks, worker.Task{Source: src, Name: name})
	}
	return tasks, nil
}

func describeOptions(opts pipeline.Options) string {
	n := opts.Normal
	return fmt.Sprintf("channels=%s mode=%s kernel=%s strength=%g invert=%t tileable=%t size=%d%% spec_contrast=%g ssao_samples=%d ssao_seed=%d",
		n.Channels, n.Mode, n.Kernel, n.Strength, n.Invert, n.Tileable, opts.SizePercent,
		opts.Specular.Contrast, opts.Occlusion.Samples, opts.Occlusion.Seed)
}
