package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/texturemaps/internal/pack"
	"github.com/MeKo-Tech/texturemaps/internal/pipeline"
	"github.com/MeKo-Tech/texturemaps/internal/raster"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "List or extract maps from a texture pack",
	Long: `Extract one map from a texture pack to a file, or list the pack's contents
with --list. When the output extension differs from the stored encoding, the map
is re-encoded.`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("input", "i", "", "Pack file to read (required)")
	extractCmd.Flags().String("source", "", "Source texture name of the map")
	extractCmd.Flags().String("kind", "normal", "Map kind: normal, spec, displace, occlusion or channel")
	extractCmd.Flags().StringP("output", "o", "", "Output file (default: {source}_{kind}.{stored format} in --output-dir)")
	extractCmd.Flags().Bool("list", false, "List the maps in the pack instead of extracting")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"extract.input", "input"},
		{"extract.source", "source"},
		{"extract.kind", "kind"},
		{"extract.output", "output"},
		{"extract.list", "list"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, extractCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runExtract(cmd *cobra.Command, args []string) error {
	input := viper.GetString("extract.input")
	source := viper.GetString("extract.source")
	kindName := viper.GetString("extract.kind")
	output := viper.GetString("extract.output")
	list := viper.GetBool("extract.list")

	if logger == nil {
		initLogging()
	}

	if input == "" {
		return fmt.Errorf("--input is required")
	}

	reader, err := pack.OpenReader(input)
	if err != nil {
		return fmt.Errorf("failed to open pack: %w", err)
	}
	defer reader.Close()

	if list {
		return listPack(cmd, reader)
	}

	if source == "" {
		return fmt.Errorf("--source is required")
	}
	kind, err := pipeline.ParseKind(kindName)
	if err != nil {
		return err
	}

	entry, err := reader.ReadMap(source, string(kind))
	if errors.Is(err, pack.ErrNotFound) {
		return fmt.Errorf("pack %s has no %s map for %q", input, kind, source)
	}
	if err != nil {
		return err
	}

	if output == "" {
		ext := raster.OutputExt(entry.Format)
		output = filepath.Join(viper.GetString("output-dir"), pipeline.MapFileName(entry.Source, kind, ext))
	}

	if err := writeEntry(entry, output); err != nil {
		return err
	}

	logger.Info("Map extracted", "source", entry.Source, "kind", entry.Kind, "output", output)
	return nil
}

func listPack(cmd *cobra.Command, reader *pack.Reader) error {
	meta, err := reader.Metadata()
	if err != nil {
		return err
	}
	entries, err := reader.List()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s) version %s\n", meta.Name, meta.Description, meta.Version)
	if meta.Params != "" {
		fmt.Fprintf(out, "params: %s\n", meta.Params)
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%-24s %-10s %-5s %dx%d\n", e.Source, e.Kind, e.Format, e.Width, e.Height)
	}
	return nil
}

// writeEntry writes the stored bytes when path's format matches the entry's
// encoding and re-encodes otherwise.
func writeEntry(entry pack.Entry, path string) error {
	target, ok := raster.FormatForPath(path)
	if !ok {
		return fmt.Errorf("%s: %w", path, raster.ErrUnsupportedFormat)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output dir: %w", err)
		}
	}

	if target == raster.Format(entry.Format) {
		return os.WriteFile(path, entry.Data, 0o644)
	}

	img, err := raster.Decode(bytes.NewReader(entry.Data), raster.Format(entry.Format))
	if err != nil {
		return fmt.Errorf("failed to decode stored map: %w", err)
	}
	return raster.Save(path, img)
}
