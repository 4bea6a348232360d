package cmd

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/texturemaps/internal/pack"
	"github.com/MeKo-Tech/texturemaps/internal/raster"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var convertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a folder of maps to a texture pack",
	Long:  `Collect map files named {name}_{kind}.{ext} from a folder into a texture pack database.`,
	RunE:  runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().String("input-dir", ".", "Input directory containing generated maps")
	convertCmd.Flags().StringP("output", "o", "", "Output pack file path (required)")
	convertCmd.Flags().String("name", "texturemaps", "Pack name")
	convertCmd.Flags().String("description", "Generated texture maps", "Pack description")

	bindFlags := []struct {
		key  string
		flag string
	}{
		{"convert.input_dir", "input-dir"},
		{"convert.output", "output"},
		{"convert.name", "name"},
		{"convert.description", "description"},
	}

	for _, bf := range bindFlags {
		if err := viper.BindPFlag(bf.key, convertCmd.Flags().Lookup(bf.flag)); err != nil {
			panic(fmt.Sprintf("failed to bind flag %s: %v", bf.flag, err))
		}
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	inputDir := viper.GetString("convert.input_dir")
	outputFile := viper.GetString("convert.output")
	name := viper.GetString("convert.name")
	description := viper.GetString("convert.description")

	if logger == nil {
		initLogging()
	}

	if outputFile == "" {
		return fmt.Errorf("--output is required")
	}
	if _, err := os.Stat(inputDir); os.IsNotExist(err) {
		return fmt.Errorf("input directory does not exist: %s", inputDir)
	}

	logger.Info("Converting map folder to pack",
		"input_dir", inputDir,
		"output", outputFile,
		"name", name,
	)

	maps, err := scanMapsDirectory(inputDir)
	if err != nil {
		return fmt.Errorf("failed to scan maps directory: %w", err)
	}
	if len(maps) == 0 {
		return fmt.Errorf("no maps found in %s", inputDir)
	}

	logger.Info("Found maps", "count", len(maps))

	writer, err := pack.New(outputFile, pack.Metadata{
		Name:        name,
		Description: description,
		Version:     "1.0",
	})
	if err != nil {
		return fmt.Errorf("failed to create pack writer: %w", err)
	}
	defer writer.Close()

	var converted int
	for i, m := range maps {
		entry, err := readMapFile(m)
		if err != nil {
			logger.Error("Failed to read map", "path", m.path, "error", err)
			continue
		}
		if err := writer.WriteMap(entry); err != nil {
			logger.Error("Failed to write map", "source", m.source, "kind", m.kind, "error", err)
			continue
		}
		converted++

		if (i+1)%100 == 0 {
			logger.Info("Progress", "converted", i+1, "total", len(maps))
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush maps: %w", err)
	}

	logger.Info("Conversion complete", "output", outputFile, "maps", converted)
	return nil
}

type mapFile struct {
	source string
	kind   string
	path   string
}

// scanMapsDirectory walks dir for files matching mapFilePattern.
func scanMapsDirectory(dir string) ([]mapFile, error) {
	var maps []mapFile

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		base := filepath.Base(path)
		matches := mapFilePattern.FindStringSubmatch(strings.ToLower(base))
		if matches == nil {
			return nil
		}

		maps = append(maps, mapFile{
			// keep the original case of the name
			source: base[:len(matches[1])],
			kind:   matches[2],
			path:   path,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return maps, nil
}

// readMapFile loads the encoded bytes of m unchanged, reading only the image
// header for its size.
func readMapFile(m mapFile) (pack.Entry, error) {
	format, ok := raster.FormatForPath(m.path)
	if !ok {
		return pack.Entry{}, raster.ErrUnsupportedFormat
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		return pack.Entry{}, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return pack.Entry{}, fmt.Errorf("failed to read image header: %w", err)
	}

	return pack.Entry{
		Source: m.source,
		Kind:   m.kind,
		Format: string(format),
		Width:  cfg.Width,
		Height: cfg.Height,
		Data:   data,
	}, nil
}
