// Package pipeline loads source textures, derives the requested maps and hands
// them to a MapWriter.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"time"

	"log/slog"

	"github.com/MeKo-Tech/texturemaps/internal/intensity"
	"github.com/MeKo-Tech/texturemaps/internal/normalmap"
	"github.com/MeKo-Tech/texturemaps/internal/raster"
)

// Generator turns one source texture into a set of maps.
// It is safe for concurrent use when its writer is.
type Generator struct {
	opts   Options
	writer MapWriter
	logger *slog.Logger
}

// NewGenerator validates opts and prepares a generator.
func NewGenerator(opts Options, logger *slog.Logger) (*Generator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	writer := opts.Writer
	if writer == nil {
		writer = NewFolderWriter(opts.OutputDir, opts.OutputExt)
	}

	return &Generator{
		opts:   opts,
		writer: writer,
		logger: logger,
	}, nil
}

// Generate loads source and writes the selected maps under name. An empty name
// uses the source's base name. Returns the locations of the written maps.
// Cancellation is checked between maps.
func (g *Generator) Generate(ctx context.Context, source, name string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if name == "" {
		name = BaseName(source)
	}

	g.log().Info("Loading texture", "source", source)
	img, err := raster.Load(source)
	if err != nil {
		return nil, err
	}

	session := NewSession()
	session.SetSource(source, img)

	return g.GenerateFromSession(ctx, session, name)
}

// GenerateFromSession writes the selected maps for the session's source,
// reusing whatever the session has already cached.
func (g *Generator) GenerateFromSession(ctx context.Context, session *Session, name string) ([]string, error) {
	source, img := session.Source()
	if img == nil {
		return nil, fmt.Errorf("session has no source texture")
	}

	np := g.NormalParams(img.Bounds())
	var written []string

	for _, kind := range Kinds {
		if !g.opts.Maps.Has(kind) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return written, err
		}

		start := time.Now()
		m := g.compute(session, kind, np)
		g.log().Info("Calculated map", "source", source, "kind", kind, "elapsed_ms", time.Since(start).Milliseconds())

		path, err := g.writer.WriteMap(name, kind, m)
		if err != nil {
			return written, fmt.Errorf("failed to write %s map: %w", kind, err)
		}
		g.log().Debug("Wrote map", "source", source, "kind", kind, "path", path)
		written = append(written, path)
	}

	if g.opts.ChannelPreview != "" {
		channels, _ := previewChannels(g.opts.ChannelPreview)
		preview := intensity.FromImage(img, intensity.Average, channels).ToNRGBA()
		path, err := g.writer.WriteMap(name, KindChannel, preview)
		if err != nil {
			return written, fmt.Errorf("failed to write channel preview: %w", err)
		}
		written = append(written, path)
	}

	return written, nil
}

func (g *Generator) compute(session *Session, kind Kind, np normalmap.Params) image.Image {
	switch kind {
	case KindNormal:
		normal, _ := session.Normal(np, g.opts.SizePercent)
		return normal
	case KindSpecular:
		return session.Specular(g.opts.Specular)
	case KindDisplacement:
		return session.Displacement(g.opts.Displacement, g.opts.DisplaceBlurRadius, g.opts.DisplaceBlurTileable)
	case KindOcclusion:
		if !session.HasNormal(np, g.opts.SizePercent) {
			g.log().Debug("Normal map missing; computing it for occlusion")
		}
		return session.Occlusion(np, g.opts.SizePercent, g.opts.Occlusion)
	}
	panic(fmt.Sprintf("unknown map kind %q", kind))
}

// NormalParams returns the normal map parameters for a source of the given
// bounds, applying the automatic large detail policy when enabled.
func (g *Generator) NormalParams(bounds image.Rectangle) normalmap.Params {
	np := g.opts.Normal
	if g.opts.LargeDetailAuto {
		keep, scale := normalmap.LargeDetailDefaults(bounds.Dx(), bounds.Dy())
		np.KeepLargeDetail = keep
		if keep {
			np.LargeDetailScale = scale
		}
	}
	return np
}

func (g *Generator) log() *slog.Logger {
	if g.logger != nil {
		return g.logger
	}
	return slog.Default()
}
