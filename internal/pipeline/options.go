package pipeline

import (
	"fmt"
	"strings"

	"github.com/MeKo-Tech/texturemaps/internal/intensity"
	"github.com/MeKo-Tech/texturemaps/internal/normalmap"
	"github.com/MeKo-Tech/texturemaps/internal/specular"
	"github.com/MeKo-Tech/texturemaps/internal/ssao"
)

// Kind names a generated map. It is also the file name suffix.
type Kind string

const (
	KindNormal       Kind = "normal"
	KindSpecular     Kind = "spec"
	KindDisplacement Kind = "displace"
	KindOcclusion    Kind = "occlusion"
	KindChannel      Kind = "channel"
)

// Kinds lists the map kinds in generation order.
var Kinds = []Kind{KindNormal, KindSpecular, KindDisplacement, KindOcclusion}

// ParseKind parses a map kind by name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindNormal, KindSpecular, KindDisplacement, KindOcclusion, KindChannel:
		return k, nil
	default:
		return "", fmt.Errorf("unknown map kind %q", s)
	}
}

// Maps selects which maps Generate produces.
type Maps struct {
	Normal       bool
	Specular     bool
	Displacement bool
	Occlusion    bool
}

// Any reports whether at least one map is selected.
func (m Maps) Any() bool {
	return m.Normal || m.Specular || m.Displacement || m.Occlusion
}

// Has reports whether kind is selected.
func (m Maps) Has(kind Kind) bool {
	switch kind {
	case KindNormal:
		return m.Normal
	case KindSpecular:
		return m.Specular
	case KindDisplacement:
		return m.Displacement
	case KindOcclusion:
		return m.Occlusion
	}
	return false
}

// Options configures a Generator.
type Options struct {
	Maps Maps

	Normal normalmap.Params
	// LargeDetailAuto derives the keep-large-detail settings from each source's size.
	LargeDetailAuto bool
	// SizePercent scales the source before normal generation (1..100).
	SizePercent int

	Specular     specular.Params
	Displacement specular.Params
	// DisplaceBlurRadius box blurs the displacement map when positive.
	DisplaceBlurRadius   int
	DisplaceBlurTileable bool

	Occlusion ssao.Params

	// ChannelPreview is one of "", "r", "g", "b", "a". When set, the intensity
	// of that channel is written as an extra map.
	ChannelPreview string

	// Writer receives the generated maps. Defaults to a FolderWriter on
	// OutputDir with OutputExt.
	Writer    MapWriter
	OutputDir string
	OutputExt string
}

// DefaultOptions returns options that produce every map with the defaults of
// the interactive tool.
func DefaultOptions() Options {
	return Options{
		Maps:            Maps{Normal: true, Specular: true, Displacement: true, Occlusion: true},
		Normal:          normalmap.DefaultParams(),
		LargeDetailAuto: true,
		SizePercent:     100,
		Specular:        specular.DefaultParams(),
		Displacement:    specular.DisplacementParams(),
		Occlusion:       ssao.DefaultParams(),
		OutputDir:       ".",
		OutputExt:       ".png",
	}
}

// Validate checks the options for values the generators cannot use.
func (o Options) Validate() error {
	if !o.Maps.Any() && o.ChannelPreview == "" {
		return fmt.Errorf("no maps selected")
	}
	if o.SizePercent < 1 || o.SizePercent > 100 {
		return fmt.Errorf("size percent must be within [1,100], got %d", o.SizePercent)
	}
	if o.Normal.LargeDetailScale < 1 || o.Normal.LargeDetailScale > 100 {
		return fmt.Errorf("large detail scale must be within [1,100], got %d", o.Normal.LargeDetailScale)
	}
	if o.DisplaceBlurRadius < 0 {
		return fmt.Errorf("displacement blur radius must not be negative")
	}
	if o.Occlusion.Size < 0 || o.Occlusion.Samples < 0 {
		return fmt.Errorf("occlusion size and samples must not be negative")
	}
	if o.Occlusion.NoiseTexSize < 1 {
		return fmt.Errorf("occlusion noise texture size must be at least 1")
	}
	if _, err := previewChannels(o.ChannelPreview); err != nil {
		return err
	}
	return nil
}

// previewChannels maps a channel preview name to a single-channel selection.
func previewChannels(name string) (intensity.Channels, error) {
	switch strings.ToLower(name) {
	case "":
		return intensity.Channels{}, nil
	case "r":
		return intensity.Channels{R: true}, nil
	case "g":
		return intensity.Channels{G: true}, nil
	case "b":
		return intensity.Channels{B: true}, nil
	case "a":
		return intensity.Channels{A: true}, nil
	default:
		return intensity.Channels{}, fmt.Errorf("invalid channel preview %q: must be one of r, g, b, a", name)
	}
}
