package pipeline

import (
	"image"
	"sync"

	"github.com/MeKo-Tech/texturemaps/internal/blur"
	"github.com/MeKo-Tech/texturemaps/internal/intensity"
	"github.com/MeKo-Tech/texturemaps/internal/normalmap"
	"github.com/MeKo-Tech/texturemaps/internal/raster"
	"github.com/MeKo-Tech/texturemaps/internal/specular"
	"github.com/MeKo-Tech/texturemaps/internal/ssao"
)

type normalKey struct {
	params      normalmap.Params
	sizePercent int
}

type normalResult struct {
	normal *image.NRGBA
	raw    *intensity.Map
}

type displacementKey struct {
	params   specular.Params
	radius   int
	tileable bool
}

type occlusionKey struct {
	normal normalKey
	params ssao.Params
}

// Session holds one source texture and memoises the maps derived from it, keyed
// by the full parameter set. Replacing the source drops every cached map.
// A Session is safe for concurrent use.
type Session struct {
	mu       sync.Mutex
	sourceID string
	source   *image.NRGBA

	scaled        map[int]*image.NRGBA
	normals       map[normalKey]normalResult
	speculars     map[specular.Params]*image.Gray
	displacements map[displacementKey]*image.Gray
	occlusions    map[occlusionKey]*image.Gray
}

// NewSession creates an empty session.
func NewSession() *Session {
	s := &Session{}
	s.reset()
	return s
}

func (s *Session) reset() {
	s.scaled = make(map[int]*image.NRGBA)
	s.normals = make(map[normalKey]normalResult)
	s.speculars = make(map[specular.Params]*image.Gray)
	s.displacements = make(map[displacementKey]*image.Gray)
	s.occlusions = make(map[occlusionKey]*image.Gray)
}

// SetSource replaces the source texture. id identifies the source (usually its
// path); setting the same id and image again keeps the cache.
func (s *Session) SetSource(id string, img *image.NRGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == s.sourceID && img == s.source {
		return
	}
	s.sourceID = id
	s.source = img
	s.reset()
}

// Source returns the current source texture and its id.
func (s *Session) Source() (string, *image.NRGBA) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceID, s.source
}

// Normal returns the normal map and raw intensity of the source scaled to
// sizePercent.
func (s *Session) Normal(p normalmap.Params, sizePercent int) (*image.NRGBA, *intensity.Map) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.normalLocked(normalKey{params: p, sizePercent: sizePercent})
	return r.normal, r.raw
}

func (s *Session) normalLocked(key normalKey) normalResult {
	if r, ok := s.normals[key]; ok {
		return r
	}
	normal, raw := normalmap.Generate(s.scaledLocked(key.sizePercent), key.params)
	r := normalResult{normal: normal, raw: raw}
	s.normals[key] = r
	return r
}

func (s *Session) scaledLocked(percent int) *image.NRGBA {
	if img, ok := s.scaled[percent]; ok {
		return img
	}
	img := raster.ScalePercent(s.source, percent)
	s.scaled[percent] = img
	return img
}

// Specular returns the specular map of the source.
func (s *Session) Specular(p specular.Params) *image.Gray {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.speculars[p]; ok {
		return m
	}
	m := specular.Generate(s.source, p)
	s.speculars[p] = m
	return m
}

// Displacement returns the displacement map of the source, box blurred with
// radius when positive.
func (s *Session) Displacement(p specular.Params, radius int, tileable bool) *image.Gray {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := displacementKey{params: p, radius: radius, tileable: tileable}
	if m, ok := s.displacements[key]; ok {
		return m
	}
	m := specular.Generate(s.source, p)
	if radius > 0 {
		m = blur.Box(intensity.FromGray(m), radius, tileable).ToGray()
	}
	s.displacements[key] = m
	return m
}

// Occlusion returns the ambient occlusion map. The normal map it is derived
// from is generated first when it is not cached yet. Neighbour lookups follow
// the normal map's tileable setting.
func (s *Session) Occlusion(np normalmap.Params, sizePercent int, p ssao.Params) *image.Gray {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.Tileable = np.Tileable
	key := occlusionKey{normal: normalKey{params: np, sizePercent: sizePercent}, params: p}
	if m, ok := s.occlusions[key]; ok {
		return m
	}
	n := s.normalLocked(key.normal)
	m := ssao.Generate(n.normal, n.raw, p)
	s.occlusions[key] = m
	return m
}

// HasNormal reports whether the normal map for the given parameters is cached.
func (s *Session) HasNormal(p normalmap.Params, sizePercent int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.normals[normalKey{params: p, sizePercent: sizePercent}]
	return ok
}
