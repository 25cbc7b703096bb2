package stealth

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"

	"github.com/EngThi/YT/api/schemas"
)

func chromeBrands(major, full string) *schemas.ClientHints {
	brands := []*emulation.UserAgentBrandVersion{
		{Brand: "Not_A Brand", Version: "8"},
		{Brand: "Chromium", Version: major},
		{Brand: "Google Chrome", Version: major},
	}
	fullList := []*emulation.UserAgentBrandVersion{
		{Brand: "Not_A Brand", Version: "8.0.0.0"},
		{Brand: "Chromium", Version: full},
		{Brand: "Google Chrome", Version: full},
	}
	return &schemas.ClientHints{
		Brands:          brands,
		FullVersionList: fullList,
		Mobile:          false,
	}
}

// Catalog returns the built-in desktop fingerprints. All of them browse
// from Brazil: pt-BR first, Sao Paulo timezone, coordinates near large
// cities. The geolocation gets jittered per run so repeated sessions do
// not sit on the exact same point.
func Catalog() []schemas.Persona {
	win11Hints := chromeBrands("120", "120.0.6099.130")
	win11Hints.Platform = "Windows"
	win11Hints.PlatformVersion = "15.0.0"
	win11Hints.Architecture = "x86"
	win11Hints.Bitness = "64"

	win10Hints := chromeBrands("119", "119.0.6045.200")
	win10Hints.Platform = "Windows"
	win10Hints.PlatformVersion = "10.0.0"
	win10Hints.Architecture = "x86"
	win10Hints.Bitness = "64"

	macHints := chromeBrands("120", "120.0.6099.109")
	macHints.Platform = "macOS"
	macHints.PlatformVersion = "13.6.1"
	macHints.Architecture = "arm"
	macHints.Bitness = "64"

	return []schemas.Persona{
		{
			Name:      "win11-desktop",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Platform:  "Win32",
			Languages: []string{"pt-BR", "pt", "en-US", "en"},

			TimezoneID: "America/Sao_Paulo",
			Locale:     "pt-BR",
			// Sao Paulo.
			Geolocation: &schemas.GeolocationProperties{Latitude: -23.5505, Longitude: -46.6333, Accuracy: 100},

			WebGLVendor:         "Google Inc. (Intel)",
			WebGLRenderer:       "ANGLE (Intel, Intel(R) UHD Graphics 630 (0x00003E92) Direct3D11 vs_5_0 ps_5_0, D3D11)",
			HardwareConcurrency: 8,
			DeviceMemory:        8,
			Screen:              schemas.ScreenProperties{Width: 1920, Height: 1080, AvailWidth: 1920, AvailHeight: 1040, ColorDepth: 24, PixelDepth: 24},

			ProfileDir:      "context_win11",
			ClientHintsData: win11Hints,
		},
		{
			Name:      "win10-desktop",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
			Platform:  "Win32",
			Languages: []string{"pt-BR", "pt", "en-US"},

			TimezoneID: "America/Sao_Paulo",
			Locale:     "pt-BR",
			// Rio de Janeiro.
			Geolocation: &schemas.GeolocationProperties{Latitude: -22.9068, Longitude: -43.1729, Accuracy: 150},

			WebGLVendor:         "Google Inc. (NVIDIA)",
			WebGLRenderer:       "ANGLE (NVIDIA, NVIDIA GeForce GTX 1650 (0x00001F82) Direct3D11 vs_5_0 ps_5_0, D3D11)",
			HardwareConcurrency: 4,
			DeviceMemory:        8,
			Screen:              schemas.ScreenProperties{Width: 1366, Height: 768, AvailWidth: 1366, AvailHeight: 728, ColorDepth: 24, PixelDepth: 24},

			ProfileDir:      "context_win10",
			ClientHintsData: win10Hints,
		},
		{
			Name:      "mac-desktop",
			UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Platform:  "MacIntel",
			Languages: []string{"pt-BR", "pt", "en-US"},

			TimezoneID: "America/Sao_Paulo",
			Locale:     "pt-BR",
			// Belo Horizonte.
			Geolocation: &schemas.GeolocationProperties{Latitude: -19.9167, Longitude: -43.9345, Accuracy: 120},

			WebGLVendor:         "Google Inc. (Apple)",
			WebGLRenderer:       "ANGLE (Apple, ANGLE Metal Renderer: Apple M1, Unspecified Version)",
			HardwareConcurrency: 8,
			DeviceMemory:        8,
			Screen:              schemas.ScreenProperties{Width: 1440, Height: 900, AvailWidth: 1440, AvailHeight: 875, ColorDepth: 30, PixelDepth: 30},

			ProfileDir:      "context_mac",
			ClientHintsData: macHints,
		},
	}
}

// PersonaByName finds a catalog persona by name.
func PersonaByName(name string) (schemas.Persona, error) {
	for _, p := range Catalog() {
		if p.Name == name {
			return p, nil
		}
	}
	return schemas.Persona{}, fmt.Errorf("stealth: unknown persona %q", name)
}

// rotationState is what the rotator persists between runs.
type rotationState struct {
	NextIndex int `json:"next_index"`
}

// Rotator hands out catalog personas round-robin, persisting its position
// so consecutive runs use different (persona, profile dir) pairs.
type Rotator struct {
	mu        sync.Mutex
	personas  []schemas.Persona
	statePath string
	rng       *rand.Rand
}

// NewRotator creates a rotator persisting its cursor under dataDir.
func NewRotator(personas []schemas.Persona, dataDir string) *Rotator {
	return &Rotator{
		personas:  personas,
		statePath: filepath.Join(dataDir, "rotation.json"),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the next persona in rotation with per-run geolocation
// jitter and a fresh canvas noise seed.
func (r *Rotator) Next() (schemas.Persona, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.personas) == 0 {
		return schemas.Persona{}, fmt.Errorf("stealth: rotator has no personas")
	}

	var state rotationState
	if data, err := os.ReadFile(r.statePath); err == nil {
		// A corrupt state file just restarts the rotation.
		_ = json.Unmarshal(data, &state)
	}
	idx := state.NextIndex % len(r.personas)

	state.NextIndex = idx + 1
	if data, err := json.Marshal(state); err == nil {
		if err := os.MkdirAll(filepath.Dir(r.statePath), 0o755); err == nil {
			_ = os.WriteFile(r.statePath, data, 0o644)
		}
	}

	return r.finalize(r.personas[idx]), nil
}

// Finalize applies the per-run randomization to a pinned persona.
func (r *Rotator) Finalize(p schemas.Persona) schemas.Persona {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finalize(p)
}

func (r *Rotator) finalize(p schemas.Persona) schemas.Persona {
	if p.Geolocation != nil {
		geo := *p.Geolocation
		// Roughly a city-block scale wobble.
		geo.Latitude += (r.rng.Float64() - 0.5) * 0.02
		geo.Longitude += (r.rng.Float64() - 0.5) * 0.02
		p.Geolocation = &geo
	}
	p.NoiseSeed = r.rng.Int63()
	return p
}
