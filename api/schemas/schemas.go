// Package schemas holds the shared types exchanged between the browser,
// stealth, and humanoid layers. Keeping them here avoids import cycles
// between the packages that produce and consume them.
package schemas

import (
	"github.com/chromedp/cdproto/emulation"
)

// MouseButton identifies a mouse button in CDP terms.
type MouseButton string

const (
	ButtonNone   MouseButton = "none"
	ButtonLeft   MouseButton = "left"
	ButtonRight  MouseButton = "right"
	ButtonMiddle MouseButton = "middle"
)

// MouseEventType identifies the kind of synthetic mouse event to dispatch.
type MouseEventType string

const (
	MouseMove    MouseEventType = "mouseMoved"
	MousePress   MouseEventType = "mousePressed"
	MouseRelease MouseEventType = "mouseReleased"
	MouseWheel   MouseEventType = "mouseWheel"
)

// MouseEventData carries everything needed to dispatch a single mouse event
// through the CDP Input domain.
type MouseEventData struct {
	Type       MouseEventType
	X          float64
	Y          float64
	Button     MouseButton
	ClickCount int64
	// Buttons is the bitfield of buttons currently held (1=left, 2=right, 4=middle).
	Buttons int64
	DeltaX  float64
	DeltaY  float64
}

// KeyEventType identifies the kind of synthetic keyboard event.
type KeyEventType string

const (
	// KeyChar inserts printable text (Input.insertText).
	KeyChar KeyEventType = "char"
	// KeyPress performs a full down+up cycle for a named key such as
	// "Backspace" or "Enter".
	KeyPress KeyEventType = "press"
)

// KeyEventData carries a single keyboard action.
type KeyEventData struct {
	Type KeyEventType
	// Text is the literal text for KeyChar events.
	Text string
	// Key is the DOM key name for KeyPress events.
	Key string
}

// ElementGeometry is the viewport-relative bounding box of a DOM element.
type ElementGeometry struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ScreenProperties defines the resolution and depth of the spoofed display.
type ScreenProperties struct {
	Width       int64 `json:"width"`
	Height      int64 `json:"height"`
	AvailWidth  int64 `json:"availWidth,omitempty"`
	AvailHeight int64 `json:"availHeight,omitempty"`
	ColorDepth  int   `json:"colorDepth,omitempty"`
	PixelDepth  int   `json:"pixelDepth,omitempty"`
}

// GeolocationProperties defines the spoofed physical location.
type GeolocationProperties struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// ClientHints defines the structure for User-Agent Client Hints (Sec-CH-UA).
type ClientHints struct {
	Brands          []*emulation.UserAgentBrandVersion `json:"brands"`
	FullVersionList []*emulation.UserAgentBrandVersion `json:"fullVersionList,omitempty"`
	Mobile          bool                               `json:"mobile"`
	Platform        string                             `json:"platform"`
	PlatformVersion string                             `json:"platformVersion"`
	Architecture    string                             `json:"architecture,omitempty"`
	Model           string                             `json:"model,omitempty"`
	Bitness         string                             `json:"bitness,omitempty"`
}

// Persona defines a consistent, high-fidelity browser profile to be spoofed.
// Every value that a page can observe (UA string, client hints, screen,
// timezone, locale, geolocation, WebGL strings) must agree with the others,
// otherwise the mismatch itself is a signal.
type Persona struct {
	Name      string   `json:"name,omitempty"`
	UserAgent string   `json:"userAgent"`
	Platform  string   `json:"platform"` // legacy navigator.platform (e.g. Win32)
	Languages []string `json:"languages"`

	TimezoneID  string                 `json:"timezoneId,omitempty"`
	Locale      string                 `json:"locale,omitempty"`
	Geolocation *GeolocationProperties `json:"geolocation,omitempty"`

	WebGLVendor         string           `json:"webGLVendor,omitempty"`
	WebGLRenderer       string           `json:"webGLRenderer,omitempty"`
	HardwareConcurrency int              `json:"hardwareConcurrency,omitempty"`
	DeviceMemory        int              `json:"deviceMemory,omitempty"`
	Screen              ScreenProperties `json:"screen"`

	// NoiseSeed feeds the canvas noise in the evasion script so repeated
	// fingerprint reads within one session stay consistent.
	NoiseSeed int64 `json:"noiseSeed,omitempty"`

	// ProfileDir is the browser profile directory associated with this
	// persona when context rotation is enabled.
	ProfileDir string `json:"-"`

	ClientHintsData *ClientHints `json:"clientHintsData,omitempty"`
}

// LoginState is the persisted login status of a stored session.
type LoginState string

const (
	LoginUnknown  LoginState = "unknown"
	LoginLoggedIn LoginState = "logged_in"
	LoginFailed   LoginState = "failed"
)
