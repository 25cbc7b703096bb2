// Package stealth applies a consistent spoofed browser persona to a tab:
// user agent and client hints, screen metrics, timezone, locale,
// geolocation, and a script that patches the JS environment before any
// page code runs.
package stealth

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/EngThi/YT/api/schemas"
)

//go:embed evasions.js
var evasionsScript string

// ValidateEvasionScript parses the embedded evasion script with goja. A
// syntax error here would otherwise only surface as a silent CDP injection
// failure at runtime.
func ValidateEvasionScript() error {
	if _, err := goja.Compile("evasions.js", "const YT_PERSONA = {};\n"+evasionsScript, false); err != nil {
		return fmt.Errorf("stealth: embedded evasion script does not parse: %w", err)
	}
	return nil
}

// Apply returns the action sequence that installs the persona on a tab.
// It must run before the first real navigation.
func Apply(persona schemas.Persona, logger *zap.Logger) chromedp.Action {
	l := logger.Named("stealth")
	return chromedp.Tasks{
		network.Enable(),
		setExtraHTTPHeaders(persona, l),

		setUserAgentAndClientHints(persona, l),
		setDeviceMetrics(persona, l),
		setEnvironmentOverrides(persona, l),

		injectEvasionScript(persona, l),

		page.SetWebLifecycleState(page.SetWebLifecycleStateStateActive),

		chromedp.ActionFunc(func(ctx context.Context) error {
			l.Debug("Persona applied", zap.String("name", persona.Name), zap.String("userAgent", persona.UserAgent))
			return nil
		}),
	}
}

// injectEvasionScript registers the evasion script, prefixed with the
// persona constant it reads, to run on every new document.
func injectEvasionScript(persona schemas.Persona, logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		personaJSON, err := json.Marshal(persona)
		if err != nil {
			return fmt.Errorf("stealth: failed to marshal persona: %w", err)
		}

		scriptWithPersona := fmt.Sprintf("const YT_PERSONA = %s;\n%s", string(personaJSON), evasionsScript)

		if _, err = page.AddScriptToEvaluateOnNewDocument(scriptWithPersona).Do(ctx); err != nil {
			logger.Error("Failed to register evasion script", zap.Error(err))
			return fmt.Errorf("stealth: failed to add script on new document: %w", err)
		}
		return nil
	})
}

// setUserAgentAndClientHints overrides the UA string and, when configured,
// the Sec-CH-UA metadata so both tell the same story.
func setUserAgentAndClientHints(persona schemas.Persona, logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		platform := persona.Platform
		if persona.ClientHintsData != nil && persona.ClientHintsData.Platform != "" {
			platform = persona.ClientHintsData.Platform
		}

		override := emulation.SetUserAgentOverride(persona.UserAgent).
			WithPlatform(platform).
			WithAcceptLanguage(strings.Join(persona.Languages, ","))

		if ch := persona.ClientHintsData; ch != nil {
			override = override.WithUserAgentMetadata(&emulation.UserAgentMetadata{
				Brands:          ch.Brands,
				FullVersionList: ch.FullVersionList,
				Mobile:          ch.Mobile,
				Platform:        ch.Platform,
				PlatformVersion: ch.PlatformVersion,
				Architecture:    ch.Architecture,
				Model:           ch.Model,
				Bitness:         ch.Bitness,
			})
		}

		if err := override.Do(ctx); err != nil {
			logger.Error("Failed to set user agent override", zap.Error(err))
			return fmt.Errorf("stealth: failed to set user agent override: %w", err)
		}
		return nil
	})
}

// setExtraHTTPHeaders pins the Accept-Language header with descending
// q-values matching the persona's language list.
func setExtraHTTPHeaders(persona schemas.Persona, logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if len(persona.Languages) == 0 {
			return nil
		}
		headers := map[string]interface{}{"Accept-Language": FormatAcceptLanguage(persona.Languages)}
		if err := network.SetExtraHTTPHeaders(network.Headers(headers)).Do(ctx); err != nil {
			logger.Error("Failed to set extra HTTP headers", zap.Error(err))
			return fmt.Errorf("stealth: failed to set extra http headers: %w", err)
		}
		return nil
	})
}

// FormatAcceptLanguage renders a language list with q-values descending in
// 0.1 steps, floored at 0.7, the way desktop Chrome emits them.
func FormatAcceptLanguage(languages []string) string {
	if len(languages) == 0 {
		return ""
	}
	formatted := languages[0]
	for i := 1; i < len(languages); i++ {
		q := 1.0 - float64(i)*0.1
		if q < 0.7 {
			q = 0.7
		}
		formatted += fmt.Sprintf(",%s;q=%.1f", languages[i], q)
	}
	return formatted
}

// setDeviceMetrics pins the viewport to the persona's screen.
func setDeviceMetrics(persona schemas.Persona, logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if persona.Screen.Width <= 0 || persona.Screen.Height <= 0 {
			return nil
		}
		orientation := emulation.OrientationTypeLandscapePrimary
		if persona.Screen.Height > persona.Screen.Width {
			orientation = emulation.OrientationTypePortraitPrimary
		}
		err := emulation.SetDeviceMetricsOverride(persona.Screen.Width, persona.Screen.Height, 1.0, false).
			WithScreenOrientation(&emulation.ScreenOrientation{Type: orientation, Angle: 0}).
			Do(ctx)
		if err != nil {
			logger.Error("Failed to set device metrics override", zap.Error(err))
			return fmt.Errorf("stealth: failed to set device metrics: %w", err)
		}
		return nil
	})
}

// setEnvironmentOverrides keeps timezone, locale and geolocation agreeing
// with the persona's claimed location.
func setEnvironmentOverrides(persona schemas.Persona, logger *zap.Logger) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if persona.TimezoneID != "" {
			if err := emulation.SetTimezoneOverride(persona.TimezoneID).Do(ctx); err != nil {
				logger.Error("Failed to set timezone override", zap.Error(err))
				return fmt.Errorf("stealth: failed to set timezone: %w", err)
			}
		}

		locale := persona.Locale
		if locale == "" && len(persona.Languages) > 0 {
			locale = persona.Languages[0]
		}
		if locale != "" {
			normalized := strings.ReplaceAll(locale, "_", "-")
			if err := emulation.SetLocaleOverride().WithLocale(normalized).Do(ctx); err != nil {
				logger.Error("Failed to set locale override", zap.Error(err))
				return fmt.Errorf("stealth: failed to set locale: %w", err)
			}
		}

		if geo := persona.Geolocation; geo != nil {
			err := emulation.SetGeolocationOverride().
				WithLatitude(geo.Latitude).
				WithLongitude(geo.Longitude).
				WithAccuracy(geo.Accuracy).
				Do(ctx)
			if err != nil {
				logger.Error("Failed to set geolocation override", zap.Error(err))
				return fmt.Errorf("stealth: failed to set geolocation: %w", err)
			}
		}
		return nil
	})
}
