package acquisition

import (
	"errors"
	"fmt"
	"strings"
)

// ColorMode selects the colour depth of a scan.
type ColorMode string

const (
	ColorModeColor      ColorMode = "color"
	ColorModeGrayscale  ColorMode = "grayscale"
	ColorModeBlackWhite ColorMode = "blackwhite"
)

// Format is the file format written by a transfer.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatTIFF Format = "tiff"
	FormatBMP  Format = "bmp"
)

// Extension returns the file extension, including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatJPEG:
		return ".jpg"
	case FormatTIFF:
		return ".tif"
	case "":
		return ".bmp"
	default:
		return "." + string(f)
	}
}

// Settings are applied to an item before transfer. BufferSizeBytes of zero
// leaves the driver default in place.
type Settings struct {
	ResolutionDPI   int       `json:"resolution_dpi" yaml:"resolution_dpi"`
	ColorMode       ColorMode `json:"color_mode" yaml:"color_mode"`
	OutputFormat    Format    `json:"output_format" yaml:"output_format"`
	BufferSizeBytes int       `json:"buffer_size_bytes,omitempty" yaml:"buffer_size_bytes,omitempty"`
}

const (
	LocalResolutionDPI   = 300
	NetworkResolutionDPI = 200
	NetworkBufferBytes   = 32768
)

// DefaultSettings returns the settings used when a caller supplies none.
// Network devices get a lower resolution and an explicit transfer buffer.
func DefaultSettings(isNetwork bool) Settings {
	if isNetwork {
		return Settings{
			ResolutionDPI:   NetworkResolutionDPI,
			ColorMode:       ColorModeColor,
			OutputFormat:    FormatBMP,
			BufferSizeBytes: NetworkBufferBytes,
		}
	}
	return Settings{
		ResolutionDPI: LocalResolutionDPI,
		ColorMode:     ColorModeColor,
		OutputFormat:  FormatBMP,
	}
}

// Canonical replaces colour mode and format aliases with their canonical
// names. Values that do not parse are kept so Validate can report them.
func (s Settings) Canonical() Settings {
	if mode, err := ParseColorMode(string(s.ColorMode)); err == nil {
		s.ColorMode = mode
	}
	if f, err := ParseFormat(string(s.OutputFormat)); err == nil {
		s.OutputFormat = f
	}
	return s
}

// Validate checks that the settings are usable.
func (s Settings) Validate() error {
	if s.ResolutionDPI <= 0 {
		return errors.New("resolution must be greater than 0")
	}
	if s.BufferSizeBytes < 0 {
		return errors.New("buffer size cannot be negative")
	}
	if _, err := ParseColorMode(string(s.ColorMode)); err != nil {
		return err
	}
	if _, err := ParseFormat(string(s.OutputFormat)); err != nil {
		return err
	}
	return nil
}

// ParseColorMode accepts the colour mode names used in config and flags.
func ParseColorMode(raw string) (ColorMode, error) {
	switch mode := ColorMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case ColorModeColor, ColorModeGrayscale, ColorModeBlackWhite:
		return mode, nil
	case "gray", "grey", "greyscale":
		return ColorModeGrayscale, nil
	case "bw", "mono":
		return ColorModeBlackWhite, nil
	default:
		return "", fmt.Errorf("unknown colour mode %q", raw)
	}
}

// ParseFormat accepts the output format names used in config and flags.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case FormatPDF, FormatJPEG, FormatPNG, FormatTIFF, FormatBMP:
		return f, nil
	case "jpg":
		return FormatJPEG, nil
	case "tif":
		return FormatTIFF, nil
	default:
		return "", fmt.Errorf("unknown output format %q", raw)
	}
}
