package script

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/liuzl/gocc"
)

// supportedConversions mirrors the conversion configurations shipped with
// the gocc library (OpenCC dictionaries).
var supportedConversions = map[string]bool{
	"hk2s":  true,
	"s2hk":  true,
	"s2t":   true,
	"s2tw":  true,
	"s2twp": true,
	"t2hk":  true,
	"t2s":   true,
	"t2tw":  true,
	"tw2s":  true,
	"tw2sp": true,
}

// IsSupportedConversion reports whether name is a conversion accepted by New.
func IsSupportedConversion(name string) bool {
	return supportedConversions[name]
}

// SupportedConversions returns the accepted conversion names in sorted order,
// suitable for inclusion in validation error messages.
func SupportedConversions() []string {
	names := make([]string, 0, len(supportedConversions))
	for name := range supportedConversions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Converter defines the interface for converting Chinese text between scripts
// (e.g. Traditional to Simplified). Conversions are deterministic and
// idempotent: converting already-converted text returns it unchanged.
//
// Implementations MUST be safe for concurrent use; a single Converter is
// shared across worker goroutines.
type Converter interface {
	// Convert converts text according to the configured conversion.
	// On error the input text is returned alongside the error, so callers
	// that choose to ignore the failure still hold usable content.
	Convert(text string) (string, error)

	// ConvertFilename converts the stem of a file name, leaving the
	// extension untouched. Path separators must not be present; callers
	// pass a base name only. On error the input name is returned.
	ConvertFilename(name string) (string, error)

	// Name returns the conversion identifier in use (e.g. "t2s").
	Name() string
}

// openCCConverter implements Converter using the gocc port of OpenCC.
type openCCConverter struct {
	conversion string
	cc         *gocc.OpenCC
}

// NewOpenCCConverter creates a Converter for the given OpenCC conversion
// name. The gocc dictionaries are embedded in the library, so construction
// needs no external data files.
func NewOpenCCConverter(conversion string) (Converter, error) {
	if !IsSupportedConversion(conversion) {
		return nil, fmt.Errorf("unsupported conversion %q (supported: %s)",
			conversion, strings.Join(SupportedConversions(), ", "))
	}
	cc, err := gocc.New(conversion)
	if err != nil {
		return nil, fmt.Errorf("initializing %q converter: %w", conversion, err)
	}
	return &openCCConverter{conversion: conversion, cc: cc}, nil
}

// Convert implements the Converter interface.
func (c *openCCConverter) Convert(text string) (string, error) {
	// gocc rejects empty input; an empty string is trivially converted.
	if text == "" {
		return "", nil
	}
	out, err := c.cc.Convert(text)
	if err != nil {
		return text, fmt.Errorf("converting text via %q: %w", c.conversion, err)
	}
	return out, nil
}

// ConvertFilename implements the Converter interface. Only the stem is
// converted; the extension (including its dot) is reattached verbatim so a
// file never changes type on disk.
func (c *openCCConverter) ConvertFilename(name string) (string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		// Dotfiles like ".txt" have no stem to convert.
		return name, nil
	}
	converted, err := c.Convert(stem)
	if err != nil {
		return name, err
	}
	return converted + ext, nil
}

// Name implements the Converter interface.
func (c *openCCConverter) Name() string {
	return c.conversion
}
