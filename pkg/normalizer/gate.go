package normalizer

import (
	"strings"

	"github.com/mattchoo2/batchtxttochineseutf8/pkg/normalizer/script"
)

// Gate decides whether a file's content is already in canonical form: UTF-8
// encoded and a fixed point of the script conversion. Files that pass the
// gate are never rewritten, so repeated runs leave the tree byte-identical.
type Gate struct {
	script script.Converter
}

// NewGate creates a Gate around the given script converter.
func NewGate(conv script.Converter) *Gate {
	return &Gate{script: conv}
}

// Check reports whether content with the given detected charset is already
// normalized: the charset is UTF-8 (case-insensitive) and converting the
// text changes nothing. The converted text is returned so callers can reuse
// it without a second conversion pass.
func (g *Gate) Check(detectedCharset, text string) (normalized bool, converted string, err error) {
	converted, err = g.script.Convert(text)
	if err != nil {
		return false, converted, err
	}
	return isUTF8Charset(detectedCharset) && converted == text, converted, nil
}

// isUTF8Charset matches the detector's UTF-8 labels case-insensitively.
func isUTF8Charset(name string) bool {
	return strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8")
}
