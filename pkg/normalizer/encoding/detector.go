package encoding

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// ErrUnsupportedCharset indicates a detected charset label has no usable
// decoder. Callers should treat the file as having an unknown encoding
// rather than as a processing failure.
var ErrUnsupportedCharset = errors.New("unsupported charset")

// labelAliases maps charset names emitted by the statistical detector to the
// WHATWG labels understood by charset.Lookup.
var labelAliases = map[string]string{
	"gb-18030": "gb18030",
}

// replacementLabels are labels the WHATWG registry maps to the replacement
// codec, which decodes any input to a single U+FFFD and would silently
// destroy content. They are treated as undecodable instead.
var replacementLabels = map[string]bool{
	"iso-2022-cn": true,
	"iso-2022-kr": true,
	"hz-gb-2312":  true,
}

// Guess is the result of charset detection for one file's content. The zero
// Guess means no charset could be inferred with adequate confidence.
type Guess struct {
	Charset    string
	Language   string
	Confidence int
}

// Unknown reports whether no usable charset was inferred.
func (g Guess) Unknown() bool {
	return g.Charset == ""
}

// Detector defines the interface for inferring the character encoding of
// file content and decoding that content to UTF-8 text.
//
// Implementations MUST be safe for concurrent use; a single Detector is
// shared across worker goroutines.
type Detector interface {
	// Detect inspects content and returns the best charset guess. The zero
	// Guess is returned when nothing can be inferred with adequate
	// confidence; callers must not attempt to decode in that case.
	Detect(content []byte) Guess

	// Decode converts content from the named charset to UTF-8 text.
	// Malformed byte sequences are replaced with U+FFFD rather than
	// failing the decode. A leading byte order mark is stripped.
	// Returns ErrUnsupportedCharset (wrapped) when no decoder exists for
	// the label.
	Decode(content []byte, charsetName string) (string, error)
}

// chardetDetector implements Detector using BOM sniffing, a UTF-8 validity
// fast path, and statistical detection via the chardet library.
type chardetDetector struct {
	minConfidence  int
	defaultCharset string
	detector       *chardet.Detector
}

// NewChardetDetector creates the default Detector. Statistical results with
// confidence below minConfidence are discarded; when detection fails and
// defaultCharset names a known encoding, that encoding is assumed instead of
// reporting unknown.
func NewChardetDetector(minConfidence int, defaultCharset string) Detector {
	return &chardetDetector{
		minConfidence:  minConfidence,
		defaultCharset: defaultCharset,
		detector:       chardet.NewTextDetector(),
	}
}

// Detect implements the Detector interface.
func (d *chardetDetector) Detect(content []byte) Guess {
	if len(content) == 0 {
		return Guess{}
	}

	// A byte order mark is authoritative.
	if enc, name, certain := charset.DetermineEncoding(content, ""); certain && enc != nil {
		return Guess{Charset: name, Confidence: 100}
	}

	// Content that already is valid UTF-8 needs no statistical guessing.
	// The NUL guard keeps BOM-less UTF-16 (whose byte pairs can form valid
	// UTF-8) from slipping through on ASCII-heavy content.
	if !bytes.Contains(content, []byte{0x00}) && utf8.Valid(content) {
		return Guess{Charset: "utf-8", Confidence: 100}
	}

	if results, err := d.detector.DetectAll(content); err == nil {
		if guess := d.pickGuess(content, results); !guess.Unknown() {
			return guess
		}
	}

	// Detection failed; assume the configured fallback if it names a real
	// encoding.
	if d.defaultCharset != "" {
		if enc, name := charset.Lookup(d.defaultCharset); enc != nil {
			return Guess{Charset: name}
		}
	}

	return Guess{}
}

// pickGuess selects a usable charset from chardet's ranked candidates.
// Results whose best confidence falls below the floor are noise and rejected
// outright. Single-byte Western charsets decode any byte sequence, so on
// short CJK input chardet can rank one of them above the real charset;
// accepting such a guess would mangle the file. Only Chinese and Unicode
// candidates are eligible, and with none in the list the content is treated
// as undetectable.
func (d *chardetDetector) pickGuess(content []byte, results []chardet.Result) Guess {
	if len(results) == 0 || results[0].Confidence < d.minConfidence {
		return Guess{}
	}

	// Results arrive sorted by confidence, so the first eligible candidate
	// carries the best eligible confidence; collect the ones tied with it.
	var tied []chardet.Result
	for _, r := range results {
		if !relevantCharset(r) || r.Confidence <= 0 {
			continue
		}
		if len(tied) == 0 || r.Confidence == tied[0].Confidence {
			tied = append(tied, r)
		}
	}
	switch len(tied) {
	case 0:
		return Guess{}
	case 1:
		return toGuess(tied[0])
	}

	// GB 18030 and Big5 both decode most short byte sequences, so chardet
	// scores them identically on small files. Decoding settles it: the
	// candidate yielding the most ideographs wins, with GB first on a full
	// tie since Simplified-Chinese sources dominate the corpus this tool
	// targets.
	sort.SliceStable(tied, func(i, j int) bool {
		return tiePriority(tied[i].Charset) < tiePriority(tied[j].Charset)
	})
	best, bestCount := tied[0], d.hanCount(content, tied[0].Charset)
	for _, r := range tied[1:] {
		if count := d.hanCount(content, r.Charset); count > bestCount {
			best, bestCount = r, count
		}
	}
	return toGuess(best)
}

// hanCount counts CJK ideographs in content decoded from the named charset.
// A failed decode disqualifies the candidate.
func (d *chardetDetector) hanCount(content []byte, charsetName string) int {
	text, err := d.Decode(content, charsetName)
	if err != nil {
		return -1
	}
	count := 0
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			count++
		}
	}
	return count
}

// relevantCharset reports whether a candidate is plausible for Chinese text:
// a charset chardet associates with the zh language, or the Unicode family.
func relevantCharset(r chardet.Result) bool {
	return r.Language == "zh" || strings.HasPrefix(r.Charset, "UTF-")
}

func tiePriority(charsetName string) int {
	switch normalizeLabel(charsetName) {
	case "gb18030":
		return 0
	case "big5":
		return 1
	}
	return 2
}

func toGuess(r chardet.Result) Guess {
	return Guess{Charset: r.Charset, Language: r.Language, Confidence: r.Confidence}
}

// Decode implements the Detector interface.
func (d *chardetDetector) Decode(content []byte, charsetName string) (string, error) {
	label := normalizeLabel(charsetName)
	if label == "" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedCharset, charsetName)
	}
	enc, canonical := charset.Lookup(label)
	if enc == nil {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedCharset, charsetName)
	}

	reader := transform.NewReader(bytes.NewReader(content), enc.NewDecoder())
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("decoding from %s: %w", canonical, err)
	}

	return strings.TrimPrefix(string(decoded), "\uFEFF"), nil
}

// normalizeLabel maps a detector charset name to a WHATWG label, or returns
// the empty string for labels that must not be decoded.
func normalizeLabel(name string) string {
	label := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := labelAliases[label]; ok {
		label = alias
	}
	if replacementLabels[label] {
		return ""
	}
	return label
}

// ReplacementIntroduced reports whether decoding introduced replacement
// runes (U+FFFD) that were not present in the source bytes, i.e. whether the
// decode was lossy.
func ReplacementIntroduced(src []byte, decoded string) bool {
	replacement := string(utf8.RuneError)
	inDecoded := strings.Count(decoded, replacement)
	if inDecoded == 0 {
		return false
	}
	return inDecoded > bytes.Count(src, []byte(replacement))
}
