package encoding

import (
	"testing"

	"github.com/saintfish/chardet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

func TestPickGuess(t *testing.T) {
	d := NewChardetDetector(30, "").(*chardetDetector)

	big5Phrase, _, err := transform.Bytes(traditionalchinese.Big5.NewEncoder(), []byte("繁體中文"))
	require.NoError(t, err)

	t.Run("no results", func(t *testing.T) {
		assert.True(t, d.pickGuess(nil, nil).Unknown())
	})

	t.Run("best result below floor", func(t *testing.T) {
		results := []chardet.Result{{Charset: "GB-18030", Language: "zh", Confidence: 20}}
		assert.True(t, d.pickGuess(big5Phrase, results).Unknown())
	})

	t.Run("strongest Chinese candidate wins", func(t *testing.T) {
		results := []chardet.Result{
			{Charset: "GB-18030", Language: "zh", Confidence: 80},
			{Charset: "Big5", Language: "zh", Confidence: 40},
		}
		guess := d.pickGuess(big5Phrase, results)
		assert.Equal(t, "GB-18030", guess.Charset)
		assert.Equal(t, 80, guess.Confidence)
	})

	t.Run("confident Western charset does not displace Chinese candidate", func(t *testing.T) {
		results := []chardet.Result{
			{Charset: "ISO-8859-1", Language: "en", Confidence: 42},
			{Charset: "Big5", Language: "zh", Confidence: 10},
		}
		guess := d.pickGuess(big5Phrase, results)
		assert.Equal(t, "Big5", guess.Charset)
	})

	t.Run("tied Chinese candidates settled by decoding", func(t *testing.T) {
		// The Big5 decode of this phrase is all ideographs; the GB 18030
		// decode turns two of the pairs into kana, so Big5 must win even
		// though chardet cannot tell them apart.
		results := []chardet.Result{
			{Charset: "ISO-8859-1", Language: "en", Confidence: 42},
			{Charset: "GB-18030", Language: "zh", Confidence: 10},
			{Charset: "Big5", Language: "zh", Confidence: 10},
		}
		guess := d.pickGuess(big5Phrase, results)
		assert.Equal(t, "Big5", guess.Charset)
	})

	t.Run("full tie prefers GB", func(t *testing.T) {
		content := []byte("not decodable as either, scores tie at zero")
		results := []chardet.Result{
			{Charset: "Big5", Language: "zh", Confidence: 10},
			{Charset: "GB-18030", Language: "zh", Confidence: 10},
		}
		guess := d.pickGuess(content, results)
		assert.Equal(t, "GB-18030", guess.Charset)
	})

	t.Run("only Western candidates", func(t *testing.T) {
		results := []chardet.Result{
			{Charset: "ISO-8859-1", Language: "en", Confidence: 42},
			{Charset: "windows-1252", Language: "en", Confidence: 35},
		}
		assert.True(t, d.pickGuess(big5Phrase, results).Unknown())
	})
}
