package fingerprint_test

import (
	"strings"
	"testing"

	"github.com/phrazzld/worksheetgen/internal/fingerprint"
	"github.com/stretchr/testify/assert"
)

func TestOfIsDeterministic(t *testing.T) {
	inputs := []string{"", "2+2=4", "The mitochondria is the powerhouse of the cell.", strings.Repeat("x", 1<<16)}
	for _, text := range inputs {
		for _, count := range []int{1, 5, 15} {
			assert.Equal(t, fingerprint.Of(text, count), fingerprint.Of(text, count))
		}
	}
}

func TestOfFormat(t *testing.T) {
	fp := fingerprint.Of("2+2=4", 15)

	parts := strings.Split(fp.String(), "_")
	assert.Len(t, parts, 2)
	assert.Len(t, parts[0], 64, "sha-256 hex digest")
	assert.Equal(t, "15", parts[1])
	assert.Equal(t, fingerprint.TextHash("2+2=4"), parts[0])
}

func TestOfDistinguishesInputs(t *testing.T) {
	texts := []string{
		"photosynthesis",
		"Photosynthesis",
		"photosynthesis ",
		" photosynthesis",
		"photosynthesis\n",
		"photo synthesis",
	}

	seen := make(map[fingerprint.Fingerprint]string)
	for _, text := range texts {
		fp := fingerprint.Of(text, 15)
		if prev, ok := seen[fp]; ok {
			t.Fatalf("collision between %q and %q", prev, text)
		}
		seen[fp] = text
	}
}

func TestOfSeparatesCounts(t *testing.T) {
	assert.NotEqual(t, fingerprint.Of("same text", 5), fingerprint.Of("same text", 15))
	assert.NotEqual(t, fingerprint.Of("same text", 1), fingerprint.Of("same text", 11))
}

func TestTextHashKnownValue(t *testing.T) {
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		fingerprint.TextHash(""))
}
