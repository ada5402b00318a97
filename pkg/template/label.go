package template

import (
	"fmt"
	"strings"
)

// Regexp group names only accept letters, digits and underscores, so the structural
// characters of a placeholder name are rewritten as two-character tokens. The
// underscore itself is escaped too, which keeps the mapping injective: no name a
// user can type encodes to the same label as another.
const (
	labelEscape = '_'
	sequenceLen = 3
	maxSequence = 999
)

var labelCodes = map[byte]byte{
	'_': 'U',
	'#': 'H',
	'@': 'A',
	'.': 'D',
}

var labelDecodes = map[byte]byte{
	'U': '_',
	'H': '#',
	'A': '@',
	'D': '.',
}

func encodeName(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)
	for i := 0; i < len(name); i++ {
		if code, ok := labelCodes[name[i]]; ok {
			b.WriteByte(labelEscape)
			b.WriteByte(code)
			continue
		}
		b.WriteByte(name[i])
	}
	return b.String()
}

func decodeName(encoded string) (string, error) {
	var b strings.Builder
	b.Grow(len(encoded))
	for i := 0; i < len(encoded); i++ {
		c := encoded[i]
		if c != labelEscape {
			b.WriteByte(c)
			continue
		}
		if i+1 >= len(encoded) {
			return "", fmt.Errorf("dangling escape in group label %q", encoded)
		}
		decoded, ok := labelDecodes[encoded[i+1]]
		if !ok {
			return "", fmt.Errorf("unknown escape %q in group label %q", encoded[i:i+2], encoded)
		}
		b.WriteByte(decoded)
		i++
	}
	return b.String(), nil
}

// labelCounter numbers repeated placeholder names within a single compilation. It is
// created per call and never shared.
type labelCounter map[string]int

func (c labelCounter) next(name string) (string, int) {
	encoded := encodeName(name)
	c[encoded]++
	return fmt.Sprintf("%s%0*d", encoded, sequenceLen, c[encoded]), c[encoded]
}

// decodeLabel strips the sequence suffix of a group label and recovers the
// placeholder name.
func decodeLabel(label string) (string, error) {
	if len(label) <= sequenceLen {
		return "", fmt.Errorf("group label %q too short", label)
	}
	return decodeName(label[:len(label)-sequenceLen])
}
