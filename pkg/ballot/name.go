package ballot

import (
	"bytes"
	"fmt"
)

// NameLength is the fixed size of a proposal name.
const NameLength = 32

// ProposalName is a right-padded fixed length byte string.
type ProposalName [NameLength]byte

// NameFromString converts s into a ProposalName. Names longer than
// NameLength bytes are rejected rather than truncated.
func NameFromString(s string) (ProposalName, error) {
	var name ProposalName
	if len(s) > NameLength {
		return name, fmt.Errorf("proposal name %q is %d bytes, max %d", s, len(s), NameLength)
	}
	copy(name[:], s)
	return name, nil
}

// NamesFromStrings converts every entry with NameFromString.
func NamesFromStrings(names []string) ([]ProposalName, error) {
	out := make([]ProposalName, len(names))
	for i, s := range names {
		name, err := NameFromString(s)
		if err != nil {
			return nil, err
		}
		out[i] = name
	}
	return out, nil
}

// String returns the name without its zero padding.
func (n ProposalName) String() string {
	return string(bytes.TrimRight(n[:], "\x00"))
}
