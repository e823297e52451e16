package topology

import (
	"strings"

	"github.com/ajitpratap0/toposplit/pkg/errors"
)

// RefEncoding maps a signed arc reference to an arc index and a traversal
// direction, and back.
type RefEncoding interface {
	Name() string
	Decode(ref int) (index int, reversed bool)
	Encode(index int, reversed bool) int
}

var (
	// Signed treats a negative reference -i as arc i traversed backwards.
	// Arc 0 cannot be reversed under this encoding.
	Signed RefEncoding = signedEncoding{}

	// Complement treats a negative reference ^i as arc i traversed
	// backwards, as the TopoJSON format specifies.
	Complement RefEncoding = complementEncoding{}
)

type signedEncoding struct{}

func (signedEncoding) Name() string { return "signed" }

func (signedEncoding) Decode(ref int) (int, bool) {
	if ref < 0 {
		return -ref, true
	}
	return ref, false
}

func (signedEncoding) Encode(index int, reversed bool) int {
	if reversed {
		return -index
	}
	return index
}

type complementEncoding struct{}

func (complementEncoding) Name() string { return "complement" }

func (complementEncoding) Decode(ref int) (int, bool) {
	if ref < 0 {
		return ^ref, true
	}
	return ref, false
}

func (complementEncoding) Encode(index int, reversed bool) int {
	if reversed {
		return ^index
	}
	return index
}

// ParseEncoding resolves an encoding by name. The empty string selects Signed.
func ParseEncoding(name string) (RefEncoding, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "signed":
		return Signed, nil
	case "complement", "topojson":
		return Complement, nil
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unknown arc reference encoding %q", name)
	}
}
