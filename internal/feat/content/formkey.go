package content

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

const (
	// uuidIndexPrefix marks block indexes created in the browser.
	uuidIndexPrefix = "uuid_"
	// blockMarker is the subfield of the hidden input every block carries.
	blockMarker = "_block"
)

var ErrInvalidFormKey = errors.New("invalid flow form key")

// FormKey addresses one subfield of one block of a flow field:
// <field>-<index>-<blocktype>-<subfield>.
type FormKey struct {
	Field     string
	Index     string
	BlockType string
	Subfield  string
}

func (k FormKey) String() string {
	return k.Field + "-" + k.Index + "-" + k.BlockType + "-" + k.Subfield
}

// ValidIndex reports whether s is a block index: decimal digits or
// uuid_ followed by hex digits.
func ValidIndex(s string) bool {
	if hex, ok := strings.CutPrefix(s, uuidIndexPrefix); ok {
		return hex != "" && strings.Trim(hex, "0123456789abcdefABCDEF") == ""
	}
	return s != "" && strings.Trim(s, "0123456789") == ""
}

// ParseFormKey splits key for the flow field named field. Block type ids
// may contain dashes: the longest id of blockTypes followed by a dash wins,
// otherwise the block type ends at the next dash.
func ParseFormKey(field, key string, blockTypes []string) (FormKey, error) {
	rest, ok := strings.CutPrefix(key, field+"-")
	if !ok {
		return FormKey{}, fmt.Errorf("%w: %q is not a key of %s", ErrInvalidFormKey, key, field)
	}

	index, rest, ok := strings.Cut(rest, "-")
	if !ok || !ValidIndex(index) {
		return FormKey{}, fmt.Errorf("%w: %q has no block index", ErrInvalidFormKey, key)
	}

	blockType, subfield := matchBlockType(rest, blockTypes)
	if blockType == "" || subfield == "" {
		return FormKey{}, fmt.Errorf("%w: %q has no block type or subfield", ErrInvalidFormKey, key)
	}

	return FormKey{Field: field, Index: index, BlockType: blockType, Subfield: subfield}, nil
}

func matchBlockType(rest string, blockTypes []string) (string, string) {
	candidates := append([]string(nil), blockTypes...)
	sort.Slice(candidates, func(i, j int) bool { return len(candidates[i]) > len(candidates[j]) })
	for _, bt := range candidates {
		if sub, ok := strings.CutPrefix(rest, bt+"-"); ok && sub != "" {
			return bt, sub
		}
	}
	bt, sub, _ := strings.Cut(rest, "-")
	return bt, sub
}
