package types

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Height is a monotonically increasing data type that can be compared against
// another Height for the purposes of updating and freezing clients.
//
// Normally the RevisionHeight is incremented at each height while keeping
// RevisionNumber the same. However some consensus algorithms may choose to
// reset the height in certain conditions e.g. hard forks, state-machine
// breaking changes. In these cases, the RevisionNumber is incremented so that
// height continues to be monitonically increasing even as the RevisionHeight
// gets reset.
type Height struct {
	RevisionNumber uint64 `json:"revision_number"`
	RevisionHeight uint64 `json:"revision_height"`
}

// ZeroHeight is the zero value of Height.
var ZeroHeight = Height{}

// NewHeight is a constructor for the IBC height type.
func NewHeight(revisionNumber, revisionHeight uint64) Height {
	return Height{
		RevisionNumber: revisionNumber,
		RevisionHeight: revisionHeight,
	}
}

// Compare implements a method to compare two heights. When comparing two
// heights a, b we can call a.Compare(b) which will return
// -1 if a < b
// 0  if a = b
// 1  if a > b
//
// It first compares based on revision numbers, whichever has the higher
// revision number is the higher height. If revision number is the same, then
// the revision height is compared.
func (h Height) Compare(other Height) int {
	switch {
	case h.RevisionNumber < other.RevisionNumber:
		return -1
	case h.RevisionNumber > other.RevisionNumber:
		return 1
	case h.RevisionHeight < other.RevisionHeight:
		return -1
	case h.RevisionHeight > other.RevisionHeight:
		return 1
	}
	return 0
}

// LT is a helper function for Compare.
func (h Height) LT(other Height) bool { return h.Compare(other) == -1 }

// LTE is a helper function for Compare.
func (h Height) LTE(other Height) bool { return h.Compare(other) <= 0 }

// GT is a helper function for Compare.
func (h Height) GT(other Height) bool { return h.Compare(other) == 1 }

// GTE is a helper function for Compare.
func (h Height) GTE(other Height) bool { return h.Compare(other) >= 0 }

// EQ is a helper function for Compare.
func (h Height) EQ(other Height) bool { return h.Compare(other) == 0 }

// IsZero returns true if both the revision number and height are zero.
func (h Height) IsZero() bool {
	return h.RevisionNumber == 0 && h.RevisionHeight == 0
}

// Increment returns the height with the revision height incremented by one.
func (h Height) Increment() Height {
	return NewHeight(h.RevisionNumber, h.RevisionHeight+1)
}

// Decrement returns the height with the revision height decremented by one.
// The second return value is false if the revision height is already zero.
func (h Height) Decrement() (Height, bool) {
	if h.RevisionHeight == 0 {
		return Height{}, false
	}
	return NewHeight(h.RevisionNumber, h.RevisionHeight-1), true
}

// String returns a string representation of Height.
func (h Height) String() string {
	return fmt.Sprintf("%d-%d", h.RevisionNumber, h.RevisionHeight)
}

// ParseHeight parses a height in the "{revision}-{height}" form.
func ParseHeight(s string) (Height, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return Height{}, fmt.Errorf("expected height in the {revision}-{height} form, got %q", s)
	}
	number, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return Height{}, fmt.Errorf("invalid revision number: %w", err)
	}
	height, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return Height{}, fmt.Errorf("invalid revision height: %w", err)
	}
	return NewHeight(number, height), nil
}

// chain ids of the form {identifier}-{revision}, e.g. cosmoshub-4
var revisionFormat = regexp.MustCompile(`^.*[^\n-]-{1}[1-9][0-9]*$`)

// ParseChainID returns the revision number of a chain id. Chain ids that do
// not end in a revision number have revision 0.
func ParseChainID(chainID string) uint64 {
	if !revisionFormat.MatchString(chainID) {
		return 0
	}
	parts := strings.Split(chainID, "-")
	revision, err := strconv.ParseUint(parts[len(parts)-1], 10, 64)
	if err != nil {
		return 0
	}
	return revision
}
