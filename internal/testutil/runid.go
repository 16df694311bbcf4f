package testutil

// ConstantRunID returns the same run id every time, so repeated runs of a
// scenario produce byte-identical output.
//
// Thread-safety: stateless and safe for concurrent use.
type ConstantRunID struct {
	ID string
}

// NewConstantRunID creates a generator returning id.
func NewConstantRunID(id string) ConstantRunID {
	return ConstantRunID{ID: id}
}

// Generate returns the constant id.
func (g ConstantRunID) Generate() string {
	return g.ID
}
