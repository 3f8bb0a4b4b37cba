package replay

import (
	"errors"
	"fmt"
)

// Replay errors.
var (
	ErrShapeMismatch              = errors.New("shape mismatch")
	ErrMalformedCollapseSequence  = errors.New("malformed collapse sequence")
	ErrUnrepairableIsolatedVertex = errors.New("unrepairable isolated vertex")
)

// UnrepairableIsolatedVertexError reports the isolated vertex for which no
// triangle-connected merge target could be found.
type UnrepairableIsolatedVertexError struct {
	Vertex uint64
}

func (e *UnrepairableIsolatedVertexError) Error() string {
	return fmt.Sprintf("%v: vertex %d has no non-isolated neighbor", ErrUnrepairableIsolatedVertex, e.Vertex)
}

// Unwrap allows errors.Is(err, ErrUnrepairableIsolatedVertex).
func (e *UnrepairableIsolatedVertexError) Unwrap() error {
	return ErrUnrepairableIsolatedVertex
}
