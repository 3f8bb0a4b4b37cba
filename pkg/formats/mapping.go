package formats

import (
	"bufio"
	"fmt"
	"io"

	"github.com/Faultbox/meshreplay/pkg/replay"
)

// WriteMapping writes one "original mapped" pair per line, both 0-based.
func WriteMapping[I replay.Index](w io.Writer, mapping []I) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# original mapped [%d]\n", len(mapping))
	for i, v := range mapping {
		fmt.Fprintf(bw, "%d %d\n", i, uint64(v))
	}
	return bw.Flush()
}
