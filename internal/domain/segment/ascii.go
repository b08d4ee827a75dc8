package segment

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrInvalidColumnCount is returned for an unsupported ASCII column layout.
var ErrInvalidColumnCount = errors.New("invalid number of columns")

// segmentFilePermissions is the file mode for written segment files.
const segmentFilePermissions = 0o644

// WriteASCII writes the list in the plain-text exchange format consumed by
// downstream data-quality tooling: either two columns (start, end) or four
// columns (index, start, end, duration).
func WriteASCII(w io.Writer, l List, ncol int) error {
	if ncol != 2 && ncol != 4 {
		return fmt.Errorf("%w: %d", ErrInvalidColumnCount, ncol)
	}

	bw := bufio.NewWriter(w)

	for i, s := range l {
		var err error
		if ncol == 2 {
			_, err = fmt.Fprintf(bw, "%f %f\n", s.Start, s.End)
		} else {
			_, err = fmt.Fprintf(bw, "%d\t%f\t%f\t%f\n", i, s.Start, s.End, s.Duration())
		}

		if err != nil {
			return fmt.Errorf("write segment: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush segments: %w", err)
	}

	return nil
}

// WriteASCIIFile writes the list to the provided path in 4-column layout.
func WriteASCIIFile(path string, l List) error {
	f, err := os.OpenFile(
		filepath.Clean(path),
		os.O_WRONLY|os.O_CREATE|os.O_TRUNC,
		segmentFilePermissions,
	)
	if err != nil {
		return fmt.Errorf("create segment file: %w", err)
	}

	if err = WriteASCII(f, l, 4); err != nil {
		_ = f.Close()

		return err
	}

	if err = f.Close(); err != nil {
		return fmt.Errorf("close segment file: %w", err)
	}

	return nil
}
