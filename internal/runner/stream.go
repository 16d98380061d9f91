package runner

import (
	"bufio"
	"io"
)

// maxLineSize caps a single forwarded output line.
const maxLineSize = 1 << 20

// forward emits each line read from r. If a line is too long to scan, the
// rest of r is discarded so the child never blocks on a full pipe.
func forward(r io.Reader, emit func(...any)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		emit(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		_, _ = io.Copy(io.Discard, r)
		return err
	}
	return nil
}
