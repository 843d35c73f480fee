package gitrepo

import (
	"bytes"
	"io"

	"github.com/go-git/go-git/v5/plumbing/object"
)

// binarySniffLen is how much of a file is inspected for the binary
// heuristic, mirroring git's own sniff window.
const binarySniffLen = 8192

// IsBinary reports whether content looks binary: a null byte anywhere in
// the first 8 KiB. Pure heuristic; false positives and negatives are an
// accepted limitation.
func IsBinary(data []byte) bool {
	if len(data) > binarySniffLen {
		data = data[:binarySniffLen]
	}
	return bytes.IndexByte(data, 0) >= 0
}

// blobIsBinary applies the sniff to a tree entry, reading only the sniff
// window rather than the whole blob.
func blobIsBinary(f *object.File) (bool, error) {
	rd, err := f.Blob.Reader()
	if err != nil {
		return false, err
	}
	defer rd.Close()

	buf := make([]byte, binarySniffLen)
	n, err := io.ReadFull(rd, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false, err
	}
	return IsBinary(buf[:n]), nil
}
