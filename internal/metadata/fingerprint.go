package metadata

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// fingerprintChunkSize is the number of bytes sampled from each end of the
// file. Recording files grow by appending, so a prefix/suffix sample plus
// the total size identifies content without reading multi-gigabyte streams.
const fingerprintChunkSize = 1 << 20

// ErrFileTooSmall indicates a file below the fingerprinting floor; such
// files are skipped until they grow.
var ErrFileTooSmall = errors.New("file too small to fingerprint")

// Fingerprint computes a content hash over the first and last
// fingerprintChunkSize bytes of the file plus its size. The two sampling
// windows must not overlap, so files under twice the chunk size return
// ErrFileTooSmall.
func Fingerprint(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", err
	}
	size := info.Size()
	if size < 2*fingerprintChunkSize {
		return "", fmt.Errorf("%w: %d bytes", ErrFileTooSmall, size)
	}

	hasher := sha256.New()
	if _, err := io.CopyN(hasher, file, fingerprintChunkSize); err != nil {
		return "", fmt.Errorf("read prefix: %w", err)
	}
	if _, err := file.Seek(-fingerprintChunkSize, io.SeekEnd); err != nil {
		return "", fmt.Errorf("seek suffix: %w", err)
	}
	if _, err := io.CopyN(hasher, file, fingerprintChunkSize); err != nil {
		return "", fmt.Errorf("read suffix: %w", err)
	}

	var sizeBytes [8]byte
	binary.BigEndian.PutUint64(sizeBytes[:], uint64(size))
	hasher.Write(sizeBytes[:])

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
