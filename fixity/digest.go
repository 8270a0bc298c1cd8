// Package fixity proves that stored files are unchanged: it computes
// streaming digests, regenerates manifests from storage backends, and
// compares the results against what the depositor declared.
package fixity

import (
	"crypto/md5"
	"crypto/sha1"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/cul-it/cular/constants"
	"github.com/cul-it/cular/network"
	"github.com/cul-it/cular/util/retry"
)

// ChecksumComputationError means the engine could not get a clean
// read of a file after exhausting its retries. This is an escalated
// transient I/O error, not a fixity failure: the file was never fully
// read, so nothing can be said about its content.
type ChecksumComputationError struct {
	Attempts int
	LastErr  error
}

func (e *ChecksumComputationError) Error() string {
	return fmt.Sprintf("checksum computation failed after %d attempts: %v",
		e.Attempts, e.LastErr)
}

func (e *ChecksumComputationError) Unwrap() error {
	return e.LastErr
}

// sizeMismatchError is the transient condition the engine retries:
// the byte source delivered a different number of bytes than its own
// metadata promised. Slow or recovering network filesystems do this.
type sizeMismatchError struct {
	expected int64
	actual   int64
}

func (e *sizeMismatchError) Error() string {
	return fmt.Sprintf("read %d bytes, expected %d", e.actual, e.expected)
}

// OpenFunc opens a byte source for one digest attempt, returning the
// stream and the size the backend claims it has. The engine calls it
// once per attempt, so a partial read never poisons the next try.
type OpenFunc func() (io.ReadCloser, int64, error)

// Engine computes streaming digests with bounded memory and a
// bounded retry on size mismatch. A digest value mismatch is not the
// engine's business: it reports what it read, and only the comparator
// decides whether that constitutes a fixity failure.
type Engine struct {
	MaxAttempts int
	Interval    time.Duration

	// Sleep is swappable so tests don't wait out multi-minute
	// production intervals. Nil means time.Sleep.
	Sleep func(time.Duration)
}

// NewEngine returns an engine with the standard attempt bound and the
// given back-off interval.
func NewEngine(interval time.Duration) *Engine {
	return &Engine{
		MaxAttempts: constants.ChecksumMaxAttempts,
		Interval:    interval,
	}
}

func newHash(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case constants.AlgSha1:
		return sha1.New(), nil
	case constants.AlgMd5:
		return md5.New(), nil
	}
	return nil, fmt.Errorf("'%s' is not a supported checksum algorithm", algorithm)
}

// DigestReader streams reader through the named algorithm in fixed
// chunks and returns the hex digest and byte count. No retry; the
// caller owns the reader.
func DigestReader(reader io.Reader, algorithm string) (string, int64, error) {
	hasher, err := newHash(algorithm)
	if err != nil {
		return "", 0, err
	}
	buf := make([]byte, constants.DigestChunkSize)
	byteCount, err := io.CopyBuffer(hasher, reader, buf)
	if err != nil {
		return "", byteCount, err
	}
	return fmt.Sprintf("%x", hasher.Sum(nil)), byteCount, nil
}

// Digest computes the hex digest of the source returned by open. If
// the observed byte count disagrees with the size open reported, the
// read is treated as a transient I/O failure and retried up to the
// attempt bound, backing off Interval between tries. Permanent
// disagreement surfaces as ChecksumComputationError.
func (engine *Engine) Digest(algorithm string, open OpenFunc) (string, int64, error) {
	var digest string
	var size int64
	policy := retry.Policy{
		MaxAttempts: engine.MaxAttempts,
		Backoff:     engine.Interval,
		Sleep:       engine.Sleep,
		// A missing key or file is structural, not transient:
		// retrying cannot make it appear.
		Retryable: func(err error) bool {
			return !errors.Is(err, network.ErrKeyNotFound) &&
				!errors.Is(err, fs.ErrNotExist)
		},
	}
	attempts := 0
	err := policy.Do(func() error {
		attempts++
		reader, expectedSize, err := open()
		if err != nil {
			return err
		}
		defer reader.Close()
		observedDigest, byteCount, err := DigestReader(reader, algorithm)
		if err != nil {
			return err
		}
		if byteCount != expectedSize {
			return &sizeMismatchError{expected: expectedSize, actual: byteCount}
		}
		digest = observedDigest
		size = byteCount
		return nil
	})
	if err != nil {
		return "", 0, &ChecksumComputationError{
			Attempts: attempts,
			LastErr:  err,
		}
	}
	return digest, size, nil
}

// DigestFile computes the digest of a local file, using the file's
// stat size as the expected byte count.
func (engine *Engine) DigestFile(path, algorithm string) (string, int64, error) {
	return engine.Digest(algorithm, func() (io.ReadCloser, int64, error) {
		stat, err := os.Stat(path)
		if err != nil {
			return nil, 0, err
		}
		file, err := os.Open(path)
		if err != nil {
			return nil, 0, err
		}
		return file, stat.Size(), nil
	})
}
