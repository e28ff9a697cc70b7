// Package datasource implements the rotating patch-file reader that feeds
// training: positive/negative patch pools backed by on-disk record files,
// hard-negative mining via a classifier's last-chain activity, and the
// low-variance weighted resampler used to build per-round training cohorts.
package datasource

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"github.com/MeKo-Tech/boostcascade/internal/classifier"
	"github.com/MeKo-Tech/boostcascade/internal/patch"
	"github.com/MeKo-Tech/boostcascade/internal/record"
)

// ErrExhausted is returned when every retry attempt at reading a patch from
// the rotating file set failed.
var ErrExhausted = fmt.Errorf("datasource: exhausted read attempts")

// fileSet is a shuffled, rotating set of patch-record files: when the
// current file is drained, it reshuffles the whole set and reopens the
// first file, matching the source's OpenNextFile behaviour.
type fileSet struct {
	paths  []string
	rng    *rand.Rand
	cur    int
	reader *record.Reader
	closer io.Closer
}

func newFileSet(paths []string, rng *rand.Rand) (*fileSet, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("datasource: no files provided")
	}
	fs := &fileSet{paths: append([]string{}, paths...), rng: rng}
	fs.shuffle()
	if err := fs.openNext(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (fs *fileSet) shuffle() {
	fs.rng.Shuffle(len(fs.paths), func(i, j int) {
		fs.paths[i], fs.paths[j] = fs.paths[j], fs.paths[i]
	})
}

// openNext advances to the next file in rotation, reshuffling and wrapping
// around to the first file when the set is exhausted.
func (fs *fileSet) openNext() error {
	if fs.closer != nil {
		fs.closer.Close()
		fs.closer = nil
	}

	if fs.cur >= len(fs.paths) {
		fs.shuffle()
		fs.cur = 0
	}

	f, err := os.Open(fs.paths[fs.cur])
	if err != nil {
		return fmt.Errorf("datasource: open %s: %w", fs.paths[fs.cur], err)
	}
	fs.cur++
	fs.closer = f
	fs.reader = record.NewReader(f)
	return nil
}

// next returns the next patch from the rotation, opening subsequent files
// (and reshuffling on wraparound) as each is drained.
func (fs *fileSet) next() (*patch.Patch, error) {
	for {
		p, err := fs.reader.Read()
		if err == nil {
			return p, nil
		}
		if err != io.EOF {
			return nil, err
		}
		if openErr := fs.openNext(); openErr != nil {
			return nil, openErr
		}
	}
}

// DataSource holds the rotating positive and negative patch-file sets used
// to supply training cohorts.
type DataSource struct {
	positives *fileSet
	negatives *fileSet
	rng       *rand.Rand

	maxReadAttempts int
}

// New builds a DataSource over the given positive and negative patch-record
// file paths.
func New(positivePaths, negativePaths []string, rng *rand.Rand, maxReadAttempts int) (*DataSource, error) {
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}
	if maxReadAttempts <= 0 {
		maxReadAttempts = 10
	}

	pos, err := newFileSet(positivePaths, rng)
	if err != nil {
		return nil, fmt.Errorf("datasource: positives: %w", err)
	}
	neg, err := newFileSet(negativePaths, rng)
	if err != nil {
		return nil, fmt.Errorf("datasource: negatives: %w", err)
	}

	return &DataSource{positives: pos, negatives: neg, rng: rng, maxReadAttempts: maxReadAttempts}, nil
}

// ReadPositivePatch reads and integral-transforms one positive patch,
// retrying up to maxReadAttempts times on transient read failures.
func (ds *DataSource) ReadPositivePatch() (*patch.Patch, error) {
	return readWithRetry(ds.positives, ds.maxReadAttempts)
}

// ReadNegativePatch reads and integral-transforms one negative patch.
func (ds *DataSource) ReadNegativePatch() (*patch.Patch, error) {
	return readWithRetry(ds.negatives, ds.maxReadAttempts)
}

func readWithRetry(fs *fileSet, attempts int) (*patch.Patch, error) {
	var lastErr error
	for range attempts {
		p, err := fs.next()
		if err == nil {
			p.ComputeIntegralImage()
			return p, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrExhausted, lastErr)
}

// GetPositivePatches reads n positive patches.
func (ds *DataSource) GetPositivePatches(n int) ([]*patch.Patch, error) {
	return readN(ds.ReadPositivePatch, n)
}

// GetNegativePatches reads n negative patches.
func (ds *DataSource) GetNegativePatches(n int) ([]*patch.Patch, error) {
	return readN(ds.ReadNegativePatch, n)
}

func readN(read func() (*patch.Patch, error), n int) ([]*patch.Patch, error) {
	out := make([]*patch.Patch, 0, n)
	for range n {
		p, err := read()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// GetPositivePatchesActive reads positive patches, keeping only those the
// given cascade classifier's last chain still admits, for hard-example
// mining between cascade stages.
func (ds *DataSource) GetPositivePatchesActive(n int, c *classifier.Classifier) ([]*patch.Patch, error) {
	return getPatchesActive(ds.ReadPositivePatch, n, c)
}

// GetNegativePatchesActive reads negative patches, keeping only those the
// given cascade classifier's last chain still admits.
func (ds *DataSource) GetNegativePatchesActive(n int, c *classifier.Classifier) ([]*patch.Patch, error) {
	return getPatchesActive(ds.ReadNegativePatch, n, c)
}

func getPatchesActive(read func() (*patch.Patch, error), n int, c *classifier.Classifier) ([]*patch.Patch, error) {
	out := make([]*patch.Patch, 0, n)
	for len(out) < n {
		p, err := read()
		if err != nil {
			return nil, err
		}
		if c.IsActiveInLastChain(p) {
			out = append(out, p)
		}
	}
	return out, nil
}
