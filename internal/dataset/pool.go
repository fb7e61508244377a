// Package dataset reads the landmark pool and reads and writes the
// collection CSV files.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/jszwec/csvutil"
	"k8s.io/klog/v2"

	"github.com/relabs-tech/myo_landmarks/internal/landmarks"
)

// ErrDatasetLoad wraps every failure to produce a usable landmark pool.
var ErrDatasetLoad = errors.New("dataset: cannot load landmark pool")

// Pool is a read-only set of landmark frames sampled with replacement.
type Pool struct {
	frames []landmarks.Frame

	mu  sync.Mutex
	rng *rand.Rand
}

// LoadPool reads the landmark CSV at path. Seed 0 seeds from the clock.
func LoadPool(path string, seed uint64) (*Pool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatasetLoad, err)
	}
	defer f.Close()

	p, err := ReadPool(f, seed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	klog.Infof("dataset: loaded %d landmark frames from %s", p.Len(), path)
	return p, nil
}

// ReadPool decodes a landmark pool. The header must carry all 63 landmark
// columns; extra columns are ignored.
func ReadPool(r io.Reader, seed uint64) (*Pool, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrDatasetLoad)
		}
		return nil, fmt.Errorf("%w: %v", ErrDatasetLoad, err)
	}
	dec.DisallowMissingColumns = true

	var frames []landmarks.Frame
	for {
		var h Hand
		if err := dec.Decode(&h); err == io.EOF {
			break
		} else if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrDatasetLoad, len(frames)+1, err)
		}
		frames = append(frames, h.Frame())
	}
	return NewPool(frames, seed)
}

// NewPool wraps frames. An empty pool is an error.
func NewPool(frames []landmarks.Frame, seed uint64) (*Pool, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: no landmark rows", ErrDatasetLoad)
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Pool{
		frames: frames,
		rng:    rand.New(rand.NewPCG(seed, seed>>1|1)),
	}, nil
}

// Len returns the number of frames in the pool.
func (p *Pool) Len() int { return len(p.frames) }

// Sample returns a uniformly random frame. Safe for concurrent use.
func (p *Pool) Sample() landmarks.Frame {
	p.mu.Lock()
	i := p.rng.IntN(len(p.frames))
	p.mu.Unlock()
	return p.frames[i]
}
