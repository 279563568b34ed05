package refdata

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/Masterminds/semver/v3"
)

var (
	ErrMalformed      = errors.New("malformed dataset")
	ErrUnknownDataset = errors.New("unknown dataset")
	ErrDuplicate      = errors.New("dataset version already registered")
)

// snapshot maps a dataset name to its versions, newest first. A snapshot is
// never modified after it is published.
type snapshot map[string][]*Dataset

// Registry holds every loaded dataset version. Readers never lock; Register
// publishes a new snapshot, so a new table version replaces the old one in a
// single pointer swap.
type Registry struct {
	mu   sync.Mutex
	snap atomic.Pointer[snapshot]
}

func NewRegistry(datasets ...*Dataset) (*Registry, error) {
	r := &Registry{}
	r.snap.Store(&snapshot{})
	for _, ds := range datasets {
		if err := r.Register(ds); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(ds *Dataset) error {
	if ds == nil {
		return fmt.Errorf("%w: nil dataset", ErrMalformed)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := *r.snap.Load()
	for _, existing := range cur[ds.name] {
		if existing.version.Equal(ds.version) {
			return fmt.Errorf("%w: %s %s", ErrDuplicate, ds.name, ds.version)
		}
	}

	next := make(snapshot, len(cur)+1)
	for name, versions := range cur {
		next[name] = versions
	}
	versions := append(append([]*Dataset(nil), cur[ds.name]...), ds)
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].version.GreaterThan(versions[j].version)
	})
	next[ds.name] = versions
	r.snap.Store(&next)
	return nil
}

// Latest returns the highest registered version of name.
func (r *Registry) Latest(name string) (*Dataset, error) {
	versions := (*r.snap.Load())[name]
	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDataset, name)
	}
	return versions[0], nil
}

// Match returns the highest version of name satisfying constraint, e.g.
// "~18.2" or ">= 18.1, < 19". An empty constraint behaves like Latest.
func (r *Registry) Match(name, constraint string) (*Dataset, error) {
	if constraint == "" {
		return r.Latest(name)
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return nil, fmt.Errorf("dataset constraint %q: %w", constraint, err)
	}
	for _, ds := range (*r.snap.Load())[name] {
		if c.Check(ds.version) {
			return ds, nil
		}
	}
	return nil, fmt.Errorf("%w: %s %s", ErrUnknownDataset, name, constraint)
}

// List describes every registered dataset, by name then newest version.
func (r *Registry) List() []Info {
	snap := *r.snap.Load()
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)
	var out []Info
	for _, name := range names {
		for _, ds := range snap[name] {
			out = append(out, ds.Info())
		}
	}
	return out
}

// Bootstrap builds the registry a process starts with: the embedded dataset
// plus every dataset found in dir, if dir is set.
func Bootstrap(dir string) (*Registry, error) {
	ds, err := Default()
	if err != nil {
		return nil, err
	}
	reg, err := NewRegistry(ds)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return reg, nil
	}
	extra, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, ds := range extra {
		if err := reg.Register(ds); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
