package kvbench

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/cockroachdb/swiss"
	iradix "github.com/hashicorp/go-immutable-radix/v2"
	"github.com/relab/bbhash"
)

// Store is a key set under benchmark.
type Store interface {
	Insert(key string)
	Lookup(key string) bool
	Remove(key string)
	Len() int
}

// Scanner is implemented by ordered stores. Scan calls fn for each key >= from
// in ascending byte order until fn returns false or the keys run out.
type Scanner interface {
	Scan(from string, fn func(key string) bool)
}

// Implementation names accepted by NewStore.
const (
	ImplMap   = "map"
	ImplSwiss = "swiss"
	ImplMPHF  = "mphf"
	ImplRadix = "radix"
)

var factories = map[string]func(keys []string) (Store, error){
	ImplMap: func(keys []string) (Store, error) {
		return &mapStore{m: make(map[string]struct{}, len(keys))}, nil
	},
	ImplSwiss: func(keys []string) (Store, error) {
		return &swissStore{m: swiss.New[string, struct{}](len(keys))}, nil
	},
	ImplMPHF: func(keys []string) (Store, error) {
		return newMPHFStore(keys)
	},
	ImplRadix: func([]string) (Store, error) {
		return &radixStore{txn: iradix.New[struct{}]().Txn()}, nil
	},
}

// Implementations returns the known implementation names, sorted.
func Implementations() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewStore returns an empty store of the named implementation sized for keys.
// Static implementations precompute their layout from keys here.
func NewStore(name string, keys []string) (Store, error) {
	f, ok := factories[name]
	if !ok {
		return nil, errUnknownImpl(name)
	}
	return f(keys)
}

func errUnknownImpl(name string) error {
	return fmt.Errorf("unknown implementation %q (known: %s)", name, strings.Join(Implementations(), ", "))
}

type mapStore struct {
	m map[string]struct{}
}

func (s *mapStore) Insert(key string)      { s.m[key] = struct{}{} }
func (s *mapStore) Remove(key string)      { delete(s.m, key) }
func (s *mapStore) Len() int               { return len(s.m) }
func (s *mapStore) Lookup(key string) bool { _, ok := s.m[key]; return ok }

type swissStore struct {
	m *swiss.Map[string, struct{}]
}

func (s *swissStore) Insert(key string) { s.m.Put(key, struct{}{}) }
func (s *swissStore) Remove(key string) { s.m.Delete(key) }
func (s *swissStore) Len() int          { return s.m.Len() }
func (s *swissStore) Lookup(key string) bool {
	_, ok := s.m.Get(key)
	return ok
}

// radixStore keeps keys ordered in an adaptive radix tree. All mutations go
// through one open transaction, which updates nodes in place once they have
// been copied, so the benchmark never pays for committed snapshots.
type radixStore struct {
	txn *iradix.Txn[struct{}]
}

func (s *radixStore) Insert(key string) { s.txn.Insert([]byte(key), struct{}{}) }
func (s *radixStore) Remove(key string) { s.txn.Delete([]byte(key)) }
func (s *radixStore) Len() int          { return s.txn.Len() }
func (s *radixStore) Lookup(key string) bool {
	_, ok := s.txn.Get([]byte(key))
	return ok
}

func (s *radixStore) Scan(from string, fn func(key string) bool) {
	it := s.txn.Root().Iterator()
	it.SeekLowerBound([]byte(from))
	for k, _, ok := it.Next(); ok; k, _, ok = it.Next() {
		if !fn(string(k)) {
			return
		}
	}
}

// mphfStore is a static set over a known key universe. A minimal perfect
// hash maps each distinct key to its own slot; keys outside the universe
// are never stored.
type mphfStore struct {
	mph     *bbhash.BBHash2
	slots   []string
	present []bool
	n       int
}

func newMPHFStore(keys []string) (*mphfStore, error) {
	seen := make(map[uint64]struct{}, len(keys))
	hashes := make([]uint64, 0, len(keys))
	for _, k := range keys {
		h := hashKey(k)
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		hashes = append(hashes, h)
	}

	s := &mphfStore{
		slots:   make([]string, len(hashes)),
		present: make([]bool, len(hashes)),
	}
	if len(hashes) == 0 {
		return s, nil
	}

	mph, err := bbhash.New(hashes, bbhash.Gamma(2.0))
	if err != nil {
		return nil, fmt.Errorf("build MPHF: %w", err)
	}
	s.mph = mph
	return s, nil
}

// slot returns the 0-based slot for key, or -1 if key is outside the universe.
func (s *mphfStore) slot(key string) int {
	if s.mph == nil {
		return -1
	}
	idx := s.mph.Find(hashKey(key))
	if idx == 0 || idx > uint64(len(s.slots)) {
		return -1
	}
	return int(idx - 1)
}

func (s *mphfStore) Insert(key string) {
	i := s.slot(key)
	if i < 0 {
		return
	}
	if !s.present[i] {
		s.present[i] = true
		s.n++
	}
	s.slots[i] = key
}

func (s *mphfStore) Lookup(key string) bool {
	i := s.slot(key)
	return i >= 0 && s.present[i] && s.slots[i] == key
}

func (s *mphfStore) Remove(key string) {
	i := s.slot(key)
	if i < 0 || !s.present[i] || s.slots[i] != key {
		return
	}
	s.present[i] = false
	s.slots[i] = ""
	s.n--
}

func (s *mphfStore) Len() int { return s.n }

func hashKey(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
