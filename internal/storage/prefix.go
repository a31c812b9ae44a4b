package storage

// PrefixDB scopes a DB to one key namespace. The ledger of each
// wallet/account pair lives under its own prefix of the shared store.
type PrefixDB struct {
	inner  DB
	prefix []byte
}

// NewPrefixDB returns a view of inner restricted to keys starting with prefix.
func NewPrefixDB(inner DB, prefix []byte) *PrefixDB {
	return &PrefixDB{inner: inner, prefix: clone(prefix)}
}

// Prefix returns a copy of the namespace prefix.
func (p *PrefixDB) Prefix() []byte {
	return clone(p.prefix)
}

func joinKey(prefix, key []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(key))
	out = append(out, prefix...)
	return append(out, key...)
}

func (p *PrefixDB) Get(key []byte) ([]byte, error) {
	return p.inner.Get(joinKey(p.prefix, key))
}

func (p *PrefixDB) Put(key, value []byte) error {
	return p.inner.Put(joinKey(p.prefix, key), value)
}

func (p *PrefixDB) Delete(key []byte) error {
	return p.inner.Delete(joinKey(p.prefix, key))
}

func (p *PrefixDB) Has(key []byte) (bool, error) {
	return p.inner.Has(joinKey(p.prefix, key))
}

// ForEach walks the keys under prefix inside the namespace. Keys are handed
// to fn without the namespace prefix.
func (p *PrefixDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	n := len(p.prefix)
	return p.inner.ForEach(joinKey(p.prefix, prefix), func(key, value []byte) error {
		return fn(key[n:], value)
	})
}

// Close leaves the shared store open; its owner closes it.
func (p *PrefixDB) Close() error {
	return nil
}

// NewBatch returns a batch on the inner store that writes into the
// namespace, so commits stay atomic when the inner store supports it.
func (p *PrefixDB) NewBatch() Batch {
	return &prefixBatch{inner: NewBatch(p.inner), prefix: p.prefix}
}

type prefixBatch struct {
	inner  Batch
	prefix []byte
}

func (pb *prefixBatch) Put(key, value []byte) error {
	return pb.inner.Put(joinKey(pb.prefix, key), value)
}

func (pb *prefixBatch) Delete(key []byte) error {
	return pb.inner.Delete(joinKey(pb.prefix, key))
}

func (pb *prefixBatch) Commit() error {
	return pb.inner.Commit()
}
