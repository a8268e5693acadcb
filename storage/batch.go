package storage

type batchOp struct {
	key   []byte
	value []byte
	del   bool
}

// Batch is an ordered list of writes applied atomically by Database.Write.
type Batch struct {
	ops []batchOp
}

// Put queues a write.
func (b *Batch) Put(key, value []byte) {
	b.ops = append(b.ops, batchOp{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
}

// Delete queues a deletion.
func (b *Batch) Delete(key []byte) {
	b.ops = append(b.ops, batchOp{key: append([]byte(nil), key...), del: true})
}

// Len returns the number of queued operations.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.ops)
}

// Replay invokes fn for each queued operation in insertion order.
func (b *Batch) Replay(fn func(key, value []byte, del bool)) {
	if b == nil {
		return
	}
	for _, op := range b.ops {
		fn(op.key, op.value, op.del)
	}
}
