package domain

// Zero overwrites a byte slice with zeros. Derived per-user keys and decoded
// master secrets are zeroed as soon as their scope ends so plaintext key
// material does not linger on the heap.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
