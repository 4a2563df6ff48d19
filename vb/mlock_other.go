//go:build !linux && !darwin

package vb

// lockPool is a no-op on platforms without unix.Mlock; see
// mlock_unix.go for the real best-effort implementation.
func lockPool(p *Pool) {}
