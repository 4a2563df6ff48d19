//go:build linux || darwin

package vb

import "golang.org/x/sys/unix"

// defaultVBBufCap pre-sizes each pooled VB's TxtData buffer so the
// mlock hint below has something resident to pin; it is only a
// starting capacity, not a hard cap (zip.Opts.VBSize can exceed it and
// TxtData simply reallocates).
const defaultVBBufCap = 1 << 20

// lockPool best-effort-pins every pooled VB's initial text buffer
// resident in RAM, matching the teacher's use of golang.org/x/sys/unix
// for low-level pool tuning: a VB that gets paged out mid-segment would
// stall every other worker waiting on the merge mutex, so keeping the
// hot buffers resident is worth the attempt even though it is not load
// bearing for correctness. Failure (e.g. no CAP_IPC_LOCK, over
// RLIMIT_MEMLOCK) is silently ignored.
func lockPool(p *Pool) {
	for _, v := range p.vbs {
		v.TxtData = make([]byte, defaultVBBufCap)
		_ = unix.Mlock(v.TxtData)
		v.TxtData = v.TxtData[:0]
	}
}
