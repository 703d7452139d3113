//go:build !cgo

package repositories

// The cgo sqlite driver is unavailable without cgo.
func isCgoBusy(error) bool { return false }
