//go:build !linux

package kdftable

// prefaultRegion is a no-op on non-Linux platforms.
func prefaultRegion(data []byte) {}

// adviseHugePages is a no-op on non-Linux platforms.
func adviseHugePages(data []byte) {}
