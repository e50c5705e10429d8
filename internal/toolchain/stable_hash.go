package toolchain

import "hash/fnv"

// StableHash hashes this Toolchain's identity (target triple plus the
// kind/family/path of every resolved tool), matching the original's
// derived Hash impl for Tool (kind, family, path only — notably not
// mtime, despite the Fingerprint field's doc comment suggesting
// otherwise; the actual Hash impl never reads the filesystem).
func (t *Toolchain) StableHash() uint64 {
	h := fnv.New64a()
	write := func(s string) { _, _ = h.Write([]byte(s)); _, _ = h.Write([]byte{0}) }
	write(t.target)
	writeTools := func(tools *Tools) {
		if tools == nil {
			write("<nil>")
			return
		}
		for _, tool := range []*Tool{tools.CC, tools.LD, tools.AR} {
			write(tool.Kind().String())
			write(tool.Family().String())
			write(tool.Path())
		}
	}
	writeTools(t.c)
	writeTools(t.cxx)
	return h.Sum64()
}
