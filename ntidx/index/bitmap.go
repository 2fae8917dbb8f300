package index

import (
	roaring "github.com/RoaringBitmap/roaring"
)

// ExtensionBitmaps holds one roaring bitmap per lowercase extension,
// keyed by flat-vector position, so ntidx/search can intersect an
// extension filter against other predicates without a full vector scan.
// Positions shift under swap-with-last removal, so every Store mutation
// that moves or drops a position must be mirrored here.
type ExtensionBitmaps struct {
	byExt map[string]*roaring.Bitmap
}

// NewExtensionBitmaps returns an empty accelerator.
func NewExtensionBitmaps() *ExtensionBitmaps {
	return &ExtensionBitmaps{byExt: make(map[string]*roaring.Bitmap)}
}

// Add records that flat-vector position pos holds an entry with the
// given lowercase extension. A blank extension is not tracked; the
// search engine falls back to a linear scan for extension-less queries.
func (b *ExtensionBitmaps) Add(ext string, pos int) {
	if ext == "" {
		return
	}
	bm, ok := b.byExt[ext]
	if !ok {
		bm = roaring.New()
		b.byExt[ext] = bm
	}
	bm.Add(uint32(pos))
}

// Remove clears position pos from ext's bitmap.
func (b *ExtensionBitmaps) Remove(ext string, pos int) {
	if ext == "" {
		return
	}
	if bm, ok := b.byExt[ext]; ok {
		bm.Remove(uint32(pos))
	}
}

// Move updates ext's bitmap for a swap-with-last relocation from oldPos
// to newPos.
func (b *ExtensionBitmaps) Move(ext string, oldPos, newPos int) {
	if ext == "" {
		return
	}
	bm, ok := b.byExt[ext]
	if !ok {
		return
	}
	bm.Remove(uint32(oldPos))
	bm.Add(uint32(newPos))
}

// Positions returns the set of flat-vector positions whose extension is
// exactly ext. The returned bitmap is a defensive copy.
func (b *ExtensionBitmaps) Positions(ext string) *roaring.Bitmap {
	bm, ok := b.byExt[ext]
	if !ok {
		return roaring.New()
	}
	out := roaring.New()
	out.Or(bm)
	return out
}

// HasExtension reports whether any entry currently carries ext.
func (b *ExtensionBitmaps) HasExtension(ext string) bool {
	bm, ok := b.byExt[ext]
	return ok && !bm.IsEmpty()
}
