package imaging

import "image"

// Disposer is implemented by images that hold resources beyond Go memory,
// such as pooled buffers. Bitmap calls Dispose when it releases an owned image.
type Disposer interface {
	Dispose()
}

// Bitmap is an image reference tagged with ownership.
//
// An owned Bitmap is responsible for releasing its image; a borrowed Bitmap
// never releases it. Pipeline stages thread a single Bitmap through the save
// and use Replace to hand ownership to whichever image is current, so exactly
// one holder releases each intermediate.
//
// The zero value is an empty, borrowed Bitmap.
type Bitmap struct {
	img   image.Image
	owned bool
}

// Own wraps an image the caller is responsible for releasing.
func Own(img image.Image) Bitmap {
	return Bitmap{img: img, owned: img != nil}
}

// Borrow wraps an image owned by someone else (typically the capture).
func Borrow(img image.Image) Bitmap {
	return Bitmap{img: img}
}

// Image returns the current image, or nil after Release.
func (b *Bitmap) Image() image.Image {
	return b.img
}

// Owned reports whether releasing this Bitmap releases the image.
func (b *Bitmap) Owned() bool {
	return b.owned
}

// Replace makes next the current image and takes ownership of it. The
// previous image is released if it was owned. Replacing with nil or with the
// current image is a no-op, so a stage that returns its input unchanged does
// not turn a borrowed image into an owned one.
func (b *Bitmap) Replace(next image.Image) {
	if next == nil || next == b.img {
		return
	}
	b.Release()
	b.img = next
	b.owned = true
}

// Release drops the image. Owned images implementing Disposer are disposed.
// Calling Release more than once is safe.
func (b *Bitmap) Release() {
	if b.owned {
		if d, ok := b.img.(Disposer); ok {
			d.Dispose()
		}
	}
	b.img = nil
	b.owned = false
}
