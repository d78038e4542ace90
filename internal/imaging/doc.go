// Package imaging provides the bitmap primitives shared by the output pipeline.
//
// It covers three concerns:
//   - ownership: Bitmap tags an image as owned or borrowed so every
//     intermediate produced during a save is released by exactly one holder
//   - pixel format: HasAlpha inspects the format of an image, and
//     WithoutAlpha/Flatten produce opaque copies for encoders that cannot
//     store transparency
//   - loading: ImageCache and LoadImageInfo decode PNG, JPEG, GIF, BMP and
//     TIFF files from disk
//
// All images use the standard Go image.Image types. Functions never modify
// the image they are given; they return new images instead.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. A Bitmap value is not; it
// belongs to the single goroutine running a save.
package imaging
