// Package media handles still images: reading the dimensions of cataloged
// pictures and turning frames extracted from videos into cached thumbnails.
//
// Decoders for GIF, JPEG, PNG, BMP, TIFF and WebP are registered, matching
// the image extensions the scanner catalogs.
package media
