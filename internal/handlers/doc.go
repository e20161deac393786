// Package handlers provides the HTTP API of the media library.
//
// Catalog reads go through the query engine and are rendered in the article
// shape the web client consumes. Scans, thumbnail fills, transcodes and
// cleanups are handed to the job coordinator and answered with 202; their
// progress is polled from the status endpoints. Media, thumbnails, posters,
// subtitles and optimized copies are streamed with range support.
package handlers
