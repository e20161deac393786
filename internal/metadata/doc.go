// Package metadata reads descriptive metadata for media items from Kodi-style
// NFO sidecars and fills gaps with filename- and directory-derived fallbacks.
package metadata
