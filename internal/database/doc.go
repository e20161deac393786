// Package database is the SQLite catalog store.
//
// It holds one row per discovered media file (media_items), smart and
// standard playlists, and a small metadata table for bookkeeping. The
// connection runs in WAL mode so readers never wait on the writer.
//
// All writes go through [Database.BeginBatch] and [Database.EndBatch], which
// hold a single process-wide write mutex for the life of the transaction.
// Background jobs and user actions therefore serialize at commit time only;
// reads are never gated.
//
// Scanned fields and user state are kept apart: [Database.UpsertItems] only
// rewrites the columns a scan produces, so favorites, watch progress and
// manual tags survive any number of rescans.
package database
