// Package query is the catalog query engine behind GET /api/videos.
//
// A [Request] names a view (all, favorites, a folder, a playlist, ...), three
// category toggles (shorts, VR, optimized) that can each hide or solo their
// category, an optional search string, a sort key and a page. [Build] turns
// it into a [database.Selection]; [Engine.Run] resolves playlist references,
// counts and fetches the page.
//
// Smart playlists store a [RuleSet]: author rules are unioned into one IN
// group, title keywords into one OR group, and every duration rule is its own
// clause. The groups are ANDed. An empty rule set adds no filtering.
package query
