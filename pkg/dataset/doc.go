/*
Package dataset holds the shared, read-mostly snapshot of the site spreadsheet.

A Cache starts empty and is populated on first use. A successful load replaces the
snapshot atomically, so concurrent searches observe either the previous or the new
snapshot in full. Concurrent loads collapse into a single fetch. There is no expiry
and no background refresh: a snapshot is served until Reload is called.
*/
package dataset
