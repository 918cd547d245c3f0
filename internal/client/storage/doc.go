// Package storage opens the local SQLite database and applies the embedded
// goose migrations before handing out the repositories built on top of it.
//
// The database only holds a key-value metadata table. Session state and the
// offline record collection are both stored there under fixed keys.
package storage
