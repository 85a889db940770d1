// Package model defines domain entities shared by the feed core, sources and index.
package model

// Record is a single ledger entry: a post, direct message, comment or
// notification. A resolved Record is an immutable snapshot; a later refresh
// cycle resolves a fresh snapshot instead of mutating this one.
type Record struct {
	ID         int64  // dense contract-assigned ID, starts at 1, never reused
	Author     string // account address of the creator/sender
	Receiver   string // counterparty address (messages only)
	ContentRef string // blob store key; empty if the record carries no body
	CreatedAt  int64  // unix seconds
	Likes      int64
	Shares     int64
	ParentID   int64 // quoted post or thread root, 0 if none
	Deleted    bool  // soft-delete tombstone, never unset once true
	Read       bool  // mark-read flag (messages, notifications)
}

// WindowKind selects the subset/ordering policy over record IDs.
type WindowKind int

const (
	// MostRecent covers the whole ledger, newest first.
	MostRecent WindowKind = iota
	// ByAuthor covers records created by a single account, newest first.
	ByAuthor
	// ByConversation covers messages between two accounts in either
	// direction, oldest first (chat order).
	ByConversation
	// ByParent covers records replying to or quoting one parent, newest first.
	ByParent
)

// Window names a subset and ordering of record IDs. The zero value is the
// full most-recent window.
type Window struct {
	Kind     WindowKind
	Author   string // ByAuthor
	Self     string // ByConversation
	Other    string // ByConversation
	ParentID int64  // ByParent
}

// MostRecentWindow returns the full-ledger newest-first window.
func MostRecentWindow() Window { return Window{Kind: MostRecent} }

// AuthorWindow returns a window over one account's records.
func AuthorWindow(author string) Window {
	return Window{Kind: ByAuthor, Author: author}
}

// ConversationWindow returns a window over the messages exchanged between
// self and other, in either direction.
func ConversationWindow(self, other string) Window {
	return Window{Kind: ByConversation, Self: self, Other: other}
}

// ThreadWindow returns a window over the children of one parent record.
func ThreadWindow(parentID int64) Window {
	return Window{Kind: ByParent, ParentID: parentID}
}

// Ascending reports whether the window orders records oldest first.
// Conversations read top-down like a chat; every other view is a feed.
func (w Window) Ascending() bool { return w.Kind == ByConversation }

// Less reports whether record ID a sorts before record ID b under this
// window's ordering. IDs are assigned in creation order, so ordering by ID
// is ordering by creation.
func (w Window) Less(a, b int64) bool {
	if w.Ascending() {
		return a < b
	}
	return a > b
}
