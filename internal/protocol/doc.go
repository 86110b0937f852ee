// Package protocol defines the catalog query protocol: the Query and Response
// values exchanged over a wire frame, and their binary encoding.
//
// Conversation rules:
// - a Get query is answered by exactly one GetItemResponse
// - a Find query is answered by zero or more IterItem values followed by exactly one IterEnd
// - one query is outstanding per connection; ordering is the only correlation
package protocol
