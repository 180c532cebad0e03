// Package feed is the client-side view model of the forum: the signed-in
// user, the thread list and the opened thread, with votes routed through one
// reconciler per entity. Failures surface as notices, never as panics.
package feed
