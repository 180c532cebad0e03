// Package tui is the interactive terminal front end: a thread list and a
// thread view with comments, both votable, on top of a feed.Feed.
//
// Vote changes and notices reach the running program through Events, which
// the feed is built with.
package tui
