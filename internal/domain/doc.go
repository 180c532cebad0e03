// Package domain defines the core domain types and interfaces.
//
// Concept-oriented files (vote.go, forum.go, user.go, errors.go, ...) hold the
// shared types and the repository contracts used by the server. No
// implementation code beyond small value helpers.
package domain
