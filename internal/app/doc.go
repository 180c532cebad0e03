// Package app provides the application service layer of the forum API.
//
// Orchestrates use cases: registration and login, thread and comment
// publishing, vote casting with per-user rate limiting, and the leaderboard.
// Sits between HTTP handlers and domain repositories. Depends on domain
// interfaces, not concrete implementations.
package app
