// Package forumapi is the typed HTTP client of the forum API. It implements
// vote.Endpoints so the reconciler can persist votes through it.
package forumapi
