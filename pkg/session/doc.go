// Package session manages per-room comment history backed by SQLite.
//
// Invariants:
// - Session keys are sanitized and identifier-safe before they reach storage.
// - Each session is initialized exactly once per process.
// - The cached history only advances in lockstep with durable appends, so
//   replay and fan-out always agree on order.
//
// Usage:
//
//	store, _ := session.OpenStore("/var/lib/beaver/comments.db", logger)
//	registry := session.NewRegistry(store.ForKey, logger)
//	_, _ = registry.Append("team1", session.Message{Name: "anonymous", Text: "hello"}, nil)
//	history, _ := registry.History("team1")
//	_ = history
package session
