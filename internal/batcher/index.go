// Package batcher coalesces field reads issued against one entity into a
// single query per batch window.
//
// Every read registers a pending request on the entity's Coordinator and
// receives a Future. The first request of a window schedules its flush; all
// requests arriving before the flush runs join the same window. The flush
// sends one query selecting the unique set of requested fields and resolves
// every pending request from the single response, keyed by the field's group
// key (the outer name of a composite selection such as "device{id}").
//
// A failed flush rejects every request of the window with the same
// *BatchFlushError. The next read opens a fresh window.
package batcher
