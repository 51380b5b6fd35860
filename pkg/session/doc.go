/*
Package session serialises access to persisted transaction parameters.

A Manager wraps any ports.ParamStore with per-key locking and, optionally, a
distributed lock, so that the automation controller and out-of-process tools
(the CLI, a second server replica) never interleave read-modify-write cycles.
*/
package session
