/*
Package observability turns controller lifecycle events into Prometheus metrics
and structured log lines.

Both are plain domain.LifecycleHooks; combine them with domain.MergeHooks and
pass the result to ussdflow.WithLifecycleHooks.
*/
package observability
