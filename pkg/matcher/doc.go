/*
Package matcher finds menu selectors in free-form carrier text.

Matching is a best-effort heuristic: a miss falls back to a per-type default
digit (DefaultDigits), so the automation never waits forever on a menu it does
not recognise.
*/
package matcher
