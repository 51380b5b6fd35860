/*
Package domain contains the core types of the USSD automation.

It defines the persisted transaction parameters, the step enumeration, dialog
snapshots and the status and outcome records. This package is kept pure and free of
external dependencies like I/O or persistence, following Hexagonal Architecture principles.

# Key Entities

  - TransactionParameters: The single persisted record (type, phone, amount, PIN, step, attempts).
  - Step: The position within a flow, stable as an integer for polling clients.
  - DialogSnapshot: The classified text of one dialog notification.
  - Status / Outcome: What callers poll and what the ledger records.
*/
package domain
