/*
Package ports defines the driven ports of the USSD automation.

# Key Interfaces

  - Host: observes the active dialog and performs input (Controls + Platform).
  - DialogSource: pushes dialog notifications into the controller.
  - ParamStore: persists the single transaction record.
  - Ledger: records completed flows.
  - DistributedLocker: serialises access to a record across processes.

Adapters prove conformance with RunParamStoreContract and RunLedgerContract.
*/
package ports
