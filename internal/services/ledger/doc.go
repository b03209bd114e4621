/*
Package ledger implements the wallet ledger engine: it validates top-up and
exchange requests against current balances, applies them atomically and
appends an immutable transaction record for every successful operation.

Money conservation is the core contract. An exchange moves value between the
PLN balance and one foreign balance at the rate quoted when the operation
executes; the applied rate is frozen on the record. No operation may leave a
balance negative, and no failure path leaves a half-applied result: balance
writes and the log append share one storage transaction.

Exchanges take row locks on both balances in deterministic key order.
Top-ups use optimistic compare-and-set with a bounded retry, surfacing
ErrConflict once the retries are spent.
*/
package ledger
