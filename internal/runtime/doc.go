/*
Package runtime holds the USSD flow state machine.

Machine.Decide is a pure function from (parameters, dialog snapshot) to a decision:
the parameters to persist next and the single side effect to perform. Session wraps
the live parameters with the duplicate-dialog guard. Neither touches the host; the
controller in the root package executes decisions.
*/
package runtime
