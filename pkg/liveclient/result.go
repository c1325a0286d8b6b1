package liveclient

// Reason explains why an operation was rejected before any intent was sent.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonNoIdentity       Reason = "no_identity"
	ReasonNoTransport      Reason = "no_transport"
	ReasonNotConnected     Reason = "not_connected"
	ReasonNotInSession     Reason = "not_in_session"
	ReasonAlreadyInSession Reason = "already_in_session"
	ReasonNotPresenter     Reason = "not_presenter"
	ReasonInvalidQuestion  Reason = "invalid_question"
	ReasonInvalidAnswer    Reason = "invalid_answer"
	ReasonAlreadyAnswered  Reason = "already_answered"
	ReasonEmptyMessage     Reason = "empty_message"
	ReasonTransport        Reason = "transport_error"
)

// Result is the outcome of a client operation. OK true means the intent was
// sent, not that the server applied it; false carries the local precondition
// that failed.
type Result struct {
	OK     bool
	Reason Reason
}

func ok() Result           { return Result{OK: true} }
func fail(r Reason) Result { return Result{Reason: r} }

// Failed reports whether the operation was rejected.
func (r Result) Failed() bool { return !r.OK }
