package commands

// PrivilegeRefusal is the exact reply sent when the sender lacks a bit of the
// command's required privilege mask.
const PrivilegeRefusal = "You don't have the required privileges to trigger this command."

// InternalErrorReply answers handler failures the sender cannot act on.
const InternalErrorReply = "An internal error has occurred. Please try again later."

// SyntaxError rejects an invocation whose arguments do not bind. The errors
// middleware answers it with the command's syntax line.
type SyntaxError struct {
	Cause string
}

func (e *SyntaxError) Error() string {
	return "syntax error: " + e.Cause
}

// BotError carries a message meant verbatim for the invoking user.
type BotError struct {
	Message string
}

func (e *BotError) Error() string       { return e.Message }
func (e *BotError) UserMessage() string { return e.Message }

// userFacing is implemented by errors whose text can be shown to the user
// as-is (BotError, backend response errors).
type userFacing interface {
	UserMessage() string
}
