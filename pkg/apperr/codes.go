package apperr

type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeTransport        Code = "TRANSPORT"
	CodeMalformedPayload Code = "MALFORMED_PAYLOAD"
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodeNotFound         Code = "NOT_FOUND"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeInternal         Code = "INTERNAL"
	CodeDeadlineExceeded Code = "DEADLINE_EXCEEDED"
)
