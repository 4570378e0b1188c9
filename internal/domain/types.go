package domain

// BroadcastReceiver is the addressee sentinel meaning "every connected identity".
const BroadcastReceiver = "all"

// LeftChatText is the body of the departure notice sent when a connection closes.
const LeftChatText = "left the chat"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// MaxMessageLength bounds the text of a single inbound frame.
const MaxMessageLength = 4000

// basic errors that can occur
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrAuthFailed         Error = "could not validate credentials"
	ErrUnknownIdentity    Error = "identity does not exist"
	ErrInactiveIdentity   Error = "inactive user"
	ErrProtocolViolation  Error = "malformed message frame"
	ErrDeliveryMiss       Error = "receiver is not connected"
	ErrPersistenceFailure Error = "message store unavailable"
	ErrUsernameTaken      Error = "username already registered"
	ErrEmailTaken         Error = "email already registered"
	ErrInvalidInput       Error = "invalid input"
)
