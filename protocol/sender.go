package protocol

// Sender delivers one outbound envelope to the connected client. The meeting
// engine and the audio system only ever see this interface, never the socket.
type Sender interface {
	Send(msgType MessageType, payload interface{}) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(msgType MessageType, payload interface{}) error

func (f SenderFunc) Send(msgType MessageType, payload interface{}) error {
	return f(msgType, payload)
}
