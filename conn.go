package server

// Conn is the transport seam between a room and one client connection. The
// websocket adapter implements it in production; tests substitute fakes.
type Conn interface {
	Send(data []byte) error
	Close() error
}
