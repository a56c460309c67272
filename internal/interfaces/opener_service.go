package interfaces

// OpenerService reveals a file or directory in the host's file manager.
type OpenerService interface {
	Open(path string) error
}
