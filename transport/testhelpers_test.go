package transport

import "os"

// openClient opens the client side of a pseudo-terminal by path, the
// way a real KISS client application (kissattach, direwolf's own
// kissutil) would.
func openClient(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_RDWR, 0)
}
