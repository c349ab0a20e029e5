package serialline

var (
	tiocmget = uintptr(0x5415) // get status
	tiocmbis = uintptr(0x5416) // set indicated bits
	tiocmbic = uintptr(0x5417) // clear indicated bits
	tiocmset = uintptr(0x5418) // set status

	// tiocmiwait blocks the calling thread until one of the modem lines
	// named in the argument mask changes state.
	tiocmiwait = uintptr(0x545C)
)
