package boot

import "rv64kernel/internal/kernel/sbi"

// sbiConsole adapts sbi.ConsolePutchar to io.Writer so kfmt.SetOutputSink
// can drain its ring buffer into the legacy SBI console once it is safe
// to call out to firmware.
type sbiConsole struct{}

func (sbiConsole) Write(p []byte) (int, error) {
	for _, b := range p {
		sbi.ConsolePutchar(b)
	}
	return len(p), nil
}
