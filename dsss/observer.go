package dsss

// Observer receives the four statically typed notifications the
// demodulator emits. Design note §9: the source this spec replaces used
// a dynamic string-keyed event emitter; here there is a fixed, small set
// of hooks and no dispatch over string keys. A nil method is never
// called — implementers embed NoOpObserver to pick only the hooks they
// want.
type Observer interface {
	FrameReceived(Frame)
	SyncAcquired(SyncState)
	SyncLost()
	StatsUpdated(Stats)
}

// NoOpObserver implements Observer with every hook a no-op; embed it to
// override only the hooks you need.
type NoOpObserver struct{}

func (NoOpObserver) FrameReceived(Frame)    {}
func (NoOpObserver) SyncAcquired(SyncState) {}
func (NoOpObserver) SyncLost()              {}
func (NoOpObserver) StatsUpdated(Stats)     {}
