package dsss

// Stats is the channel-quality statistics snapshot spec §7 requires:
// transient demodulation errors are absorbed here rather than raised,
// and hard decode failures (repeated header CRC misses) are, at most, a
// counter.
type Stats struct {
	FramesDecoded   uint64
	LDPCFailures    uint64
	HeaderCRCErrors uint64
	SyncLosses      uint64
	BitsEmitted     uint64
}
