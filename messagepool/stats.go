package messagepool

// MemoryUsageStats is a running memory-utilization summary for all messages
// in a MessagePool. Every field is a non-negative byte count. All
// operations (computing a delta, adding/subtracting it, reading MemoryUsage)
// are O(1); only MessagePool.CalculateMemoryUsageStats, used for
// verification, is O(n).
type MemoryUsageStats struct {
	// BestEffortMessageBytes is the sum of sizes of all best-effort messages
	// in the pool.
	BestEffortMessageBytes int
	// GuaranteedResponsesSizeBytes is the sum of sizes of all guaranteed
	// responses in the pool.
	GuaranteedResponsesSizeBytes int
	// OversizedGuaranteedRequestsExtraBytes is, per guaranteed-response
	// request, max(0, size-MaxResponseCountBytes), summed over the pool.
	OversizedGuaranteedRequestsExtraBytes int
	// SizeBytes is the total size of all messages in the pool.
	SizeBytes int
}

// MemoryUsage returns the memory usage attributable to guaranteed-response
// messages: the responses themselves, plus the excess bytes of oversized
// guaranteed-response requests.
func (s MemoryUsageStats) MemoryUsage() int {
	return s.GuaranteedResponsesSizeBytes + s.OversizedGuaranteedRequestsExtraBytes
}

// Add returns the sum of s and delta.
func (s MemoryUsageStats) Add(delta MemoryUsageStats) MemoryUsageStats {
	return MemoryUsageStats{
		BestEffortMessageBytes:                s.BestEffortMessageBytes + delta.BestEffortMessageBytes,
		GuaranteedResponsesSizeBytes:           s.GuaranteedResponsesSizeBytes + delta.GuaranteedResponsesSizeBytes,
		OversizedGuaranteedRequestsExtraBytes: s.OversizedGuaranteedRequestsExtraBytes + delta.OversizedGuaranteedRequestsExtraBytes,
		SizeBytes:                              s.SizeBytes + delta.SizeBytes,
	}
}

// Sub returns the difference of s and delta.
func (s MemoryUsageStats) Sub(delta MemoryUsageStats) MemoryUsageStats {
	return MemoryUsageStats{
		BestEffortMessageBytes:                s.BestEffortMessageBytes - delta.BestEffortMessageBytes,
		GuaranteedResponsesSizeBytes:           s.GuaranteedResponsesSizeBytes - delta.GuaranteedResponsesSizeBytes,
		OversizedGuaranteedRequestsExtraBytes: s.OversizedGuaranteedRequestsExtraBytes - delta.OversizedGuaranteedRequestsExtraBytes,
		SizeBytes:                              s.SizeBytes - delta.SizeBytes,
	}
}

// statsDelta computes the change in stats caused by inserting (or, negated
// by the caller, by removing) msg.
func statsDelta(msg RequestOrResponse) MemoryUsageStats {
	size := msg.ByteSize()
	if msg.Response != nil {
		if msg.Response.Deadline == NoDeadline {
			return MemoryUsageStats{GuaranteedResponsesSizeBytes: size, SizeBytes: size}
		}
		return MemoryUsageStats{BestEffortMessageBytes: size, SizeBytes: size}
	}

	req := msg.Request
	if req.Deadline == NoDeadline {
		extra := size - MaxResponseCountBytes
		if extra < 0 {
			extra = 0
		}
		return MemoryUsageStats{OversizedGuaranteedRequestsExtraBytes: extra, SizeBytes: size}
	}
	return MemoryUsageStats{BestEffortMessageBytes: size, SizeBytes: size}
}
