package metrics

const (
	EngineIRQsServicedH = "The total number of tx timestamp interrupts serviced"
	EngineIRQsServicedN = "fpgatime_engine_irqs_serviced"
	EnginePktsEvictedH  = "The total number of pending tx packets evicted on ring overflow"
	EnginePktsEvictedN  = "fpgatime_engine_pkts_evicted"
	EnginePktsPendingH  = "The total number of tx packets queued for a hardware timestamp"
	EnginePktsPendingN  = "fpgatime_engine_pkts_pending"
	EngineScanErrorsH   = "The total number of FIFO reads aborted without a start-of-timestamp marker"
	EngineScanErrorsN   = "fpgatime_engine_scan_errors"
	EngineTsLostH       = "The total number of tx packets released without a hardware timestamp"
	EngineTsLostN       = "fpgatime_engine_ts_lost"
	EngineTsMatchedH    = "The total number of tx packets matched with a hardware timestamp"
	EngineTsMatchedN    = "fpgatime_engine_ts_matched"
	EngineTsOrphanedH   = "The total number of orphaned hardware timestamps discarded"
	EngineTsOrphanedN   = "fpgatime_engine_ts_orphaned"
	EngineTsRingFullH   = "The total number of timestamp ring overflows that disabled the source interrupt"
	EngineTsRingFullN   = "fpgatime_engine_ts_ring_full"

	MonitorPktsReceivedH  = "The total number of packets received on the PTP event and general ports"
	MonitorPktsReceivedN  = "fpgatime_monitor_pkts_received"
	MonitorEventsDecodedH = "The total number of PTP event messages decoded"
	MonitorEventsDecodedN = "fpgatime_monitor_events_decoded"
)
