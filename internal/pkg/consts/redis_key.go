package consts

const (
	ReelGrowthRangeKey = "reel:growth:range:"
	BatchLastRunKey    = "refresh:batch:last_run"
)

const (
	BatchRefreshLock    = "lock:refresh:batch"
	SnapshotCleanupLock = "lock:snapshot:cleanup"
)
