package model

// PoolStats stores aggregated swap totals for a pool.
type PoolStats struct {
	Pool      string
	MintA     string
	MintB     string
	SwapCount uint64
	VolumeA   string
	VolumeB   string
	FeeA      string
	FeeB      string
	OutputA   string
	OutputB   string
	ReserveA  string
	ReserveB  string
	FeeRateA  *string
	FeeRateB  *string
	FirstStep int
	LastStep  int
	LastRunID string
	LastSeen  string
}
