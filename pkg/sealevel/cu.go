package sealevel

const (
	CUSystemProgramDefaultComputeUnits        = 150
	CUComputeBudgetProgramDefaultComputeUnits = 150
	CURewardPoolProgramDefaultComputeUnits    = 750
	CURewardPoolPerPositionComputeUnits       = 200
	CUCreateProgramAddressUnits               = 1500
)
