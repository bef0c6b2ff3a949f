package model

// Record kinds emitted by pools. Field order inside the payloads is part of
// the contract consumers rely on.
const (
	KindSync      = "Sync"
	KindMint      = "Mint"
	KindBurn      = "Burn"
	KindSwap      = "Swap"
	KindFlashLoan = "FlashLoan"
)

// Record is one emitted pool record, normalized for storage.
type Record struct {
	Pool      string      `json:"pool"`
	Kind      string      `json:"kind"`
	Timestamp uint64      `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// SyncData reports the reserves after a state-changing call. Reserve1 is
// empty for single-asset pools.
type SyncData struct {
	Reserve0 string `json:"reserve0"`
	Reserve1 string `json:"reserve1,omitempty"`
}

// MintData reports a liquidity deposit. Amount1 is empty for single-asset
// pools.
type MintData struct {
	Sender  string `json:"sender"`
	Amount0 string `json:"amount0"`
	Amount1 string `json:"amount1,omitempty"`
}

// BurnData reports a liquidity withdrawal. Amount1 is empty for
// single-asset pools.
type BurnData struct {
	Sender  string `json:"sender"`
	Amount0 string `json:"amount0"`
	Amount1 string `json:"amount1,omitempty"`
	To      string `json:"to"`
}

// SwapData reports a swap with per-side input and output amounts.
type SwapData struct {
	Sender     string `json:"sender"`
	Amount0In  string `json:"amount0_in"`
	Amount1In  string `json:"amount1_in"`
	Amount0Out string `json:"amount0_out"`
	Amount1Out string `json:"amount1_out"`
	To         string `json:"to"`
}

// FlashLoanData reports a settled flash loan.
type FlashLoanData struct {
	Recipient string `json:"recipient"`
	Initiator string `json:"initiator"`
	Token     string `json:"token"`
	Amount    string `json:"amount"`
	Premium   string `json:"premium"`
}

// PoolInfo is pool metadata for storage. Token1 is empty for single-asset
// pools.
type PoolInfo struct {
	Address string `json:"address"`
	Kind    string `json:"kind"`
	Token0  string `json:"token0"`
	Token1  string `json:"token1,omitempty"`
	Shares  string `json:"shares"`
}

// Pool kinds for PoolInfo.
const (
	PoolKindPair  = "pair"
	PoolKindFlash = "flash"
)
