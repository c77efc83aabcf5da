package entity

import "time"

// BlockStatus is the persisted state of a block height.
type BlockStatus string

const (
	BlockStatusPending  BlockStatus = "pending"
	BlockStatusComplete BlockStatus = "complete"
	BlockStatusFailed   BlockStatus = "failed"
)

func (s BlockStatus) IsValid() bool {
	switch s {
	case BlockStatusPending, BlockStatusComplete, BlockStatusFailed:
		return true
	}
	return false
}

type BlockProgress struct {
	BlockHeight  int64
	Status       BlockStatus
	AttemptCount int32
	LastError    string
	UpdatedAt    time.Time
}

// ErrorBlock is a height that exhausted its retry budget and waits for a re-drive.
type ErrorBlock struct {
	BlockHeight   int64
	ErrorMessage  string
	FirstFailedAt time.Time
	RetryCount    int32
	UpdatedAt     time.Time
}

// DeferredBlock is a height committed while an earlier height was failed. Some of its rejections were
// judged against records the failed height may still add or displace, so it is re-driven once the
// number of error blocks below it drops under AwaitingErrorBlocks.
type DeferredBlock struct {
	BlockHeight         int64
	AwaitingErrorBlocks int32
	Reason              string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
