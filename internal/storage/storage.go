package storage

import "solarpool/internal/model"

// Storage defines a sink for swap receipts.
type Storage interface {
	PutReceiptBatch(receipts []model.SwapReceipt) error
}
