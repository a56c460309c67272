package common

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewBatchID generates a batch ID from the current unix timestamp
// Format: batch_<unix>
func NewBatchID() string {
	return fmt.Sprintf("batch_%d", time.Now().Unix())
}

// NewArchiveID generates a unique archive ID with the "arc_" prefix
// Format: arc_<uuid>
func NewArchiveID() string {
	return "arc_" + uuid.New().String()
}

// NewDocumentID generates a unique document ID with the "doc_" prefix
// Format: doc_<uuid>
func NewDocumentID() string {
	return "doc_" + uuid.New().String()
}
