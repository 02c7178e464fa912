// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// DocumentIngestTask represents the data structure for a document ingestion job.
type DocumentIngestTask struct {
	DocumentID uint `json:"document_id"`
	UserID     uint `json:"user_id"`
}
