package api

import "time"

// Record is a curated record as stored remotely.
type Record struct {
	ID              string         `json:"id,omitempty"`
	SharedGroupID   string         `json:"shared_group_id"`
	OwnerID         string         `json:"owner_id"`
	OriginalOwnerID string         `json:"original_owner_id"`
	Name            string         `json:"name"`
	Payload         map[string]any `json:"payload,omitempty"`
	UpdatedAt       time.Time      `json:"updated_at,omitempty"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	CuratorID string `json:"curator_id"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	CuratorID   string `json:"curator_id"`
	AccessToken string `json:"access_token"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}

// StatusOK is the healthy PingResponse status.
const StatusOK = "OK"

// ListRecordsRequest asks for one page of live records ordered by id.
// An empty cursor starts from the beginning.
type ListRecordsRequest struct {
	Cursor   string `json:"cursor,omitempty"`
	PageSize int32  `json:"page_size"`
}

// ListRecordsResponse carries one page. NextCursor is empty on the last page.
type ListRecordsResponse struct {
	Records    []Record `json:"records"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type CreateRecordsRequest struct {
	Records []Record `json:"records"`
}

type RejectedRecord struct {
	Index  int32  `json:"index"`
	Reason string `json:"reason"`
}

// CreateRecordsResponse acknowledges a batch without returning the new ids.
type CreateRecordsResponse struct {
	Accepted int32            `json:"accepted"`
	Rejected []RejectedRecord `json:"rejected,omitempty"`
}

type UpdateRecordRequest struct {
	Record Record `json:"record"`
}

type UpdateRecordResponse struct {
	Record Record `json:"record"`
}

type DeleteRecordRequest struct {
	ID string `json:"id"`
}

type DeleteRecordResponse struct{}

// PresignAttachmentRequest asks for a presigned URL for an attachment blob
// of a record. Method is "PUT" for upload and "GET" for download.
type PresignAttachmentRequest struct {
	RecordID string `json:"record_id"`
	FileName string `json:"file_name"`
	Method   string `json:"method"`
}

type PresignAttachmentResponse struct {
	Key string `json:"key"`
	URL string `json:"url"`
}
