package attendance

import "time"

type CreateClockRequest struct {
	WorkerName string   `json:"worker_name" binding:"required"`
	Action     string   `json:"action" binding:"required"` // "check-in" | "check-out"
	Timestamp  string   `json:"timestamp" binding:"required"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Accuracy   *float64 `json:"accuracy,omitempty"`
	FaceData   *string  `json:"face_data,omitempty"`
	ImageData  *string  `json:"image_data,omitempty"` // base64 or data URL。保存前に暗号化
}

type ClockRecordResponse struct {
	ID             int64     `json:"id"`
	WorkerName     string    `json:"worker_name"`
	Action         string    `json:"action"`
	Timestamp      string    `json:"timestamp"`
	Latitude       *float64  `json:"latitude"`
	Longitude      *float64  `json:"longitude"`
	Accuracy       *float64  `json:"accuracy"`
	FaceData       *string   `json:"face_data"`
	EncryptedImage *string   `json:"encrypted_image,omitempty"`
	Address        *string   `json:"address,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type ListQuery struct {
	WorkerName     string
	Limit          int
	IncludeAddress bool
}

type ImageResponse struct {
	Image    string `json:"image"` // data:image/jpeg;base64,...
	RecordID int64  `json:"record_id"`
}

type BulkDeleteRequest struct {
	IDs []int64 `json:"ids" binding:"required"`
}

type BulkDeleteResponse struct {
	Requested    int     `json:"requested"`
	DeletedCount int     `json:"deleted_count"`
	FailedIDs    []int64 `json:"failed_ids"`
}

type StatsResponse struct {
	TotalRecords int64   `json:"total_records"`
	CheckIns     int64   `json:"check_ins"`
	CheckOuts    int64   `json:"check_outs"`
	WorkerName   *string `json:"worker_name,omitempty"`
}

func (r ClockRecord) toDTO() ClockRecordResponse {
	return ClockRecordResponse{
		ID:             r.ID,
		WorkerName:     r.WorkerName,
		Action:         r.Action,
		Timestamp:      r.Timestamp,
		Latitude:       r.Latitude,
		Longitude:      r.Longitude,
		Accuracy:       r.Accuracy,
		FaceData:       r.FaceData,
		EncryptedImage: r.EncryptedImage,
		CreatedAt:      r.CreatedAt,
	}
}
