package models

// AnalyzeSingleImageRequest asks for tag detection on a stored image
type AnalyzeSingleImageRequest struct {
	FullPathWhereToGetImage  string     `json:"full_path_where_to_get_image"`
	FullPathWhereToSaveImage string     `json:"full_path_where_to_save_image"`
	CameraInfo               CameraInfo `json:"camera_info"`
}

// AnalyzeSingleImageResponse is the outcome of a single image analysis
type AnalyzeSingleImageResponse struct {
	RequestID     string                 `json:"request_id,omitempty"`
	Success       bool                   `json:"success"`
	TagDetections AprilTagDetectionArray `json:"tag_detections"`
	Message       string                 `json:"message,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HistoryEntry is one recorded publication on the tag detections channel
type HistoryEntry struct {
	ID            int64                  `json:"id"`
	Topic         string                 `json:"topic"`
	TagDetections AprilTagDetectionArray `json:"tag_detections"`
}
