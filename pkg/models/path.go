package models

import "time"

// PathNode is one segment of a bucket's virtual directory tree.
// FullPath is slash-joined and bucket-scoped: a root node's FullPath equals
// its Segment, a child's equals parent FullPath + "/" + Segment.
type PathNode struct {
	ID         int64     `json:"id"`
	BucketID   int64     `json:"bucket_id"`
	ParentID   int64     `json:"parent_id"` // 0 = root
	Segment    string    `json:"segment"`
	FullPath   string    `json:"full_path"`
	IsRoot     bool      `json:"is_root"`
	CreateTime time.Time `json:"create_time"`
}

// PathDeleteTask records a directory deletion for the external sweeper.
// The core only creates these rows; it never consumes them.
type PathDeleteTask struct {
	ID             int64     `json:"id"`
	PathID         int64     `json:"path_id"`
	FileDeleteDone bool      `json:"file_delete_done"`
	PathDeleteDone bool      `json:"path_delete_done"`
	CreateTime     time.Time `json:"create_time"`
}
