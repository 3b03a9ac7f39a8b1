package models

import (
	"path/filepath"
	"strings"
	"time"
)

// FileType classifies a file by its extension.
type FileType string

const (
	FileTypeImage  FileType = "image"
	FileTypeSVG    FileType = "svg"
	FileTypeVideo  FileType = "video"
	FileTypeAudio  FileType = "audio"
	FileTypeText   FileType = "text"
	FileTypeZip    FileType = "zip"
	FileTypeScript FileType = "script"
	FileTypeDoc    FileType = "doc"
	FileTypeExcel  FileType = "excel"
	FileTypeNormal FileType = "normal"
	FileTypeDir    FileType = "dir"
)

// ImageType further classifies image files. ImageTypeNone for everything
// that is not an image.
type ImageType string

const (
	ImageTypeNone ImageType = "none"
	ImageTypeJPG  ImageType = "jpg"
	ImageTypeJPEG ImageType = "jpeg"
	ImageTypePNG  ImageType = "png"
	ImageTypeGIF  ImageType = "gif"
	ImageTypeWebP ImageType = "webp"
	ImageTypeTIFF ImageType = "tiff"
	ImageTypeTIF  ImageType = "tif"
	ImageTypeBMP  ImageType = "bmp"
	ImageTypeSVG  ImageType = "svg"
)

// FileTypeOf classifies a file name by extension.
func FileTypeOf(name string) FileType {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "jpg", "jpeg", "png", "gif", "bmp", "tif", "tiff", "webp":
		return FileTypeImage
	case "svg", "ai", "eps":
		return FileTypeSVG
	case "mp4", "mkv", "avi", "mov", "flv":
		return FileTypeVideo
	case "mp3", "wav", "flac", "aac":
		return FileTypeAudio
	case "txt", "md", "json", "xml", "toml", "conf":
		return FileTypeText
	case "zip", "rar", "tar", "gz":
		return FileTypeZip
	case "c", "cpp", "py", "js", "html", "css", "java", "rs", "go", "cs":
		return FileTypeScript
	case "doc", "docx", "odt", "rtf", "pdf":
		return FileTypeDoc
	case "xls", "xlsx", "ods", "csv", "tsv":
		return FileTypeExcel
	}
	return FileTypeNormal
}

// ImageTypeOf classifies an image file name by extension. Only meaningful
// when FileTypeOf returned FileTypeImage.
func ImageTypeOf(name string) ImageType {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	switch ext {
	case "jpg":
		return ImageTypeJPG
	case "jpeg":
		return ImageTypeJPEG
	case "png":
		return ImageTypePNG
	case "gif":
		return ImageTypeGIF
	case "webp":
		return ImageTypeWebP
	case "tiff":
		return ImageTypeTIFF
	case "tif":
		return ImageTypeTIF
	case "bmp":
		return ImageTypeBMP
	case "svg":
		return ImageTypeSVG
	}
	return ImageTypeNone
}

// ChunkRef locates one stored chunk of a file. Chunks are immutable and
// owned exclusively by a single FileRecord.
type ChunkRef struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// FileRecord is the catalog entry for one stored file. Concatenating Items
// in order reproduces the original byte stream; Size equals the sum of the
// item sizes.
type FileRecord struct {
	ID         int64      `json:"id"`
	BucketID   int64      `json:"bucket_id"`
	PathRef    int64      `json:"path_ref"` // PathNode id, 0 = bucket root
	Name       string     `json:"name"`
	FullPath   string     `json:"full_path"`
	FileType   FileType   `json:"file_type"`
	ImageType  ImageType  `json:"image_type"`
	Size       int64      `json:"size"`
	Items      []ChunkRef `json:"items"`
	CreateTime time.Time  `json:"create_time"`
}

// BrowseCursor carries independent keyset positions for the directory and
// file id spaces of a combined listing. The two spaces are unrelated, so a
// single after-id cannot page across the dir-to-file transition.
type BrowseCursor struct {
	DirAfterID  int64 `json:"dir_after_id"`
	FileAfterID int64 `json:"file_after_id"`
}

// BrowsePage is one page of a combined listing together with the cursor
// that fetches the next page.
type BrowsePage struct {
	Entries []BrowseEntry `json:"entries"`
	Next    BrowseCursor  `json:"next"`
}

// BrowseEntry is one row of a combined directory-and-file listing, the shape
// the console UI pages through.
type BrowseEntry struct {
	ID         int64     `json:"id"`
	BucketID   int64     `json:"bucket_id"`
	Name       string    `json:"name"`
	FileType   FileType  `json:"file_type"`
	ImageType  ImageType `json:"image_type"`
	Size       int64     `json:"size"`
	CreateTime time.Time `json:"create_time"`
}
