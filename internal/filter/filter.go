// Package filter classifies manifest keys into media categories and decides
// which of them a run should skip.
package filter

import (
	"path"
	"strings"
)

// Category groups file extensions by media type.
type Category string

// Supported categories. Anything unrecognised is CategoryOther.
const (
	CategoryPhoto      Category = "photo"
	CategoryAudioVideo Category = "audio_video"
	CategoryDocument   Category = "document"
	CategoryOther      Category = "other"
)

var extensions = map[string]Category{
	".jpg":  CategoryPhoto,
	".jpeg": CategoryPhoto,
	".png":  CategoryPhoto,
	".gif":  CategoryPhoto,
	".bmp":  CategoryPhoto,
	".tiff": CategoryPhoto,
	".tif":  CategoryPhoto,
	".svg":  CategoryPhoto,
	".webp": CategoryPhoto,
	".heic": CategoryPhoto,

	".mp4":  CategoryAudioVideo,
	".mp3":  CategoryAudioVideo,
	".wav":  CategoryAudioVideo,
	".avi":  CategoryAudioVideo,
	".mov":  CategoryAudioVideo,
	".flv":  CategoryAudioVideo,
	".mkv":  CategoryAudioVideo,
	".wmv":  CategoryAudioVideo,
	".aac":  CategoryAudioVideo,
	".ogg":  CategoryAudioVideo,
	".m4a":  CategoryAudioVideo,
	".flac": CategoryAudioVideo,
	".webm": CategoryAudioVideo,

	".pdf":  CategoryDocument,
	".html": CategoryDocument,
	".htm":  CategoryDocument,
	".doc":  CategoryDocument,
	".docx": CategoryDocument,
	".xls":  CategoryDocument,
	".xlsx": CategoryDocument,
	".ppt":  CategoryDocument,
	".pptx": CategoryDocument,
	".txt":  CategoryDocument,
	".rtf":  CategoryDocument,
	".odt":  CategoryDocument,
	".csv":  CategoryDocument,
}

// Classify returns the category of a remote path based on its extension.
// Leading dots of the file name are not an extension, so ".png" is other.
func Classify(remotePath string) Category {
	name := remotePath[strings.LastIndex(remotePath, "/")+1:]
	ext := strings.ToLower(path.Ext(strings.TrimLeft(name, ".")))
	if c, ok := extensions[ext]; ok {
		return c
	}
	return CategoryOther
}

// Config selects which categories are excluded.
type Config struct {
	NoPhotos     bool `mapstructure:"no_photos"`
	NoAudioVideo bool `mapstructure:"no_audio_video"`
	NoDocuments  bool `mapstructure:"no_documents"`
}

// Filter decides exclusion for manifest keys.
type Filter struct {
	cfg Config
}

// New builds a Filter.
func New(cfg Config) *Filter {
	return &Filter{cfg: cfg}
}

// Exclude reports whether remotePath belongs to an excluded category.
func (f *Filter) Exclude(remotePath string) bool {
	if f == nil {
		return false
	}
	switch Classify(remotePath) {
	case CategoryPhoto:
		return f.cfg.NoPhotos
	case CategoryAudioVideo:
		return f.cfg.NoAudioVideo
	case CategoryDocument:
		return f.cfg.NoDocuments
	default:
		return false
	}
}
