package main

import "strings"

// FileType is the media classification of a file. It is serialized as an
// integer, TypeUnknown never is.
type FileType int

const (
	TypeSong FileType = iota
	TypeVideo
	TypePDF
	TypeUnknown
)

func (t FileType) String() string {
	switch t {
	case TypeSong:
		return "song"
	case TypeVideo:
		return "video"
	case TypePDF:
		return "pdf"
	default:
		return "unknown"
	}
}

// classify maps a file extension, without the dot, to its FileType.
func classify(ext string) FileType {
	switch strings.ToLower(ext) {
	case "mp4", "mov":
		return TypeVideo
	case "mp3", "aac", "wav":
		return TypeSong
	case "pdf":
		return TypePDF
	default:
		return TypeUnknown
	}
}
