package ingest

import "strings"

type Format int

const (
	FormatUnsupported Format = iota
	FormatText
	FormatBinary
)

const (
	TextSuffix   = ".json"
	BinarySuffix = ".avro"
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "json"
	case FormatBinary:
		return "avro"
	default:
		return "unsupported"
	}
}

// Classify decides how a file is decoded from its name alone. The JSON suffix is
// checked first, so "data.json.avro" is treated as text.
func Classify(filename string) Format {
	switch {
	case strings.Contains(filename, TextSuffix):
		return FormatText
	case strings.Contains(filename, BinarySuffix):
		return FormatBinary
	default:
		return FormatUnsupported
	}
}

// File is one raw upload as submitted by the caller.
type File struct {
	Name    string
	Content []byte
}

// FileJob is the immutable identity of one file within a batch.
type FileJob struct {
	Index    int
	Filename string
	Format   Format
}

func NewFileJob(index int, filename string) FileJob {
	return FileJob{
		Index:    index,
		Filename: filename,
		Format:   Classify(filename),
	}
}
