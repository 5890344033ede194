package ingest

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hamba/avro/v2/ocf"
)

// RecordStream yields decoded records one at a time. Next returns io.EOF once the
// stream is exhausted; any other error ends the stream.
type RecordStream interface {
	Next() (any, error)
}

// StreamOpener builds a RecordStream over a raw byte blob.
type StreamOpener func(content []byte) (RecordStream, error)

type avroStream struct {
	decoder *ocf.Decoder
}

// NewAvroStream opens an Avro object container file. The header and schema are
// read eagerly; blocks are decoded lazily as records are pulled.
func NewAvroStream(content []byte) (RecordStream, error) {
	decoder, err := ocf.NewDecoder(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	return &avroStream{decoder: decoder}, nil
}

func (s *avroStream) Next() (any, error) {
	if !s.decoder.HasNext() {
		if err := s.decoder.Error(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
		}
		return nil, io.EOF
	}

	var record any
	if err := s.decoder.Decode(&record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecodeFailure, err)
	}

	return record, nil
}
