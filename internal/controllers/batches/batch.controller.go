package batchController

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"path"
	"strings"

	"avroviewer/internal/ingest"
	"avroviewer/internal/models"

	logger "github.com/Bparsons0904/goLogger"
)

const (
	MAX_FILES_PER_BATCH = 100
	EXPORT_INDENT       = "  "
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrNoBatch    = errors.New("no batch has been processed")
)

type ingestion interface {
	Process(ctx context.Context, files []ingest.File) ingest.BatchOutcome
	Latest(ctx context.Context) (ingest.BatchOutcome, bool)
	Result(ctx context.Context, index int) (ingest.Result, bool)
}

type history interface {
	Recent(ctx context.Context, limit int) ([]models.BatchRecord, error)
}

type ExportFile struct {
	Filename string
	Content  []byte
}

type BatchControllerInterface interface {
	Upload(ctx context.Context, headers []*multipart.FileHeader) (ingest.BatchOutcome, error)
	Process(ctx context.Context, files []ingest.File) (ingest.BatchOutcome, error)
	Latest(ctx context.Context) (ingest.BatchOutcome, error)
	Export(ctx context.Context, index int) (*ExportFile, error)
	History(ctx context.Context, limit int) ([]models.BatchRecord, error)
}

type BatchController struct {
	ingestion ingestion
	history   history
	log       logger.Logger
}

func New(ingestion ingestion, history history) *BatchController {
	return &BatchController{
		ingestion: ingestion,
		history:   history,
		log:       logger.New("batchController"),
	}
}

// Upload reads every multipart file into memory and processes them as one
// batch. A file that cannot be read still takes its slot in the batch with
// empty content, so it surfaces as a Failed result instead of a request error.
func (bc *BatchController) Upload(
	ctx context.Context,
	headers []*multipart.FileHeader,
) (ingest.BatchOutcome, error) {
	log := bc.log.TraceFromContext(ctx).Function("Upload")

	files := make([]ingest.File, len(headers))
	for i, header := range headers {
		content, err := readFileHeader(header)
		if err != nil {
			log.Warn("failed to read uploaded file", "filename", header.Filename, "error", err)
		}
		files[i] = ingest.File{Name: header.Filename, Content: content}
	}

	return bc.Process(ctx, files)
}

func (bc *BatchController) Process(ctx context.Context, files []ingest.File) (ingest.BatchOutcome, error) {
	log := bc.log.TraceFromContext(ctx).Function("Process")

	if len(files) == 0 {
		return ingest.BatchOutcome{}, errors.Join(ErrValidation, errors.New("at least one file is required"))
	}
	if len(files) > MAX_FILES_PER_BATCH {
		return ingest.BatchOutcome{}, errors.Join(ErrValidation, errors.New("too many files in one batch"))
	}

	outcome := bc.ingestion.Process(ctx, files)

	log.Info("Batch processed",
		"batchID", outcome.BatchID,
		"successes", len(outcome.Successes),
		"failures", len(outcome.Failures),
	)

	return outcome, nil
}

func (bc *BatchController) Latest(ctx context.Context) (ingest.BatchOutcome, error) {
	outcome, ok := bc.ingestion.Latest(ctx)
	if !ok {
		return ingest.BatchOutcome{}, ErrNoBatch
	}
	return outcome, nil
}

// Export pretty-prints the retained data of one Ok result of the latest
// batch.
func (bc *BatchController) Export(ctx context.Context, index int) (*ExportFile, error) {
	log := bc.log.TraceFromContext(ctx).Function("Export")

	result, ok := bc.ingestion.Result(ctx, index)
	if !ok || !result.IsOk() {
		return nil, ErrNotFound
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, []byte(result.Data), "", EXPORT_INDENT); err != nil {
		return nil, log.Err("failed to format result data", err, "index", index)
	}

	return &ExportFile{
		Filename: ExportName(result.Filename),
		Content:  pretty.Bytes(),
	}, nil
}

func (bc *BatchController) History(ctx context.Context, limit int) ([]models.BatchRecord, error) {
	if limit < 0 {
		return nil, errors.Join(ErrValidation, errors.New("limit cannot be negative"))
	}
	return bc.history.Recent(ctx, limit)
}

// ExportName keeps the base name up to its first dot and appends .json, so
// "data.json.avro" exports as "data.json".
func ExportName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	stem, _, _ := strings.Cut(base, ".")
	if stem == "" || stem == "/" {
		stem = "export"
	}
	return stem + ingest.TextSuffix
}

func readFileHeader(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return io.ReadAll(file)
}
