package reader

import (
	"bufio"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/zuhrulumam/mortchart/internal/errors"
	"github.com/zuhrulumam/mortchart/internal/models"
)

// utf8BOM is stripped from the start of the header row
const utf8BOM = "\ufeff"

// CSVReader reads one CSV source and sends its rows to a channel
type CSVReader struct {
	// source is the file path or http(s) URL to read
	source string

	// bufferSize is the size of the output channel buffer
	bufferSize int

	// client fetches remote sources
	client *http.Client
}

// Config holds configuration for CSVReader
type Config struct {
	Source     string
	BufferSize int

	// HTTPClient is used for http(s) sources (default: http.DefaultClient)
	HTTPClient *http.Client
}

// NewCSVReader creates a new CSVReader instance
func NewCSVReader(config Config) *CSVReader {
	if config.BufferSize == 0 {
		config.BufferSize = 100 // Default buffer size
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}

	return &CSVReader{
		source:     config.Source,
		bufferSize: config.BufferSize,
		client:     config.HTTPClient,
	}
}

// Source returns the path or URL this reader loads
func (r *CSVReader) Source() string {
	return r.source
}

// Read reads the source in a goroutine and sends rows to the output channel.
// The error channel carries at most one *errors.LoadError; both channels are
// closed when reading stops.
func (r *CSVReader) Read(ctx context.Context) (<-chan *models.Row, <-chan error) {
	rowCh := make(chan *models.Row, r.bufferSize)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		if err := r.readSource(ctx, rowCh); err != nil {
			errCh <- err
		}
	}()

	return rowCh, errCh
}

// readSource reads the whole source and sends rows to the channel
func (r *CSVReader) readSource(ctx context.Context, rowCh chan<- *models.Row) error {
	name := SourceName(r.source)

	body, err := openSource(ctx, r.client, r.source)
	if err != nil {
		return errors.NewLoadError("open", r.source, 0, err)
	}
	defer body.Close()

	csvReader := csv.NewReader(bufio.NewReader(body))
	csvReader.ReuseRecord = true // Optimize memory allocation
	csvReader.FieldsPerRecord = -1

	// Read header; an empty source simply yields no rows
	rawHeaders, err := csvReader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return errors.NewLoadError("read_header", r.source, 1, err)
	}

	headers := make([]string, len(rawHeaders))
	copy(headers, rawHeaders)
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], utf8BOM)
	}

	if err := validateHeaders(headers); err != nil {
		return errors.NewLoadError("validate_header", r.source, 1, err)
	}

	for {
		select {
		case <-ctx.Done():
			return errors.NewLoadError("read", r.source, 0, ctx.Err())
		default:
		}

		data, err := csvReader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			line := 0
			if pe, ok := err.(*csv.ParseError); ok {
				line = pe.Line
			}
			return errors.NewLoadError("read_row", r.source, line, err)
		}

		// Line numbers follow the CSV reader so multi-line quoted fields
		// still report where the row started.
		line, _ := csvReader.FieldPos(0)

		// Copy data since ReuseRecord is set
		dataCopy := make([]string, len(data))
		copy(dataCopy, data)

		row := models.NewRow(line, name, dataCopy, headers)

		select {
		case <-ctx.Done():
			return errors.NewLoadError("read", r.source, line, ctx.Err())
		case rowCh <- row:
		}
	}
}

// ReadAll reads a source synchronously (convenience method for non-concurrent use)
func ReadAll(ctx context.Context, source string) ([]*models.Row, error) {
	reader := NewCSVReader(Config{Source: source})

	rowCh, errCh := reader.Read(ctx)

	var rows []*models.Row
	for row := range rowCh {
		rows = append(rows, row)
	}

	if err, ok := <-errCh; ok && err != nil {
		return rows, err
	}

	return rows, nil
}

// String describes the reader for logs
func (r *CSVReader) String() string {
	return fmt.Sprintf("csv(%s)", r.source)
}
