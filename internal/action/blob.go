package action

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"path"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/kode4food/taskmaster/internal/workflow"
	"github.com/kode4food/taskmaster/pkg/api"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

type (
	// Buckets keeps one open bucket per bucket URL, so that every load and
	// save action naming the same URL shares a bucket
	Buckets struct {
		buckets map[string]*blob.Bucket
		mu      sync.Mutex
	}

	// Load reads an object from a bucket and decodes it
	Load struct {
		buckets   *Buckets
		bucket    string
		key       string
		format    string
		delimiter rune
	}

	// Save encodes a context value and writes it to a bucket
	Save struct {
		buckets   *Buckets
		bucket    string
		key       string
		format    string
		columns   []string
		delimiter rune
		input     input
	}
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatText = "text"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrNotTabular   = errors.New("value is not a list of records")
)

var (
	_ workflow.Executor = (*Load)(nil)
	_ workflow.Executor = (*Save)(nil)
)

func NewBuckets() *Buckets {
	return &Buckets{
		buckets: map[string]*blob.Bucket{},
	}
}

// Open returns the bucket for url, opening it on first use
func (b *Buckets) Open(ctx context.Context, url string) (*blob.Bucket, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if res, ok := b.buckets[url]; ok {
		return res, nil
	}
	res, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, err
	}
	b.buckets[url] = res
	return res, nil
}

// Close closes every bucket that was opened
func (b *Buckets) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for url, bucket := range b.buckets {
		if err := bucket.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(b.buckets, url)
	}
	return errors.Join(errs...)
}

// NewLoad creates a Load action for the `bucket` URL and object `key`
func NewLoad(b *Buckets, cfg api.Config) (*Load, error) {
	bucket, key, format, delim, err := blobOptions(cfg)
	if err != nil {
		return nil, err
	}
	return &Load{
		buckets:   b,
		bucket:    bucket,
		key:       key,
		format:    format,
		delimiter: delim,
	}, nil
}

func (l *Load) Execute(ctx context.Context, _ *workflow.Context) (any, error) {
	bucket, err := l.buckets.Open(ctx, l.bucket)
	if err != nil {
		return nil, err
	}
	data, err := bucket.ReadAll(ctx, l.key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, l.key)
		}
		return nil, err
	}

	switch l.format {
	case FormatJSON:
		var res any
		if err := json.Unmarshal(data, &res); err != nil {
			return nil, err
		}
		return res, nil
	case FormatCSV:
		return decodeCSV(data, l.delimiter)
	default:
		return string(data), nil
	}
}

// NewSave creates a Save action that writes the value named by `input`
func NewSave(b *Buckets, cfg api.Config) (*Save, error) {
	bucket, key, format, delim, err := blobOptions(cfg)
	if err != nil {
		return nil, err
	}
	in := inputFrom(cfg)
	if !in.isSet() {
		return nil, fmt.Errorf("%w: %s", ErrMissingOption, KeyInput)
	}
	return &Save{
		buckets:   b,
		bucket:    bucket,
		key:       key,
		format:    format,
		delimiter: delim,
		columns:   cfg.Strings("columns"),
		input:     in,
	}, nil
}

// Execute writes the input and returns where it was written
func (s *Save) Execute(ctx context.Context, c *workflow.Context) (any, error) {
	in, err := s.input.get(c)
	if err != nil {
		return nil, err
	}

	var data []byte
	switch s.format {
	case FormatJSON:
		data, err = json.MarshalIndent(in, "", "  ")
	case FormatCSV:
		data, err = encodeCSV(in, s.columns, s.delimiter)
	default:
		data = []byte(stringify(in))
	}
	if err != nil {
		return nil, err
	}

	bucket, err := s.buckets.Open(ctx, s.bucket)
	if err != nil {
		return nil, err
	}
	if err := bucket.WriteAll(ctx, s.key, data, nil); err != nil {
		return nil, err
	}
	return map[string]any{
		"bucket": s.bucket,
		"key":    s.key,
		"bytes":  len(data),
	}, nil
}

func blobOptions(cfg api.Config) (string, string, string, rune, error) {
	bucket, err := requireString(cfg, "bucket")
	if err != nil {
		return "", "", "", 0, err
	}
	key, err := requireString(cfg, "key")
	if err != nil {
		return "", "", "", 0, err
	}
	format := strings.ToLower(cfg.String("format", formatFromKey(key)))
	switch format {
	case FormatJSON, FormatCSV, FormatText:
	default:
		return "", "", "", 0, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
	d := cfg.String("delimiter", ",")
	delim, size := utf8.DecodeRuneInString(d)
	if size != len(d) {
		return "", "", "", 0, fmt.Errorf("%w: delimiter %q", ErrInvalidOption, d)
	}
	return bucket, key, format, delim, nil
}

func formatFromKey(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".csv":
		return FormatCSV
	case ".txt", ".log", ".md":
		return FormatText
	default:
		return FormatJSON
	}
}

func decodeCSV(data []byte, delim rune) ([]any, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []any{}, nil
	}
	header := rows[0]
	res := make([]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(map[string]any, len(header))
		for i, col := range header {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		res = append(res, rec)
	}
	return res, nil
}

func encodeCSV(v any, columns []string, delim rune) ([]byte, error) {
	records, err := toRecords(v)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		keys := map[string]struct{}{}
		for _, rec := range records {
			for k := range rec {
				keys[k] = struct{}{}
			}
		}
		columns = slices.Sorted(maps.Keys(keys))
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = delim
	if err := w.Write(columns); err != nil {
		return nil, err
	}
	for _, rec := range records {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = stringify(rec[col])
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toRecords(v any) ([]map[string]any, error) {
	norm, err := normalize(v)
	if err != nil {
		return nil, err
	}
	items, ok := norm.([]any)
	if !ok {
		return nil, ErrNotTabular
	}
	res := make([]map[string]any, len(items))
	for i, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: item %d", ErrNotTabular, i)
		}
		res[i] = rec
	}
	return res, nil
}
