// Package collection converts tabular Natural Questions tables into
// sharded JSON-lines collections plus a lookup table mapping record ids
// back to their source document and passage.
package collection

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/haasonsaas/nqbench/internal/lookup"
	"github.com/haasonsaas/nqbench/internal/observability"
	"github.com/haasonsaas/nqbench/internal/tabular"
	"github.com/haasonsaas/nqbench/pkg/models"
)

const (
	// DefaultMaxPerShard is the default number of records per shard file.
	DefaultMaxPerShard = 1000000

	// DefaultShardPrefix is the default shard file name prefix.
	DefaultShardPrefix = "docs"

	// DefaultProgressEvery is the default progress logging interval in rows.
	DefaultProgressEvery = 100000
)

// ErrInvalidShardLimit is returned when the per-shard record limit is not positive.
var ErrInvalidShardLimit = errors.New("max records per shard must be positive")

// Options configures a conversion pass.
type Options struct {
	// Name labels the collection in logs and metrics.
	Name string

	// Columns maps source columns to record fields.
	Columns Columns

	// OutputDir receives the shard files. Created if absent.
	OutputDir string

	// LookupPath is where the lookup table is written: a .json file or a
	// directory that receives index_table.json.
	LookupPath string

	// MaxPerShard is the maximum number of records per shard file.
	MaxPerShard int

	// ShardPrefix prefixes shard file names.
	ShardPrefix string

	// ProgressEvery is the progress logging interval in rows.
	ProgressEvery int

	Logger  *observability.Logger
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

// Result describes a finished conversion.
type Result struct {
	Collection string
	Rows       int
	Shards     []string
	LookupPath string
	Lookup     models.LookupTable
}

// Converter holds the state of one conversion pass. A Converter is not
// safe for concurrent use and converts a single source.
type Converter struct {
	opts Options

	nextID     int
	shardIndex int
	shard      *shardWriter
	shards     []string
	lookup     models.LookupTable
}

// NewConverter validates opts and returns a ready converter. No files are
// touched until Convert is called.
func NewConverter(opts Options) (*Converter, error) {
	if opts.MaxPerShard <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidShardLimit, opts.MaxPerShard)
	}
	if opts.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}
	if opts.LookupPath == "" {
		return nil, errors.New("lookup table path is required")
	}
	if opts.Columns.DocID == "" || opts.Columns.Text == "" {
		return nil, errors.New("doc id and text columns are required")
	}
	if opts.ShardPrefix == "" {
		opts.ShardPrefix = DefaultShardPrefix
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	if opts.Logger == nil {
		opts.Logger = observability.Discard()
	}
	opts.Logger = opts.Logger.WithFields("component", "converter", "shard_prefix", opts.ShardPrefix)
	return &Converter{
		opts:   opts,
		lookup: make(models.LookupTable),
	}, nil
}

// Convert reads every row of src in order and writes shards and the
// lookup table. Record ids are assigned sequentially from 0; a new shard
// starts whenever the id is a multiple of the shard limit.
func (c *Converter) Convert(ctx context.Context, src tabular.Reader) (result *Result, err error) {
	ctx = observability.AddCollection(ctx, c.opts.Name)
	ctx, span := c.opts.Tracer.TraceConvert(ctx, c.opts.Name, c.opts.MaxPerShard)
	defer func() {
		c.opts.Tracer.RecordError(span, err)
		span.End()
	}()

	if err := tabular.RequireColumns(src, c.opts.Columns.Required()...); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(c.opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	defer func() {
		if c.shard == nil {
			return
		}
		if cerr := c.shard.close(); cerr != nil && err == nil {
			err = cerr
			result = nil
		}
		c.shard = nil
	}()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", c.nextID, err)
		}
		if err := c.add(ctx, row); err != nil {
			return nil, err
		}
	}

	if c.shard != nil {
		shard := c.shard
		c.shard = nil
		if err := shard.close(); err != nil {
			return nil, err
		}
	}

	lookupPath := lookup.ResolvePath(c.opts.LookupPath)
	if err := lookup.Save(lookupPath, c.lookup); err != nil {
		return nil, err
	}

	c.opts.Logger.Info(ctx, "collection converted",
		"rows", c.nextID,
		"shards", len(c.shards),
		"output", c.opts.OutputDir,
		"lookup", lookupPath,
	)
	c.opts.Tracer.SetAttributes(span, "convert.rows", c.nextID, "convert.shards", len(c.shards))

	return &Result{
		Collection: c.opts.Name,
		Rows:       c.nextID,
		Shards:     append([]string(nil), c.shards...),
		LookupPath: lookupPath,
		Lookup:     c.lookup,
	}, nil
}

// add converts one row.
func (c *Converter) add(ctx context.Context, row models.Row) error {
	entry, text, err := c.entryFor(row)
	if err != nil {
		return err
	}

	id := c.nextID
	if id%c.opts.ProgressEvery == 0 {
		c.opts.Logger.Info(ctx, "converting", "rows", id, "shards", len(c.shards))
	}
	if id%c.opts.MaxPerShard == 0 {
		if err := c.rotate(); err != nil {
			return err
		}
	}

	key := models.RecordID(id)
	if err := c.shard.write(models.OutputRecord{ID: key, Contents: text}); err != nil {
		return err
	}
	c.lookup[key] = entry
	c.nextID++
	c.opts.Metrics.RowConverted(c.opts.Name)
	return nil
}

// entryFor extracts the lookup entry and text payload of a row.
func (c *Converter) entryFor(row models.Row) (models.LookupEntry, string, error) {
	cols := c.opts.Columns
	docID, err := tabular.Field(row, cols.DocID)
	if err != nil {
		return models.LookupEntry{}, "", err
	}
	text, err := tabular.Field(row, cols.Text)
	if err != nil {
		return models.LookupEntry{}, "", err
	}

	entry := models.LookupEntry{DocID: docID}
	if cols.ElementID == "" {
		entry.Document = text
		return entry, text, nil
	}
	elementID, err := tabular.Field(row, cols.ElementID)
	if err != nil {
		return models.LookupEntry{}, "", err
	}
	entry.ElementID = elementID
	entry.Content = text
	return entry, text, nil
}

// rotate closes the current shard and opens the next one.
func (c *Converter) rotate() error {
	if c.shard != nil {
		shard := c.shard
		c.shard = nil
		if err := shard.close(); err != nil {
			return err
		}
	}
	path := filepath.Join(c.opts.OutputDir, ShardName(c.opts.ShardPrefix, c.shardIndex))
	shard, err := createShard(path)
	if err != nil {
		return err
	}
	c.shard = shard
	c.shards = append(c.shards, path)
	c.shardIndex++
	c.opts.Metrics.ShardOpened(c.opts.Name)
	return nil
}

// Convert is a convenience wrapper that builds a Converter for opts and
// runs it over src.
func Convert(ctx context.Context, src tabular.Reader, opts Options) (*Result, error) {
	conv, err := NewConverter(opts)
	if err != nil {
		return nil, err
	}
	return conv.Convert(ctx, src)
}
