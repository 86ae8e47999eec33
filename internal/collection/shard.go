package collection

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/haasonsaas/nqbench/pkg/models"
)

// ShardName returns the file name of a shard: prefix followed by the
// two-digit zero-padded shard index.
func ShardName(prefix string, index int) string {
	return fmt.Sprintf("%s%02d.json", prefix, index)
}

// shardWriter owns one open shard file.
type shardWriter struct {
	path string
	file *os.File
	buf  *bufio.Writer
	enc  *json.Encoder
	n    int
}

// createShard truncates or creates the shard file at path.
func createShard(path string) (*shardWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create shard %s: %w", filepath.Base(path), err)
	}
	buf := bufio.NewWriter(f)
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &shardWriter{path: path, file: f, buf: buf, enc: enc}, nil
}

// write appends one record followed by a newline.
func (s *shardWriter) write(rec models.OutputRecord) error {
	if err := s.enc.Encode(rec); err != nil {
		return fmt.Errorf("write shard %s: %w", filepath.Base(s.path), err)
	}
	s.n++
	return nil
}

// close flushes buffered records and closes the file. The file is closed
// even when the flush fails.
func (s *shardWriter) close() error {
	flushErr := s.buf.Flush()
	closeErr := s.file.Close()
	if flushErr != nil {
		return fmt.Errorf("flush shard %s: %w", filepath.Base(s.path), flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close shard %s: %w", filepath.Base(s.path), closeErr)
	}
	return nil
}
