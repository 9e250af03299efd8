// Package store persists run artifacts on the local filesystem using
// S3-style keys, so a bucket-backed implementation can slot in later.
package store

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"dynaconn/domain/connectivity"
	"dynaconn/domain/core"
	"dynaconn/internal"
	"dynaconn/internal/errors"
	"dynaconn/ports"
)

// Artifact key layout, relative to the store root. Every key lives under
// a per-run prefix so one run can be listed or purged atomically.

// RunPrefix is the key prefix holding every artifact of one run.
func RunPrefix(runID core.RunID) string {
	return fmt.Sprintf("runs/%s/", runID)
}

// ManifestKey locates the batch manifest of a run.
func ManifestKey(runID core.RunID) string {
	return fmt.Sprintf("runs/%s/manifest.json", runID)
}

// PhaseKey locates the areas x timepoints phase matrix of one subject.
func PhaseKey(runID core.RunID, subject int) string {
	return fmt.Sprintf("runs/%s/phases/subject_%d.csv.gz", runID, subject)
}

// CoherenceKey locates the areas x areas coherence matrix of one
// subject at one timepoint.
func CoherenceKey(runID core.RunID, subject, timepoint int) string {
	return fmt.Sprintf("runs/%s/dfc/subject_%d_time_%d.csv.gz", runID, subject, timepoint)
}

// TrajectoryKey locates the timepoints x featureLen trajectory of one
// subject under one reduction variant.
func TrajectoryKey(runID core.RunID, variant connectivity.Variant, subject int) string {
	return fmt.Sprintf("runs/%s/trajectory/%s/subject_%d.csv.gz", runID, variant, subject)
}

// SimilarityKey locates the timepoints x timepoints FCD matrix of one
// subject under one reduction variant.
func SimilarityKey(runID core.RunID, variant connectivity.Variant, subject int) string {
	return fmt.Sprintf("runs/%s/fcd/%s/subject_%d.csv.gz", runID, variant, subject)
}

// DiagnosticsKey locates per-fit reducer diagnostics. The kind segment
// comes from Diagnostics.Kind, e.g. "pca" or "lle".
func DiagnosticsKey(runID core.RunID, kind string, subject, timepoint int) string {
	return fmt.Sprintf("runs/%s/%s/subject_%d_time_%d.json", runID, kind, subject, timepoint)
}

// LocalStore implements ports.ArtifactStore on a local directory tree.
// Tables are written as gzip-compressed CSV when the key carries a .gz
// suffix, plain CSV otherwise. JSON payloads are stored indented.
type LocalStore struct {
	root string
	log  *internal.Logger
}

func NewLocalStore(root string, log *internal.Logger) (*LocalStore, error) {
	if log == nil {
		log = internal.DefaultLogger
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, errors.Persistence(root, err)
	}
	return &LocalStore{root: root, log: log.Tagged("store")}, nil
}

// Root returns the directory the store writes under.
func (s *LocalStore) Root() string {
	return s.root
}

// PutTable implements ports.ArtifactWriter.
func (s *LocalStore) PutTable(ctx context.Context, key string, table ports.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := EncodeTable(key, table)
	if err != nil {
		return errors.Persistence(key, err)
	}
	return s.writeBytes(key, data)
}

// PutJSON implements ports.ArtifactWriter.
func (s *LocalStore) PutJSON(ctx context.Context, key string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return errors.Persistence(key, err)
	}
	return s.writeBytes(key, append(data, '\n'))
}

// Open implements ports.ArtifactReader, returning the stored bytes as
// written. Compressed tables come back compressed.
func (s *LocalStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.keyToPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("artifact " + key)
		}
		return nil, errors.Persistence(key, err)
	}
	return f, nil
}

// List implements ports.ArtifactReader.
func (s *LocalStore) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var keys []string
	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := strings.ReplaceAll(rel, string(filepath.Separator), "/")
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Persistence(prefix, err)
	}

	sort.Strings(keys)
	return keys, nil
}

// ReadTable loads a stored table back into memory, decompressing when
// the key carries a .gz suffix.
func (s *LocalStore) ReadTable(ctx context.Context, key string) (ports.Table, error) {
	rc, err := s.Open(ctx, key)
	if err != nil {
		return ports.Table{}, err
	}
	defer rc.Close()

	var src io.Reader = rc
	if strings.HasSuffix(key, ".gz") {
		gz, err := gzip.NewReader(rc)
		if err != nil {
			return ports.Table{}, errors.Persistence(key, err)
		}
		defer gz.Close()
		src = gz
	}

	table, err := decodeCSV(src)
	if err != nil {
		return ports.Table{}, errors.Persistence(key, err)
	}
	return table, nil
}

func (s *LocalStore) writeBytes(key string, data []byte) error {
	path := s.keyToPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Persistence(key, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Persistence(key, err)
	}
	s.log.Trace("wrote %s (%d bytes)", key, len(data))
	return nil
}

func (s *LocalStore) keyToPath(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// EncodeTable serializes a table to the byte form its key implies:
// CSV, gzip-compressed when the key ends in .gz.
func EncodeTable(key string, table ports.Table) ([]byte, error) {
	if len(table.Values) != table.Rows*table.Cols {
		return nil, fmt.Errorf("table carries %d values for a %dx%d shape",
			len(table.Values), table.Rows, table.Cols)
	}

	var buf bytes.Buffer
	var dst io.Writer = &buf
	var gz *gzip.Writer
	if strings.HasSuffix(key, ".gz") {
		gz = gzip.NewWriter(&buf)
		dst = gz
	}
	if err := encodeCSV(dst, table); err != nil {
		return nil, err
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DecodeTable is the inverse of EncodeTable.
func DecodeTable(key string, data []byte) (ports.Table, error) {
	var src io.Reader = bytes.NewReader(data)
	if strings.HasSuffix(key, ".gz") {
		gz, err := gzip.NewReader(src)
		if err != nil {
			return ports.Table{}, err
		}
		defer gz.Close()
		src = gz
	}
	return decodeCSV(src)
}

// encodeCSV writes the table row-major with full float64 round-trip
// precision, so reading an artifact back reproduces the exact values.
func encodeCSV(w io.Writer, t ports.Table) error {
	bw := bufio.NewWriter(w)
	scratch := make([]byte, 0, 32)
	for r := 0; r < t.Rows; r++ {
		row := t.Values[r*t.Cols : (r+1)*t.Cols]
		for c, v := range row {
			if c > 0 {
				if err := bw.WriteByte(','); err != nil {
					return err
				}
			}
			scratch = strconv.AppendFloat(scratch[:0], v, 'g', -1, 64)
			if _, err := bw.Write(scratch); err != nil {
				return err
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func decodeCSV(r io.Reader) (ports.Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<24)

	var table ports.Table
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if table.Rows == 0 {
			table.Cols = len(fields)
		} else if len(fields) != table.Cols {
			return ports.Table{}, fmt.Errorf("row %d has %d columns, expected %d",
				table.Rows, len(fields), table.Cols)
		}
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return ports.Table{}, fmt.Errorf("row %d, column %d: %w", table.Rows, i, err)
			}
			table.Values = append(table.Values, v)
		}
		table.Rows++
	}
	if err := scanner.Err(); err != nil {
		return ports.Table{}, err
	}
	return table, nil
}
