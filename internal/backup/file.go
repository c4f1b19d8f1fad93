package backup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/mesh-intelligence/organigrama/internal/atomicfile"
)

// CompressedExt is appended to the file name of compressed downloads.
const CompressedExt = ".zst"

// timestampLayout renders a UTC time with ':' and '.' made file-name safe,
// without fractional seconds.
const timestampLayout = "2006-01-02T15-04-05"

var (
	zstdMagic   = []byte{0x28, 0xb5, 0x2f, 0xfd}
	unsafeChars = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)
)

// Filename suggests a file name for doc: organigrama_backup_<ts>.json, or
// organigrama_<workspace>_<ts>.json for single-workspace exports.
func Filename(doc *Document, at time.Time) string {
	ts := at.UTC().Format(timestampLayout)
	if doc.IsWorkspaceExport && doc.WorkspaceName != "" {
		return fmt.Sprintf("organigrama_%s_%s.json", sanitize(doc.WorkspaceName), ts)
	}
	return fmt.Sprintf("organigrama_backup_%s.json", ts)
}

func sanitize(name string) string {
	s := strings.Trim(unsafeChars.ReplaceAllString(strings.TrimSpace(name), "_"), "_")
	if s == "" {
		return "workspace"
	}
	return s
}

// Marshal renders doc as indented JSON.
func Marshal(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding backup: %w", err)
	}
	return append(data, '\n'), nil
}

// DownloadOptions controls Download.
type DownloadOptions struct {
	// Compress writes a zstd stream and appends CompressedExt to the name.
	Compress bool
	// Now stamps the file name. Zero means time.Now.
	Now time.Time
}

// Download writes doc into dir under its suggested file name and returns
// the path written. The file appears atomically.
func Download(dir string, doc *Document, opts DownloadOptions) (string, error) {
	data, err := Marshal(doc)
	if err != nil {
		return "", err
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	name := Filename(doc, now)
	if opts.Compress {
		name += CompressedExt
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export dir: %w", err)
	}
	path := filepath.Join(dir, name)

	err = atomicfile.Write(path, 0o644, func(w io.Writer) error {
		if !opts.Compress {
			_, err := w.Write(data)
			return err
		}
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return fmt.Errorf("creating encoder: %w", err)
		}
		if _, err := enc.Write(data); err != nil {
			enc.Close()
			return fmt.Errorf("compressing: %w", err)
		}
		return enc.Close()
	})
	if err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}

// ReadFile reads a backup file, decompressing it when it is a zstd stream.
func ReadFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !bytes.HasPrefix(raw, zstdMagic) {
		return raw, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("creating decoder: %w", err)
	}
	defer dec.Close()
	out, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("decompressing %s: %w", path, err)
	}
	return out, nil
}
