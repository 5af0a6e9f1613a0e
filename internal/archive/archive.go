// Package archive unpacks downloaded payloads into per-asset directories.
//
// Supported formats are a closed set: adding one means adding a Kind and a
// matching unpack routine. The source archive is deleted only after a
// fully-successful extraction; on any failure it is left in place as the
// user's recovery path.
package archive

import (
	"archive/tar"
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// Kind identifies a supported archive format.
type Kind int

const (
	KindZip Kind = iota
	KindTarGz
	KindTar
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindZip:
		return "zip"
	case KindTarGz:
		return "tar.gz"
	case KindTar:
		return "tar"
	default:
		return "unknown"
	}
}

// ErrUnsafePath is returned when an archive entry would resolve outside the
// destination directory. Treated like a corrupt archive.
var ErrUnsafePath = errors.New("archive: entry escapes destination directory")

const dirPerm = 0o755

// Detect reports the archive kind for a file name, matching by extension.
func Detect(name string) (Kind, bool) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return KindZip, true
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return KindTarGz, true
	case strings.HasSuffix(lower, ".tar"):
		return KindTar, true
	default:
		return 0, false
	}
}

// Unpack extracts src into destDir, preserving entry paths and names
// (including non-ASCII) exactly. On full success the source archive is
// removed. On any error the archive stays on disk; partially extracted
// files may remain.
func Unpack(ctx context.Context, src, destDir string) error {
	kind, ok := Detect(src)
	if !ok {
		return fmt.Errorf("archive: unrecognized format: %s", filepath.Base(src))
	}

	if err := os.MkdirAll(destDir, dirPerm); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	var err error
	switch kind {
	case KindZip:
		err = unpackZip(ctx, src, destDir)
	case KindTarGz:
		err = unpackTar(ctx, src, destDir, true)
	case KindTar:
		err = unpackTar(ctx, src, destDir, false)
	}
	if err != nil {
		return err
	}

	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove archive: %w", err)
	}
	return nil
}

// entryPath validates an archive entry name and resolves it under destDir.
func entryPath(destDir, name string) (string, error) {
	clean := filepath.FromSlash(name)
	if filepath.IsAbs(clean) || !filepath.IsLocal(clean) {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, name)
	}
	return filepath.Join(destDir, clean), nil
}

func unpackZip(ctx context.Context, src, destDir string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if err := ctx.Err(); err != nil {
			return err
		}

		target, err := entryPath(destDir, f.Name)
		if err != nil {
			return err
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, dirPerm); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}
			continue
		}

		if err := writeZipEntry(f, target); err != nil {
			return fmt.Errorf("extract %q: %w", f.Name, err)
		}
	}
	return nil
}

func writeZipEntry(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return err
	}

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm()|0o200)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func unpackTar(ctx context.Context, src, destDir string, gzipped bool) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	var reader io.Reader = f
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("open gzip stream: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	tr := tar.NewReader(reader)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read tar header: %w", err)
		}

		target, err := entryPath(destDir, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, dirPerm); err != nil {
				return fmt.Errorf("create directory: %w", err)
			}
		case tar.TypeReg:
			if err := writeTarEntry(tr, hdr, target); err != nil {
				return fmt.Errorf("extract %q: %w", hdr.Name, err)
			}
		default:
			// Symlinks and specials could point anywhere; refuse rather
			// than guess.
			return fmt.Errorf("unsupported entry type %q: %q", hdr.Typeflag, hdr.Name)
		}
	}
}

func writeTarEntry(tr *tar.Reader, hdr *tar.Header, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), dirPerm); err != nil {
		return err
	}

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, hdr.FileInfo().Mode().Perm()|0o200)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, tr); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
