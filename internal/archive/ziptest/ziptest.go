// Package ziptest builds zip archives for tests.
package ziptest

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"hash/crc32"
	"io"
	"strings"
	"testing"
)

// File is one archive entry. A Name ending in "/" is a directory.
type File struct {
	Name string
	Body string
}

// Build returns a deflated zip holding files in order. Sizes and CRC are
// written in each local header, so the archive can be read as a stream.
func Build(t testing.TB, files ...File) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		fh := &zip.FileHeader{Name: f.Name, Method: zip.Store}
		var data []byte
		if !strings.HasSuffix(f.Name, "/") {
			var comp bytes.Buffer
			fw, err := flate.NewWriter(&comp, flate.DefaultCompression)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := io.WriteString(fw, f.Body); err != nil {
				t.Fatal(err)
			}
			if err := fw.Close(); err != nil {
				t.Fatal(err)
			}
			fh.Method = zip.Deflate
			fh.CRC32 = crc32.ChecksumIEEE([]byte(f.Body))
			fh.UncompressedSize64 = uint64(len(f.Body))
			fh.CompressedSize64 = uint64(comp.Len())
			data = comp.Bytes()
		}
		w, err := zw.CreateRaw(fh)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// BuildWithDescriptors returns a zip as archive/zip.Writer.Create writes it:
// file sizes follow the data in a data descriptor and the local header
// records zero.
func BuildWithDescriptors(t testing.TB, files ...File) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.Name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := io.WriteString(w, f.Body); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
