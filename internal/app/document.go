package app

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/emoted/internal/charset"
	"github.com/dshills/emoted/internal/engine/buffer"
	"golang.org/x/text/encoding"
)

// open loads path into the editor, decoding it from the configured
// encoding. A missing file starts an empty buffer that is created on the
// first save.
func (a *App) open(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		a.editor.Reset(buffer.NewBuffer(buffer.WithReadOnly(a.cfg.ReadOnly)))
		a.path = path
		a.logger.Info().Str("path", path).Msg("new file")
		return nil
	}
	if err != nil {
		return &FileError{Op: "open", Path: path, Err: err}
	}

	text, err := charset.Decode(data, a.enc)
	if err != nil {
		return &FileError{Op: "open", Path: path, Err: err}
	}
	buf, err := buffer.NewBufferFromReader(strings.NewReader(text), buffer.WithReadOnly(a.cfg.ReadOnly))
	if err != nil {
		return &FileError{Op: "open", Path: path, Err: err}
	}
	a.editor.Reset(buf)
	a.path = path
	a.logger.Info().Str("path", path).Str("encoding", a.encName).Int("runes", buf.Len()).Msg("opened file")
	return nil
}

// Save encodes the buffer and writes it to its file through a temporary
// file in the same directory, so a failed write leaves the old content in
// place.
func (a *App) Save() error {
	if a.path == "" {
		return ErrNoFilePath
	}
	buf := a.editor.Buffer()
	if buf.ReadOnly() {
		return ErrReadOnly
	}

	mode := fs.FileMode(0o644)
	if info, err := os.Stat(a.path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(a.path), "."+filepath.Base(a.path)+".*")
	if err != nil {
		return &FileError{Op: "save", Path: a.path, Err: err}
	}
	defer os.Remove(tmp.Name())

	w := charset.NewWriter(tmp, a.enc)
	if _, err := buf.WriteTo(w); err != nil {
		tmp.Close()
		return &FileError{Op: "save", Path: a.path, Err: err}
	}
	if err := w.Close(); err != nil {
		tmp.Close()
		return &FileError{Op: "save", Path: a.path, Err: err}
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return &FileError{Op: "save", Path: a.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &FileError{Op: "save", Path: a.path, Err: err}
	}
	if err := os.Rename(tmp.Name(), a.path); err != nil {
		return &FileError{Op: "save", Path: a.path, Err: err}
	}

	buf.MarkSaved()
	a.logger.Info().Str("path", a.path).Msg("saved file")
	return nil
}

// SaveAs makes path the document's file and saves it in the named
// encoding. An empty encoding keeps the current one. On failure the
// document keeps its previous file and encoding.
func (a *App) SaveAs(path, encName string) error {
	enc, encName, err := a.lookupEncoding(encName)
	if err != nil {
		return &FileError{Op: "save", Path: path, Err: err}
	}

	oldPath, oldEnc, oldName := a.path, a.enc, a.encName
	a.path, a.enc, a.encName = path, enc, encName
	if err := a.Save(); err != nil {
		a.path, a.enc, a.encName = oldPath, oldEnc, oldName
		return err
	}
	return nil
}

// OpenFile replaces the buffer with the file at path, decoded from the
// named encoding. An empty encoding keeps the current one. On failure the
// current document stays.
func (a *App) OpenFile(path, encName string) error {
	enc, encName, err := a.lookupEncoding(encName)
	if err != nil {
		return &FileError{Op: "open", Path: path, Err: err}
	}

	oldEnc, oldName := a.enc, a.encName
	a.enc, a.encName = enc, encName
	if err := a.open(path); err != nil {
		a.enc, a.encName = oldEnc, oldName
		return err
	}
	return nil
}

func (a *App) lookupEncoding(name string) (encoding.Encoding, string, error) {
	if name == "" {
		return a.enc, a.encName, nil
	}
	enc, err := charset.Lookup(name)
	if err != nil {
		return nil, "", err
	}
	return enc, name, nil
}

// Encoding returns the name of the document's encoding.
func (a *App) Encoding() string {
	return a.encName
}

// Path returns the file being edited, or "" for a scratch buffer.
func (a *App) Path() string {
	return a.path
}
