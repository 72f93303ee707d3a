package main

import (
	"encoding/hex"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"github.com/chazu/jscore/pkg/bytecode"
	"github.com/chazu/jscore/pkg/store"
)

// loadChunk reads a chunk from a file, or from the cache when ref is a
// content hash that names no file.
func (o *options) loadChunk(ref string) (*bytecode.Chunk, error) {
	data, err := os.ReadFile(ref)
	if err == nil {
		chunk, err := bytecode.UnmarshalChunk(data)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding %s", ref)
		}
		return chunk, nil
	}
	if !os.IsNotExist(err) || !isHash(ref) || !o.cfg.Cache.Enabled {
		return nil, errors.Wrapf(err, "reading %s", ref)
	}

	cache, err := store.Open(o.cfg.CachePath())
	if err != nil {
		return nil, err
	}
	defer cache.Close()
	chunk, err := cache.Get(ref)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s from cache", ref)
	}
	log.Debugf("loaded %s from cache", ref[:12])
	return chunk, nil
}

func isHash(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}

// writeChunk encodes chunk to path, or to w when path is empty or "-".
// Binary output is never written to a terminal.
func writeChunk(chunk *bytecode.Chunk, path string, w io.Writer) error {
	data, err := bytecode.MarshalChunk(chunk)
	if err != nil {
		return err
	}
	if path != "" && path != "-" {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return errors.Wrapf(err, "writing %s", path)
		}
		log.Infof("wrote %s (%d bytes)", path, len(data))
		return nil
	}
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return errors.New("refusing to write binary chunk to a terminal; use --out")
	}
	_, err = w.Write(data)
	return err
}
