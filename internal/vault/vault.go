// Package vault is the document repository: a folder of markdown notes
// and canvas files on local disk.
package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"canvas-rag-be/internal/pkg/logger"
	"canvas-rag-be/pkg/canvas"
	"canvas-rag-be/pkg/search"

	"github.com/patrickmn/go-cache"
)

var ErrInvalidPath = errors.New("invalid vault path")

// Vault reads and writes documents addressed by slash separated paths
// relative to its root.
type Vault struct {
	root   string
	cache  *cache.Cache
	logger logger.ILogger
}

// Ensure Vault satisfies the search corpus contract
var _ search.Corpus = &Vault{}

func New(root string, logger logger.ILogger) (*Vault, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve vault root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open vault: %s is not a directory", abs)
	}

	// Entries are keyed by path and modification time, so a stale entry
	// is simply never read again and expires on its own.
	c := cache.New(30*time.Minute, 10*time.Minute)
	return &Vault{root: abs, cache: c, logger: logger}, nil
}

func (v *Vault) Root() string { return v.root }

// resolve maps a vault path to an absolute file path. Leading ".."
// segments are clamped at the root.
func (v *Vault) resolve(p string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	if clean == "/" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	full := filepath.Join(v.root, filepath.FromSlash(clean))
	rel, err := filepath.Rel(v.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return full, nil
}

// Normalize returns the canonical vault form of p.
func Normalize(p string) string {
	return strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(p, "\\", "/")), "/")
}

func (v *Vault) Read(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	full, err := v.resolve(p)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", p, err)
	}
	return string(data), nil
}

// Exists reports whether p names a regular file.
func (v *Vault) Exists(p string) bool {
	full, err := v.resolve(p)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && info.Mode().IsRegular()
}

// Write creates or overwrites p, creating parent folders as needed.
func (v *Vault) Write(ctx context.Context, p string, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := v.resolve(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create folder for %s: %w", p, err)
	}
	if err := writeAtomic(full, []byte(content)); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

// Remove deletes the document at p. A missing document is not an error.
func (v *Vault) Remove(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := v.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", p, err)
	}
	return nil
}

func (v *Vault) EnsureFolder(ctx context.Context, p string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := v.resolve(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(full, 0o755); err != nil {
		return fmt.Errorf("create folder %s: %w", p, err)
	}
	return nil
}

// List enumerates every markdown document in lexical path order. Hidden
// folders (.git, .obsidian, .trash) are skipped.
func (v *Vault) List(ctx context.Context) ([]string, error) {
	var out []string
	err := filepath.WalkDir(v.root, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			if full == v.root {
				return err
			}
			v.debug("Skipping unreadable entry", map[string]interface{}{"path": full, "error": err.Error()})
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if full != v.root && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(d.Name()), ".md") {
			return nil
		}
		rel, err := filepath.Rel(v.root, full)
		if err != nil {
			return nil
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list vault: %w", err)
	}
	return out, nil
}

// Documents implements search.Corpus.
func (v *Vault) Documents(ctx context.Context) ([]string, error) {
	return v.List(ctx)
}

// Metadata returns the structured signals of p, served from cache while
// the file is unchanged.
func (v *Vault) Metadata(ctx context.Context, p string) (search.Metadata, bool) {
	full, err := v.resolve(p)
	if err != nil {
		return search.Metadata{}, false
	}
	info, err := os.Stat(full)
	if err != nil {
		return search.Metadata{}, false
	}

	key := fmt.Sprintf("%s|%d|%d", full, info.ModTime().UnixNano(), info.Size())
	if x, found := v.cache.Get(key); found {
		return x.(search.Metadata), true
	}

	data, err := os.ReadFile(full)
	if err != nil {
		v.debug("Metadata read failed", map[string]interface{}{"path": p, "error": err.Error()})
		return search.Metadata{}, false
	}
	meta := ParseMetadata(data)
	v.cache.Set(key, meta, cache.DefaultExpiration)
	return meta, true
}

// ReadCanvas loads and parses the canvas document at p.
func (v *Vault) ReadCanvas(ctx context.Context, p string) (*canvas.Graph, error) {
	content, err := v.Read(ctx, p)
	if err != nil {
		return nil, err
	}
	g, err := canvas.Parse([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("canvas %s: %w", p, err)
	}
	return g, nil
}

// WriteCanvas rewrites the canvas document at p in full.
func (v *Vault) WriteCanvas(ctx context.Context, p string, g *canvas.Graph) error {
	data, err := g.Marshal()
	if err != nil {
		return fmt.Errorf("encode canvas %s: %w", p, err)
	}
	return v.Write(ctx, p, string(data))
}

func (v *Vault) debug(message string, details map[string]interface{}) {
	if v.logger != nil {
		v.logger.Debug("VAULT", message, details)
	}
}

// writeAtomic replaces full through a temp file in the same folder so
// readers never observe a partial document.
func writeAtomic(full string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(full), "."+filepath.Base(full)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, full)
}
