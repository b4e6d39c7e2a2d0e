package resources

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Resolver maps logical resource names onto absolute paths under a
// configurable root (RESOURCES_DIR). Absolute paths pass through untouched:
// the request layer is allowed to point anywhere it can read.
type Resolver struct {
	Root string
}

// NewResolver builds a resolver from RESOURCES_DIR (default "resources").
func NewResolver() *Resolver {
	root := os.Getenv("RESOURCES_DIR")
	if root == "" {
		root = "resources"
	}
	return &Resolver{Root: root}
}

// EnsureDirs создает стандартные подпапки ресурсов, если их нет.
func (r *Resolver) EnsureDirs() error {
	for _, d := range []string{r.ImagesDir(), r.MusicDir(), r.VideosDir(), r.TimelinesDir()} {
		if err := os.MkdirAll(d, 0755); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) ImagesDir() string { return filepath.Join(r.Root, "images") }
func (r *Resolver) MusicDir() string  { return filepath.Join(r.Root, "music") }
func (r *Resolver) VideosDir() string { return filepath.Join(r.Root, "videos") }

func (r *Resolver) TimelinesDir() string { return filepath.Join(r.Root, "timelines") }

// ResolveImage resolves a timeline image reference. A possible "#page"
// suffix is preserved.
func (r *Resolver) ResolveImage(name string) string {
	return r.resolve(name, r.ImagesDir())
}

// ResolveMusic resolves a background music reference.
func (r *Resolver) ResolveMusic(name string) string {
	return r.resolve(name, r.MusicDir())
}

func (r *Resolver) resolve(name, dir string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// FindVideo locates a rendered video by id fragment under the videos root,
// the way the download endpoint addresses results.
func (r *Resolver) FindVideo(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, "/\\") {
		return "", fmt.Errorf("некорректный идентификатор видео: %q", id)
	}

	var found string
	err := filepath.WalkDir(r.VideosDir(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || found != "" {
			return nil
		}
		name := d.Name()
		if strings.HasSuffix(name, ".mp4") && strings.Contains(name, id) {
			found = path
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if found == "" {
		return "", fmt.Errorf("видео %s не найдено", id)
	}
	return found, nil
}
