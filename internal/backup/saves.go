package backup

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

type SaveFile struct {
	Name          string    `json:"name"`
	Size          int64     `json:"size"`
	SizeFormatted string    `json:"size_formatted"`
	Modified      time.Time `json:"modified"`
}

// ListSaves walks dir for .dat files, newest first. Unreadable entries are
// skipped and a missing directory lists as empty.
func ListSaves(dir string) []SaveFile {
	saves := []SaveFile{}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() && path != dir {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".dat") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		saves = append(saves, SaveFile{
			Name:          filepath.ToSlash(rel),
			Size:          info.Size(),
			SizeFormatted: humanize.IBytes(uint64(info.Size())),
			Modified:      info.ModTime().UTC(),
		})
		return nil
	})

	sort.SliceStable(saves, func(i, j int) bool {
		return saves[i].Modified.After(saves[j].Modified)
	})
	return saves
}
