package supervisor

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/frahmantamala/gameserver-admin/internal"
)

const (
	LogTypeGame   = "game"
	LogTypeLoader = "loader"

	DefaultLogLines = 100
	MaxLogLines     = 5000
)

type LogTail struct {
	Type  string   `json:"type"`
	Found bool     `json:"found"`
	Lines []string `json:"lines"`
	Logs  string   `json:"logs"`
}

// Logs returns the last lines of the game log or the mod loader log.
func (s *Supervisor) Logs(kind string, lines int) (*LogTail, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	var path string
	switch kind {
	case "", LogTypeGame:
		kind, path = LogTypeGame, s.cfg.LogFile
	case LogTypeLoader, "bepinex":
		kind, path = LogTypeLoader, s.cfg.LoaderLogFile
	default:
		return nil, internal.NewValidationFieldError("type", "type must be game or loader", internal.ErrCodeValidationFailed)
	}
	if lines <= 0 {
		lines = DefaultLogLines
	}
	if lines > MaxLogLines {
		lines = MaxLogLines
	}

	tail, err := TailFile(path, lines)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &LogTail{Type: kind, Lines: []string{}}, nil
		}
		return nil, internal.NewInternalError("failed to read log file", err)
	}
	return &LogTail{Type: kind, Found: true, Lines: tail, Logs: strings.Join(tail, "\n")}, nil
}

const tailChunk = 64 * 1024

// TailFile reads backwards from the end of the file until it has n lines.
func TailFile(path string, n int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	var (
		buf []byte
		pos = info.Size()
	)
	for pos > 0 && bytes.Count(buf, []byte{'\n'}) <= n {
		size := int64(tailChunk)
		if pos < size {
			size = pos
		}
		pos -= size
		chunk := make([]byte, size)
		if _, err := f.ReadAt(chunk, pos); err != nil && err != io.EOF {
			return nil, err
		}
		buf = append(chunk, buf...)
	}

	text := strings.TrimRight(strings.ReplaceAll(string(buf), "\r\n", "\n"), "\n")
	if text == "" {
		return []string{}, nil
	}
	all := strings.Split(text, "\n")
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all, nil
}
