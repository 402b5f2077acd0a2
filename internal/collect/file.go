package collect

import (
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/watchtower/internal/model"
)

// FileSource reads a JSON document of readings keyed by indicator name.
// Useful for manual data entry and for replaying recorded polls.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource for the given path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name returns the source identifier for logging.
func (s *FileSource) Name() string { return "file:" + s.path }

// Fetch reads and decodes the file. The file is re-read on every poll so
// edits take effect on the next cycle.
func (s *FileSource) Fetch(_ context.Context) (map[string]*model.Reading, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, eris.Wrapf(err, "collect: read %s", s.path)
	}

	var readings map[string]*model.Reading
	if err := json.Unmarshal(data, &readings); err != nil {
		return nil, eris.Wrapf(err, "collect: decode %s", s.path)
	}

	// Backfill names from map keys so files may omit the redundant field.
	for name, r := range readings {
		if r != nil && r.Name == "" {
			r.Name = name
		}
	}
	return readings, nil
}
