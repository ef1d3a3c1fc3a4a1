package pipeline

import (
	"os"

	"github.com/spf13/afero"

	"github.com/kdeps/mediacmd/pkg/logging"
	"github.com/kdeps/mediacmd/pkg/messages"
)

// scratch tracks the files one acquisition creates. Intermediate files are
// always removed on release; outputs are only removed if the run failed.
type scratch struct {
	fs      afero.Fs
	logger  *logging.Logger
	files   []string
	outputs []string
	done    bool
}

func newScratch(fs afero.Fs, logger *logging.Logger) *scratch {
	return &scratch{fs: fs, logger: logger}
}

func (s *scratch) track(path string) {
	s.files = append(s.files, path, path+".tmp")
}

func (s *scratch) output(path string) {
	s.outputs = append(s.outputs, path)
}

// commit marks the run as successful so outputs survive release.
func (s *scratch) commit() {
	s.done = true
}

func (s *scratch) release() {
	paths := s.files
	if !s.done {
		paths = append(paths, s.outputs...)
	}
	for _, p := range paths {
		if err := s.fs.Remove(p); err != nil && !os.IsNotExist(err) {
			s.logger.Warn(messages.MsgScratchCleanupError, "path", p, "error", err)
		}
	}
}
