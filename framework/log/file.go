package log

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultPermission is the mode a new log file is created with when no
// permission is configured. Existing files keep their mode in that case.
const DefaultPermission os.FileMode = 0o644

// FileSink appends records at or above a minimum level to a file. The file is
// opened on the first record, so creating the sink never fails.
type FileSink struct {
	path      string
	level     logrus.Level
	perm      os.FileMode
	formatter logrus.Formatter

	mu   sync.Mutex
	file *os.File
}

// NewFileSink creates a sink writing to path. A non-zero perm is applied to
// the file when it is opened; zero leaves the mode alone.
func NewFileSink(path string, level logrus.Level, perm os.FileMode) *FileSink {
	return &FileSink{
		path:  path,
		level: level,
		perm:  perm,
		formatter: &logrus.TextFormatter{
			DisableColors:    true,
			FullTimestamp:    true,
			QuoteEmptyFields: true,
		},
	}
}

func (s *FileSink) Path() string        { return s.path }
func (s *FileSink) Level() logrus.Level { return s.level }

// Perm returns the configured permission, zero when none was given.
func (s *FileSink) Perm() os.FileMode { return s.perm }

// Levels returns the sink's level and every more severe one.
func (s *FileSink) Levels() []logrus.Level { return levelsFrom(s.level) }

// Fire formats entry and appends it to the file.
func (s *FileSink) Fire(entry *logrus.Entry) error {
	line, err := s.formatter.Format(entry)
	if err != nil {
		return errors.Wrap(err, "format log entry")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return errors.Wrapf(err, "create log dir for %s", s.path)
		}
		mode := s.perm
		if mode == 0 {
			mode = DefaultPermission
		}
		f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, mode) //nolint:gosec // path comes from configuration
		if err != nil {
			return errors.Wrapf(err, "open log file %s", s.path)
		}
		// the umask may have narrowed the mode on create
		if s.perm != 0 {
			if err := f.Chmod(s.perm); err != nil {
				_ = f.Close()
				return errors.Wrapf(err, "chmod log file %s", s.path)
			}
		}
		s.file = f
	}
	_, err = s.file.Write(line)
	return errors.Wrapf(err, "write log file %s", s.path)
}

// Close closes the file if it was opened.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
