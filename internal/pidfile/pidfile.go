// Package pidfile keeps a single serve/run process per data directory, so
// two processes never upload the same batch or race on the state file.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// FileName is the PID file created inside the data directory.
const FileName = "iliassync.pid"

// AlreadyRunningError reports a live process holding the PID file.
type AlreadyRunningError struct {
	PID  int
	Path string
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("iliassync is already running (pid %d, %s)", e.PID, e.Path)
}

// File is an acquired PID file.
type File struct {
	path string
	pid  int
}

// Path возвращает путь к PID файлу в каталоге dir
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Acquire записывает PID текущего процесса. Файл, оставленный
// завершившимся процессом, перезаписывается.
func Acquire(dir string) (*File, error) {
	path := Path(dir)
	self := os.Getpid()

	if pid, err := Read(dir); err == nil && pid != self && IsRunning(pid) {
		return nil, &AlreadyRunningError{PID: pid, Path: path}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create PID directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", self)), 0600); err != nil {
		return nil, fmt.Errorf("failed to write PID file: %w", err)
	}

	return &File{path: path, pid: self}, nil
}

// Release удаляет PID файл, если он всё ещё принадлежит этому процессу
func (f *File) Release() error {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(data)) != fmt.Sprint(f.pid) {
		return nil
	}
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Read читает PID из файла
func Read(dir string) (int, error) {
	data, err := os.ReadFile(Path(dir))
	if err != nil {
		return 0, err
	}

	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0, err
	}

	return pid, nil
}

// IsRunning проверяет что процесс запущен
func IsRunning(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// Send signal 0 - проверяет существование процесса
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return false
	}

	return true
}
