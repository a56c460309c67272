package opener

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/colligo/internal/interfaces"
)

// Service implements OpenerService by handing the path to the platform's
// file manager.
type Service struct {
	logger arbor.ILogger
}

// Compile-time assertion
var _ interfaces.OpenerService = (*Service)(nil)

// NewService creates a new opener service
func NewService(logger arbor.ILogger) interfaces.OpenerService {
	return &Service{logger: logger}
}

// Open reveals the path with the system handler. Files are selected in
// their containing folder where the platform supports it.
func (s *Service) Open(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %s", path)
	}

	cmd := openCommand(runtime.GOOS, path, info.IsDir())
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	s.logger.Debug().Str("path", path).Msg("Opened path with system handler")
	return nil
}

func openCommand(goos, path string, isDir bool) *exec.Cmd {
	switch goos {
	case "darwin":
		return exec.Command("open", path)
	case "windows":
		if isDir {
			return exec.Command("explorer", path)
		}
		return exec.Command("explorer", "/select,"+path)
	default:
		return exec.Command("xdg-open", path)
	}
}
