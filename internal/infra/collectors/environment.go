package collectors

import (
	"context"
	"os"
	"runtime"
	"time"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"
)

// CaptureEnvironment describes the host performing the capture.
func (s *Set) CaptureEnvironment(ctx context.Context) (*domain.CaptureEnvironment, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	zone, _ := time.Now().Zone()
	return &domain.CaptureEnvironment{
		Hostname:   hostname,
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		Runtime:    runtime.Version(),
		NumCPU:     runtime.NumCPU(),
		Timezone:   zone,
		ServiceTag: s.ServiceTag,
	}, nil
}
