package mockreport

import (
	"fmt"
	"testing"

	"github.com/golang/mock/gomock"
)

// NewController returns a gomock controller for mocks invoked off the test goroutine.
//
// Scripts are run from HTTP handler goroutines, where t.Fatalf would only stop the handler.
// The returned controller reports fatal failures as errors on t and panics to abort the handler.
func NewController(t *testing.T) *gomock.Controller {
	ctrl := gomock.NewController(GoroutineReporter(t))
	t.Cleanup(ctrl.Finish)
	return ctrl
}

// GoroutineReporter returns a reporter that works with multiple goroutines.
func GoroutineReporter(t *testing.T) gomock.TestReporter {
	return &goroutineReporter{T: t}
}

type goroutineReporter struct {
	T *testing.T
}

func (r goroutineReporter) Errorf(format string, args ...interface{}) {
	r.T.Errorf(format, args...)
}

func (r goroutineReporter) Fatalf(format string, args ...interface{}) {
	r.T.Errorf(format, args...)
	panic(fmt.Sprintf(format, args...))
}
