package events

// Event type constants for kelindar/event.
const (
	TypePipelineStarted uint32 = iota + 1
	TypePipelineLive
	TypePipelineExited
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// PipelineStartedEvent fires when the capture pipeline has been launched.
type PipelineStartedEvent struct {
	Camera     string
	DevicePath string
	Pgid       int
}

// Type returns the event type identifier for PipelineStartedEvent.
func (e PipelineStartedEvent) Type() uint32 { return TypePipelineStarted }

// PipelineLiveEvent fires when the liveness monitor observes changing bytes
// on the output device, meaning frames are flowing.
type PipelineLiveEvent struct {
	Camera     string
	DevicePath string
}

// Type returns the event type identifier for PipelineLiveEvent.
func (e PipelineLiveEvent) Type() uint32 { return TypePipelineLive }

// PipelineExitedEvent fires when the capture pipeline terminates.
type PipelineExitedEvent struct {
	ExitCode int
}

// Type returns the event type identifier for PipelineExitedEvent.
func (e PipelineExitedEvent) Type() uint32 { return TypePipelineExited }
