package live

import (
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"qabench/internal/batch"
)

// queueSize bounds the messages waiting for the program. Updates beyond it
// are dropped; the next one redraws the affected row.
const queueSize = 256

// Controller feeds coordinator updates into a running live display.
// A nil Controller ignores every call.
type Controller struct {
	program *tea.Program

	mu     sync.Mutex
	queue  chan tea.Msg
	closed bool

	done chan struct{}
	err  error
}

// Start runs the display on w until Finish or Close.
func Start(w io.Writer, opts Options) *Controller {
	c := &Controller{
		program: tea.NewProgram(NewModel(opts), tea.WithOutput(w), tea.WithAltScreen()),
		queue:   make(chan tea.Msg, queueSize),
		done:    make(chan struct{}),
	}
	go func() {
		_, c.err = c.program.Run()
		close(c.done)
	}()
	go c.forward()
	return c
}

// forward hands queued messages to the program and quits once the queue is
// closed and drained.
func (c *Controller) forward() {
	for msg := range c.queue {
		c.program.Send(msg)
	}
	c.program.Quit()
}

// Begin shows a new batch.
func (c *Controller) Begin(request batch.Request) {
	c.enqueue(beginMsg{request: request})
}

// Observe forwards a coordinator update. It satisfies batch.Observer.
func (c *Controller) Observe(update batch.Update) {
	c.enqueue(updateMsg{update: update})
}

// Finish shows the final save state and stops the display.
func (c *Controller) Finish(result batch.Result) {
	c.enqueue(finishMsg{save: result.Save})
	c.Close()
}

// Close stops accepting updates. The display exits after the queued ones.
func (c *Controller) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.queue)
	}
}

// Wait blocks until the display has exited and returns its error.
func (c *Controller) Wait() error {
	if c == nil {
		return nil
	}
	<-c.done
	return c.err
}

func (c *Controller) enqueue(msg tea.Msg) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.queue <- msg:
	default:
	}
}
