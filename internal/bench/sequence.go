package bench

import "fmt"

// SequenceChecker enforces the ordering rules of a run's event stream:
// one start, total item_complete events with current increasing from 1,
// then exactly one terminal event.
type SequenceChecker struct {
	started  bool
	finished bool
	total    int
	current  int
}

// Check validates the next event against the events seen so far.
func (c *SequenceChecker) Check(event Event) error {
	if err := event.Validate(); err != nil {
		return err
	}
	if c.finished {
		return fmt.Errorf("event %s after terminal event", event.Type)
	}
	switch event.Type {
	case EventStart:
		if c.started {
			return fmt.Errorf("duplicate start event")
		}
		c.started = true
		c.total = event.Total
	case EventItemComplete:
		if !c.started {
			return fmt.Errorf("item_complete before start")
		}
		if event.Total != c.total {
			return fmt.Errorf("item_complete total %d does not match start total %d", event.Total, c.total)
		}
		if event.Current != c.current+1 {
			return fmt.Errorf("item_complete current %d, expected %d", event.Current, c.current+1)
		}
		c.current = event.Current
	case EventDone, EventRunComplete:
		if !c.started {
			return fmt.Errorf("%s before start", event.Type)
		}
		if c.current != c.total {
			return fmt.Errorf("%s after %d of %d items", event.Type, c.current, c.total)
		}
		c.finished = true
	case EventError:
		c.finished = true
	}
	return nil
}

// Finished reports whether a terminal event has been seen.
func (c *SequenceChecker) Finished() bool {
	return c.finished
}
