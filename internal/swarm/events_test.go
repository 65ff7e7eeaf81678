package swarm

import (
	"testing"
	"time"
)

func TestEventEmitter_Delivers(t *testing.T) {
	emitter := NewEventEmitter(4)
	emitter.Emit(Event{Type: EventTaskQueued, TaskID: "t1"})

	select {
	case ev := <-emitter.Events():
		if ev.Type != EventTaskQueued || ev.TaskID != "t1" {
			t.Errorf("got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestEventEmitter_DropsWhenFull(t *testing.T) {
	emitter := NewEventEmitter(1)
	emitter.Emit(Event{Type: EventTaskQueued})
	emitter.Emit(Event{Type: EventTaskQueued}) // no reader, buffer full

	if got := emitter.DroppedCount(); got != 1 {
		t.Errorf("dropped = %d, want 1", got)
	}
}
