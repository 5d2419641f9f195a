package epoch

import "testing"

func TestManagerStartsAtOpen(t *testing.T) {
	m := NewManager(360)
	if m.Phase() != PhaseOpen {
		t.Fatalf("got %v want open", m.Phase())
	}
	if m.CurrentEpoch() != 0 {
		t.Fatalf("got %v want 0", m.CurrentEpoch())
	}
}

func TestAdvanceBlockComputesEpochNumber(t *testing.T) {
	m := NewManager(360)
	m.AdvanceBlock(360)
	if m.CurrentEpoch() != 1 {
		t.Fatalf("got %v want 1", m.CurrentEpoch())
	}
	m.AdvanceBlock(720)
	if m.CurrentEpoch() != 2 {
		t.Fatalf("got %v want 2", m.CurrentEpoch())
	}
}

func TestAdvanceBlockPhaseBoundaries(t *testing.T) {
	m := NewManager(100)

	m.AdvanceBlock(10)
	if m.Phase() != PhaseOpen {
		t.Fatalf("at 10%%: got %v want open", m.Phase())
	}

	m.AdvanceBlock(60)
	if m.Phase() != PhaseScoring {
		t.Fatalf("at 60%%: got %v want scoring", m.Phase())
	}

	m.AdvanceBlock(80)
	if m.Phase() != PhaseCommitting {
		t.Fatalf("at 80%%: got %v want committing", m.Phase())
	}
}

func TestAdvanceBlockReturnsPrevState(t *testing.T) {
	m := NewManager(100)
	m.AdvanceBlock(60)
	prevEpoch, prevPhase := m.AdvanceBlock(200)
	if prevEpoch != 0 {
		t.Fatalf("got %v want 0", prevEpoch)
	}
	if prevPhase != PhaseScoring {
		t.Fatalf("got %v want scoring", prevPhase)
	}
	if m.CurrentEpoch() != 2 {
		t.Fatalf("got %v want 2", m.CurrentEpoch())
	}
}

func TestBroadcasterFanOut(t *testing.T) {
	b := NewBroadcaster()
	ch1, unsub1 := b.Subscribe()
	ch2, unsub2 := b.Subscribe()
	defer unsub1()
	defer unsub2()

	if b.SubscriberCount() != 2 {
		t.Fatalf("got %d want 2", b.SubscriberCount())
	}

	b.Publish(Event{Kind: EventEpochBoundary, Epoch: 1, Block: 360})

	ev1 := <-ch1
	ev2 := <-ch2
	if ev1.Epoch != 1 || ev2.Epoch != 1 {
		t.Fatalf("expected both subscribers to receive the event")
	}
}

func TestBroadcasterDropsOldestWhenFull(t *testing.T) {
	b := NewBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	for i := 0; i < subscriberBufferSize+5; i++ {
		b.Publish(Event{Kind: EventEpochBoundary, Epoch: uint64(i)})
	}

	// Should not block or panic; the channel should hold the most recent events.
	last := Event{}
	count := 0
	for {
		select {
		case ev := <-ch:
			last = ev
			count++
		default:
			goto done
		}
	}
done:
	if count == 0 {
		t.Fatal("expected at least one buffered event")
	}
	if last.Epoch != uint64(subscriberBufferSize+4) {
		t.Fatalf("expected the most recent event to survive, got epoch %d", last.Epoch)
	}
}

func TestBroadcasterUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster()
	ch, unsub := b.Subscribe()
	unsub()
	if b.SubscriberCount() != 0 {
		t.Fatalf("got %d want 0", b.SubscriberCount())
	}
	if _, ok := <-ch; ok {
		t.Fatal("expected channel to be closed after unsubscribe")
	}
}

func TestSchedulerAdvanceBlockPublishesBoundaryAndPhase(t *testing.T) {
	m := NewManager(4)
	b := NewBroadcaster()
	ch, unsub := b.Subscribe()
	defer unsub()

	s := NewScheduler(4, 0, m, b)

	for i := 0; i < 4; i++ {
		s.AdvanceBlock()
	}

	sawPhase := false
	sawBoundary := false
	for i := 0; i < 4; i++ {
		select {
		case ev := <-ch:
			switch ev.Kind {
			case EventPhaseChanged:
				sawPhase = true
			case EventEpochBoundary:
				sawBoundary = true
			}
		default:
		}
	}
	if !sawPhase {
		t.Error("expected at least one phase-changed event")
	}
	if !sawBoundary {
		t.Error("expected an epoch-boundary event at block 4")
	}
}
