package bus

import (
	"sync/atomic"
	"testing"
)

func TestPublishReachesSubscribers(t *testing.T) {
	b := New()
	var hits int32
	b.Subscribe(TopicSessionState, func(e Event) {
		if e.Data.(string) != "open" || e.Source != "whatsapp" {
			t.Errorf("unexpected event %+v", e)
		}
		atomic.AddInt32(&hits, 1)
	})
	b.Subscribe(TopicSessionState, func(Event) { atomic.AddInt32(&hits, 1) })
	b.Subscribe(TopicMediaJobDone, func(Event) { t.Error("wrong topic delivered") })

	b.Publish(TopicSessionState, "whatsapp", "open")
	b.Wait()

	if got := atomic.LoadInt32(&hits); got != 2 {
		t.Errorf("hits = %d, want 2", got)
	}
}

func TestHandlerPanicIsContained(t *testing.T) {
	b := New()
	var ok int32
	b.Subscribe("x", func(Event) { panic("boom") })
	b.Subscribe("x", func(Event) { atomic.StoreInt32(&ok, 1) })

	b.Publish("x", "test", nil)
	b.Wait()

	if atomic.LoadInt32(&ok) != 1 {
		t.Error("second handler did not run")
	}
}
