package events_test

import (
	"testing"
	"time"

	"github.com/ardanlabs/blockcache/foundation/events"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Parse(t *testing.T) {
	type table struct {
		name   string
		msg    string
		source string
		text   string
	}

	tt := []table{
		{name: "component", msg: "loading: sweep: aged[1]", source: "loading", text: "sweep: aged[1]"},
		{name: "bare", msg: "started", source: "cache", text: "started"},
	}

	t.Log("Given the need to turn handler messages into events.")
	{
		now := time.Unix(1_700_000_000, 0)

		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen handling a %s message.", testID, tst.name)
			{
				f := func(t *testing.T) {
					e := events.Parse(tst.msg, now)
					if e.Source != tst.source || e.Message != tst.text || !e.Time.Equal(now) {
						t.Fatalf("\t%s\tTest %d:\tShould split the message: %+v", failed, testID, e)
					}
					t.Logf("\t%s\tTest %d:\tShould split the message.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_SendAcquireRelease(t *testing.T) {
	t.Log("Given the need to fan events out to receivers.")
	{
		evts := events.New()

		ch1 := evts.Acquire("1")
		ch2 := evts.Acquire("2")
		if evts.Acquire("1") != ch1 {
			t.Fatalf("\t%s\tShould get back the same channel for the same id.", failed)
		}
		t.Logf("\t%s\tShould get back the same channel for the same id.", success)

		e := events.Event{Source: "loading", Message: "sweep", Time: time.Now()}
		evts.Send(e)

		for i, ch := range []chan events.Event{ch1, ch2} {
			select {
			case got := <-ch:
				if got.Source != e.Source || got.Message != e.Message {
					t.Fatalf("\t%s\tShould receive the event on channel %d: %+v", failed, i, got)
				}
			default:
				t.Fatalf("\t%s\tShould receive the event on channel %d.", failed, i)
			}
		}
		t.Logf("\t%s\tShould receive the event on every channel.", success)

		if err := evts.Release("1"); err != nil {
			t.Fatalf("\t%s\tShould be able to release a channel: %v", failed, err)
		}
		if _, open := <-ch1; open {
			t.Fatalf("\t%s\tShould close a released channel.", failed)
		}
		if err := evts.Release("1"); err == nil {
			t.Fatalf("\t%s\tShould not be able to release a channel twice.", failed)
		}
		t.Logf("\t%s\tShould close a released channel once.", success)

		evts.Shutdown()
		if _, open := <-ch2; open || evts.Len() != 0 {
			t.Fatalf("\t%s\tShould close every channel on shutdown.", failed)
		}
		t.Logf("\t%s\tShould close every channel on shutdown.", success)
	}
}
