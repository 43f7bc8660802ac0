package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Dataset adds the dataset id.
func Dataset(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("dataset", id)
	}
}

// Chart adds the chart purpose.
func Chart(purpose string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("chart", purpose)
	}
}

// Path adds a filesystem path.
func Path(p string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("path", p)
	}
}

// Rows adds a row count.
func Rows(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("rows", n)
	}
}

func RequestID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("request_id", id)
	}
}

func Method(m string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("method", m)
	}
}

func Route(r string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("route", r)
	}
}

func Status(code int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("status", code)
	}
}

// Addr adds a listen address.
func Addr(a string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("addr", a)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// ErrorField adds an error field. A nil error adds nothing.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}
