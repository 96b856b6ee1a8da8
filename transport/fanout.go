package transport

import "errors"

type fanout []Sink

// Fanout composes sinks into one: every packet is offered to every
// sink, and the errors of failing sinks are joined. A failing sink
// never stops delivery to the others.
func Fanout(sinks ...Sink) Sink {
	return fanout(sinks)
}

func (f fanout) Send(p []byte) error {
	var errs []error
	for _, s := range f {
		if err := s.Send(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
