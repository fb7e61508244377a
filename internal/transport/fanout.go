package transport

import "errors"

// Fanout sends every payload to all sinks.
type Fanout []Sink

// Send delivers payload to each sink and joins their errors.
func (f Fanout) Send(payload string) error {
	var errs []error
	for _, s := range f {
		if err := s.Send(payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
