package main

import (
	"image"

	"github.com/LdDl/optflow-go/internal/pipeline"
)

// multiSink fans frames out to several sinks
type multiSink []pipeline.Sink

func (ms multiSink) Write(frame image.Image) error {
	for _, sink := range ms {
		if err := sink.Write(frame); err != nil {
			return err
		}
	}
	return nil
}

// Quit is true when any of sinks asks to stop
func (ms multiSink) Quit() bool {
	for _, sink := range ms {
		if q, ok := sink.(pipeline.Quitter); ok && q.Quit() {
			return true
		}
	}
	return false
}

func (ms multiSink) Close() error {
	var firstErr error
	for _, sink := range ms {
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
