package mapview

import (
	"fmt"
	"strings"

	"github.com/joeblew999/firecaster/internal/prediction"
	"github.com/joeblew999/firecaster/internal/style"
)

// EventKind is a pointer interaction on a feature.
type EventKind string

const (
	PointerEnter EventKind = "pointerenter"
	PointerLeave EventKind = "pointerleave"
	Click        EventKind = "click"
)

// ParseEventKind accepts the wire names plus the mouse aliases.
func ParseEventKind(s string) (EventKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pointerenter", "mouseover", "mouseenter":
		return PointerEnter, nil
	case "pointerleave", "mouseout", "mouseleave":
		return PointerLeave, nil
	case "click":
		return Click, nil
	}
	return "", fmt.Errorf("unknown event kind %q", s)
}

// Event is delivered to the handlers of a feature layer.
type Event struct {
	Kind  EventKind
	Layer *FeatureLayer
}

// Handler reacts to a feature event.
type Handler func(Event)

// FeatureLayer is the rendered form of one prediction feature.
type FeatureLayer struct {
	Feature prediction.Feature

	style    style.Style
	handlers map[EventKind][]Handler
}

// NewFeatureLayer creates a layer styled with the base style of its score.
func NewFeatureLayer(f prediction.Feature) *FeatureLayer {
	return &FeatureLayer{
		Feature:  f,
		style:    style.For(f.Score),
		handlers: make(map[EventKind][]Handler),
	}
}

// ID is the track id of the feature.
func (l *FeatureLayer) ID() string { return l.Feature.TrackID }

// Style is the currently applied style.
func (l *FeatureLayer) Style() style.Style { return l.style }

// SetStyle replaces the applied style.
func (l *FeatureLayer) SetStyle(s style.Style) { l.style = s }

// On subscribes h to kind.
func (l *FeatureLayer) On(kind EventKind, h Handler) {
	l.handlers[kind] = append(l.handlers[kind], h)
}

// Emit delivers an event of kind to the subscribed handlers in order.
// It reports whether any handler ran.
func (l *FeatureLayer) Emit(kind EventKind) bool {
	hs := l.handlers[kind]
	for _, h := range hs {
		h(Event{Kind: kind, Layer: l})
	}
	return len(hs) > 0
}

// Off drops all handlers.
func (l *FeatureLayer) Off() {
	l.handlers = make(map[EventKind][]Handler)
}
