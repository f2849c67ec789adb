package logging

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestWithCorrelationIDRoundTrip(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "abc-123")
	if got := CorrelationID(ctx); got != "abc-123" {
		t.Errorf("CorrelationID = %q, want %q", got, "abc-123")
	}
}

func TestCorrelationIDAbsent(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID on bare context = %q, want empty", got)
	}
}

func TestSetLevelFallsBackToInfoOnGarbage(t *testing.T) {
	SetLevel("debug")
	SetLevel("not-a-real-level")
	if got := base.GetLevel(); got != logrus.InfoLevel {
		t.Errorf("level after garbage = %v, want info", got)
	}
	SetLevel("info")
}

func TestForAndWithContextDoNotPanic(t *testing.T) {
	l := For("test-module")
	ctx := WithCorrelationID(context.Background(), "xyz")
	l.WithContext(ctx).Infof("hello %s", "world")
	l.Debugf("debug line")
	l.Warnf("warn line")
	l.Errorf(errors.New("boom"), "failed to %s", "frobnicate")
	l.Errorf(nil, "failed without cause")
}

func TestErrTypeNameFormatsGoType(t *testing.T) {
	if got := errTypeName(errors.New("x")); got != "*errors.errorString" {
		t.Errorf("errTypeName = %q, want %q", got, "*errors.errorString")
	}
}
