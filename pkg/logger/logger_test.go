package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoggerErrorIncludesContextFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})

	ctx := context.Background()
	ctx = log.WithRequestID(ctx, "req-123")
	ctx = log.WithRestaurantID(ctx, "rest-9")

	log.Error(ctx, "boom", errors.New("boom"))

	if !bytes.Contains(buf.Bytes(), []byte("\"request_id\"")) {
		t.Fatalf("expected request_id to be preserved; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("\"restaurant_id\":\"rest-9\"")) {
		t.Fatalf("expected restaurant_id field; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("expected stack trace on error; entry=%s", buf.String())
	}
}

func TestLoggerWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf, WarnStack: true})
	log.Warn(context.Background(), "warny")
	if !bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("expected stack when warn stack enabled")
	}

	buf.Reset()
	quiet := New(Options{ServiceName: "test", Level: ParseLevel("debug"), Output: buf})
	quiet.Warn(context.Background(), "warny")
	if bytes.Contains(buf.Bytes(), []byte("\"stack\"")) {
		t.Fatalf("expected no stack when warn stack disabled")
	}
}

func TestDebugRespectsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Level: zerolog.InfoLevel, Output: buf})
	log.Debug(context.Background(), "hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected debug entry to be filtered, got %s", buf.String())
	}
}

func TestParseLevelDefaults(t *testing.T) {
	if lvl := ParseLevel(""); lvl != zerolog.InfoLevel {
		t.Fatalf("expected default info level, got %v", lvl)
	}
	if lvl := ParseLevel("invalid"); lvl != zerolog.InfoLevel {
		t.Fatalf("invalid level should fallback to info, got %v", lvl)
	}
	if lvl := ParseLevel(" WARN "); lvl != zerolog.WarnLevel {
		t.Fatalf("expected warn level, got %v", lvl)
	}
}

func TestBillingPeriodFieldsAreUTC(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "test", Output: buf})
	est := time.FixedZone("EST", -5*3600)
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, est)

	ctx := log.WithBillingPeriod(context.Background(), start, start.AddDate(0, 0, 7))
	log.Info(ctx, "closing")

	if !bytes.Contains(buf.Bytes(), []byte("\"period_start\":\"2024-03-04T05:00:00Z\"")) {
		t.Fatalf("expected UTC period_start; entry=%s", buf.String())
	}
	if !bytes.Contains(buf.Bytes(), []byte("\"period_end\":\"2024-03-11T05:00:00Z\"")) {
		t.Fatalf("expected UTC period_end; entry=%s", buf.String())
	}
}

func TestInstanceAndJobFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "cron-worker", Instance: "worker-2", Output: buf})
	log.Info(log.WithJob(context.Background(), "commission-overdue-sweep"), "job start")

	for _, want := range []string{`"instance":"worker-2"`, `"job":"commission-overdue-sweep"`, `"event":"cron.job"`} {
		if !bytes.Contains(buf.Bytes(), []byte(want)) {
			t.Fatalf("expected %s; entry=%s", want, buf.String())
		}
	}

	buf.Reset()
	New(Options{ServiceName: "api", Output: buf}).Info(context.Background(), "up")
	if bytes.Contains(buf.Bytes(), []byte(`"instance"`)) {
		t.Fatalf("expected no instance field when unset; entry=%s", buf.String())
	}
}
