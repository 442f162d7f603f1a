package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/sandeepkv93/salahd/internal/model"
)

func TestParseSupportedCommands(t *testing.T) {
	cases := []struct {
		in       string
		typeWant Type
	}{
		{"/mark fajr", TypeMark},
		{"mark Isha 2024-06-09", TypeMark},
		{"unmark dhuhr", TypeUnmark},
		{"show stats", TypeShow},
		{"sync", TypeSync},
		{"remind 10 20", TypeRemind},
		{"remind off", TypeRemind},
		{"location 41.01 28.97", TypeLocation},
		{"/backup", TypeBackup},
		{"restore", TypeRestore},
	}

	for _, tc := range cases {
		cmd, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("parse %q failed: %v", tc.in, err)
		}
		if cmd.Type != tc.typeWant {
			t.Fatalf("parse %q type = %s, want %s", tc.in, cmd.Type, tc.typeWant)
		}
	}
}

func TestParseMarkArgs(t *testing.T) {
	cmd, err := Parse("mark ISHA 2024-06-09")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.Mark.Prayer != model.Isha || cmd.Mark.Date != "2024-06-09" || !cmd.Mark.Completed {
		t.Fatalf("unexpected mark args: %+v", cmd.Mark)
	}
	cmd, _ = Parse("unmark fajr")
	if cmd.Mark.Completed || cmd.Mark.Date != "" {
		t.Fatalf("unexpected unmark args: %+v", cmd.Mark)
	}
}

func TestParseRejectsBadArguments(t *testing.T) {
	cases := []string{
		"mark",
		"mark sunrise",
		"mark fajr 09/06/2024",
		"show tasks",
		"remind 10",
		"remind -1 30",
		"remind 10 0",
		"location 91 0",
		"location north east",
		"sync now",
	}
	for _, in := range cases {
		_, err := Parse(in)
		var ce *CommandError
		if !errors.As(err, &ce) || ce.Code != ErrCodeInvalidArgument {
			t.Fatalf("%q: expected invalid argument error, got %v", in, err)
		}
	}
}

func TestParseEmptyAndUnknown(t *testing.T) {
	var ce *CommandError
	if _, err := Parse(" / "); !errors.As(err, &ce) || ce.Code != ErrCodeEmptyInput {
		t.Fatalf("expected empty input error, got %v", err)
	}
	if _, err := Parse("/pray now"); !errors.As(err, &ce) || ce.Code != ErrCodeUnknownCommand {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestParseRemindToggle(t *testing.T) {
	cmd, err := Parse("remind on")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !cmd.Remind.Toggle || !cmd.Remind.Enabled {
		t.Fatalf("unexpected remind args: %+v", cmd.Remind)
	}
}

func TestExecuteDispatch(t *testing.T) {
	cmd, err := Parse("/mark asr")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	called := false
	res, err := Execute(context.Background(), cmd, Handlers{
		Mark: func(_ context.Context, a MarkArgs) (Result, error) {
			called = true
			if a.Prayer != model.Asr {
				t.Fatalf("unexpected prayer: %q", a.Prayer)
			}
			return Result{Message: "ok"}, nil
		},
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !called || res.Message != "ok" {
		t.Fatalf("dispatch failed, called=%v res=%+v", called, res)
	}
}

func TestExecuteMissingHandler(t *testing.T) {
	cmd, err := Parse("show pending")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	_, err = Execute(context.Background(), cmd, Handlers{})
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeHandlerMissing {
		t.Fatalf("expected missing handler error, got %v", err)
	}
}
