package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sandeepkv93/salahd/internal/model"
)

type Type string

const (
	TypeMark     Type = "mark"
	TypeUnmark   Type = "unmark"
	TypeShow     Type = "show"
	TypeSync     Type = "sync"
	TypeRemind   Type = "remind"
	TypeLocation Type = "location"
	TypeBackup   Type = "backup"
	TypeRestore  Type = "restore"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MarkArgs is shared by mark and unmark. An empty Date means today.
type MarkArgs struct {
	Prayer    model.PrayerName
	Date      string
	Completed bool
}

type ShowSubject string

const (
	ShowToday   ShowSubject = "today"
	ShowStats   ShowSubject = "stats"
	ShowPending ShowSubject = "pending"
)

type ShowArgs struct {
	Subject ShowSubject
}

type RemindArgs struct {
	Enabled          bool
	Toggle           bool
	MinutesBefore    int
	ReminderInterval int
}

type LocationArgs struct {
	Location model.Location
}

type Command struct {
	Type     Type
	Raw      string
	Mark     *MarkArgs
	Show     *ShowArgs
	Remind   *RemindArgs
	Location *LocationArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeMark:
		return parseMark(input, TypeMark, args, true)
	case TypeUnmark:
		return parseMark(input, TypeUnmark, args, false)
	case TypeShow:
		return parseShow(input, args)
	case TypeRemind:
		return parseRemind(input, args)
	case TypeLocation:
		return parseLocation(input, args)
	case TypeSync, TypeBackup, TypeRestore:
		if len(args) != 0 {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s takes no arguments", head)}
		}
		return Command{Type: Type(head), Raw: input}, nil
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseMark(raw string, typ Type, args []string, completed bool) (Command, error) {
	if len(args) == 0 || len(args) > 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s requires a prayer and an optional date", typ)}
	}
	prayer, err := model.ParsePrayerName(args[0])
	if err != nil {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: err.Error()}
	}
	date := ""
	if len(args) == 2 {
		if _, err := model.ParseDateKey(args[1]); err != nil {
			return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: err.Error()}
		}
		date = args[1]
	}
	return Command{Type: typ, Raw: raw, Mark: &MarkArgs{Prayer: prayer, Date: date, Completed: completed}}, nil
}

func parseShow(raw string, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "show requires one of today, stats, pending"}
	}
	subject := ShowSubject(strings.ToLower(args[0]))
	switch subject {
	case ShowToday, ShowStats, ShowPending:
	default:
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown show subject: %s", args[0])}
	}
	return Command{Type: TypeShow, Raw: raw, Show: &ShowArgs{Subject: subject}}, nil
}

func parseRemind(raw string, args []string) (Command, error) {
	if len(args) == 1 {
		switch strings.ToLower(args[0]) {
		case "on":
			return Command{Type: TypeRemind, Raw: raw, Remind: &RemindArgs{Toggle: true, Enabled: true}}, nil
		case "off":
			return Command{Type: TypeRemind, Raw: raw, Remind: &RemindArgs{Toggle: true}}, nil
		}
	}
	if len(args) != 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "remind requires on, off, or <minutesBefore> <interval>"}
	}
	before, err := strconv.Atoi(args[0])
	if err != nil || before < 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("invalid minutes before: %s", args[0])}
	}
	interval, err := strconv.Atoi(args[1])
	if err != nil || interval <= 0 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("invalid reminder interval: %s", args[1])}
	}
	return Command{Type: TypeRemind, Raw: raw, Remind: &RemindArgs{Enabled: true, MinutesBefore: before, ReminderInterval: interval}}, nil
}

func parseLocation(raw string, args []string) (Command, error) {
	if len(args) != 2 {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "location requires latitude and longitude"}
	}
	lat, errLat := strconv.ParseFloat(args[0], 64)
	lng, errLng := strconv.ParseFloat(args[1], 64)
	if errLat != nil || errLng != nil {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: "latitude and longitude must be numbers"}
	}
	loc := model.Location{Latitude: lat, Longitude: lng}
	if err := loc.Validate(); err != nil {
		return Command{}, &CommandError{Code: ErrCodeInvalidArgument, Message: err.Error()}
	}
	return Command{Type: TypeLocation, Raw: raw, Location: &LocationArgs{Location: loc}}, nil
}
