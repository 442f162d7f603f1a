package commands

import (
	"context"
	"fmt"
)

type Result struct {
	Message string
	// Markdown, when set, is rendered in the detail pane.
	Markdown string
}

type Handlers struct {
	Mark     func(context.Context, MarkArgs) (Result, error)
	Show     func(context.Context, ShowArgs) (Result, error)
	Sync     func(context.Context) (Result, error)
	Remind   func(context.Context, RemindArgs) (Result, error)
	Location func(context.Context, LocationArgs) (Result, error)
	Backup   func(context.Context) (Result, error)
	Restore  func(context.Context) (Result, error)
}

func Execute(ctx context.Context, cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeMark, TypeUnmark:
		if handlers.Mark == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Mark(ctx, *cmd.Mark)
	case TypeShow:
		if handlers.Show == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Show(ctx, *cmd.Show)
	case TypeSync:
		if handlers.Sync == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Sync(ctx)
	case TypeRemind:
		if handlers.Remind == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Remind(ctx, *cmd.Remind)
	case TypeLocation:
		if handlers.Location == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Location(ctx, *cmd.Location)
	case TypeBackup:
		if handlers.Backup == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Backup(ctx)
	case TypeRestore:
		if handlers.Restore == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Restore(ctx)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}

func missing(t Type) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", t)}
}
