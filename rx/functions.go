package rx

import "context"

type (
	FnOnComplete  = func()
	FnOnError     = func(e error)
	FnOnCancel    = func()
	FnFinally     = func(s SignalType)
	FnOnSubscribe = func(ctx context.Context, d Disposable)
)
