package log

import "log/slog"

func Flow[T ~string](name T) slog.Attr {
	return slog.String("flow", string(name))
}

func ExecutionID(id string) slog.Attr {
	return slog.String("execution_id", id)
}

func State[T ~string](state T) slog.Attr {
	return slog.String("state", string(state))
}

func Stage[T ~string](stage T) slog.Attr {
	return slog.String("stage", string(stage))
}

func Kind[T ~string](kind T) slog.Attr {
	return slog.String("kind", string(kind))
}

func Model(model string) slog.Attr {
	return slog.String("model", model)
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}

func ErrorString(msg string) slog.Attr {
	return slog.String("error", msg)
}
