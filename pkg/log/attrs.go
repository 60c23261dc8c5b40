package log

import "log/slog"

func Wizard(name string) slog.Attr {
	return slog.String("wizard", name)
}

func Step[T ~string](step T) slog.Attr {
	return slog.String("step", string(step))
}

func Session(key string) slog.Attr {
	return slog.String("session", key)
}

func Backend(name string) slog.Attr {
	return slog.String("backend", name)
}

func Error(err error) slog.Attr {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return slog.String("error", msg)
}
