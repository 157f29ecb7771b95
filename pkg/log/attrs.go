package log

import "log/slog"

func FlowID[T ~string](id T) slog.Attr {
	return slog.String("flow_id", string(id))
}

func StepID[T ~string](id T) slog.Attr {
	return slog.String("step_id", string(id))
}

func Status[T ~string](status T) slog.Attr {
	return slog.String("status", string(status))
}

func Chain[T ~string](chain T) slog.Attr {
	return slog.String("chain", string(chain))
}

func TxHash(hash string) slog.Attr {
	return slog.String("tx_hash", hash)
}

func Account(account string) slog.Attr {
	return slog.String("account", account)
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
