package logger

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

var Log *logrus.Logger

var (
	discardOnce sync.Once
	discard     *logrus.Logger
)

// Init инициализирует структурированный логгер.
func Init(level string) {
	Log = logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	// Используем JSON формат для production, text для development
	Log.SetFormatter(&logrus.JSONFormatter{})
}

// SetTextFormatter устанавливает текстовый формат логов (для development).
func SetTextFormatter() {
	if Log != nil {
		Log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}

// Get возвращает глобальный логгер. До Init (например в тестах) логи никуда не пишутся.
func Get() *logrus.Logger {
	if Log != nil {
		return Log
	}
	discardOnce.Do(func() {
		discard = logrus.New()
		discard.SetOutput(io.Discard)
	})
	return discard
}
