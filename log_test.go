package muduo

import "testing"

func TestLogToFile(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	for i := 0; i < 5; i++ {
		l.Debug("hello %s %d", "debug", i)
		l.Info("hello %s %d", "info", i)
		l.Warn("hello %s %d", "warn", i)
		l.Error("hello %s %d", "error", i)
		l.Fatal("hello %s %d", "fatal", i)
	}
}

func TestLogToStdout(t *testing.T) {
	l, err := NewLogger("")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	l.Info("hello %s", "stdout")
	Info("package-level shortcut routes to the last constructed logger")
}

func TestLogPackageLevelShortcuts(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewLogger(dir); err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	Debug("shortcut %s", "debug")
	Info("shortcut %s", "info")
	Warn("shortcut %s", "warn")
	Error("shortcut %s", "error")
	Fatal("shortcut %s", "fatal")
}
