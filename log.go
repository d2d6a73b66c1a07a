package muduo

import (
	"fmt"
	"os"
	"path"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// lastLogger backs the package-level Debug/Info/... shortcuts; set by
// the most recently constructed *Logger.
var lastLogger *Logger

// Debug logs to the package-level default logger's debug level.
func Debug(format string, v ...any) { lastLogger.debugL.write(format, v...) }

// Info logs to the package-level default logger's info level.
func Info(format string, v ...any) { lastLogger.infoL.write(format, v...) }

// Warn logs to the package-level default logger's warn level.
func Warn(format string, v ...any) { lastLogger.warnL.write(format, v...) }

// Error logs to the package-level default logger's error level.
func Error(format string, v ...any) { lastLogger.errorL.write(format, v...) }

// Fatal logs to the package-level default logger's fatal level. It does
// not exit the process; callers that must stop do so themselves — Fatal
// is a log level here, not an os.Exit trigger.
func Fatal(format string, v ...any) { lastLogger.fatalL.write(format, v...) }

// Logger is a leveled logger with one file per level, rotated at
// midnight, under dir; with dir == "" every level writes to stdout
// instead, each line prefixed with its level name.
type Logger struct {
	noCopy

	debugL logLevel
	infoL  logLevel
	warnL  logLevel
	errorL logLevel
	fatalL logLevel
}

// NewLogger creates a Logger writing under dir, or to stdout if dir is "".
func NewLogger(dir string) (*Logger, error) {
	l := &Logger{
		debugL: logLevel{dir: dir, name: "debug", fd: -1},
		infoL:  logLevel{dir: dir, name: "info", fd: -1},
		warnL:  logLevel{dir: dir, name: "warn", fd: -1},
		errorL: logLevel{dir: dir, name: "error", fd: -1},
		fatalL: logLevel{dir: dir, name: "fatal", fd: -1},
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errWrap("log: mkdir", err)
		}
	}
	lastLogger = l
	return l, nil
}

func (l *Logger) Debug(format string, v ...any) { l.debugL.write(format, v...) }
func (l *Logger) Info(format string, v ...any)  { l.infoL.write(format, v...) }
func (l *Logger) Warn(format string, v ...any)  { l.warnL.write(format, v...) }
func (l *Logger) Error(format string, v ...any) { l.errorL.write(format, v...) }
func (l *Logger) Fatal(format string, v ...any) { l.fatalL.write(format, v...) }

// logLevel is one level's rotating log file, re-opened whenever the
// calendar date changes.
type logLevel struct {
	newFileYear  int
	newFileMonth int
	newFileDay   int
	fd           int
	dir          string
	name         string
	buff         []byte

	mtx sync.Mutex
}

func (l *logLevel) newFile(year, month, day int) error {
	if l.newFileYear != year || l.newFileMonth != month || l.newFileDay != day {
		l.close()
		if err := l.open(year, month, day); err != nil {
			return err
		}
	}
	return nil
}

func (l *logLevel) open(year, month, day int) (err error) {
	if l.dir == "" {
		l.fd = 1 // stdout
	} else {
		fname := fmt.Sprintf("%s-%d-%02d-%02d.log", l.name, year, month, day)
		logFile := path.Join(l.dir, fname)
		l.fd, err = unix.Open(logFile, unix.O_CREAT|unix.O_WRONLY|unix.O_APPEND, 0644)
		if err != nil {
			return err
		}
	}
	l.newFileYear, l.newFileMonth, l.newFileDay = year, month, day
	l.buff = make([]byte, 0, 512)
	l.itoa(year, 4)
	l.buff = append(l.buff, '-')
	l.itoa(month, 2)
	l.buff = append(l.buff, '-')
	l.itoa(day, 2)
	l.buff = append(l.buff, ' ')
	return nil
}

func (l *logLevel) close() {
	if l.dir != "" && l.fd != -1 {
		unix.Close(l.fd)
		l.fd = -1
	}
}

func (l *logLevel) write(format string, v ...any) {
	now := time.Now()
	year, month, day := now.Date()

	l.mtx.Lock()
	defer l.mtx.Unlock()

	if err := l.newFile(year, int(month), day); err != nil {
		return
	}
	if l.fd == -1 {
		return
	}
	hour, min, sec := now.Clock()
	l.itoa(hour, 2)
	l.buff = append(l.buff, ':')
	l.itoa(min, 2)
	l.buff = append(l.buff, ':')
	l.itoa(sec, 2)
	l.buff = append(l.buff, '.')
	l.itoa(now.Nanosecond()/1e6, 3)
	if l.dir != "" {
		l.buff = append(l.buff, ' ', '>', ' ')
	} else {
		l.buff = append(l.buff, ' ')
		l.buff = append(l.buff, []byte(l.name+" > ")...)
	}

	l.buff = fmt.Appendf(l.buff, format, v...)
	l.buff = append(l.buff, '\n')
	for {
		_, err := unix.Write(l.fd, l.buff)
		if err == unix.EINTR {
			continue
		}
		break
	}
	l.buff = l.buff[:11 /* len("2023-07-05 ") */]
}

func (l *logLevel) itoa(i int, wid int) {
	var b [8]byte
	bp := len(b) - 1
	for i >= 10 || wid > 1 {
		wid--
		q := i / 10
		b[bp] = byte('0' + i - q*10)
		bp--
		i = q
	}
	b[bp] = byte('0' + i)
	l.buff = append(l.buff, b[bp:]...)
}
