package logger

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Field is one structured key/value attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
	kind  fieldKind
}

type fieldKind uint8

const (
	kindAny fieldKind = iota
	kindString
	kindInt
	kindInt64
	kindFloat
	kindBool
	kindTime
	kindError
)

func (f Field) addTo(ev *zerolog.Event) {
	switch f.kind {
	case kindString:
		ev.Str(f.Key, f.Value.(string))
	case kindInt:
		ev.Int(f.Key, f.Value.(int))
	case kindInt64:
		ev.Int64(f.Key, f.Value.(int64))
	case kindFloat:
		ev.Float64(f.Key, f.Value.(float64))
	case kindBool:
		ev.Bool(f.Key, f.Value.(bool))
	case kindTime:
		ev.Time(f.Key, f.Value.(time.Time))
	case kindError:
		if err, ok := f.Value.(error); ok && err != nil {
			ev.AnErr(f.Key, err)
		}
	default:
		ev.Interface(f.Key, f.Value)
	}
}

func (f Field) addToContext(c zerolog.Context) zerolog.Context {
	switch f.kind {
	case kindString:
		return c.Str(f.Key, f.Value.(string))
	case kindInt:
		return c.Int(f.Key, f.Value.(int))
	case kindError:
		if err, ok := f.Value.(error); ok && err != nil {
			return c.AnErr(f.Key, err)
		}
		return c
	default:
		return c.Interface(f.Key, f.Value)
	}
}

// plain returns the value in a JSON-friendly form.
func (f Field) plain() interface{} {
	if f.kind == kindError {
		if err, ok := f.Value.(error); ok && err != nil {
			return err.Error()
		}
		return nil
	}
	return f.Value
}

func String(key, value string) Field { return Field{Key: key, Value: value, kind: kindString} }

func Int(key string, value int) Field { return Field{Key: key, Value: value, kind: kindInt} }

func Int64(key string, value int64) Field { return Field{Key: key, Value: value, kind: kindInt64} }

func Float64(key string, value float64) Field { return Field{Key: key, Value: value, kind: kindFloat} }

func Bool(key string, value bool) Field { return Field{Key: key, Value: value, kind: kindBool} }

func Time(key string, value time.Time) Field { return Field{Key: key, Value: value, kind: kindTime} }

func Error(err error) Field { return Field{Key: "error", Value: err, kind: kindError} }

func Any(key string, value interface{}) Field { return Field{Key: key, Value: value, kind: kindAny} }

// Duration logs d in milliseconds.
func Duration(key string, d time.Duration) Field {
	return Field{Key: key, Value: d.Milliseconds(), kind: kindInt64}
}

func Strings(key string, value []string) Field {
	return String(key, strings.Join(value, ", "))
}
