// internal/position/field.go
package position

// Status – результат получения одного поля.
type Status int

const (
	StatusOK Status = iota
	StatusAbsent
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusAbsent:
		return "absent"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Field – значение с признаком того, удалось ли его получить.
// Absent и Failed всегда несут нулевое значение.
type Field struct {
	Status Status
	Value  float64
	Err    error
}

func ok(v float64) Field     { return Field{Status: StatusOK, Value: v} }
func absent() Field          { return Field{Status: StatusAbsent} }
func failed(err error) Field { return Field{Status: StatusFailed, Err: err} }

func (f Field) OK() bool     { return f.Status == StatusOK }
func (f Field) Failed() bool { return f.Status == StatusFailed }

// Format рендерит значение через fn; Failed даёт "N/A", Absent – "-".
func (f Field) Format(fn func(float64) string) string {
	switch f.Status {
	case StatusOK:
		return fn(f.Value)
	case StatusAbsent:
		return "-"
	default:
		return "N/A"
	}
}
