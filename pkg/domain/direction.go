package domain

import dErrors "acredita/pkg/domain-errors"

// Direction distinguishes entry from exit scans. It is meaningless for the
// registro mode, which has no exit.
type Direction string

const (
	DirectionEntrada Direction = "entrada"
	DirectionSalida  Direction = "salida"
)

// ParseDirection constructs a Direction from external input. An empty value
// defaults to entrada so registration stations can omit it.
func ParseDirection(s string) (Direction, error) {
	if s == "" {
		return DirectionEntrada, nil
	}
	d := Direction(s)
	if d != DirectionEntrada && d != DirectionSalida {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid direction")
	}
	return d, nil
}

// String returns the string representation of the direction.
func (d Direction) String() string {
	return string(d)
}
