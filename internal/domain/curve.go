package domain

import "fmt"

// Curve identifies one of the supported NIST curves. The set is closed;
// identifiers outside it parse to the default curve.
type Curve string

const (
	CurveP256 Curve = "P-256"
	CurveP384 Curve = "P-384"
	CurveP521 Curve = "P-521"
)

const DefaultCurve = CurveP256

// ParseCurve resolves a curve identifier. Unknown identifiers return the
// default curve together with ErrUnsupportedCurve: the substitution is
// deliberate (curve identity travels nowhere in the wire format, so failing
// would strand packages), but callers are expected to log it.
func ParseCurve(id string) (Curve, error) {
	switch Curve(id) {
	case CurveP256, CurveP384, CurveP521:
		return Curve(id), nil
	case "":
		return DefaultCurve, nil
	default:
		return DefaultCurve, fmt.Errorf("%w: %q", ErrUnsupportedCurve, id)
	}
}
