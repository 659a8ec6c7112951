package utils

import "errors"

// Sentinel error kinds. Model operations wrap these with fmt.Errorf("%w: ...")
// so the HTTP boundary can map them to status codes with errors.Is.
var (
	ErrorRecordNotFound       = errors.New("record not found")
	ErrorPermissionDenied     = errors.New("permission denied")
	ErrorConflict             = errors.New("conflict")
	ErrorInsufficientQuantity = errors.New("insufficient quantity")
	ErrorValidation           = errors.New("validation error")
	ErrorReportTooLarge       = errors.New("report too large")
)

func ErrorPanic(err error) {
	if err != nil {
		panic(err)
	}
}
