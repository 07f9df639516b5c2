package constants

import "errors"

// CLI errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported output format")
	ErrNoTokenSource     = errors.New("client does not expose its access token")
	ErrInvalidReportID   = errors.New("report ID must be a number")
	ErrInvalidDate       = errors.New("invalid date, expected YYYY-MM-DD")
)
