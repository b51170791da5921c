// Package cli holds terminal helpers shared by the commands.
package cli

// ANSI color codes for terminal output.
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
)

// FormatStatus returns a colored audit result.
func FormatStatus(status string) string {
	switch status {
	case "success":
		return ColorGreen + status + ColorReset
	case "failure":
		return ColorRed + status + ColorReset
	case "pending":
		return ColorYellow + status + ColorReset
	default:
		return status
	}
}
