package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultAttempts is how many answers YesNo reads before giving up.
const DefaultAttempts = 3

// ErrNoAnswer is returned when no valid answer was given.
var ErrNoAnswer = errors.New("no valid answer given")

// YesNo asks question on out and reads a y/n answer from in. Invalid or
// empty answers re-display the question, at most attempts times. Nothing
// past the answer line is consumed, so in can be handed to child
// processes afterwards.
func YesNo(in io.Reader, out io.Writer, question string, attempts int) (bool, error) {
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	for i := 0; i < attempts; i++ {
		fmt.Fprintf(out, "%s (y/n): ", question)
		line, err := readLine(in)
		if err != nil && !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("failed to read answer: %w", err)
		}

		reply := strings.ToLower(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(reply, "y"):
			return true, nil
		case strings.HasPrefix(reply, "n"):
			return false, nil
		}
		if err != nil {
			// End of input.
			return false, ErrNoAnswer
		}
	}
	return false, ErrNoAnswer
}

// readLine reads up to and including the next newline one byte at a time.
// The newline is not returned.
func readLine(in io.Reader) (string, error) {
	var (
		line []byte
		b    [1]byte
	)
	for {
		n, err := in.Read(b[:])
		if n == 1 {
			if b[0] == '\n' {
				return string(line), nil
			}
			line = append(line, b[0])
		}
		if err != nil {
			return string(line), err
		}
	}
}
