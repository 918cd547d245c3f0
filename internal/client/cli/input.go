package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// readLine reads a single line from reader with the trailing newline trimmed.
// If EOF occurs after some input was read, the partial line is returned.
func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// askField prompts for one form field, showing the current value in
// brackets when there is one.
func askField(reader *bufio.Reader, w io.Writer, label, current string) (string, error) {
	if current != "" {
		fmt.Fprintf(w, "%s [%s]: ", label, current)
	} else {
		fmt.Fprintf(w, "%s: ", label)
	}
	return readLine(reader)
}

// confirm asks a yes/no question. Anything but y or yes is a no.
func confirm(reader *bufio.Reader, w io.Writer, question string) (bool, error) {
	fmt.Fprintf(w, "%s [y/N]: ", question)
	answer, err := readLine(reader)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
