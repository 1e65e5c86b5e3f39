package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// Line is one input line with its zero-based position in the file.
// Err is set when the line could not be decoded; such lines are
// skipped downstream without aborting the run.
type Line struct {
	Index int64
	Text  string
	Err   error
}

const readBufferSize = 64 * 1024

// Count returns the total number of lines in the file. It is the
// first of two passes over the input; the total feeds progress
// percentages and ETA.
func Count(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReaderSize(f, readBufferSize)

	var total int64
	for {
		text, err := reader.ReadString('\n')
		if len(text) > 0 {
			// A trailing line without a newline still counts.
			total++
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to count lines: %w", err)
		}
	}

	return total, nil
}

// Stream reopens the file and emits lines starting at index `from`,
// in order, until EOF or context cancellation. The sequence is lazy
// and not restartable; callers resume by calling Stream again with a
// new offset. A fatal read error is delivered on the error channel
// and terminates the stream.
func Stream(ctx context.Context, path string, from int64) (<-chan Line, <-chan error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}

	lines := make(chan Line)
	errCh := make(chan error, 1)

	go func() {
		defer close(lines)
		defer close(errCh)
		defer f.Close()

		reader := bufio.NewReaderSize(f, readBufferSize)

		var index int64
		for {
			text, err := reader.ReadString('\n')
			if err != nil && err != io.EOF {
				errCh <- fmt.Errorf("failed to read line %d: %w", index, err)
				return
			}

			atEOF := err == io.EOF
			if atEOF && text == "" {
				return
			}

			if index >= from {
				line := Line{
					Index: index,
					Text:  strings.TrimRight(text, "\r\n"),
				}
				if !utf8.ValidString(line.Text) {
					line.Err = fmt.Errorf("line %d is not valid UTF-8", index)
				}

				select {
				case lines <- line:
				case <-ctx.Done():
					return
				}
			}

			index++
			if atEOF {
				return
			}
		}
	}()

	return lines, errCh, nil
}
