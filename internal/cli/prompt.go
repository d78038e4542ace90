package cli

import (
	"bufio"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
)

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// qualityPrompter asks for the JPEG quality on the terminal. An empty answer
// keeps the current value.
type qualityPrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// newQualityPrompter returns nil unless in is a terminal, so scripted runs
// never block on a prompt.
func newQualityPrompter(in io.Reader, out io.Writer) *qualityPrompter {
	if !isTerminal(in) {
		return nil
	}
	return &qualityPrompter{in: bufio.NewReader(in), out: out}
}

func (p *qualityPrompter) PromptQuality(ctx context.Context, current int) (int, error) {
	for {
		if err := ctx.Err(); err != nil {
			return current, err
		}
		fmt.Fprintf(p.out, "JPEG quality 0-100 [%d]: ", current)
		line, err := p.in.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			if err != nil && !errors.Is(err, io.EOF) {
				return current, err
			}
			return current, nil
		}
		q, perr := strconv.Atoi(line)
		if perr == nil && q >= 0 && q <= 100 {
			return q, nil
		}
		fmt.Fprintf(p.out, "%q is not a number between 0 and 100\n", line)
		if err != nil {
			return current, err
		}
	}
}

// terminalClipboard copies text with the OSC 52 escape sequence, which
// terminal emulators forward to the system clipboard.
type terminalClipboard struct {
	out io.Writer
}

// newTerminalClipboard returns nil unless out is a terminal.
func newTerminalClipboard(out io.Writer) *terminalClipboard {
	if !isTerminal(out) {
		return nil
	}
	return &terminalClipboard{out: out}
}

func (c *terminalClipboard) CopyPath(path string) error {
	_, err := fmt.Fprintf(c.out, "\x1b]52;c;%s\a", base64.StdEncoding.EncodeToString([]byte(path)))
	return err
}
