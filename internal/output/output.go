// Package output opens the file a plate is written to.
package output

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/rneatherway/etchplate/internal/config"
)

var (
	// ErrExists is returned when the output exists and must not be overwritten.
	ErrExists = errors.New("output file exists")
	// ErrDeclined is returned when the user answers no to the overwrite prompt.
	ErrDeclined = errors.New("overwrite declined")
)

// AskFunc asks whether the existing file at path may be replaced.
type AskFunc func(path string) (bool, error)

// DefaultName derives the output name from the input: the input's base name with its
// extension replaced by ext, in the working directory.
func DefaultName(input, ext string) string {
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ext
}

// Open creates path for writing. An existing file is replaced, kept or asked about
// according to policy.
func Open(path, policy string, ask AskFunc) (*os.File, error) {
	if policy == config.OverwriteAlways {
		return os.Create(path)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return nil, err
	}
	if policy == config.OverwriteNever || ask == nil {
		return nil, errors.Wrap(ErrExists, path)
	}

	ok, err := ask(path)
	if err != nil {
		return nil, errors.Wrap(err, "overwrite prompt")
	}
	if !ok {
		return nil, errors.Wrap(ErrDeclined, path)
	}
	return os.Create(path)
}

// Prompt returns an AskFunc that asks on out and reads answers from in, one per line.
func Prompt(in io.Reader, out io.Writer, prog string) AskFunc {
	r := bufio.NewReader(in)
	return func(path string) (bool, error) {
		fmt.Fprintf(out, "%s: overwrite '%s'? ", prog, path)
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return false, err
		}
		if err == io.EOF && line == "" {
			// No answer at all, e.g. stdin closed.
			return false, nil
		}
		return Accepts(line), nil
	}
}

// Accepts reports whether answer is a prefix of "yes", in any case. A bare newline counts.
func Accepts(answer string) bool {
	return strings.HasPrefix("yes", strings.ToLower(strings.TrimSpace(answer)))
}
