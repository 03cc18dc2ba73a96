package symbolize

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/google/shlex"
	"github.com/pkg/errors"
)

// LineTool maps an offset in a module to a line-level description,
// formatted as "func() at file:line".
type LineTool interface {
	Lookup(ctx context.Context, module string, offset uint64) (string, error)
}

// DefaultLineCommand returns the line tool command template for the
// current platform, or "" if there is none. The template may refer to
// {module} and {offset}.
func DefaultLineCommand() string {
	switch runtime.GOOS {
	case "linux", "freebsd", "netbsd", "openbsd":
		return "addr2line -fe {module} {offset}"
	case "darwin":
		return "atos -o {module} {offset}"
	}
	return ""
}

// execTool runs an external line-number tool.
type execTool struct {
	argv    []string // template; {module} and {offset} are substituted
	timeout time.Duration
	parse   func(out string) (string, error)
}

// NewExecTool returns a LineTool running the given command template.
// It returns nil if the template is empty or the command is not found.
func NewExecTool(template string, timeout time.Duration) (LineTool, error) {
	if template == "" {
		return nil, nil
	}
	argv, err := shlex.Split(template)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing line tool %q", template)
	}
	if len(argv) == 0 {
		return nil, nil
	}
	if _, err := exec.LookPath(argv[0]); err != nil {
		return nil, errors.Wrapf(err, "line tool %s", argv[0])
	}
	t := &execTool{argv: argv, timeout: timeout, parse: parseGNU}
	if filepath.Base(argv[0]) == "atos" {
		t.parse = parseAtos
	}
	return t, nil
}

func (t *execTool) Lookup(ctx context.Context, module string, offset uint64) (string, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	r := strings.NewReplacer("{module}", module, "{offset}", fmt.Sprintf("0x%x", offset))
	args := make([]string, len(t.argv))
	for i, a := range t.argv {
		args[i] = r.Replace(a)
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", errors.Wrapf(err, "running %s", args[0])
	}
	return t.parse(stdout.String())
}

// parseGNU parses addr2line -f output: the function name on the first
// line, file:line on the second.
func parseGNU(out string) (string, error) {
	lines := strings.SplitN(strings.TrimSpace(out), "\n", 3)
	if len(lines) < 2 {
		return "", fmt.Errorf("unexpected line tool output %q", out)
	}
	fn := strings.TrimSpace(lines[0])
	loc := strings.TrimSpace(lines[1])
	if fn == "" || strings.HasPrefix(fn, "??") || strings.HasPrefix(loc, "??") {
		return "", fmt.Errorf("line tool could not resolve address")
	}
	// addr2line appends " (discriminator N)" for some locations.
	if i := strings.Index(loc, " ("); i >= 0 {
		loc = loc[:i]
	}
	return fmt.Sprintf("%s() at %s", fn, loc), nil
}

// atos prints "func (in lib) (file:line)", or just "func (in lib) + off"
// when there is no line information.
var atosLine = regexp.MustCompile(`^(.+?) \(in [^)]+\) \(([^()]+:\d+)\)$`)

func parseAtos(out string) (string, error) {
	line := strings.TrimSpace(strings.SplitN(out, "\n", 2)[0])
	m := atosLine.FindStringSubmatch(line)
	if m == nil {
		return "", fmt.Errorf("unexpected atos output %q", line)
	}
	return fmt.Sprintf("%s() at %s", m[1], m[2]), nil
}
