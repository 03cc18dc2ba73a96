package crash

import (
	"bytes"
	"fmt"
	"io"
	"runtime"

	"github.com/maruel/panicparse/v2/stack"
	"github.com/pkg/errors"
)

var errNoGoroutines = errors.New("no goroutines in dump")

// allStacks returns the formatted stacks of all goroutines.
func allStacks() []byte {
	buf := make([]byte, 64<<10)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			return buf[:n]
		}
		if len(buf) >= 64<<20 {
			return buf[:n]
		}
		buf = make([]byte, 2*len(buf))
	}
}

// logicalStack writes the goroutine stacks of the process, grouping
// goroutines with identical stacks. At most depth groups are written. The
// raw dump is written if it cannot be parsed.
func logicalStack(w io.Writer, depth int) {
	raw := allStacks()
	buckets, err := aggregate(bytes.NewReader(raw))
	if err != nil {
		log.WithError(err).Debug("goroutine dump not parsed")
		w.Write(raw)
		return
	}
	writeBuckets(w, buckets, depth)
}

// aggregate parses a goroutine dump and groups goroutines whose stacks
// differ only in argument values.
func aggregate(r io.Reader) ([]*stack.Bucket, error) {
	snap, _, err := stack.ScanSnapshot(r, io.Discard, stack.DefaultOpts())
	if err != nil && err != io.EOF {
		return nil, err
	}
	if snap == nil || len(snap.Goroutines) == 0 {
		return nil, errNoGoroutines
	}
	return snap.Aggregate(stack.AnyValue).Buckets, nil
}

func writeBuckets(w io.Writer, buckets []*stack.Bucket, depth int) {
	elided := 0
	if depth > 0 && len(buckets) > depth {
		elided = len(buckets) - depth
		buckets = buckets[:depth]
	}

	// Calculate alignment.
	srcLen := 0
	pkgLen := 0
	for _, bucket := range buckets {
		for _, line := range bucket.Signature.Stack.Calls {
			if l := len(srcLine(&line)); l > srcLen {
				srcLen = l
			}
			if l := len(line.Func.DirName); l > pkgLen {
				pkgLen = l
			}
		}
	}

	var buf bytes.Buffer
	for _, bucket := range buckets {
		extra := ""
		if s := bucket.SleepString(); s != "" {
			extra += " [" + s + "]"
		}
		if bucket.Locked {
			extra += " [locked]"
		}
		fmt.Fprintf(&buf, "%d: %s%s\n", len(bucket.IDs), bucket.State, extra)

		for _, line := range bucket.Stack.Calls {
			fmt.Fprintf(&buf, "    %-*s %-*s %s(%s)\n",
				pkgLen, line.Func.DirName, srcLen, srcLine(&line),
				line.Func.Name, &line.Args)
		}
		if bucket.Stack.Elided {
			buf.WriteString("    (...)\n")
		}
	}
	if elided > 0 {
		fmt.Fprintf(&buf, "(%d more goroutine groups)\n", elided)
	}
	w.Write(buf.Bytes())
}

func srcLine(c *stack.Call) string {
	return fmt.Sprintf("%s:%d", c.SrcName, c.Line)
}
